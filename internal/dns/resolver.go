// Package dns performs reverse lookups of addresses.
package dns

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"
)

// DefaultTimeout bounds a single reverse lookup.
const DefaultTimeout = 2 * time.Second

// ErrNoName is returned when an address has no PTR record.
var ErrNoName = errors.New("no name for address")

// ResolveResult is returned by async resolution.
type ResolveResult struct {
	IP       string
	Hostname string
	Err      error
}

// Resolver performs reverse DNS lookups with a per-lookup timeout.
type Resolver struct {
	timeout    time.Duration
	lookupAddr func(ctx context.Context, addr string) ([]string, error)
}

// NewResolver returns a resolver using the system resolver.
// A non-positive timeout selects DefaultTimeout.
func NewResolver(timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Resolver{
		timeout:    timeout,
		lookupAddr: net.DefaultResolver.LookupAddr,
	}
}

// ResolveAsync performs reverse DNS lookup asynchronously.
// Returns a channel that receives exactly one result and is then closed.
func (r *Resolver) ResolveAsync(ctx context.Context, ip string) <-chan ResolveResult {
	ch := make(chan ResolveResult, 1)

	go func() {
		defer close(ch)

		ctx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()

		names, err := r.lookupAddr(ctx, ip)
		if err != nil {
			ch <- ResolveResult{IP: ip, Err: err}
			return
		}
		if len(names) == 0 || names[0] == "" {
			ch <- ResolveResult{IP: ip, Err: ErrNoName}
			return
		}

		// Remove trailing dot from hostname
		ch <- ResolveResult{IP: ip, Hostname: strings.TrimSuffix(names[0], ".")}
	}()

	return ch
}

// Resolve performs synchronous reverse DNS lookup.
func (r *Resolver) Resolve(ctx context.Context, ip string) (string, error) {
	result := <-r.ResolveAsync(ctx, ip)
	return result.Hostname, result.Err
}
