// Package publicip discovers the host's public address through an HTTP
// echo service such as api.ipify.org.
package publicip

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/panjf2000/ants/v2"
	log "github.com/sirupsen/logrus"

	"github.com/kostyay/netpulse/internal/dns"
	"github.com/kostyay/netpulse/internal/logging"
)

// DefaultURL is the lookup endpoint used when none is configured.
const DefaultURL = "https://api.ipify.org?format=json"

// ErrBadResponse is returned when the service answers with something
// that is not an address.
var ErrBadResponse = errors.New("unexpected lookup response")

// ipifyResponse represents the JSON response of the lookup service.
type ipifyResponse struct {
	IP string `json:"ip"`
}

// Result is the outcome of one lookup.
type Result struct {
	IP   string
	Host string // reverse DNS name, empty unless host resolution is enabled
	Err  error
}

// Config configures a Client.
type Config struct {
	URL         string
	Timeout     time.Duration // per lookup, defaults to 5s
	ResolveHost bool          // also reverse-resolve the address
	Workers     int           // concurrent lookups, defaults to 4
	Logger      *log.Entry
}

// ErrBusy is returned by LookupAsync when every worker is already busy.
var ErrBusy = errors.New("all lookup workers are busy")

// Client performs public address lookups on a bounded worker pool. The pool
// never blocks a caller: a lookup submitted while every worker is busy fails
// immediately with ErrBusy.
type Client struct {
	url         string
	timeout     time.Duration
	resolveHost bool
	pool        *ants.Pool
	resolver    *dns.Resolver
	logger      *log.Entry
}

// New creates a client. Release must be called when it is no longer needed.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}

	pool, err := ants.NewPool(cfg.Workers, ants.WithNonblocking(true))
	if err != nil {
		return nil, fmt.Errorf("failed to create lookup pool: %w", err)
	}

	return &Client{
		url:         cfg.URL,
		timeout:     cfg.Timeout,
		resolveHost: cfg.ResolveHost,
		pool:        pool,
		resolver:    dns.NewResolver(cfg.Timeout),
		logger:      cfg.Logger,
	}, nil
}

// Lookup fetches the public address. Every call opens a fresh connection
// so a changed route or interface is always observed.
func (c *Client) Lookup(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build lookup request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	client := &http.Client{
		Transport: &http.Transport{
			Proxy:             http.ProxyFromEnvironment,
			DisableKeepAlives: true,
		},
	}
	defer client.CloseIdleConnections()

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("public address lookup failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrBadResponse, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", fmt.Errorf("failed to read lookup response: %w", err)
	}
	return parseAddress(body)
}

// parseAddress accepts {"ip": "..."} or a bare address.
func parseAddress(body []byte) (string, error) {
	candidate := strings.TrimSpace(string(body))

	var parsed ipifyResponse
	if err := json.Unmarshal(body, &parsed); err == nil {
		candidate = strings.TrimSpace(parsed.IP)
	}

	if net.ParseIP(candidate) == nil {
		return "", fmt.Errorf("%w: %q", ErrBadResponse, truncate(candidate, 64))
	}
	return candidate, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// LookupAsync runs Lookup on the worker pool. The returned channel receives
// exactly one result and is then closed.
func (c *Client) LookupAsync(ctx context.Context) <-chan Result {
	ch := make(chan Result, 1)

	task := func() {
		defer close(ch)
		ch <- c.lookup(ctx)
	}
	if err := c.pool.Submit(task); err != nil {
		if errors.Is(err, ants.ErrPoolOverload) {
			err = ErrBusy
		}
		c.logger.WithError(err).Warn("public address lookup not scheduled")
		ch <- Result{Err: fmt.Errorf("failed to schedule lookup: %w", err)}
		close(ch)
	}
	return ch
}

func (c *Client) lookup(ctx context.Context) Result {
	ip, err := c.Lookup(ctx)
	if err != nil {
		c.logger.WithError(err).Warn("public address lookup failed")
		return Result{Err: err}
	}

	result := Result{IP: ip}
	if c.resolveHost {
		host, err := c.resolver.Resolve(ctx, ip)
		if err != nil {
			c.logger.WithError(err).WithField("ip", ip).Debug("reverse lookup failed")
		}
		result.Host = host
	}
	return result
}

// Release stops the worker pool.
func (c *Client) Release() {
	c.pool.Release()
}
