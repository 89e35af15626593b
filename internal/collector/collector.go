package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/kostyay/netpulse/internal/model"
	"github.com/shirou/gopsutil/v3/net"
)

// CounterSource reads cumulative byte counters summed over non-loopback interfaces.
type CounterSource interface {
	Counters(ctx context.Context) (model.Counters, error)
}

// InterfaceSource enumerates local interface addresses.
type InterfaceSource interface {
	Interfaces(ctx context.Context) ([]model.Interface, error)
}

// Collector implements CounterSource and InterfaceSource on top of gopsutil.
type Collector struct {
	ioCounters func(ctx context.Context, pernic bool) ([]net.IOCountersStat, error)
	interfaces func(ctx context.Context) (net.InterfaceStatList, error)
	now        func() time.Time
}

// New returns a Collector reading from the operating system.
func New() *Collector {
	return &Collector{
		ioCounters: net.IOCountersWithContext,
		interfaces: net.InterfacesWithContext,
		now:        time.Now,
	}
}

// Counters sums received and sent bytes across all non-loopback interfaces.
func (c *Collector) Counters(ctx context.Context) (model.Counters, error) {
	stats, err := c.ioCounters(ctx, true)
	if err != nil {
		return model.Counters{}, fmt.Errorf("failed to read interface counters: %w", err)
	}

	counters := model.Counters{At: c.now()}
	for _, s := range stats {
		if isLoopbackName(s.Name) {
			continue
		}
		counters.RecvBytes += s.BytesRecv
		counters.SentBytes += s.BytesSent
	}
	return counters, nil
}

// Interfaces lists one entry per address of every non-loopback interface.
// Link-local IPv6 addresses are skipped. The result is sorted by name,
// IPv4 first.
func (c *Collector) Interfaces(ctx context.Context) ([]model.Interface, error) {
	ifaces, err := c.interfaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list interfaces: %w", err)
	}

	result := make([]model.Interface, 0, len(ifaces))
	for _, iface := range ifaces {
		if hasFlag(iface.Flags, "loopback") || isLoopbackName(iface.Name) {
			continue
		}
		for _, a := range iface.Addrs {
			addr := stripPrefixLen(a.Addr)
			if addr == "" || isLinkLocal(addr) {
				continue
			}
			result = append(result, model.Interface{Name: iface.Name, Address: addr})
		}
	}
	model.SortInterfaces(result)
	return result, nil
}

// CollectOnce gathers interfaces and counters in one call.
// This is a convenience function for one-shot data collection without goroutines.
func CollectOnce(ctx context.Context) (*model.NetworkSnapshot, model.Counters, error) {
	c := New()
	ifaces, err := c.Interfaces(ctx)
	if err != nil {
		return nil, model.Counters{}, err
	}

	snapshot := &model.NetworkSnapshot{
		Interfaces: ifaces,
		Timestamp:  c.now(),
	}

	counters, err := c.Counters(ctx)
	if err != nil {
		return snapshot, model.Counters{}, err
	}
	return snapshot, counters, nil
}
