package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kostyay/netpulse/internal/model"
	"github.com/shirou/gopsutil/v3/net"
)

// newTestCollector creates a Collector backed by canned gopsutil results.
func newTestCollector(stats []net.IOCountersStat, ifaces net.InterfaceStatList, err error) *Collector {
	at := time.Unix(1700000000, 0)
	return &Collector{
		ioCounters: func(ctx context.Context, pernic bool) ([]net.IOCountersStat, error) {
			return stats, err
		},
		interfaces: func(ctx context.Context) (net.InterfaceStatList, error) {
			return ifaces, err
		},
		now: func() time.Time { return at },
	}
}

func TestCounters_SumsNonLoopback(t *testing.T) {
	c := newTestCollector([]net.IOCountersStat{
		{Name: "lo", BytesRecv: 1 << 30, BytesSent: 1 << 30},
		{Name: "eth0", BytesRecv: 1000, BytesSent: 500},
		{Name: "wlan0", BytesRecv: 20, BytesSent: 10},
	}, nil, nil)

	got, err := c.Counters(context.Background())
	if err != nil {
		t.Fatalf("Counters() error = %v", err)
	}
	if got.RecvBytes != 1020 {
		t.Errorf("RecvBytes = %d, want 1020", got.RecvBytes)
	}
	if got.SentBytes != 510 {
		t.Errorf("SentBytes = %d, want 510", got.SentBytes)
	}
	if got.At.IsZero() {
		t.Error("At should be set")
	}
}

func TestCounters_Error(t *testing.T) {
	c := newTestCollector(nil, nil, errors.New("no /proc"))

	if _, err := c.Counters(context.Background()); err == nil {
		t.Error("Counters() should return the read error")
	}
}

func TestInterfaces_FiltersAndSorts(t *testing.T) {
	c := newTestCollector(nil, net.InterfaceStatList{
		{Name: "lo", Flags: []string{"up", "loopback"}, Addrs: net.InterfaceAddrList{{Addr: "127.0.0.1/8"}}},
		{Name: "wlan0", Flags: []string{"up"}, Addrs: net.InterfaceAddrList{{Addr: "192.168.1.5/24"}}},
		{Name: "eth0", Flags: []string{"up"}, Addrs: net.InterfaceAddrList{
			{Addr: "fe80::1/64"},
			{Addr: "fd00::2/64"},
			{Addr: "10.0.0.2/8"},
		}},
	}, nil)

	got, err := c.Interfaces(context.Background())
	if err != nil {
		t.Fatalf("Interfaces() error = %v", err)
	}

	want := []model.Interface{
		{Name: "eth0", Address: "10.0.0.2"},
		{Name: "eth0", Address: "fd00::2"},
		{Name: "wlan0", Address: "192.168.1.5"},
	}
	if len(got) != len(want) {
		t.Fatalf("Interfaces() = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Interfaces()[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestInterfaces_Error(t *testing.T) {
	c := newTestCollector(nil, nil, errors.New("denied"))

	if _, err := c.Interfaces(context.Background()); err == nil {
		t.Error("Interfaces() should return the enumeration error")
	}
}

func TestNew(t *testing.T) {
	c := New()
	if c == nil {
		t.Fatal("New() returned nil")
	}
	var _ CounterSource = c
	var _ InterfaceSource = c
}

func TestCollectOnce(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	snapshot, _, err := CollectOnce(ctx)
	if err != nil {
		t.Skipf("CollectOnce unavailable in this environment: %v", err)
	}
	if snapshot == nil {
		t.Fatal("Expected non-nil snapshot")
	}
	if snapshot.Timestamp.IsZero() {
		t.Error("Snapshot timestamp should be set")
	}
	for i, iface := range snapshot.Interfaces {
		if iface.Name == "" || iface.Address == "" {
			t.Errorf("Interfaces[%d] = %+v, want name and address", i, iface)
		}
	}
}
