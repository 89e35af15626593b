package model

import (
	"sort"
	"strings"
	"time"
)

// Placeholder values for NetworkSnapshot.PublicIP.
const (
	PublicIPUpdating = "Updating..."
	PublicIPError    = "Error"
)

// Counters holds cumulative interface byte counts at a point in time.
// Counts are monotonic and only reset to zero on reboot or interface reset.
type Counters struct {
	RecvBytes uint64
	SentBytes uint64
	At        time.Time
}

// Speed is a throughput rate in bytes per second.
type Speed struct {
	RX float64
	TX float64
}

// Rate computes the per-second rate between two counter readings.
// Each field is clamped to zero when the counter went backwards.
// ok is false when the elapsed time is zero or negative; no rate
// can be reported for such a pair.
func Rate(prev, cur Counters) (speed Speed, ok bool) {
	elapsed := cur.At.Sub(prev.At).Seconds()
	if elapsed <= 0 {
		return Speed{}, false
	}
	return Speed{
		RX: perSecond(prev.RecvBytes, cur.RecvBytes, elapsed),
		TX: perSecond(prev.SentBytes, cur.SentBytes, elapsed),
	}, true
}

func perSecond(prev, cur uint64, seconds float64) float64 {
	if cur < prev {
		return 0
	}
	return float64(cur-prev) / seconds
}

// Interface is a named local interface address.
type Interface struct {
	Name    string // e.g., eth0
	Address string // e.g., 192.168.1.20 or fd00::1
}

// NetworkSnapshot is the local interface list plus the public address.
type NetworkSnapshot struct {
	Interfaces []Interface
	PublicIP   string // address, PublicIPUpdating or PublicIPError
	PublicHost string // reverse DNS of PublicIP, empty if unknown
	Timestamp  time.Time
}

// WithPublicIP returns a copy of the snapshot carrying the given public address.
func (s NetworkSnapshot) WithPublicIP(ip, host string) NetworkSnapshot {
	out := s
	out.Interfaces = append([]Interface(nil), s.Interfaces...)
	out.PublicIP = ip
	out.PublicHost = host
	return out
}

// SortInterfaces orders interfaces by name, IPv4 addresses first within a name.
func SortInterfaces(ifaces []Interface) {
	sort.SliceStable(ifaces, func(i, j int) bool {
		if ifaces[i].Name != ifaces[j].Name {
			return ifaces[i].Name < ifaces[j].Name
		}
		return isIPv4(ifaces[i].Address) && !isIPv4(ifaces[j].Address)
	})
}

func isIPv4(addr string) bool {
	return !strings.Contains(addr, ":")
}
