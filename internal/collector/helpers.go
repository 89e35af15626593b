package collector

import (
	"net"
	"strings"
)

// isLoopbackName reports whether an interface name is a loopback device.
// Counter stats carry no flags, so the name is all there is.
func isLoopbackName(name string) bool {
	lower := strings.ToLower(name)
	if lower == "lo" || strings.HasPrefix(lower, "loopback") {
		return true
	}
	if strings.HasPrefix(lower, "lo") && len(lower) > 2 {
		for _, r := range lower[2:] {
			if r < '0' || r > '9' {
				return false
			}
		}
		return true
	}
	return false
}

// hasFlag checks if a flag is in the slice.
func hasFlag(flags []string, flag string) bool {
	for _, f := range flags {
		if f == flag {
			return true
		}
	}
	return false
}

// stripPrefixLen turns "192.168.1.2/24" into "192.168.1.2".
func stripPrefixLen(addr string) string {
	if idx := strings.IndexByte(addr, '/'); idx >= 0 {
		return addr[:idx]
	}
	return addr
}

// isLinkLocal reports whether addr is a link-local unicast address.
func isLinkLocal(addr string) bool {
	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}
	return ip.IsLinkLocalUnicast() && ip.To4() == nil
}
