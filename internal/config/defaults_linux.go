//go:build linux

package config

// iproute2 prints one line per address, link or route change.
const defaultWatchCommand = "ip"

var defaultWatchArgs = []string{"monitor", "address", "link", "route"}
