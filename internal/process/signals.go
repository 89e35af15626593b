package process

import (
	"fmt"
	"strings"
	"syscall"
)

// SignalMap maps signal names to the signals a probe may be stopped with.
// Supports full names (SIGTERM), short names (TERM) and numbers.
var SignalMap = map[string]syscall.Signal{
	"SIGTERM": syscall.SIGTERM,
	"SIGKILL": syscall.SIGKILL,
	"SIGHUP":  syscall.SIGHUP,
	"SIGINT":  syscall.SIGINT,
	"SIGQUIT": syscall.SIGQUIT,
	"TERM":    syscall.SIGTERM,
	"KILL":    syscall.SIGKILL,
	"HUP":     syscall.SIGHUP,
	"INT":     syscall.SIGINT,
	"QUIT":    syscall.SIGQUIT,
	"1":       syscall.SIGHUP,
	"2":       syscall.SIGINT,
	"3":       syscall.SIGQUIT,
	"9":       syscall.SIGKILL,
	"15":      syscall.SIGTERM,
}

// ParseSignal resolves a case-insensitive signal name.
// An empty name yields SIGTERM.
func ParseSignal(name string) (syscall.Signal, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" {
		return syscall.SIGTERM, nil
	}
	sig, ok := SignalMap[name]
	if !ok {
		return 0, fmt.Errorf("unknown signal: %s", name)
	}
	return sig, nil
}
