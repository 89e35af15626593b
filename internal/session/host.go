package session

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// MaxHostLength is the longest accepted target host, in bytes.
const MaxHostLength = 253

// ErrInvalidHost is returned for a target host that cannot be handed to ping.
var ErrInvalidHost = errors.New("invalid host")

// ValidateHost trims host and checks that it is safe to pass as a command
// argument. It returns the trimmed host.
func ValidateHost(host string) (string, error) {
	host = strings.TrimSpace(host)
	switch {
	case host == "":
		return "", fmt.Errorf("%w: empty", ErrInvalidHost)
	case len(host) > MaxHostLength:
		return "", fmt.Errorf("%w: longer than %d bytes", ErrInvalidHost, MaxHostLength)
	case strings.HasPrefix(host, "-"):
		return "", fmt.Errorf("%w: %q looks like an option", ErrInvalidHost, host)
	}

	for _, r := range host {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return "", fmt.Errorf("%w: %q contains whitespace or control characters", ErrInvalidHost, host)
		}
	}
	return host, nil
}
