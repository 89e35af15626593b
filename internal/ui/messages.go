package ui

import (
	"time"

	"github.com/kostyay/netpulse/internal/output"
)

// TickMsg drives the live indicator animation.
type TickMsg time.Time

// TelemetryMsg carries one message received from the server.
type TelemetryMsg struct {
	Message output.Message
}

// DisconnectedMsg is sent once the server connection ends.
type DisconnectedMsg struct {
	Err error
}

// SentMsg reports the outcome of sending a command.
type SentMsg struct {
	Command output.Command
	Err     error
}
