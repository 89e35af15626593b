package output

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Inbound command types.
const (
	CommandUpdateHost = "updateHost"
	CommandPause      = "pause"
	CommandResume     = "resume"
)

var (
	// ErrUnknownCommand is returned for a well-formed frame with an unknown type.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrUnknownMessage is returned for an outbound frame of no known shape.
	ErrUnknownMessage = errors.New("unknown message")
)

// Command is an inbound control command.
type Command struct {
	Type string `json:"type"`
	Host string `json:"host,omitempty"`
}

// UpdateHost builds an updateHost command.
func UpdateHost(host string) Command {
	return Command{Type: CommandUpdateHost, Host: host}
}

// Pause builds a pause command.
func Pause() Command {
	return Command{Type: CommandPause}
}

// Resume builds a resume command.
func Resume() Command {
	return Command{Type: CommandResume}
}

// DecodeCommand parses an inbound frame.
func DecodeCommand(data []byte) (Command, error) {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return Command{}, fmt.Errorf("malformed command: %w", err)
	}
	switch cmd.Type {
	case CommandUpdateHost, CommandPause, CommandResume:
		return cmd, nil
	default:
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Type)
	}
}
