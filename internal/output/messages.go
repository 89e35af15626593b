package output

import (
	"encoding/json"
	"fmt"

	"github.com/kostyay/netpulse/internal/model"
)

// Message type tags used on the wire.
const (
	TypeError       = "error"
	TypeNetworkInfo = "networkInfo"
)

// PingMessage carries one latency sample in milliseconds.
type PingMessage struct {
	Ping float64 `json:"ping"`
}

// ErrorMessage reports a fatal probe error to the client.
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// SpeedValue is a throughput rate in bytes per second.
type SpeedValue struct {
	RX float64 `json:"rx"`
	TX float64 `json:"tx"`
}

// SpeedMessage carries one throughput sample.
type SpeedMessage struct {
	Speed SpeedValue `json:"speed"`
}

// JSONInterface is an interface address on the wire.
type JSONInterface struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// NetworkInfoMessage carries the interface list and public address.
type NetworkInfoMessage struct {
	Type       string          `json:"type"`
	PublicIP   string          `json:"publicIp"`
	Interfaces []JSONInterface `json:"interfaces"`
	PublicHost string          `json:"publicHost,omitempty"`
}

// NewPing builds a ping message.
func NewPing(ms float64) PingMessage {
	return PingMessage{Ping: ms}
}

// NewError builds an error message.
func NewError(message string) ErrorMessage {
	return ErrorMessage{Type: TypeError, Message: message}
}

// NewSpeed builds a speed message.
func NewSpeed(s model.Speed) SpeedMessage {
	return SpeedMessage{Speed: SpeedValue{RX: s.RX, TX: s.TX}}
}

// NewNetworkInfo builds a networkInfo message from a snapshot.
// Interfaces is never null on the wire.
func NewNetworkInfo(s model.NetworkSnapshot) NetworkInfoMessage {
	msg := NetworkInfoMessage{
		Type:       TypeNetworkInfo,
		PublicIP:   s.PublicIP,
		Interfaces: make([]JSONInterface, 0, len(s.Interfaces)),
		PublicHost: s.PublicHost,
	}
	for _, iface := range s.Interfaces {
		msg.Interfaces = append(msg.Interfaces, JSONInterface{Name: iface.Name, Address: iface.Address})
	}
	return msg
}

// Message is any outbound message as seen by a client. Exactly one of
// Ping, Speed or Type is set.
type Message struct {
	Ping       *float64        `json:"ping,omitempty"`
	Speed      *SpeedValue     `json:"speed,omitempty"`
	Type       string          `json:"type,omitempty"`
	Message    string          `json:"message,omitempty"`
	PublicIP   string          `json:"publicIp,omitempty"`
	PublicHost string          `json:"publicHost,omitempty"`
	Interfaces []JSONInterface `json:"interfaces,omitempty"`
}

// DecodeMessage parses an outbound message frame.
func DecodeMessage(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("failed to decode message: %w", err)
	}
	if msg.Ping == nil && msg.Speed == nil && msg.Type == "" {
		return Message{}, fmt.Errorf("%w: %s", ErrUnknownMessage, data)
	}
	return msg, nil
}

// Snapshot converts a networkInfo message back into a snapshot.
func (m Message) Snapshot() model.NetworkSnapshot {
	snap := model.NetworkSnapshot{
		PublicIP:   m.PublicIP,
		PublicHost: m.PublicHost,
		Interfaces: make([]model.Interface, 0, len(m.Interfaces)),
	}
	for _, iface := range m.Interfaces {
		snap.Interfaces = append(snap.Interfaces, model.Interface{Name: iface.Name, Address: iface.Address})
	}
	return snap
}
