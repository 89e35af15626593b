package output

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/kostyay/netpulse/internal/model"
)

func marshal(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	return string(data)
}

func TestOutboundWireFormat(t *testing.T) {
	tests := []struct {
		name string
		msg  any
		want string
	}{
		{"ping", NewPing(23.4), `{"ping":23.4}`},
		{"error", NewError("ping: unknown host"), `{"type":"error","message":"ping: unknown host"}`},
		{"speed", NewSpeed(model.Speed{RX: 2000, TX: 1000}), `{"speed":{"rx":2000,"tx":1000}}`},
		{
			"networkInfo",
			NewNetworkInfo(model.NetworkSnapshot{
				Interfaces: []model.Interface{{Name: "eth0", Address: "192.168.1.20"}},
				PublicIP:   model.PublicIPUpdating,
			}),
			`{"type":"networkInfo","publicIp":"Updating...","interfaces":[{"name":"eth0","address":"192.168.1.20"}]}`,
		},
		{
			"networkInfo with host",
			NewNetworkInfo(model.NetworkSnapshot{PublicIP: "203.0.113.7", PublicHost: "h.example"}),
			`{"type":"networkInfo","publicIp":"203.0.113.7","interfaces":[],"publicHost":"h.example"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := marshal(t, tt.msg); got != tt.want {
				t.Errorf("json = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDecodeMessage(t *testing.T) {
	msg, err := DecodeMessage([]byte(`{"ping":12.5}`))
	if err != nil {
		t.Fatalf("DecodeMessage failed: %v", err)
	}
	if msg.Ping == nil || *msg.Ping != 12.5 {
		t.Errorf("Ping = %v, want 12.5", msg.Ping)
	}

	msg, err = DecodeMessage([]byte(`{"speed":{"rx":1,"tx":2}}`))
	if err != nil {
		t.Fatalf("DecodeMessage failed: %v", err)
	}
	if msg.Speed == nil || msg.Speed.RX != 1 || msg.Speed.TX != 2 {
		t.Errorf("Speed = %+v, want rx 1 tx 2", msg.Speed)
	}

	msg, err = DecodeMessage([]byte(`{"type":"networkInfo","publicIp":"Error","interfaces":[{"name":"lo1","address":"10.1.1.1"}]}`))
	if err != nil {
		t.Fatalf("DecodeMessage failed: %v", err)
	}
	snap := msg.Snapshot()
	if snap.PublicIP != model.PublicIPError || len(snap.Interfaces) != 1 || snap.Interfaces[0].Name != "lo1" {
		t.Errorf("Snapshot() = %+v", snap)
	}

	// A zero ping is still a ping.
	msg, err = DecodeMessage([]byte(`{"ping":0}`))
	if err != nil || msg.Ping == nil || *msg.Ping != 0 {
		t.Errorf("DecodeMessage(ping 0) = %+v, %v", msg, err)
	}
}

func TestDecodeMessage_Invalid(t *testing.T) {
	if _, err := DecodeMessage([]byte(`not json`)); err == nil {
		t.Error("DecodeMessage should fail on malformed input")
	}
	if _, err := DecodeMessage([]byte(`{"foo":1}`)); !errors.Is(err, ErrUnknownMessage) {
		t.Errorf("DecodeMessage error = %v, want ErrUnknownMessage", err)
	}
}

func TestDecodeCommand(t *testing.T) {
	tests := []struct {
		input   string
		want    Command
		wantErr error
	}{
		{`{"type":"updateHost","host":"1.1.1.1"}`, UpdateHost("1.1.1.1"), nil},
		{`{"type":"pause"}`, Pause(), nil},
		{`{"type":"resume"}`, Resume(), nil},
		{`{"type":"reboot"}`, Command{}, ErrUnknownCommand},
		{`{}`, Command{}, ErrUnknownCommand},
	}

	for _, tt := range tests {
		got, err := DecodeCommand([]byte(tt.input))
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("DecodeCommand(%s) error = %v, want %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("DecodeCommand(%s) = %+v, want %+v", tt.input, got, tt.want)
		}
	}
}

func TestDecodeCommand_Malformed(t *testing.T) {
	for _, input := range []string{`{`, `[]`, `"pause"`, ``} {
		if _, err := DecodeCommand([]byte(input)); err == nil {
			t.Errorf("DecodeCommand(%q) should fail", input)
		}
	}
}
