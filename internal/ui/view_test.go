package ui

import (
	"errors"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"

	"github.com/kostyay/netpulse/internal/output"
)

func connectedModel() Model {
	m, _ := createTestModel()
	m.width = 80
	m.apply(ping(10))
	m.apply(ping(30))
	m.apply(output.Message{Speed: &output.SpeedValue{RX: 2048, TX: 512}})
	m.apply(output.Message{
		Type:       output.TypeNetworkInfo,
		PublicIP:   "203.0.113.7",
		PublicHost: "host.example",
		Interfaces: []output.JSONInterface{
			{Name: "eth0", Address: "10.0.0.2"},
			{Name: "wlan0", Address: "192.168.1.5"},
		},
	})
	return m
}

func TestView_Connecting(t *testing.T) {
	m, _ := createTestModel()
	view := m.View()

	if !strings.Contains(view, "NETPULSE") {
		t.Error("header title missing")
	}
	if !strings.Contains(view, "Connecting to ws://127.0.0.1:3000") {
		t.Errorf("connecting line missing:\n%s", view)
	}
	if strings.Contains(view, "LATENCY") {
		t.Error("panels are hidden until the first message")
	}
}

func TestView_Telemetry(t *testing.T) {
	view := connectedModel().View()

	for _, want := range []string{
		"LIVE",
		"target 8.8.8.8",
		"LATENCY",
		"30.0 ms",
		"min 10.0 ms",
		"avg 20.0 ms",
		"max 30.0 ms",
		"▁█",
		"THROUGHPUT",
		"▼ 2.0 KB/s",
		"▲ 512 B/s",
		"NETWORK",
		"203.0.113.7 (host.example)",
		"eth0",
		"10.0.0.2",
		"wlan0",
		"192.168.1.5",
		"p Pause/resume ping",
	} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestView_WaitingStates(t *testing.T) {
	m, _ := createTestModel()
	m.apply(output.Message{Speed: &output.SpeedValue{}})
	view := m.View()

	if !strings.Contains(view, "waiting for replies") {
		t.Error("latency placeholder missing")
	}
	if !strings.Contains(view, "no network info yet") {
		t.Error("network placeholder missing")
	}
}

func TestView_UnknownPublicIP(t *testing.T) {
	m, _ := createTestModel()
	m.apply(output.Message{Type: output.TypeNetworkInfo, Interfaces: []output.JSONInterface{}})

	if !strings.Contains(m.View(), "unknown") {
		t.Error("empty public IP should render as unknown")
	}
}

func TestView_Paused(t *testing.T) {
	m := connectedModel()
	m.paused = true

	view := m.View()
	if !strings.Contains(view, "PAUSED") {
		t.Error("paused indicator missing")
	}
	if strings.Contains(view, "LIVE") {
		t.Error("live indicator shown while paused")
	}
}

func TestView_ProbeError(t *testing.T) {
	m := connectedModel()
	m.apply(output.Message{Type: output.TypeError, Message: "ping: unknown host nowhere"})

	if !strings.Contains(m.View(), "⚠ ping: unknown host nowhere") {
		t.Error("probe error missing from header")
	}
}

func TestView_Disconnected(t *testing.T) {
	m := connectedModel()
	m.disconnected = true
	m.disconnect = errors.New("connection reset")

	view := m.View()
	if !strings.Contains(view, "OFFLINE") {
		t.Error("offline indicator missing")
	}
	if !strings.Contains(view, "Disconnected from server: connection reset") {
		t.Errorf("disconnect reason missing:\n%s", view)
	}
}

func TestView_Editor(t *testing.T) {
	m := connectedModel()
	m, _ = update(t, m, keyRune('h'))

	view := m.View()
	if !strings.Contains(view, "host>") {
		t.Error("host prompt missing")
	}
	if !strings.Contains(view, "enter Apply") || !strings.Contains(view, "esc Cancel") {
		t.Error("editor keybindings missing")
	}
}

func TestView_Quitting(t *testing.T) {
	m := connectedModel()
	m.quitting = true

	if m.View() != "" {
		t.Error("view should be empty when quitting")
	}
}

func TestView_NarrowWidth(t *testing.T) {
	m := connectedModel()
	m.width = 10

	if !strings.Contains(m.View(), "NETPULSE") {
		t.Error("narrow terminals still render the header")
	}
}

func TestRenderFrameWithTitle(t *testing.T) {
	out := RenderFrameWithTitle("a\nb", "T", 20, 4)
	lines := strings.Split(out, "\n")

	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[0], " T ") {
		t.Errorf("title missing from top border: %q", lines[0])
	}
	for i, line := range lines {
		if w := lipgloss.Width(line); w != 20 {
			t.Errorf("line %d width = %d, want 20", i, w)
		}
	}
}
