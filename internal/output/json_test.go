package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/kostyay/netpulse/internal/model"
)

func testSnapshot() *model.NetworkSnapshot {
	return &model.NetworkSnapshot{
		Timestamp: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
		Interfaces: []model.Interface{
			{Name: "eth0", Address: "192.168.1.20"},
			{Name: "eth0", Address: "fd00::1"},
			{Name: "wlan0", Address: "10.0.0.5"},
		},
		PublicIP:   "203.0.113.7",
		PublicHost: "host.example.net",
	}
}

func TestRenderJSON(t *testing.T) {
	counters := model.Counters{RecvBytes: 2000, SentBytes: 1000}

	var buf bytes.Buffer
	err := RenderJSON(&buf, testSnapshot(), counters)
	if err != nil {
		t.Fatalf("RenderJSON failed: %v", err)
	}

	var output JSONOutput
	if err := json.Unmarshal(buf.Bytes(), &output); err != nil {
		t.Fatalf("Failed to parse JSON output: %v", err)
	}

	if output.PublicIP != "203.0.113.7" {
		t.Errorf("PublicIP = %q, want 203.0.113.7", output.PublicIP)
	}
	if output.PublicHost != "host.example.net" {
		t.Errorf("PublicHost = %q, want host.example.net", output.PublicHost)
	}
	if len(output.Interfaces) != 3 {
		t.Fatalf("Interfaces count = %d, want 3", len(output.Interfaces))
	}
	if output.Interfaces[1].Address != "fd00::1" {
		t.Errorf("Interfaces[1].Address = %q, want fd00::1", output.Interfaces[1].Address)
	}
	if output.Counters.BytesRecv != 2000 || output.Counters.BytesSent != 1000 {
		t.Errorf("Counters = %+v, want recv 2000 sent 1000", output.Counters)
	}
	if !output.Timestamp.Equal(time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("Timestamp = %v", output.Timestamp)
	}
}

func TestRenderJSON_EmptySnapshot(t *testing.T) {
	var buf bytes.Buffer
	err := RenderJSON(&buf, &model.NetworkSnapshot{}, model.Counters{})
	if err != nil {
		t.Fatalf("RenderJSON failed: %v", err)
	}

	if !strings.Contains(buf.String(), `"interfaces": []`) {
		t.Errorf("empty interface list should render as [], got:\n%s", buf.String())
	}
	if strings.Contains(buf.String(), "public_host") {
		t.Error("empty public_host should be omitted")
	}
}

func TestRenderText(t *testing.T) {
	var buf bytes.Buffer
	err := RenderText(&buf, testSnapshot(), model.Counters{RecvBytes: 2048, SentBytes: 512})
	if err != nil {
		t.Fatalf("RenderText failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"203.0.113.7 (host.example.net)",
		"2.0 KB",
		"512 B",
		"INTERFACE",
		"wlan0",
		"10.0.0.5",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("RenderText output missing %q:\n%s", want, out)
		}
	}
}
