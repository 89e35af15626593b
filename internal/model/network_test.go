package model

import (
	"testing"
	"time"
)

func TestRate_Basic(t *testing.T) {
	base := time.Unix(1000, 0)
	prev := Counters{RecvBytes: 1000, SentBytes: 500, At: base}
	cur := Counters{RecvBytes: 3000, SentBytes: 1500, At: base.Add(time.Second)}

	got, ok := Rate(prev, cur)
	if !ok {
		t.Fatal("Rate() ok = false, want true")
	}
	if got.RX != 2000 {
		t.Errorf("Rate().RX = %v, want 2000", got.RX)
	}
	if got.TX != 1000 {
		t.Errorf("Rate().TX = %v, want 1000", got.TX)
	}
}

func TestRate_FractionalElapsed(t *testing.T) {
	base := time.Unix(1000, 0)
	prev := Counters{RecvBytes: 0, SentBytes: 0, At: base}
	cur := Counters{RecvBytes: 500, SentBytes: 250, At: base.Add(500 * time.Millisecond)}

	got, ok := Rate(prev, cur)
	if !ok {
		t.Fatal("Rate() ok = false, want true")
	}
	if got.RX != 1000 || got.TX != 500 {
		t.Errorf("Rate() = %+v, want {RX:1000 TX:500}", got)
	}
}

func TestRate_CounterResetClampsToZero(t *testing.T) {
	base := time.Unix(1000, 0)
	prev := Counters{RecvBytes: 9000, SentBytes: 100, At: base}
	cur := Counters{RecvBytes: 10, SentBytes: 300, At: base.Add(time.Second)}

	got, ok := Rate(prev, cur)
	if !ok {
		t.Fatal("Rate() ok = false, want true")
	}
	if got.RX != 0 {
		t.Errorf("Rate().RX = %v, want 0 after counter reset", got.RX)
	}
	if got.TX != 200 {
		t.Errorf("Rate().TX = %v, want 200", got.TX)
	}
}

func TestRate_NeverNegative(t *testing.T) {
	base := time.Unix(1000, 0)
	values := []uint64{0, 10, 5, 5, 1 << 40, 3, 0, 7}
	prev := Counters{At: base}
	for i, v := range values {
		cur := Counters{RecvBytes: v, SentBytes: v / 2, At: base.Add(time.Duration(i+1) * time.Second)}
		got, ok := Rate(prev, cur)
		if !ok {
			t.Fatalf("step %d: Rate() ok = false", i)
		}
		if got.RX < 0 || got.TX < 0 {
			t.Errorf("step %d: Rate() = %+v, want non-negative", i, got)
		}
		prev = cur
	}
}

func TestRate_ZeroElapsed(t *testing.T) {
	at := time.Unix(1000, 0)
	_, ok := Rate(Counters{RecvBytes: 1, At: at}, Counters{RecvBytes: 5, At: at})
	if ok {
		t.Error("Rate() ok = true for zero elapsed time, want false")
	}
}

func TestRate_NegativeElapsed(t *testing.T) {
	at := time.Unix(1000, 0)
	_, ok := Rate(Counters{At: at}, Counters{RecvBytes: 5, At: at.Add(-time.Second)})
	if ok {
		t.Error("Rate() ok = true for negative elapsed time, want false")
	}
}

func TestWithPublicIP_CopiesInterfaces(t *testing.T) {
	orig := NetworkSnapshot{
		Interfaces: []Interface{{Name: "eth0", Address: "10.0.0.2"}},
		PublicIP:   PublicIPUpdating,
	}
	updated := orig.WithPublicIP("203.0.113.7", "host.example")
	updated.Interfaces[0].Address = "changed"

	if orig.Interfaces[0].Address != "10.0.0.2" {
		t.Error("WithPublicIP() should not share the interface slice")
	}
	if orig.PublicIP != PublicIPUpdating {
		t.Errorf("original PublicIP = %q, want %q", orig.PublicIP, PublicIPUpdating)
	}
	if updated.PublicIP != "203.0.113.7" || updated.PublicHost != "host.example" {
		t.Errorf("updated = %+v", updated)
	}
}

func TestSortInterfaces(t *testing.T) {
	ifaces := []Interface{
		{Name: "wlan0", Address: "192.168.1.5"},
		{Name: "eth0", Address: "fd00::2"},
		{Name: "eth0", Address: "10.0.0.2"},
	}
	SortInterfaces(ifaces)

	want := []Interface{
		{Name: "eth0", Address: "10.0.0.2"},
		{Name: "eth0", Address: "fd00::2"},
		{Name: "wlan0", Address: "192.168.1.5"},
	}
	for i := range want {
		if ifaces[i] != want[i] {
			t.Errorf("ifaces[%d] = %+v, want %+v", i, ifaces[i], want[i])
		}
	}
}
