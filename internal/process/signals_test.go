package process

import (
	"syscall"
	"testing"
)

func TestParseSignal_Names(t *testing.T) {
	tests := []struct {
		name string
		want syscall.Signal
	}{
		{"SIGTERM", syscall.SIGTERM},
		{"sigkill", syscall.SIGKILL},
		{"HUP", syscall.SIGHUP},
		{" int ", syscall.SIGINT},
		{"quit", syscall.SIGQUIT},
		{"9", syscall.SIGKILL},
		{"15", syscall.SIGTERM},
	}

	for _, tt := range tests {
		got, err := ParseSignal(tt.name)
		if err != nil {
			t.Errorf("ParseSignal(%q) error = %v", tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSignal(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestParseSignal_EmptyDefaultsToTerm(t *testing.T) {
	got, err := ParseSignal("")
	if err != nil {
		t.Fatalf("ParseSignal(\"\") error = %v", err)
	}
	if got != syscall.SIGTERM {
		t.Errorf("ParseSignal(\"\") = %v, want SIGTERM", got)
	}
}

func TestParseSignal_Unknown(t *testing.T) {
	for _, name := range []string{"SIGUSR3", "abc", "99"} {
		if _, err := ParseSignal(name); err == nil {
			t.Errorf("ParseSignal(%q) should fail", name)
		}
	}
}

func TestSignalMap_ShortAndLongAgree(t *testing.T) {
	for _, short := range []string{"TERM", "KILL", "HUP", "INT", "QUIT"} {
		if SignalMap[short] != SignalMap["SIG"+short] {
			t.Errorf("SignalMap[%s] = %v, SignalMap[SIG%s] = %v", short, SignalMap[short], short, SignalMap["SIG"+short])
		}
	}
}
