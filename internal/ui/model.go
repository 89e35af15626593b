package ui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"

	"github.com/kostyay/netpulse/internal/model"
	"github.com/kostyay/netpulse/internal/output"
)

const (
	// AnimationInterval is the live indicator blink period.
	AnimationInterval = 500 * time.Millisecond
	// HistorySize is the number of latency samples kept for the sparkline.
	HistorySize = 120
	// SendTimeout bounds how long a command may take to write.
	SendTimeout = 2 * time.Second
)

// Stream is the server connection the dashboard reads from and commands.
type Stream interface {
	Messages() <-chan output.Message
	Err() error
	Send(ctx context.Context, cmd output.Command) error
}

// Model is the Bubble Tea model for the telemetry dashboard.
type Model struct {
	stream Stream
	target string
	url    string

	// Telemetry
	connected bool
	pings     []float64
	hasPing   bool
	speed     model.Speed
	network   model.NetworkSnapshot
	hasInfo   bool
	lastError string

	// State
	paused       bool
	editing      bool
	disconnected bool
	disconnect   error
	sendErr      error
	quitting     bool

	// Widgets
	input   textinput.Model
	spinner spinner.Model

	// Layout
	width          int
	height         int
	animationFrame int
}

// NewModel creates a dashboard for stream. host is the target the server
// pings by default and url is shown while connecting.
func NewModel(stream Stream, host, url string) Model {
	input := textinput.New()
	input.Placeholder = "host or address"
	input.Prompt = "host> "
	input.CharLimit = 253

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = StatsStyle()

	return Model{
		stream:  stream,
		target:  host,
		url:     url,
		input:   input,
		spinner: sp,
		width:   80,
		height:  24,
	}
}

// Target returns the host currently being pinged.
func (m Model) Target() string {
	return m.target
}

// Paused reports whether the latency probe is paused.
func (m Model) Paused() bool {
	return m.paused
}

// pushPing appends a sample, keeping at most HistorySize.
func (m *Model) pushPing(ms float64) {
	m.pings = append(m.pings, ms)
	if len(m.pings) > HistorySize {
		m.pings = m.pings[len(m.pings)-HistorySize:]
	}
	m.hasPing = true
}

// apply folds one server message into the model.
func (m *Model) apply(msg output.Message) {
	m.connected = true
	switch {
	case msg.Ping != nil:
		m.pushPing(*msg.Ping)
		m.lastError = ""
	case msg.Speed != nil:
		m.speed = model.Speed{RX: msg.Speed.RX, TX: msg.Speed.TX}
	case msg.Type == output.TypeError:
		m.lastError = msg.Message
	case msg.Type == output.TypeNetworkInfo:
		m.network = msg.Snapshot()
		m.hasInfo = true
	}
}
