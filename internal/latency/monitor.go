// Package latency runs a ping probe against a target host and reports
// round-trip times.
package latency

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/kostyay/netpulse/internal/logging"
	"github.com/kostyay/netpulse/internal/output"
	"github.com/kostyay/netpulse/internal/probe"
)

// Emitter receives outbound messages. Emit returns an error once the
// receiving channel is closed.
type Emitter interface {
	Emit(msg any) error
}

// FatalPredicate reports whether a probe output line means the target
// itself is unusable (for example, the host name does not resolve).
type FatalPredicate func(line string) bool

var fatalMarkers = []string{
	"Name or service not known",
	"Temporary failure in name resolution",
	"cannot resolve",
	"Unknown host",
	"nodename nor servname",
}

// DefaultFatalPredicate matches the resolver failures printed by ping on
// Linux and macOS.
func DefaultFatalPredicate(line string) bool {
	for _, marker := range fatalMarkers {
		if strings.Contains(line, marker) {
			return true
		}
	}
	return false
}

var rttPattern = regexp.MustCompile(`time[=<]\s*(\d+(?:\.\d+)?)\s*ms`)

// ParseRTT extracts the round-trip time in milliseconds from a ping line.
func ParseRTT(line string) (float64, bool) {
	m := rttPattern.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// State is the monitor lifecycle state.
type State int

const (
	Idle State = iota
	Running
	Retrying
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Retrying:
		return "retrying"
	default:
		return fmt.Sprintf("State(%d)", s)
	}
}

// Config configures a Monitor.
type Config struct {
	Command    string   // defaults to "ping"
	Args       []string // inserted before the host
	RetryDelay time.Duration
	MaxRetries int // consecutive failed restarts before giving up, 0 = unlimited
	Fatal      FatalPredicate
	StopSignal syscall.Signal
	StopGrace  time.Duration
	Logger     *log.Entry
}

// Monitor supervises one ping probe. All state is owned by a single
// goroutine started by Start; the exported methods post work to it.
type Monitor struct {
	cfg     Config
	emitter Emitter

	cmds chan func(ctx context.Context)
	quit chan struct{}
	done chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once

	// Owned by the loop goroutine.
	probe       *probe.Probe
	events      chan probe.Event
	state       State
	host        string
	retry       *time.Timer
	retryC      <-chan time.Time
	failures    int
	reportedGen uint64
}

// New creates a monitor. Call Start before any other method.
func New(spawner probe.Spawner, emitter Emitter, cfg Config) *Monitor {
	if cfg.Command == "" {
		cfg.Command = "ping"
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 2 * time.Second
	}
	if cfg.Fatal == nil {
		cfg.Fatal = DefaultFatalPredicate
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}

	events := make(chan probe.Event, 64)
	return &Monitor{
		cfg:     cfg,
		emitter: emitter,
		cmds:    make(chan func(ctx context.Context)),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
		events:  events,
		probe: probe.New(spawner, events, probe.Options{
			StopSignal: cfg.StopSignal,
			StopGrace:  cfg.StopGrace,
			Logger:     cfg.Logger,
		}),
	}
}

// Start launches the owner goroutine. The monitor shuts down when ctx is
// cancelled or Stop is called.
func (m *Monitor) Start(ctx context.Context) {
	m.startOnce.Do(func() {
		go m.loop(ctx)
	})
}

// StartSession stops the current probe, if any, and pings host.
// A pending restart is cancelled.
func (m *Monitor) StartSession(host string) {
	m.do(func(ctx context.Context) {
		m.start(ctx, host)
	})
}

// Pause stops the probe without scheduling a restart.
func (m *Monitor) Pause() {
	m.do(func(ctx context.Context) {
		m.cancelRetry()
		m.probe.Stop()
		m.state = Idle
		m.cfg.Logger.Debug("paused")
	})
}

// Resume restarts the probe against the last host.
func (m *Monitor) Resume() {
	m.do(func(ctx context.Context) {
		if m.host == "" {
			return
		}
		m.start(ctx, m.host)
	})
}

// State returns the current lifecycle state.
func (m *Monitor) State() State {
	state := Idle
	m.do(func(ctx context.Context) {
		state = m.state
	})
	return state
}

// Host returns the last host handed to StartSession.
func (m *Monitor) Host() string {
	var host string
	m.do(func(ctx context.Context) {
		host = m.host
	})
	return host
}

// Stop terminates the probe and the owner goroutine. It returns once the
// probe process has been reaped. Stop is idempotent.
func (m *Monitor) Stop() {
	m.startOnce.Do(func() { close(m.done) })
	m.stopOnce.Do(func() { close(m.quit) })
	<-m.done
}

// do runs fn on the owner goroutine and waits for it to finish.
// It is a no-op after the monitor has stopped.
func (m *Monitor) do(fn func(ctx context.Context)) {
	finished := make(chan struct{})
	select {
	case m.cmds <- func(ctx context.Context) {
		defer close(finished)
		fn(ctx)
	}:
	case <-m.done:
		return
	}
	select {
	case <-finished:
	case <-m.done:
	}
}

func (m *Monitor) loop(ctx context.Context) {
	defer close(m.done)
	defer m.shutdown()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.quit:
			return
		case fn := <-m.cmds:
			fn(ctx)
		case ev := <-m.events:
			m.handleEvent(ev)
		case <-m.retryC:
			m.retry, m.retryC = nil, nil
			m.cfg.Logger.WithField("host", m.host).Info("restarting ping")
			m.start(ctx, m.host)
		}
	}
}

func (m *Monitor) shutdown() {
	m.cancelRetry()
	m.probe.Stop()
	m.state = Idle
}

func (m *Monitor) start(ctx context.Context, host string) {
	m.cancelRetry()
	m.host = host

	args := append(append([]string(nil), m.cfg.Args...), host)
	gen, err := m.probe.Start(ctx, m.cfg.Command, args...)
	if err != nil {
		m.state = Idle
		m.cfg.Logger.WithError(err).WithField("host", host).Error("failed to start ping")
		m.emit(output.NewError(fmt.Sprintf("failed to start %s: %v", m.cfg.Command, err)))
		return
	}

	m.state = Running
	m.cfg.Logger.WithFields(log.Fields{"host": host, "generation": gen}).Debug("ping started")
}

func (m *Monitor) handleEvent(ev probe.Event) {
	if !m.probe.Current(ev.Generation) {
		return
	}

	switch ev.Kind {
	case probe.EventLine:
		m.handleLine(ev)
	case probe.EventExit:
		m.handleExit(ev)
	}
}

func (m *Monitor) handleLine(ev probe.Event) {
	if ev.Stream == probe.Stdout {
		if rtt, ok := ParseRTT(ev.Text); ok {
			m.failures = 0
			m.emit(output.NewPing(rtt))
			return
		}
	}

	if ev.Stream == probe.Stderr {
		m.cfg.Logger.WithField("host", m.host).Debugf("ping stderr: %s", ev.Text)
	}

	if m.cfg.Fatal(ev.Text) && m.reportedGen != ev.Generation {
		m.reportedGen = ev.Generation
		m.emit(output.NewError(strings.TrimSpace(ev.Text)))
	}
}

func (m *Monitor) handleExit(ev probe.Event) {
	// Release the finished instance so its generation is no longer current.
	m.probe.Stop()

	if ev.Err == nil {
		m.state = Idle
		m.cfg.Logger.WithField("host", m.host).Info("ping exited")
		return
	}

	m.failures++
	logger := m.cfg.Logger.WithError(ev.Err).WithFields(log.Fields{
		"host":     m.host,
		"failures": m.failures,
		"exitCode": probe.ExitCode(ev.Err),
	})

	if m.cfg.MaxRetries > 0 && m.failures > m.cfg.MaxRetries {
		m.state = Idle
		logger.Error("ping keeps failing, giving up")
		m.emit(output.NewError(fmt.Sprintf("ping %s failed %d times, giving up", m.host, m.failures)))
		return
	}

	logger.Warnf("ping exited, retrying in %s", m.cfg.RetryDelay)
	m.state = Retrying
	m.retry = time.NewTimer(m.cfg.RetryDelay)
	m.retryC = m.retry.C
}

func (m *Monitor) cancelRetry() {
	if m.retry == nil {
		return
	}
	m.retry.Stop()
	m.retry, m.retryC = nil, nil
}

func (m *Monitor) emit(msg any) {
	if err := m.emitter.Emit(msg); err != nil {
		m.cfg.Logger.WithError(err).Debug("dropping message")
	}
}
