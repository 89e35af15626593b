// Package probe runs an external command and streams its output as events
// tagged with a generation number.
//
// A Probe is owned by a single goroutine. Reader goroutines never touch probe
// state: they push events into the owner's channel, and the owner drops any
// event whose generation is no longer current. Stop bumps the generation
// before terminating the process, so output still in flight from a stopped
// instance is ignored even when it was queued before the stop.
package probe

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/kostyay/netpulse/internal/logging"
)

// Stream identifies which output stream a line came from.
type Stream int

const (
	Stdout Stream = iota
	Stderr
)

// String returns the stream name.
func (s Stream) String() string {
	switch s {
	case Stdout:
		return "stdout"
	case Stderr:
		return "stderr"
	default:
		return fmt.Sprintf("Stream(%d)", s)
	}
}

// EventKind distinguishes output lines from process exit.
type EventKind int

const (
	EventLine EventKind = iota
	EventExit
)

// Event is a line of output or the exit of a probe instance.
type Event struct {
	Generation uint64
	Kind       EventKind
	Stream     Stream // EventLine only
	Text       string // EventLine only, without the trailing newline
	Err        error  // EventExit only, nil on a clean exit
}

// Options configures how a probe instance is terminated.
type Options struct {
	StopSignal syscall.Signal // defaults to SIGTERM
	StopGrace  time.Duration  // time to wait before SIGKILL, defaults to 2s
	Logger     *log.Entry
}

// ErrNoCommand is returned by Start when no command name is given.
var ErrNoCommand = errors.New("no command configured")

// Probe supervises at most one running process at a time.
// It is not safe for concurrent use.
type Probe struct {
	spawner Spawner
	events  chan<- Event
	opts    Options

	gen  uint64
	inst *instance
}

type instance struct {
	gen    uint64
	proc   Process
	cancel context.CancelFunc
	done   chan struct{} // closed once the process has been waited on
}

// New creates a probe that delivers events to the given channel.
func New(spawner Spawner, events chan<- Event, opts Options) *Probe {
	if opts.StopSignal == 0 {
		opts.StopSignal = syscall.SIGTERM
	}
	if opts.StopGrace <= 0 {
		opts.StopGrace = 2 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	return &Probe{spawner: spawner, events: events, opts: opts}
}

// Start stops any running instance and spawns a new one.
// It returns the generation tagging every event of the new instance.
func (p *Probe) Start(ctx context.Context, name string, args ...string) (uint64, error) {
	p.Stop()
	p.gen++
	gen := p.gen

	if name == "" {
		return gen, ErrNoCommand
	}

	proc, err := p.spawner.Spawn(ctx, name, args...)
	if err != nil {
		return gen, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	inst := &instance{
		gen:    gen,
		proc:   proc,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	p.inst = inst

	p.opts.Logger.WithFields(log.Fields{
		"pid":        proc.Pid(),
		"generation": gen,
	}).Debugf("started %s %s", name, strings.Join(args, " "))

	go p.run(runCtx, inst)
	return gen, nil
}

// Stop terminates the running instance, if any, and waits until it has been
// reaped. Termination errors are swallowed since the process may already
// have exited. Stop is idempotent.
func (p *Probe) Stop() {
	inst := p.inst
	if inst == nil {
		return
	}
	p.inst = nil
	p.gen++
	inst.cancel()

	select {
	case <-inst.done:
		return
	default:
	}

	_ = inst.proc.Signal(p.opts.StopSignal)
	if waitDone(inst.done, p.opts.StopGrace) {
		return
	}

	p.opts.Logger.WithField("pid", inst.proc.Pid()).
		Warnf("probe did not exit within %s, killing", p.opts.StopGrace)
	_ = inst.proc.Kill()
	if !waitDone(inst.done, p.opts.StopGrace) {
		p.opts.Logger.WithField("pid", inst.proc.Pid()).Error("probe still running after kill")
	}
}

// Current reports whether gen belongs to the running instance.
func (p *Probe) Current(gen uint64) bool {
	return p.inst != nil && p.inst.gen == gen
}

// Running reports whether an instance has been started and not stopped.
func (p *Probe) Running() bool {
	return p.inst != nil
}

func (p *Probe) run(ctx context.Context, inst *instance) {
	var wg sync.WaitGroup
	wg.Add(2)
	go p.scan(ctx, &wg, inst.gen, Stdout, inst.proc.Stdout())
	go p.scan(ctx, &wg, inst.gen, Stderr, inst.proc.Stderr())

	scanned := make(chan struct{})
	go func() {
		wg.Wait()
		close(scanned)
	}()

	// When stopping, the remaining output is unwanted and waiting lets
	// the pipes close even if a grandchild still holds them open.
	select {
	case <-scanned:
	case <-ctx.Done():
	}

	err := inst.proc.Wait()
	close(inst.done)
	p.send(ctx, Event{Generation: inst.gen, Kind: EventExit, Err: err})
}

func (p *Probe) scan(ctx context.Context, wg *sync.WaitGroup, gen uint64, stream Stream, r io.Reader) {
	defer wg.Done()
	if r == nil {
		return
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		text := strings.TrimRight(scanner.Text(), "\r")
		// Keep draining after a stop so the process never blocks on a full pipe.
		p.send(ctx, Event{Generation: gen, Kind: EventLine, Stream: stream, Text: text})
	}
}

// send delivers ev unless the instance has been stopped.
func (p *Probe) send(ctx context.Context, ev Event) bool {
	if ctx.Err() != nil {
		return false
	}
	select {
	case p.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func waitDone(done <-chan struct{}, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}
