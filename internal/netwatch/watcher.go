// Package netwatch reports the local interface list and public address,
// refreshing both whenever the routing table or an interface changes.
//
// Change notifications come from a long-running command (ip monitor on
// Linux, route monitor on macOS). Bursts of notifications are debounced
// into a single refresh. Each refresh emits a snapshot with a placeholder
// public address immediately, followed by the looked-up address once it
// arrives. Lookup results from a superseded refresh are discarded.
package netwatch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/kostyay/netpulse/internal/collector"
	"github.com/kostyay/netpulse/internal/logging"
	"github.com/kostyay/netpulse/internal/model"
	"github.com/kostyay/netpulse/internal/output"
	"github.com/kostyay/netpulse/internal/probe"
	"github.com/kostyay/netpulse/internal/publicip"
)

// Emitter receives outbound messages.
type Emitter interface {
	Emit(msg any) error
}

// Lookuper resolves the public address asynchronously. The returned channel
// yields one result.
type Lookuper interface {
	LookupAsync(ctx context.Context) <-chan publicip.Result
}

var errLookupAborted = errors.New("lookup aborted")

// Config configures a Watcher.
type Config struct {
	Command    string // change-event command, empty disables change tracking
	Args       []string
	Debounce   time.Duration // defaults to 2s
	RetryDelay time.Duration // delay before restarting the command, defaults to 2s
	StopSignal syscall.Signal
	StopGrace  time.Duration
	Logger     *log.Entry
}

type lookupResult struct {
	seq    uint64
	result publicip.Result
}

// Watcher emits networkInfo messages. All state is owned by one goroutine.
type Watcher struct {
	interfaces collector.InterfaceSource
	lookuper   Lookuper
	emitter    Emitter
	cfg        Config

	quit      chan struct{}
	done      chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once

	// Owned by the loop goroutine.
	probe        *probe.Probe
	events       chan probe.Event
	lookups      chan lookupResult
	debounce     *time.Timer
	debounceC    <-chan time.Time
	retry        *time.Timer
	retryC       <-chan time.Time
	lookupSeq    uint64
	lookupCancel context.CancelFunc
	snapshot     model.NetworkSnapshot
}

// New creates a watcher.
func New(spawner probe.Spawner, interfaces collector.InterfaceSource, lookuper Lookuper, emitter Emitter, cfg Config) *Watcher {
	if cfg.Debounce <= 0 {
		cfg.Debounce = 2 * time.Second
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 2 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}

	events := make(chan probe.Event, 64)
	return &Watcher{
		interfaces: interfaces,
		lookuper:   lookuper,
		emitter:    emitter,
		cfg:        cfg,
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		events:     events,
		lookups:    make(chan lookupResult),
		probe: probe.New(spawner, events, probe.Options{
			StopSignal: cfg.StopSignal,
			StopGrace:  cfg.StopGrace,
			Logger:     cfg.Logger,
		}),
	}
}

// Start emits the initial snapshot, starts the first public address lookup
// and spawns the change-event command.
func (w *Watcher) Start(ctx context.Context) {
	w.startOnce.Do(func() {
		go w.loop(ctx)
	})
}

// Stop cancels pending timers and lookups and terminates the change-event
// command. It is idempotent.
func (w *Watcher) Stop() {
	w.startOnce.Do(func() { close(w.done) })
	w.stopOnce.Do(func() { close(w.quit) })
	<-w.done
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)
	defer w.shutdown()

	w.refresh(ctx)
	w.startProbe(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.quit:
			return
		case ev := <-w.events:
			w.handleEvent(ev)
		case <-w.debounceC:
			w.debounce, w.debounceC = nil, nil
			w.cfg.Logger.Debug("network changed, refreshing")
			w.refresh(ctx)
		case <-w.retryC:
			w.retry, w.retryC = nil, nil
			w.startProbe(ctx)
		case lr := <-w.lookups:
			w.handleLookup(lr)
		}
	}
}

func (w *Watcher) shutdown() {
	stopTimer(w.debounce)
	stopTimer(w.retry)
	w.debounce, w.debounceC = nil, nil
	w.retry, w.retryC = nil, nil
	w.probe.Stop()
	if w.lookupCancel != nil {
		w.lookupCancel()
	}
}

func (w *Watcher) startProbe(ctx context.Context) {
	if w.cfg.Command == "" {
		w.cfg.Logger.Warn("no change-event command configured, network info will not refresh")
		return
	}

	gen, err := w.probe.Start(ctx, w.cfg.Command, w.cfg.Args...)
	if err != nil {
		w.cfg.Logger.WithError(err).Errorf("failed to start %s", w.cfg.Command)
		w.scheduleRetry()
		return
	}
	w.cfg.Logger.WithField("generation", gen).Debugf("watching %s", w.cfg.Command)
}

func (w *Watcher) handleEvent(ev probe.Event) {
	if !w.probe.Current(ev.Generation) {
		return
	}

	switch ev.Kind {
	case probe.EventLine:
		if strings.TrimSpace(ev.Text) == "" {
			return
		}
		w.resetDebounce()
	case probe.EventExit:
		w.probe.Stop()
		w.cfg.Logger.WithError(ev.Err).WithField("exitCode", probe.ExitCode(ev.Err)).Warnf("%s exited, restarting in %s", w.cfg.Command, w.cfg.RetryDelay)
		w.scheduleRetry()
	}
}

func (w *Watcher) resetDebounce() {
	if w.debounce == nil {
		w.debounce = time.NewTimer(w.cfg.Debounce)
		w.debounceC = w.debounce.C
		return
	}
	w.debounce.Reset(w.cfg.Debounce)
}

func (w *Watcher) scheduleRetry() {
	stopTimer(w.retry)
	w.retry = time.NewTimer(w.cfg.RetryDelay)
	w.retryC = w.retry.C
}

// refresh re-reads the interfaces, emits a placeholder snapshot and starts
// a lookup that supersedes any lookup still in flight.
func (w *Watcher) refresh(ctx context.Context) {
	ifaces, err := w.interfaces.Interfaces(ctx)
	if err != nil {
		w.cfg.Logger.WithError(err).Warn("failed to list interfaces, keeping previous list")
		ifaces = w.snapshot.Interfaces
	}

	w.snapshot = model.NetworkSnapshot{
		Interfaces: ifaces,
		PublicIP:   model.PublicIPUpdating,
		Timestamp:  time.Now(),
	}
	w.emit(w.snapshot)
	w.startLookup(ctx)
}

func (w *Watcher) startLookup(ctx context.Context) {
	if w.lookupCancel != nil {
		w.lookupCancel()
	}
	w.lookupSeq++
	seq := w.lookupSeq

	lookupCtx, cancel := context.WithCancel(ctx)
	w.lookupCancel = cancel
	ch := w.lookuper.LookupAsync(lookupCtx)

	go func() {
		result, ok := <-ch
		if !ok {
			result = publicip.Result{Err: errLookupAborted}
		}
		select {
		case w.lookups <- lookupResult{seq: seq, result: result}:
		case <-lookupCtx.Done():
		}
	}()
}

func (w *Watcher) handleLookup(lr lookupResult) {
	if lr.seq != w.lookupSeq {
		w.cfg.Logger.WithField("seq", lr.seq).Debug("dropping superseded lookup")
		return
	}
	w.lookupCancel()
	w.lookupCancel = nil

	if lr.result.Err != nil {
		w.emit(w.snapshot.WithPublicIP(model.PublicIPError, ""))
		return
	}
	w.emit(w.snapshot.WithPublicIP(lr.result.IP, lr.result.Host))
}

func (w *Watcher) emit(snapshot model.NetworkSnapshot) {
	if err := w.emitter.Emit(output.NewNetworkInfo(snapshot)); err != nil {
		w.cfg.Logger.WithError(err).Debug("dropping network info")
	}
}

func stopTimer(t *time.Timer) {
	if t != nil {
		t.Stop()
	}
}
