// Package session wires the latency, throughput and network probes of one
// client connection together.
//
// A Session owns one connection. Outbound messages from every probe go
// through a single Outbox, so each frame is written whole and frames from
// one producer keep their order. Inbound frames are control commands that
// retarget or pause the latency probe.
package session

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"github.com/kostyay/netpulse/internal/collector"
	"github.com/kostyay/netpulse/internal/latency"
	"github.com/kostyay/netpulse/internal/logging"
	"github.com/kostyay/netpulse/internal/netwatch"
	"github.com/kostyay/netpulse/internal/output"
	"github.com/kostyay/netpulse/internal/probe"
	"github.com/kostyay/netpulse/internal/throughput"
)

// Conn is a duplex message channel carrying one JSON text frame per message.
type Conn interface {
	Writer
	ReadMessage(ctx context.Context) ([]byte, error)
	Close(reason string) error
}

// Deps are the collaborators shared by every session.
type Deps struct {
	Spawner    probe.Spawner
	Counters   collector.CounterSource
	Interfaces collector.InterfaceSource
	Lookup     netwatch.Lookuper
}

// Config configures every session created by a Coordinator.
type Config struct {
	DefaultHost string
	QueueLimit  int
	Latency     latency.Config
	Throughput  throughput.Config
	Watch       netwatch.Config
	Logger      *log.Entry
}

// Session is the server side of one client connection.
type Session struct {
	id     uint64
	conn   Conn
	logger *log.Entry

	outbox  *Outbox
	latency *latency.Monitor
	sampler *throughput.Sampler
	watcher *netwatch.Watcher

	ctx    context.Context
	cancel context.CancelFunc

	closeOnce sync.Once
	closed    chan struct{}

	// Only touched by the read loop.
	host string
}

// New creates a session for conn. Nothing runs until Run is called.
func New(id uint64, conn Conn, deps Deps, cfg Config) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	logger = logger.WithField("session", id)

	latencyCfg := cfg.Latency
	latencyCfg.Logger = logger.WithField("component", "latency")
	throughputCfg := cfg.Throughput
	throughputCfg.Logger = logger.WithField("component", "throughput")
	watchCfg := cfg.Watch
	watchCfg.Logger = logger.WithField("component", "netwatch")

	outbox := NewOutbox(conn, cfg.QueueLimit, logger.WithField("component", "outbox"))
	ctx, cancel := context.WithCancel(context.Background())

	return &Session{
		id:      id,
		conn:    conn,
		logger:  logger,
		outbox:  outbox,
		latency: latency.New(deps.Spawner, outbox, latencyCfg),
		sampler: throughput.New(deps.Counters, outbox, throughputCfg),
		watcher: netwatch.New(deps.Spawner, deps.Interfaces, deps.Lookup, outbox, watchCfg),
		ctx:     ctx,
		cancel:  cancel,
		closed:  make(chan struct{}),
		host:    cfg.DefaultHost,
	}
}

// ID returns the session id.
func (s *Session) ID() uint64 {
	return s.id
}

// Run starts the probes and reads commands until the connection fails,
// ctx is cancelled or Close is called. It always closes the session
// before returning. A client hanging up (io.EOF) is not an error.
func (s *Session) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, s.cancel)
	defer stop()
	defer s.Close()

	s.logger.Info("session opened")
	go s.outbox.Run(s.ctx)

	s.latency.Start(s.ctx)
	s.latency.StartSession(s.host)
	s.sampler.Start(s.ctx)
	s.watcher.Start(s.ctx)

	// Tear down as soon as the writer gives up on the connection.
	go func() {
		select {
		case <-s.outbox.Done():
			s.cancel()
		case <-s.closed:
		}
	}()

	for {
		data, err := s.conn.ReadMessage(s.ctx)
		if err != nil {
			if s.ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			s.logger.WithError(err).Debug("read failed")
			return err
		}
		s.handle(data)
	}
}

func (s *Session) handle(data []byte) {
	cmd, err := output.DecodeCommand(data)
	if err != nil {
		s.logger.WithError(err).Warn("ignoring inbound message")
		return
	}

	switch cmd.Type {
	case output.CommandUpdateHost:
		host, err := ValidateHost(cmd.Host)
		if err != nil {
			s.logger.WithError(err).Warn("ignoring updateHost")
			return
		}
		s.host = host
		s.logger.WithField("host", host).Info("target host changed")
		s.latency.StartSession(host)
	case output.CommandPause:
		s.logger.Info("paused")
		s.latency.Pause()
	case output.CommandResume:
		s.logger.Info("resumed")
		s.latency.Resume()
	}
}

// Close stops every probe and closes the connection. It is idempotent and
// safe to call concurrently with Run.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.cancel()
		s.latency.Stop()
		s.sampler.Stop()
		s.watcher.Stop()
		s.outbox.Close()
		if err := s.conn.Close("session closed"); err != nil {
			s.logger.WithError(err).Debug("close failed")
		}
		s.logger.Info("session closed")
	})
}

// Coordinator creates one Session per connection.
type Coordinator struct {
	deps   Deps
	cfg    Config
	nextID atomic.Uint64
	active atomic.Int64
}

// NewCoordinator returns a coordinator sharing deps between sessions.
func NewCoordinator(deps Deps, cfg Config) *Coordinator {
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}
	return &Coordinator{deps: deps, cfg: cfg}
}

// Serve runs a session on conn until it ends.
func (c *Coordinator) Serve(ctx context.Context, conn Conn) error {
	s := New(c.nextID.Add(1), conn, c.deps, c.cfg)
	c.active.Add(1)
	defer c.active.Add(-1)

	err := s.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Active returns the number of running sessions.
func (c *Coordinator) Active() int {
	return int(c.active.Load())
}
