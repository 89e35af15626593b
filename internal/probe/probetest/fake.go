// Package probetest provides an in-memory Spawner for testing code built on probe.
package probetest

import (
	"context"
	"errors"
	"io"
	"sync"
	"syscall"
	"time"

	"github.com/kostyay/netpulse/internal/probe"
)

// ErrSignaled is the Wait result of a fake process stopped by a signal.
var ErrSignaled = errors.New("signal: terminated")

// ErrKilled is the Wait result of a fake process stopped by Kill.
var ErrKilled = errors.New("signal: killed")

// Process is a fake probe.Process driven by the test.
type Process struct {
	Name string
	Args []string

	// IgnoreSignals makes the process survive Signal, so only Kill stops it.
	IgnoreSignals bool

	pid     int
	stdoutR *io.PipeReader
	stdoutW *io.PipeWriter
	stderrR *io.PipeReader
	stderrW *io.PipeWriter

	mu      sync.Mutex
	exited  chan struct{}
	exitErr error
	signals []syscall.Signal
	killed  bool
}

func newProcess(pid int, name string, args []string) *Process {
	p := &Process{Name: name, Args: args, pid: pid, exited: make(chan struct{})}
	p.stdoutR, p.stdoutW = io.Pipe()
	p.stderrR, p.stderrW = io.Pipe()
	return p
}

func (p *Process) Stdout() io.Reader { return p.stdoutR }
func (p *Process) Stderr() io.Reader { return p.stderrR }
func (p *Process) Pid() int          { return p.pid }

// Wait blocks until Exit, Signal or Kill ends the process.
func (p *Process) Wait() error {
	<-p.exited
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitErr
}

func (p *Process) Signal(sig syscall.Signal) error {
	p.mu.Lock()
	p.signals = append(p.signals, sig)
	ignore := p.IgnoreSignals
	p.mu.Unlock()
	if !ignore {
		p.Exit(ErrSignaled)
	}
	return nil
}

func (p *Process) Kill() error {
	p.mu.Lock()
	p.killed = true
	p.mu.Unlock()
	p.Exit(ErrKilled)
	return nil
}

// WriteStdout writes a line to stdout. It blocks until the probe reads it
// and fails once the process has exited.
func (p *Process) WriteStdout(line string) error {
	_, err := io.WriteString(p.stdoutW, line+"\n")
	return err
}

// WriteStderr writes a line to stderr.
func (p *Process) WriteStderr(line string) error {
	_, err := io.WriteString(p.stderrW, line+"\n")
	return err
}

// Exit ends the process with the given Wait result. Only the first call counts.
func (p *Process) Exit(err error) {
	p.mu.Lock()
	select {
	case <-p.exited:
		p.mu.Unlock()
		return
	default:
	}
	p.exitErr = err
	close(p.exited)
	p.mu.Unlock()

	_ = p.stdoutW.Close()
	_ = p.stderrW.Close()
}

// Exited reports whether the process has ended.
func (p *Process) Exited() bool {
	select {
	case <-p.exited:
		return true
	default:
		return false
	}
}

// Signals returns the signals received so far.
func (p *Process) Signals() []syscall.Signal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]syscall.Signal(nil), p.signals...)
}

// Killed reports whether Kill was called.
func (p *Process) Killed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.killed
}

// Spawner is a fake probe.Spawner recording every process it starts.
type Spawner struct {
	// Err, when set, is returned by Spawn instead of starting a process.
	Err error
	// OnSpawn runs on each new process before Spawn returns.
	OnSpawn func(p *Process)

	mu      sync.Mutex
	procs   []*Process
	times   []time.Time
	maxLive int
	spawned chan *Process
}

// NewSpawner creates an empty fake spawner.
func NewSpawner() *Spawner {
	return &Spawner{spawned: make(chan *Process, 256)}
}

// Spawn implements probe.Spawner.
func (s *Spawner) Spawn(ctx context.Context, name string, args ...string) (probe.Process, error) {
	s.mu.Lock()
	if s.Err != nil {
		err := s.Err
		s.mu.Unlock()
		return nil, err
	}
	p := newProcess(1000+len(s.procs), name, append([]string(nil), args...))
	s.procs = append(s.procs, p)
	s.times = append(s.times, time.Now())
	if live := s.liveLocked(); live > s.maxLive {
		s.maxLive = live
	}
	onSpawn := s.OnSpawn
	s.mu.Unlock()

	if onSpawn != nil {
		onSpawn(p)
	}
	s.spawned <- p
	return p, nil
}

// SetErr changes the spawn error.
func (s *Spawner) SetErr(err error) {
	s.mu.Lock()
	s.Err = err
	s.mu.Unlock()
}

// Processes returns every process spawned so far, oldest first.
func (s *Spawner) Processes() []*Process {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Process(nil), s.procs...)
}

// SpawnTimes returns the time of every spawn, oldest first.
func (s *Spawner) SpawnTimes() []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Time(nil), s.times...)
}

// Count returns the number of spawned processes.
func (s *Spawner) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.procs)
}

// Live returns the number of processes that have not exited.
func (s *Spawner) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.liveLocked()
}

// MaxLive returns the highest number of live processes observed at spawn time.
func (s *Spawner) MaxLive() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxLive
}

func (s *Spawner) liveLocked() int {
	n := 0
	for _, p := range s.procs {
		if !p.Exited() {
			n++
		}
	}
	return n
}

// Next waits for the next spawned process. It returns nil on timeout.
func (s *Spawner) Next(timeout time.Duration) *Process {
	select {
	case p := <-s.spawned:
		return p
	case <-time.After(timeout):
		return nil
	}
}

// Last returns the most recently spawned process, or nil.
func (s *Spawner) Last() *Process {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.procs) == 0 {
		return nil
	}
	return s.procs[len(s.procs)-1]
}

var _ probe.Spawner = (*Spawner)(nil)
var _ probe.Process = (*Process)(nil)
