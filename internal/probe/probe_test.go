package probe_test

import (
	"context"
	"errors"
	"os/exec"
	"runtime"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kostyay/netpulse/internal/probe"
	"github.com/kostyay/netpulse/internal/probe/probetest"
)

const waitFor = 2 * time.Second

// nextEvent reads one event or fails the test.
func nextEvent(t *testing.T, events <-chan probe.Event) probe.Event {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for probe event")
		return probe.Event{}
	}
}

func newFakeProbe(grace time.Duration) (*probe.Probe, *probetest.Spawner, chan probe.Event) {
	spawner := probetest.NewSpawner()
	events := make(chan probe.Event, 16)
	p := probe.New(spawner, events, probe.Options{StopGrace: grace})
	return p, spawner, events
}

func TestProbe_DeliversLinesWithGeneration(t *testing.T) {
	p, spawner, events := newFakeProbe(time.Second)
	defer p.Stop()

	gen, err := p.Start(context.Background(), "ping", "8.8.8.8")
	require.NoError(t, err)
	proc := spawner.Next(waitFor)
	require.NotNil(t, proc)
	assert.Equal(t, "ping", proc.Name)
	assert.Equal(t, []string{"8.8.8.8"}, proc.Args)

	go func() { _ = proc.WriteStdout("64 bytes from 8.8.8.8: time=23.4 ms\r") }()
	ev := nextEvent(t, events)
	assert.Equal(t, probe.EventLine, ev.Kind)
	assert.Equal(t, probe.Stdout, ev.Stream)
	assert.Equal(t, gen, ev.Generation)
	assert.Equal(t, "64 bytes from 8.8.8.8: time=23.4 ms", ev.Text)
	assert.True(t, p.Current(ev.Generation))

	go func() { _ = proc.WriteStderr("ping: unknown host") }()
	ev = nextEvent(t, events)
	assert.Equal(t, probe.Stderr, ev.Stream)
	assert.Equal(t, "ping: unknown host", ev.Text)
}

func TestProbe_ExitEvent(t *testing.T) {
	p, spawner, events := newFakeProbe(time.Second)
	defer p.Stop()

	gen, err := p.Start(context.Background(), "ping", "host")
	require.NoError(t, err)
	proc := spawner.Next(waitFor)

	exitErr := errors.New("exit status 2")
	proc.Exit(exitErr)

	ev := nextEvent(t, events)
	assert.Equal(t, probe.EventExit, ev.Kind)
	assert.Equal(t, gen, ev.Generation)
	assert.ErrorIs(t, ev.Err, exitErr)
	assert.True(t, p.Current(gen), "natural exit does not invalidate the generation")
}

func TestProbe_StopInvalidatesGeneration(t *testing.T) {
	p, spawner, _ := newFakeProbe(time.Second)

	gen, err := p.Start(context.Background(), "ping", "host")
	require.NoError(t, err)
	proc := spawner.Next(waitFor)

	p.Stop()
	assert.False(t, p.Current(gen))
	assert.False(t, p.Running())
	assert.True(t, proc.Exited())
	assert.Equal(t, []syscall.Signal{syscall.SIGTERM}, proc.Signals())
	assert.False(t, proc.Killed())

	// Idempotent
	p.Stop()
	assert.Len(t, proc.Signals(), 1)
}

func TestProbe_StopKillsSlowProcessAndDropsLateOutput(t *testing.T) {
	p, spawner, events := newFakeProbe(50 * time.Millisecond)
	defer p.Stop()
	spawner.OnSpawn = func(proc *probetest.Process) {
		proc.IgnoreSignals = proc.Args[0] == "old"
	}

	oldGen, err := p.Start(context.Background(), "ping", "old")
	require.NoError(t, err)
	old := spawner.Next(waitFor)

	// Late output written while the old process is shutting down.
	lateDone := make(chan struct{})
	go func() {
		defer close(lateDone)
		for !old.Exited() {
			if len(old.Signals()) > 0 {
				_ = old.WriteStdout("late time=99.9 ms")
				return
			}
			time.Sleep(time.Millisecond)
		}
	}()

	newGen, err := p.Start(context.Background(), "ping", "new")
	require.NoError(t, err)
	<-lateDone

	assert.True(t, old.Exited(), "Start must not return before the old process is reaped")
	assert.True(t, old.Killed(), "a process ignoring SIGTERM is killed after the grace period")
	assert.Greater(t, newGen, oldGen)
	assert.LessOrEqual(t, spawner.MaxLive(), 1)

	fresh := spawner.Next(waitFor)
	require.NotNil(t, fresh)
	go func() { _ = fresh.WriteStdout("fresh time=1.0 ms") }()

	// Anything still queued from the old instance is tagged with the old
	// generation, and no late line is ever attributed to the new one.
	for {
		ev := nextEvent(t, events)
		if ev.Generation == oldGen {
			assert.False(t, p.Current(ev.Generation))
			continue
		}
		assert.Equal(t, newGen, ev.Generation)
		assert.Equal(t, "fresh time=1.0 ms", ev.Text)
		break
	}
}

func TestProbe_SpawnError(t *testing.T) {
	p, spawner, _ := newFakeProbe(time.Second)
	spawner.SetErr(exec.ErrNotFound)

	_, err := p.Start(context.Background(), "ping", "host")
	assert.ErrorIs(t, err, exec.ErrNotFound)
	assert.False(t, p.Running())
}

func TestProbe_NoCommand(t *testing.T) {
	p, _, _ := newFakeProbe(time.Second)

	_, err := p.Start(context.Background(), "")
	assert.ErrorIs(t, err, probe.ErrNoCommand)
}

func TestProbe_RapidRestartsKeepOneLiveProcess(t *testing.T) {
	p, spawner, _ := newFakeProbe(20 * time.Millisecond)
	defer p.Stop()

	for i := 0; i < 20; i++ {
		_, err := p.Start(context.Background(), "ping", "host")
		require.NoError(t, err)
		assert.Equal(t, 1, spawner.Live())
	}
	assert.Equal(t, 20, spawner.Count())
	assert.Equal(t, 1, spawner.MaxLive())
}

func TestStream_String(t *testing.T) {
	assert.Equal(t, "stdout", probe.Stdout.String())
	assert.Equal(t, "stderr", probe.Stderr.String())
	assert.Equal(t, "Stream(7)", probe.Stream(7).String())
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, probe.ExitCode(nil))
	assert.Equal(t, -1, probe.ExitCode(errors.New("boom")))
}

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestExecSpawner_StreamsRealProcess(t *testing.T) {
	requireShell(t)
	events := make(chan probe.Event, 16)
	p := probe.New(probe.ExecSpawner{}, events, probe.Options{StopGrace: time.Second})
	defer p.Stop()

	gen, err := p.Start(context.Background(), "sh", "-c", "echo 'time=12.5 ms'; echo oops >&2; exit 3")
	require.NoError(t, err)

	var lines []probe.Event
	var exit probe.Event
	for exit.Kind != probe.EventExit {
		ev := nextEvent(t, events)
		require.Equal(t, gen, ev.Generation)
		if ev.Kind == probe.EventLine {
			lines = append(lines, ev)
			continue
		}
		exit = ev
	}

	require.Len(t, lines, 2)
	texts := map[probe.Stream]string{}
	for _, l := range lines {
		texts[l.Stream] = l.Text
	}
	assert.Equal(t, "time=12.5 ms", texts[probe.Stdout])
	assert.Equal(t, "oops", texts[probe.Stderr])
	assert.Equal(t, 3, probe.ExitCode(exit.Err))
}

func TestExecSpawner_StopTerminatesRealProcess(t *testing.T) {
	requireShell(t)
	events := make(chan probe.Event, 16)
	p := probe.New(probe.ExecSpawner{}, events, probe.Options{StopGrace: time.Second})

	gen, err := p.Start(context.Background(), "sh", "-c", "while true; do echo tick; sleep 0.05; done")
	require.NoError(t, err)
	ev := nextEvent(t, events)
	assert.Equal(t, gen, ev.Generation)

	start := time.Now()
	p.Stop()
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.False(t, p.Current(gen))
}

func TestExecSpawner_MissingCommand(t *testing.T) {
	_, err := probe.ExecSpawner{}.Spawn(context.Background(), "netpulse-definitely-missing-binary")
	assert.Error(t, err)
}
