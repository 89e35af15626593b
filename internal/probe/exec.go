package probe

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"syscall"

	"github.com/shirou/gopsutil/v3/process"
)

// Process is a running external command.
type Process interface {
	Stdout() io.Reader
	Stderr() io.Reader
	// Wait blocks until the process exits. It returns nil on a clean exit.
	Wait() error
	Signal(sig syscall.Signal) error
	Kill() error
	Pid() int
}

// Spawner starts processes.
type Spawner interface {
	Spawn(ctx context.Context, name string, args ...string) (Process, error)
}

// ExecSpawner starts real processes with os/exec.
type ExecSpawner struct{}

// Spawn starts name with args and piped stdout/stderr.
// The process is not tied to ctx; it lives until signalled.
func (ExecSpawner) Spawn(ctx context.Context, name string, args ...string) (Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// #nosec G204 - command and args come from the settings file or validated input
	cmd := exec.Command(name, args...)
	cmd.Stdin = nil

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", name, err)
	}

	return &execProcess{cmd: cmd, stdout: stdout, stderr: stderr}, nil
}

type execProcess struct {
	cmd    *exec.Cmd
	stdout io.Reader
	stderr io.Reader
}

func (p *execProcess) Stdout() io.Reader { return p.stdout }
func (p *execProcess) Stderr() io.Reader { return p.stderr }
func (p *execProcess) Wait() error       { return p.cmd.Wait() }
func (p *execProcess) Pid() int          { return p.cmd.Process.Pid }

// Signal delivers sig to the process and its direct children, so a probe
// started through a wrapper script does not leave the real command behind.
func (p *execProcess) Signal(sig syscall.Signal) error {
	p.signalChildren(sig)
	return p.cmd.Process.Signal(sig)
}

func (p *execProcess) Kill() error {
	p.signalChildren(syscall.SIGKILL)
	return p.cmd.Process.Kill()
}

func (p *execProcess) signalChildren(sig syscall.Signal) {
	proc, err := process.NewProcess(int32(p.cmd.Process.Pid))
	if err != nil {
		return
	}
	children, err := proc.Children()
	if err != nil {
		return
	}
	for _, child := range children {
		_ = child.SendSignal(sig)
	}
}

// ExitCode extracts the exit status from a Wait error.
// It returns 0 for nil and -1 when the process did not exit normally.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode()
	}
	return -1
}
