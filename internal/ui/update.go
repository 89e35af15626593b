package ui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kostyay/netpulse/internal/output"
	"github.com/kostyay/netpulse/internal/session"
)

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.tickCmd(),
		m.waitForMessage(),
	)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if m.editing {
			return m.updateEditor(msg)
		}
		return m.updateKeys(msg)

	case TelemetryMsg:
		m.apply(msg.Message)
		return m, m.waitForMessage()

	case DisconnectedMsg:
		m.disconnected = true
		m.disconnect = msg.Err
		return m, nil

	case SentMsg:
		m.sendErr = msg.Err
		return m, nil

	case TickMsg:
		m.animationFrame = (m.animationFrame + 1) % 2
		return m, m.tickCmd()

	case spinner.TickMsg:
		if m.connected || m.disconnected {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch {
	case matchKey(key, KeyQuit, KeyQuitAlt):
		m.quitting = true
		return m, tea.Quit

	case m.disconnected:
		return m, nil

	case matchKey(key, KeyPause):
		m.paused = !m.paused
		if m.paused {
			return m, m.sendCmd(output.Pause())
		}
		return m, m.sendCmd(output.Resume())

	case matchKey(key, KeyHost):
		m.editing = true
		m.sendErr = nil
		m.input.SetValue(m.target)
		m.input.CursorEnd()
		cmd := m.input.Focus()
		return m, cmd
	}
	return m, nil
}

func (m Model) updateEditor(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case matchKey(msg.String(), KeyQuitAlt):
		m.quitting = true
		return m, tea.Quit

	case matchKey(msg.String(), KeyEsc):
		m.editing = false
		m.input.Blur()
		return m, nil

	case matchKey(msg.String(), KeyEnter):
		host, err := session.ValidateHost(m.input.Value())
		if err != nil {
			m.sendErr = err
			return m, nil
		}
		m.editing = false
		m.input.Blur()
		m.sendErr = nil
		if host == m.target && !m.paused {
			return m, nil
		}
		// A new target starts a fresh ping session, resuming if paused.
		m.target = host
		m.paused = false
		m.pings = nil
		m.hasPing = false
		m.lastError = ""
		return m, m.sendCmd(output.UpdateHost(host))
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// waitForMessage blocks on the next server message.
func (m Model) waitForMessage() tea.Cmd {
	stream := m.stream
	return func() tea.Msg {
		msg, ok := <-stream.Messages()
		if !ok {
			return DisconnectedMsg{Err: stream.Err()}
		}
		return TelemetryMsg{Message: msg}
	}
}

func (m Model) sendCmd(cmd output.Command) tea.Cmd {
	stream := m.stream
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), SendTimeout)
		defer cancel()
		return SentMsg{Command: cmd, Err: stream.Send(ctx, cmd)}
	}
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(AnimationInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// trimError shortens an error for the single-line status area.
func trimError(s string, max int) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
	return truncateString(s, max)
}
