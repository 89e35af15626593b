package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kostyay/netpulse/internal/model"
)

// Layout constants.
const (
	minWidth      = 40
	panelPadding  = 4 // frame border plus content padding
	errorMaxWidth = 40
)

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	width := max(m.width, minWidth)
	var sections []string
	sections = append(sections, m.renderHeader(width))

	if !m.connected && !m.disconnected {
		sections = append(sections, fmt.Sprintf(" %s Connecting to %s...", m.spinner.View(), m.url))
	} else {
		sections = append(sections,
			m.renderLatencyPanel(width),
			m.renderThroughputPanel(width),
			m.renderNetworkPanel(width),
		)
	}

	if m.disconnected {
		text := "Disconnected from server"
		if m.disconnect != nil {
			text += ": " + trimError(m.disconnect.Error(), errorMaxWidth)
		}
		sections = append(sections, ErrorStyle().Render(" "+text))
	}

	sections = append(sections, m.renderFooter())
	return strings.Join(sections, "\n")
}

// renderHeader renders the double-line header with the live indicator and target.
func (m Model) renderHeader(width int) string {
	borderStyle := BorderStyle()
	innerWidth := width - 2

	title := " NETPULSE "
	remaining := max(innerWidth-len(title), 0)
	leftPad := remaining / 2
	rightPad := remaining - leftPad

	top := borderStyle.Render("╔" + strings.Repeat("═", leftPad))
	top += HeaderStyle().Render(title)
	top += borderStyle.Render(strings.Repeat("═", rightPad) + "╗")

	content := m.renderStatus() + StatsStyle().Render("   target "+m.target)
	if m.lastError != "" {
		content += WarnStyle().Render("  ⚠ " + trimError(m.lastError, errorMaxWidth))
	}
	padding := max(innerWidth-lipgloss.Width(content)-2, 0)
	line := borderStyle.Render("║") + " " + content + strings.Repeat(" ", padding) + " " + borderStyle.Render("║")

	bottom := borderStyle.Render("╚" + strings.Repeat("═", innerWidth) + "╝")
	return top + "\n" + line + "\n" + bottom
}

// renderStatus returns the live indicator, which blinks while pinging.
func (m Model) renderStatus() string {
	switch {
	case m.disconnected:
		return ErrorStyle().Render("✕ OFFLINE")
	case m.paused:
		return WarnStyle().Render("‖ PAUSED")
	}
	indicator := "◉"
	if m.animationFrame == 1 {
		indicator = "○"
	}
	return LiveIndicatorStyle().Render(indicator + " LIVE")
}

func (m Model) renderLatencyPanel(width int) string {
	var lines []string
	if !m.hasPing {
		lines = append(lines, StatsStyle().Render("waiting for replies"), "")
	} else {
		last := m.pings[len(m.pings)-1]
		lo, avg, hi := latencyStats(m.pings)
		lines = append(lines,
			LabelStyle().Render("last ")+ValueStyle().Render(formatLatency(last))+
				StatsStyle().Render(fmt.Sprintf("   min %s  avg %s  max %s",
					formatLatency(lo), formatLatency(avg), formatLatency(hi))),
			ChartStyle().Render(sparkline(m.pings, width-panelPadding)),
		)
	}
	return RenderFrameWithTitle(strings.Join(lines, "\n"), "LATENCY", width, len(lines)+2)
}

func (m Model) renderThroughputPanel(width int) string {
	content := RxStyle().Render("▼ "+model.FormatRate(m.speed.RX)) +
		"    " + TxStyle().Render("▲ "+model.FormatRate(m.speed.TX))
	return RenderFrameWithTitle(content, "THROUGHPUT", width, 3)
}

func (m Model) renderNetworkPanel(width int) string {
	var lines []string
	if !m.hasInfo {
		lines = append(lines, StatsStyle().Render("no network info yet"))
	} else {
		public := m.network.PublicIP
		if public == "" {
			public = "unknown"
		}
		if m.network.PublicHost != "" {
			public += " (" + m.network.PublicHost + ")"
		}
		lines = append(lines, LabelStyle().Render("public ")+ValueStyle().Render(public))

		nameWidth := 0
		for _, iface := range m.network.Interfaces {
			nameWidth = max(nameWidth, len(iface.Name))
		}
		for _, iface := range m.network.Interfaces {
			lines = append(lines, LabelStyle().Render(fmt.Sprintf("%-*s ", nameWidth, iface.Name))+iface.Address)
		}
	}
	return RenderFrameWithTitle(strings.Join(lines, "\n"), "NETWORK", width, len(lines)+2)
}

func (m Model) renderFooter() string {
	if m.editing {
		text := " " + m.input.View() + "  " + m.renderKeybindings(KeyEnter, KeyEsc)
		if m.sendErr != nil {
			text += "\n " + ErrorStyle().Render(trimError(m.sendErr.Error(), errorMaxWidth))
		}
		return text
	}

	text := " " + m.renderKeybindings(KeyPause, KeyHost, KeyQuit)
	if m.sendErr != nil {
		text += "  " + ErrorStyle().Render(trimError(m.sendErr.Error(), errorMaxWidth))
	}
	return text
}

func (m Model) renderKeybindings(keys ...Keybinding) string {
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, FooterKeyStyle().Render(k.Key)+" "+FooterDescStyle().Render(k.Desc))
	}
	return strings.Join(parts, "  ")
}
