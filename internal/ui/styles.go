package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kostyay/netpulse/internal/config"
)

// errorColor stays red regardless of theme.
const errorColor = lipgloss.Color("#FF5555")

// fg returns a style with the given theme color as foreground.
func fg(c config.Color) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(c))
}

func theme() config.Styles {
	return config.CurrentTheme.Styles
}

// HeaderStyle returns the style for the main header title.
func HeaderStyle() lipgloss.Style { return fg(theme().Header.TitleFg).Bold(true) }

// LiveIndicatorStyle returns the style for the LIVE indicator (green).
func LiveIndicatorStyle() lipgloss.Style { return fg(theme().Header.LiveFg).Bold(true) }

// WarnStyle returns the style for the paused indicator and probe errors (amber).
func WarnStyle() lipgloss.Style { return fg(theme().Header.WarnFg) }

// StatsStyle returns the style for muted text.
func StatsStyle() lipgloss.Style { return fg(theme().Header.StatsFg) }

// FooterKeyStyle returns the style for keyboard shortcut keys in footer.
func FooterKeyStyle() lipgloss.Style { return fg(theme().Footer.KeyFgColor) }

// FooterDescStyle returns the style for key descriptions in footer.
func FooterDescStyle() lipgloss.Style { return fg(theme().Footer.DescFgColor) }

// BorderStyle returns the style for borders.
func BorderStyle() lipgloss.Style { return fg(theme().Border.FgColor) }

// LabelStyle returns the style for panel labels and titles.
func LabelStyle() lipgloss.Style { return fg(theme().Panel.LabelFgColor) }

// ValueStyle returns the style for panel values.
func ValueStyle() lipgloss.Style { return fg(theme().Panel.ValueFgColor).Bold(true) }

// ChartStyle returns the style for the latency sparkline.
func ChartStyle() lipgloss.Style { return fg(theme().Panel.ChartFgColor) }

// RxStyle returns the style for download rates.
func RxStyle() lipgloss.Style { return fg(theme().Panel.RxFgColor) }

// TxStyle returns the style for upload rates.
func TxStyle() lipgloss.Style { return fg(theme().Panel.TxFgColor) }

// ErrorStyle returns the style for error messages.
func ErrorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(errorColor).Bold(true)
}

// RenderFrameWithTitle renders a panel of the given outer size with a
// centered title in the top border.
func RenderFrameWithTitle(content, title string, width, height int) string {
	border := BorderStyle()
	inner := max(width-2, 0)

	label := " " + title + " "
	if len(label) > inner {
		label = label[:inner]
	}
	gap := inner - len(label)
	left := gap / 2

	var b strings.Builder
	b.WriteString(border.Render("┌" + strings.Repeat("─", left)))
	b.WriteString(LabelStyle().Bold(true).Render(label))
	b.WriteString(border.Render(strings.Repeat("─", gap-left) + "┐"))
	b.WriteString("\n")

	body := lipgloss.NewStyle().
		Width(inner).
		Height(max(height-2, 0)).
		Padding(0, 1).
		Render(content)
	for _, line := range strings.Split(body, "\n") {
		b.WriteString(border.Render("│"))
		b.WriteString(padRight(line, inner))
		b.WriteString(border.Render("│"))
		b.WriteString("\n")
	}

	b.WriteString(border.Render("└" + strings.Repeat("─", inner) + "┘"))
	return b.String()
}

// padRight pads s with spaces to the given visible width.
func padRight(s string, width int) string {
	if w := lipgloss.Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}
