package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Color represents a hex color string.
type Color string

// HeaderStyle defines colors for the header section.
type HeaderStyle struct {
	TitleFg Color `yaml:"titleFg"`
	LiveFg  Color `yaml:"liveFg"`  // Live indicator (green pulse)
	WarnFg  Color `yaml:"warnFg"`  // Warnings/attention (amber)
	StatsFg Color `yaml:"statsFg"` // Stats text (muted)
}

// FooterStyle defines colors for the footer section.
type FooterStyle struct {
	KeyFgColor  Color `yaml:"keyFgColor"`
	DescFgColor Color `yaml:"descFgColor"`
}

// PanelStyle defines colors for the metric panels.
type PanelStyle struct {
	LabelFgColor Color `yaml:"labelFgColor"`
	ValueFgColor Color `yaml:"valueFgColor"`
	ChartFgColor Color `yaml:"chartFgColor"` // Latency sparkline
	RxFgColor    Color `yaml:"rxFgColor"`
	TxFgColor    Color `yaml:"txFgColor"`
}

// BorderStyle defines colors for borders.
type BorderStyle struct {
	FgColor Color `yaml:"fgColor"`
}

// Styles holds all the theme colors.
type Styles struct {
	Header HeaderStyle `yaml:"header"`
	Footer FooterStyle `yaml:"footer"`
	Panel  PanelStyle  `yaml:"panel"`
	Border BorderStyle `yaml:"border"`
}

// Theme is the top-level theme configuration.
type Theme struct {
	Name   string `yaml:"name"`
	Styles Styles `yaml:"styles"`
}

// DefaultTheme returns the built-in Industrial theme.
func DefaultTheme() *Theme {
	return &Theme{
		Name: "industrial",
		Styles: Styles{
			Header: HeaderStyle{
				TitleFg: "#58a6ff",
				LiveFg:  "#3fb950",
				WarnFg:  "#d29922",
				StatsFg: "#7d8590",
			},
			Footer: FooterStyle{
				KeyFgColor:  "#58a6ff",
				DescFgColor: "#7d8590",
			},
			Panel: PanelStyle{
				LabelFgColor: "#7d8590",
				ValueFgColor: "#e6edf3",
				ChartFgColor: "#58a6ff",
				RxFgColor:    "#3fb950",
				TxFgColor:    "#d29922",
			},
			Border: BorderStyle{
				FgColor: "#30363d",
			},
		},
	}
}

// themePath returns the path of the user skin file.
func themePath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "netpulse", "skin.yaml"), nil
}

// LoadTheme loads the user's skin, filling unset colors from the default theme.
func LoadTheme() (*Theme, error) {
	path, err := themePath()
	if err != nil {
		return DefaultTheme(), nil
	}

	// #nosec G304 - path is constructed from trusted sources (UserConfigDir + hardcoded path)
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultTheme(), nil
	}

	theme := DefaultTheme()
	if err := yaml.Unmarshal(data, theme); err != nil {
		return DefaultTheme(), err
	}
	return theme, nil
}

// CurrentTheme holds the loaded theme (singleton).
var CurrentTheme *Theme

// InitTheme initializes the global theme.
func InitTheme() error {
	theme, err := LoadTheme()
	CurrentTheme = theme
	return err
}

func init() {
	CurrentTheme = DefaultTheme()
}
