package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/kostyay/netpulse/internal/process"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid settings")

// Settings holds user-configurable options.
type Settings struct {
	Listen            string        `yaml:"listen" toml:"listen"`
	AllowedOrigins    []string      `yaml:"allowedOrigins" toml:"allowedOrigins"`
	DefaultHost       string        `yaml:"defaultHost" toml:"defaultHost"`
	PingCommand       string        `yaml:"pingCommand" toml:"pingCommand"`
	PingArgs          []string      `yaml:"pingArgs" toml:"pingArgs"`
	WatchCommand      string        `yaml:"watchCommand" toml:"watchCommand"`
	WatchArgs         []string      `yaml:"watchArgs" toml:"watchArgs"`
	RetryDelay        time.Duration `yaml:"retryDelay" toml:"retryDelay"`
	MaxRetries        int           `yaml:"maxRetries" toml:"maxRetries"` // 0 retries forever
	DebounceDelay     time.Duration `yaml:"debounceDelay" toml:"debounceDelay"`
	SampleInterval    time.Duration `yaml:"sampleInterval" toml:"sampleInterval"`
	PublicIPURL       string        `yaml:"publicIPURL" toml:"publicIPURL"`
	LookupTimeout     time.Duration `yaml:"lookupTimeout" toml:"lookupTimeout"`
	ResolvePublicHost bool          `yaml:"resolvePublicHost" toml:"resolvePublicHost"`
	StopSignal        string        `yaml:"stopSignal" toml:"stopSignal"`
	StopGrace         time.Duration `yaml:"stopGrace" toml:"stopGrace"`
	LogLevel          string        `yaml:"logLevel" toml:"logLevel"`
	LogFile           string        `yaml:"logFile" toml:"logFile"`
}

// DefaultSettings returns the default settings.
func DefaultSettings() *Settings {
	return &Settings{
		Listen:         "127.0.0.1:3000",
		DefaultHost:    "8.8.8.8",
		PingCommand:    "ping",
		WatchCommand:   defaultWatchCommand,
		WatchArgs:      append([]string(nil), defaultWatchArgs...),
		RetryDelay:     2 * time.Second,
		DebounceDelay:  2 * time.Second,
		SampleInterval: time.Second,
		PublicIPURL:    "https://api.ipify.org?format=json",
		LookupTimeout:  5 * time.Second,
		StopSignal:     "SIGTERM",
		StopGrace:      2 * time.Second,
		LogLevel:       "info",
	}
}

// DefaultPath returns the path of the user settings file.
func DefaultPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "netpulse", "settings.yaml"), nil
}

// LoadSettings loads settings from path, layered over the defaults.
// An empty path means the default location, where a missing file is not an error.
// The format is chosen by extension: .toml is TOML, anything else YAML.
func LoadSettings(path string) (*Settings, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return DefaultSettings(), nil
		}
		path = p
	}

	// #nosec G304 - path comes from the command line or the user config dir
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return DefaultSettings(), nil
		}
		return nil, fmt.Errorf("failed to read settings %s: %w", path, err)
	}

	settings := DefaultSettings()
	if err := decode(path, data, settings); err != nil {
		return nil, fmt.Errorf("failed to decode settings %s: %w", path, err)
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

func decode(path string, data []byte, s *Settings) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		_, err := toml.Decode(string(data), s)
		return err
	default:
		return yaml.Unmarshal(data, s)
	}
}

// SaveSettings writes settings to path as YAML, creating parent directories.
func SaveSettings(path string, s *Settings) error {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return err
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// Validate checks that the settings can drive a session.
func (s *Settings) Validate() error {
	switch {
	case s.Listen == "":
		return fmt.Errorf("%w: listen address is empty", ErrInvalid)
	case strings.TrimSpace(s.DefaultHost) == "":
		return fmt.Errorf("%w: defaultHost is empty", ErrInvalid)
	case s.PingCommand == "":
		return fmt.Errorf("%w: pingCommand is empty", ErrInvalid)
	case s.RetryDelay <= 0:
		return fmt.Errorf("%w: retryDelay must be positive", ErrInvalid)
	case s.MaxRetries < 0:
		return fmt.Errorf("%w: maxRetries must not be negative", ErrInvalid)
	case s.DebounceDelay <= 0:
		return fmt.Errorf("%w: debounceDelay must be positive", ErrInvalid)
	case s.SampleInterval <= 0:
		return fmt.Errorf("%w: sampleInterval must be positive", ErrInvalid)
	case s.LookupTimeout <= 0:
		return fmt.Errorf("%w: lookupTimeout must be positive", ErrInvalid)
	case s.StopGrace <= 0:
		return fmt.Errorf("%w: stopGrace must be positive", ErrInvalid)
	}
	if _, err := process.ParseSignal(s.StopSignal); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}
