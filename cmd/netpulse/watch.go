package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/kostyay/netpulse/internal/client"
	"github.com/kostyay/netpulse/internal/config"
	"github.com/kostyay/netpulse/internal/logging"
	"github.com/kostyay/netpulse/internal/output"
	"github.com/kostyay/netpulse/internal/ui"
)

const dialTimeout = 5 * time.Second

var (
	watchURL  string
	watchJSON bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Show live telemetry from a running server",
	Long: `Connect to a running netpulse server and show its telemetry.

Launches a terminal dashboard, or prints one JSON message per line when
--json is set or stdout is not a terminal:
  netpulse watch
  netpulse watch --url ws://10.0.0.5:3000
  netpulse watch --json | jq -c 'select(.ping)'`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchURL, "url", "u", "", "Server URL, defaults to the configured listen address")
	watchCmd.Flags().BoolVar(&watchJSON, "json", false, "Print messages as JSON lines")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	url := watchURL
	if url == "" {
		if url, err = defaultWatchURL(settings.Listen); err != nil {
			return err
		}
	}

	// JSON mode: explicit flag or non-TTY stdout
	if watchJSON || !term.IsTerminal(int(os.Stdout.Fd())) {
		logger, closeLog := newLogger(settings)
		defer func() { _ = closeLog() }()
		return watchLines(cmd.Context(), url, logger, cmd.OutOrStdout())
	}

	// Logs would corrupt the dashboard; keep only the optional log file.
	logger, closeLog := logging.New(logging.Options{Level: settings.LogLevel, File: settings.LogFile, Output: io.Discard})
	defer func() { _ = closeLog() }()
	if err := config.InitTheme(); err != nil {
		logger.WithError(err).Warn("failed to load skin, using default theme")
	}

	c, err := dial(cmd.Context(), url, logger)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	p := tea.NewProgram(ui.NewModel(c, settings.DefaultHost, url), tea.WithAltScreen())
	_, err = p.Run()
	return err
}

func dial(ctx context.Context, url string, logger *log.Logger) (*client.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	return client.Dial(ctx, url, client.Options{Logger: logging.Component(logger, "client")})
}

// watchLines prints every message as one JSON line until the server
// closes the connection or ctx is cancelled.
func watchLines(ctx context.Context, url string, logger *log.Logger, w io.Writer) error {
	c, err := dial(ctx, url, logger)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	if err := writeLines(ctx, c.Messages(), w); err != nil {
		return err
	}
	return c.Err()
}

func writeLines(ctx context.Context, messages <-chan output.Message, w io.Writer) error {
	enc := json.NewEncoder(w)
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			if err := enc.Encode(msg); err != nil {
				return err
			}
		}
	}
}

// defaultWatchURL turns a listen address into a URL a local client can dial.
func defaultWatchURL(listen string) (string, error) {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return "", fmt.Errorf("invalid listen address %q: %w", listen, err)
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return "ws://" + net.JoinHostPort(host, port), nil
}
