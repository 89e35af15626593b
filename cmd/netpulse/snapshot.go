package main

import (
	"context"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/kostyay/netpulse/internal/collector"
	"github.com/kostyay/netpulse/internal/config"
	"github.com/kostyay/netpulse/internal/logging"
	"github.com/kostyay/netpulse/internal/output"
	"github.com/kostyay/netpulse/internal/publicip"
)

var snapshotJSON bool

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Print interfaces, byte counters and the public address once",
	Long: `Print interfaces, cumulative byte counters and the public address.

Output is JSON when --json is set or stdout is not a terminal:
  netpulse snapshot
  netpulse snapshot --json | jq .public_ip`,
	Args: cobra.NoArgs,
	RunE: runSnapshot,
}

func init() {
	snapshotCmd.Flags().BoolVar(&snapshotJSON, "json", false, "Output in JSON format (for scripting/agent consumption)")
	rootCmd.AddCommand(snapshotCmd)
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	logger, closeLog := newLogger(settings)
	defer func() { _ = closeLog() }()

	// JSON mode: explicit flag or non-TTY stdout
	asJSON := snapshotJSON || !term.IsTerminal(int(os.Stdout.Fd()))
	return snapshot(cmd.Context(), settings, logger, cmd.OutOrStdout(), asJSON)
}

// snapshot collects and renders one snapshot. A failed public address
// lookup is logged and leaves the address empty.
func snapshot(ctx context.Context, settings *config.Settings, logger *log.Logger, w io.Writer, asJSON bool) error {
	snap, counters, err := collector.CollectOnce(ctx)
	if err != nil {
		return fmt.Errorf("failed to collect network data: %w", err)
	}

	lookup, err := publicip.New(publicip.Config{
		URL:         settings.PublicIPURL,
		Timeout:     settings.LookupTimeout,
		ResolveHost: settings.ResolvePublicHost,
		Workers:     1,
		Logger:      logging.Component(logger, "publicip"),
	})
	if err != nil {
		return err
	}
	defer lookup.Release()

	if res := <-lookup.LookupAsync(ctx); res.Err == nil {
		snap.PublicIP = res.IP
		snap.PublicHost = res.Host
	}

	if asJSON {
		return output.RenderJSON(w, snap, counters)
	}
	return output.RenderText(w, snap, counters)
}
