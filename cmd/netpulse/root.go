package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kostyay/netpulse/internal/config"
	"github.com/kostyay/netpulse/internal/logging"
)

var (
	configPath string
	logLevel   string
	logFile    string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Settings file (.yaml or .toml), defaults to the user config dir")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also write logs to this rotated file")
	addServeFlags(rootCmd)
}

var rootCmd = &cobra.Command{
	Use:   "netpulse",
	Short: "Network telemetry over WebSocket",
	Long: `netpulse streams live network telemetry to a WebSocket client: ping
latency to a target host, interface throughput, and interface or public
address changes.

Without a subcommand it runs the server:
  netpulse                        # listen on 127.0.0.1:3000
  netpulse --listen :0            # pick a free port, printed as JSON on stdout
  netpulse watch                  # dashboard for a running server
  netpulse snapshot --json        # one-shot interfaces, counters and public IP`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

// loadSettings reads the settings file and applies the global flag overrides.
func loadSettings(cmd *cobra.Command) (*config.Settings, error) {
	settings, err := config.LoadSettings(configPath)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("log-level") {
		settings.LogLevel = logLevel
	}
	if cmd.Flags().Changed("log-file") {
		settings.LogFile = logFile
	}
	return settings, nil
}

// newLogger builds the process logger from settings.
func newLogger(settings *config.Settings) (*log.Logger, func() error) {
	return logging.New(logging.Options{Level: settings.LogLevel, File: settings.LogFile})
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
