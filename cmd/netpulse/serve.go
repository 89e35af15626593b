package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kostyay/netpulse/internal/collector"
	"github.com/kostyay/netpulse/internal/config"
	"github.com/kostyay/netpulse/internal/latency"
	"github.com/kostyay/netpulse/internal/logging"
	"github.com/kostyay/netpulse/internal/netwatch"
	"github.com/kostyay/netpulse/internal/probe"
	"github.com/kostyay/netpulse/internal/process"
	"github.com/kostyay/netpulse/internal/publicip"
	"github.com/kostyay/netpulse/internal/server"
	"github.com/kostyay/netpulse/internal/session"
	"github.com/kostyay/netpulse/internal/throughput"
)

var (
	listenAddr     string
	targetHost     string
	allowedOrigins []string
)

// addServeFlags registers the server flags, shared by the root and serve commands.
func addServeFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&listenAddr, "listen", "l", "", "Listen address (host:port, port 0 picks a free port)")
	cmd.Flags().StringVar(&targetHost, "host", "", "Default ping target for new sessions")
	cmd.Flags().StringSliceVar(&allowedOrigins, "origin", nil, "Extra allowed WebSocket origin host patterns")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the telemetry server (default)",
	Long: `Run the telemetry server. Once listening, it prints
{"port":N,"address":"host:port"} on stdout.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	addServeFlags(serveCmd)
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("listen") {
		settings.Listen = listenAddr
	}
	if cmd.Flags().Changed("host") {
		settings.DefaultHost = targetHost
	}
	if cmd.Flags().Changed("origin") {
		settings.AllowedOrigins = append(settings.AllowedOrigins, allowedOrigins...)
	}
	if err := settings.Validate(); err != nil {
		return err
	}

	logger, closeLog := newLogger(settings)
	defer func() { _ = closeLog() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, settings, logger, probe.ExecSpawner{}, cmd.OutOrStdout())
}

// serve runs the server until ctx is cancelled, printing the ready info to stdout.
func serve(ctx context.Context, settings *config.Settings, logger *log.Logger, spawner probe.Spawner, stdout io.Writer) error {
	lookup, err := publicip.New(publicip.Config{
		URL:         settings.PublicIPURL,
		Timeout:     settings.LookupTimeout,
		ResolveHost: settings.ResolvePublicHost,
		Logger:      logging.Component(logger, "publicip"),
	})
	if err != nil {
		return err
	}
	defer lookup.Release()

	sessionCfg, err := sessionConfig(settings, logger)
	if err != nil {
		return err
	}

	source := collector.New()
	coord := session.NewCoordinator(session.Deps{
		Spawner:    spawner,
		Counters:   source,
		Interfaces: source,
		Lookup:     lookup,
	}, sessionCfg)

	srv := server.New(coord, server.Config{
		Listen:         settings.Listen,
		AllowedOrigins: settings.AllowedOrigins,
		Logger:         logging.Component(logger, "server"),
	})

	return srv.ListenAndServe(ctx, func(info server.ReadyInfo) {
		logger.WithField("address", info.Address).Info("listening")
		if err := json.NewEncoder(stdout).Encode(info); err != nil {
			logger.WithError(err).Warn("failed to write ready info")
		}
	})
}

// sessionConfig maps settings onto the per-session probe configuration.
func sessionConfig(settings *config.Settings, logger *log.Logger) (session.Config, error) {
	host, err := session.ValidateHost(settings.DefaultHost)
	if err != nil {
		return session.Config{}, fmt.Errorf("defaultHost: %w", err)
	}
	sig, err := process.ParseSignal(settings.StopSignal)
	if err != nil {
		return session.Config{}, err
	}

	return session.Config{
		DefaultHost: host,
		Latency: latency.Config{
			Command:    settings.PingCommand,
			Args:       settings.PingArgs,
			RetryDelay: settings.RetryDelay,
			MaxRetries: settings.MaxRetries,
			StopSignal: sig,
			StopGrace:  settings.StopGrace,
		},
		Throughput: throughput.Config{
			Interval: settings.SampleInterval,
		},
		Watch: netwatch.Config{
			Command:    settings.WatchCommand,
			Args:       settings.WatchArgs,
			Debounce:   settings.DebounceDelay,
			RetryDelay: settings.RetryDelay,
			StopSignal: sig,
			StopGrace:  settings.StopGrace,
		},
		Logger: logging.Component(logger, "session"),
	}, nil
}
