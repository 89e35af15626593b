// Package logging configures the logrus logger shared by the server and its sessions.
package logging

import (
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the logger.
type Options struct {
	Level  string    // logrus level name; invalid names fall back to info
	File   string    // optional rotated log file, written in addition to Output
	Output io.Writer // defaults to os.Stderr
}

// New builds a logger from opts. The returned close function releases the
// rotated log file, if any.
func New(opts Options) (*log.Logger, func() error) {
	logger := log.New()
	logger.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	level, err := log.ParseLevel(opts.Level)
	if err != nil {
		level = log.InfoLevel
		defer logger.Warnf("Invalid log level '%s', using 'info'", opts.Level)
	}
	logger.SetLevel(level)

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	closeFn := func() error { return nil }
	if opts.File != "" {
		_ = os.MkdirAll(filepath.Dir(opts.File), 0755)
		fileLogger := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    100, // MB
			MaxBackups: 7,
			MaxAge:     30, // days
			Compress:   true,
		}
		out = io.MultiWriter(out, fileLogger)
		closeFn = fileLogger.Close
	}
	logger.SetOutput(out)

	return logger, closeFn
}

// Discard returns an entry that drops everything. Used by tests and by
// components constructed without a logger.
func Discard() *log.Entry {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return log.NewEntry(logger)
}

// Component returns an entry tagged with the component name.
func Component(logger *log.Logger, name string) *log.Entry {
	return logger.WithField("component", name)
}
