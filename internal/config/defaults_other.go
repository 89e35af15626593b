//go:build !linux && !darwin

package config

// No change-event source; the watcher only reports the initial snapshot.
const defaultWatchCommand = ""

var defaultWatchArgs []string
