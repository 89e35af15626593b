//go:build darwin

package config

const defaultWatchCommand = "route"

var defaultWatchArgs = []string{"-n", "monitor"}
