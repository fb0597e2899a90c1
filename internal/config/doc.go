// SPDX-License-Identifier: MPL-2.0

// Package config loads modgate's CUE configuration.
//
// Configuration is read from config.cue in the platform config directory
// ($XDG_CONFIG_HOME/modgate on Linux, ~/Library/Application Support/modgate on
// macOS, %APPDATA%\modgate on Windows) or from an explicit path. The file is
// validated against the embedded #Config schema and layered over defaults with
// viper. MODGATE_* environment variables override file values.
package config
