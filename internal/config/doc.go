// Package config loads, validates, and normalizes the TOML configuration
// shared by the CLI and the daemon.
package config
