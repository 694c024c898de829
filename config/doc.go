// Package config loads, normalizes, and validates rowpipe configuration.
//
// Settings come from repository defaults, overridden by an optional TOML file. Command line flags are applied on
// top of the loaded Config by the CLI, which then calls Validate again.
package config
