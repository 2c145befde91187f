// Package config loads, normalizes, and validates the TOML configuration for
// the listing pipeline. Defaults are defined in defaults.go; a commented
// sample lives in sample_config.toml and is written by `relic config init`.
package config
