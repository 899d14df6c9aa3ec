// Package config loads, normalizes, and validates curator's TOML
// configuration.
package config
