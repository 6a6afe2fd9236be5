// Package config loads server configuration from environment variables with
// an optional YAML file overlay (PRAXIS_CONFIG_FILE). Environment variables
// take precedence over file values, which take precedence over defaults.
package config
