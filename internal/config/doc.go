// Package config loads, validates, and defaults Sideline's TOML
// configuration. A single Config value is threaded through the daemon and
// CLI; paths are expanded and missing values are filled from repository
// defaults before validation runs.
package config
