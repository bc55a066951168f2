package testsupport

import (
	"path/filepath"
	"testing"

	"sideline/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.MediaDir = filepath.Join(base, "media")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Transcription.APIKey = "test"
	cfg.LLM.APIKey = "test"

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithRetryLimit overrides the per-stage retry ceiling on the test config.
func WithRetryLimit(limit int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Pipeline.RetryLimit = limit
	}
}

// WithResolverThresholds overrides the fuzzy match thresholds.
func WithResolverThresholds(minScore, margin float64) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Resolver.MinScore = minScore
		cfg.Resolver.Margin = margin
	}
}
