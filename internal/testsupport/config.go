package testsupport

import (
	"path/filepath"
	"testing"

	"optipress/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// Budgets and intervals are shrunk so tests never wait on real schedules.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.LibraryDir = filepath.Join(base, "uploads")
	cfg.Paths.StagingDir = filepath.Join(base, "staging")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Batch.TickInterval = 2
	cfg.Batch.TimeBudgetSeconds = 1
	cfg.Batch.RetryBaseSeconds = 1
	cfg.Batch.RetryMaxSeconds = 8

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithFormats overrides the enabled conversion formats.
func WithFormats(formats ...string) ConfigOption {
	return func(c *config.Config) {
		c.Conversion.Formats = formats
	}
}

// WithMemoryLimit sets the batch memory ceiling in MiB.
func WithMemoryLimit(mib int) ConfigOption {
	return func(c *config.Config) {
		c.Batch.MemoryLimitMiB = mib
	}
}
