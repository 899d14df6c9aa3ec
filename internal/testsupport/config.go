package testsupport

import (
	"path/filepath"
	"testing"

	"curator/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.LLM.APIKey = "test"
	cfgVal.Organizer.SettleDelayMs = 10

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithAutoApply sets the organizer auto-apply flags on the test config.
func WithAutoApply(autoMove, autoRename bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Organizer.AutoMove = autoMove
		b.cfg.Organizer.AutoRename = autoRename
	}
}

// WithSettleDelayMs overrides the retirement settle delay on the test config.
func WithSettleDelayMs(ms int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Organizer.SettleDelayMs = ms
	}
}

// WithLLMBaseURL points the oracle client at a test server.
func WithLLMBaseURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.LLM.BaseURL = url
	}
}
