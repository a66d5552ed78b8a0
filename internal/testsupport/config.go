package testsupport

import (
	"path/filepath"
	"testing"

	"actas/internal/config"
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
	cfg.Paths.TemplateDir = filepath.Join(base, "templates")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Institution.Name = "Test Institution"

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithInstitution overrides the institution name on the test config.
func WithInstitution(name string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Institution.Name = name
	}
}

// WithGenerationKey sets a generation API key so service construction picks
// the HTTP client instead of the mock.
func WithGenerationKey(key string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Generation.APIKey = key
	}
}
