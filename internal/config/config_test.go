package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"actas/internal/config"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, _, exists, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing file")
	}
	if cfg.Paths.APIBind == "" {
		t.Fatal("expected default api bind")
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("expected default log level info, got %q", cfg.Logging.Level)
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
data_dir = "` + filepath.Join(dir, "data") + `"
log_dir = "` + filepath.Join(dir, "logs") + `"

[institution]
name = "  Test Council  "

[smtp]
security = "TLS"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists || resolved == "" {
		t.Fatal("expected config file to be found")
	}
	if cfg.Institution.Name != "Test Council" {
		t.Fatalf("institution name not trimmed: %q", cfg.Institution.Name)
	}
	if cfg.SMTP.Security != "tls" {
		t.Fatalf("smtp security not lowercased: %q", cfg.SMTP.Security)
	}
	if cfg.DatabasePath() != filepath.Join(dir, "data", "actas.db") {
		t.Fatalf("unexpected database path: %s", cfg.DatabasePath())
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := config.Default()
	cfg.SMTP.Security = "carrier-pigeon"
	cfg.SMTP.Port = 70000

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "smtp.security") || !strings.Contains(err.Error(), "smtp.port") {
		t.Fatalf("expected both smtp problems reported, got: %v", err)
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	if _, _, exists, err := config.Load(path); err != nil || !exists {
		t.Fatalf("sample config did not load cleanly: exists=%v err=%v", exists, err)
	}
}
