package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"curator/internal/config"
)

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("expected missing config file")
	}
	if resolved != path {
		t.Fatalf("resolved path = %q, want %q", resolved, path)
	}
	if cfg.SettleDelay() != 500*time.Millisecond {
		t.Fatalf("settle delay = %v, want 500ms", cfg.SettleDelay())
	}
	if cfg.Organizer.AutoMove || cfg.Organizer.AutoRename {
		t.Fatal("auto-apply flags should default to false")
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := strings.Join([]string{
		"[paths]",
		`data_dir = "` + filepath.Join(dir, "data") + `"`,
		`log_dir = "` + filepath.Join(dir, "logs") + `"`,
		"[organizer]",
		"auto_move = true",
		"auto_rename = true",
		"settle_delay_ms = 25",
		"[llm]",
		`api_key = "k"`,
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be found")
	}
	if !cfg.Organizer.AutoMove || !cfg.Organizer.AutoRename {
		t.Fatal("auto-apply flags not parsed")
	}
	if cfg.SettleDelay() != 25*time.Millisecond {
		t.Fatalf("settle delay = %v, want 25ms", cfg.SettleDelay())
	}
	if cfg.LLM.BaseURL == "" || cfg.LLM.Model == "" {
		t.Fatal("llm defaults not applied")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"negative settle delay", func(c *config.Config) { c.Organizer.SettleDelayMs = -1 }},
		{"bad log format", func(c *config.Config) { c.Logging.Format = "yaml" }},
		{"empty data dir", func(c *config.Config) { c.Paths.DataDir = "" }},
		{"negative notify timeout", func(c *config.Config) { c.Notifications.RequestTimeout = -5 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[organizer]") {
		t.Fatal("sample config missing organizer section")
	}
}
