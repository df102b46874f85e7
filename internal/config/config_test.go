package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"RoboInvestor/internal/model"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DataSource.Provider != "alphavantage" || cfg.DataSource.RequestsPerMinute != 5 || cfg.DataSource.Timeout != 30*time.Second {
		t.Errorf("unexpected data source defaults: %+v", cfg.DataSource)
	}
	if cfg.Cache.Backend != "file" || cfg.Cache.Dir != "data" {
		t.Errorf("unexpected cache defaults: %+v", cfg.Cache)
	}
	if cfg.Params.Prefix != "/robo-investor/" || cfg.Params.Backend != "sqlite" {
		t.Errorf("unexpected params defaults %+v", cfg.Params)
	}
	if cfg.Registry.Backend != "sqlite" || cfg.Registry.Table != "stocks" {
		t.Errorf("unexpected registry defaults %+v", cfg.Registry)
	}
	if cfg.Account.DefaultBalance != 10000 {
		t.Errorf("unexpected default balance %v", cfg.Account.DefaultBalance)
	}
	if cfg.Engine.Workers != 1 {
		t.Errorf("unexpected workers %d", cfg.Engine.Workers)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_YAMLAndEnv(t *testing.T) {
	path := writeConfig(t, `
data_source:
  provider: yahoo
  timeout: 5s
cache:
  backend: memory
engine:
  workers: 4
instruments:
  - ticker: AAPL
    threshold: 180
  - ticker: MSFT
    threshold: 400.5
`)
	t.Setenv("SQLITE_PATH", "/tmp/override.db")
	t.Setenv("ENGINE_WORKERS", "2")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DataSource.Provider != "yahoo" || cfg.DataSource.Timeout != 5*time.Second {
		t.Errorf("yaml not applied: %+v", cfg.DataSource)
	}
	if cfg.Cache.Backend != "memory" {
		t.Errorf("expected memory backend, got %q", cfg.Cache.Backend)
	}
	if cfg.Database.SQLitePath != "/tmp/override.db" {
		t.Errorf("env override not applied: %q", cfg.Database.SQLitePath)
	}
	if cfg.Engine.Workers != 2 {
		t.Errorf("expected env workers 2, got %d", cfg.Engine.Workers)
	}
	want := []model.Instrument{{Ticker: "AAPL", Threshold: 180}, {Ticker: "MSFT", Threshold: 400.5}}
	if len(cfg.Instruments) != 2 || cfg.Instruments[0] != want[0] || cfg.Instruments[1] != want[1] {
		t.Errorf("unexpected instruments %+v", cfg.Instruments)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("validate: %v", err)
	}
}

func TestLoad_BadYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "data_source: [")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown provider", func(c *Config) { c.DataSource.Provider = "bloomberg" }},
		{"unknown backend", func(c *Config) { c.Cache.Backend = "s3" }},
		{"zero workers", func(c *Config) { c.Engine.Workers = 0 }},
		{"prefix without slash", func(c *Config) { c.Params.Prefix = "robo" }},
		{"bot token without chat", func(c *Config) { c.Telegram.BotToken = "t" }},
		{"empty ticker", func(c *Config) { c.Instruments = []model.Instrument{{Threshold: 1}} }},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }},
		{"unknown params backend", func(c *Config) { c.Params.Backend = "vault" }},
		{"unknown registry backend", func(c *Config) { c.Registry.Backend = "csv" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, model.ErrConfiguration) {
				t.Errorf("expected ErrConfiguration, got %v", err)
			}
		})
	}
}
