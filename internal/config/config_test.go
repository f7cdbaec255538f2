package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "pagasa/internal/storage/sqlite"
)

// Helper to create a temp config file.
func createTempConfigFile(t *testing.T, name, content string) string {
	t.Helper()
	tmpDir := t.TempDir()

	configPath := filepath.Join(tmpDir, name)
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create temp config file: %v", err)
	}

	return configPath
}

const validConfigYAML = `
output_dir: "./out"
targets: [daily_temperature, weather_advisory]
concurrency: 3
http:
  timeout: 5s
  user_agent: "test-agent"
run_log:
  kind: sqlite
  dsn: "${RUNLOG_DIR}/runs.db"
metrics:
  backend: none
logging:
  level: debug
`

func TestLoad_YAML(t *testing.T) {
	t.Setenv("RUNLOG_DIR", "/var/lib/pagasa")
	path := createTempConfigFile(t, "config.yaml", validConfigYAML)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.OutputDir != "./out" || cfg.Concurrency != 3 {
		t.Errorf("OutputDir=%q Concurrency=%d", cfg.OutputDir, cfg.Concurrency)
	}
	if len(cfg.Targets) != 2 || cfg.Targets[1] != "weather_advisory" {
		t.Errorf("Targets=%v", cfg.Targets)
	}
	if cfg.HTTP.Timeout.D() != 5*time.Second {
		t.Errorf("Timeout=%v, want 5s", cfg.HTTP.Timeout)
	}
	if cfg.RunLog.DSN != "/var/lib/pagasa/runs.db" {
		t.Errorf("DSN=%q, want env-expanded", cfg.RunLog.DSN)
	}
	if cfg.RunLog.Path != "" {
		t.Errorf("Path=%q, want empty for sqlite", cfg.RunLog.Path)
	}
	if cfg.Metrics.JobName != DefaultJobName {
		t.Errorf("JobName=%q, want default", cfg.Metrics.JobName)
	}

	if issues := Validate(cfg); HasErrors(issues) {
		t.Fatalf("unexpected issues: %v", issues)
	}
}

func TestLoad_JSONDefaults(t *testing.T) {
	path := createTempConfigFile(t, "config.json", `{"http": {"timeout": 30}}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.HTTP.Timeout.D() != 30*time.Second {
		t.Errorf("Timeout=%v, want 30s from bare seconds", cfg.HTTP.Timeout)
	}
	if cfg.OutputDir != DefaultOutputDir {
		t.Errorf("OutputDir=%q, want %q", cfg.OutputDir, DefaultOutputDir)
	}
	if cfg.RunLog.Kind != "csv" || cfg.RunLog.Path != DefaultRunLogPath {
		t.Errorf("RunLog=%+v, want csv at default path", cfg.RunLog)
	}
	if cfg.Concurrency != 1 || cfg.Metrics.Backend != "none" || cfg.Logging.Level != "info" {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if issues := Validate(cfg); len(issues) != 0 {
		t.Errorf("default config issues: %v", issues)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{name: "bad_yaml", file: "c.yaml", content: "output_dir: [unclosed"},
		{name: "bad_json", file: "c.json", content: "{"},
		{name: "unknown_json_key", file: "c.json", content: `{"outputdir": "x"}`},
		{name: "bad_duration", file: "c.yml", content: "http:\n  timeout: soon\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := createTempConfigFile(t, tc.file, tc.content)
			if _, err := Load(path); err == nil {
				t.Fatalf("expected error")
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		path   string
		want   error
	}{
		{name: "empty_output", mutate: func(c *Config) { c.OutputDir = " " }, path: "output_dir", want: ErrMissingOutputDir},
		{name: "zero_concurrency", mutate: func(c *Config) { c.Concurrency = -1 }, path: "concurrency", want: ErrInvalidConcurrency},
		{name: "negative_timeout", mutate: func(c *Config) { c.HTTP.Timeout = Duration(-time.Second) }, path: "http.timeout", want: ErrInvalidTimeout},
		{name: "duplicate_target", mutate: func(c *Config) { c.Targets = []string{"a", "a"} }, path: "targets[1]", want: ErrDuplicateTarget},
		{name: "unknown_runlog", mutate: func(c *Config) { c.RunLog.Kind = "mongo" }, path: "run_log.kind", want: ErrInvalidRunLogKind},
		{name: "sqlite_without_dsn", mutate: func(c *Config) { c.RunLog.Kind = "sqlite" }, path: "run_log.dsn", want: ErrMissingRunLogDSN},
		{name: "unknown_metrics", mutate: func(c *Config) { c.Metrics.Backend = "statsd" }, path: "metrics.backend", want: ErrInvalidMetrics},
		{name: "datadog_flush", mutate: func(c *Config) { c.Metrics.Backend = "datadog"; c.Metrics.FlushEvery = -1 }, path: "metrics.flush_every", want: ErrInvalidFlushEvery},
		{name: "bad_level", mutate: func(c *Config) { c.Logging.Level = "verbose" }, path: "logging.level", want: ErrInvalidLogLevel},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			cfg.RunLog.Path = ""
			tc.mutate(cfg)

			issues := Validate(cfg)
			if !HasErrors(issues) {
				t.Fatalf("expected an error issue, got %v", issues)
			}
			found := false
			for _, iss := range issues {
				if iss.Path == tc.path && errors.Is(iss.Err, tc.want) {
					found = true
				}
			}
			if !found {
				t.Fatalf("issues=%v, want %s: %v", issues, tc.path, tc.want)
			}
		})
	}
}

func TestValidate_Warnings(t *testing.T) {
	cfg := Default()
	cfg.RunLog.DSN = "ignored"
	cfg.Metrics.Tags = []string{"env:test"}

	issues := Validate(cfg)
	if HasErrors(issues) {
		t.Fatalf("warnings reported as errors: %v", issues)
	}
	if len(issues) != 2 {
		t.Fatalf("issues=%v, want 2 warnings", issues)
	}
	for _, iss := range issues {
		if iss.Severity != SeverityWarning || iss.Err != nil {
			t.Errorf("issue %v: want warning without sentinel", iss)
		}
	}
}
