// Package config loads the scraper configuration file.
//
// Files ending in .yaml or .yml are decoded with yaml.v3; anything else is
// decoded as JSON. Every key is optional: Load fills defaults for whatever the
// file leaves out, and command-line flags override the result.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"pagasa/internal/storage"
)

// Defaults.
const (
	DefaultOutputDir   = "data/raw"
	DefaultConcurrency = 1
	DefaultTimeout     = 20 * time.Second
	DefaultRunLogKind  = "csv"
	DefaultRunLogPath  = "logs/pipeline_logs.csv"
	DefaultMetrics     = "none"
	DefaultJobName     = "pagasa-scrape"
	DefaultFlushEvery  = 10 * time.Second
	DefaultLogLevel    = "info"
)

// Configuration validation errors.
var (
	ErrMissingOutputDir   = errors.New("output_dir is required")
	ErrInvalidConcurrency = errors.New("concurrency must be at least 1")
	ErrInvalidTimeout     = errors.New("http.timeout must be non-negative")
	ErrInvalidRunLogKind  = errors.New("run_log.kind must be csv, none, or a registered storage kind")
	ErrMissingRunLogDSN   = errors.New("run_log.dsn is required for storage run logs")
	ErrInvalidMetrics     = errors.New("metrics.backend must be 'none' or 'datadog'")
	ErrInvalidFlushEvery  = errors.New("metrics.flush_every must be positive")
	ErrInvalidLogLevel    = errors.New("logging.level must be one of: debug, info, warn, error")
	ErrDuplicateTarget    = errors.New("targets lists a name twice")
)

// Config is the complete scraper configuration.
type Config struct {
	OutputDir   string        `json:"output_dir" yaml:"output_dir"`
	Targets     []string      `json:"targets" yaml:"targets"`
	TargetsFile string        `json:"targets_file" yaml:"targets_file"`
	Concurrency int           `json:"concurrency" yaml:"concurrency"`
	HTTP        HTTPConfig    `json:"http" yaml:"http"`
	RunLog      RunLogConfig  `json:"run_log" yaml:"run_log"`
	Metrics     MetricsConfig `json:"metrics" yaml:"metrics"`
	Logging     LoggingConfig `json:"logging" yaml:"logging"`
}

// HTTPConfig controls page fetching.
type HTTPConfig struct {
	Timeout   Duration `json:"timeout" yaml:"timeout"`
	UserAgent string   `json:"user_agent" yaml:"user_agent"`
}

// RunLogConfig selects the run history sink.
type RunLogConfig struct {
	Kind string `json:"kind" yaml:"kind"`
	Path string `json:"path" yaml:"path"`
	DSN  string `json:"dsn" yaml:"dsn"`
}

// MetricsConfig selects the metrics backend.
type MetricsConfig struct {
	Backend    string   `json:"backend" yaml:"backend"`
	JobName    string   `json:"job_name" yaml:"job_name"`
	Tags       []string `json:"tags" yaml:"tags"`
	FlushEvery Duration `json:"flush_every" yaml:"flush_every"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level string `json:"level" yaml:"level"`
}

// Duration is a time.Duration written as a Go duration string ("20s") in
// config files. Bare numbers are read as seconds.
type Duration time.Duration

// D returns d as a time.Duration.
func (d Duration) D() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// MarshalJSON writes the duration string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts "20s" or 20.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		return d.parse(s)
	}
	var secs float64
	if err := json.Unmarshal(b, &secs); err != nil {
		return fmt.Errorf("duration: %s", b)
	}
	*d = Duration(secs * float64(time.Second))
	return nil
}

// MarshalYAML writes the duration string.
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// UnmarshalYAML accepts "20s" or 20.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var secs float64
	if node.Tag == "!!int" || node.Tag == "!!float" {
		if err := node.Decode(&secs); err != nil {
			return err
		}
		*d = Duration(secs * float64(time.Second))
		return nil
	}
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	return d.parse(s)
}

func (d *Duration) parse(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// Default returns a Config with every default filled in.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero-valued keys. Concurrency and durations are only
// defaulted when zero so that negative values still reach Validate.
func (c *Config) ApplyDefaults() {
	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}
	if c.Concurrency == 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.HTTP.Timeout == 0 {
		c.HTTP.Timeout = Duration(DefaultTimeout)
	}
	if c.RunLog.Kind == "" {
		c.RunLog.Kind = DefaultRunLogKind
	}
	if c.RunLog.Kind == DefaultRunLogKind && c.RunLog.Path == "" {
		c.RunLog.Path = DefaultRunLogPath
	}
	if c.Metrics.Backend == "" {
		c.Metrics.Backend = DefaultMetrics
	}
	if c.Metrics.JobName == "" {
		c.Metrics.JobName = DefaultJobName
	}
	if c.Metrics.FlushEvery == 0 {
		c.Metrics.FlushEvery = Duration(DefaultFlushEvery)
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
}

// Load reads path, applies defaults and expands environment variables in the
// run log DSN. It does not validate; call Validate on the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	}

	cfg.RunLog.DSN = os.ExpandEnv(cfg.RunLog.DSN)
	cfg.ApplyDefaults()
	return &cfg, nil
}

// Severity grades a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one validation finding. Err is the matching sentinel for error
// issues and nil for warnings.
type Issue struct {
	Severity Severity
	Path     string
	Message  string
	Err      error
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s: %s", i.Severity, i.Path, i.Message)
}

func errIssue(path string, err error) Issue {
	return Issue{Severity: SeverityError, Path: path, Message: err.Error(), Err: err}
}

func warnIssue(path, msg string) Issue {
	return Issue{Severity: SeverityWarning, Path: path, Message: msg}
}

// Validate returns every problem found in cfg. Storage run-log kinds are
// checked against the backends registered with the storage package.
func Validate(cfg *Config) []Issue {
	var issues []Issue

	if strings.TrimSpace(cfg.OutputDir) == "" {
		issues = append(issues, errIssue("output_dir", ErrMissingOutputDir))
	}
	if cfg.Concurrency < 1 {
		issues = append(issues, errIssue("concurrency", ErrInvalidConcurrency))
	}
	if cfg.HTTP.Timeout < 0 {
		issues = append(issues, errIssue("http.timeout", ErrInvalidTimeout))
	}

	seen := make(map[string]bool, len(cfg.Targets))
	for i, name := range cfg.Targets {
		if seen[name] {
			issues = append(issues, errIssue(fmt.Sprintf("targets[%d]", i), fmt.Errorf("%w: %s", ErrDuplicateTarget, name)))
		}
		seen[name] = true
	}

	switch kind := cfg.RunLog.Kind; kind {
	case "csv":
		if cfg.RunLog.DSN != "" {
			issues = append(issues, warnIssue("run_log.dsn", "ignored for csv run logs"))
		}
	case "none":
	default:
		if !slices.Contains(storage.Kinds(), kind) {
			issues = append(issues, errIssue("run_log.kind", fmt.Errorf("%w: %q", ErrInvalidRunLogKind, kind)))
		} else if strings.TrimSpace(cfg.RunLog.DSN) == "" {
			issues = append(issues, errIssue("run_log.dsn", ErrMissingRunLogDSN))
		}
		if cfg.RunLog.Path != "" {
			issues = append(issues, warnIssue("run_log.path", "ignored for storage run logs"))
		}
	}

	switch cfg.Metrics.Backend {
	case "none":
		if len(cfg.Metrics.Tags) > 0 {
			issues = append(issues, warnIssue("metrics.tags", "ignored when metrics.backend is none"))
		}
	case "datadog":
		if cfg.Metrics.FlushEvery <= 0 {
			issues = append(issues, errIssue("metrics.flush_every", ErrInvalidFlushEvery))
		}
		if os.Getenv("DD_API_KEY") == "" {
			issues = append(issues, warnIssue("metrics.backend", "DD_API_KEY is not set; submissions will be rejected"))
		}
	default:
		issues = append(issues, errIssue("metrics.backend", ErrInvalidMetrics))
	}

	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		issues = append(issues, errIssue("logging.level", ErrInvalidLogLevel))
	}

	return issues
}

// HasErrors reports whether any issue has error severity.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}
