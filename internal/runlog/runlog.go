// Package runlog records one line of run history per target run.
//
// Every sink appends; nothing ever rewrites earlier rows. The CSV sink is the
// default and keeps the historical logs/pipeline_logs.csv layout
// (message,timestamp). SQL sinks write through a storage.RunRepository and
// also keep one run_outcome row per target.
package runlog

import (
	"context"
	"fmt"
	"time"

	"pagasa/internal/storage"
)

// Kinds understood by Open in addition to the registered storage backends.
const (
	KindCSV  = "csv"
	KindNone = "none"
)

// DefaultPath is the CSV run log location.
const DefaultPath = "logs/pipeline_logs.csv"

// Sink receives run-log rows and target outcomes. Implementations are safe for
// concurrent use.
type Sink interface {
	LogRun(ctx context.Context, message string) error
	RecordOutcome(ctx context.Context, o storage.Outcome) error
	Close() error
}

// Config selects and configures a sink.
type Config struct {
	Kind string // csv (default), none, or a storage kind
	Path string // csv only
	DSN  string // storage kinds only
}

// Open returns the sink described by cfg. Storage-backed sinks have their
// schema ensured before Open returns.
func Open(ctx context.Context, cfg Config) (Sink, error) {
	switch cfg.Kind {
	case "", KindCSV:
		path := cfg.Path
		if path == "" {
			path = DefaultPath
		}
		return NewCSV(path), nil
	case KindNone:
		return Nop{}, nil
	}

	repo, err := storage.New(ctx, storage.Config{Kind: cfg.Kind, DSN: cfg.DSN})
	if err != nil {
		return nil, fmt.Errorf("open run log %s: %w", cfg.Kind, err)
	}
	if err := repo.EnsureSchema(ctx); err != nil {
		repo.Close()
		return nil, fmt.Errorf("open run log %s: %w", cfg.Kind, err)
	}
	return NewSQL(repo), nil
}

// Message formats the run-log line for a target run.
func Message(target string, fetched bool, populated, total int) string {
	if !fetched {
		return target + " fetch failed: defaults written"
	}
	return fmt.Sprintf("%s ingested: %d/%d fields populated", target, populated, total)
}

// FormatTimestamp renders t in the run-log layout (local time, seconds).
func FormatTimestamp(t time.Time) string {
	return t.Local().Format(storage.TimestampLayout)
}

// Nop discards everything.
type Nop struct{}

func (Nop) LogRun(context.Context, string) error                 { return nil }
func (Nop) RecordOutcome(context.Context, storage.Outcome) error { return nil }
func (Nop) Close() error                                         { return nil }
