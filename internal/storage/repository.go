package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// TimestampLayout is the run-log timestamp format (local time, second precision).
const TimestampLayout = "2006-01-02 15:04:05"

// Config is the minimal configuration needed to open a run-history repository.
//
// Edge cases:
//   - Kind must be non-empty and must match a registered backend kind.
//   - DSN is passed through to the backend factory; validation is backend-specific.
type Config struct {
	Kind string
	DSN  string
}

// LogEntry is one run-log row.
type LogEntry struct {
	Message  string
	LoggedAt time.Time
}

// Outcome is the stored summary of one target run.
type Outcome struct {
	Target      string
	Fetched     bool
	Populated   int
	Defaulted   int
	SkippedRows int
	Duration    time.Duration
	StartedAt   time.Time
}

// RunRepository persists run history: the append-only run log and one outcome
// row per target run.
//
// Two tables are used by every backend:
//
//	run_log(message, logged_at)
//	run_outcome(target, fetched, populated, defaulted, skipped_rows, duration_ms, started_at)
type RunRepository interface {
	// EnsureSchema creates the tables if they do not exist. It is idempotent
	// and safe to run on every invocation.
	EnsureSchema(ctx context.Context) error

	// AppendLog inserts one run-log row. Rows are never updated or deleted.
	AppendLog(ctx context.Context, e LogEntry) error

	// InsertOutcome inserts one run_outcome row.
	InsertOutcome(ctx context.Context, o Outcome) error

	// Close releases backend resources. Treat it as "call once".
	Close()
}

// Factory opens a RunRepository for cfg.
type Factory func(ctx context.Context, cfg Config) (RunRepository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register registers a backend under a kind (e.g. "postgres", "sqlite").
//
// Call Register from an init() function in a backend package; the kind string
// becomes the lookup key used by New.
//
// Panics:
//   - If kind is empty.
//   - If f is nil.
//   - If kind is already registered.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("storage: Register called with empty kind")
	}
	if f == nil {
		panic("storage: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("storage: factory already registered for kind=%q", kind))
	}

	factories[kind] = f
}

// New constructs a RunRepository using the registered backend factory.
//
// Errors:
//   - Returns an error if cfg.Kind is empty or unsupported.
//   - Returns whatever error the registered factory returns.
func New(ctx context.Context, cfg Config) (RunRepository, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("storage: missing Kind")
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// Kinds returns the registered backend kinds, sorted.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()

	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// OutcomeColumns is the insert column order shared by all backends.
var OutcomeColumns = []string{"target", "fetched", "populated", "defaulted", "skipped_rows", "duration_ms", "started_at"}

// OutcomeArgs returns o as insert arguments in OutcomeColumns order. Booleans
// are stored as 0/1 and timestamps use TimestampLayout so every backend
// stores the same text.
func OutcomeArgs(o Outcome) []any {
	fetched := 0
	if o.Fetched {
		fetched = 1
	}
	return []any{
		o.Target,
		fetched,
		o.Populated,
		o.Defaulted,
		o.SkippedRows,
		o.Duration.Milliseconds(),
		o.StartedAt.Format(TimestampLayout),
	}
}
