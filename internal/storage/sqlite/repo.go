package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"pagasa/internal/storage"
)

// Repo implements storage.RunRepository for SQLite.
//
// SQLite has no native timestamp type; logged_at and started_at are stored as
// TEXT in storage.TimestampLayout, the same text the CSV run log carries.
type Repo struct {
	db *sql.DB
}

func init() {
	storage.Register("sqlite", New)
}

// New opens the database at cfg.DSN (a file path or "file:" URI).
func New(ctx context.Context, cfg storage.Config) (storage.RunRepository, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	// One writer at a time; concurrent target runs serialize here.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repo{db: db}, nil
}

func (r *Repo) Close() { _ = r.db.Close() }

// EnsureSchema creates run_log and run_outcome if missing.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaSQL() {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite ensure schema: %w", err)
		}
	}
	return nil
}

// AppendLog inserts one run-log row.
func (r *Repo) AppendLog(ctx context.Context, e storage.LogEntry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO run_log (message, logged_at) VALUES (?, ?)`,
		e.Message, e.LoggedAt.Format(storage.TimestampLayout),
	)
	return err
}

// InsertOutcome inserts one run_outcome row.
func (r *Repo) InsertOutcome(ctx context.Context, o storage.Outcome) error {
	_, err := r.db.ExecContext(ctx, insertOutcomeSQL(), storage.OutcomeArgs(o)...)
	return err
}

func schemaSQL() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS run_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	message TEXT NOT NULL,
	logged_at TEXT NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS run_outcome (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	target TEXT NOT NULL,
	fetched INTEGER NOT NULL,
	populated INTEGER NOT NULL,
	defaulted INTEGER NOT NULL,
	skipped_rows INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	started_at TEXT NOT NULL
)`,
	}
}

func insertOutcomeSQL() string {
	cols := make([]string, len(storage.OutcomeColumns))
	for i, c := range storage.OutcomeColumns {
		cols[i] = sqlIdent(c)
	}
	ph := strings.TrimRight(strings.Repeat("?,", len(cols)), ",")
	return fmt.Sprintf(`INSERT INTO run_outcome (%s) VALUES (%s)`, strings.Join(cols, ", "), ph)
}

func sqlIdent(id string) string {
	// SQLite supports "quoted identifiers"
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}
