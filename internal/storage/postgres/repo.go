package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"pagasa/internal/storage"
)

// Default table names; both may be schema-qualified ("ops.run_log").
const (
	logTable     = "run_log"
	outcomeTable = "run_outcome"
)

// execer is the subset of *pgxpool.Pool the repository uses.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repo implements storage.RunRepository for Postgres.
type Repo struct {
	pool  *pgxpool.Pool
	exec  execer
	close func()
}

func init() {
	storage.Register("postgres", New)
}

// New creates a pool for cfg.DSN and verifies connectivity.
func New(ctx context.Context, cfg storage.Config) (storage.RunRepository, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Repo{pool: pool, exec: pool, close: pool.Close}, nil
}

// Close closes the connection pool.
func (r *Repo) Close() {
	if r.close != nil {
		r.close()
	}
}

// EnsureSchema creates run_log and run_outcome if missing.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	for _, stmt := range buildSchemaSQL(logTable, outcomeTable) {
		if _, err := r.exec.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres ensure schema: %w", err)
		}
	}
	return nil
}

// AppendLog inserts one run-log row.
func (r *Repo) AppendLog(ctx context.Context, e storage.LogEntry) error {
	_, err := r.exec.Exec(ctx, buildInsertSQL(logTable, []string{"message", "logged_at"}),
		e.Message, e.LoggedAt.Format(storage.TimestampLayout))
	return err
}

// InsertOutcome inserts one run_outcome row.
func (r *Repo) InsertOutcome(ctx context.Context, o storage.Outcome) error {
	_, err := r.exec.Exec(ctx, buildInsertSQL(outcomeTable, storage.OutcomeColumns), storage.OutcomeArgs(o)...)
	return err
}

func buildSchemaSQL(logTbl, outcomeTbl string) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id BIGSERIAL PRIMARY KEY,
	message TEXT NOT NULL,
	logged_at TEXT NOT NULL
)`, tableIdent(logTbl)),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id BIGSERIAL PRIMARY KEY,
	target TEXT NOT NULL,
	fetched INTEGER NOT NULL,
	populated INTEGER NOT NULL,
	defaulted INTEGER NOT NULL,
	skipped_rows INTEGER NOT NULL,
	duration_ms BIGINT NOT NULL,
	started_at TEXT NOT NULL
)`, tableIdent(outcomeTbl)),
	}
}

// buildInsertSQL returns a single-row INSERT with $n placeholders.
func buildInsertSQL(table string, columns []string) string {
	cols := make([]string, len(columns))
	ph := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = pgx.Identifier{c}.Sanitize()
		ph[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", tableIdent(table), strings.Join(cols, ", "), strings.Join(ph, ", "))
}

// tableIdent quotes a possibly schema-qualified name: ops.run_log -> "ops"."run_log".
func tableIdent(name string) string {
	return pgx.Identifier(strings.Split(name, ".")).Sanitize()
}
