package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	// Registers the "sqlserver" database/sql driver.
	_ "github.com/microsoft/go-mssqldb"

	"pagasa/internal/storage"
)

const (
	logTable     = "dbo.run_log"
	outcomeTable = "dbo.run_outcome"
)

// dbConn is the subset of *sql.DB used by Repo, kept small for tests.
type dbConn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	Close() error
}

// Repo implements storage.RunRepository for Microsoft SQL Server.
type Repo struct {
	db dbConn
}

func init() {
	storage.Register("mssql", New)
}

// New opens cfg.DSN with the "sqlserver" driver and validates connectivity
// via PingContext.
func New(ctx context.Context, cfg storage.Config) (storage.RunRepository, error) {
	raw, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, err
	}
	raw.SetMaxOpenConns(8)
	raw.SetMaxIdleConns(8)

	if err := raw.PingContext(ctx); err != nil {
		_ = raw.Close()
		return nil, err
	}
	return &Repo{db: raw}, nil
}

// Close releases database resources held by this repository.
func (r *Repo) Close() {
	if r == nil || r.db == nil {
		return
	}
	_ = r.db.Close()
}

// EnsureSchema creates the tables when OBJECT_ID reports them missing.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	for _, stmt := range buildSchemaSQL(logTable, outcomeTable) {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("mssql ensure schema: %w", err)
		}
	}
	return nil
}

// AppendLog inserts one run-log row.
func (r *Repo) AppendLog(ctx context.Context, e storage.LogEntry) error {
	_, err := r.db.ExecContext(ctx, buildInsertSQL(logTable, []string{"message", "logged_at"}),
		e.Message, e.LoggedAt.Format(storage.TimestampLayout))
	return err
}

// InsertOutcome inserts one run_outcome row.
func (r *Repo) InsertOutcome(ctx context.Context, o storage.Outcome) error {
	_, err := r.db.ExecContext(ctx, buildInsertSQL(outcomeTable, storage.OutcomeColumns), storage.OutcomeArgs(o)...)
	return err
}

func buildSchemaSQL(logTbl, outcomeTbl string) []string {
	return []string{
		fmt.Sprintf(`IF OBJECT_ID(N'%s', N'U') IS NULL
CREATE TABLE %s (
	id BIGINT IDENTITY(1,1) PRIMARY KEY,
	message NVARCHAR(MAX) NOT NULL,
	logged_at NVARCHAR(19) NOT NULL
)`, strings.ReplaceAll(logTbl, "'", "''"), mssqlTableIdent(logTbl)),
		fmt.Sprintf(`IF OBJECT_ID(N'%s', N'U') IS NULL
CREATE TABLE %s (
	id BIGINT IDENTITY(1,1) PRIMARY KEY,
	target NVARCHAR(200) NOT NULL,
	fetched INT NOT NULL,
	populated INT NOT NULL,
	defaulted INT NOT NULL,
	skipped_rows INT NOT NULL,
	duration_ms BIGINT NOT NULL,
	started_at NVARCHAR(19) NOT NULL
)`, strings.ReplaceAll(outcomeTbl, "'", "''"), mssqlTableIdent(outcomeTbl)),
	}
}

// buildInsertSQL returns a single-row INSERT with @pN placeholders.
func buildInsertSQL(table string, columns []string) string {
	cols := make([]string, len(columns))
	ph := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = mssqlIdent(c)
		ph[i] = fmt.Sprintf("@p%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", mssqlTableIdent(table), strings.Join(cols, ", "), strings.Join(ph, ", "))
}

func mssqlIdent(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

// mssqlTableIdent returns a bracket-quoted identifier for schema-qualified names.
//
//	"dbo.run_log" -> [dbo].[run_log]
func mssqlTableIdent(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = mssqlIdent(p)
	}
	return strings.Join(parts, ".")
}
