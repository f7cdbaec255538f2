package mssql

import (
	"context"
	"database/sql"
	"reflect"
	"strings"
	"testing"
	"time"

	"pagasa/internal/storage"
)

type fakeResult struct{}

func (fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (fakeResult) RowsAffected() (int64, error) { return 1, nil }

type fakeDB struct {
	queries []string
	args    [][]any
	closed  bool
}

func (f *fakeDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	f.queries = append(f.queries, query)
	f.args = append(f.args, args)
	return fakeResult{}, nil
}

func (f *fakeDB) Close() error {
	f.closed = true
	return nil
}

func TestMssqlTableIdent(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "dbo.run_log", want: "[dbo].[run_log]"},
		{in: "run_log", want: "[run_log]"},
		{in: "we]ird", want: "[we]]ird]"},
	}
	for _, tc := range tests {
		if got := mssqlTableIdent(tc.in); got != tc.want {
			t.Fatalf("mssqlTableIdent(%q)=%q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestBuildInsertSQL(t *testing.T) {
	got := buildInsertSQL("dbo.run_log", []string{"message", "logged_at"})
	want := "INSERT INTO [dbo].[run_log] ([message], [logged_at]) VALUES (@p1, @p2)"
	if got != want {
		t.Fatalf("buildInsertSQL()=\n%s\nwant\n%s", got, want)
	}
}

func TestBuildSchemaSQL_IsGuarded(t *testing.T) {
	for _, stmt := range buildSchemaSQL("dbo.run_log", "dbo.run_outcome") {
		if !strings.HasPrefix(stmt, "IF OBJECT_ID(N'dbo.run_") {
			t.Fatalf("ddl not guarded by OBJECT_ID: %s", stmt)
		}
	}
}

func TestRepo_WritesAndCloses(t *testing.T) {
	db := &fakeDB{}
	r := &Repo{db: db}
	ctx := context.Background()
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local)

	if err := r.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	if err := r.AppendLog(ctx, storage.LogEntry{Message: "x ingested: 1/1 fields populated", LoggedAt: at}); err != nil {
		t.Fatalf("AppendLog: %v", err)
	}
	if err := r.InsertOutcome(ctx, storage.Outcome{Target: "x", Fetched: true, Populated: 1, StartedAt: at}); err != nil {
		t.Fatalf("InsertOutcome: %v", err)
	}

	if len(db.queries) != 4 {
		t.Fatalf("exec calls=%d, want 4", len(db.queries))
	}
	if !reflect.DeepEqual(db.args[2], []any{"x ingested: 1/1 fields populated", "2024-01-02 03:04:05"}) {
		t.Fatalf("AppendLog args=%v", db.args[2])
	}
	if !strings.HasPrefix(db.queries[3], "INSERT INTO [dbo].[run_outcome]") {
		t.Fatalf("InsertOutcome sql=%s", db.queries[3])
	}

	r.Close()
	if !db.closed {
		t.Fatalf("Close did not close the db")
	}

	var nilRepo *Repo
	nilRepo.Close()
}
