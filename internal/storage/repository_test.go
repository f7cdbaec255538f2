package storage

import (
	"context"
	"reflect"
	"strings"
	"testing"
	"time"
)

type fakeRepo struct {
	logs     []LogEntry
	outcomes []Outcome
	closed   int
}

func (f *fakeRepo) EnsureSchema(ctx context.Context) error { return nil }
func (f *fakeRepo) AppendLog(ctx context.Context, e LogEntry) error {
	f.logs = append(f.logs, e)
	return nil
}
func (f *fakeRepo) InsertOutcome(ctx context.Context, o Outcome) error {
	f.outcomes = append(f.outcomes, o)
	return nil
}
func (f *fakeRepo) Close() { f.closed++ }

func TestRegisterAndNew(t *testing.T) {
	repo := &fakeRepo{}
	var gotDSN string
	Register("fake-test", func(ctx context.Context, cfg Config) (RunRepository, error) {
		gotDSN = cfg.DSN
		return repo, nil
	})

	got, err := New(context.Background(), Config{Kind: "fake-test", DSN: "mem"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got != repo || gotDSN != "mem" {
		t.Fatalf("New returned %v dsn=%q", got, gotDSN)
	}

	found := false
	for _, k := range Kinds() {
		if k == "fake-test" {
			found = true
		}
	}
	if !found {
		t.Fatalf("Kinds() missing fake-test: %v", Kinds())
	}
}

func TestRegister_PanicsOnDuplicateAndEmpty(t *testing.T) {
	Register("dup-test", func(ctx context.Context, cfg Config) (RunRepository, error) { return &fakeRepo{}, nil })

	tests := []struct {
		name string
		fn   func()
	}{
		{name: "duplicate", fn: func() {
			Register("dup-test", func(ctx context.Context, cfg Config) (RunRepository, error) { return nil, nil })
		}},
		{name: "empty_kind", fn: func() {
			Register("", func(ctx context.Context, cfg Config) (RunRepository, error) { return nil, nil })
		}},
		{name: "nil_factory", fn: func() { Register("nil-test", nil) }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Fatalf("expected panic")
				}
			}()
			tc.fn()
		})
	}
}

func TestNew_Errors(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatalf("expected error for empty kind")
	}
	_, err := New(context.Background(), Config{Kind: "does-not-exist"})
	if err == nil || !strings.Contains(err.Error(), "does-not-exist") {
		t.Fatalf("expected unsupported kind error, got %v", err)
	}
}

func TestOutcomeArgs(t *testing.T) {
	started := time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local)
	got := OutcomeArgs(Outcome{
		Target:      "flood_information",
		Fetched:     true,
		Populated:   2,
		Defaulted:   0,
		SkippedRows: 1,
		Duration:    1500 * time.Millisecond,
		StartedAt:   started,
	})
	want := []any{"flood_information", 1, 2, 0, 1, int64(1500), "2024-01-02 03:04:05"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("OutcomeArgs()=%v, want %v", got, want)
	}
	if len(got) != len(OutcomeColumns) {
		t.Fatalf("args/columns mismatch: %d vs %d", len(got), len(OutcomeColumns))
	}
}
