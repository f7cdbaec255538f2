package runlog

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"pagasa/internal/storage"
)

var csvHeader = []string{"message", "timestamp"}

// CSV appends (message, timestamp) rows to a file. The header is written once,
// when the file is created or empty.
type CSV struct {
	path string
	now  func() time.Time

	mu sync.Mutex
}

// NewCSV returns a CSV sink for path. The file is created on first append.
func NewCSV(path string) *CSV {
	return &CSV{path: path, now: time.Now}
}

// Path returns the file the sink appends to.
func (c *CSV) Path() string { return c.path }

// LogRun appends one row. Each call opens the file in append mode, writes and
// closes it, so concurrent processes never truncate each other's rows.
func (c *CSV) LogRun(ctx context.Context, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("run log dir: %w", err)
	}
	f, err := os.OpenFile(c.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open run log: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("stat run log: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		_ = w.Write(csvHeader)
	}
	_ = w.Write([]string{message, FormatTimestamp(c.now())})
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return fmt.Errorf("append run log: %w", err)
	}
	return f.Close()
}

// RecordOutcome is a no-op: the CSV layout carries messages only.
func (c *CSV) RecordOutcome(context.Context, storage.Outcome) error { return nil }

// Close is a no-op; the file is closed after every append.
func (c *CSV) Close() error { return nil }

// ReadCSV returns the (message, timestamp) rows of a run log, header excluded.
func ReadCSV(path string) ([][2]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse run log: %w", err)
	}
	out := make([][2]string, 0, len(records))
	for i, rec := range records {
		if i == 0 && len(rec) == 2 && rec[0] == csvHeader[0] && rec[1] == csvHeader[1] {
			continue
		}
		if len(rec) != 2 {
			return nil, fmt.Errorf("parse run log: row %d has %d columns", i+1, len(rec))
		}
		out = append(out, [2]string{rec[0], rec[1]})
	}
	return out, nil
}
