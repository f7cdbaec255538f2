package runlog

import (
	"context"
	"sync"
	"time"

	"pagasa/internal/storage"
)

// SQL writes run history through a storage.RunRepository.
type SQL struct {
	repo storage.RunRepository
	now  func() time.Time

	once sync.Once
}

// NewSQL wraps repo. The caller must have ensured the schema.
func NewSQL(repo storage.RunRepository) *SQL {
	return &SQL{repo: repo, now: time.Now}
}

// LogRun inserts one run_log row.
func (s *SQL) LogRun(ctx context.Context, message string) error {
	return s.repo.AppendLog(ctx, storage.LogEntry{Message: message, LoggedAt: s.now()})
}

// RecordOutcome inserts one run_outcome row.
func (s *SQL) RecordOutcome(ctx context.Context, o storage.Outcome) error {
	return s.repo.InsertOutcome(ctx, o)
}

// Close closes the repository once.
func (s *SQL) Close() error {
	s.once.Do(s.repo.Close)
	return nil
}
