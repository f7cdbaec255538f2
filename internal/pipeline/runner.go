// Package pipeline runs extraction targets end to end: fetch the page, read
// every field, write one JSON file per field, then record the run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	ex "pagasa/internal/extracthtml"
	"pagasa/internal/logging"
	"pagasa/internal/metrics"
	"pagasa/internal/persist"
	"pagasa/internal/runlog"
	"pagasa/internal/storage"
)

// Target statuses, as reported in Outcome.Status and the targets metric.
const (
	StatusOK     = "ok"
	StatusAbsent = "absent"
	StatusFailed = "failed"
)

// Fetcher returns the parsed page at url, or nil (Absent) when it could not be
// retrieved. *extracthtml.Loader implements it.
type Fetcher interface {
	Fetch(ctx context.Context, url string) *ex.Document
}

// Outcome summarizes one target run.
type Outcome struct {
	Target      string
	Fetched     bool
	Populated   int
	Defaulted   int
	SkippedRows int

	// PopulatedFields and DefaultedFields name the fields behind the counts,
	// in declaration order.
	PopulatedFields []string
	DefaultedFields []string

	Files     []string
	StartedAt time.Time
	Duration  time.Duration

	// Err joins every write and run-log failure, or holds the context error
	// of a canceled run. Defaulted fields are not errors.
	Err error
}

// Total is the number of fields the target declares.
func (o Outcome) Total() int { return o.Populated + o.Defaulted }

// Status is "failed" when anything could not be written, "absent" when the
// page could not be fetched, and "ok" otherwise.
func (o Outcome) Status() string {
	switch {
	case o.Err != nil:
		return StatusFailed
	case !o.Fetched:
		return StatusAbsent
	default:
		return StatusOK
	}
}

// Runner executes targets. The zero value is not usable; use NewRunner.
type Runner struct {
	fetcher     Fetcher
	sink        runlog.Sink
	outDir      string
	concurrency int
	logger      *slog.Logger
	now         func() time.Time
}

// Option customises a Runner.
type Option func(*Runner)

// WithLogger sets the runner's logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithConcurrency sets how many targets RunAll runs at once. Values below 1
// mean 1.
func WithConcurrency(n int) Option {
	return func(r *Runner) { r.concurrency = max(n, 1) }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRunner returns a Runner writing below outDir. A nil sink discards run
// history.
func NewRunner(fetcher Fetcher, sink runlog.Sink, outDir string, opts ...Option) *Runner {
	if sink == nil {
		sink = runlog.Nop{}
	}
	r := &Runner{
		fetcher:     fetcher,
		sink:        sink,
		outDir:      outDir,
		concurrency: 1,
		logger:      logging.Discard(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunTarget fetches t's page and processes it. A failed fetch still writes
// every field's default, unless ctx was canceled meanwhile: then nothing is
// written and the outcome carries ctx.Err().
func (r *Runner) RunTarget(ctx context.Context, t ex.Target) Outcome {
	start := r.now()
	r.logger.Info("target start", "target", t.Name, "url", t.URL)
	doc := r.fetcher.Fetch(ctx, t.URL)
	if err := ctx.Err(); err != nil {
		r.logger.Warn("target canceled, files left untouched", "target", t.Name, "err", err)
		return Outcome{Target: t.Name, StartedAt: start, Duration: r.now().Sub(start), Err: err}
	}
	return r.process(ctx, t, doc, start)
}

// RunDocument processes t against an already loaded page. A nil doc is
// treated as Absent.
func (r *Runner) RunDocument(ctx context.Context, t ex.Target, doc *ex.Document) Outcome {
	return r.process(ctx, t, doc, r.now())
}

func (r *Runner) process(ctx context.Context, t ex.Target, doc *ex.Document, start time.Time) Outcome {
	o := Outcome{Target: t.Name, Fetched: !doc.Absent(), StartedAt: start}
	log := r.logger.With("target", t.Name)

	dir := t.Dir
	if dir == "" {
		dir = t.Name
	}

	var errs []error
	for _, res := range ex.ExtractTarget(doc, t) {
		if res.Populated {
			o.Populated++
			o.PopulatedFields = append(o.PopulatedFields, res.Field.Name)
		} else {
			o.Defaulted++
			o.DefaultedFields = append(o.DefaultedFields, res.Field.Name)
			if o.Fetched {
				log.Debug("field missing, default written", "field", res.Field.Name)
			}
		}
		o.SkippedRows += res.SkippedRows

		path := filepath.Join(r.outDir, dir, res.Field.OutputFile())
		if err := persist.WriteJSON(path, res.Output()); err != nil {
			log.Error("write failed", "field", res.Field.Name, "path", path, "err", err)
			errs = append(errs, fmt.Errorf("%s.%s: %w", t.Name, res.Field.Name, err))
			continue
		}
		o.Files = append(o.Files, path)
	}
	if o.SkippedRows > 0 {
		log.Warn("malformed rows skipped", "rows", o.SkippedRows)
	}

	if err := r.sink.LogRun(ctx, runlog.Message(t.Name, o.Fetched, o.Populated, o.Total())); err != nil {
		log.Error("run log append failed", "err", err)
		errs = append(errs, fmt.Errorf("%s: run log: %w", t.Name, err))
	}

	o.Duration = r.now().Sub(start)
	if err := r.sink.RecordOutcome(ctx, storage.Outcome{
		Target:      o.Target,
		Fetched:     o.Fetched,
		Populated:   o.Populated,
		Defaulted:   o.Defaulted,
		SkippedRows: o.SkippedRows,
		Duration:    o.Duration,
		StartedAt:   o.StartedAt,
	}); err != nil {
		log.Error("run outcome insert failed", "err", err)
		errs = append(errs, fmt.Errorf("%s: run outcome: %w", t.Name, err))
	}

	o.Err = errors.Join(errs...)
	metrics.RecordTarget(t.Name, o.Status(), o.Populated, o.Defaulted, o.SkippedRows, o.Duration)
	log.Info("target done",
		"status", o.Status(),
		"populated", o.Populated,
		"total", o.Total(),
		"duration", o.Duration,
	)
	return o
}

// RunAll runs targets with the configured concurrency and returns their
// outcomes in input order. Targets not yet started when ctx is canceled are
// skipped, so existing files are never replaced by defaults. The returned
// error joins the outcome errors.
func (r *Runner) RunAll(ctx context.Context, ts []ex.Target) ([]Outcome, error) {
	return r.runEach(ctx, ts, func(t ex.Target) Outcome {
		return r.RunTarget(ctx, t)
	})
}

// RunPages runs targets against pages loaded ahead of time, keyed by target
// name (see extracthtml.LoadPageDir). Targets without a page are left out of
// the result; nothing is fetched.
func (r *Runner) RunPages(ctx context.Context, ts []ex.Target, pages map[string]*ex.Document) ([]Outcome, error) {
	var present []ex.Target
	for _, t := range ts {
		if _, ok := pages[t.Name]; !ok {
			r.logger.Warn("no saved page, target skipped", "target", t.Name)
			continue
		}
		present = append(present, t)
	}
	return r.runEach(ctx, present, func(t ex.Target) Outcome {
		return r.RunDocument(ctx, t, pages[t.Name])
	})
}

func (r *Runner) runEach(ctx context.Context, ts []ex.Target, run func(ex.Target) Outcome) ([]Outcome, error) {
	outcomes := make([]Outcome, len(ts))

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, t := range ts {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				outcomes[i] = Outcome{Target: t.Name, StartedAt: r.now(), Err: err}
				return nil
			}
			outcomes[i] = run(t)
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, o := range outcomes {
		if o.Err != nil {
			errs = append(errs, o.Err)
		}
	}
	return outcomes, errors.Join(errs...)
}
