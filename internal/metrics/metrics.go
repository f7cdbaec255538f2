// Package metrics is the backend-agnostic metrics facade used by the scraper.
//
// Call sites record through the package-level helpers; the process installs a
// concrete Backend (Datadog) once at startup with SetBackend. Until then every
// call goes to a no-op backend.
package metrics

import (
	"strconv"
	"sync"
	"time"
)

// Labels are metric dimensions (Datadog tags).
type Labels map[string]string

// Backend receives metric observations.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
	Flush() error
}

// Metric names.
const (
	TargetsTotal            = "scrape_targets_total"
	FieldsTotal             = "scrape_fields_total"
	RowsSkippedTotal        = "scrape_rows_skipped_total"
	HTTPRequestsTotal       = "scrape_http_requests_total"
	HTTPErrorsTotal         = "scrape_http_errors_total"
	TargetDurationSeconds   = "scrape_target_duration_seconds"
	HTTPRequestDurationSecs = "scrape_http_request_duration_seconds"
)

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var (
	mu      sync.RWMutex
	current Backend = nopBackend{}
)

// SetBackend installs b as the process-wide backend. A nil b restores the
// no-op backend.
func SetBackend(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	if b == nil {
		current = nopBackend{}
		return
	}
	current = b
}

func backend() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// Flush flushes the installed backend.
func Flush() error {
	return backend().Flush()
}

// IncCounter adds delta to the named counter.
func IncCounter(name string, delta float64, labels Labels) {
	backend().IncCounter(name, delta, labels)
}

// ObserveHistogram records one sample of the named histogram.
func ObserveHistogram(name string, value float64, labels Labels) {
	backend().ObserveHistogram(name, value, labels)
}

// RecordHTTP records one page request. status is 0 when no response arrived.
func RecordHTTP(status int, err error, d time.Duration) {
	st := "error"
	if status > 0 {
		st = strconv.Itoa(status)
	}
	labels := Labels{"status": st}

	IncCounter(HTTPRequestsTotal, 1, labels)
	if err != nil || status < 200 || status >= 300 {
		IncCounter(HTTPErrorsTotal, 1, labels)
	}
	ObserveHistogram(HTTPRequestDurationSecs, d.Seconds(), labels)
}

// RecordTarget records the end of one target run. status is "ok" when the page
// was fetched and "absent" otherwise.
func RecordTarget(target, status string, populated, defaulted, skippedRows int, d time.Duration) {
	IncCounter(TargetsTotal, 1, Labels{"target": target, "status": status})
	IncCounter(FieldsTotal, float64(populated), Labels{"target": target, "state": "populated"})
	IncCounter(FieldsTotal, float64(defaulted), Labels{"target": target, "state": "defaulted"})
	IncCounter(RowsSkippedTotal, float64(skippedRows), Labels{"target": target})
	ObserveHistogram(TargetDurationSeconds, d.Seconds(), Labels{"target": target})
}
