// Package datadog submits scraper metrics to the Datadog v2 metrics intake.
//
// Observations are buffered per series (metric name plus its tag set) and
// submitted by a background ticker and once more on Close. Histograms are
// reduced to avg/p95/max/count gauges at flush time. A failed submission drops
// the points it carried.
//
// Credentials and site come from the client's usual environment variables
// (DD_API_KEY, DD_SITE).
package datadog

import (
	"context"
	"math"
	"net/http"
	"os"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	dd "github.com/DataDog/datadog-api-client-go/v2/api/datadog"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"

	"pagasa/internal/metrics"
)

const (
	defaultJobName    = "pagasa-scrape"
	defaultFlushEvery = time.Minute
)

// Datadog metric names by facade name. Anything not listed is dropped.
var (
	counterNames = map[string]string{
		metrics.TargetsTotal:      "pagasa.scrape.targets",
		metrics.FieldsTotal:       "pagasa.scrape.fields",
		metrics.RowsSkippedTotal:  "pagasa.scrape.rows_skipped",
		metrics.HTTPRequestsTotal: "pagasa.http.requests",
		metrics.HTTPErrorsTotal:   "pagasa.http.errors",
	}
	histogramNames = map[string]string{
		metrics.TargetDurationSeconds:   "pagasa.scrape.target.duration",
		metrics.HTTPRequestDurationSecs: "pagasa.http.request.duration",
	}
)

// Options configures a Backend.
type Options struct {
	// JobName is sent as tag "job:<name>". Defaults to "pagasa-scrape".
	JobName string

	// Tags are added to every series (e.g. "service:pagasa").
	Tags []string

	// FlushEvery is the submission interval. Defaults to one minute.
	FlushEvery time.Duration

	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker
	submitter submitter
}

// submitter is the part of *datadogV2.MetricsApi the backend calls.
type submitter interface {
	SubmitMetrics(ctx context.Context, body datadogV2.MetricPayload, params ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error)
}

// seriesKey identifies one buffered series. tags is the sorted label set
// joined by ",".
type seriesKey struct {
	metric string
	tags   string
}

// Backend implements metrics.Backend.
type Backend struct {
	api        submitter
	ctx        context.Context
	baseTags   []string
	flushEvery time.Duration
	now        func() time.Time
	newTicker  func(d time.Duration) *time.Ticker

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	mu      sync.Mutex
	counts  map[seriesKey]float64
	samples map[seriesKey][]float64
}

var _ metrics.Backend = (*Backend)(nil)

// NewBackend starts a backend flushing every opts.FlushEvery. Submission
// errors surface from Flush and Close, never from construction.
func NewBackend(parent context.Context, opts Options) (*Backend, error) {
	job := opts.JobName
	if job == "" {
		job = defaultJobName
	}
	every := opts.FlushEvery
	if every <= 0 {
		every = defaultFlushEvery
	}

	base := []string{"job:" + job}
	if env := envTag(); env != "" {
		base = append(base, env)
	}
	base = append(base, opts.Tags...)

	b := &Backend{
		api:        opts.submitter,
		ctx:        dd.NewDefaultContext(parent),
		baseTags:   base,
		flushEvery: every,
		now:        opts.now,
		newTicker:  opts.newTicker,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
		counts:     make(map[seriesKey]float64),
		samples:    make(map[seriesKey][]float64),
	}
	if b.api == nil {
		b.api = datadogV2.NewMetricsApi(dd.NewAPIClient(dd.NewConfiguration()))
	}
	if b.now == nil {
		b.now = time.Now
	}
	if b.newTicker == nil {
		b.newTicker = time.NewTicker
	}

	go b.loop()
	return b, nil
}

// envTag returns "env:<DD_ENV>", falling back to $ENV, or "" when neither is
// set.
func envTag() string {
	for _, k := range []string{"DD_ENV", "ENV"} {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return "env:" + v
		}
	}
	return ""
}

func (b *Backend) loop() {
	defer close(b.done)
	t := b.newTicker(b.flushEvery)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			_ = b.Flush()
		case <-b.stop:
			return
		}
	}
}

// Close stops the flush loop and submits what is still buffered. Calling it
// again only repeats the final Flush.
func (b *Backend) Close() error {
	b.closeOnce.Do(func() {
		close(b.stop)
		<-b.done
	})
	return b.Flush()
}

// IncCounter implements metrics.Backend. Non-positive deltas are ignored.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	metric, ok := counterNames[name]
	if !ok || delta <= 0 {
		return
	}
	k := seriesKey{metric: metric, tags: labelTags(labels)}

	b.mu.Lock()
	b.counts[k] += delta
	b.mu.Unlock()
}

// ObserveHistogram implements metrics.Backend. Negative or NaN samples are
// ignored.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	metric, ok := histogramNames[name]
	if !ok || value < 0 || math.IsNaN(value) {
		return
	}
	k := seriesKey{metric: metric, tags: labelTags(labels)}

	b.mu.Lock()
	b.samples[k] = append(b.samples[k], value)
	b.mu.Unlock()
}

// Flush submits and clears the buffered series. It returns nil without a
// request when nothing is buffered.
func (b *Backend) Flush() error {
	b.mu.Lock()
	counts, samples := b.counts, b.samples
	b.counts = make(map[seriesKey]float64)
	b.samples = make(map[seriesKey][]float64)
	b.mu.Unlock()

	if len(counts) == 0 && len(samples) == 0 {
		return nil
	}
	payload := datadogV2.MetricPayload{Series: b.buildSeries(counts, samples, b.now().Unix())}
	_, _, err := b.api.SubmitMetrics(b.ctx, payload, *datadogV2.NewSubmitMetricsOptionalParameters())
	return err
}

// buildSeries turns buffered state into intake series, ordered by metric then
// tags so payloads are stable.
func (b *Backend) buildSeries(counts map[seriesKey]float64, samples map[seriesKey][]float64, ts int64) []datadogV2.MetricSeries {
	var out []datadogV2.MetricSeries

	for _, k := range sortedKeys(counts) {
		out = append(out, point(k.metric, datadogV2.METRICINTAKETYPE_COUNT, counts[k], b.tags(k), ts))
	}
	for _, k := range sortedKeys(samples) {
		s := slices.Clone(samples[k])
		if len(s) == 0 {
			continue
		}
		sort.Float64s(s)
		var sum float64
		for _, v := range s {
			sum += v
		}
		tags := b.tags(k)
		out = append(out,
			point(k.metric+".avg", datadogV2.METRICINTAKETYPE_GAUGE, sum/float64(len(s)), tags, ts),
			point(k.metric+".p95", datadogV2.METRICINTAKETYPE_GAUGE, quantile(s, 0.95), tags, ts),
			point(k.metric+".max", datadogV2.METRICINTAKETYPE_GAUGE, s[len(s)-1], tags, ts),
			point(k.metric+".count", datadogV2.METRICINTAKETYPE_COUNT, float64(len(s)), tags, ts),
		)
	}
	return out
}

func (b *Backend) tags(k seriesKey) []string {
	tags := slices.Clone(b.baseTags)
	if k.tags != "" {
		tags = append(tags, strings.Split(k.tags, ",")...)
	}
	return tags
}

func point(metric string, typ datadogV2.MetricIntakeType, v float64, tags []string, ts int64) datadogV2.MetricSeries {
	return datadogV2.MetricSeries{
		Metric: metric,
		Type:   typ.Ptr(),
		Points: []datadogV2.MetricPoint{{Timestamp: dd.PtrInt64(ts), Value: dd.PtrFloat64(v)}},
		Tags:   tags,
	}
}

// labelTags renders labels as sorted "key:value" tags joined by ",". Empty
// values become "unknown".
func labelTags(labels metrics.Labels) string {
	if len(labels) == 0 {
		return ""
	}
	tags := make([]string, 0, len(labels))
	for k, v := range labels {
		if v == "" {
			v = "unknown"
		}
		tags = append(tags, k+":"+v)
	}
	sort.Strings(tags)
	return strings.Join(tags, ",")
}

func sortedKeys[V any](m map[seriesKey]V) []seriesKey {
	keys := make([]seriesKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].metric != keys[j].metric {
			return keys[i].metric < keys[j].metric
		}
		return keys[i].tags < keys[j].tags
	})
	return keys
}

// quantile is the nearest-rank quantile of sorted, non-empty s.
func quantile(s []float64, q float64) float64 {
	i := int(math.Ceil(q*float64(len(s)))) - 1
	return s[min(max(i, 0), len(s)-1)]
}

// ParseTagsCSV splits "env:prod, service:pagasa" into tags, dropping blanks.
func ParseTagsCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
