package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"pagasa/internal/metrics"
	"pagasa/internal/persist"
	"pagasa/internal/runlog"
)

// testBackend is a minimal metrics backend used in tests.
type testBackend struct {
	mu       sync.Mutex
	counters map[string]float64
	closed   bool
}

func (b *testBackend) IncCounter(name string, delta float64, labels metrics.Labels) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.counters == nil {
		b.counters = map[string]float64{}
	}
	b.counters[name] += delta
}
func (b *testBackend) ObserveHistogram(name string, value float64, labels metrics.Labels) {}
func (b *testBackend) Flush() error                                                       { return nil }
func (b *testBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

const advisoryPage = `<div class="row marine"><div class="weekly-content-adv">
<iframe src="https://pubfiles.pagasa.dost.gov.ph/advisory-12.pdf"></iframe></div></div>`

type result struct {
	code   int
	stdout string
	stderr string
}

func runCmd(t *testing.T, d deps, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	d.Stdout, d.Stderr = &stdout, &stderr
	if d.HTTPClient == nil {
		d.HTTPClient = &http.Client{Transport: failTransport{t}}
	}
	code := run(context.Background(), args, d)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

// failTransport fails the test on any network access.
type failTransport struct{ t *testing.T }

func (f failTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	f.t.Errorf("unexpected request to %s", r.URL)
	return nil, http.ErrUseLastResponse
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestRun_UsageErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	badCfg := writeFile(t, dir, "bad.yaml", "concurrency: 0\nlogging:\n  level: loud\n")
	page := writeFile(t, dir, "page.html", advisoryPage)

	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantErr  string
	}{
		{name: "help", args: []string{"-h"}, wantCode: 0},
		{name: "bad_flag", args: []string{"-nope"}, wantCode: 2},
		{name: "extra_args", args: []string{"daily_temperature"}, wantCode: 2, wantErr: "unexpected arguments"},
		{name: "missing_config", args: []string{"-config", filepath.Join(dir, "none.yaml")}, wantCode: 2, wantErr: "config:"},
		{name: "invalid_config", args: []string{"-config", badCfg}, wantCode: 2, wantErr: "logging.level"},
		{name: "unknown_target", args: []string{"-targets", "nope", "-runlog", "none"}, wantCode: 2, wantErr: "unknown target"},
		{name: "file_needs_one_target", args: []string{"-file", page, "-runlog", "none"}, wantCode: 2, wantErr: "exactly one target"},
		{name: "bad_chain", args: []string{"-chain", "weather_advisory"}, wantCode: 2, wantErr: "<target>.<field>"},
		{name: "unknown_field", args: []string{"-chain", "weather_advisory.nope", "-file", page}, wantCode: 2, wantErr: "no field"},
		{name: "storage_without_dsn", args: []string{"-runlog", "sqlite"}, wantCode: 2, wantErr: "run_log.dsn"},
		{name: "file_and_dir", args: []string{"-targets", "weather_advisory", "-file", page, "-dir", dir, "-runlog", "none"}, wantCode: 2, wantErr: "mutually exclusive"},
		{name: "missing_dir", args: []string{"-dir", filepath.Join(dir, "none"), "-runlog", "none"}, wantCode: 2, wantErr: "read dir"},
		{name: "missing_targets_file", args: []string{"-targets-file", filepath.Join(dir, "none.json")}, wantCode: 2, wantErr: "targets file"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := runCmd(t, deps{}, tc.args...)
			if res.code != tc.wantCode {
				t.Fatalf("code=%d, want %d (stderr=%s)", res.code, tc.wantCode, res.stderr)
			}
			if tc.wantErr != "" && !strings.Contains(res.stderr, tc.wantErr) {
				t.Fatalf("stderr=%q, want %q", res.stderr, tc.wantErr)
			}
		})
	}
}

func TestRun_ListAndValidate(t *testing.T) {
	t.Parallel()

	res := runCmd(t, deps{}, "-list")
	if res.code != 0 {
		t.Fatalf("code=%d stderr=%s", res.code, res.stderr)
	}
	lines := strings.Split(strings.TrimSpace(res.stdout), "\n")
	if len(lines) != 9 || !strings.HasPrefix(lines[0], "daily_weather_forecast\thttps://www.pagasa.dost.gov.ph/") {
		t.Fatalf("list=%q", res.stdout)
	}

	res = runCmd(t, deps{}, "-validate")
	if res.code != 0 || !strings.Contains(res.stdout, "configuration is valid") {
		t.Fatalf("validate code=%d stdout=%q", res.code, res.stdout)
	}
}

func TestRun_FileMode(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	page := writeFile(t, dir, "advisory.html", advisoryPage)
	out := filepath.Join(dir, "raw")
	logPath := filepath.Join(dir, "logs", "runs.csv")

	res := runCmd(t, deps{},
		"-targets", "weather_advisory",
		"-file", page,
		"-out", out,
		"-runlog-path", logPath,
	)
	if res.code != 0 {
		t.Fatalf("code=%d stderr=%s", res.code, res.stderr)
	}
	if !strings.Contains(res.stdout, "weather_advisory") || !strings.Contains(res.stdout, "ok") {
		t.Fatalf("summary=%s", res.stdout)
	}

	var got map[string]string
	if err := persist.ReadJSON(filepath.Join(out, "weather_advisory", "weather_advisory.json"), &got); err != nil {
		t.Fatalf("read output: %v", err)
	}
	if got["weather_advisory"] != "https://pubfiles.pagasa.dost.gov.ph/advisory-12.pdf" {
		t.Fatalf("output=%v", got)
	}

	rows, err := runlog.ReadCSV(logPath)
	if err != nil || len(rows) != 1 || rows[0][0] != "weather_advisory ingested: 1/1 fields populated" {
		t.Fatalf("run log rows=%v err=%v", rows, err)
	}
}

func TestRun_Stdin(t *testing.T) {
	t.Parallel()

	out := t.TempDir()
	res := runCmd(t, deps{Stdin: strings.NewReader(advisoryPage)},
		"-targets", "weather_advisory", "-file", "-", "-out", out, "-runlog", "none")
	if res.code != 0 {
		t.Fatalf("code=%d stderr=%s", res.code, res.stderr)
	}
	if _, err := os.Stat(filepath.Join(out, "weather_advisory", "weather_advisory.json")); err != nil {
		t.Fatalf("output missing: %v", err)
	}
}

func TestRun_DirMode(t *testing.T) {
	t.Parallel()

	pages := t.TempDir()
	writeFile(t, pages, "weather_advisory.html", advisoryPage)
	out := t.TempDir()

	res := runCmd(t, deps{}, "-dir", pages, "-out", out, "-runlog", "none")
	if res.code != 0 {
		t.Fatalf("code=%d stderr=%s", res.code, res.stderr)
	}
	if _, err := os.Stat(filepath.Join(out, "weather_advisory", "weather_advisory.json")); err != nil {
		t.Fatalf("output missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "daily_temperature")); !os.IsNotExist(err) {
		t.Fatalf("target without a saved page was run")
	}
	if strings.Contains(res.stdout, "daily_temperature") {
		t.Fatalf("summary lists skipped target:\n%s", res.stdout)
	}
}

func TestRun_WriteFailureExitsOne(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	page := writeFile(t, dir, "advisory.html", advisoryPage)
	blocker := writeFile(t, dir, "raw", "not a directory")

	res := runCmd(t, deps{}, "-targets", "weather_advisory", "-file", page, "-out", blocker, "-runlog", "none")
	if res.code != 1 {
		t.Fatalf("code=%d, want 1 (stderr=%s)", res.code, res.stderr)
	}
	if !strings.Contains(res.stdout, "failed") {
		t.Fatalf("summary=%s", res.stdout)
	}
}

func TestRun_ChainDebug(t *testing.T) {
	t.Parallel()

	page := writeFile(t, t.TempDir(), "advisory.html", advisoryPage)
	res := runCmd(t, deps{}, "-chain", "weather_advisory.weather_advisory", "-file", page)
	if res.code != 0 {
		t.Fatalf("code=%d stderr=%s", res.code, res.stderr)
	}
	for _, want := range []string{"step 0", "matched", `value="https://pubfiles.pagasa.dost.gov.ph/advisory-12.pdf"`, "populated=true"} {
		if !strings.Contains(res.stdout, want) {
			t.Fatalf("stdout missing %q:\n%s", want, res.stdout)
		}
	}
}

// Not parallel: installs a process-wide metrics backend.
func TestRun_NetworkTargetsFileSQLiteDatadog(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "pagasa-test" {
			http.Error(w, "bad agent", http.StatusForbidden)
			return
		}
		switch r.URL.Path {
		case "/advisory":
			_, _ = w.Write([]byte(advisoryPage))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	targetsFile := writeFile(t, dir, "targets.json", `{"targets": [
  {"name": "mirror_advisory", "url": "`+srv.URL+`/advisory", "dir": "mirror",
   "fields": [{"name": "weather_advisory", "chain": [
     {"kind": "find", "tag": "div", "class": "row marine"},
     {"kind": "find", "tag": "iframe"},
     {"kind": "attr", "attr": "src"}]}]},
  {"name": "gone", "url": "`+srv.URL+`/gone", "dir": "gone",
   "fields": [{"name": "issued_datetime", "default": "None"}]}
]}`)
	cfg := writeFile(t, dir, "pagasa.yaml", `
output_dir: `+filepath.Join(dir, "raw")+`
targets: [mirror_advisory, gone]
targets_file: `+targetsFile+`
concurrency: 2
http:
  timeout: 5s
  user_agent: pagasa-test
run_log:
  kind: sqlite
  dsn: `+filepath.Join(dir, "runs.db")+`
metrics:
  backend: datadog
  job_name: pagasa-test
  tags: ["service:pagasa"]
`)

	backend := &testBackend{}
	var gotJob string
	var gotTags []string
	d := deps{
		HTTPClient: srv.Client(),
		BackendFactory: func(_ context.Context, job string, tags []string, _ time.Duration) (backendCloser, error) {
			gotJob, gotTags = job, tags
			return backend, nil
		},
	}

	res := runCmd(t, d, "-config", cfg)
	if res.code != 0 {
		t.Fatalf("code=%d stderr=%s", res.code, res.stderr)
	}
	if gotJob != "pagasa-test" || !containsString(gotTags, "service:pagasa") {
		t.Fatalf("factory job=%q tags=%v", gotJob, gotTags)
	}
	if !backend.closed {
		t.Fatalf("metrics backend not closed")
	}
	if backend.counters[metrics.TargetsTotal] != 2 {
		t.Fatalf("targets counter=%v", backend.counters[metrics.TargetsTotal])
	}

	var adv map[string]string
	if err := persist.ReadJSON(filepath.Join(dir, "raw", "mirror", "weather_advisory.json"), &adv); err != nil {
		t.Fatalf("read output: %v", err)
	}
	if adv["weather_advisory"] != "https://pubfiles.pagasa.dost.gov.ph/advisory-12.pdf" {
		t.Fatalf("advisory=%v", adv)
	}
	var gone map[string]string
	if err := persist.ReadJSON(filepath.Join(dir, "raw", "gone", "issued_datetime.json"), &gone); err != nil {
		t.Fatalf("read default output: %v", err)
	}
	if gone["issued_datetime"] != "None" {
		t.Fatalf("default=%v", gone)
	}
	if !strings.Contains(res.stdout, "absent") {
		t.Fatalf("summary=%s", res.stdout)
	}
	if _, err := os.Stat(filepath.Join(dir, "runs.db")); err != nil {
		t.Fatalf("sqlite run log missing: %v", err)
	}
}

func containsString(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
