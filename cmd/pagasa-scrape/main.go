// Command pagasa-scrape fetches the PAGASA-DOST weather pages and writes each
// extracted field as a JSON file below the output directory (data/raw by
// default), appending one run-log row per target.
//
// Usage (all built-in targets):
//
//	pagasa-scrape
//
// Usage (selected targets, YAML config, run history in SQLite):
//
//	pagasa-scrape -config pagasa.yaml -targets daily_temperature,weather_advisory \
//	  -runlog sqlite -runlog-dsn runs.db
//
// Offline run against a saved page:
//
//	pagasa-scrape -targets daily_temperature -file saved/low-high-temperature.html
//
// Offline run against a directory of saved pages named <target>.html:
//
//	pagasa-scrape -dir saved/
//
// Debug (walk one field's chain step by step):
//
//	pagasa-scrape -chain daily_temperature.lowest_temperatures -file page.html
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"pagasa/internal/config"
	ex "pagasa/internal/extracthtml"
	"pagasa/internal/logging"
	"pagasa/internal/metrics"
	"pagasa/internal/metrics/datadog"
	"pagasa/internal/pipeline"
	"pagasa/internal/runlog"
	"pagasa/internal/targets"

	// register all run-log storage backends with the storage factory.
	_ "pagasa/internal/storage/all"
)

// backendCloser is the minimal interface used by this command to manage a metrics backend.
type backendCloser interface {
	metrics.Backend
	Close() error
}

// deps are external seams for testability.
type deps struct {
	Stdin      io.Reader
	Stdout     io.Writer
	Stderr     io.Writer
	HTTPClient *http.Client

	BackendFactory func(ctx context.Context, jobName string, tags []string, flushEvery time.Duration) (backendCloser, error)
	Now            func() time.Time
}

// cliFlags holds the parsed flags. set records which flags were given so
// that only those override the config file.
type cliFlags struct {
	ConfigPath     string
	Targets        string
	TargetsFile    string
	OutDir         string
	Concurrency    int
	Timeout        time.Duration
	UserAgent      string
	RunLogKind     string
	RunLogPath     string
	RunLogDSN      string
	MetricsBackend string
	DDTagsCSV      string
	LogLevel       string
	Verbose        bool

	File     string
	Dir      string
	List     bool
	Chain    string
	Text     bool
	Validate bool

	set map[string]bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], deps{
		Stdin:      os.Stdin,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		HTTPClient: http.DefaultClient,
		BackendFactory: func(ctx context.Context, jobName string, tags []string, flushEvery time.Duration) (backendCloser, error) {
			return datadog.NewBackend(ctx, datadog.Options{
				JobName:    jobName,
				Tags:       tags,
				FlushEvery: flushEvery,
			})
		},
		Now: time.Now,
	})
	stop()
	os.Exit(code)
}

// run executes the scraper and returns an exit code.
//
// Exit codes:
//   - 0: success (defaulted fields alone are not a failure).
//   - 1: a JSON file or run-log row could not be written.
//   - 2: usage, configuration or initialization error.
func run(ctx context.Context, args []string, d deps) int {
	if d.Stdout == nil {
		d.Stdout = io.Discard
	}
	if d.Stderr == nil {
		d.Stderr = io.Discard
	}
	if d.Now == nil {
		d.Now = time.Now
	}

	fl, err := parseFlags(args, d.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg := config.Default()
	if fl.ConfigPath != "" {
		if cfg, err = config.Load(fl.ConfigPath); err != nil {
			fmt.Fprintf(d.Stderr, "config: %v\n", err)
			return 2
		}
	}
	applyFlags(cfg, fl)

	issues := config.Validate(cfg)
	for _, iss := range issues {
		fmt.Fprintln(d.Stderr, iss.String())
	}
	if config.HasErrors(issues) {
		fmt.Fprintln(d.Stderr, "configuration is invalid")
		return 2
	}
	if fl.Validate {
		fmt.Fprintln(d.Stdout, "configuration is valid")
		return 0
	}

	logger := logging.New(d.Stderr, cfg.Logging.Level)

	set := targets.All()
	if cfg.TargetsFile != "" {
		tf, err := ex.LoadTargetFile(cfg.TargetsFile)
		if err != nil {
			fmt.Fprintf(d.Stderr, "targets file: %v\n", err)
			return 2
		}
		set = targets.Merge(set, tf.Targets)
	}

	if fl.List {
		for _, t := range set {
			fmt.Fprintf(d.Stdout, "%s\t%s\n", t.Name, t.URL)
		}
		return 0
	}

	loader := ex.NewLoader(d.HTTPClient, cfg.HTTP.Timeout.D(),
		ex.WithUserAgent(cfg.HTTP.UserAgent),
		ex.WithLogger(logger),
	)

	if fl.Chain != "" {
		return debugChain(ctx, d, loader, set, fl)
	}

	selected, err := targets.Select(set, cfg.Targets)
	if err != nil {
		fmt.Fprintln(d.Stderr, err)
		return 2
	}
	if fl.File != "" && len(selected) != 1 {
		fmt.Fprintln(d.Stderr, "-file needs exactly one target (use -targets)")
		return 2
	}
	if fl.File != "" && fl.Dir != "" {
		fmt.Fprintln(d.Stderr, "-file and -dir are mutually exclusive")
		return 2
	}
	var pages map[string]*ex.Document
	if fl.Dir != "" {
		if pages, err = ex.LoadPageDir(fl.Dir); err != nil {
			fmt.Fprintf(d.Stderr, "load %s: %v\n", fl.Dir, err)
			return 2
		}
	}

	if cfg.Metrics.Backend == "datadog" {
		if d.BackendFactory == nil {
			fmt.Fprintln(d.Stderr, "internal error: BackendFactory is nil")
			return 2
		}
		tags := append(datadog.ParseTagsCSV(os.Getenv("METRICS_TAGS")), cfg.Metrics.Tags...)
		backend, err := d.BackendFactory(ctx, cfg.Metrics.JobName, tags, cfg.Metrics.FlushEvery.D())
		if err != nil {
			fmt.Fprintf(d.Stderr, "datadog backend init failed: %v\n", err)
			return 2
		}
		metrics.SetBackend(backend)
		defer func() {
			_ = metrics.Flush()
			_ = backend.Close()
			metrics.SetBackend(nil)
		}()
	}

	sink, err := runlog.Open(ctx, runlog.Config{Kind: cfg.RunLog.Kind, Path: cfg.RunLog.Path, DSN: cfg.RunLog.DSN})
	if err != nil {
		fmt.Fprintf(d.Stderr, "run log: %v\n", err)
		return 2
	}
	defer func() {
		if err := sink.Close(); err != nil {
			logger.Error("run log close failed", "err", err)
		}
	}()

	runner := pipeline.NewRunner(loader, sink, cfg.OutputDir,
		pipeline.WithLogger(logger),
		pipeline.WithConcurrency(cfg.Concurrency),
		pipeline.WithClock(d.Now),
	)

	var outcomes []pipeline.Outcome
	if fl.File != "" {
		doc, lerr := loader.LoadDocument(ctx, fileInput(fl.File, d.Stdin))
		if lerr != nil {
			fmt.Fprintf(d.Stderr, "load %s: %v\n", fl.File, lerr)
			return 1
		}
		outcomes = []pipeline.Outcome{runner.RunDocument(ctx, selected[0], doc)}
		err = outcomes[0].Err
	} else if pages != nil {
		outcomes, err = runner.RunPages(ctx, selected, pages)
	} else {
		outcomes, err = runner.RunAll(ctx, selected)
	}

	pipeline.WriteSummary(d.Stdout, outcomes)
	if err != nil {
		logger.Error("run finished with errors", "err", err)
		return 1
	}
	return 0
}

// debugChain prints the step-by-step walk of one field's chain. The page comes
// from -file when given, otherwise from the target URL.
func debugChain(ctx context.Context, d deps, loader *ex.Loader, set []ex.Target, fl cliFlags) int {
	targetName, fieldName, ok := strings.Cut(fl.Chain, ".")
	if !ok || targetName == "" || fieldName == "" {
		fmt.Fprintln(d.Stderr, "-chain must be <target>.<field>")
		return 2
	}
	sel, err := targets.Select(set, []string{targetName})
	if err != nil {
		fmt.Fprintln(d.Stderr, err)
		return 2
	}
	t := sel[0]

	var field *ex.Field
	for i := range t.Fields {
		if t.Fields[i].Name == fieldName {
			field = &t.Fields[i]
			break
		}
	}
	if field == nil {
		fmt.Fprintf(d.Stderr, "target %s has no field %q\n", t.Name, fieldName)
		return 2
	}

	input := ex.Input{URL: t.URL}
	if fl.File != "" {
		input = fileInput(fl.File, d.Stdin)
	}
	doc, err := loader.LoadDocument(ctx, input)
	if err != nil {
		fmt.Fprintf(d.Stderr, "load page: %v\n", err)
		return 1
	}

	ex.DebugChain(d.Stdout, doc, field.Chain, fl.Text)
	res := ex.ExtractField(doc, *field)
	fmt.Fprintf(d.Stdout, "populated=%t skipped_rows=%d\n", res.Populated, res.SkippedRows)
	return 0
}

// parseFlags parses command arguments. Usage and parse errors are written to
// stderr by the flag package.
func parseFlags(args []string, stderr io.Writer) (cliFlags, error) {
	fs := flag.NewFlagSet("pagasa-scrape", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var fl cliFlags
	fs.StringVar(&fl.ConfigPath, "config", "", "Path to a JSON or YAML config file")
	fs.StringVar(&fl.Targets, "targets", "", "Comma-separated target names (default: all)")
	fs.StringVar(&fl.TargetsFile, "targets-file", "", "JSON file with extra or replacement targets")
	fs.StringVar(&fl.OutDir, "out", config.DefaultOutputDir, "Output root directory")
	fs.IntVar(&fl.Concurrency, "concurrency", config.DefaultConcurrency, "Targets to run at once")
	fs.DurationVar(&fl.Timeout, "timeout", config.DefaultTimeout, "HTTP timeout per page")
	fs.StringVar(&fl.UserAgent, "user-agent", ex.DefaultUserAgent, "User-Agent header for page requests")
	fs.StringVar(&fl.RunLogKind, "runlog", config.DefaultRunLogKind, "Run log sink: csv, none, sqlite, postgres, mssql")
	fs.StringVar(&fl.RunLogPath, "runlog-path", config.DefaultRunLogPath, "CSV run log path")
	fs.StringVar(&fl.RunLogDSN, "runlog-dsn", "", "DSN for storage run logs (env vars expanded)")
	fs.StringVar(&fl.MetricsBackend, "metrics-backend", config.DefaultMetrics, "Metrics backend: none or datadog")
	fs.StringVar(&fl.DDTagsCSV, "dd-tags", "", "Extra Datadog tags CSV (e.g. env:prod,service:pagasa)")
	fs.StringVar(&fl.LogLevel, "log-level", config.DefaultLogLevel, "Log level: debug, info, warn, error")
	fs.BoolVar(&fl.Verbose, "v", false, "Verbose logs (same as -log-level debug)")
	fs.StringVar(&fl.File, "file", "", "Read the page from this file (\"-\" for stdin) instead of fetching it (one target)")
	fs.StringVar(&fl.Dir, "dir", "", "Read saved pages named <target>.html from this directory instead of fetching")
	fs.BoolVar(&fl.List, "list", false, "List targets and exit")
	fs.StringVar(&fl.Chain, "chain", "", "Debug: walk the chain of <target>.<field> and print each step")
	fs.BoolVar(&fl.Text, "text", false, "Debug: print text instead of outer HTML for -chain")
	fs.BoolVar(&fl.Validate, "validate", false, "Validate the configuration and exit")

	if err := fs.Parse(args); err != nil {
		return cliFlags{}, err
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "unexpected arguments: %v\n", fs.Args())
		fs.Usage()
		return cliFlags{}, errors.New("unexpected arguments")
	}

	fl.set = map[string]bool{}
	fs.Visit(func(f *flag.Flag) { fl.set[f.Name] = true })
	return fl, nil
}

// applyFlags overrides cfg with every flag given on the command line.
func applyFlags(cfg *config.Config, fl cliFlags) {
	if fl.set["targets"] {
		cfg.Targets = splitCSV(fl.Targets)
	}
	if fl.set["targets-file"] {
		cfg.TargetsFile = fl.TargetsFile
	}
	if fl.set["out"] {
		cfg.OutputDir = fl.OutDir
	}
	if fl.set["concurrency"] {
		cfg.Concurrency = fl.Concurrency
	}
	if fl.set["timeout"] {
		cfg.HTTP.Timeout = config.Duration(fl.Timeout)
	}
	if fl.set["user-agent"] {
		cfg.HTTP.UserAgent = fl.UserAgent
	}
	if fl.set["runlog"] {
		cfg.RunLog.Kind = fl.RunLogKind
		if fl.RunLogKind != config.DefaultRunLogKind && !fl.set["runlog-path"] {
			cfg.RunLog.Path = ""
		}
	}
	if fl.set["runlog-path"] {
		cfg.RunLog.Path = fl.RunLogPath
	}
	if fl.set["runlog-dsn"] {
		cfg.RunLog.DSN = os.ExpandEnv(fl.RunLogDSN)
	}
	if fl.set["metrics-backend"] {
		cfg.Metrics.Backend = fl.MetricsBackend
	}
	if fl.set["dd-tags"] {
		cfg.Metrics.Tags = append(cfg.Metrics.Tags, datadog.ParseTagsCSV(fl.DDTagsCSV)...)
	}
	if fl.set["log-level"] {
		cfg.Logging.Level = fl.LogLevel
	}
	if fl.Verbose {
		cfg.Logging.Level = "debug"
	}
}

// fileInput maps a -file value to a loader input; "-" reads stdin.
func fileInput(path string, stdin io.Reader) ex.Input {
	if path == "-" {
		return ex.Input{Stdin: stdin}
	}
	return ex.Input{Path: path}
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
