package extracthtml

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"

	"pagasa/internal/logging"
	"pagasa/internal/metrics"
)

// DefaultUserAgent is sent with every page request unless overridden.
const DefaultUserAgent = "pagasa-scrape/1.0"

// Input describes where HTML should come from.
type Input struct {
	// URL, if provided, is fetched via HTTP GET.
	URL string

	// Path, used when URL is empty, names a saved page on disk.
	Path string

	// Stdin is used when URL and Path are empty. If nil, stdin reads as empty.
	Stdin io.Reader
}

// Loader fetches or reads HTML with a consistent timeout policy.
type Loader struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
	logger    *slog.Logger
}

// LoaderOption customises a Loader.
type LoaderOption func(*Loader)

// WithUserAgent overrides DefaultUserAgent.
func WithUserAgent(ua string) LoaderOption {
	return func(l *Loader) {
		if strings.TrimSpace(ua) != "" {
			l.userAgent = ua
		}
	}
}

// WithLogger sets the logger used to report fetch failures.
func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLoader creates a Loader. If client is nil, http.DefaultClient is used.
// A non-positive timeout disables the per-request deadline.
func NewLoader(client *http.Client, timeout time.Duration, opts ...LoaderOption) *Loader {
	if client == nil {
		client = http.DefaultClient
	}
	l := &Loader{
		client:    client,
		timeout:   timeout,
		userAgent: DefaultUserAgent,
		logger:    logging.Discard(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load returns the HTML source for a fetched URL, a file on disk, or stdin,
// in that order of preference.
//
// On non-2xx HTTP responses, Load returns an error that includes the status
// code and up to 4KB of the response body for debugging. Bodies are decoded to
// UTF-8 using the charset of the Content-Type header.
func (l *Loader) Load(ctx context.Context, input Input) (string, error) {
	if strings.TrimSpace(input.URL) == "" {
		if strings.TrimSpace(input.Path) != "" {
			b, err := os.ReadFile(input.Path)
			if err != nil {
				return "", fmt.Errorf("read file: %w", err)
			}
			return string(b), nil
		}
		if input.Stdin == nil {
			return "", nil
		}
		b, err := io.ReadAll(input.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	}

	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, input.URL, nil)
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", l.userAgent)

	start := time.Now()
	resp, err := l.client.Do(req)
	if err != nil {
		metrics.RecordHTTP(0, err, time.Since(start))
		return "", fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err := fmt.Errorf("http status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		metrics.RecordHTTP(resp.StatusCode, err, time.Since(start))
		return "", err
	}

	b, err := io.ReadAll(decodeBody(resp.Body, resp.Header.Get("Content-Type")))
	metrics.RecordHTTP(resp.StatusCode, err, time.Since(start))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(b), nil
}

// Fetch retrieves url and parses it. Any failure (network error, non-2xx
// status, unreadable body) is logged and yields nil, the Absent document.
func (l *Loader) Fetch(ctx context.Context, url string) *Document {
	doc, err := l.LoadDocument(ctx, Input{URL: url})
	if err != nil {
		l.logger.Warn("fetch failed", "url", url, "err", err)
		return nil
	}
	return doc
}

// LoadDocument loads input and parses it into a Document.
func (l *Loader) LoadDocument(ctx context.Context, input Input) (*Document, error) {
	html, err := l.Load(ctx, input)
	if err != nil {
		return nil, err
	}
	doc, err := NewDocument(html)
	if err != nil {
		return nil, err
	}
	doc.url = parseBase(input.URL)
	return doc, nil
}

// decodeBody wraps r with a decoder for the charset named in contentType.
// Missing or unknown charsets pass the bytes through unchanged.
func decodeBody(r io.Reader, contentType string) io.Reader {
	if contentType == "" {
		return r
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return r
	}
	charset := strings.ToLower(strings.TrimSpace(params["charset"]))
	if charset == "" || charset == "utf-8" || charset == "utf8" {
		return r
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return r
	}
	return transform.NewReader(r, enc.NewDecoder())
}
