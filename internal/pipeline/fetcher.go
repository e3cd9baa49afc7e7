package pipeline

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/lawparse/internal/cache"
	"github.com/ppiankov/lawparse/internal/metrics"
	"github.com/ppiankov/lawparse/internal/model"
	"github.com/ppiankov/lawparse/internal/util"
)

// ErrDisallowed is returned when robots.txt forbids fetching a URL.
var ErrDisallowed = errors.New("disallowed by robots.txt")

// fetchSleepFunc is the backoff sleep, replaced in tests.
var fetchSleepFunc = time.Sleep

// RateLimiter paces requests to a source's host.
type RateLimiter interface {
	Wait(ctx context.Context, source string) error
}

// StatusError reports a non-2xx response.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d %s", e.Code, e.Status)
}

// Fetcher loads source documents from the web or local disk
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	maxRetries int

	cache   cache.Cache
	robots  *util.RobotsChecker
	limiter RateLimiter
	metrics *metrics.Recorder
	logger  *slog.Logger
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithCache serves repeated fetches from c.
func WithCache(c cache.Cache) FetcherOption {
	return func(f *Fetcher) { f.cache = c }
}

// WithRobots enforces robots.txt.
func WithRobots(r *util.RobotsChecker) FetcherOption {
	return func(f *Fetcher) { f.robots = r }
}

// WithLimiter paces requests per host.
func WithLimiter(l RateLimiter) FetcherOption {
	return func(f *Fetcher) { f.limiter = l }
}

// WithFetchMetrics records fetch origins.
func WithFetchMetrics(m *metrics.Recorder) FetcherOption {
	return func(f *Fetcher) { f.metrics = m }
}

// WithFetchLogger sets the fetcher's logger.
func WithFetchLogger(l *slog.Logger) FetcherOption {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewFetcher creates a new Fetcher with the given configuration
func NewFetcher(timeout time.Duration, userAgent string, maxBytes int64, insecureTLS bool, httpProxy, httpsProxy, noProxy string, opts ...FetcherOption) *Fetcher {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = util.NewProxyFunc(httpProxy, httpsProxy, noProxy)
	if insecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	f := &Fetcher{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent:  userAgent,
		maxBytes:   maxBytes,
		maxRetries: 3,
		cache:      cache.Noop{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// NewFetcherFromConfig creates a Fetcher from the http configuration section.
func NewFetcherFromConfig(cfg model.HTTPConfig, opts ...FetcherOption) *Fetcher {
	f := NewFetcher(cfg.Timeout, cfg.UserAgent, cfg.MaxBodyBytes, cfg.InsecureTLS, cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy)
	if cfg.MaxRetries > 0 {
		f.maxRetries = cfg.MaxRetries
	}
	if cfg.RespectRobots {
		f.robots = util.NewRobotsCheckerWithClient(cfg.UserAgent, f.httpClient)
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchResult is a loaded source document
type FetchResult struct {
	Body        []byte
	ContentType string
	FinalURL    string
	FromCache   bool
}

// Load reads a source: http(s) URLs are fetched, anything else is read from
// disk.
func (f *Fetcher) Load(ctx context.Context, source string) (*FetchResult, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return f.FetchWithRetry(ctx, source)
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}
	f.metrics.ObserveFetch(metrics.OriginFile)
	return &FetchResult{Body: data, FinalURL: source}, nil
}

// Fetch performs one GET request
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/vnd.openxmlformats-officedocument.wordprocessingml.document;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &FetchResult{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		FinalURL:    resp.Request.URL.String(),
	}, nil
}

// FetchWithRetry fetches through the cache, honoring robots.txt and the rate
// limiter, and retries transient failures with exponential backoff.
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string) (*FetchResult, error) {
	key := cache.Key(rawURL)
	if e, ok := f.cache.Get(key); ok {
		f.metrics.ObserveFetch(metrics.OriginCache)
		return &FetchResult{Body: e.Body, ContentType: e.ContentType, FinalURL: e.Source, FromCache: true}, nil
	}

	if f.robots != nil {
		allowed, delay, err := f.robots.CanFetch(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, fmt.Errorf("%s: %w", rawURL, ErrDisallowed)
		}
		if delay > 0 {
			if err := sleepContext(ctx, delay); err != nil {
				return nil, err
			}
		}
	}

	var (
		result *FetchResult
		err    error
	)
	backoff := time.Second
	for attempt := 1; attempt <= f.maxRetries; attempt++ {
		if f.limiter != nil {
			if err := f.limiter.Wait(ctx, rawURL); err != nil {
				return nil, err
			}
		}

		result, err = f.Fetch(ctx, rawURL)
		if err == nil {
			break
		}
		if !isRetryableFetchError(err) || attempt == f.maxRetries {
			return nil, err
		}

		f.logger.Debug("retrying fetch", "url", rawURL, "attempt", attempt, "err", err)
		fetchSleepFunc(backoff)
		backoff *= 2
	}

	f.metrics.ObserveFetch(metrics.OriginNetwork)
	if err := f.cache.Set(key, &cache.Entry{
		Source:      result.FinalURL,
		ContentType: result.ContentType,
		Body:        result.Body,
		FetchedAt:   time.Now().UTC(),
	}, 0); err != nil {
		f.logger.Warn("cache write failed", "url", rawURL, "err", err)
	}
	return result, nil
}

// isRetryableFetchError reports whether a fetch error is worth retrying:
// network failures, 429 and 5xx responses.
func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}

	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}

	msg := err.Error()
	if rest, ok := strings.CutPrefix(msg, "unexpected status: "); ok {
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			return false
		}
		code, convErr := strconv.Atoi(fields[0])
		return convErr == nil && (code == http.StatusTooManyRequests || code >= 500)
	}
	return strings.HasPrefix(msg, "fetch: ")
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
