package scrape

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/SM97490/agent-produits-distrisku/internal/resilience"
)

// Local fetcher defaults.
const (
	DefaultFetchTimeout = 15 * time.Second
	DefaultRatePerHost  = 2.0
	maxPageBytes        = 512 * 1024
	userAgent           = "Mozilla/5.0 (compatible; DistriskuBot/1.0)"
)

// LocalFetcher downloads pages directly over HTTP, rate limited per host.
type LocalFetcher struct {
	client  *http.Client
	perHost rate.Limit
	retry   resilience.RetryConfig

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// LocalOption configures a LocalFetcher.
type LocalOption func(*LocalFetcher)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) LocalOption {
	return func(f *LocalFetcher) { f.client = hc }
}

// WithRetry replaces the retry policy.
func WithRetry(cfg resilience.RetryConfig) LocalOption {
	return func(f *LocalFetcher) { f.retry = cfg }
}

// NewLocalFetcher creates a fetcher with the given request timeout and
// requests per second per host. Non-positive values use the defaults.
func NewLocalFetcher(timeout time.Duration, ratePerHost float64, opts ...LocalOption) *LocalFetcher {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	if ratePerHost <= 0 {
		ratePerHost = DefaultRatePerHost
	}
	f := &LocalFetcher{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext:         (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
				MaxIdleConnsPerHost: 4,
			},
		},
		perHost:  rate.Limit(ratePerHost),
		retry:    resilience.RetryConfig{Attempts: 2, Name: "local_http"},
		limiters: make(map[string]*rate.Limiter),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Name identifies the fetcher in logs.
func (f *LocalFetcher) Name() string { return "local_http" }

// FetchDetail implements resolver.DetailFetcher. It returns the raw HTML of
// the page, or "" when the page is blocked or too small to hold content.
func (f *LocalFetcher) FetchDetail(ctx context.Context, rawURL, _ string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "", eris.Errorf("local_http: invalid url %q", rawURL)
	}

	if err := f.limiter(u.Host).Wait(ctx); err != nil {
		return "", eris.Wrap(err, "local_http: rate limit wait")
	}

	return resilience.Retry(ctx, f.retry, func(ctx context.Context) (string, error) {
		return f.fetch(ctx, rawURL)
	})
}

func (f *LocalFetcher) fetch(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", eris.Wrap(err, "local_http: create request")
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "fr-FR,fr;q=0.9,en;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "local_http: fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", eris.Wrap(err, "local_http: read body")
	}
	page := string(body)

	if reason := DetectBlock(resp.StatusCode, resp.Header, page); reason != NotBlocked {
		zap.L().Debug("local_http: blocked",
			zap.String("url", rawURL),
			zap.String("reason", string(reason)),
		)
		return "", nil
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return "", &resilience.StatusError{Service: "local_http", StatusCode: resp.StatusCode}
	}

	if len(strings.TrimSpace(page)) < minContent {
		return "", nil
	}
	return page, nil
}

func (f *LocalFetcher) limiter(host string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.limiters[host]
	if !ok {
		l = rate.NewLimiter(f.perHost, 1)
		f.limiters[host] = l
	}
	return l
}
