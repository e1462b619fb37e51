package source

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/SM97490/agent-produits-distrisku/internal/resilience"
)

const userAgent = "distrisku/1.0"

// HTTPDownloader fetches files over http(s), retrying transient failures.
type HTTPDownloader struct {
	client *http.Client
	retry  resilience.RetryConfig
}

// NewHTTPDownloader creates an HTTPDownloader. A zero timeout means 60s.
func NewHTTPDownloader(timeout time.Duration) *HTTPDownloader {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPDownloader{
		client: &http.Client{Timeout: timeout},
		retry: resilience.RetryConfig{
			Attempts: 3,
			Backoff:  time.Second,
			Jitter:   0.2,
			Name:     "source_http",
		},
	}
}

// Download implements Downloader.
func (d *HTTPDownloader) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	return resilience.Retry(ctx, d.retry, func(ctx context.Context) (io.ReadCloser, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, eris.Wrap(err, "create request")
		}
		req.Header.Set("User-Agent", userAgent)

		resp, err := d.client.Do(req)
		if err != nil {
			return nil, eris.Wrap(err, "http get")
		}
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			_ = resp.Body.Close()
			return nil, &resilience.StatusError{Service: "source_http", StatusCode: resp.StatusCode, Body: string(body)}
		}
		return resp.Body, nil
	})
}
