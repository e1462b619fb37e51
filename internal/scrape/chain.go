package scrape

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Fetcher is a named detail page source.
type Fetcher interface {
	Name() string
	FetchDetail(ctx context.Context, url, focusHint string) (string, error)
}

var _ Fetcher = (*FetchChain)(nil)

// FetchChain tries fetchers in order and returns the first non-empty body.
type FetchChain struct {
	filter   *URLFilter
	fetchers []Fetcher
}

// NewFetchChain creates a chain. A nil filter fetches every http(s) URL.
func NewFetchChain(filter *URLFilter, fetchers ...Fetcher) *FetchChain {
	return &FetchChain{filter: filter, fetchers: fetchers}
}

// Name implements Fetcher.
func (c *FetchChain) Name() string { return "chain" }

// FetchDetail implements resolver.DetailFetcher. Excluded URLs return no
// content. An error is returned only when every fetcher failed.
func (c *FetchChain) FetchDetail(ctx context.Context, url, focusHint string) (string, error) {
	if c.filter != nil && c.filter.Excluded(url) {
		zap.L().Debug("scrape: url excluded", zap.String("url", url))
		return "", nil
	}

	var lastErr error
	failures := 0
	for _, f := range c.fetchers {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		body, err := f.FetchDetail(ctx, url, focusHint)
		if err != nil {
			zap.L().Debug("scrape: fetcher failed, trying next",
				zap.String("fetcher", f.Name()),
				zap.String("url", url),
				zap.Error(err),
			)
			lastErr = err
			failures++
			continue
		}
		if body != "" {
			return body, nil
		}
	}

	if failures > 0 && failures == len(c.fetchers) {
		return "", eris.Wrap(lastErr, "scrape: all fetchers failed")
	}
	return "", nil
}
