package scrape

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/SM97490/agent-produits-distrisku/internal/model"
	"github.com/SM97490/agent-produits-distrisku/internal/resilience"
)

// Searcher mirrors resolver.Searcher.
type Searcher interface {
	Search(ctx context.Context, query string) ([]model.SearchResult, error)
}

// GuardSearcher passes searches through a circuit breaker. While the breaker
// is open searches return no results instead of an error, so resolution
// falls through to the rules.
type GuardSearcher struct {
	next    Searcher
	breaker *resilience.Breaker
}

// NewGuardSearcher wraps next with breaker.
func NewGuardSearcher(next Searcher, breaker *resilience.Breaker) *GuardSearcher {
	return &GuardSearcher{next: next, breaker: breaker}
}

// Search implements resolver.Searcher.
func (g *GuardSearcher) Search(ctx context.Context, query string) ([]model.SearchResult, error) {
	hits, err := resilience.Call(ctx, g.breaker, func(ctx context.Context) ([]model.SearchResult, error) {
		return g.next.Search(ctx, query)
	})
	if eris.Is(err, resilience.ErrOpen) {
		zap.L().Debug("scrape: search skipped, breaker open", zap.String("query", query))
		return nil, nil
	}
	return hits, err
}

// GuardFetcher passes detail fetches through a circuit breaker. While the
// breaker is open fetches return no content.
type GuardFetcher struct {
	next    Fetcher
	breaker *resilience.Breaker
}

// NewGuardFetcher wraps next with breaker.
func NewGuardFetcher(next Fetcher, breaker *resilience.Breaker) *GuardFetcher {
	return &GuardFetcher{next: next, breaker: breaker}
}

// Name reports the wrapped fetcher's name.
func (g *GuardFetcher) Name() string { return g.next.Name() }

// FetchDetail implements resolver.DetailFetcher.
func (g *GuardFetcher) FetchDetail(ctx context.Context, url, focusHint string) (string, error) {
	body, err := resilience.Call(ctx, g.breaker, func(ctx context.Context) (string, error) {
		return g.next.FetchDetail(ctx, url, focusHint)
	})
	if eris.Is(err, resilience.ErrOpen) {
		zap.L().Debug("scrape: fetch skipped, breaker open",
			zap.String("fetcher", g.next.Name()),
			zap.String("url", url),
		)
		return "", nil
	}
	return body, err
}
