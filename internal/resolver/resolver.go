// Package resolver turns a SKU into a ProductRecord using web search, page
// detail extraction and SKU-prefix rules, memoizing results per run.
package resolver

import (
	"context"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/SM97490/agent-produits-distrisku/internal/model"
)

// Searcher runs a web search. It may return no results.
type Searcher interface {
	Search(ctx context.Context, query string) ([]model.SearchResult, error)
}

// DetailFetcher returns the raw content of a page, or "" when unavailable.
type DetailFetcher interface {
	FetchDetail(ctx context.Context, url, focusHint string) (string, error)
}

const (
	hitsPerQuery     = 3
	detailThreshold  = 0.7
	goodEnough       = 0.8
	acceptConfidence = 0.5
	priorityBonus    = 0.3
)

// Queries returns the search queries tried for sku, in order.
func Queries(sku string) []string {
	return []string{
		sku + " hikvision specifications",
		sku + " camera surveillance",
		sku + " datasheet technical",
	}
}

// Options configures a Resolver.
type Options struct {
	// Searcher defaults to OfflineSearcher.
	Searcher Searcher
	// Fetcher is optional; without it no detail extraction happens.
	Fetcher DetailFetcher
	// TrustedDomains defaults to DefaultTrustedDomains.
	TrustedDomains []string
	// Rules defaults to BuiltinRules.
	Rules []Rule
	// OnResolved is called once per SKU actually resolved (not for cache hits).
	OnResolved func(rec model.ProductRecord)
}

// Stats counts resolver activity.
type Stats struct {
	CacheHits   int `json:"cache_hits"`
	CacheMisses int `json:"cache_misses"`
	Search      int `json:"search"`
	Detail      int `json:"detail"`
	Fallback    int `json:"fallback"`
}

// Resolver resolves SKUs and caches the records for its own lifetime. Create
// one per batch run. Safe for concurrent use.
type Resolver struct {
	searcher Searcher
	fetcher  DetailFetcher
	trusted  []string
	rules    []Rule
	onDone   func(model.ProductRecord)

	group singleflight.Group

	mu    sync.Mutex
	cache map[string]model.ProductRecord
	stats Stats
}

// New creates a Resolver.
func New(opts Options) *Resolver {
	r := &Resolver{
		searcher: opts.Searcher,
		fetcher:  opts.Fetcher,
		trusted:  opts.TrustedDomains,
		rules:    opts.Rules,
		onDone:   opts.OnResolved,
		cache:    make(map[string]model.ProductRecord),
	}
	if r.searcher == nil {
		r.searcher = OfflineSearcher{}
	}
	if len(r.trusted) == 0 {
		r.trusted = DefaultTrustedDomains
	}
	if len(r.rules) == 0 {
		r.rules = BuiltinRules()
	}
	return r
}

// Resolve returns the record for sku. It never fails: capability errors are
// logged and the SKU rules are the last resort. Repeated calls for the same
// SKU return the cached record without calling any capability.
func (r *Resolver) Resolve(ctx context.Context, sku string) model.ProductRecord {
	sku = strings.TrimSpace(sku)

	if rec, ok := r.cached(sku, true); ok {
		return rec
	}

	v, _, _ := r.group.Do(sku, func() (any, error) {
		if rec, ok := r.cached(sku, false); ok {
			return rec, nil
		}
		rec := r.resolve(ctx, sku)

		r.mu.Lock()
		r.stats.CacheMisses++
		switch rec.Source {
		case model.SourceSearch:
			r.stats.Search++
		case model.SourceDetail:
			r.stats.Detail++
		default:
			r.stats.Fallback++
		}
		// A cancelled run may have degraded to the rules; keep it out of the
		// cache so a retry in the same run searches again.
		if ctx.Err() == nil {
			r.cache[sku] = rec
		}
		r.mu.Unlock()

		if r.onDone != nil {
			r.onDone(rec)
		}
		return rec, nil
	})
	return v.(model.ProductRecord).Clone()
}

func (r *Resolver) cached(sku string, countHit bool) (model.ProductRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.cache[sku]
	if ok && countHit {
		r.stats.CacheHits++
		zap.L().Debug("resolver: cache hit", zap.String("sku", sku))
	}
	return rec.Clone(), ok
}

// Stats returns a snapshot of the counters.
func (r *Resolver) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

func (r *Resolver) resolve(ctx context.Context, sku string) model.ProductRecord {
	log := zap.L().With(zap.String("sku", sku))
	if sku == "" {
		return Fallback(sku, r.rules)
	}

	var (
		best      model.ProductRecord
		bestScore float64
		found     bool
	)

	for _, q := range Queries(sku) {
		if ctx.Err() != nil {
			break
		}
		hits, err := r.search(ctx, q)
		if err != nil {
			log.Warn("resolver: search failed", zap.String("query", q), zap.Error(err))
			continue
		}

		for _, hit := range hits[:min(len(hits), hitsPerQuery)] {
			cand := extractCandidate(sku, hit, r.trusted)
			trusted := isTrusted(hit.URL, r.trusted)

			// Trusted hits are ranked with a second bonus on top of the
			// extraction score; the stored confidence stays within [0,1].
			score := cand.Confidence
			if trusted {
				score += priorityBonus
			}
			cand.Confidence = min(score, 1.0)
			if score > bestScore {
				best, bestScore, found = cand, score, true
			}

			if r.fetcher != nil && trusted && score > detailThreshold {
				if detail, ok := r.detail(ctx, sku, hit.URL); ok && detail.Confidence > bestScore {
					best, bestScore, found = detail, detail.Confidence, true
				}
			}
		}

		if bestScore > goodEnough {
			break
		}
	}

	if !found || bestScore < acceptConfidence {
		log.Debug("resolver: using SKU rules", zap.Float64("best_confidence", bestScore))
		return Fallback(sku, r.rules)
	}
	log.Debug("resolver: resolved",
		zap.String("source", string(best.Source)),
		zap.String("url", best.SourceURL),
		zap.Float64("confidence", best.Confidence),
	)
	return best
}

func (r *Resolver) detail(ctx context.Context, sku, pageURL string) (model.ProductRecord, bool) {
	content, err := r.fetch(ctx, pageURL, "Informations techniques et spécifications du produit "+sku)
	if err != nil {
		zap.L().Warn("resolver: detail fetch failed",
			zap.String("sku", sku),
			zap.String("url", pageURL),
			zap.Error(err),
		)
		return model.ProductRecord{}, false
	}
	return extractDetail(sku, pageURL, content)
}

// search calls the searcher, turning a panic into an error.
func (r *Resolver) search(ctx context.Context, query string) (hits []model.SearchResult, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = eris.Errorf("resolver: searcher panic: %v", p)
		}
	}()
	hits, err = r.searcher.Search(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "resolver: search")
	}
	return hits, nil
}

// fetch calls the detail fetcher, turning a panic into an error.
func (r *Resolver) fetch(ctx context.Context, pageURL, hint string) (content string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = eris.Errorf("resolver: fetcher panic: %v", p)
		}
	}()
	content, err = r.fetcher.FetchDetail(ctx, pageURL, hint)
	if err != nil {
		return "", eris.Wrap(err, "resolver: fetch detail")
	}
	return content, nil
}
