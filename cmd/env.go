package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/SM97490/agent-produits-distrisku/internal/config"
	"github.com/SM97490/agent-produits-distrisku/internal/monitoring"
	"github.com/SM97490/agent-produits-distrisku/internal/resilience"
	"github.com/SM97490/agent-produits-distrisku/internal/resolver"
	"github.com/SM97490/agent-produits-distrisku/internal/scrape"
	"github.com/SM97490/agent-produits-distrisku/internal/store"
	"github.com/SM97490/agent-produits-distrisku/pkg/jina"
)

// Breaker names.
const (
	breakerSearch = "search"
	breakerDetail = "detail"
)

// lookupEnv holds the capabilities a resolver is built from. Searcher is nil
// in offline mode or without a Jina key, which makes the resolver fall back
// to its offline substitute.
type lookupEnv struct {
	Searcher resolver.Searcher
	Fetcher  resolver.DetailFetcher
	Rules    []resolver.Rule
	Breakers *resilience.Set
}

// initLookup wires search and detail capabilities from cfg.
func initLookup(c *config.Config, offline bool) (*lookupEnv, error) {
	var extra []resolver.Rule
	if c.Resolver.RulesPath != "" {
		rules, err := resolver.LoadRules(c.Resolver.RulesPath)
		if err != nil {
			return nil, eris.Wrap(err, "load resolver rules")
		}
		extra = rules
	}

	bcfg := resilience.NewBreakerConfig(c.Breaker.FailureThreshold, c.Breaker.ResetTimeoutSecs)
	bcfg.ShouldTrip = resilience.IsTransient
	env := &lookupEnv{
		Rules:    resolver.WithBuiltins(extra),
		Breakers: resilience.NewSet(bcfg),
	}
	if offline {
		return env, nil
	}

	local := scrape.NewLocalFetcher(c.FetchTimeout(), c.Fetch.RatePerHost)
	fetchers := []scrape.Fetcher{local}

	if c.Jina.Key != "" {
		client := jina.NewClient(c.Jina.Key,
			jina.WithReaderURL(c.Jina.BaseURL),
			jina.WithSearchURL(c.Jina.SearchBaseURL),
			jina.WithHTTPClient(&http.Client{Timeout: 2 * c.FetchTimeout()}),
		)
		env.Searcher = scrape.NewGuardSearcher(
			scrape.NewJinaSearcher(client, c.Jina.Results),
			env.Breakers.Get(breakerSearch),
		)
		fetchers = append(fetchers, scrape.NewJinaFetcher(client))
	} else {
		zap.L().Info("jina key not set, web search disabled")
	}

	env.Fetcher = scrape.NewGuardFetcher(
		scrape.NewFetchChain(scrape.NewURLFilter(c.Resolver.ExcludePaths), fetchers...),
		env.Breakers.Get(breakerDetail),
	)
	return env, nil
}

// newResolver builds a batch-scoped resolver. metrics may be nil.
func (e *lookupEnv) newResolver(c *config.Config, metrics *monitoring.Metrics) *resolver.Resolver {
	opts := resolver.Options{
		Searcher:       e.Searcher,
		TrustedDomains: c.Resolver.TrustedDomains,
		Rules:          e.Rules,
		Fetcher:        e.Fetcher,
	}
	if metrics != nil {
		opts.OnResolved = metrics.ObserveResolution
	}
	return resolver.New(opts)
}

// initStore opens and migrates the configured run history store.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	return st, nil
}

// rowDelay maps the configured delay onto pipeline semantics, where zero
// selects the default and a negative value disables spacing.
func rowDelay(d time.Duration) time.Duration {
	if d == 0 {
		return -1
	}
	return d
}
