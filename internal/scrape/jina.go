// Package scrape provides the web capabilities used by the resolver: search
// through Jina, detail page fetching through Jina or plain HTTP, fetch
// chaining and circuit-breaker guards.
package scrape

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/SM97490/agent-produits-distrisku/internal/model"
	"github.com/SM97490/agent-produits-distrisku/internal/resilience"
	"github.com/SM97490/agent-produits-distrisku/pkg/jina"
)

// snippetRunes caps the snippet kept from a search hit.
const snippetRunes = 500

// minContent is the smallest page body worth handing to detail extraction.
const minContent = 100

// JinaSearcher runs web searches through the Jina search endpoint.
type JinaSearcher struct {
	client jina.Client
	count  int
	retry  resilience.RetryConfig
}

// NewJinaSearcher creates a searcher asking for count results per query
// (0 leaves the API default).
func NewJinaSearcher(client jina.Client, count int) *JinaSearcher {
	return &JinaSearcher{
		client: client,
		count:  count,
		retry:  resilience.RetryConfig{Attempts: 2, Name: "jina_search"},
	}
}

// Search implements resolver.Searcher.
func (s *JinaSearcher) Search(ctx context.Context, query string) ([]model.SearchResult, error) {
	opts := []jina.SearchOption{jina.WithLanguage("fr")}
	if s.count > 0 {
		opts = append(opts, jina.WithCount(s.count))
	}

	results, err := resilience.Retry(ctx, s.retry, func(ctx context.Context) ([]jina.SearchResult, error) {
		return s.client.Search(ctx, query, opts...)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "scrape: search %q", query)
	}

	hits := make([]model.SearchResult, 0, len(results))
	for _, r := range results {
		if r.URL == "" {
			continue
		}
		snippet := r.Description
		if snippet == "" {
			snippet = r.Content
		}
		hits = append(hits, model.SearchResult{
			URL:     r.URL,
			Title:   strings.TrimSpace(r.Title),
			Snippet: truncate(strings.TrimSpace(snippet), snippetRunes),
		})
	}

	zap.L().Debug("scrape: search done",
		zap.String("query", query),
		zap.Int("hits", len(hits)),
	)
	return hits, nil
}

// JinaFetcher fetches detail pages as HTML through the Jina reader.
type JinaFetcher struct {
	client jina.Client
	retry  resilience.RetryConfig
}

// NewJinaFetcher creates a JinaFetcher.
func NewJinaFetcher(client jina.Client) *JinaFetcher {
	return &JinaFetcher{
		client: client,
		retry:  resilience.RetryConfig{Attempts: 2, Name: "jina_read"},
	}
}

// Name identifies the fetcher in logs.
func (f *JinaFetcher) Name() string { return "jina" }

// FetchDetail implements resolver.DetailFetcher. Challenge pages and near
// empty bodies are reported as no content.
func (f *JinaFetcher) FetchDetail(ctx context.Context, url, focusHint string) (string, error) {
	page, err := resilience.Retry(ctx, f.retry, func(ctx context.Context) (*jina.Page, error) {
		return f.client.Read(ctx, url)
	})
	if err != nil {
		return "", eris.Wrapf(err, "scrape: jina read %s", url)
	}

	content := strings.TrimSpace(page.Content)
	if len(content) < minContent {
		zap.L().Debug("scrape: jina page too short", zap.String("url", url), zap.String("focus", focusHint))
		return "", nil
	}
	if reason := DetectBlock(0, nil, content); reason != NotBlocked && len(content) < 4*shellSize {
		zap.L().Debug("scrape: jina page blocked", zap.String("url", url), zap.String("reason", string(reason)))
		return "", nil
	}
	return content, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
