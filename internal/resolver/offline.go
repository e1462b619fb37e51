package resolver

import (
	"context"
	"net/url"

	"github.com/SM97490/agent-produits-distrisku/internal/model"
)

// OfflineSearcher stands in for a web searcher when none is configured. It
// answers every query with one catalogue placeholder carrying no product
// data, so extraction never reaches the acceptance confidence and the SKU
// rules decide the record.
type OfflineSearcher struct{}

// Search implements Searcher.
func (OfflineSearcher) Search(_ context.Context, query string) ([]model.SearchResult, error) {
	return []model.SearchResult{{
		URL:     "offline:catalogue?q=" + url.QueryEscape(query),
		Title:   "Catalogue hors ligne",
		Snippet: "Aucun résultat en ligne",
	}}, nil
}
