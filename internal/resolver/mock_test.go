package resolver

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/SM97490/agent-produits-distrisku/internal/model"
)

// --- Searcher Mock ---

type mockSearcher struct {
	mock.Mock
}

func (m *mockSearcher) Search(ctx context.Context, query string) ([]model.SearchResult, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.SearchResult), args.Error(1)
}

// --- DetailFetcher Mock ---

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) FetchDetail(ctx context.Context, url, focusHint string) (string, error) {
	args := m.Called(ctx, url, focusHint)
	return args.String(0), args.Error(1)
}

// panicSearcher panics on every call.
type panicSearcher struct{}

func (panicSearcher) Search(context.Context, string) ([]model.SearchResult, error) {
	panic("search backend exploded")
}
