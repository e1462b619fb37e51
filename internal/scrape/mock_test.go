package scrape

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/SM97490/agent-produits-distrisku/internal/model"
)

type mockFetcher struct {
	mock.Mock
	name string
}

func (m *mockFetcher) Name() string { return m.name }

func (m *mockFetcher) FetchDetail(ctx context.Context, url, focusHint string) (string, error) {
	args := m.Called(ctx, url, focusHint)
	return args.String(0), args.Error(1)
}

type mockSearcher struct {
	mock.Mock
}

func (m *mockSearcher) Search(ctx context.Context, query string) ([]model.SearchResult, error) {
	args := m.Called(ctx, query)
	hits, _ := args.Get(0).([]model.SearchResult)
	return hits, args.Error(1)
}
