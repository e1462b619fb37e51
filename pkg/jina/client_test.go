package jina

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/HIKVISION DS-2CD2143G2-I", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Empty(t, r.URL.RawQuery)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(searchResponse{Code: 200, Data: []SearchResult{
			{Title: "DS-2CD2143G2-I | Hikvision", URL: "https://www.hikvision.com/fr/products/ds-2cd2143g2-i", Description: "Caméra 4MP"},
			{Title: "Fiche", URL: "https://example.com/x", Content: "contenu"},
		}})
	}))
	defer srv.Close()

	client := NewClient("test-key", WithSearchURL(srv.URL))
	got, err := client.Search(context.Background(), "HIKVISION DS-2CD2143G2-I")

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "DS-2CD2143G2-I | Hikvision", got[0].Title)
	assert.Equal(t, "Caméra 4MP", got[0].Description)
	assert.Equal(t, "contenu", got[1].Content)
}

func TestSearch_Options(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "hikvision.com", r.URL.Query().Get("site"))
		assert.Equal(t, "3", r.URL.Query().Get("num"))
		assert.Equal(t, "fr", r.URL.Query().Get("hl"))
		_ = json.NewEncoder(w).Encode(searchResponse{Code: 200})
	}))
	defer srv.Close()

	client := NewClient("k", WithSearchURL(srv.URL))
	got, err := client.Search(context.Background(), "DS-7608NI", WithSite("hikvision.com"), WithCount(3), WithLanguage("fr"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSearch_NoResults(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"code":422}`))
	}))
	defer srv.Close()

	got, err := NewClient("k", WithSearchURL(srv.URL)).Search(context.Background(), "nothing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSearch_HTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"rate limit exceeded"}`))
	}))
	defer srv.Close()

	_, err := NewClient("k", WithSearchURL(srv.URL)).Search(context.Background(), "DS-2CD1")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusTooManyRequests, apiErr.HTTPStatus())
	assert.Equal(t, "search", apiErr.Endpoint)
	assert.Contains(t, err.Error(), "429")
}

func TestSearch_MalformedJSON(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	_, err := NewClient("k", WithSearchURL(srv.URL)).Search(context.Background(), "DS-2CD1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode search response")
}

func TestRead_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/https://www.hikvision.com/fr/products/ds-2cd1", r.URL.Path)
		assert.Equal(t, "html", r.Header.Get("X-Return-Format"))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(readResponse{Code: 200, Data: Page{
			Title:   "DS-2CD1",
			URL:     "https://www.hikvision.com/fr/products/ds-2cd1",
			Content: "<html><h1>DS-2CD1</h1></html>",
		}})
	}))
	defer srv.Close()

	page, err := NewClient("test-key", WithReaderURL(srv.URL)).Read(context.Background(), "https://www.hikvision.com/fr/products/ds-2cd1")
	require.NoError(t, err)
	assert.Equal(t, "DS-2CD1", page.Title)
	assert.Contains(t, page.Content, "<h1>")
}

func TestRead_Options(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "markdown", r.Header.Get("X-Return-Format"))
		assert.Equal(t, "main", r.Header.Get("X-Target-Selector"))
		assert.Empty(t, r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(readResponse{Code: 200})
	}))
	defer srv.Close()

	_, err := NewClient("", WithReaderURL(srv.URL)).Read(context.Background(), "https://example.com",
		WithFormat(FormatMarkdown), WithTargetSelector("main"))
	require.NoError(t, err)
}

func TestRead_ServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`internal error`))
	}))
	defer srv.Close()

	_, err := NewClient("k", WithReaderURL(srv.URL)).Read(context.Background(), "https://example.com")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "internal error", apiErr.Body)
}

func TestRead_ContextCancellation(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewClient("k", WithReaderURL(srv.URL)).Read(ctx, "https://example.com")
	assert.Error(t, err)
}

func TestNewClient_Defaults(t *testing.T) {
	t.Parallel()

	c, ok := NewClient("k").(*httpClient)
	require.True(t, ok)
	assert.Equal(t, DefaultReaderURL, c.readerURL)
	assert.Equal(t, DefaultSearchURL, c.searchURL)
	assert.Equal(t, 30*time.Second, c.http.Timeout)

	hc := &http.Client{Timeout: time.Second}
	c, ok = NewClient("k", WithHTTPClient(hc)).(*httpClient)
	require.True(t, ok)
	assert.Same(t, hc, c.http)
}

func TestSnippet(t *testing.T) {
	t.Parallel()

	long := make([]byte, 500)
	for i := range long {
		long[i] = 'a'
	}
	assert.Len(t, snippet(long), 200)
	assert.Equal(t, "short", snippet([]byte("short")))
}
