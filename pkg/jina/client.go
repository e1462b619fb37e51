// Package jina is a client for the Jina AI search (s.jina.ai) and reader
// (r.jina.ai) endpoints.
package jina

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
)

// Default endpoints.
const (
	DefaultReaderURL = "https://r.jina.ai"
	DefaultSearchURL = "https://s.jina.ai"
)

// maxBody caps how much of a response is read.
const maxBody = 4 << 20

// Client is the subset of the Jina API the enrichment lookups use.
type Client interface {
	// Search runs a web search and returns the results in rank order.
	Search(ctx context.Context, query string, opts ...SearchOption) ([]SearchResult, error)
	// Read fetches a page through the reader and returns its content in the
	// requested format.
	Read(ctx context.Context, targetURL string, opts ...ReadOption) (*Page, error)
}

// SearchResult is one search hit.
type SearchResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Content     string `json:"content"`
}

// Page is a page returned by the reader.
type Page struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

type searchResponse struct {
	Code int            `json:"code"`
	Data []SearchResult `json:"data"`
}

type readResponse struct {
	Code int  `json:"code"`
	Data Page `json:"data"`
}

// APIError is a non-success response from the API.
type APIError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("jina %s: status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// HTTPStatus returns the response status code.
func (e *APIError) HTTPStatus() int { return e.StatusCode }

// SearchOption configures a search.
type SearchOption func(url.Values, http.Header)

// WithSite restricts results to one domain.
func WithSite(domain string) SearchOption {
	return func(q url.Values, _ http.Header) {
		q.Set("site", domain)
	}
}

// WithCount limits the number of results.
func WithCount(n int) SearchOption {
	return func(q url.Values, _ http.Header) {
		if n > 0 {
			q.Set("num", strconv.Itoa(n))
		}
	}
}

// WithLanguage sets the result language, e.g. "fr".
func WithLanguage(lang string) SearchOption {
	return func(q url.Values, _ http.Header) {
		q.Set("hl", lang)
	}
}

// Format is the reader output format.
type Format string

// Reader output formats.
const (
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
)

// ReadOption configures a read.
type ReadOption func(http.Header)

// WithFormat selects the reader output format. The default is HTML.
func WithFormat(f Format) ReadOption {
	return func(h http.Header) {
		h.Set("X-Return-Format", string(f))
	}
}

// WithTargetSelector restricts the reader to a CSS selector.
func WithTargetSelector(sel string) ReadOption {
	return func(h http.Header) {
		h.Set("X-Target-Selector", sel)
	}
}

// Option configures the client.
type Option func(*httpClient)

// WithReaderURL overrides the reader endpoint.
func WithReaderURL(u string) Option {
	return func(c *httpClient) { c.readerURL = u }
}

// WithSearchURL overrides the search endpoint.
func WithSearchURL(u string) Option {
	return func(c *httpClient) { c.searchURL = u }
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

type httpClient struct {
	apiKey    string
	readerURL string
	searchURL string
	http      *http.Client
}

// NewClient creates a client authenticated with apiKey.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:    apiKey,
		readerURL: DefaultReaderURL,
		searchURL: DefaultSearchURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Search(ctx context.Context, query string, opts ...SearchOption) ([]SearchResult, error) {
	q := url.Values{}
	h := http.Header{}
	for _, opt := range opts {
		opt(q, h)
	}

	reqURL := c.searchURL + "/" + url.PathEscape(query)
	if len(q) > 0 {
		reqURL += "?" + q.Encode()
	}

	body, status, err := c.get(ctx, reqURL, h)
	if err != nil {
		return nil, eris.Wrap(err, "jina: search")
	}

	// 422 means no results for the query.
	if status == http.StatusUnprocessableEntity {
		return nil, nil
	}
	if status != http.StatusOK {
		return nil, &APIError{Endpoint: "search", StatusCode: status, Body: snippet(body)}
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, eris.Wrap(err, "jina: decode search response")
	}
	return resp.Data, nil
}

func (c *httpClient) Read(ctx context.Context, targetURL string, opts ...ReadOption) (*Page, error) {
	h := http.Header{}
	h.Set("X-Return-Format", string(FormatHTML))
	for _, opt := range opts {
		opt(h)
	}

	body, status, err := c.get(ctx, c.readerURL+"/"+targetURL, h)
	if err != nil {
		return nil, eris.Wrap(err, "jina: read")
	}
	if status != http.StatusOK {
		return nil, &APIError{Endpoint: "read", StatusCode: status, Body: snippet(body)}
	}

	var resp readResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, eris.Wrap(err, "jina: decode read response")
	}
	return &resp.Data, nil
}

func (c *httpClient) get(ctx context.Context, reqURL string, h http.Header) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, 0, eris.Wrap(err, "create request")
	}
	for k, v := range h {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, resp.StatusCode, eris.Wrap(err, "read response body")
	}
	return body, resp.StatusCode, nil
}

func snippet(body []byte) string {
	const n = 200
	if len(body) > n {
		return string(body[:n])
	}
	return string(body)
}
