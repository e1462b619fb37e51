package scrape

import (
	"net/url"
	"path"
	"strings"
)

// DefaultExcludePatterns are URL paths never fetched for detail extraction:
// binary datasheets and download or support listings carry no product page
// markup.
var DefaultExcludePatterns = []string{
	"*.pdf",
	"*.zip",
	"/download/*",
	"/*/download/*",
	"/support/*",
}

// URLFilter rejects URLs whose path matches a glob pattern. A pattern ending
// in "/*" also matches deeper paths; a pattern with no slash matches the last
// path segment.
type URLFilter struct {
	patterns []string
}

// NewURLFilter creates a filter. An empty list uses DefaultExcludePatterns.
func NewURLFilter(patterns []string) *URLFilter {
	if len(patterns) == 0 {
		patterns = DefaultExcludePatterns
	}
	lower := make([]string, len(patterns))
	for i, p := range patterns {
		lower[i] = strings.ToLower(p)
	}
	return &URLFilter{patterns: lower}
}

// Excluded reports whether rawURL must not be fetched. Unparseable URLs and
// non-HTTP schemes are excluded.
func (f *URLFilter) Excluded(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return true
	}
	p := strings.ToLower(u.Path)
	for _, pattern := range f.patterns {
		if matchPath(pattern, p) {
			return true
		}
	}
	return false
}

func matchPath(pattern, p string) bool {
	if !strings.Contains(pattern, "/") {
		ok, _ := path.Match(pattern, path.Base(p))
		return ok
	}
	if ok, _ := path.Match(pattern, p); ok {
		return true
	}
	if dir, ok := strings.CutSuffix(pattern, "/*"); ok {
		// Match the directory against the same number of leading segments.
		n := strings.Count(dir, "/")
		segs := strings.SplitAfterN(p, "/", n+2)
		if len(segs) > n {
			prefix := strings.TrimSuffix(strings.Join(segs[:n+1], ""), "/")
			if ok, _ := path.Match(dir, prefix); ok && len(p) > len(prefix) {
				return true
			}
		}
	}
	return false
}
