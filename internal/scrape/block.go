package scrape

import (
	"net/http"
	"strings"
)

// BlockReason names the kind of anti-bot page detected.
type BlockReason string

// Block reasons.
const (
	NotBlocked      BlockReason = ""
	BlockCloudflare BlockReason = "cloudflare"
	BlockCaptcha    BlockReason = "captcha"
	BlockJSShell    BlockReason = "js_shell"
)

// shellSize is the body size below which a page may be a JS-only shell.
const shellSize = 2000

var blockMarkers = []struct {
	marker string
	reason BlockReason
}{
	{"checking your browser", BlockCloudflare},
	{"cf-browser-verification", BlockCloudflare},
	{"just a moment...", BlockCloudflare},
	{"attention required", BlockCloudflare},
	{"recaptcha", BlockCaptcha},
	{"hcaptcha", BlockCaptcha},
	{"captcha", BlockCaptcha},
}

// DetectBlock reports whether a page is an anti-bot challenge rather than
// content. header may be nil for bodies that did not come straight from an
// HTTP response.
func DetectBlock(status int, header http.Header, body string) BlockReason {
	if (status == http.StatusForbidden || status == http.StatusServiceUnavailable) && header != nil {
		if header.Get("Cf-Ray") != "" || strings.EqualFold(header.Get("Server"), "cloudflare") {
			return BlockCloudflare
		}
	}

	lower := strings.ToLower(body)
	for _, m := range blockMarkers {
		if strings.Contains(lower, m.marker) {
			return m.reason
		}
	}

	if len(body) < shellSize {
		if strings.Contains(lower, "<noscript") && strings.Contains(lower, "enable javascript") {
			return BlockJSShell
		}
		if strings.Contains(lower, `http-equiv="refresh"`) {
			return BlockJSShell
		}
	}
	return NotBlocked
}
