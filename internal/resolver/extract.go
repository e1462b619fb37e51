package resolver

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/SM97490/agent-produits-distrisku/internal/model"
)

// Category labels shared by extraction and fallback rules.
const (
	CategoryIPCamera     = "Caméra IP"
	CategoryAnalogCamera = "Caméra Analogique"
	CategoryCamera       = "Caméra"
	CategoryRecorder     = "Enregistreur"
	CategoryAccessory    = "Accessoire"
	CategoryComponent    = "Composant"
	CategorySecurity     = "Sécurité"
)

// DefaultSpecifications is used when no specification keyword matched.
const DefaultSpecifications = "Spécifications techniques avancées"

const maxNameRunes = 100
const maxDescriptionRunes = 200

// Confidence contributions for snippet candidates.
const (
	bonusSKUInName   = 0.3
	bonusDescription = 0.2
	bonusSpecs       = 0.2
	bonusTrusted     = 0.3
)

var (
	titleCutRe   = regexp.MustCompile(`\s+-\s.*$|[|•–—].*$`)
	spaceRe      = regexp.MustCompile(`\s+`)
	megapixelRe  = regexp.MustCompile(`(\d+)\s*(?:mp\b|megapixels?)`)
	shortTokenRe = regexp.MustCompile(`\b(ip|ir|hd|cam)\b`)
)

// DefaultTrustedDomains lists the vendor and distributor sites that earn
// the trusted-source bonus.
var DefaultTrustedDomains = []string{
	"hikvision.com",
	"ubitech.fr",
	"tevah-systems.com",
	"adi-global.com",
}

// keywordText is a lower-cased search blob with word-level lookups for short
// tokens that would otherwise match inside longer words.
type keywordText struct {
	lower  string
	tokens map[string]bool
}

func newKeywordText(parts ...string) keywordText {
	lower := strings.ToLower(strings.Join(parts, " "))
	kt := keywordText{lower: lower, tokens: make(map[string]bool)}
	for _, m := range shortTokenRe.FindAllString(lower, -1) {
		kt.tokens[m] = true
	}
	return kt
}

// has reports whether any keyword appears. The short tokens matched by
// shortTokenRe must appear as whole words.
func (k keywordText) has(words ...string) bool {
	for _, w := range words {
		if shortTokenRe.MatchString(w) && len(w) <= 3 {
			if k.tokens[w] {
				return true
			}
			continue
		}
		if strings.Contains(k.lower, w) {
			return true
		}
	}
	return false
}

func classify(kt keywordText) string {
	switch {
	case kt.has("camera", "caméra", "cam"):
		switch {
		case kt.has("ip", "network", "réseau"):
			return CategoryIPCamera
		case kt.has("turbo", "hd", "analogique"):
			return CategoryAnalogCamera
		default:
			return CategoryCamera
		}
	case kt.has("nvr", "enregistreur"):
		return CategoryRecorder
	case kt.has("adaptateur", "alimentation", "power"):
		return CategoryAccessory
	default:
		return CategorySecurity
	}
}

func detectSpecs(kt keywordText) []string {
	var specs []string
	if m := megapixelRe.FindStringSubmatch(kt.lower); m != nil {
		specs = append(specs, fmt.Sprintf("Résolution %sMP", m[1]))
	}
	if kt.has("4k", "uhd") {
		specs = append(specs, "Résolution 4K")
	}
	if kt.has("night", "nocturne", "infrared", "ir") {
		specs = append(specs, "Vision nocturne")
	}
	if kt.has("wifi", "wireless", "sans fil") {
		specs = append(specs, "WiFi")
	}
	if kt.has("poe", "ethernet") {
		specs = append(specs, "PoE")
	}
	if kt.has("ip67", "ip66", "waterproof", "étanche") {
		specs = append(specs, "Résistant intempéries")
	}
	return specs
}

func accessoriesFor(category string) []string {
	switch category {
	case CategoryIPCamera:
		return []string{"Support de montage", "Câble réseau", "Adaptateur PoE", "Guide d'installation"}
	case CategoryAnalogCamera:
		return []string{"Support de montage", "Câble coaxial", "Adaptateur secteur", "Manuel technique"}
	case CategoryAccessory:
		return []string{"Documentation technique", "Garantie constructeur"}
	default:
		return []string{"Manuel d'utilisation", "Kit de montage", "Support technique"}
	}
}

func filtersFor(category string, kt keywordText) []string {
	filters := []string{category, "HIKVISION", "Sécurité", "Professionnel"}
	if kt.has("ip") {
		filters = append(filters, "IP")
	}
	if kt.has("hd", "4k") {
		filters = append(filters, "Haute Définition")
	}
	if kt.has("extérieur", "outdoor", "ip67") {
		filters = append(filters, "Extérieur")
	}
	if kt.has("intérieur", "indoor") {
		filters = append(filters, "Intérieur")
	}
	if kt.has("wifi") {
		filters = append(filters, "Sans fil")
	}
	return filters
}

// cleanName keeps the part of a title before the first separator.
func cleanName(title string) string {
	name := titleCutRe.ReplaceAllString(title, "")
	name = spaceRe.ReplaceAllString(strings.TrimSpace(name), " ")
	return truncateRunes(name, maxNameRunes)
}

func defaultName(sku string) string {
	return "Produit HIKVISION " + sku
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// isTrusted reports whether rawURL's host is, or is a subdomain of, one of
// domains.
func isTrusted(rawURL string, domains []string) bool {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// extractCandidate builds a ProductRecord from one search hit.
func extractCandidate(sku string, hit model.SearchResult, trusted []string) model.ProductRecord {
	rec := model.ProductRecord{
		SKU:       sku,
		SourceURL: hit.URL,
		Source:    model.SourceSearch,
	}

	rec.Name = defaultName(sku)
	if containsFold(hit.Title, sku) {
		if name := cleanName(hit.Title); name != "" {
			rec.Name = name
		}
	}

	kt := newKeywordText(hit.Title, hit.Snippet)
	rec.Category = classify(kt)

	if snippet := strings.TrimSpace(hit.Snippet); snippet != "" {
		rec.Description = truncateRunes(snippet, maxDescriptionRunes)
	} else {
		rec.Description = "Produit de sécurité professionnel " + sku
	}

	specs := detectSpecs(kt)
	rec.Specifications = DefaultSpecifications
	if len(specs) > 0 {
		rec.Specifications = strings.Join(specs, ", ")
	}

	rec.Accessories = accessoriesFor(rec.Category)
	rec.Filters = filtersFor(rec.Category, kt)

	var score float64
	if containsFold(rec.Name, sku) {
		score += bonusSKUInName
	}
	if utf8.RuneCountInString(rec.Description) > 50 {
		score += bonusDescription
	}
	if len(specs) > 0 {
		score += bonusSpecs
	}
	if isTrusted(hit.URL, trusted) {
		score += bonusTrusted
	}
	rec.Confidence = min(score, 1.0)
	return rec
}
