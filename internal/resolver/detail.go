package resolver

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/SM97490/agent-produits-distrisku/internal/model"
)

// DetailConfidence is assigned to every record built from a fetched page.
const DetailConfidence = 0.95

type specPattern struct {
	re    *regexp.Regexp
	label func(match []string) string
}

func fixed(label string) func([]string) string {
	return func([]string) string { return label }
}

func upper(m []string) string { return strings.ToUpper(m[0]) }

var detailSpecPatterns = []specPattern{
	{regexp.MustCompile(`(?i)(\d+)\s*MP\b`), func(m []string) string { return m[1] + "MP" }},
	{regexp.MustCompile(`(?i)(\d+)\s*megapixels?`), func(m []string) string { return m[1] + "MP" }},
	{regexp.MustCompile(`(?i)\b(?:4K|UHD)\b`), fixed("4K")},
	{regexp.MustCompile(`(?i)\bPoE\+?`), fixed("PoE")},
	{regexp.MustCompile(`(?i)\b(?:WiFi|Wi-Fi|Wireless)\b`), fixed("WiFi")},
	{regexp.MustCompile(`(?i)\b(?:IR|Infrared|Night Vision)\b`), fixed("IR")},
	{regexp.MustCompile(`(?i)\bIP6[67]\b`), upper},
	{regexp.MustCompile(`(?i)\bH\.26[45]\+?`), upper},
	{regexp.MustCompile(`(?i)\bColorVu\b`), fixed("ColorVu")},
	{regexp.MustCompile(`(?i)\bAcuSense\b`), fixed("AcuSense")},
}

var jsonDescriptionRe = regexp.MustCompile(`(?i)description["']\s*:\s*["']([^"']{50,200})["']`)

// extractDetail builds a record from fetched page content. HTML is parsed
// with goquery; plain text and markdown fall through to the text patterns.
// ok is false when content is blank.
func extractDetail(sku, pageURL, content string) (rec model.ProductRecord, ok bool) {
	if strings.TrimSpace(content) == "" {
		return model.ProductRecord{}, false
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		doc = nil
	}

	text := content
	if doc != nil {
		doc.Find("script, style, noscript").Remove()
		text = doc.Text()
	}

	rec = model.ProductRecord{
		SKU:        sku,
		SourceURL:  pageURL,
		Source:     model.SourceDetail,
		Confidence: DetailConfidence,
	}

	rec.Name = detailName(sku, text, doc)
	rec.Description = detailDescription(sku, content, doc)

	specs := detailSpecs(text)
	rec.Specifications = DefaultSpecifications
	if len(specs) > 0 {
		rec.Specifications = strings.Join(specs, ", ")
	}

	kt := newKeywordText(text)
	switch {
	case kt.has("camera", "caméra"):
		switch {
		case kt.has("ip", "network", "réseau"):
			rec.Category = CategoryIPCamera
		case kt.has("turbo", "hd"):
			rec.Category = CategoryAnalogCamera
		default:
			rec.Category = CategoryCamera
		}
	case kt.has("nvr"):
		rec.Category = CategoryRecorder
	default:
		rec.Category = CategorySecurity
	}

	rec.Accessories = []string{"Support de montage", "Documentation technique", "Garantie constructeur", "Support HIKVISION"}
	rec.Filters = []string{rec.Category, "HIKVISION", "Professionnel", "Haute qualité"}
	return rec, true
}

func detailName(sku, text string, doc *goquery.Document) string {
	lowerSKU := strings.ToLower(sku)
	for line := range strings.Lines(text) {
		idx := strings.Index(strings.ToLower(line), lowerSKU)
		if idx < 0 {
			continue
		}
		if name := strings.TrimSpace(line[idx:]); name != "" {
			return truncateRunes(spaceRe.ReplaceAllString(name, " "), maxNameRunes)
		}
	}
	if doc != nil {
		for _, sel := range []string{"h1", "title"} {
			if name := strings.TrimSpace(doc.Find(sel).First().Text()); name != "" {
				return truncateRunes(spaceRe.ReplaceAllString(name, " "), maxNameRunes)
			}
		}
	}
	return defaultName(sku)
}

func detailDescription(sku, raw string, doc *goquery.Document) string {
	if doc != nil {
		if meta, ok := doc.Find(`meta[name="description"]`).First().Attr("content"); ok {
			if meta = strings.TrimSpace(meta); meta != "" {
				return truncateRunes(meta, maxDescriptionRunes)
			}
		}

		var para string
		doc.Find("p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			t := strings.TrimSpace(s.Text())
			if n := utf8.RuneCountInString(t); n >= 50 && n <= 200 {
				para = t
				return false
			}
			return true
		})
		if para != "" {
			return para
		}
	}

	if m := jsonDescriptionRe.FindStringSubmatch(raw); m != nil {
		return truncateRunes(strings.TrimSpace(m[1]), maxDescriptionRunes)
	}
	return "Produit de sécurité professionnel HIKVISION " + sku
}

// detailSpecs returns spec tokens in pattern order, without duplicates.
func detailSpecs(text string) []string {
	var specs []string
	seen := make(map[string]bool)
	for _, p := range detailSpecPatterns {
		for _, m := range p.re.FindAllStringSubmatch(text, -1) {
			label := p.label(m)
			if seen[label] {
				continue
			}
			seen[label] = true
			specs = append(specs, label)
		}
	}
	return specs
}
