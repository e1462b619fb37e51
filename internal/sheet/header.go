package sheet

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Canonical input columns.
const (
	ColumnSKU   = "SKU"
	ColumnPrice = "Prix d'achat"
)

// priceAliases are the normalized header spellings of the purchase price.
var priceAliases = map[string]bool{
	"prix d'achat": true,
	"prix achat":   true,
	"prix dachat":  true,
}

// NormalizeHeader folds case and accents, maps typographic apostrophes to
// ASCII and collapses whitespace, so "Prix d’Achat " and "prix d'achat"
// compare equal.
func NormalizeHeader(h string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, h)
	if err != nil {
		folded = h
	}
	folded = strings.NewReplacer("’", "'", "‘", "'", "`", "'", "´", "'").Replace(folded)
	folded = strings.ToLower(folded)
	return strings.Join(strings.Fields(folded), " ")
}

// CanonicalColumn maps a raw header to ColumnSKU, ColumnPrice or "".
func CanonicalColumn(h string) string {
	n := NormalizeHeader(h)
	switch {
	case n == "sku":
		return ColumnSKU
	case priceAliases[n]:
		return ColumnPrice
	default:
		return ""
	}
}
