// Package model holds the records that flow through the enrichment pipeline.
package model

import (
	"slices"

	"github.com/shopspring/decimal"
)

// RecordSource identifies which resolution path produced a ProductRecord.
type RecordSource string

const (
	SourceSearch   RecordSource = "search"
	SourceDetail   RecordSource = "detail"
	SourceFallback RecordSource = "fallback"
)

// SearchResult is one hit returned by a search capability.
type SearchResult struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// ProductRecord is the structured information resolved for one SKU.
type ProductRecord struct {
	SKU            string       `json:"sku"`
	Name           string       `json:"name"`
	Category       string       `json:"category"`
	Description    string       `json:"description"`
	Specifications string       `json:"specifications"`
	Accessories    []string     `json:"accessories"`
	Filters        []string     `json:"filters"`
	SourceURL      string       `json:"source_url,omitempty"`
	Confidence     float64      `json:"confidence"`
	Source         RecordSource `json:"source"`
}

// Clone returns a copy that shares no slices with r.
func (r ProductRecord) Clone() ProductRecord {
	r.Accessories = slices.Clone(r.Accessories)
	r.Filters = slices.Clone(r.Filters)
	return r
}

// PriceSet holds the prices derived from a purchase price.
type PriceSet struct {
	CostPrice    decimal.Decimal `json:"cost_price"`
	SellingPrice decimal.Decimal `json:"selling_price"`
}

// DescriptionSet holds the three generated texts for a product.
type DescriptionSet struct {
	ManagementLabel      string `json:"management_label"`
	QuoteDescription     string `json:"quote_description"`
	EcommerceDescription string `json:"ecommerce_description"`
}
