// Package quality scores generated product content on a 0-100 scale and
// applies the acceptance threshold.
package quality

import (
	"strings"
	"unicode/utf8"

	"github.com/SM97490/agent-produits-distrisku/internal/model"
)

const (
	// Threshold is the default minimum score for a row to be validated.
	Threshold = 95.0
	// MaxScore caps the additive total.
	MaxScore = 100.0
)

// band awards points to the first threshold the measured value exceeds.
type band struct {
	over   int
	points float64
}

var (
	descriptionBands    = []band{{80, 20}, {50, 15}, {30, 12}, {15, 8}}
	specificationBands  = []band{{40, 20}, {25, 15}, {15, 12}, {5, 8}}
	accessoryBands      = []band{{2, 15}, {1, 12}, {0, 8}} // count >= over+1
	managementBands     = []band{{20, 10}, {10, 7}}
	ecommerceBands      = []band{{400, 15}, {250, 12}, {150, 8}}
	confidenceMaxPoints = 10.0
)

func award(n int, bands []band) float64 {
	for _, b := range bands {
		if n > b.over {
			return b.points
		}
	}
	return 0
}

// Breakdown holds the points awarded per criterion.
type Breakdown struct {
	Name           float64 `json:"name"`
	Description    float64 `json:"description"`
	Specifications float64 `json:"specifications"`
	Accessories    float64 `json:"accessories"`
	ManagementText float64 `json:"management_label"`
	EcommerceText  float64 `json:"ecommerce_description"`
	Confidence     float64 `json:"confidence"`
	Total          float64 `json:"total"`
}

// Explain computes the per-criterion breakdown. String lengths are counted in
// characters, not bytes.
func Explain(sku string, rec model.ProductRecord, desc model.DescriptionSet) Breakdown {
	var b Breakdown

	nameLen := utf8.RuneCountInString(rec.Name)
	switch {
	case nameLen > 15 && strings.Contains(rec.Name, sku):
		b.Name = 20
	case nameLen > 10:
		b.Name = 15
	case nameLen > 5:
		b.Name = 10
	}

	b.Description = award(utf8.RuneCountInString(rec.Description), descriptionBands)
	b.Specifications = award(utf8.RuneCountInString(rec.Specifications), specificationBands)
	b.Accessories = award(len(rec.Accessories), accessoryBands)
	b.ManagementText = award(utf8.RuneCountInString(desc.ManagementLabel), managementBands)
	b.EcommerceText = award(utf8.RuneCountInString(desc.EcommerceDescription), ecommerceBands)

	conf := min(max(rec.Confidence, 0), 1)
	b.Confidence = conf * confidenceMaxPoints

	total := b.Name + b.Description + b.Specifications + b.Accessories +
		b.ManagementText + b.EcommerceText + b.Confidence
	b.Total = min(total, MaxScore)
	return b
}

// Score returns the capped quality score in [0, 100].
func Score(sku string, rec model.ProductRecord, desc model.DescriptionSet) float64 {
	return Explain(sku, rec, desc).Total
}

// Validate reports whether score meets the default Threshold.
func Validate(score float64) bool {
	return score >= Threshold
}

// Scorer applies a configurable acceptance threshold.
type Scorer struct {
	threshold float64
}

// NewScorer returns a Scorer. A threshold outside [0, 100] falls back to
// Threshold.
func NewScorer(threshold float64) *Scorer {
	if threshold < 0 || threshold > MaxScore {
		threshold = Threshold
	}
	return &Scorer{threshold: threshold}
}

// Threshold returns the configured acceptance threshold.
func (s *Scorer) Threshold() float64 { return s.threshold }

// Evaluate scores a row and reports whether it passes.
func (s *Scorer) Evaluate(sku string, rec model.ProductRecord, desc model.DescriptionSet) (float64, bool) {
	score := Score(sku, rec, desc)
	return score, score >= s.threshold
}
