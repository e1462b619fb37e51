// Package pricing derives cost and selling prices from purchase prices using
// exact decimal arithmetic.
package pricing

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"

	"github.com/SM97490/agent-produits-distrisku/internal/model"
)

// ErrInvalidPrice is returned for non-numeric or negative purchase prices.
var ErrInvalidPrice = eris.New("pricing: invalid purchase price")

var (
	// CostMultiplier turns a purchase price into a cost price (16% overhead).
	CostMultiplier = decimal.RequireFromString("1.16")
	// MarginDivisor turns a cost price into a selling price (35% margin).
	MarginDivisor = decimal.RequireFromString("0.65")
)

// Places is the number of decimal places kept on every price.
const Places = 2

// Calculate returns the PriceSet for a purchase price. Both values are
// rounded half-up to two places; the selling price is computed from the
// already-rounded cost price. A negative purchase price yields a zero
// PriceSet and ErrInvalidPrice.
func Calculate(purchase decimal.Decimal) (model.PriceSet, error) {
	if purchase.IsNegative() {
		return zeroPrices(), eris.Wrapf(ErrInvalidPrice, "negative value %s", purchase.String())
	}

	cost := purchase.Mul(CostMultiplier).Round(Places)
	selling := cost.DivRound(MarginDivisor, Places)

	return model.PriceSet{
		CostPrice:    cost,
		SellingPrice: selling,
	}, nil
}

// CalculateString parses raw with ParsePurchasePrice and calculates prices.
func CalculateString(raw string) (model.PriceSet, error) {
	purchase, err := ParsePurchasePrice(raw)
	if err != nil {
		return zeroPrices(), err
	}
	return Calculate(purchase)
}

// ParsePurchasePrice parses a spreadsheet price cell. It accepts surrounding
// whitespace, a euro sign, space or non-breaking-space thousands separators
// and a comma decimal separator. Negative values are rejected.
func ParsePurchasePrice(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimSuffix(s, "€")
	s = strings.TrimPrefix(s, "€")
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0', '\u202f':
			return -1
		}
		return r
	}, s)
	if s == "" {
		return decimal.Zero, eris.Wrap(ErrInvalidPrice, "empty value")
	}

	comma := strings.LastIndex(s, ",")
	dot := strings.LastIndex(s, ".")
	switch {
	case comma >= 0 && dot >= 0 && comma > dot:
		// 1.234,56
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case comma >= 0 && dot >= 0:
		// 1,234.56
		s = strings.ReplaceAll(s, ",", "")
	case comma >= 0:
		s = strings.Replace(s, ",", ".", 1)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, eris.Wrapf(ErrInvalidPrice, "parse %q", raw)
	}
	if d.IsNegative() {
		return decimal.Zero, eris.Wrapf(ErrInvalidPrice, "negative value %q", raw)
	}
	return d, nil
}

func zeroPrices() model.PriceSet {
	return model.PriceSet{CostPrice: decimal.Zero, SellingPrice: decimal.Zero}
}
