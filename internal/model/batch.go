package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// InputRow is a raw spreadsheet row before precondition checks.
type InputRow struct {
	Line          int    `json:"line"` // 1-based sheet row number
	SKU           string `json:"sku"`
	PurchasePrice string `json:"purchase_price"`
}

// RowResult is the enriched output for one processed row.
type RowResult struct {
	SKU                  string          `json:"sku"`
	ManagementLabel      string          `json:"management_label"`
	QuoteDescription     string          `json:"quote_description"`
	EcommerceDescription string          `json:"ecommerce_description"`
	PurchasePrice        decimal.Decimal `json:"purchase_price"`
	CostPrice            decimal.Decimal `json:"cost_price"`
	SellingPrice         decimal.Decimal `json:"selling_price"`
	Accessories          string          `json:"accessories"`
	Filters              string          `json:"filters"`
	QualityScore         float64         `json:"quality_score"`
	Validated            bool            `json:"validated"`
}

// BatchOutcome summarises one pipeline run.
type BatchOutcome struct {
	RunID                 string  `json:"run_id,omitempty"`
	Success               bool    `json:"success"`
	ProcessedCount        int     `json:"processed_count"`
	ValidatedCount        int     `json:"validated_count"`
	SkippedCount          int     `json:"skipped_count"`
	ProcessingTimeSeconds float64 `json:"processing_time_seconds"`
	ValidationRatePercent float64 `json:"validation_rate_percent"`
	OutputPath            string  `json:"output_path,omitempty"`
	Error                 string  `json:"error,omitempty"`
}

// ValidationRate returns validated/processed as a percentage, or 0 when
// nothing was processed.
func ValidationRate(processed, validated int) float64 {
	if processed <= 0 {
		return 0
	}
	return float64(validated) / float64(processed) * 100
}

// RunStatus is the lifecycle state of a recorded batch run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is a persisted batch run.
type Run struct {
	ID        string        `json:"id"`
	InputPath string        `json:"input_path"`
	Status    RunStatus     `json:"status"`
	Outcome   *BatchOutcome `json:"outcome,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}
