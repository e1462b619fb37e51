package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/SM97490/agent-produits-distrisku/internal/model"
	"github.com/SM97490/agent-produits-distrisku/internal/store"
)

// historyLimit bounds how many runs one snapshot reads.
const historyLimit = 10000

// Snapshot is a point-in-time view of batch run health.
type Snapshot struct {
	RunsTotal    int     `json:"runs_total"`
	RunsComplete int     `json:"runs_complete"`
	RunsFailed   int     `json:"runs_failed"`
	RunsRunning  int     `json:"runs_running"`
	FailRate     float64 `json:"fail_rate"`

	RowsProcessed int `json:"rows_processed"`
	RowsValidated int `json:"rows_validated"`
	RowsSkipped   int `json:"rows_skipped"`
	// AvgValidationRate averages ValidationRatePercent over completed runs
	// that processed at least one row.
	AvgValidationRate float64 `json:"avg_validation_rate"`

	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// RunLister is the store capability the collector needs.
type RunLister interface {
	ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error)
}

// Collector builds snapshots from run history.
type Collector struct {
	runs RunLister
	now  func() time.Time
}

// NewCollector creates a collector reading from runs.
func NewCollector(runs RunLister) *Collector {
	return &Collector{runs: runs, now: time.Now}
}

// Collect summarises runs created within the last lookbackHours.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*Snapshot, error) {
	now := c.now().UTC()
	snap := &Snapshot{LookbackHours: lookbackHours, CollectedAt: now}

	runs, err := c.runs.ListRuns(ctx, store.RunFilter{
		Since: now.Add(-time.Duration(lookbackHours) * time.Hour),
		Limit: historyLimit,
	})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	snap.RunsTotal = len(runs)
	var rateSum float64
	var rated int
	for _, r := range runs {
		switch r.Status {
		case model.RunStatusComplete:
			snap.RunsComplete++
		case model.RunStatusFailed:
			snap.RunsFailed++
		case model.RunStatusRunning:
			snap.RunsRunning++
		}
		if r.Outcome == nil {
			continue
		}
		snap.RowsProcessed += r.Outcome.ProcessedCount
		snap.RowsValidated += r.Outcome.ValidatedCount
		snap.RowsSkipped += r.Outcome.SkippedCount
		if r.Status == model.RunStatusComplete && r.Outcome.ProcessedCount > 0 {
			rateSum += r.Outcome.ValidationRatePercent
			rated++
		}
	}

	if finished := snap.RunsComplete + snap.RunsFailed; finished > 0 {
		snap.FailRate = float64(snap.RunsFailed) / float64(finished)
	}
	if rated > 0 {
		snap.AvgValidationRate = rateSum / float64(rated)
	}
	return snap, nil
}
