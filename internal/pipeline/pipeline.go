// Package pipeline drives batch enrichment: each valid input row is
// resolved, priced, described, scored and validated, and only validated rows
// are kept for the output workbook.
package pipeline

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/SM97490/agent-produits-distrisku/internal/describe"
	"github.com/SM97490/agent-produits-distrisku/internal/model"
	"github.com/SM97490/agent-produits-distrisku/internal/pricing"
	"github.com/SM97490/agent-produits-distrisku/internal/quality"
)

// Defaults applied by New when Options leave a field zero.
const (
	DefaultMaxWorkers = 3
	DefaultRowDelay   = 500 * time.Millisecond
)

// ProgressFunc is called after every completed row. Calls are serialized and
// processed never decreases between calls.
type ProgressFunc func(processed, total, validated int)

// Resolver produces the product record for a SKU. It must not fail.
type Resolver interface {
	Resolve(ctx context.Context, sku string) model.ProductRecord
}

// Recorder receives per-row metrics.
type Recorder interface {
	RowSkipped()
	RowProcessed(score float64, validated bool)
}

// Options configures a Pipeline.
type Options struct {
	// MaxWorkers bounds concurrent rows. 1 processes rows strictly in order.
	MaxWorkers int
	// RowDelay is the minimum spacing between row starts. Negative disables it.
	RowDelay time.Duration
	// MaxRows is the most rows with a SKU an input may hold; larger inputs
	// are rejected before any row is processed. 0 means no limit.
	MaxRows int
	// Scorer defaults to the package threshold.
	Scorer *quality.Scorer
	// StopCheck is consulted before each row, possibly from several
	// goroutines; returning true stops the batch.
	StopCheck func() bool
	// Recorder is optional.
	Recorder Recorder
}

// Result is the outcome of Run.
type Result struct {
	Outcome model.BatchOutcome
	// Rows holds validated rows in input order.
	Rows []model.RowResult
	// Stopped is true when StopCheck or cancellation ended the batch early.
	Stopped bool
}

// Pipeline runs batches against one Resolver. Use a new Resolver per batch
// so its cache is scoped to that batch.
type Pipeline struct {
	resolver Resolver
	opts     Options
}

// New creates a Pipeline.
func New(resolver Resolver, opts Options) *Pipeline {
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = DefaultMaxWorkers
	}
	if opts.RowDelay == 0 {
		opts.RowDelay = DefaultRowDelay
	}
	if opts.Scorer == nil {
		opts.Scorer = quality.NewScorer(quality.Threshold)
	}
	return &Pipeline{resolver: resolver, opts: opts}
}

// pendingRow is an input row that passed the precondition checks.
type pendingRow struct {
	line     int
	sku      string
	purchase decimal.Decimal
}

// ErrTooManyRows rejects an input with more products than Options.MaxRows.
var ErrTooManyRows = eris.New("pipeline: too many products")

func countSKUs(rows []model.InputRow) int {
	n := 0
	for _, r := range rows {
		if strings.TrimSpace(r.SKU) != "" {
			n++
		}
	}
	return n
}

// counters guards the shared batch tallies.
type counters struct {
	mu        sync.Mutex
	processed int
	validated int
	failed    int
}

// Run processes rows. Rows with an empty SKU or an unusable price are
// skipped before processing starts. The returned error is non-nil only for
// batch-level failures; a stopped batch returns what completed so far.
func (p *Pipeline) Run(ctx context.Context, rows []model.InputRow, onProgress ProgressFunc) (*Result, error) {
	if p.resolver == nil {
		return nil, eris.New("pipeline: no resolver configured")
	}
	start := time.Now()

	if n := countSKUs(rows); p.opts.MaxRows > 0 && n > p.opts.MaxRows {
		return nil, eris.Wrapf(ErrTooManyRows, "%d products, maximum %d per file", n, p.opts.MaxRows)
	}

	pending, skipped := p.prepare(rows)
	total := len(pending)

	zap.L().Info("pipeline: batch started",
		zap.Int("rows", total),
		zap.Int("skipped", skipped),
		zap.Int("workers", p.opts.MaxWorkers),
	)

	var limiter *rate.Limiter
	if p.opts.RowDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(p.opts.RowDelay), 1)
	}

	results := make([]*model.RowResult, total)
	var c counters

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.MaxWorkers)

	var stopped atomic.Bool
	for i, row := range pending {
		if p.shouldStop(gctx) {
			stopped.Store(true)
			break
		}
		g.Go(func() error {
			if limiter != nil {
				if err := limiter.Wait(gctx); err != nil {
					stopped.Store(true)
					return nil
				}
			}
			if p.shouldStop(gctx) {
				stopped.Store(true)
				return nil
			}

			res, err := p.processRow(gctx, row)
			if err != nil {
				zap.L().Error("pipeline: row failed",
					zap.Int("line", row.line),
					zap.String("sku", row.sku),
					zap.Error(err),
				)
				c.mu.Lock()
				c.failed++
				c.mu.Unlock()
				p.recordSkip()
				return nil
			}

			results[i] = &res
			if p.opts.Recorder != nil {
				p.opts.Recorder.RowProcessed(res.QualityScore, res.Validated)
			}

			c.mu.Lock()
			c.processed++
			if res.Validated {
				c.validated++
			}
			if onProgress != nil {
				onProgress(c.processed, total, c.validated)
			}
			c.mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "pipeline: batch")
	}
	if ctx.Err() != nil {
		stopped.Store(true)
	}

	out := make([]model.RowResult, 0, c.validated)
	for _, r := range results {
		if r != nil && r.Validated {
			out = append(out, *r)
		}
	}

	elapsed := time.Since(start).Seconds()
	outcome := model.BatchOutcome{
		Success:               true,
		ProcessedCount:        c.processed,
		ValidatedCount:        c.validated,
		SkippedCount:          skipped + c.failed,
		ProcessingTimeSeconds: elapsed,
		ValidationRatePercent: model.ValidationRate(c.processed, c.validated),
	}

	zap.L().Info("pipeline: batch complete",
		zap.Int("processed", outcome.ProcessedCount),
		zap.Int("validated", outcome.ValidatedCount),
		zap.Int("skipped", outcome.SkippedCount),
		zap.Float64("validation_rate", outcome.ValidationRatePercent),
		zap.Float64("seconds", elapsed),
		zap.Bool("stopped", stopped.Load()),
	)

	return &Result{Outcome: outcome, Rows: out, Stopped: stopped.Load()}, nil
}

func (p *Pipeline) shouldStop(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	return p.opts.StopCheck != nil && p.opts.StopCheck()
}

// prepare applies the precondition checks and returns the rows to process
// plus the number skipped.
func (p *Pipeline) prepare(rows []model.InputRow) ([]pendingRow, int) {
	pending := make([]pendingRow, 0, len(rows))
	skipped := 0
	for _, r := range rows {
		sku := strings.TrimSpace(r.SKU)
		if sku == "" {
			zap.L().Warn("pipeline: row skipped, missing SKU", zap.Int("line", r.Line))
			skipped++
			p.recordSkip()
			continue
		}
		purchase, err := pricing.ParsePurchasePrice(r.PurchasePrice)
		if err != nil {
			zap.L().Warn("pipeline: row skipped, invalid purchase price",
				zap.Int("line", r.Line),
				zap.String("sku", sku),
				zap.String("price", r.PurchasePrice),
				zap.Error(err),
			)
			skipped++
			p.recordSkip()
			continue
		}
		pending = append(pending, pendingRow{line: r.Line, sku: sku, purchase: purchase})
	}
	return pending, skipped
}

func (p *Pipeline) recordSkip() {
	if p.opts.Recorder != nil {
		p.opts.Recorder.RowSkipped()
	}
}

// processRow runs one row through resolve, price, describe and score. A
// panic in any step is returned as an error.
func (p *Pipeline) processRow(ctx context.Context, row pendingRow) (res model.RowResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("pipeline: panic processing %s: %v", row.sku, r)
		}
	}()

	rec := p.resolver.Resolve(ctx, row.sku)

	prices, err := pricing.Calculate(row.purchase)
	if err != nil {
		return model.RowResult{}, eris.Wrapf(err, "pipeline: price %s", row.sku)
	}

	desc := describe.Synthesize(row.sku, rec, prices)
	score, ok := p.opts.Scorer.Evaluate(row.sku, rec, desc)

	zap.L().Info("pipeline: row scored",
		zap.Int("line", row.line),
		zap.String("sku", row.sku),
		zap.String("source", string(rec.Source)),
		zap.Float64("score", score),
		zap.Bool("validated", ok),
	)

	return model.RowResult{
		SKU:                  row.sku,
		ManagementLabel:      desc.ManagementLabel,
		QuoteDescription:     desc.QuoteDescription,
		EcommerceDescription: desc.EcommerceDescription,
		PurchasePrice:        row.purchase,
		CostPrice:            prices.CostPrice,
		SellingPrice:         prices.SellingPrice,
		Accessories:          strings.Join(rec.Accessories, describe.ListSeparator),
		Filters:              strings.Join(rec.Filters, describe.ListSeparator),
		QualityScore:         score,
		Validated:            ok,
	}, nil
}
