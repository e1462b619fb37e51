package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/SM97490/agent-produits-distrisku/internal/describe"
	"github.com/SM97490/agent-produits-distrisku/internal/model"
	"github.com/SM97490/agent-produits-distrisku/internal/pricing"
	"github.com/SM97490/agent-produits-distrisku/internal/quality"
	"github.com/SM97490/agent-produits-distrisku/internal/resolver"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <sku>...",
	Short: "Resolve SKUs and explain their quality score",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		offline, _ := cmd.Flags().GetBool("offline")
		rawPrice, _ := cmd.Flags().GetString("price")

		prices := model.PriceSet{}
		if rawPrice != "" {
			p, err := pricing.CalculateString(rawPrice)
			if err != nil {
				return eris.Wrapf(err, "--price %q", rawPrice)
			}
			prices = p
		}

		lookup, err := initLookup(cfg, offline)
		if err != nil {
			return err
		}

		reports := explainSKUs(ctx, lookup.newResolver(cfg, nil), quality.NewScorer(cfg.Quality.Threshold), args, prices)
		return writeJSON(os.Stdout, reports)
	},
}

func init() {
	resolveCmd.Flags().Bool("offline", false, "skip web lookups and resolve from SKU rules only")
	resolveCmd.Flags().String("price", "", "purchase price used for prices and the quote text")
	rootCmd.AddCommand(resolveCmd)
}

// skuReport is the resolve command output for one SKU.
type skuReport struct {
	SKU          string               `json:"sku"`
	Record       model.ProductRecord  `json:"record"`
	Prices       *model.PriceSet      `json:"prices,omitempty"`
	Descriptions model.DescriptionSet `json:"descriptions"`
	Score        quality.Breakdown    `json:"score"`
	Validated    bool                 `json:"validated"`
}

type skuResolver interface {
	Resolve(ctx context.Context, sku string) model.ProductRecord
}

var _ skuResolver = (*resolver.Resolver)(nil)

// explainSKUs resolves each SKU in order. Prices are only reported when a
// purchase price was given.
func explainSKUs(ctx context.Context, r skuResolver, scorer *quality.Scorer, skus []string, prices model.PriceSet) []skuReport {
	reports := make([]skuReport, 0, len(skus))
	for _, sku := range skus {
		rec := r.Resolve(ctx, sku)
		desc := describe.Synthesize(sku, rec, prices)
		breakdown := quality.Explain(sku, rec, desc)
		_, ok := scorer.Evaluate(sku, rec, desc)

		rep := skuReport{
			SKU:          sku,
			Record:       rec,
			Descriptions: desc,
			Score:        breakdown,
			Validated:    ok,
		}
		if !prices.CostPrice.IsZero() || !prices.SellingPrice.IsZero() {
			p := prices
			rep.Prices = &p
		}
		reports = append(reports, rep)
	}
	return reports
}
