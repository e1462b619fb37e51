package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/SM97490/agent-produits-distrisku/internal/model"
	"github.com/SM97490/agent-produits-distrisku/internal/monitoring"
	"github.com/SM97490/agent-produits-distrisku/internal/pipeline"
	"github.com/SM97490/agent-produits-distrisku/internal/quality"
	"github.com/SM97490/agent-produits-distrisku/internal/resilience"
	"github.com/SM97490/agent-produits-distrisku/internal/source"
	"github.com/SM97490/agent-produits-distrisku/internal/store"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Enrich a supplier workbook",
	Long:  "Reads SKU and purchase price rows from an .xlsx workbook and writes the validated, enriched rows to a new workbook.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		input, _ := cmd.Flags().GetString("input")
		output, _ := cmd.Flags().GetString("output")
		offline, _ := cmd.Flags().GetBool("offline")
		if cmd.Flags().Changed("workers") {
			workers, _ := cmd.Flags().GetInt("workers")
			if workers <= 0 {
				return eris.Errorf("--workers must be positive, got %d", workers)
			}
			cfg.Pipeline.MaxWorkers = workers
		}

		lookup, err := initLookup(cfg, offline)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		metrics := monitoring.NewMetrics()
		p := pipeline.New(lookup.newResolver(cfg, metrics), pipeline.Options{
			MaxWorkers: cfg.Pipeline.MaxWorkers,
			RowDelay:   rowDelay(cfg.Pipeline.RowDelay),
			MaxRows:    cfg.Pipeline.MaxRows,
			Scorer:     quality.NewScorer(cfg.Quality.Threshold),
			Recorder:   metrics,
		})

		src := source.NewResolver(cfg.InputTimeout())
		outcome, runErr := runBatch(ctx, st, p, src, input, output, progressPrinter(os.Stderr))

		metrics.BatchFinished(time.Duration(outcome.ProcessingTimeSeconds * float64(time.Second)))
		if err := metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			zap.L().Warn("metrics textfile not written", zap.Error(err))
		}
		for name, state := range lookup.Breakers.States() {
			if state != resilience.Closed {
				zap.L().Warn("breaker not closed at end of batch",
					zap.String("breaker", name),
					zap.String("state", state.String()),
				)
			}
		}

		if err := writeJSON(os.Stdout, outcome); err != nil {
			return err
		}
		return runErr
	},
}

func init() {
	enrichCmd.Flags().String("input", "", "input .xlsx workbook path or http(s)/ftp URL (required)")
	enrichCmd.Flags().String("output", "", "output workbook (default <input>"+pipeline.OutputSuffix+")")
	enrichCmd.Flags().Int("workers", 0, "concurrent rows (overrides pipeline.max_workers)")
	enrichCmd.Flags().Bool("offline", false, "skip web lookups and resolve from SKU rules only")
	_ = enrichCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(enrichCmd)
}

// fileProcessor is the part of the pipeline runBatch drives.
type fileProcessor interface {
	ProcessFile(ctx context.Context, inputPath, outputPath string, onProgress pipeline.ProgressFunc) (model.BatchOutcome, error)
}

// inputFetcher turns a remote input location into a local file in dir.
type inputFetcher interface {
	Fetch(ctx context.Context, location, dir string) (string, error)
}

// runBatch records the run in st around one ProcessFile call. Remote inputs
// are downloaded first and their default output lands in the working
// directory. Store errors are logged and never fail the batch.
func runBatch(ctx context.Context, st store.Store, p fileProcessor, src inputFetcher, input, output string, onProgress pipeline.ProgressFunc) (model.BatchOutcome, error) {
	var runID string
	location := source.Redact(input)
	run, err := st.CreateRun(ctx, location)
	if err != nil {
		zap.L().Warn("run not recorded", zap.String("input", location), zap.Error(err))
	} else {
		runID = run.ID
	}

	outcome, runErr := processInput(ctx, p, src, input, output, onProgress)
	outcome.RunID = runID

	if runID != "" {
		// The batch context may already be cancelled; the record must still land.
		recordCtx := context.WithoutCancel(ctx)
		if runErr != nil {
			err = st.FailRun(recordCtx, runID, outcome)
		} else {
			err = st.CompleteRun(recordCtx, runID, outcome)
		}
		if err != nil {
			zap.L().Warn("run outcome not recorded", zap.String("run_id", runID), zap.Error(err))
		}
	}

	if runErr != nil {
		return outcome, eris.Wrap(runErr, "enrich")
	}
	return outcome, nil
}

func processInput(ctx context.Context, p fileProcessor, src inputFetcher, input, output string, onProgress pipeline.ProgressFunc) (model.BatchOutcome, error) {
	if !source.IsRemote(input) {
		return p.ProcessFile(ctx, input, output, onProgress)
	}

	dir, err := os.MkdirTemp("", "distrisku-*")
	if err != nil {
		return model.BatchOutcome{Error: err.Error()}, eris.Wrap(err, "create download dir")
	}
	defer os.RemoveAll(dir) //nolint:errcheck

	local, err := src.Fetch(ctx, input, dir)
	if err != nil {
		return model.BatchOutcome{Error: err.Error()}, err
	}
	if output == "" {
		output = pipeline.DefaultOutputPath(source.BaseName(input))
	}
	return p.ProcessFile(ctx, local, output, onProgress)
}

// progressPrinter writes one line per completed row.
func progressPrinter(w io.Writer) pipeline.ProgressFunc {
	return func(processed, total, validated int) {
		_, _ = fmt.Fprintf(w, "[%d/%d] validated=%d\n", processed, total, validated)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(v), "encode json")
}
