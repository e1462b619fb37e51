package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/SM97490/agent-produits-distrisku/internal/model"
	"github.com/SM97490/agent-produits-distrisku/internal/monitoring"
	"github.com/SM97490/agent-produits-distrisku/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect enrichment run history",
	Long:  "Commands for listing, viewing, and summarizing recorded enrich runs.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List enrichment runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		status, _ := cmd.Flags().GetString("status")
		since, _ := cmd.Flags().GetDuration("since")
		limit, _ := cmd.Flags().GetInt("limit")

		filter := store.RunFilter{Status: model.RunStatus(status), Limit: limit}
		if since > 0 {
			filter.Since = time.Now().Add(-since)
		}

		runs, err := st.ListRuns(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show full details of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}
		return writeJSON(os.Stdout, run)
	},
}

// -- runs stats --

var runsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize recent runs and raise threshold alerts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		lookback := cfg.Monitoring.LookbackHours
		if cmd.Flags().Changed("lookback-hours") {
			lookback, _ = cmd.Flags().GetInt("lookback-hours")
		}

		snap, err := monitoring.NewCollector(st).Collect(ctx, lookback)
		if err != nil {
			return eris.Wrap(err, "runs stats")
		}

		alerter := monitoring.NewAlerter(cfg.Monitoring)
		alerts := alerter.Evaluate(snap)
		formatSnapshot(os.Stdout, snap, alerts)

		if sent := alerter.SendAlerts(ctx, alerts); sent > 0 {
			fmt.Fprintf(os.Stderr, "%d alert(s) sent\n", sent)
		}
		return nil
	},
}

func init() {
	runsListCmd.Flags().String("status", "", "filter by run status (running, complete, failed)")
	runsListCmd.Flags().Duration("since", 0, "only runs created within this window (e.g. 24h)")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")

	runsStatsCmd.Flags().Int("lookback-hours", 24, "time window for stats (overrides monitoring.lookback_hours)")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsStatsCmd)
	rootCmd.AddCommand(runsCmd)
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tINPUT\tSTATUS\tPROCESSED\tVALIDATED\tRATE\tCREATED\tDURATION")
	_, _ = fmt.Fprintln(w, "--\t-----\t------\t---------\t---------\t----\t-------\t--------")

	for _, r := range runs {
		dur := r.UpdatedAt.Sub(r.CreatedAt).Round(time.Second).String()

		input := r.InputPath
		if len(input) > 30 {
			input = "..." + input[len(input)-27:]
		}

		processed, validated, rate := "-", "-", "-"
		if r.Outcome != nil {
			processed = fmt.Sprint(r.Outcome.ProcessedCount)
			validated = fmt.Sprint(r.Outcome.ValidatedCount)
			rate = fmt.Sprintf("%.1f%%", r.Outcome.ValidationRatePercent)
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(r.ID),
			input,
			r.Status,
			processed,
			validated,
			rate,
			r.CreatedAt.Format("2006-01-02 15:04"),
			dur,
		)
	}
	_ = w.Flush()
}

// formatSnapshot writes aggregate stats and any alerts to w.
func formatSnapshot(out io.Writer, s *monitoring.Snapshot, alerts []monitoring.Alert) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Window:\t%dh\n", s.LookbackHours)
	_, _ = fmt.Fprintf(w, "Total runs:\t%d\n", s.RunsTotal)
	_, _ = fmt.Fprintf(w, "Complete:\t%d\n", s.RunsComplete)
	_, _ = fmt.Fprintf(w, "Failed:\t%d\n", s.RunsFailed)
	_, _ = fmt.Fprintf(w, "Running:\t%d\n", s.RunsRunning)
	_, _ = fmt.Fprintf(w, "Failure rate:\t%.1f%%\n", s.FailRate*100)
	_, _ = fmt.Fprintf(w, "Rows processed:\t%d\n", s.RowsProcessed)
	_, _ = fmt.Fprintf(w, "Rows validated:\t%d\n", s.RowsValidated)
	_, _ = fmt.Fprintf(w, "Rows skipped:\t%d\n", s.RowsSkipped)
	if s.AvgValidationRate > 0 {
		_, _ = fmt.Fprintf(w, "Avg validation rate:\t%.1f%%\n", s.AvgValidationRate)
	}
	_ = w.Flush()

	for _, a := range alerts {
		_, _ = fmt.Fprintf(out, "ALERT [%s] %s\n", a.Severity, a.Message)
	}
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
