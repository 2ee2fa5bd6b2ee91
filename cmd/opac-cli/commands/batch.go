package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"grazopac-backend/lib/batch"
	"grazopac-backend/lib/notify"
	"grazopac-backend/lib/querylog"
	"grazopac-backend/lib/telemetry"
)

var batchNotify *bool

func init() {
	batchNotify = batchCmd.Flags().Bool("notify", false, "Email the run report to the configured recipients.")
	rootCmd.AddCommand(batchCmd)
}

var batchCmd = &cobra.Command{
	Use:   "batch <manifest.csv|manifest.json>",
	Short: "Runs every query in a manifest, logging results and continuing past failures.",
	Run:   runBatch,
	Args:  cobra.ExactArgs(1),
}

func runBatch(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	cfg := loadConfig()

	// batch runs are the only long-lived mode of this binary
	telemetry.InstrumentPerfStats(ctx)

	manifest, err := batch.Load(args[0])
	if err != nil {
		fatal("failed to load query manifest", err)
	}
	for _, problem := range manifest.Problems {
		slog.Warn("skipping manifest row", "line", problem.Line, "reason", problem.Reason)
	}
	if len(manifest.Items) == 0 {
		fatal("manifest contains no usable queries", fmt.Errorf("%d rows rejected", len(manifest.Problems)))
	}

	var store querylog.Store
	logging := cfg.QueryLog != ""
	if logging {
		store, err = querylog.Open(cfg.QueryLog)
		if err != nil {
			fatal("failed to open query log", err)
		}
		defer store.Close()
	}

	client := newClient(ctx, cfg)
	defer client.Close()

	var entries []querylog.Entry
	failed := 0
	for _, item := range manifest.Items {
		result, err := client.Search(ctx, item.Query)
		if err != nil {
			// one dead query must not sink the rest of the run
			slog.Error("query failed", "line", item.Line, "text", item.Query.Text, "err", err)
			failed++
		}

		entry := querylog.FromResult(item.Query, result, err)
		entries = append(entries, entry)
		if logging {
			if err := store.Record(ctx, entry); err != nil {
				slog.Warn("failed to record query", "err", err)
			}
		}
	}

	slog.Info("batch run finished",
		"queries", len(manifest.Items),
		"failed", failed,
		"skipped_rows", len(manifest.Problems),
	)

	if *batchNotify {
		mailer := notify.NewMailer(notify.Options{
			Smtp:       cfg.Smtp,
			Recipients: cfg.Recipients,
		})
		if !mailer.Enabled() {
			slog.Warn("notification requested but smtp is not configured")
			return
		}
		if err := mailer.SendBatchReport(ctx, entries); err != nil {
			fatal("failed to send batch report", err)
		}
	}
}
