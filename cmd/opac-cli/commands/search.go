package commands

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"grazopac-backend/lib/querylog"
	"grazopac-backend/lib/scrapers/webopac"
)

var (
	searchKind *string
	searchJson *bool
)

func init() {
	searchKind = searchCmd.Flags().StringP("kind", "k", "keyword", "Search kind: keyword, title, author or isbn.")
	searchJson = searchCmd.Flags().Bool("json", false, "Print the raw result set as JSON.")
	rootCmd.AddCommand(searchCmd)
}

func recordSearch(ctx context.Context, cfg Config, q webopac.Query, result webopac.ResultSet, searchErr error) {
	if cfg.QueryLog == "" {
		return
	}
	store, err := querylog.Open(cfg.QueryLog)
	if err != nil {
		slog.WarnContext(ctx, "failed to open query log", "err", err)
		return
	}
	defer store.Close()
	if err := store.Record(ctx, querylog.FromResult(q, result, searchErr)); err != nil {
		slog.WarnContext(ctx, "failed to record query", "err", err)
	}
}

var searchCmd = &cobra.Command{
	Use:   "search <text>",
	Short: "Searches the catalog and lists the matching records.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		cfg := loadConfig()

		client := newClient(ctx, cfg)
		defer client.Close()

		query := webopac.NewQuery(args[0], webopac.QueryKind(*searchKind))
		result, err := client.Search(ctx, query)
		recordSearch(ctx, cfg, query, result, err)
		if err != nil {
			fatal("search failed", err)
		}

		if *searchJson {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(result); err != nil {
				fatal("failed to encode result", err)
			}
			return
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"ID", "Title", "Authors", "Year", "Medium"})
		for _, book := range result.Books {
			year := ""
			if book.Year > 0 {
				year = strconv.Itoa(book.Year)
			}
			t.AppendRow(table.Row{
				book.CatalogID,
				book.Title,
				strings.Join(book.Authors, "; "),
				year,
				book.MediumType,
			})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()

		slog.Info("search finished",
			"hits", result.TotalHits,
			"shown", len(result.Books),
			"cached", result.FromCache,
			"rendered", result.Fallback,
			"duration", result.FetchDuration,
		)
	},
}
