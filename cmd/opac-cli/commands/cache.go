package commands

import (
	"log/slog"

	"github.com/spf13/cobra"

	"grazopac-backend/lib/scrapers/webopac"
)

var cacheClearKind *string

func init() {
	cacheClearKind = cacheClearCmd.Flags().StringP("kind", "k", "keyword", "Search kind of the query to evict.")
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manages the local result cache.",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [text]",
	Short: "Evicts one cached query, or the whole cache when no text is given.",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		cfg := loadConfig()

		client := newClient(ctx, cfg)
		defer client.Close()

		var query *webopac.Query
		if len(args) == 1 {
			q := webopac.NewQuery(args[0], webopac.QueryKind(*cacheClearKind))
			query = &q
		}
		if err := client.InvalidateCache(ctx, query); err != nil {
			fatal("failed to clear cache", err)
		}

		if query != nil {
			slog.Info("evicted cached query", "text", query.Text, "kind", query.Kind)
		} else {
			slog.Info("cleared result cache")
		}
	},
}
