package commands

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"grazopac-backend/lib/scrapers/bookverify"
)

func init() {
	rootCmd.AddCommand(verifyCmd)
}

var verifyCmd = &cobra.Command{
	Use:   "verify <catalog-id>",
	Short: "Cross-checks a catalog record against public bibliographic sources.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		cfg := loadConfig()

		client := newClient(ctx, cfg)
		defer client.Close()

		book, err := client.FetchDetail(ctx, args[0])
		if err != nil {
			fatal("detail fetch failed", err)
		}

		verifier := bookverify.NewVerifier(
			bookverify.NewOpenLibrary(""),
			bookverify.NewGoogleBooks(""),
			bookverify.NewWorldCat(""),
		)
		report, err := verifier.Verify(ctx, book)
		if err != nil {
			fatal("verification failed", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Source", "Title", "Score", "Verdict"})
		for _, match := range report.Matches {
			if match.Err != nil {
				t.AppendRow(table.Row{match.Source, "", "", fmt.Sprintf("error: %v", match.Err)})
				continue
			}
			verdict := "mismatch"
			if match.Verified {
				verdict = "match"
			}
			t.AppendRow(table.Row{
				match.Source,
				match.Record.Title,
				fmt.Sprintf("%.3f", match.TitleScore),
				verdict,
			})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()

		if report.Verified {
			fmt.Printf("%q (%s) is verified\n", report.Title, report.ISBN)
		} else {
			fmt.Printf("%q (%s) could not be verified\n", report.Title, report.ISBN)
		}
	},
}
