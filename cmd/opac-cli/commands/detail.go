package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var detailJson *bool

func init() {
	detailJson = detailCmd.Flags().Bool("json", false, "Print the record as JSON.")
	rootCmd.AddCommand(detailCmd)
}

var detailCmd = &cobra.Command{
	Use:   "detail <catalog-id>",
	Short: "Fetches the full record for a catalog entry, including its copies.",
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

		if *detailJson {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(book); err != nil {
				fatal("failed to encode record", err)
			}
			return
		}

		fmt.Printf("%s\n", book.Title)
		if len(book.Authors) > 0 {
			fmt.Printf("  by %s\n", strings.Join(book.Authors, "; "))
		}
		if book.OriginalTitle != "" {
			fmt.Printf("  original title: %s\n", book.OriginalTitle)
		}
		if book.Publisher != "" {
			fmt.Printf("  %s", book.Publisher)
			if book.Year > 0 {
				fmt.Printf(", %d", book.Year)
			}
			fmt.Println()
		}
		if book.ISBN != "" {
			fmt.Printf("  isbn: %s\n", book.ISBN)
		}
		if book.PageCount > 0 {
			fmt.Printf("  %d pages\n", book.PageCount)
		}
		if len(book.Keywords) > 0 {
			fmt.Printf("  keywords: %s\n", strings.Join(book.Keywords, ", "))
		}
		if book.Description != "" {
			fmt.Printf("\n%s\n", book.Description)
		}
		fmt.Println()

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Branch", "Section", "Call number", "Status", "Reservations", "Due"})
		for _, copy := range book.Copies {
			due := ""
			if copy.DueDate != nil {
				due = copy.DueDate.Format("02.01.2006")
			}
			t.AppendRow(table.Row{
				copy.Branch,
				copy.Section,
				copy.CallNumber,
				string(copy.Status),
				copy.Reservations,
				due,
			})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
