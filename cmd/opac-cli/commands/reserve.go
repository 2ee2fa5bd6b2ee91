package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"grazopac-backend/lib/scrapers/webopac"
)

var reserveBranch *string

func init() {
	reserveBranch = reserveCmd.Flags().String("branch", "", "The branch to reserve the copy at.")
	rootCmd.AddCommand(reserveCmd)
}

var reserveCmd = &cobra.Command{
	Use:   "reserve <catalog-id>",
	Short: "Drives the reservation flow for a record and reports its outcome.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		cfg := loadConfig()

		client := newClient(ctx, cfg)
		defer client.Close()

		attempt, err := client.Reserve(ctx, args[0], *reserveBranch)
		var unsupported *webopac.UnsupportedWorkflowError
		switch {
		case err == nil && attempt.AuthRequired:
			fmt.Printf("reservation of %s requires a library account login\n", attempt.CatalogID)
			fmt.Printf("the site said: %s\n", attempt.ModalText)
		case errors.As(err, &unsupported):
			fmt.Printf("reservation of %s could not be completed: %s\n", attempt.CatalogID, unsupported.Reason)
		case err != nil:
			fatal("reservation flow failed", err)
		default:
			fmt.Printf("reservation flow ended in phase %s\n", attempt.Phase)
		}
	},
}
