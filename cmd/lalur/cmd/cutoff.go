package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sconzo/lalur-sub001/internal/periodlock"
	"github.com/Sconzo/lalur-sub001/internal/shared"
)

func newCutoffCmd(open Opener) *cobra.Command {
	cutoff := &cobra.Command{
		Use:   "cutoff",
		Short: "Manage the accounting period cutoff",
	}

	var (
		company int64
		date    string
		actor   int64
	)
	advance := &cobra.Command{
		Use:   "advance",
		Short: "Move a company cutoff forward",
		Long: `advance closes every period up to --date for the company. The cutoff never
moves backwards and each move is recorded with its actor.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			to, err := parseFlagDate("date", date)
			if err != nil {
				return err
			}
			return withRuntime(cmd, open, func(rt *Runtime) error {
				ctx := shared.ContextWithActor(cmd.Context(), actor)
				change, err := rt.Cutoffs.AdvanceCutoff(ctx, periodlock.AdvanceInput{
					CompanyID: company,
					NewCutoff: to,
					ActorID:   actor,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "company %d cutoff %s -> %s\n", change.CompanyID, formatCutoff(change), change.New.Format("2006-01-02"))
				return nil
			})
		},
	}
	advance.Flags().Int64Var(&company, "company", 0, "company id (required)")
	advance.Flags().StringVar(&date, "date", "", "new cutoff, YYYY-MM-DD (required)")
	advance.Flags().Int64Var(&actor, "actor", 0, "user id recorded as author (required)")
	_ = advance.MarkFlagRequired("company")
	_ = advance.MarkFlagRequired("date")
	_ = advance.MarkFlagRequired("actor")

	cutoff.AddCommand(advance)
	return cutoff
}

func formatCutoff(c periodlock.Change) string {
	if c.Previous.IsZero() {
		return "none"
	}
	return c.Previous.Format("2006-01-02")
}
