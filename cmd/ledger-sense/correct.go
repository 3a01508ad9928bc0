package main

import (
	"github.com/spf13/cobra"

	"github.com/sejin-p/ledger-sense/internal/model"
)

func correctCmd() *cobra.Command {
	var (
		txnID       string
		description string
		category    string
	)

	cmd := &cobra.Command{
		Use:   "correct",
		Short: "Record a user category correction",
		Long: `Feeds one category correction into the learning engine. Once enough
corrections agree on a category for the same description signature
(default 3), a learned rule is created automatically.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			learner := buildLearner(store)
			txn := model.Transaction{ID: txnID, Description: description}
			if err := learner.RecordCorrection(ctx, txn, category); err != nil {
				return err
			}

			stats := learner.GetStats()
			if stats.RulesPromoted > 0 {
				cmd.Println("Correction recorded; a learned rule was created.")
			} else {
				cmd.Println("Correction recorded.")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&txnID, "id", "", "transaction ID")
	cmd.Flags().StringVarP(&description, "description", "d", "", "transaction description")
	cmd.Flags().StringVar(&category, "category", "", "corrected category")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("description")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}
