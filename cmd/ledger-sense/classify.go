package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sejin-p/ledger-sense/internal/model"
)

// classificationOutput is the JSON document written for one batch run.
type classificationOutput struct {
	Results        map[string]model.Classification `json:"results"`
	PaymentMethods map[string]model.Classification `json:"payment_methods,omitempty"`
	Problems       []problemOutput                 `json:"problems,omitempty"`
	RuleSetVersion int64                           `json:"rule_set_version"`
}

type problemOutput struct {
	RuleID   int    `json:"rule_id"`
	RuleName string `json:"rule_name"`
	Error    string `json:"error"`
}

func classifyCmd() *cobra.Command {
	var inputPath string
	var withPayment bool

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify a batch of transactions against the current rule set",
		Long: `Reads a JSON array of transactions from --input (or stdin), classifies
each against one immutable snapshot of the active rules, and writes the
results as JSON to stdout. Transactions that already carry a category
are left untouched.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			transactions, err := readTransactions(inputPath)
			if err != nil {
				return err
			}
			if len(transactions) == 0 {
				return fmt.Errorf("no transactions to classify")
			}

			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			classifier := buildClassifier(store)
			batch, err := classifier.ClassifyBatch(ctx, transactions)
			if err != nil {
				return err
			}

			output := classificationOutput{
				Results:        batch.Results,
				RuleSetVersion: batch.RuleSetVersion,
			}
			for _, p := range batch.Problems {
				output.Problems = append(output.Problems, problemOutput{
					RuleID:   p.RuleID,
					RuleName: p.RuleName,
					Error:    p.Err.Error(),
				})
			}

			if withPayment {
				payments, err := classifier.ClassifyPaymentBatch(ctx, transactions)
				if err != nil {
					return err
				}
				output.PaymentMethods = payments.Results
				for _, p := range payments.Problems {
					output.Problems = append(output.Problems, problemOutput{
						RuleID:   p.RuleID,
						RuleName: p.RuleName,
						Error:    p.Err.Error(),
					})
				}
			}

			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(output)
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "JSON file with a transaction array (default: stdin)")
	cmd.Flags().BoolVar(&withPayment, "payment-methods", false, "also assign payment methods")
	return cmd
}

func readTransactions(path string) ([]model.Transaction, error) {
	var reader io.Reader = os.Stdin
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open input: %w", err)
		}
		defer func() { _ = f.Close() }()
		reader = f
	}

	var transactions []model.Transaction
	if err := json.NewDecoder(reader).Decode(&transactions); err != nil {
		return nil, fmt.Errorf("failed to decode transactions: %w", err)
	}
	return transactions, nil
}
