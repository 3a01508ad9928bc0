// Package filter evaluates structured filter specifications against
// transaction collections. It has no hidden state: the analysis layer
// reuses Matches as a pure query predicate, and the condition evaluator
// reuses the amount-range parsing for amount_range rules.
package filter

import (
	"time"

	"github.com/sejin-p/ledger-sense/internal/model"
)

// Spec is a structured, optional-field query predicate over
// transactions. Every populated field is a conjunctive constraint; an
// absent field imposes no constraint. The zero value matches every
// transaction.
type Spec struct {
	StartDate      *time.Time
	EndDate        *time.Time
	MinAmount      *float64
	MaxAmount      *float64
	Type           *model.TransactionType
	Excluded       *bool
	Categories     []string
	PaymentMethods []string
}

// Matches reports whether the transaction satisfies every populated
// constraint of the spec.
func Matches(txn model.Transaction, spec Spec) bool {
	if spec.StartDate != nil && txn.Date.Before(*spec.StartDate) {
		return false
	}
	if spec.EndDate != nil && txn.Date.After(*spec.EndDate) {
		return false
	}
	if spec.MinAmount != nil && txn.Amount < *spec.MinAmount {
		return false
	}
	if spec.MaxAmount != nil && txn.Amount > *spec.MaxAmount {
		return false
	}
	if spec.Type != nil && txn.Type != *spec.Type {
		return false
	}
	if spec.Excluded != nil && txn.IsExcluded != *spec.Excluded {
		return false
	}
	if len(spec.Categories) > 0 && !containsString(spec.Categories, txn.Category) {
		return false
	}
	if len(spec.PaymentMethods) > 0 && !containsString(spec.PaymentMethods, txn.PaymentMethod) {
		return false
	}
	return true
}

// Apply returns the transactions matching the spec, preserving input
// order. It is a stable filter, never a re-sort.
func Apply(transactions []model.Transaction, spec Spec) []model.Transaction {
	filtered := make([]model.Transaction, 0, len(transactions))
	for _, txn := range transactions {
		if Matches(txn, spec) {
			filtered = append(filtered, txn)
		}
	}
	return filtered
}

func containsString(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
