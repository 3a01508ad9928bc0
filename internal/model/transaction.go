package model

import (
	"time"
)

// TransactionType distinguishes expenses from income. Amounts are always
// stored as non-negative values; the type carries the sign.
type TransactionType string

// Transaction type constants.
const (
	TypeExpense TransactionType = "expense"
	TypeIncome  TransactionType = "income"
)

// Transaction represents a single financial transaction supplied by the
// external transaction repository. The engine reads transactions for
// classification and hands back a category/provenance pair; it never
// persists them itself.
type Transaction struct {
	Date          time.Time       `json:"date"`
	CreatedAt     time.Time       `json:"created_at,omitempty"`
	UpdatedAt     time.Time       `json:"updated_at,omitempty"`
	ID            string          `json:"id"`
	Description   string          `json:"description"`
	Category      string          `json:"category,omitempty"`
	PaymentMethod string          `json:"payment_method,omitempty"`
	Source        string          `json:"source,omitempty"`
	Memo          string          `json:"memo,omitempty"`
	Type          TransactionType `json:"type"`
	Amount        float64         `json:"amount"`
	IsExcluded    bool            `json:"is_excluded,omitempty"`
}

// IsClassified reports whether the transaction already carries a category.
func (t *Transaction) IsClassified() bool {
	return t.Category != ""
}
