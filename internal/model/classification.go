package model

import "time"

// Classification is the outcome of classifying one transaction. Origin
// lets downstream code distinguish confidently-classified transactions
// from fallback-classified ones without re-running classification, and
// lets the caller enforce manual-edit precedence before persisting.
//
// Category holds the matched rule's target value: a category for
// category rules, a payment method for payment-method rules. The rule
// type the caller classified against determines which.
type Classification struct {
	ClassifiedAt time.Time `json:"classified_at"`
	Category     string    `json:"category"`
	Origin       Origin    `json:"origin"`
	RuleID       *int      `json:"rule_id,omitempty"` // nil when no rule matched (fallback)
}

// ByRule reports whether the classification was produced by a stored
// rule rather than the fallback default.
func (c *Classification) ByRule() bool {
	return c.RuleID != nil
}
