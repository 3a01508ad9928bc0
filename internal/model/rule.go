// Package model defines the core data structures for the ledger-sense engine.
package model

import (
	"time"
)

// RuleType identifies what a classification rule assigns.
type RuleType string

// Rule type constants.
const (
	RuleTypeCategory      RuleType = "category"
	RuleTypePaymentMethod RuleType = "payment_method"
	RuleTypeFilter        RuleType = "filter"
)

// ConditionType identifies how a rule's condition value is matched
// against a transaction. Exactly one condition type per rule.
type ConditionType string

// Condition type constants.
const (
	// ConditionContains matches when the condition value appears in the
	// transaction description (case-insensitive).
	ConditionContains ConditionType = "contains"
	// ConditionEquals matches when the full description equals the
	// condition value (case-sensitive, unlike contains).
	ConditionEquals ConditionType = "equals"
	// ConditionRegex matches when the compiled pattern is found in the
	// description.
	ConditionRegex ConditionType = "regex"
	// ConditionAmountRange matches when the amount falls within an
	// inclusive "min-max" range; either bound may be empty (unbounded).
	ConditionAmountRange ConditionType = "amount_range"
)

// Origin records where a rule (or a classification) came from.
type Origin string

// Origin constants.
const (
	OriginUser    Origin = "user"
	OriginSystem  Origin = "system"
	OriginLearned Origin = "learned"
	// OriginDefault is only ever carried by a classification result,
	// never by a stored rule: it marks the fallback category.
	OriginDefault Origin = "default"
)

// ClassificationRule maps a single condition to a target value with a
// priority and provenance. Rules are deactivated rather than deleted
// when a user disables them, so history stays auditable.
type ClassificationRule struct {
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Name           string
	RuleType       RuleType
	ConditionType  ConditionType
	ConditionValue string
	TargetValue    string
	Origin         Origin
	ID             int
	Priority       int
	SupportCount   int // Corrections backing a learned rule; 0 otherwise
	Revision       int64
	IsActive       bool
}

// RuleSnapshot is an immutable, point-in-time view of the active rules
// of one type, taken atomically from the rule store. Version changes
// whenever any rule mutation is committed, so callers can detect that
// the rule set materially changed between batches.
type RuleSnapshot struct {
	Type    RuleType
	Rules   []ClassificationRule
	Version int64
}
