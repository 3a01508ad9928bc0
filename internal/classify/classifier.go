// Package classify orchestrates rule-based classification into final
// per-transaction decisions with a confidence/provenance tag.
package classify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sejin-p/ledger-sense/internal/model"
	"github.com/sejin-p/ledger-sense/internal/rule"
)

// DefaultFallbackCategory is assigned when no rule matches.
const DefaultFallbackCategory = "uncategorized"

// Config holds configuration options for the classifier.
type Config struct {
	FallbackCategory string
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{FallbackCategory: DefaultFallbackCategory}
}

// Classifier produces classification decisions from rule snapshots.
//
// User- and system-origin rules are always evaluated before learned
// rules, so manually curated rules take precedence over inferred ones
// regardless of priority number. This is the single most important
// conflict-resolution policy in the engine: a high-priority learned
// rule must never silently override deliberate user configuration.
type Classifier struct {
	rules    *rule.Engine
	fallback string
}

// New creates a classifier with default configuration.
func New(rules *rule.Engine) *Classifier {
	return NewWithConfig(rules, DefaultConfig())
}

// NewWithConfig creates a classifier with custom configuration.
func NewWithConfig(rules *rule.Engine, config Config) *Classifier {
	fallback := config.FallbackCategory
	if fallback == "" {
		fallback = DefaultFallbackCategory
	}
	return &Classifier{rules: rules, fallback: fallback}
}

// Classify assigns a category to the transaction using the given
// snapshot. It is total: when no rule matches, the fallback category is
// returned with OriginDefault and a nil rule ID. The classifier never
// persists anything; the caller is responsible for checking that a
// manually set category is not overwritten, using the returned origin
// and rule ID.
func (c *Classifier) Classify(snap *rule.Snapshot, txn model.Transaction) model.Classification {
	// Pass 1: manually curated rules only.
	if target, ruleID, ok := snap.Classify(txn, model.OriginUser, model.OriginSystem); ok {
		origin := c.ruleOrigin(snap, ruleID)
		return model.Classification{
			Category:     target,
			Origin:       origin,
			RuleID:       &ruleID,
			ClassifiedAt: time.Now(),
		}
	}

	// Pass 2: learned rules.
	if target, ruleID, ok := snap.Classify(txn, model.OriginLearned); ok {
		return model.Classification{
			Category:     target,
			Origin:       model.OriginLearned,
			RuleID:       &ruleID,
			ClassifiedAt: time.Now(),
		}
	}

	return model.Classification{
		Category:     c.fallback,
		Origin:       model.OriginDefault,
		ClassifiedAt: time.Now(),
	}
}

// ClassifyPayment assigns a payment method using the given snapshot;
// the result carries the payment method in Classification.Category, per
// that type's target-value contract. There is no fallback for payment
// methods: when no rule matches, ok is false and the transaction keeps
// whatever the repository already has.
func (c *Classifier) ClassifyPayment(snap *rule.Snapshot, txn model.Transaction) (model.Classification, bool) {
	target, ruleID, ok := snap.Classify(txn)
	if !ok {
		return model.Classification{}, false
	}
	return model.Classification{
		Category:     target,
		Origin:       c.ruleOrigin(snap, ruleID),
		RuleID:       &ruleID,
		ClassifiedAt: time.Now(),
	}, true
}

// BatchResult holds the outcome of a batch classification: one decision
// per classified transaction plus the structured list of problems
// deferred during the run. RuleSetVersion identifies the snapshot the
// whole batch was classified against.
type BatchResult struct {
	Results        map[string]model.Classification
	Problems       []rule.Problem
	RuleSetVersion int64
}

// ClassifyBatch classifies many transactions against a single immutable
// snapshot taken at the start, so a concurrent rule edit mid-batch can
// never split the batch across two rule sets. Transactions that already
// carry a category are skipped. The batch never aborts because of a
// single bad rule: evaluation failures are accumulated, reported once
// per rule, and returned alongside the results.
func (c *Classifier) ClassifyBatch(ctx context.Context, transactions []model.Transaction) (*BatchResult, error) {
	snap, err := c.rules.Snapshot(ctx, model.RuleTypeCategory)
	if err != nil {
		return nil, fmt.Errorf("failed to take rule snapshot: %w", err)
	}

	result := &BatchResult{
		Results:        make(map[string]model.Classification, len(transactions)),
		RuleSetVersion: snap.Version(),
	}

	for _, txn := range transactions {
		if txn.IsClassified() {
			continue
		}
		result.Results[txn.ID] = c.Classify(snap, txn)
	}

	result.Problems = snap.Problems()

	slog.Info("Batch classification complete",
		"total", len(transactions),
		"classified", len(result.Results),
		"problems", len(result.Problems),
		"rule_set_version", result.RuleSetVersion)

	return result, nil
}

// ClassifyPaymentBatch assigns payment methods to many transactions
// against a single snapshot. Transactions with no matching rule are
// absent from the result map.
func (c *Classifier) ClassifyPaymentBatch(ctx context.Context, transactions []model.Transaction) (*BatchResult, error) {
	snap, err := c.rules.Snapshot(ctx, model.RuleTypePaymentMethod)
	if err != nil {
		return nil, fmt.Errorf("failed to take rule snapshot: %w", err)
	}

	result := &BatchResult{
		Results:        make(map[string]model.Classification),
		RuleSetVersion: snap.Version(),
	}

	for _, txn := range transactions {
		if txn.PaymentMethod != "" {
			continue
		}
		if classification, ok := c.ClassifyPayment(snap, txn); ok {
			result.Results[txn.ID] = classification
		}
	}

	result.Problems = snap.Problems()
	return result, nil
}

// ruleOrigin looks up the origin of the matched rule inside the
// snapshot. The snapshot is small and already in memory, so a linear
// scan is fine.
func (c *Classifier) ruleOrigin(snap *rule.Snapshot, ruleID int) model.Origin {
	for _, r := range snap.Rules() {
		if r.ID == ruleID {
			return r.Origin
		}
	}
	return model.OriginSystem
}
