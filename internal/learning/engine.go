package learning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sejin-p/ledger-sense/internal/common"
	"github.com/sejin-p/ledger-sense/internal/model"
	"github.com/sejin-p/ledger-sense/internal/service"
)

// DefaultPromotionThreshold is the number of agreeing corrections that
// promotes a signature into a learned rule.
const DefaultPromotionThreshold = 3

// Config holds configuration options for the learning engine.
type Config struct {
	PromotionThreshold int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{PromotionThreshold: DefaultPromotionThreshold}
}

// Stats tracks what the learning engine has done so far.
type Stats struct {
	CorrectionsRecorded int
	RulesPromoted       int
	AmbiguousSignals    int
}

// Engine observes user corrections and, once enough corrections agree
// on a category for the same description signature, writes a learned
// rule into the rule store. Updates for the same signature are
// serialized with a per-signature mutex so two concurrent corrections
// never race on the read-increment-write of one signature's counts; no
// cross-signature locking is needed.
type Engine struct {
	store     service.RuleStore
	log       service.CorrectionLog
	sigLocks  map[string]*sync.Mutex
	threshold int
	mu        sync.Mutex
	stats     Stats
	statsMu   sync.Mutex
}

// NewEngine creates a learning engine with default configuration.
func NewEngine(store service.RuleStore, log service.CorrectionLog) *Engine {
	return NewEngineWithConfig(store, log, DefaultConfig())
}

// NewEngineWithConfig creates a learning engine with custom configuration.
func NewEngineWithConfig(store service.RuleStore, log service.CorrectionLog, config Config) *Engine {
	threshold := config.PromotionThreshold
	if threshold <= 0 {
		threshold = DefaultPromotionThreshold
	}
	return &Engine{
		store:     store,
		log:       log,
		threshold: threshold,
		sigLocks:  make(map[string]*sync.Mutex),
	}
}

// RecordCorrection persists one (signature, corrected category) pair
// and re-evaluates promotion eligibility for the signature. The
// correction itself is durable before promotion is attempted, so a
// failed promotion never loses the underlying record and eligibility
// can be re-evaluated later.
func (e *Engine) RecordCorrection(ctx context.Context, txn model.Transaction, correctedCategory string) error {
	if correctedCategory == "" {
		return fmt.Errorf("corrected category must not be empty")
	}

	signature := Signature(txn.Description)
	if signature == "" {
		return fmt.Errorf("cannot derive signature from description %q", txn.Description)
	}

	lock := e.signatureLock(signature)
	lock.Lock()
	defer lock.Unlock()

	record := &model.CorrectionRecord{
		Signature:     signature,
		Category:      correctedCategory,
		TransactionID: txn.ID,
		CreatedAt:     time.Now(),
	}
	if err := e.log.AppendCorrection(ctx, record); err != nil {
		return fmt.Errorf("failed to record correction: %w", err)
	}

	e.statsMu.Lock()
	e.stats.CorrectionsRecorded++
	e.statsMu.Unlock()

	slog.Debug("Correction recorded",
		"signature", signature,
		"category", correctedCategory,
		"transaction_id", txn.ID)

	if _, err := e.promoteLocked(ctx, signature); err != nil {
		// The correction is already durable; surface the promotion
		// failure so the caller can retry later.
		return fmt.Errorf("correction recorded but promotion failed: %w", err)
	}
	return nil
}

// PromoteIfEligible checks whether the signature's corrections have
// reached the promotion threshold and, if so, creates exactly one
// learned rule. Calling it again without new corrections is a no-op.
// It returns the created rule, or nil when nothing was promoted.
func (e *Engine) PromoteIfEligible(ctx context.Context, signature string) (*model.ClassificationRule, error) {
	lock := e.signatureLock(signature)
	lock.Lock()
	defer lock.Unlock()
	return e.promoteLocked(ctx, signature)
}

// GetStats returns a copy of the engine's counters.
func (e *Engine) GetStats() Stats {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	return e.stats
}

func (e *Engine) promoteLocked(ctx context.Context, signature string) (*model.ClassificationRule, error) {
	var promoted *model.ClassificationRule

	attempt := func() error {
		rule, err := e.attemptPromotion(ctx, signature)
		if err != nil {
			return err
		}
		promoted = rule
		return nil
	}

	// A store write conflict is retried once with a fresh read.
	err := common.WithRetry(ctx, attempt, service.RetryOptions{
		MaxAttempts:  2,
		InitialDelay: 50 * time.Millisecond,
	})
	if err != nil {
		return nil, err
	}

	if promoted != nil {
		e.statsMu.Lock()
		e.stats.RulesPromoted++
		e.statsMu.Unlock()
		slog.Info("Correction pattern promoted to rule",
			"rule_id", promoted.ID,
			"signature", signature,
			"category", promoted.TargetValue,
			"support", promoted.SupportCount)
	}
	return promoted, nil
}

// attemptPromotion performs one eligibility check and, when eligible,
// one rule creation against the latest store state.
func (e *Engine) attemptPromotion(ctx context.Context, signature string) (*model.ClassificationRule, error) {
	counts, err := e.log.CountCorrections(ctx, signature)
	if err != nil {
		return nil, &common.RetryableError{Err: fmt.Errorf("failed to count corrections: %w", err), Retryable: true}
	}

	category, support, ambiguous := leadingCategory(counts)
	if support < e.threshold {
		return nil, nil
	}
	if ambiguous {
		// Tied categories at threshold: not an error, just no signal.
		e.statsMu.Lock()
		e.stats.AmbiguousSignals++
		e.statsMu.Unlock()
		slog.Info("Ambiguous correction signal, no promotion",
			"signature", signature,
			"counts", counts)
		return nil, nil
	}

	active, err := e.store.ListActiveRules(ctx, model.RuleTypeCategory)
	if err != nil {
		return nil, &common.RetryableError{Err: fmt.Errorf("failed to list rules: %w", err), Retryable: true}
	}
	for _, r := range active {
		if r.Origin == model.OriginLearned && r.ConditionValue == signature {
			// Already promoted (possibly by a concurrent writer).
			return nil, nil
		}
	}

	newRule := &model.ClassificationRule{
		Name:           fmt.Sprintf("learned-%s-%s", category, truncate(signature, 20)),
		RuleType:       model.RuleTypeCategory,
		ConditionType:  model.ConditionContains,
		ConditionValue: signature,
		TargetValue:    category,
		Priority:       learnedPriority(active),
		Origin:         model.OriginLearned,
		SupportCount:   support,
		IsActive:       true,
	}

	if err := e.store.CreateRule(ctx, newRule); err != nil {
		if errors.Is(err, common.ErrDuplicateEntry) {
			// Lost a race with another promotion of the same pattern.
			return nil, nil
		}
		return nil, &common.RetryableError{Err: fmt.Errorf("failed to create learned rule: %w", err), Retryable: true}
	}
	return newRule, nil
}

// leadingCategory returns the most frequent category and its count.
// ambiguous is true when another category ties the leader, which blocks
// promotion until one category pulls strictly ahead.
func leadingCategory(counts map[string]int) (category string, support int, ambiguous bool) {
	for c, n := range counts {
		switch {
		case n > support:
			category, support, ambiguous = c, n, false
		case n == support && support > 0:
			ambiguous = true
		}
	}
	return category, support, ambiguous
}

// learnedPriority places a new learned rule below every active user and
// system rule, so priority alone can never let a learned rule outrank
// curated configuration even in single-pool evaluations.
func learnedPriority(active []model.ClassificationRule) int {
	priority := 0
	for _, r := range active {
		if r.Origin != model.OriginUser && r.Origin != model.OriginSystem {
			continue
		}
		if r.Priority-1 < priority {
			priority = r.Priority - 1
		}
	}
	return priority
}

func (e *Engine) signatureLock(signature string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.sigLocks[signature]
	if !ok {
		lock = &sync.Mutex{}
		e.sigLocks[signature] = lock
	}
	return lock
}

func truncate(s string, maxRunes int) string {
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes])
}
