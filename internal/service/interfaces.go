// Package service defines the shared contracts between the engine
// packages and their collaborators.
package service

import (
	"context"
	"time"

	"github.com/sejin-p/ledger-sense/internal/model"
)

// RuleStore is the durable home of classification rules. Mutations must
// be atomic: a reader taking a snapshot never observes a partially
// written rule. Every committed mutation bumps the rule-set version.
type RuleStore interface {
	CreateRule(ctx context.Context, rule *model.ClassificationRule) error
	GetRule(ctx context.Context, id int) (*model.ClassificationRule, error)
	UpdateRule(ctx context.Context, rule *model.ClassificationRule) error
	DeleteRule(ctx context.Context, id int) error
	SetRuleActive(ctx context.Context, id int, active bool) error
	SetRulePriority(ctx context.Context, id int, priority int) error
	ListRules(ctx context.Context, ruleType model.RuleType) ([]model.ClassificationRule, error)
	ListActiveRules(ctx context.Context, ruleType model.RuleType) ([]model.ClassificationRule, error)
	SnapshotRules(ctx context.Context, ruleType model.RuleType) (*model.RuleSnapshot, error)
}

// CorrectionLog persists user corrections so that learning eligibility
// survives promotion failures and restarts.
type CorrectionLog interface {
	AppendCorrection(ctx context.Context, record *model.CorrectionRecord) error
	CountCorrections(ctx context.Context, signature string) (map[string]int, error)
	ListCorrections(ctx context.Context, signature string) ([]model.CorrectionRecord, error)
}

// TransactionSource is the external transaction repository boundary.
// The engine only reads transactions through it and hands back
// classification results; precedence over manual edits is enforced by
// the implementation, not by the engine.
type TransactionSource interface {
	GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error)
	ListUnclassified(ctx context.Context) ([]model.Transaction, error)
	SaveClassification(ctx context.Context, transactionID string, c model.Classification) error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
