// Package storage provides the data persistence layer for classification
// rules and the learning engine's correction log.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sejin-p/ledger-sense/internal/filter"
	"github.com/sejin-p/ledger-sense/internal/model"
)

// Validation errors.
var (
	ErrNilContext        = errors.New("context cannot be nil")
	ErrEmptyString       = errors.New("string parameter cannot be empty")
	ErrNilParameter      = errors.New("parameter cannot be nil")
	ErrInvalidRule       = errors.New("invalid rule")
	ErrInvalidCorrection = errors.New("invalid correction")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateRule rejects malformed rules at write time, before they can
// reach the evaluator.
func validateRule(rule *model.ClassificationRule) error {
	if rule == nil {
		return fmt.Errorf("%w: rule", ErrNilParameter)
	}
	if strings.TrimSpace(rule.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidRule)
	}
	if strings.TrimSpace(rule.TargetValue) == "" {
		return fmt.Errorf("%w: missing target value", ErrInvalidRule)
	}
	if rule.ConditionValue == "" {
		return fmt.Errorf("%w: missing condition value", ErrInvalidRule)
	}

	switch rule.RuleType {
	case model.RuleTypeCategory, model.RuleTypePaymentMethod, model.RuleTypeFilter:
	default:
		return fmt.Errorf("%w: unknown rule type %q", ErrInvalidRule, rule.RuleType)
	}

	switch rule.ConditionType {
	case model.ConditionContains, model.ConditionEquals, model.ConditionRegex:
	case model.ConditionAmountRange:
		// Reject unparseable ranges up front; a malformed regex is
		// deliberately allowed through so the evaluator's skip-and-report
		// path stays reachable for rules edited outside this store.
		if _, err := filter.ParseAmountRange(rule.ConditionValue); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidRule, err)
		}
	default:
		return fmt.Errorf("%w: unknown condition type %q", ErrInvalidRule, rule.ConditionType)
	}

	switch rule.Origin {
	case model.OriginUser, model.OriginSystem, model.OriginLearned:
	default:
		return fmt.Errorf("%w: unknown origin %q", ErrInvalidRule, rule.Origin)
	}

	if rule.Origin != model.OriginLearned && rule.SupportCount != 0 {
		return fmt.Errorf("%w: support count is only valid on learned rules", ErrInvalidRule)
	}

	return nil
}

// validateCorrection validates a correction record before appending.
func validateCorrection(record *model.CorrectionRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record", ErrNilParameter)
	}
	if strings.TrimSpace(record.Signature) == "" {
		return fmt.Errorf("%w: missing signature", ErrInvalidCorrection)
	}
	if strings.TrimSpace(record.Category) == "" {
		return fmt.Errorf("%w: missing category", ErrInvalidCorrection)
	}
	if strings.TrimSpace(record.TransactionID) == "" {
		return fmt.Errorf("%w: missing transaction ID", ErrInvalidCorrection)
	}
	return nil
}
