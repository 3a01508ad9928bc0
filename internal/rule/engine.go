package rule

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/sejin-p/ledger-sense/internal/model"
	"github.com/sejin-p/ledger-sense/internal/service"
)

// Engine mediates rule access: mutations pass through to the store, and
// classification reads operate on immutable snapshots taken once per
// batch.
type Engine struct {
	store service.RuleStore
}

// NewEngine creates a rule engine backed by the given store.
func NewEngine(store service.RuleStore) *Engine {
	return &Engine{store: store}
}

// Snapshot takes one atomic, versioned view of the active rules of the
// requested type, sorted by descending priority then ascending ID. The
// sort is applied here so the evaluation-order convention holds
// regardless of store ordering.
func (e *Engine) Snapshot(ctx context.Context, ruleType model.RuleType) (*Snapshot, error) {
	meta, err := e.store.SnapshotRules(ctx, ruleType)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot %s rules: %w", ruleType, err)
	}

	sort.SliceStable(meta.Rules, func(i, j int) bool {
		if meta.Rules[i].Priority != meta.Rules[j].Priority {
			return meta.Rules[i].Priority > meta.Rules[j].Priority
		}
		return meta.Rules[i].ID < meta.Rules[j].ID
	})

	return &Snapshot{
		meta:     *meta,
		eval:     NewEvaluator(),
		reported: make(map[int]bool),
	}, nil
}

// AddRule stores a new rule.
func (e *Engine) AddRule(ctx context.Context, r *model.ClassificationRule) error {
	if err := e.store.CreateRule(ctx, r); err != nil {
		return fmt.Errorf("failed to add rule: %w", err)
	}
	slog.Info("Rule added", "rule_id", r.ID, "rule_name", r.Name, "rule_type", r.RuleType)
	return nil
}

// UpdateRule updates an existing rule.
func (e *Engine) UpdateRule(ctx context.Context, r *model.ClassificationRule) error {
	if r.ID == 0 {
		return fmt.Errorf("cannot update rule without an ID")
	}
	if err := e.store.UpdateRule(ctx, r); err != nil {
		return fmt.Errorf("failed to update rule %d: %w", r.ID, err)
	}
	slog.Info("Rule updated", "rule_id", r.ID, "rule_name", r.Name)
	return nil
}

// DeleteRule removes a rule permanently. Prefer SetRuleActive(false) to
// keep rule history auditable; deletion is for explicit user action.
func (e *Engine) DeleteRule(ctx context.Context, id int) error {
	if err := e.store.DeleteRule(ctx, id); err != nil {
		return fmt.Errorf("failed to delete rule %d: %w", id, err)
	}
	slog.Info("Rule deleted", "rule_id", id)
	return nil
}

// SetRuleActive enables or disables a rule.
func (e *Engine) SetRuleActive(ctx context.Context, id int, active bool) error {
	if err := e.store.SetRuleActive(ctx, id, active); err != nil {
		return fmt.Errorf("failed to set rule %d active=%t: %w", id, active, err)
	}
	slog.Info("Rule activation changed", "rule_id", id, "active", active)
	return nil
}

// SetRulePriority changes a rule's priority.
func (e *Engine) SetRulePriority(ctx context.Context, id int, priority int) error {
	if err := e.store.SetRulePriority(ctx, id, priority); err != nil {
		return fmt.Errorf("failed to set rule %d priority to %d: %w", id, priority, err)
	}
	slog.Info("Rule priority changed", "rule_id", id, "priority", priority)
	return nil
}

// Conflict is a pair of active rules with identical conditions but
// different targets. The higher-priority rule wins at classification
// time; the pair is surfaced so the user can clean up.
type Conflict struct {
	Winner model.ClassificationRule
	Loser  model.ClassificationRule
}

// DetectConflicts finds active same-condition rules of the given type
// that disagree on their target value.
func (e *Engine) DetectConflicts(ctx context.Context, ruleType model.RuleType) ([]Conflict, error) {
	rules, err := e.store.ListActiveRules(ctx, ruleType)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s rules: %w", ruleType, err)
	}

	type conditionKey struct {
		conditionType  model.ConditionType
		conditionValue string
	}

	groups := make(map[conditionKey][]model.ClassificationRule)
	for _, r := range rules {
		key := conditionKey{r.ConditionType, r.ConditionValue}
		groups[key] = append(groups[key], r)
	}

	var conflicts []Conflict
	for _, group := range groups {
		if len(group) < 2 {
			continue
		}
		sort.SliceStable(group, func(i, j int) bool {
			if group[i].Priority != group[j].Priority {
				return group[i].Priority > group[j].Priority
			}
			return group[i].ID < group[j].ID
		})
		winner := group[0]
		for _, loser := range group[1:] {
			if loser.TargetValue != winner.TargetValue {
				conflicts = append(conflicts, Conflict{Winner: winner, Loser: loser})
			}
		}
	}

	if len(conflicts) > 0 {
		slog.Warn("Rule conflicts detected", "rule_type", ruleType, "count", len(conflicts))
	}
	return conflicts, nil
}

// Stats summarizes the active rules of one type.
type Stats struct {
	ByCondition map[model.ConditionType]int
	ByOrigin    map[model.Origin]int
	ByTarget    map[string]int
	TotalRules  int
	MinPriority int
	MaxPriority int
}

// Stats returns counts and the priority range for the active rules of
// the given type.
func (e *Engine) Stats(ctx context.Context, ruleType model.RuleType) (Stats, error) {
	rules, err := e.store.ListActiveRules(ctx, ruleType)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to list %s rules: %w", ruleType, err)
	}

	stats := Stats{
		TotalRules:  len(rules),
		ByCondition: make(map[model.ConditionType]int),
		ByOrigin:    make(map[model.Origin]int),
		ByTarget:    make(map[string]int),
	}
	for i, r := range rules {
		stats.ByCondition[r.ConditionType]++
		stats.ByOrigin[r.Origin]++
		stats.ByTarget[r.TargetValue]++
		if i == 0 || r.Priority < stats.MinPriority {
			stats.MinPriority = r.Priority
		}
		if i == 0 || r.Priority > stats.MaxPriority {
			stats.MaxPriority = r.Priority
		}
	}
	return stats, nil
}
