// Package seed installs the default system-origin rule set into an
// empty rule store.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"

	"gopkg.in/yaml.v3"

	"github.com/sejin-p/ledger-sense/internal/model"
	"github.com/sejin-p/ledger-sense/internal/service"
)

//go:embed rules.yaml
var defaultRulesYAML []byte

type seedFile struct {
	Rules []seedRule `yaml:"rules"`
}

type seedRule struct {
	Name      string `yaml:"name"`
	Type      string `yaml:"type"`
	Condition string `yaml:"condition"`
	Value     string `yaml:"value"`
	Target    string `yaml:"target"`
	Priority  int    `yaml:"priority"`
}

// DefaultRules decodes the embedded rule set.
func DefaultRules() ([]model.ClassificationRule, error) {
	var file seedFile
	if err := yaml.Unmarshal(defaultRulesYAML, &file); err != nil {
		return nil, fmt.Errorf("failed to decode seed rules: %w", err)
	}

	rules := make([]model.ClassificationRule, 0, len(file.Rules))
	for _, sr := range file.Rules {
		rules = append(rules, model.ClassificationRule{
			Name:           sr.Name,
			RuleType:       model.RuleType(sr.Type),
			ConditionType:  model.ConditionType(sr.Condition),
			ConditionValue: sr.Value,
			TargetValue:    sr.Target,
			Priority:       sr.Priority,
			Origin:         model.OriginSystem,
			IsActive:       true,
		})
	}
	return rules, nil
}

// Install writes the default system rules into the store, skipping any
// whose condition and target are already present so repeated startups
// stay idempotent. Returns the number of rules created.
func Install(ctx context.Context, store service.RuleStore) (int, error) {
	rules, err := DefaultRules()
	if err != nil {
		return 0, err
	}

	existing := make(map[string]bool)
	for _, ruleType := range []model.RuleType{model.RuleTypeCategory, model.RuleTypePaymentMethod} {
		current, err := store.ListRules(ctx, ruleType)
		if err != nil {
			return 0, fmt.Errorf("failed to list existing %s rules: %w", ruleType, err)
		}
		for _, r := range current {
			existing[ruleKey(r)] = true
		}
	}

	created := 0
	for i := range rules {
		if existing[ruleKey(rules[i])] {
			// Already seeded on a previous run.
			continue
		}
		if err := store.CreateRule(ctx, &rules[i]); err != nil {
			return created, fmt.Errorf("failed to seed rule %q: %w", rules[i].Name, err)
		}
		created++
	}

	if created > 0 {
		slog.Info("Installed default rules", "created", created, "total", len(rules))
	}
	return created, nil
}

func ruleKey(r model.ClassificationRule) string {
	return fmt.Sprintf("%s|%s|%s|%s", r.RuleType, r.ConditionType, r.ConditionValue, r.TargetValue)
}
