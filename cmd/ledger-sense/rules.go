package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sejin-p/ledger-sense/internal/model"
	"github.com/sejin-p/ledger-sense/internal/rule"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage classification rules",
	}
	cmd.AddCommand(rulesListCmd())
	cmd.AddCommand(rulesAddCmd())
	cmd.AddCommand(rulesSetActiveCmd("enable", true))
	cmd.AddCommand(rulesSetActiveCmd("disable", false))
	cmd.AddCommand(rulesDeleteCmd())
	cmd.AddCommand(rulesPriorityCmd())
	cmd.AddCommand(rulesConflictsCmd())
	return cmd
}

func rulesListCmd() *cobra.Command {
	var ruleType string
	var includeInactive bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List rules in evaluation order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			var rules []model.ClassificationRule
			if includeInactive {
				rules, err = store.ListRules(ctx, model.RuleType(ruleType))
			} else {
				rules, err = store.ListActiveRules(ctx, model.RuleType(ruleType))
			}
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tPRIORITY\tORIGIN\tCONDITION\tVALUE\tTARGET\tACTIVE\tNAME")
			for _, r := range rules {
				fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\t%s\t%t\t%s\n",
					r.ID, r.Priority, r.Origin, r.ConditionType, r.ConditionValue,
					r.TargetValue, r.IsActive, r.Name)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&ruleType, "type", "t", string(model.RuleTypeCategory), "rule type (category, payment_method, filter)")
	cmd.Flags().BoolVarP(&includeInactive, "all", "a", false, "include disabled rules")
	return cmd
}

func rulesAddCmd() *cobra.Command {
	var (
		name      string
		ruleType  string
		condition string
		value     string
		target    string
		priority  int
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a user rule",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			newRule := &model.ClassificationRule{
				Name:           name,
				RuleType:       model.RuleType(ruleType),
				ConditionType:  model.ConditionType(condition),
				ConditionValue: value,
				TargetValue:    target,
				Priority:       priority,
				Origin:         model.OriginUser,
				IsActive:       true,
			}
			if err := rule.NewEngine(store).AddRule(ctx, newRule); err != nil {
				return err
			}
			cmd.Printf("Added rule %d: %s\n", newRule.ID, newRule.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "human-readable rule name")
	cmd.Flags().StringVarP(&ruleType, "type", "t", string(model.RuleTypeCategory), "rule type (category, payment_method, filter)")
	cmd.Flags().StringVarP(&condition, "condition", "c", string(model.ConditionContains), "condition type (contains, equals, regex, amount_range)")
	cmd.Flags().StringVarP(&value, "value", "v", "", "condition value (for amount_range: \"min-max\")")
	cmd.Flags().StringVar(&target, "target", "", "category or payment method to assign")
	cmd.Flags().IntVarP(&priority, "priority", "p", 0, "priority (higher wins; ties go to the older rule)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("value")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func rulesSetActiveCmd(use string, active bool) *cobra.Command {
	short := "Disable a rule without deleting it"
	if active {
		short = "Re-enable a disabled rule"
	}
	return &cobra.Command{
		Use:   use + " <rule-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid rule ID %q", args[0])
			}

			ctx := cmd.Context()
			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			return rule.NewEngine(store).SetRuleActive(ctx, id, active)
		},
	}
}

func rulesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <rule-id>",
		Short: "Delete a rule permanently (prefer disable)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid rule ID %q", args[0])
			}

			ctx := cmd.Context()
			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			return rule.NewEngine(store).DeleteRule(ctx, id)
		},
	}
}

func rulesPriorityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "priority <rule-id> <priority>",
		Short: "Change a rule's priority",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid rule ID %q", args[0])
			}
			priority, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid priority %q", args[1])
			}

			ctx := cmd.Context()
			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			return rule.NewEngine(store).SetRulePriority(ctx, id, priority)
		},
	}
}

func rulesConflictsCmd() *cobra.Command {
	var ruleType string

	cmd := &cobra.Command{
		Use:   "conflicts",
		Short: "Show active same-condition rules that disagree on their target",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			conflicts, err := rule.NewEngine(store).DetectConflicts(ctx, model.RuleType(ruleType))
			if err != nil {
				return err
			}
			if len(conflicts) == 0 {
				cmd.Println("No conflicts.")
				return nil
			}
			for _, c := range conflicts {
				cmd.Printf("rule %d (%s -> %s) shadows rule %d (%s -> %s)\n",
					c.Winner.ID, c.Winner.ConditionValue, c.Winner.TargetValue,
					c.Loser.ID, c.Loser.ConditionValue, c.Loser.TargetValue)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&ruleType, "type", "t", string(model.RuleTypeCategory), "rule type (category, payment_method, filter)")
	return cmd
}
