package rule

import (
	"log/slog"

	"github.com/sejin-p/ledger-sense/internal/model"
)

// Problem records a rule whose condition failed to evaluate during a
// batch. Each rule is reported at most once per snapshot to avoid log
// flooding when a bad rule meets a large batch.
type Problem struct {
	Err      error
	RuleName string
	RuleID   int
}

// Snapshot is an immutable view of the active rules of one type, sorted
// by descending priority with ties broken by ascending rule ID (the
// older rule wins a tie). All transactions of a batch are classified
// against the same snapshot, so results are order-independent and
// reproducible even if rules are edited mid-batch.
//
// A snapshot is not safe for concurrent use; take one per batch.
type Snapshot struct {
	eval     *Evaluator
	reported map[int]bool
	meta     model.RuleSnapshot
	problems []Problem
}

// Version returns the rule-set version the snapshot was taken at.
func (s *Snapshot) Version() int64 {
	return s.meta.Version
}

// Type returns the rule type the snapshot holds.
func (s *Snapshot) Type() model.RuleType {
	return s.meta.Type
}

// Rules returns the snapshot's rules in evaluation order.
func (s *Snapshot) Rules() []model.ClassificationRule {
	return s.meta.Rules
}

// Classify returns the target value and rule ID of the first rule whose
// condition matches the transaction, restricted to the given origins.
// An empty origin list means all origins. A rule whose condition fails
// to evaluate is skipped, recorded once on the problem list, and never
// treated as a match.
func (s *Snapshot) Classify(txn model.Transaction, origins ...model.Origin) (string, int, bool) {
	for _, r := range s.meta.Rules {
		if len(origins) > 0 && !originIn(r.Origin, origins) {
			continue
		}

		matched, err := s.eval.Matches(r, txn)
		if err != nil {
			s.recordProblem(r, err)
			continue
		}
		if matched {
			slog.Debug("Rule matched",
				"rule_id", r.ID,
				"rule_name", r.Name,
				"target", r.TargetValue,
				"transaction_id", txn.ID)
			return r.TargetValue, r.ID, true
		}
	}
	return "", 0, false
}

// Problems returns the evaluation failures recorded so far, one entry
// per offending rule.
func (s *Snapshot) Problems() []Problem {
	return s.problems
}

func (s *Snapshot) recordProblem(r model.ClassificationRule, err error) {
	if s.reported[r.ID] {
		return
	}
	s.reported[r.ID] = true
	s.problems = append(s.problems, Problem{RuleID: r.ID, RuleName: r.Name, Err: err})
	slog.Warn("Skipping rule with unevaluable condition",
		"rule_id", r.ID,
		"rule_name", r.Name,
		"error", err)
}

func originIn(o model.Origin, origins []model.Origin) bool {
	for _, candidate := range origins {
		if o == candidate {
			return true
		}
	}
	return false
}
