// Package rule implements condition evaluation and prioritized
// first-match rule resolution over immutable rule snapshots.
package rule

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sejin-p/ledger-sense/internal/filter"
	"github.com/sejin-p/ledger-sense/internal/model"
)

// Evaluator checks a single rule's condition against a single
// transaction. It is pure apart from caching compiled regex patterns
// and parsed amount ranges, keyed by rule ID. An evaluator is owned by
// one snapshot, so cached entries can never go stale.
type Evaluator struct {
	compiled map[int]*regexp.Regexp
	ranges   map[int]filter.AmountRange
	failed   map[int]error
}

// NewEvaluator creates an empty evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{
		compiled: make(map[int]*regexp.Regexp),
		ranges:   make(map[int]filter.AmountRange),
		failed:   make(map[int]error),
	}
}

// Matches reports whether the rule's condition matches the transaction.
// A malformed condition (invalid regex, unparseable amount range)
// returns a non-nil error and never matches; the caller decides how to
// report it. Given identical inputs the result is stable.
func (e *Evaluator) Matches(r model.ClassificationRule, txn model.Transaction) (bool, error) {
	switch r.ConditionType {
	case model.ConditionContains:
		return strings.Contains(strings.ToLower(txn.Description), strings.ToLower(r.ConditionValue)), nil

	case model.ConditionEquals:
		// Case-sensitive, unlike contains.
		return txn.Description == r.ConditionValue, nil

	case model.ConditionRegex:
		re, err := e.compileRegex(r)
		if err != nil {
			return false, err
		}
		return re.MatchString(txn.Description), nil

	case model.ConditionAmountRange:
		rng, err := e.parseRange(r)
		if err != nil {
			return false, err
		}
		return rng.Contains(txn.Amount), nil

	default:
		return false, fmt.Errorf("unknown condition type %q", r.ConditionType)
	}
}

func (e *Evaluator) compileRegex(r model.ClassificationRule) (*regexp.Regexp, error) {
	if err, ok := e.failed[r.ID]; ok {
		return nil, err
	}
	if re, ok := e.compiled[r.ID]; ok {
		return re, nil
	}

	pattern := r.ConditionValue
	if !strings.HasPrefix(pattern, "(?i)") {
		pattern = "(?i)" + pattern
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		err = fmt.Errorf("invalid regex pattern %q: %w", r.ConditionValue, err)
		e.failed[r.ID] = err
		return nil, err
	}
	e.compiled[r.ID] = re
	return re, nil
}

func (e *Evaluator) parseRange(r model.ClassificationRule) (filter.AmountRange, error) {
	if err, ok := e.failed[r.ID]; ok {
		return filter.AmountRange{}, err
	}
	if rng, ok := e.ranges[r.ID]; ok {
		return rng, nil
	}

	rng, err := filter.ParseAmountRange(r.ConditionValue)
	if err != nil {
		e.failed[r.ID] = err
		return filter.AmountRange{}, err
	}
	e.ranges[r.ID] = rng
	return rng, nil
}
