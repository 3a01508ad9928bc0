package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/sejin-p/ledger-sense/internal/common"
	"github.com/sejin-p/ledger-sense/internal/model"
)

const ruleColumns = `id, name, rule_type, condition_type, condition_value,
	target_value, priority, origin, support_count, revision, is_active,
	created_at, updated_at`

// CreateRule stores a new classification rule and bumps the rule-set
// version in the same transaction. Returns common.ErrDuplicateEntry when
// a learned rule for the same condition already exists; user and system
// rules may overlap and are deduplicated by policy, not by the store.
func (s *SQLiteStorage) CreateRule(ctx context.Context, rule *model.ClassificationRule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRule(rule); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO classification_rules (
			name, rule_type, condition_type, condition_value,
			target_value, priority, origin, support_count, is_active
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.Name, rule.RuleType, rule.ConditionType, rule.ConditionValue,
		rule.TargetValue, rule.Priority, rule.Origin, rule.SupportCount, rule.IsActive,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: equivalent rule already exists", common.ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to create rule: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get rule ID: %w", err)
	}

	if err := bumpRuleSetVersion(ctx, tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rule: %w", err)
	}

	rule.ID = int(id)
	rule.Revision = 1
	rule.CreatedAt = time.Now()
	rule.UpdatedAt = time.Now()
	return nil
}

// GetRule retrieves a rule by ID.
func (s *SQLiteStorage) GetRule(ctx context.Context, id int) (*model.ClassificationRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+ruleColumns+` FROM classification_rules WHERE id = ?`, id)

	rule, err := scanRule(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: rule %d", common.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}
	return rule, nil
}

// UpdateRule updates an existing rule using optimistic concurrency: the
// update only applies if the caller holds the current revision, so a
// concurrent mutation is detected at write time and surfaced as
// common.ErrConflict for a retry with a fresh read.
func (s *SQLiteStorage) UpdateRule(ctx context.Context, rule *model.ClassificationRule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRule(rule); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		UPDATE classification_rules SET
			name = ?, rule_type = ?, condition_type = ?, condition_value = ?,
			target_value = ?, priority = ?, origin = ?, support_count = ?,
			is_active = ?, revision = revision + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND revision = ?`,
		rule.Name, rule.RuleType, rule.ConditionType, rule.ConditionValue,
		rule.TargetValue, rule.Priority, rule.Origin, rule.SupportCount,
		rule.IsActive, rule.ID, rule.Revision,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: equivalent rule already exists", common.ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to update rule: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		var exists int
		if err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM classification_rules WHERE id = ?", rule.ID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check rule existence: %w", err)
		}
		if exists == 0 {
			return fmt.Errorf("%w: rule %d", common.ErrNotFound, rule.ID)
		}
		return fmt.Errorf("%w: rule %d was modified since it was read", common.ErrConflict, rule.ID)
	}

	if err := bumpRuleSetVersion(ctx, tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rule update: %w", err)
	}

	rule.Revision++
	rule.UpdatedAt = time.Now()
	return nil
}

// DeleteRule removes a rule permanently.
func (s *SQLiteStorage) DeleteRule(ctx context.Context, id int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return s.mutateRule(ctx, id, "DELETE FROM classification_rules WHERE id = ?")
}

// SetRuleActive enables or disables a rule without deleting it, keeping
// rule history auditable.
func (s *SQLiteStorage) SetRuleActive(ctx context.Context, id int, active bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return s.mutateRule(ctx, id, `
		UPDATE classification_rules
		SET is_active = ?, revision = revision + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, active)
}

// SetRulePriority changes a rule's priority.
func (s *SQLiteStorage) SetRulePriority(ctx context.Context, id int, priority int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return s.mutateRule(ctx, id, `
		UPDATE classification_rules
		SET priority = ?, revision = revision + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, priority)
}

// ListRules retrieves all rules of a type, active or not, ordered by
// priority DESC then ID ASC.
func (s *SQLiteStorage) ListRules(ctx context.Context, ruleType model.RuleType) ([]model.ClassificationRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.queryRules(ctx, s.db, `
		SELECT `+ruleColumns+`
		FROM classification_rules
		WHERE rule_type = ?
		ORDER BY priority DESC, id ASC`, ruleType)
}

// ListActiveRules retrieves the active rules of a type ordered by
// priority DESC then ID ASC.
func (s *SQLiteStorage) ListActiveRules(ctx context.Context, ruleType model.RuleType) ([]model.ClassificationRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.queryRules(ctx, s.db, `
		SELECT `+ruleColumns+`
		FROM classification_rules
		WHERE rule_type = ? AND is_active = 1
		ORDER BY priority DESC, id ASC`, ruleType)
}

// SnapshotRules reads the rule-set version and the active rules of a
// type in one transaction, so the snapshot never observes a partially
// committed mutation.
func (s *SQLiteStorage) SnapshotRules(ctx context.Context, ruleType model.RuleType) (*model.RuleSnapshot, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var version int64
	if err := tx.QueryRowContext(ctx, "SELECT version FROM rule_set_meta WHERE id = 1").Scan(&version); err != nil {
		return nil, fmt.Errorf("failed to read rule-set version: %w", err)
	}

	rules, err := s.queryRules(ctx, tx, `
		SELECT `+ruleColumns+`
		FROM classification_rules
		WHERE rule_type = ? AND is_active = 1
		ORDER BY priority DESC, id ASC`, ruleType)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit snapshot read: %w", err)
	}

	return &model.RuleSnapshot{Type: ruleType, Rules: rules, Version: version}, nil
}

// querier abstracts *sql.DB and *sql.Tx for read helpers.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *SQLiteStorage) queryRules(ctx context.Context, q querier, query string, args ...any) ([]model.ClassificationRule, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rules []model.ClassificationRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}
	return rules, nil
}

// mutateRule runs a single-rule statement with rule-set version bump,
// mapping zero affected rows to common.ErrNotFound. The rule ID is the
// final statement argument.
func (s *SQLiteStorage) mutateRule(ctx context.Context, id int, query string, args ...any) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, query, append(args, id)...)
	if err != nil {
		return fmt.Errorf("failed to mutate rule: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: rule %d", common.ErrNotFound, id)
	}

	if err := bumpRuleSetVersion(ctx, tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rule mutation: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRule(row scanner) (*model.ClassificationRule, error) {
	var rule model.ClassificationRule
	err := row.Scan(
		&rule.ID, &rule.Name, &rule.RuleType, &rule.ConditionType, &rule.ConditionValue,
		&rule.TargetValue, &rule.Priority, &rule.Origin, &rule.SupportCount, &rule.Revision,
		&rule.IsActive, &rule.CreatedAt, &rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func bumpRuleSetVersion(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, "UPDATE rule_set_meta SET version = version + 1 WHERE id = 1"); err != nil {
		return fmt.Errorf("failed to bump rule-set version: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return errors.Is(sqliteErr.ExtendedCode, sqlite3.ErrConstraintUnique) ||
			errors.Is(sqliteErr.ExtendedCode, sqlite3.ErrConstraintPrimaryKey)
	}
	return false
}
