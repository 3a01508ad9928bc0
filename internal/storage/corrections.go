package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/sejin-p/ledger-sense/internal/model"
)

// AppendCorrection stores one user correction. Corrections are append
// only: aggregation happens at read time, so a failed rule promotion
// never loses the underlying record.
func (s *SQLiteStorage) AppendCorrection(ctx context.Context, record *model.CorrectionRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCorrection(record); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO corrections (signature, category, transaction_id)
		VALUES (?, ?, ?)`,
		record.Signature, record.Category, record.TransactionID,
	)
	if err != nil {
		return fmt.Errorf("failed to append correction: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get correction ID: %w", err)
	}
	record.ID = int(id)
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	return nil
}

// CountCorrections aggregates the corrections sharing a signature into
// per-category counts.
func (s *SQLiteStorage) CountCorrections(ctx context.Context, signature string) (map[string]int, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(signature, "signature"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT category, COUNT(*)
		FROM corrections
		WHERE signature = ?
		GROUP BY category`, signature)
	if err != nil {
		return nil, fmt.Errorf("failed to count corrections: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int)
	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return nil, fmt.Errorf("failed to scan correction count: %w", err)
		}
		counts[category] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating correction counts: %w", err)
	}
	return counts, nil
}

// ListCorrections retrieves the corrections for a signature in
// insertion order.
func (s *SQLiteStorage) ListCorrections(ctx context.Context, signature string) ([]model.CorrectionRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(signature, "signature"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, signature, category, transaction_id, created_at
		FROM corrections
		WHERE signature = ?
		ORDER BY id ASC`, signature)
	if err != nil {
		return nil, fmt.Errorf("failed to list corrections: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.CorrectionRecord
	for rows.Next() {
		var record model.CorrectionRecord
		if err := rows.Scan(&record.ID, &record.Signature, &record.Category,
			&record.TransactionID, &record.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan correction: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating corrections: %w", err)
	}
	return records, nil
}
