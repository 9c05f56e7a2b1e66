package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Veraticus/spice-sort/internal/model"
)

// RecordCategorization appends a decision to the audit log and fills in the
// record's ID and creation time.
func (s *SQLiteStorage) RecordCategorization(ctx context.Context, record *model.AuditRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateAuditRecord(record); err != nil {
		return err
	}

	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO categorization_audit (
			transaction_id, account_id, vendor_label, description,
			description_score, description_category_id,
			vendor_score, vendor_category_id, main_category_id,
			source, confidence, decision_score, justification,
			description_threshold, vendor_threshold, description_advantage,
			created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.TransactionID,
		record.AccountID,
		record.VendorLabel,
		record.Description,
		record.DescriptionScore,
		nullableInt(record.DescriptionCategoryID),
		record.VendorScore,
		nullableInt(record.VendorCategoryID),
		nullableInt(record.MainCategoryID),
		string(record.Source),
		string(record.Confidence),
		record.DecisionScore,
		record.Justification,
		record.Thresholds.DescriptionThreshold,
		record.Thresholds.VendorThreshold,
		record.Thresholds.DescriptionAdvantage,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record categorization: %w", err)
	}

	if record.ID, err = result.LastInsertId(); err != nil {
		return fmt.Errorf("failed to get audit record ID: %w", err)
	}
	return nil
}

// GetAuditRecords returns a transaction's decisions, newest first.
func (s *SQLiteStorage) GetAuditRecords(ctx context.Context, transactionID string) ([]model.AuditRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(transactionID, "transactionID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, transaction_id, account_id, vendor_label, description,
			description_score, description_category_id,
			vendor_score, vendor_category_id, main_category_id,
			source, confidence, decision_score, justification,
			description_threshold, vendor_threshold, description_advantage,
			created_at
		FROM categorization_audit
		WHERE transaction_id = ?
		ORDER BY id DESC`, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.AuditRecord
	for rows.Next() {
		var (
			r                          model.AuditRecord
			descCat, vendorCat, mainID sql.NullInt64
			source, confidence         string
		)
		if err := rows.Scan(
			&r.ID, &r.TransactionID, &r.AccountID, &r.VendorLabel, &r.Description,
			&r.DescriptionScore, &descCat,
			&r.VendorScore, &vendorCat, &mainID,
			&source, &confidence, &r.DecisionScore, &r.Justification,
			&r.Thresholds.DescriptionThreshold, &r.Thresholds.VendorThreshold, &r.Thresholds.DescriptionAdvantage,
			&r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit record: %w", err)
		}
		r.DescriptionCategoryID = intFromNull(descCat)
		r.VendorCategoryID = intFromNull(vendorCat)
		r.MainCategoryID = intFromNull(mainID)
		r.Source = model.DecisionSource(source)
		r.Confidence = model.ConfidenceLevel(confidence)
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit records: %w", err)
	}
	return records, nil
}

// RecordOverride appends a user override of a main category.
func (s *SQLiteStorage) RecordOverride(ctx context.Context, record *model.OverrideRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if record == nil {
		return fmt.Errorf("%w: override record", ErrNilParameter)
	}
	if err := validateString(record.TransactionID, "transactionID"); err != nil {
		return err
	}

	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO category_overrides (
			transaction_id, previous_category_id, new_category_id, user_id, reason, created_at
		) VALUES (?, ?, ?, ?, ?, ?)`,
		record.TransactionID,
		nullableInt(record.PreviousCategoryID),
		record.NewCategoryID,
		record.UserID,
		record.Reason,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record override: %w", err)
	}

	if record.ID, err = result.LastInsertId(); err != nil {
		return fmt.Errorf("failed to get override record ID: %w", err)
	}
	return nil
}

// GetOverrideRecords returns a transaction's overrides, oldest first.
func (s *SQLiteStorage) GetOverrideRecords(ctx context.Context, transactionID string) ([]model.OverrideRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(transactionID, "transactionID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, transaction_id, previous_category_id, new_category_id, user_id, reason, created_at
		FROM category_overrides
		WHERE transaction_id = ?
		ORDER BY id`, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query override records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.OverrideRecord
	for rows.Next() {
		var (
			r    model.OverrideRecord
			prev sql.NullInt64
		)
		if err := rows.Scan(&r.ID, &r.TransactionID, &prev, &r.NewCategoryID,
			&r.UserID, &r.Reason, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan override record: %w", err)
		}
		r.PreviousCategoryID = intFromNull(prev)
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating override records: %w", err)
	}
	return records, nil
}

// GetOverridePatterns pairs each override with the latest audited decision
// that produced the category it replaced and was recorded no later than the
// override, then groups the pairs by (system, user) category. Each override
// counts once however many sweeps re-audited the transaction, and
// MeanSystemScore averages the paired decision scores.
func (s *SQLiteStorage) GetOverridePatterns(ctx context.Context) ([]model.OverridePattern, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		WITH paired AS (
			SELECT
				o.id AS override_id,
				o.new_category_id,
				(
					SELECT a.id
					FROM categorization_audit a
					WHERE a.transaction_id = o.transaction_id
						AND a.main_category_id = o.previous_category_id
						AND a.source != 'user'
						AND a.created_at <= o.created_at
					ORDER BY a.id DESC
					LIMIT 1
				) AS audit_id
			FROM category_overrides o
			WHERE o.previous_category_id IS NOT NULL
		)
		SELECT
			a.main_category_id,
			COALESCE(sc.name, ''),
			p.new_category_id,
			COALESCE(uc.name, ''),
			COUNT(DISTINCT p.override_id) AS override_count,
			AVG(a.decision_score)
		FROM paired p
		JOIN categorization_audit a ON a.id = p.audit_id
		LEFT JOIN categories sc ON sc.id = a.main_category_id
		LEFT JOIN categories uc ON uc.id = p.new_category_id
		GROUP BY a.main_category_id, p.new_category_id
		ORDER BY override_count DESC, a.main_category_id, p.new_category_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query override patterns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var patterns []model.OverridePattern
	for rows.Next() {
		var p model.OverridePattern
		if err := rows.Scan(&p.SystemCategoryID, &p.SystemCategoryName,
			&p.UserCategoryID, &p.UserCategoryName,
			&p.OverrideCount, &p.MeanSystemScore); err != nil {
			return nil, fmt.Errorf("failed to scan override pattern: %w", err)
		}
		patterns = append(patterns, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating override patterns: %w", err)
	}
	return patterns, nil
}
