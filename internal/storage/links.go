package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/spice-sort/internal/common"
	"github.com/Veraticus/spice-sort/internal/model"
)

// Attach links a category to a transaction.
func (s *SQLiteStorage) Attach(ctx context.Context, transactionID string, categoryID int, isManual, isMain bool) (*model.CategoryLink, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(transactionID, "transactionID"); err != nil {
		return nil, err
	}

	link := &model.CategoryLink{
		TransactionID: transactionID,
		CategoryID:    categoryID,
		IsManual:      isManual,
		IsMain:        isMain,
		CreatedAt:     time.Now().UTC(),
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := checkLinkTargets(ctx, tx, transactionID, categoryID); err != nil {
			return err
		}

		exists, err := linkExists(ctx, tx, transactionID, categoryID)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: transaction %s category %d", common.ErrDuplicateLink, transactionID, categoryID)
		}

		if isMain {
			if err := clearMain(ctx, tx, transactionID); err != nil {
				return err
			}
		}

		result, err := tx.ExecContext(ctx, `
			INSERT INTO category_links (transaction_id, category_id, is_manual, is_main, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			transactionID, categoryID, isManual, isMain, link.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert category link: %w", err)
		}
		if link.ID, err = result.LastInsertId(); err != nil {
			return fmt.Errorf("failed to get link ID: %w", err)
		}

		return syncMainPointer(ctx, tx, transactionID)
	})
	if err != nil {
		return nil, err
	}

	slog.Debug("attached category",
		"transaction_id", transactionID,
		"category_id", categoryID,
		"manual", isManual,
		"main", isMain)
	return link, nil
}

// SetAsMain promotes an existing link to main, demoting any other main link
// in the same database transaction.
func (s *SQLiteStorage) SetAsMain(ctx context.Context, transactionID string, categoryID int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(transactionID, "transactionID"); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		exists, err := linkExists(ctx, tx, transactionID, categoryID)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: transaction %s category %d", common.ErrLinkNotFound, transactionID, categoryID)
		}

		if err := promote(ctx, tx, transactionID, categoryID); err != nil {
			return err
		}
		return syncMainPointer(ctx, tx, transactionID)
	})
}

// ReplaceAutomatic swaps a transaction's automatic links for categoryIDs.
// Manual links are never removed, and a manual main link keeps its place.
// Otherwise forceMain becomes main when it is among categoryIDs, falling back
// to the first ID.
func (s *SQLiteStorage) ReplaceAutomatic(ctx context.Context, transactionID string, categoryIDs []int, forceMain *int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(transactionID, "transactionID"); err != nil {
		return err
	}

	ids := dedupeIDs(categoryIDs)

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getTransactionByID(ctx, tx, transactionID); err != nil {
			return err
		}
		for _, id := range ids {
			if _, err := getCategoryByID(ctx, tx, id); err != nil {
				return err
			}
		}

		existing, err := getLinks(ctx, tx, transactionID)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM category_links WHERE transaction_id = ? AND is_manual = 0`,
			transactionID); err != nil {
			return fmt.Errorf("failed to remove automatic links: %w", err)
		}

		manual := make(map[int]bool)
		manualMain := false
		for _, link := range existing {
			if link.IsManual {
				manual[link.CategoryID] = true
				manualMain = manualMain || link.IsMain
			}
		}

		now := time.Now().UTC()
		for _, id := range ids {
			if manual[id] {
				continue
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO category_links (transaction_id, category_id, is_manual, is_main, created_at)
				VALUES (?, ?, 0, 0, ?)`,
				transactionID, id, now); err != nil {
				return fmt.Errorf("failed to insert category link: %w", err)
			}
		}

		if !manualMain && len(ids) > 0 {
			target := ids[0]
			if forceMain != nil && containsID(ids, *forceMain) {
				target = *forceMain
			}
			if err := promote(ctx, tx, transactionID, target); err != nil {
				return err
			}
		}

		return syncMainPointer(ctx, tx, transactionID)
	})
}

// AssignManual records a human choice: the category becomes a manual main
// link, created if needed. It returns the previous main category.
func (s *SQLiteStorage) AssignManual(ctx context.Context, transactionID string, categoryID int) (*int, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(transactionID, "transactionID"); err != nil {
		return nil, err
	}

	var previous *int
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := checkLinkTargets(ctx, tx, transactionID, categoryID); err != nil {
			return err
		}

		var prev sql.NullInt64
		err := tx.QueryRowContext(ctx,
			`SELECT category_id FROM category_links WHERE transaction_id = ? AND is_main = 1`,
			transactionID).Scan(&prev)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to read main link: %w", err)
		}
		previous = intFromNull(prev)

		if err := clearMain(ctx, tx, transactionID); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO category_links (transaction_id, category_id, is_manual, is_main, created_at)
			VALUES (?, ?, 1, 1, ?)
			ON CONFLICT(transaction_id, category_id) DO UPDATE SET is_manual = 1, is_main = 1`,
			transactionID, categoryID, time.Now().UTC()); err != nil {
			return fmt.Errorf("failed to assign category: %w", err)
		}

		return syncMainPointer(ctx, tx, transactionID)
	})
	if err != nil {
		return nil, err
	}
	return previous, nil
}

// GetLinks returns a transaction's links, main first.
func (s *SQLiteStorage) GetLinks(ctx context.Context, transactionID string) (model.CategoryLinks, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(transactionID, "transactionID"); err != nil {
		return nil, err
	}
	return getLinks(ctx, s.db, transactionID)
}

func getLinks(ctx context.Context, q querier, transactionID string) (model.CategoryLinks, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, transaction_id, category_id, is_manual, is_main, created_at
		FROM category_links
		WHERE transaction_id = ?
		ORDER BY is_main DESC, id`, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query category links: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var links model.CategoryLinks
	for rows.Next() {
		var link model.CategoryLink
		if err := rows.Scan(&link.ID, &link.TransactionID, &link.CategoryID,
			&link.IsManual, &link.IsMain, &link.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category link: %w", err)
		}
		links = append(links, link)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating category links: %w", err)
	}
	return links, nil
}

func checkLinkTargets(ctx context.Context, q querier, transactionID string, categoryID int) error {
	if _, err := getTransactionByID(ctx, q, transactionID); err != nil {
		return err
	}
	if _, err := getCategoryByID(ctx, q, categoryID); err != nil {
		return err
	}
	return nil
}

func linkExists(ctx context.Context, q querier, transactionID string, categoryID int) (bool, error) {
	var count int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM category_links WHERE transaction_id = ? AND category_id = ?`,
		transactionID, categoryID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check category link: %w", err)
	}
	return count > 0, nil
}

func clearMain(ctx context.Context, q querier, transactionID string) error {
	if _, err := q.ExecContext(ctx,
		`UPDATE category_links SET is_main = 0 WHERE transaction_id = ? AND is_main = 1`,
		transactionID); err != nil {
		return fmt.Errorf("failed to clear main link: %w", err)
	}
	return nil
}

// promote clears the current main link before setting the new one so the
// partial unique index on main links is never violated.
func promote(ctx context.Context, q querier, transactionID string, categoryID int) error {
	if err := clearMain(ctx, q, transactionID); err != nil {
		return err
	}
	if _, err := q.ExecContext(ctx,
		`UPDATE category_links SET is_main = 1 WHERE transaction_id = ? AND category_id = ?`,
		transactionID, categoryID); err != nil {
		return fmt.Errorf("failed to set main link: %w", err)
	}
	return nil
}

// syncMainPointer copies the main link's category onto the transaction row,
// clearing it when no main link remains.
func syncMainPointer(ctx context.Context, q querier, transactionID string) error {
	if _, err := q.ExecContext(ctx, `
		UPDATE transactions
		SET main_category_id = (
			SELECT category_id FROM category_links
			WHERE transaction_id = ? AND is_main = 1
		)
		WHERE id = ?`, transactionID, transactionID); err != nil {
		return fmt.Errorf("failed to update main category: %w", err)
	}
	return nil
}

func dedupeIDs(ids []int) []int {
	out := make([]int, 0, len(ids))
	seen := make(map[int]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func containsID(ids []int, id int) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
