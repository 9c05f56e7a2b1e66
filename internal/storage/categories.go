package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/spice-sort/internal/common"
	"github.com/Veraticus/spice-sort/internal/model"
)

const categoryColumns = `id, name, parent_id, keywords, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCategory(row rowScanner) (*model.Category, error) {
	var (
		cat      model.Category
		parentID sql.NullInt64
		keywords string
	)
	if err := row.Scan(&cat.ID, &cat.Name, &parentID, &keywords, &cat.CreatedAt, &cat.UpdatedAt); err != nil {
		return nil, err
	}
	cat.ParentID = intFromNull(parentID)
	if keywords != "" {
		if err := json.Unmarshal([]byte(keywords), &cat.Keywords); err != nil {
			return nil, fmt.Errorf("failed to decode keywords for category %d: %w", cat.ID, err)
		}
	}
	return &cat, nil
}

// cleanKeywords trims keywords and drops blanks and case-insensitive duplicates.
func cleanKeywords(keywords []string) []string {
	cleaned := make([]string, 0, len(keywords))
	seen := make(map[string]bool, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		key := strings.ToLower(kw)
		if kw == "" || seen[key] {
			continue
		}
		seen[key] = true
		cleaned = append(cleaned, kw)
	}
	return cleaned
}

func encodeKeywords(keywords []string) (string, error) {
	data, err := json.Marshal(cleanKeywords(keywords))
	if err != nil {
		return "", fmt.Errorf("failed to encode keywords: %w", err)
	}
	return string(data), nil
}

// GetCategories returns all categories ordered by name.
func (s *SQLiteStorage) GetCategories(ctx context.Context) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT ` + categoryColumns + ` FROM categories ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []model.Category
	for rows.Next() {
		cat, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, *cat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	slog.Debug("retrieved categories", "count", len(categories))
	return categories, nil
}

// GetCategoryByID returns a category by its ID.
func (s *SQLiteStorage) GetCategoryByID(ctx context.Context, id int) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return getCategoryByID(ctx, s.db, id)
}

func getCategoryByID(ctx context.Context, q querier, id int) (*model.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE id = ?`

	cat, err := scanCategory(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", common.ErrCategoryNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query category: %w", err)
	}
	return cat, nil
}

// GetCategoryByName returns a category by its exact name.
// It returns nil without an error when no category has that name.
func (s *SQLiteStorage) GetCategoryByName(ctx context.Context, name string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}

	query := `SELECT ` + categoryColumns + ` FROM categories WHERE name = ?`

	cat, err := scanCategory(s.db.QueryRowContext(ctx, query, strings.TrimSpace(name)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query category: %w", err)
	}
	return cat, nil
}

// GetUnknownCategory returns the fallback category seeded by the first migration.
func (s *SQLiteStorage) GetUnknownCategory(ctx context.Context) (*model.Category, error) {
	cat, err := s.GetCategoryByName(ctx, model.UnknownCategoryName)
	if err != nil {
		return nil, err
	}
	if cat == nil {
		return nil, fmt.Errorf("%w: %s", common.ErrCategoryNotFound, model.UnknownCategoryName)
	}
	return cat, nil
}

// CreateCategory creates a new category.
func (s *SQLiteStorage) CreateCategory(ctx context.Context, input model.CategoryInput) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateCategoryInput(input); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	keywords, err := encodeKeywords(input.Keywords)
	if err != nil {
		return nil, err
	}

	var id int64
	now := time.Now().UTC()
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if err := checkNameAvailable(ctx, tx, name, 0); err != nil {
			return err
		}
		if input.ParentID != nil {
			if _, err := getCategoryByID(ctx, tx, *input.ParentID); err != nil {
				return fmt.Errorf("parent category: %w", err)
			}
		}

		result, err := tx.ExecContext(ctx, `
			INSERT INTO categories (name, parent_id, keywords, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)`,
			name, nullableInt(input.ParentID), keywords, now, now)
		if err != nil {
			return fmt.Errorf("failed to create category: %w", err)
		}

		id, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get category ID: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("created new category", "name", name, "id", id)
	return s.GetCategoryByID(ctx, int(id))
}

// UpdateCategory replaces a category's name, parent, and keywords.
// The Unknown category's keywords may change but it cannot be renamed.
func (s *SQLiteStorage) UpdateCategory(ctx context.Context, id int, input model.CategoryInput) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateCategoryInput(input); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	keywords, err := encodeKeywords(input.Keywords)
	if err != nil {
		return nil, err
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		existing, err := getCategoryByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if existing.IsUnknown() && name != existing.Name {
			return fmt.Errorf("%w: cannot rename %s", common.ErrProtectedCategory, existing.Name)
		}
		if err := checkNameAvailable(ctx, tx, name, id); err != nil {
			return err
		}
		if input.ParentID != nil {
			if *input.ParentID == id {
				return fmt.Errorf("%w: category cannot be its own parent", ErrInvalidCategory)
			}
			if _, err := getCategoryByID(ctx, tx, *input.ParentID); err != nil {
				return fmt.Errorf("parent category: %w", err)
			}
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE categories
			SET name = ?, parent_id = ?, keywords = ?, updated_at = ?
			WHERE id = ?`,
			name, nullableInt(input.ParentID), keywords, time.Now().UTC(), id)
		if err != nil {
			return fmt.Errorf("failed to update category: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("updated category", "id", id, "name", name)
	return s.GetCategoryByID(ctx, id)
}

// DeleteCategory removes a category. Its links cascade away and transactions
// that used it as main lose their main pointer.
func (s *SQLiteStorage) DeleteCategory(ctx context.Context, id int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		existing, err := getCategoryByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if existing.IsUnknown() {
			return fmt.Errorf("%w: cannot delete %s", common.ErrProtectedCategory, existing.Name)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete category: %w", err)
		}

		slog.Info("deleted category", "id", id, "name", existing.Name)
		return nil
	})
}

func checkNameAvailable(ctx context.Context, q querier, name string, selfID int) error {
	var existingID int
	err := q.QueryRowContext(ctx, `SELECT id FROM categories WHERE name = ?`, name).Scan(&existingID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to check existing category: %w", err)
	}
	if existingID != selfID {
		return fmt.Errorf("%w: %s", common.ErrDuplicateCategory, name)
	}
	return nil
}
