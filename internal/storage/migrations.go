package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Veraticus/spice-sort/internal/model"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Categories and transactions",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS categories (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT UNIQUE NOT NULL,
					parent_id INTEGER REFERENCES categories(id) ON DELETE SET NULL,
					keywords TEXT NOT NULL DEFAULT '[]',
					created_at DATETIME NOT NULL,
					updated_at DATETIME NOT NULL
				)`,
				`CREATE TABLE IF NOT EXISTS transactions (
					id TEXT PRIMARY KEY,
					account_id TEXT NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					amount TEXT NOT NULL DEFAULT '0',
					date DATETIME NOT NULL,
					status TEXT NOT NULL DEFAULT '',
					enrichment TEXT,
					main_category_id INTEGER REFERENCES categories(id) ON DELETE SET NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_transactions_date ON transactions(date)`,
				`CREATE INDEX idx_transactions_main_category ON transactions(main_category_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query '%s': %w", query, err)
				}
			}

			if _, err := tx.Exec(
				`INSERT INTO categories (name, keywords, created_at, updated_at)
				 VALUES (?, '[]', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
				model.UnknownCategoryName,
			); err != nil {
				return fmt.Errorf("failed to seed %s category: %w", model.UnknownCategoryName, err)
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Add transaction category links",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS category_links (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					transaction_id TEXT NOT NULL REFERENCES transactions(id) ON DELETE CASCADE,
					category_id INTEGER NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
					is_manual BOOLEAN NOT NULL DEFAULT 0,
					is_main BOOLEAN NOT NULL DEFAULT 0,
					created_at DATETIME NOT NULL,
					UNIQUE (transaction_id, category_id)
				)`,
				`CREATE INDEX idx_category_links_category ON category_links(category_id)`,
				// At most one main link per transaction.
				`CREATE UNIQUE INDEX idx_category_links_one_main
					ON category_links(transaction_id) WHERE is_main = 1`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query '%s': %w", query, err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Add categorization audit and override log",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS categorization_audit (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					transaction_id TEXT NOT NULL,
					account_id TEXT NOT NULL DEFAULT '',
					vendor_label TEXT NOT NULL DEFAULT '',
					description TEXT NOT NULL DEFAULT '',
					description_score INTEGER NOT NULL DEFAULT 0,
					description_category_id INTEGER,
					vendor_score INTEGER NOT NULL DEFAULT 0,
					vendor_category_id INTEGER,
					main_category_id INTEGER,
					source TEXT NOT NULL,
					confidence TEXT NOT NULL,
					decision_score INTEGER NOT NULL DEFAULT 0,
					justification TEXT NOT NULL DEFAULT '',
					description_threshold INTEGER NOT NULL,
					vendor_threshold INTEGER NOT NULL,
					description_advantage REAL NOT NULL,
					created_at DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_categorization_audit_transaction ON categorization_audit(transaction_id)`,
				`CREATE TABLE IF NOT EXISTS category_overrides (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					transaction_id TEXT NOT NULL,
					previous_category_id INTEGER,
					new_category_id INTEGER NOT NULL,
					user_id TEXT NOT NULL DEFAULT '',
					reason TEXT NOT NULL DEFAULT '',
					created_at DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_category_overrides_transaction ON category_overrides(transaction_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query '%s': %w", query, err)
				}
			}
			return nil
		},
	},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}

// SchemaVersion returns the schema version the database is at.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}
