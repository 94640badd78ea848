package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
)

// ExpectedSchemaVersion is the latest schema version the application
// expects. A database that cannot be migrated to this version is unusable.
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
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS transactions (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					title TEXT NOT NULL,
					amount REAL NOT NULL,
					category TEXT NOT NULL,
					date DATETIME NOT NULL,
					description TEXT,
					is_shared INTEGER DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions(date)`,
				`CREATE INDEX IF NOT EXISTS idx_transactions_category ON transactions(category)`,

				`CREATE TABLE IF NOT EXISTS budget_categories (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT NOT NULL UNIQUE,
					allocated REAL NOT NULL,
					spent REAL DEFAULT 0,
					color TEXT NOT NULL,
					is_active INTEGER DEFAULT 1
				)`,

				`CREATE TABLE IF NOT EXISTS savings_goals (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT NOT NULL,
					target_amount REAL NOT NULL,
					current_amount REAL DEFAULT 0,
					target_date DATETIME NOT NULL,
					is_active INTEGER DEFAULT 1,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,

				`CREATE TABLE IF NOT EXISTS user_settings (
					id INTEGER PRIMARY KEY,
					budget_method TEXT DEFAULT 'thirds',
					currency TEXT DEFAULT 'EUR',
					notifications INTEGER DEFAULT 1,
					biometric_enabled INTEGER DEFAULT 0
				)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Add budget engine fields",
		Up: func(tx *sql.Tx) error {
			columns := []struct {
				table  string
				column string
				ddl    string
			}{
				{"budget_categories", "included_in_budget", "INTEGER NOT NULL DEFAULT 1"},
				{"budget_categories", "is_locked", "INTEGER NOT NULL DEFAULT 0"},
				{"budget_categories", "weight", "REAL NOT NULL DEFAULT 1"},
				{"budget_categories", "is_buffer", "INTEGER NOT NULL DEFAULT 0"},
				{"user_settings", "monthly_budget", "REAL NOT NULL DEFAULT 0"},
			}

			for _, c := range columns {
				if err := addColumnIfMissing(tx, c.table, c.column, c.ddl); err != nil {
					return err
				}
			}

			// Existing installs predate the buffer and inclusion flags;
			// apply the seed conventions to the default category names.
			if _, err := tx.Exec(`UPDATE budget_categories SET is_buffer = 1 WHERE name = 'Épargne'`); err != nil {
				return fmt.Errorf("failed to mark buffer category: %w", err)
			}
			if _, err := tx.Exec(`UPDATE budget_categories SET included_in_budget = 0 WHERE name IN ('Autre', 'Revenus')`); err != nil {
				return fmt.Errorf("failed to exclude categories from budget: %w", err)
			}

			// Backfill: an unset monthly budget defaults to the sum of
			// in-budget allocations.
			if _, err := tx.Exec(`
				UPDATE user_settings
				SET monthly_budget = COALESCE((
					SELECT SUM(allocated) FROM budget_categories
					WHERE is_active = 1 AND included_in_budget = 1
				), 0)
				WHERE id = 1 AND monthly_budget = 0`); err != nil {
				return fmt.Errorf("failed to backfill monthly budget: %w", err)
			}

			return nil
		},
	},
	{
		Version:     3,
		Description: "Normalize negative spent totals",
		Up: func(tx *sql.Tx) error {
			var negativeCount int
			if err := tx.QueryRow(`SELECT COUNT(*) FROM budget_categories WHERE spent < 0`).Scan(&negativeCount); err != nil {
				return fmt.Errorf("failed to count negative spent totals: %w", err)
			}

			if negativeCount > 0 {
				slog.Info("clamping negative spent totals", "count", negativeCount)
				if _, err := tx.Exec(`UPDATE budget_categories SET spent = 0 WHERE spent < 0`); err != nil {
					return fmt.Errorf("failed to clamp spent totals: %w", err)
				}
			}

			if _, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_budget_categories_active ON budget_categories(is_active)`); err != nil {
				return fmt.Errorf("failed to create index: %w", err)
			}
			return nil
		},
	},
}

// addColumnIfMissing applies an additive column migration idempotently:
// adding a column that already exists must not fail and must not touch
// existing rows.
func addColumnIfMissing(tx *sql.Tx, table, column, ddl string) error {
	rows, err := tx.Query(fmt.Sprintf(`PRAGMA table_info(%s)`, table))
	if err != nil {
		return fmt.Errorf("failed to inspect table %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	exists := false
	for rows.Next() {
		var (
			cid        int
			name, typ  string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &defaultVal, &pk); err != nil {
			return fmt.Errorf("failed to scan table info: %w", err)
		}
		if name == column {
			exists = true
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating table info: %w", err)
	}
	if exists {
		return nil
	}

	_, err = tx.Exec(fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s %s`, table, column, ddl))
	if err != nil && strings.Contains(err.Error(), "duplicate column name") {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to add column %s.%s: %w", table, column, err)
	}
	return nil
}

// Migrate applies all pending database migrations.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion); err != nil {
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

		slog.Info("applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion); err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}
	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
