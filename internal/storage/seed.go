package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Hegrove/Serenity-Budget/internal/model"
)

// seedCategory describes one default budget category.
type seedCategory struct {
	name             string
	color            string
	allocated        float64
	includedInBudget bool
	isBuffer         bool
}

// defaultCategories is the fixed seed set used on first run and full reset.
// Épargne is the buffer; Autre (catch-all) and Revenus (income) are tracked
// for spend but excluded from the allocation sum invariant.
var defaultCategories = []seedCategory{
	{name: "Alimentation", allocated: 400, color: "#059669", includedInBudget: true},
	{name: "Transport", allocated: 200, color: "#0891b2", includedInBudget: true},
	{name: "Sorties", allocated: 150, color: "#7c3aed", includedInBudget: true},
	{name: "Shopping", allocated: 100, color: "#dc2626", includedInBudget: true},
	{name: "Santé", allocated: 80, color: "#f59e0b", includedInBudget: true},
	{name: "Épargne", allocated: 300, color: "#10b981", includedInBudget: true, isBuffer: true},
	{name: "Autre", allocated: 0, color: "#64748b"},
	{name: "Revenus", allocated: 0, color: "#0ea5e9"},
}

// seedDefaults inserts the default categories and settings when the
// respective tables are empty, then backfills the monthly budget.
func (s *SQLiteStore) seedDefaults(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.seedDefaultsTx(ctx, tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) seedDefaultsTx(ctx context.Context, tx *sql.Tx) error {
	var categoryCount int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM budget_categories`).Scan(&categoryCount); err != nil {
		return fmt.Errorf("failed to count categories: %w", err)
	}

	if categoryCount == 0 {
		for _, c := range defaultCategories {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO budget_categories
					(name, allocated, spent, color, is_active, included_in_budget, is_locked, weight, is_buffer)
				VALUES (?, ?, 0, ?, 1, ?, 0, 1, ?)`,
				c.name, c.allocated, c.color, c.includedInBudget, c.isBuffer,
			); err != nil {
				return fmt.Errorf("failed to seed category %s: %w", c.name, err)
			}
		}
		slog.Info("seeded default categories", "count", len(defaultCategories))
	}

	var settingsCount int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM user_settings`).Scan(&settingsCount); err != nil {
		return fmt.Errorf("failed to count settings: %w", err)
	}

	if settingsCount == 0 {
		defaults := model.DefaultSettings()
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO user_settings (id, budget_method, currency, notifications, biometric_enabled, monthly_budget)
			VALUES (1, ?, ?, ?, ?, 0)`,
			defaults.BudgetMethod, defaults.Currency, defaults.Notifications, defaults.BiometricEnabled,
		); err != nil {
			return fmt.Errorf("failed to seed settings: %w", err)
		}
	}

	// An unset or zero monthly budget defaults to the sum of in-budget
	// allocations at schema-creation time.
	if _, err := tx.ExecContext(ctx, `
		UPDATE user_settings
		SET monthly_budget = COALESCE((
			SELECT SUM(allocated) FROM budget_categories
			WHERE is_active = 1 AND included_in_budget = 1
		), 0)
		WHERE id = 1 AND monthly_budget = 0`); err != nil {
		return fmt.Errorf("failed to backfill monthly budget: %w", err)
	}

	return nil
}
