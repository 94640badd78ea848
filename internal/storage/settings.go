package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Hegrove/Serenity-Budget/internal/model"
)

// GetMonthlyBudget returns the target for the allocation sum invariant.
func (s *SQLiteStore) GetMonthlyBudget(ctx context.Context) (float64, error) {
	if err := s.ensureReady(ctx); err != nil {
		return 0, err
	}

	var budget float64
	err := s.db.QueryRowContext(ctx, `SELECT monthly_budget FROM user_settings WHERE id = 1`).Scan(&budget)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read monthly budget: %w", err)
	}
	return budget, nil
}

// SetMonthlyBudget updates the target. Changing the target does not itself
// redistribute allocations; the next category edit reconciles against it.
func (s *SQLiteStore) SetMonthlyBudget(ctx context.Context, v float64) error {
	if err := s.ensureReady(ctx); err != nil {
		return err
	}
	if err := validateNonNegative(v, "monthlyBudget"); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO user_settings (id, monthly_budget) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET monthly_budget = excluded.monthly_budget`, v); err != nil {
		return fmt.Errorf("failed to set monthly budget: %w", err)
	}

	slog.Info("set monthly budget", "value", v)
	return nil
}

// GetSettings returns the singleton settings row.
func (s *SQLiteStore) GetSettings(ctx context.Context) (*model.Settings, error) {
	if err := s.ensureReady(ctx); err != nil {
		return nil, err
	}

	var settings model.Settings
	err := s.db.QueryRowContext(ctx, `
		SELECT budget_method, currency, notifications, biometric_enabled, monthly_budget
		FROM user_settings
		WHERE id = 1`).Scan(
		&settings.BudgetMethod, &settings.Currency,
		&settings.Notifications, &settings.BiometricEnabled, &settings.MonthlyBudget,
	)
	if errors.Is(err, sql.ErrNoRows) {
		defaults := model.DefaultSettings()
		return &defaults, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}
	return &settings, nil
}

// UpdateSettings writes the full passthrough settings row. The core only
// interprets MonthlyBudget; the rest belongs to the UI collaborators.
func (s *SQLiteStore) UpdateSettings(ctx context.Context, settings model.Settings) error {
	if err := s.ensureReady(ctx); err != nil {
		return err
	}
	if err := validateNonNegative(settings.MonthlyBudget, "monthlyBudget"); err != nil {
		return err
	}
	if err := validateString(settings.Currency, "currency"); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO user_settings (id, budget_method, currency, notifications, biometric_enabled, monthly_budget)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			budget_method = excluded.budget_method,
			currency = excluded.currency,
			notifications = excluded.notifications,
			biometric_enabled = excluded.biometric_enabled,
			monthly_budget = excluded.monthly_budget`,
		settings.BudgetMethod, settings.Currency,
		settings.Notifications, settings.BiometricEnabled, settings.MonthlyBudget,
	); err != nil {
		return fmt.Errorf("failed to update settings: %w", err)
	}

	return nil
}
