package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Defaults applied when a category is provisioned automatically because a
// transaction referenced a name that does not exist yet.
const (
	defaultCategoryAllocation = 200
	defaultCategoryColor      = "#64748b"
)

// conventionallyExcluded lists lowercase names that denote income or
// catch-all buckets; categories provisioned under these names stay out of
// the allocation sum invariant.
var conventionallyExcluded = map[string]bool{
	"revenus":  true,
	"revenu":   true,
	"income":   true,
	"salaire":  true,
	"salaires": true,
	"autre":    true,
	"autres":   true,
	"other":    true,
	"divers":   true,
}

func isConventionallyExcluded(name string) bool {
	return conventionallyExcluded[strings.ToLower(strings.TrimSpace(name))]
}

// applySpendTx adjusts a category's spent total by delta: positive adds
// spend, negative releases it. The category is provisioned first when it
// does not exist, so the update can never silently hit a missing row.
// Spent is clamped at zero after every mutation.
func (s *SQLiteStore) applySpendTx(ctx context.Context, tx *sql.Tx, name string, delta float64) error {
	exists, err := activeCategoryExistsTx(ctx, tx, name)
	if err != nil {
		return err
	}

	if !exists {
		return s.provisionCategoryTx(ctx, tx, name, delta)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE budget_categories SET spent = spent + ?
		WHERE name = ? AND is_active = 1`, delta, name); err != nil {
		return fmt.Errorf("failed to update spent for %s: %w", name, err)
	}

	// Defensive clamp: compensating updates can arrive out of order.
	if _, err := tx.ExecContext(ctx, `
		UPDATE budget_categories SET spent = MAX(0, spent)
		WHERE name = ? AND is_active = 1`, name); err != nil {
		return fmt.Errorf("failed to clamp spent for %s: %w", name, err)
	}

	return nil
}

// provisionCategoryTx creates a category with the default allocation and the
// inclusion flag chosen by naming convention. Provisioning never triggers
// rebalancing; only user-made allocation changes do. A negative delta on a
// reactivated row releases spend it accumulated before deactivation; on a
// brand-new row there is nothing to release and spent starts at zero.
func (s *SQLiteStore) provisionCategoryTx(ctx context.Context, tx *sql.Tx, name string, delta float64) error {
	included := !isConventionallyExcluded(name)

	// A soft-deleted category with this name comes back instead of
	// colliding with the unique name constraint.
	var inactiveID int64
	err := tx.QueryRowContext(ctx, `
		SELECT id FROM budget_categories
		WHERE name = ? AND is_active = 0`, name).Scan(&inactiveID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to look up category %s: %w", name, err)
	}

	if inactiveID != 0 {
		if _, err := tx.ExecContext(ctx, `
			UPDATE budget_categories SET is_active = 1, spent = MAX(0, spent + ?)
			WHERE id = ?`, delta, inactiveID); err != nil {
			return fmt.Errorf("failed to reactivate category %s: %w", name, err)
		}
		slog.Info("reactivated category", "name", name)
		return nil
	}

	initialSpend := delta
	if initialSpend < 0 {
		initialSpend = 0
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO budget_categories
			(name, allocated, spent, color, is_active, included_in_budget, is_locked, weight, is_buffer)
		VALUES (?, ?, ?, ?, 1, ?, 0, 1, 0)`,
		name, float64(defaultCategoryAllocation), initialSpend, defaultCategoryColor, included,
	); err != nil {
		return fmt.Errorf("failed to auto-provision category %s: %w", name, err)
	}

	slog.Info("auto-provisioned category", "name", name, "included_in_budget", included)
	return nil
}

// ensureCategoryTx guarantees an active category with this exact name
// exists. Idempotent.
func (s *SQLiteStore) ensureCategoryTx(ctx context.Context, tx *sql.Tx, name string) error {
	exists, err := activeCategoryExistsTx(ctx, tx, name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return s.provisionCategoryTx(ctx, tx, name, 0)
}

func activeCategoryExistsTx(ctx context.Context, tx *sql.Tx, name string) (bool, error) {
	var count int
	if err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM budget_categories
		WHERE name = ? AND is_active = 1`, name).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to look up category %s: %w", name, err)
	}
	return count > 0, nil
}

// RecalculateBudgetSpending resets every category's spent total and
// replays all expenses from the ledger through the same ensure-and-add path
// as incremental tracking. The two must agree for any transaction set.
func (s *SQLiteStore) RecalculateBudgetSpending(ctx context.Context) error {
	if err := s.ensureReady(ctx); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Inactive rows are reset too: a replayed expense can reactivate a
	// soft-deleted category, which must then rebuild its total from zero.
	if _, err := tx.ExecContext(ctx, `UPDATE budget_categories SET spent = 0`); err != nil {
		return fmt.Errorf("failed to reset spent totals: %w", err)
	}

	rows, err := tx.QueryContext(ctx, `SELECT category, amount FROM transactions WHERE amount < 0`)
	if err != nil {
		return fmt.Errorf("failed to query expenses: %w", err)
	}

	type expense struct {
		category string
		amount   float64
	}
	var expenses []expense
	for rows.Next() {
		var e expense
		if err := rows.Scan(&e.category, &e.amount); err != nil {
			_ = rows.Close()
			return fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return fmt.Errorf("error iterating expenses: %w", err)
	}
	_ = rows.Close()

	for _, e := range expenses {
		if err := s.applySpendTx(ctx, tx, e.category, -e.amount); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit recalculation: %w", err)
	}

	slog.Debug("recalculated budget spending", "expenses", len(expenses))
	return nil
}
