package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/Hegrove/Serenity-Budget/internal/common"
	"github.com/Hegrove/Serenity-Budget/internal/model"
)

// GetBudgetCategories returns all active categories.
func (s *SQLiteStore) GetBudgetCategories(ctx context.Context) ([]model.BudgetCategory, error) {
	if err := s.ensureReady(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, allocated, spent, color, is_active, included_in_budget, is_locked, weight, is_buffer
		FROM budget_categories
		WHERE is_active = 1
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []model.BudgetCategory
	for rows.Next() {
		var cat model.BudgetCategory
		if err := rows.Scan(
			&cat.ID, &cat.Name, &cat.Allocated, &cat.Spent, &cat.Color,
			&cat.IsActive, &cat.IncludedInBudget, &cat.IsLocked, &cat.Weight, &cat.IsBuffer,
		); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, cat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	slog.Debug("retrieved categories", "count", len(categories))
	return categories, nil
}

// AddBudgetCategory creates a category and returns its id. Creating an
// active in-budget category with a positive allocation pulls that amount
// from the rest of the in-budget set in the same transactional scope.
func (s *SQLiteStore) AddBudgetCategory(ctx context.Context, cat model.BudgetCategory) (int64, error) {
	if err := s.ensureReady(ctx); err != nil {
		return 0, err
	}
	if err := validateCategory(&cat); err != nil {
		return 0, err
	}
	if cat.Weight == 0 {
		cat.Weight = 1
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	taken, err := activeCategoryExistsTx(ctx, tx, cat.Name)
	if err != nil {
		return 0, err
	}
	if taken {
		return 0, fmt.Errorf("%w: category name %q", common.ErrDuplicateEntry, cat.Name)
	}

	// A soft-deleted category with this name is reactivated under the new
	// values instead of violating the unique name constraint. Its spent
	// total is preserved: the old transactions are still in the ledger,
	// and the row must keep agreeing with them.
	var inactiveID int64
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM budget_categories
		WHERE name = ? AND is_active = 0`, cat.Name).Scan(&inactiveID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to look up category %s: %w", cat.Name, err)
	}

	var id int64
	if inactiveID != 0 {
		if _, err := tx.ExecContext(ctx, `
			UPDATE budget_categories
			SET allocated = ?, color = ?, is_active = ?,
				included_in_budget = ?, is_locked = ?, weight = ?, is_buffer = ?
			WHERE id = ?`,
			cat.Allocated, cat.Color, cat.IsActive,
			cat.IncludedInBudget, cat.IsLocked, cat.Weight, cat.IsBuffer, inactiveID,
		); err != nil {
			return 0, fmt.Errorf("failed to reactivate category %s: %w", cat.Name, err)
		}
		id = inactiveID
	} else {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO budget_categories
				(name, allocated, spent, color, is_active, included_in_budget, is_locked, weight, is_buffer)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			cat.Name, cat.Allocated, cat.Spent, cat.Color,
			cat.IsActive, cat.IncludedInBudget, cat.IsLocked, cat.Weight, cat.IsBuffer,
		)
		if err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint") {
				return 0, fmt.Errorf("%w: category name %q", common.ErrDuplicateEntry, cat.Name)
			}
			return 0, fmt.Errorf("failed to insert category: %w", err)
		}
		if id, err = result.LastInsertId(); err != nil {
			return 0, fmt.Errorf("failed to get category id: %w", err)
		}
	}

	delta := roundCents(cat.EffectiveAllocation())
	if delta > centTolerance {
		if err := s.rebalanceTx(ctx, tx, id, delta); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit category insert: %w", err)
	}

	slog.Info("created category", "name", cat.Name, "id", id, "allocated", cat.Allocated)
	return id, nil
}

// UpdateBudgetCategory applies a partial update. When the effective
// allocation changes (a new allocated value, or the category entering or
// leaving the budget), the delta is rebalanced across the remaining
// in-budget set before the transaction commits.
func (s *SQLiteStore) UpdateBudgetCategory(ctx context.Context, id int64, patch model.BudgetCategoryPatch) error {
	if err := s.ensureReady(ctx); err != nil {
		return err
	}
	if err := validateCategoryPatch(&patch); err != nil {
		return err
	}
	if patch.IsEmpty() {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	prior, err := s.getCategoryByIDTx(ctx, tx, id)
	if err != nil {
		return err
	}

	if patch.Name != nil && *patch.Name != prior.Name {
		var count int
		if err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM budget_categories
			WHERE name = ? AND is_active = 1 AND id != ?`, *patch.Name, id).Scan(&count); err != nil {
			return fmt.Errorf("failed to check category name: %w", err)
		}
		if count > 0 {
			return fmt.Errorf("%w: category name %q", common.ErrDuplicateEntry, *patch.Name)
		}
	}

	var fields []string
	var args []any
	if patch.Name != nil {
		fields = append(fields, "name = ?")
		args = append(args, *patch.Name)
	}
	if patch.Allocated != nil {
		fields = append(fields, "allocated = ?")
		args = append(args, *patch.Allocated)
	}
	if patch.Spent != nil {
		fields = append(fields, "spent = ?")
		args = append(args, *patch.Spent)
	}
	if patch.Color != nil {
		fields = append(fields, "color = ?")
		args = append(args, *patch.Color)
	}
	if patch.IsActive != nil {
		fields = append(fields, "is_active = ?")
		args = append(args, *patch.IsActive)
	}
	if patch.IncludedInBudget != nil {
		fields = append(fields, "included_in_budget = ?")
		args = append(args, *patch.IncludedInBudget)
	}
	if patch.IsLocked != nil {
		fields = append(fields, "is_locked = ?")
		args = append(args, *patch.IsLocked)
	}
	if patch.Weight != nil {
		fields = append(fields, "weight = ?")
		args = append(args, *patch.Weight)
	}
	if patch.IsBuffer != nil {
		fields = append(fields, "is_buffer = ?")
		args = append(args, *patch.IsBuffer)
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE budget_categories SET %s WHERE id = ?`, strings.Join(fields, ", "))
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return fmt.Errorf("%w: category name %q", common.ErrDuplicateEntry, *patch.Name)
		}
		return fmt.Errorf("failed to update category %d: %w", id, err)
	}

	next := patch.ApplyTo(*prior)
	delta := roundCents(next.EffectiveAllocation() - prior.EffectiveAllocation())
	if math.Abs(delta) > centTolerance {
		if err := s.rebalanceTx(ctx, tx, id, delta); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit category update: %w", err)
	}

	slog.Debug("updated category", "id", id, "delta", delta)
	return nil
}

// ResetBudgetCategories hard-deletes every category. Used for a full budget
// reset before reseeding or rebuilding from scratch.
func (s *SQLiteStore) ResetBudgetCategories(ctx context.Context) error {
	if err := s.ensureReady(ctx); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM budget_categories`); err != nil {
		return fmt.Errorf("failed to reset categories: %w", err)
	}

	slog.Info("reset budget categories")
	return nil
}

// EnsureCategory guarantees an active category with this exact name exists,
// creating a default one when absent. Idempotent.
func (s *SQLiteStore) EnsureCategory(ctx context.Context, name string) error {
	if err := s.ensureReady(ctx); err != nil {
		return err
	}
	if err := validateString(name, "name"); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.ensureCategoryTx(ctx, tx, name); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit category provisioning: %w", err)
	}
	return nil
}

func (s *SQLiteStore) getCategoryByIDTx(ctx context.Context, tx *sql.Tx, id int64) (*model.BudgetCategory, error) {
	var cat model.BudgetCategory
	err := tx.QueryRowContext(ctx, `
		SELECT id, name, allocated, spent, color, is_active, included_in_budget, is_locked, weight, is_buffer
		FROM budget_categories
		WHERE id = ?`, id).Scan(
		&cat.ID, &cat.Name, &cat.Allocated, &cat.Spent, &cat.Color,
		&cat.IsActive, &cat.IncludedInBudget, &cat.IsLocked, &cat.Weight, &cat.IsBuffer,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: category %d", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query category %d: %w", id, err)
	}
	return &cat, nil
}
