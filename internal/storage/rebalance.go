package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/Hegrove/Serenity-Budget/internal/common"
	"github.com/Hegrove/Serenity-Budget/internal/model"
)

// centTolerance is the rounding tolerance for the allocation sum invariant.
const centTolerance = 0.01

// roundCents rounds to two decimal places, half away from zero. Every
// intermediate rebalancing step rounds with this helper; exactness is then
// guaranteed by letting the last category in iteration order absorb the
// remainder.
func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// rebalanceTx restores the invariant
//
//	Σ allocated(active, in-budget) == monthly budget
//
// after the category identified by protectedID changed its effective
// allocation by delta. The protected category keeps its already-written
// value; locked categories are never touched. A positive delta pulls money
// from the buffer first and then from unlocked categories proportionally to
// their weight; a negative delta deposits into the buffer, or distributes
// proportionally when there is none. A terminal reconciliation forces any
// residual discrepancy onto the buffer, or fails with
// common.ErrConsistency when no buffer can absorb it, rolling the whole
// rebalance back.
func (s *SQLiteStore) rebalanceTx(ctx context.Context, tx *sql.Tx, protectedID int64, delta float64) error {
	budget, err := monthlyBudgetTx(ctx, tx)
	if err != nil {
		return err
	}

	others, err := inBudgetCategoriesTx(ctx, tx, protectedID)
	if err != nil {
		return err
	}

	original := make(map[int64]float64, len(others))
	for i := range others {
		original[others[i].ID] = others[i].Allocated
	}

	var buffer *model.BudgetCategory
	for i := range others {
		if others[i].IsBuffer {
			buffer = &others[i]
			break
		}
	}

	var adjustable []*model.BudgetCategory
	for i := range others {
		c := &others[i]
		if c == buffer || c.IsLocked {
			continue
		}
		adjustable = append(adjustable, c)
	}

	switch {
	case delta > 0:
		need := roundCents(delta)

		// The buffer pays first, down to zero.
		if buffer != nil && need > 0 {
			take := roundCents(math.Min(buffer.Allocated, need))
			buffer.Allocated = roundCents(buffer.Allocated - take)
			need = roundCents(need - take)
		}

		// Any unmet remainder comes out of the adjustable categories
		// proportionally to weight, each floored at zero, the last one
		// absorbing the rounding remainder.
		if need > centTolerance && len(adjustable) > 0 {
			totalWeight := 0.0
			for _, c := range adjustable {
				totalWeight += c.RebalanceWeight()
			}

			removed := 0.0
			for i, c := range adjustable {
				var share float64
				if i == len(adjustable)-1 {
					share = roundCents(need - removed)
				} else {
					share = roundCents(need * c.RebalanceWeight() / totalWeight)
				}
				take := roundCents(math.Min(share, c.Allocated))
				if take <= 0 {
					continue
				}
				c.Allocated = roundCents(c.Allocated - take)
				removed = roundCents(removed + take)
			}
		}

	case delta < 0:
		freed := roundCents(-delta)

		if buffer != nil {
			buffer.Allocated = roundCents(buffer.Allocated + freed)
		} else if len(adjustable) > 0 {
			totalWeight := 0.0
			for _, c := range adjustable {
				totalWeight += c.RebalanceWeight()
			}

			distributed := 0.0
			for i, c := range adjustable {
				var share float64
				if i == len(adjustable)-1 {
					share = roundCents(freed - distributed)
				} else {
					share = roundCents(freed * c.RebalanceWeight() / totalWeight)
				}
				c.Allocated = roundCents(c.Allocated + share)
				distributed = roundCents(distributed + share)
			}
		}
	}

	// Terminal reconciliation: whatever rounding accumulated above, the
	// in-budget sum must land on the monthly budget exactly.
	protectedEff, err := effectiveAllocationTx(ctx, tx, protectedID)
	if err != nil {
		return err
	}

	sum := protectedEff
	for i := range others {
		sum += others[i].Allocated
	}
	diff := roundCents(budget - sum)

	if math.Abs(diff) > centTolerance {
		if buffer == nil {
			return fmt.Errorf("%w: no buffer or adjustable capacity to restore the allocation sum (off by %.2f)",
				common.ErrConsistency, -diff)
		}
		corrected := roundCents(buffer.Allocated + diff)
		if corrected < 0 {
			return fmt.Errorf("%w: buffer %q cannot absorb a correction of %.2f",
				common.ErrConsistency, buffer.Name, diff)
		}
		buffer.Allocated = corrected
	}

	// Apply every computed change as part of the surrounding transaction so
	// the rebalance commits all-or-nothing.
	for i := range others {
		c := &others[i]
		if c.Allocated == original[c.ID] {
			continue
		}
		if c.Allocated < 0 {
			return fmt.Errorf("%w: allocation for %q would become negative", common.ErrConsistency, c.Name)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE budget_categories SET allocated = ? WHERE id = ?`, c.Allocated, c.ID); err != nil {
			return fmt.Errorf("failed to write rebalanced allocation for %s: %w", c.Name, err)
		}
	}

	slog.Debug("rebalanced allocations", "protected", protectedID, "delta", delta, "budget", budget)
	return nil
}

// inBudgetCategoriesTx loads every active, in-budget category except the
// protected one, in stable id order.
func inBudgetCategoriesTx(ctx context.Context, tx *sql.Tx, protectedID int64) ([]model.BudgetCategory, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, name, allocated, spent, color, is_active, included_in_budget, is_locked, weight, is_buffer
		FROM budget_categories
		WHERE is_active = 1 AND included_in_budget = 1 AND id != ?
		ORDER BY id`, protectedID)
	if err != nil {
		return nil, fmt.Errorf("failed to query in-budget categories: %w", err)
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
	return categories, nil
}

// effectiveAllocationTx returns the protected category's contribution to
// the in-budget sum at its current, already-written state. A category that
// was deleted or excluded mid-flight contributes zero.
func effectiveAllocationTx(ctx context.Context, tx *sql.Tx, id int64) (float64, error) {
	var allocated float64
	var isActive, included bool
	err := tx.QueryRowContext(ctx, `
		SELECT allocated, is_active, included_in_budget
		FROM budget_categories
		WHERE id = ?`, id).Scan(&allocated, &isActive, &included)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query protected category: %w", err)
	}
	if !isActive || !included {
		return 0, nil
	}
	return allocated, nil
}

// monthlyBudgetTx reads the budget target from the settings row.
func monthlyBudgetTx(ctx context.Context, tx *sql.Tx) (float64, error) {
	var budget float64
	err := tx.QueryRowContext(ctx, `SELECT monthly_budget FROM user_settings WHERE id = 1`).Scan(&budget)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read monthly budget: %w", err)
	}
	return budget, nil
}
