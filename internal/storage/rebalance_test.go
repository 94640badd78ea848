package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hegrove/Serenity-Budget/internal/common"
	"github.com/Hegrove/Serenity-Budget/internal/model"
)

func TestRoundCents(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{name: "exact", in: 1.23, want: 1.23},
		{name: "half rounds away from zero", in: 1.005, want: 1.01},
		{name: "negative half rounds away from zero", in: -1.005, want: -1.01},
		{name: "truncates below half", in: 33.333, want: 33.33},
		{name: "rounds above half", in: 33.336, want: 33.34},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, roundCents(tt.in), 0.0001)
		})
	}
}

func updateCategory(t *testing.T, store *SQLiteStore, name string, patch model.BudgetCategoryPatch) {
	t.Helper()
	ctx := context.Background()
	categories, err := store.GetBudgetCategories(ctx)
	require.NoError(t, err)
	cat := findCategory(t, categories, name)
	require.NoError(t, store.UpdateBudgetCategory(ctx, cat.ID, patch))
}

func categoryAllocated(t *testing.T, store *SQLiteStore, name string) float64 {
	t.Helper()
	categories, err := store.GetBudgetCategories(context.Background())
	require.NoError(t, err)
	return findCategory(t, categories, name).Allocated
}

func TestAddCategoryPullsFromBuffer(t *testing.T) {
	store, cleanup := createTestStore(t)
	defer cleanup()
	ctx := context.Background()

	_, err := store.AddBudgetCategory(ctx, model.BudgetCategory{
		Name:             "Abonnements",
		Allocated:        100,
		Color:            "#8b5cf6",
		IsActive:         true,
		IncludedInBudget: true,
	})
	require.NoError(t, err)

	assert.InDelta(t, 200, categoryAllocated(t, store, "Épargne"), 0.001)
	assert.InDelta(t, 1230, inBudgetSum(t, store), 0.001)
}

func TestIncreaseAllocationDrawsBufferFirst(t *testing.T) {
	store, cleanup := createTestStore(t)
	defer cleanup()

	newAllocation := 550.0
	updateCategory(t, store, "Alimentation", model.BudgetCategoryPatch{Allocated: &newAllocation})

	assert.InDelta(t, 550, categoryAllocated(t, store, "Alimentation"), 0.001)
	assert.InDelta(t, 150, categoryAllocated(t, store, "Épargne"), 0.001)
	assert.InDelta(t, 1230, inBudgetSum(t, store), 0.001)
}

func TestDecreaseAllocationRefillsBuffer(t *testing.T) {
	store, cleanup := createTestStore(t)
	defer cleanup()

	newAllocation := 250.0
	updateCategory(t, store, "Alimentation", model.BudgetCategoryPatch{Allocated: &newAllocation})

	assert.InDelta(t, 450, categoryAllocated(t, store, "Épargne"), 0.001)
	assert.InDelta(t, 1230, inBudgetSum(t, store), 0.001)
}

func TestBufferExhaustedPullsProportionally(t *testing.T) {
	store, cleanup := createTestStore(t)
	defer cleanup()
	ctx := context.Background()

	_, err := store.AddBudgetCategory(ctx, model.BudgetCategory{
		Name:             "Projet",
		Allocated:        500,
		Color:            "#8b5cf6",
		IsActive:         true,
		IncludedInBudget: true,
	})
	require.NoError(t, err)

	// The buffer empties first; the unmet 200 comes out of the unlocked
	// categories in equal weight shares.
	assert.InDelta(t, 0, categoryAllocated(t, store, "Épargne"), 0.001)
	assert.InDelta(t, 360, categoryAllocated(t, store, "Alimentation"), 0.001)
	assert.InDelta(t, 160, categoryAllocated(t, store, "Transport"), 0.001)
	assert.InDelta(t, 110, categoryAllocated(t, store, "Sorties"), 0.001)
	assert.InDelta(t, 60, categoryAllocated(t, store, "Shopping"), 0.001)
	assert.InDelta(t, 40, categoryAllocated(t, store, "Santé"), 0.001)
	assert.InDelta(t, 1230, inBudgetSum(t, store), 0.001)
}

func TestLockedCategoryNeverTouched(t *testing.T) {
	store, cleanup := createTestStore(t)
	defer cleanup()
	ctx := context.Background()

	locked := true
	updateCategory(t, store, "Transport", model.BudgetCategoryPatch{IsLocked: &locked})

	_, err := store.AddBudgetCategory(ctx, model.BudgetCategory{
		Name:             "Projet",
		Allocated:        500,
		Color:            "#8b5cf6",
		IsActive:         true,
		IncludedInBudget: true,
	})
	require.NoError(t, err)

	assert.InDelta(t, 200, categoryAllocated(t, store, "Transport"), 0.001)
	assert.InDelta(t, 350, categoryAllocated(t, store, "Alimentation"), 0.001)
	assert.InDelta(t, 100, categoryAllocated(t, store, "Sorties"), 0.001)
	assert.InDelta(t, 50, categoryAllocated(t, store, "Shopping"), 0.001)
	assert.InDelta(t, 30, categoryAllocated(t, store, "Santé"), 0.001)
	assert.InDelta(t, 1230, inBudgetSum(t, store), 0.001)
}

func TestWeightedPull(t *testing.T) {
	store, cleanup := createTestStore(t)
	defer cleanup()
	ctx := context.Background()

	weight := 3.0
	updateCategory(t, store, "Alimentation", model.BudgetCategoryPatch{Weight: &weight})

	_, err := store.AddBudgetCategory(ctx, model.BudgetCategory{
		Name:             "Projet",
		Allocated:        500,
		Color:            "#8b5cf6",
		IsActive:         true,
		IncludedInBudget: true,
	})
	require.NoError(t, err)

	// 200 beyond the buffer, split 3:1:1:1:1 with the last category
	// absorbing the rounding remainder.
	assert.InDelta(t, 314.29, categoryAllocated(t, store, "Alimentation"), 0.001)
	assert.InDelta(t, 171.43, categoryAllocated(t, store, "Transport"), 0.001)
	assert.InDelta(t, 121.43, categoryAllocated(t, store, "Sorties"), 0.001)
	assert.InDelta(t, 71.43, categoryAllocated(t, store, "Shopping"), 0.001)
	assert.InDelta(t, 51.42, categoryAllocated(t, store, "Santé"), 0.001)
	assert.InDelta(t, 1230, inBudgetSum(t, store), 0.001)
}

func TestNoBufferDistributesProportionally(t *testing.T) {
	store, cleanup := createTestStore(t)
	defer cleanup()

	noBuffer := false
	updateCategory(t, store, "Épargne", model.BudgetCategoryPatch{IsBuffer: &noBuffer})

	newAllocation := 300.0
	updateCategory(t, store, "Alimentation", model.BudgetCategoryPatch{Allocated: &newAllocation})

	assert.InDelta(t, 220, categoryAllocated(t, store, "Transport"), 0.001)
	assert.InDelta(t, 170, categoryAllocated(t, store, "Sorties"), 0.001)
	assert.InDelta(t, 120, categoryAllocated(t, store, "Shopping"), 0.001)
	assert.InDelta(t, 100, categoryAllocated(t, store, "Santé"), 0.001)
	assert.InDelta(t, 320, categoryAllocated(t, store, "Épargne"), 0.001)
	assert.InDelta(t, 1230, inBudgetSum(t, store), 0.001)
}

func TestExclusionToggleReleasesAllocation(t *testing.T) {
	store, cleanup := createTestStore(t)
	defer cleanup()

	excluded := false
	updateCategory(t, store, "Transport", model.BudgetCategoryPatch{IncludedInBudget: &excluded})

	assert.InDelta(t, 500, categoryAllocated(t, store, "Épargne"), 0.001)
	assert.InDelta(t, 1230, inBudgetSum(t, store), 0.001)

	// Re-including pulls the allocation back out of the buffer.
	included := true
	updateCategory(t, store, "Transport", model.BudgetCategoryPatch{IncludedInBudget: &included})

	assert.InDelta(t, 300, categoryAllocated(t, store, "Épargne"), 0.001)
	assert.InDelta(t, 1230, inBudgetSum(t, store), 0.001)
}

func TestConsistencyFailureRollsBack(t *testing.T) {
	store, cleanup := createTestStore(t)
	defer cleanup()
	ctx := context.Background()

	noBuffer := false
	updateCategory(t, store, "Épargne", model.BudgetCategoryPatch{IsBuffer: &noBuffer})

	// More than the whole budget: nothing can absorb the difference.
	_, err := store.AddBudgetCategory(ctx, model.BudgetCategory{
		Name:             "Projet",
		Allocated:        2000,
		Color:            "#8b5cf6",
		IsActive:         true,
		IncludedInBudget: true,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrConsistency)

	// The whole mutation rolled back: no new category, allocations intact.
	categories, err := store.GetBudgetCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, categories, 8)
	assert.InDelta(t, 400, findCategory(t, categories, "Alimentation").Allocated, 0.001)
	assert.InDelta(t, 1230, inBudgetSum(t, store), 0.001)
}

// setupThreeCategoryBudget replaces the seed set with A(400), B(400) and a
// 200 buffer against a 1000 monthly budget, returning ids by name.
func setupThreeCategoryBudget(t *testing.T, store *SQLiteStore) map[string]int64 {
	t.Helper()
	ctx := context.Background()

	_, err := store.db.ExecContext(ctx, `DELETE FROM budget_categories`)
	require.NoError(t, err)

	ids := make(map[string]int64, 3)
	for _, c := range []struct {
		name      string
		allocated float64
		isBuffer  bool
	}{
		{name: "A", allocated: 400},
		{name: "B", allocated: 400},
		{name: "Tampon", allocated: 200, isBuffer: true},
	} {
		result, execErr := store.db.ExecContext(ctx, `
			INSERT INTO budget_categories
				(name, allocated, spent, color, is_active, included_in_budget, is_locked, weight, is_buffer)
			VALUES (?, ?, 0, '#64748b', 1, 1, 0, 1, ?)`, c.name, c.allocated, c.isBuffer)
		require.NoError(t, execErr)
		id, idErr := result.LastInsertId()
		require.NoError(t, idErr)
		ids[c.name] = id
	}
	require.NoError(t, store.SetMonthlyBudget(ctx, 1000))
	return ids
}

func TestBufferFullyAbsorbsIncrease(t *testing.T) {
	store, cleanup := createTestStore(t)
	defer cleanup()
	ctx := context.Background()

	ids := setupThreeCategoryBudget(t, store)

	// A goes from 400 to 550; the buffer covers the whole 150.
	_, err := store.db.ExecContext(ctx, `UPDATE budget_categories SET allocated = 550 WHERE name = 'A'`)
	require.NoError(t, err)

	tx, err := store.db.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, store.rebalanceTx(ctx, tx, ids["A"], 150))
	require.NoError(t, tx.Commit())

	assert.InDelta(t, 550, categoryAllocated(t, store, "A"), 0.001)
	assert.InDelta(t, 400, categoryAllocated(t, store, "B"), 0.001)
	assert.InDelta(t, 50, categoryAllocated(t, store, "Tampon"), 0.001)
	assert.InDelta(t, 1000, inBudgetSum(t, store), 0.001)
}

func TestReconciliationCorrectsBufferOverDeposit(t *testing.T) {
	store, cleanup := createTestStore(t)
	defer cleanup()
	ctx := context.Background()

	ids := setupThreeCategoryBudget(t, store)

	// A drops to 0 but the caller reports a delta of -500, more than A
	// actually held. The deposit overshoots; the terminal reconciliation
	// pulls the buffer back so the sum lands exactly on the budget.
	_, err := store.db.ExecContext(ctx, `UPDATE budget_categories SET allocated = 0 WHERE name = 'A'`)
	require.NoError(t, err)

	tx, err := store.db.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, store.rebalanceTx(ctx, tx, ids["A"], -500))
	require.NoError(t, tx.Commit())

	assert.InDelta(t, 0, categoryAllocated(t, store, "A"), 0.001)
	assert.InDelta(t, 400, categoryAllocated(t, store, "B"), 0.001)
	assert.InDelta(t, 600, categoryAllocated(t, store, "Tampon"), 0.001)
	assert.InDelta(t, 1000, inBudgetSum(t, store), 0.001)
}

func TestRoundingRemainderLastAbsorbs(t *testing.T) {
	store, cleanup := createTestStore(t)
	defer cleanup()
	ctx := context.Background()

	// Fixture: four equal categories, no buffer, budget 400.
	_, err := store.db.ExecContext(ctx, `DELETE FROM budget_categories`)
	require.NoError(t, err)

	ids := make(map[string]int64, 4)
	for _, name := range []string{"A", "B", "C", "D"} {
		result, execErr := store.db.ExecContext(ctx, `
			INSERT INTO budget_categories
				(name, allocated, spent, color, is_active, included_in_budget, is_locked, weight, is_buffer)
			VALUES (?, 100, 0, '#64748b', 1, 1, 0, 1, 0)`, name)
		require.NoError(t, execErr)
		id, idErr := result.LastInsertId()
		require.NoError(t, idErr)
		ids[name] = id
	}
	require.NoError(t, store.SetMonthlyBudget(ctx, 400))

	// A's allocation drops to zero; the freed 100 splits three ways.
	_, err = store.db.ExecContext(ctx, `UPDATE budget_categories SET allocated = 0 WHERE name = 'A'`)
	require.NoError(t, err)

	tx, err := store.db.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, store.rebalanceTx(ctx, tx, ids["A"], -100))
	require.NoError(t, tx.Commit())

	assert.InDelta(t, 133.33, categoryAllocated(t, store, "B"), 0.001)
	assert.InDelta(t, 133.33, categoryAllocated(t, store, "C"), 0.001)
	assert.InDelta(t, 133.34, categoryAllocated(t, store, "D"), 0.001)
	assert.InDelta(t, 400, inBudgetSum(t, store), 0.001)
}
