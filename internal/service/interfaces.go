// Package service defines the contracts between the budgeting core and the
// UI collaborators that consume it.
package service

import (
	"context"

	"github.com/Hegrove/Serenity-Budget/internal/model"
)

// Store is the full persistence contract.
type Store interface {
	LedgerStore
	CategoryStore
	SettingsStore
	GoalStore

	// Init opens the schema and seeds defaults. Concurrent callers share a
	// single in-flight initialization.
	Init(ctx context.Context) error

	// RecalculateBudgetSpending rebuilds every active category's spent total
	// from the transaction ledger. The result is identical to what
	// incremental tracking produces for the same transaction set.
	RecalculateBudgetSpending(ctx context.Context) error

	// ResetAllData wipes all tables and reseeds the defaults.
	ResetAllData(ctx context.Context) error

	Close() error
}

// LedgerStore records income and expense transactions. Every mutation keeps
// category spent totals synchronized within the same transactional scope.
type LedgerStore interface {
	AddTransaction(ctx context.Context, txn model.Transaction) (int64, error)
	GetTransactions(ctx context.Context, limit int) ([]model.Transaction, error)
	GetTransactionByID(ctx context.Context, id int64) (*model.Transaction, error)
	UpdateTransaction(ctx context.Context, id int64, patch model.TransactionPatch) error
	DeleteTransaction(ctx context.Context, id int64) error
}

// CategoryStore manages budget categories. Changes to an in-budget
// category's allocation or inclusion flag trigger rebalancing.
type CategoryStore interface {
	GetBudgetCategories(ctx context.Context) ([]model.BudgetCategory, error)
	AddBudgetCategory(ctx context.Context, cat model.BudgetCategory) (int64, error)
	UpdateBudgetCategory(ctx context.Context, id int64, patch model.BudgetCategoryPatch) error
	ResetBudgetCategories(ctx context.Context) error

	// EnsureCategory guarantees an active category with this exact name
	// exists, creating a default one when absent. Idempotent.
	EnsureCategory(ctx context.Context, name string) error
}

// SettingsStore holds the singleton user settings row.
type SettingsStore interface {
	GetMonthlyBudget(ctx context.Context) (float64, error)
	SetMonthlyBudget(ctx context.Context, v float64) error
	GetSettings(ctx context.Context) (*model.Settings, error)
	UpdateSettings(ctx context.Context, settings model.Settings) error
}

// GoalStore manages savings goals. Goals are tracked outside the monthly
// budget math.
type GoalStore interface {
	AddSavingsGoal(ctx context.Context, goal model.SavingsGoal) (int64, error)
	GetSavingsGoals(ctx context.Context) ([]model.SavingsGoal, error)
	UpdateSavingsGoal(ctx context.Context, id int64, patch model.SavingsGoalPatch) error
}

// SecureStore holds session and credential material. Implementations live
// with the UI collaborator; the core only consumes the interface.
type SecureStore interface {
	Set(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}
