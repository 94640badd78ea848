// Package storage provides the SQLite persistence layer: the transaction
// ledger, budget categories with spend tracking and allocation rebalancing,
// user settings, and savings goals.
package storage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/Hegrove/Serenity-Budget/internal/common"
	"github.com/Hegrove/Serenity-Budget/internal/model"
)

// Validation errors. All wrap common.ErrValidation so callers can test the
// taxonomy with errors.Is.
var (
	ErrNilContext    = errors.New("context cannot be nil")
	ErrEmptyString   = fmt.Errorf("%w: string parameter cannot be empty", common.ErrValidation)
	ErrInvalidAmount = fmt.Errorf("%w: amount must be a finite number", common.ErrValidation)
	ErrNegativeValue = fmt.Errorf("%w: value cannot be negative", common.ErrValidation)
	ErrMissingDate   = fmt.Errorf("%w: date is required", common.ErrValidation)
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateAmount ensures a currency value is a usable number.
func validateAmount(v float64, paramName string) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, paramName)
	}
	return nil
}

// validateNonNegative ensures a currency value is finite and >= 0.
func validateNonNegative(v float64, paramName string) error {
	if err := validateAmount(v, paramName); err != nil {
		return err
	}
	if v < 0 {
		return fmt.Errorf("%w: %s", ErrNegativeValue, paramName)
	}
	return nil
}

// validateTransaction validates a transaction about to be inserted.
func validateTransaction(txn *model.Transaction) error {
	if err := validateString(txn.Title, "title"); err != nil {
		return err
	}
	if err := validateString(txn.Category, "category"); err != nil {
		return err
	}
	if err := validateAmount(txn.Amount, "amount"); err != nil {
		return err
	}
	if txn.Date.IsZero() {
		return ErrMissingDate
	}
	return nil
}

// validateTransactionPatch validates the fields a patch actually sets.
func validateTransactionPatch(patch *model.TransactionPatch) error {
	if patch.Title != nil {
		if err := validateString(*patch.Title, "title"); err != nil {
			return err
		}
	}
	if patch.Category != nil {
		if err := validateString(*patch.Category, "category"); err != nil {
			return err
		}
	}
	if patch.Amount != nil {
		if err := validateAmount(*patch.Amount, "amount"); err != nil {
			return err
		}
	}
	if patch.Date != nil && patch.Date.IsZero() {
		return ErrMissingDate
	}
	return nil
}

// validateCategory validates a category about to be inserted.
func validateCategory(cat *model.BudgetCategory) error {
	if err := validateString(cat.Name, "name"); err != nil {
		return err
	}
	if err := validateNonNegative(cat.Allocated, "allocated"); err != nil {
		return err
	}
	if err := validateNonNegative(cat.Spent, "spent"); err != nil {
		return err
	}
	if err := validateNonNegative(cat.Weight, "weight"); err != nil {
		return err
	}
	return nil
}

// validateCategoryPatch validates the fields a patch actually sets.
func validateCategoryPatch(patch *model.BudgetCategoryPatch) error {
	if patch.Name != nil {
		if err := validateString(*patch.Name, "name"); err != nil {
			return err
		}
	}
	if patch.Allocated != nil {
		if err := validateNonNegative(*patch.Allocated, "allocated"); err != nil {
			return err
		}
	}
	if patch.Spent != nil {
		if err := validateNonNegative(*patch.Spent, "spent"); err != nil {
			return err
		}
	}
	if patch.Weight != nil {
		if err := validateNonNegative(*patch.Weight, "weight"); err != nil {
			return err
		}
	}
	return nil
}

// validateSavingsGoal validates a goal about to be inserted.
func validateSavingsGoal(goal *model.SavingsGoal) error {
	if err := validateString(goal.Name, "name"); err != nil {
		return err
	}
	if err := validateNonNegative(goal.TargetAmount, "targetAmount"); err != nil {
		return err
	}
	if err := validateNonNegative(goal.CurrentAmount, "currentAmount"); err != nil {
		return err
	}
	if goal.TargetDate.IsZero() {
		return ErrMissingDate
	}
	return nil
}
