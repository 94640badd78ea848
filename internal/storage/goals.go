package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Hegrove/Serenity-Budget/internal/common"
	"github.com/Hegrove/Serenity-Budget/internal/model"
)

// AddSavingsGoal creates a savings goal and returns its id.
func (s *SQLiteStore) AddSavingsGoal(ctx context.Context, goal model.SavingsGoal) (int64, error) {
	if err := s.ensureReady(ctx); err != nil {
		return 0, err
	}
	if err := validateSavingsGoal(&goal); err != nil {
		return 0, err
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO savings_goals (name, target_amount, current_amount, target_date, is_active)
		VALUES (?, ?, ?, ?, ?)`,
		goal.Name, goal.TargetAmount, goal.CurrentAmount, goal.TargetDate, goal.IsActive,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert savings goal: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get savings goal id: %w", err)
	}

	slog.Info("created savings goal", "name", goal.Name, "id", id)
	return id, nil
}

// GetSavingsGoals returns active goals, newest first.
func (s *SQLiteStore) GetSavingsGoals(ctx context.Context) ([]model.SavingsGoal, error) {
	if err := s.ensureReady(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, target_amount, current_amount, target_date, is_active, created_at
		FROM savings_goals
		WHERE is_active = 1
		ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query savings goals: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var goals []model.SavingsGoal
	for rows.Next() {
		var goal model.SavingsGoal
		if err := rows.Scan(
			&goal.ID, &goal.Name, &goal.TargetAmount, &goal.CurrentAmount,
			&goal.TargetDate, &goal.IsActive, &goal.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan savings goal: %w", err)
		}
		goals = append(goals, goal)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating savings goals: %w", err)
	}

	return goals, nil
}

// UpdateSavingsGoal applies a partial update, typically a contribution to
// the current amount. Unknown ids return common.ErrNotFound.
func (s *SQLiteStore) UpdateSavingsGoal(ctx context.Context, id int64, patch model.SavingsGoalPatch) error {
	if err := s.ensureReady(ctx); err != nil {
		return err
	}
	if patch.IsEmpty() {
		return nil
	}
	if patch.Name != nil {
		if err := validateString(*patch.Name, "name"); err != nil {
			return err
		}
	}
	if patch.TargetAmount != nil {
		if err := validateNonNegative(*patch.TargetAmount, "targetAmount"); err != nil {
			return err
		}
	}
	if patch.CurrentAmount != nil {
		if err := validateNonNegative(*patch.CurrentAmount, "currentAmount"); err != nil {
			return err
		}
	}

	var fields []string
	var args []any
	if patch.Name != nil {
		fields = append(fields, "name = ?")
		args = append(args, *patch.Name)
	}
	if patch.TargetAmount != nil {
		fields = append(fields, "target_amount = ?")
		args = append(args, *patch.TargetAmount)
	}
	if patch.CurrentAmount != nil {
		fields = append(fields, "current_amount = ?")
		args = append(args, *patch.CurrentAmount)
	}
	if patch.TargetDate != nil {
		fields = append(fields, "target_date = ?")
		args = append(args, *patch.TargetDate)
	}
	if patch.IsActive != nil {
		fields = append(fields, "is_active = ?")
		args = append(args, *patch.IsActive)
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE savings_goals SET %s WHERE id = ?`, strings.Join(fields, ", "))
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update savings goal %d: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check savings goal update: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: savings goal %d", common.ErrNotFound, id)
	}

	return nil
}
