package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Hegrove/Serenity-Budget/internal/common"
	"github.com/Hegrove/Serenity-Budget/internal/model"
)

// AddTransaction inserts a ledger entry and returns its id. Expenses
// (negative amounts) credit the category's spent total in the same
// transactional scope, provisioning the category first when needed.
func (s *SQLiteStore) AddTransaction(ctx context.Context, txn model.Transaction) (int64, error) {
	if err := s.ensureReady(ctx); err != nil {
		return 0, err
	}
	if err := validateTransaction(&txn); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (title, amount, category, date, description, is_shared)
		VALUES (?, ?, ?, ?, ?, ?)`,
		txn.Title, txn.Amount, txn.Category, txn.Date, nullableString(txn.Description), txn.IsShared,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert transaction: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get transaction id: %w", err)
	}

	if txn.Amount < 0 {
		if err := s.applySpendTx(ctx, tx, txn.Category, -txn.Amount); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	slog.Debug("added transaction", "id", id, "category", txn.Category, "amount", txn.Amount)
	return id, nil
}

// GetTransactions returns transactions ordered by date descending, ties
// broken by insertion order descending. A limit <= 0 returns everything.
func (s *SQLiteStore) GetTransactions(ctx context.Context, limit int) ([]model.Transaction, error) {
	if err := s.ensureReady(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT id, title, amount, category, date, description, is_shared, created_at
		FROM transactions
		ORDER BY date DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return transactions, nil
}

// GetTransactionByID returns a single transaction or common.ErrNotFound.
func (s *SQLiteStore) GetTransactionByID(ctx context.Context, id int64) (*model.Transaction, error) {
	if err := s.ensureReady(ctx); err != nil {
		return nil, err
	}
	return s.getTransactionTx(ctx, s.db, id)
}

// queryRower is satisfied by both *sql.DB and *sql.Tx.
type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLiteStore) getTransactionTx(ctx context.Context, q queryRower, id int64) (*model.Transaction, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, title, amount, category, date, description, is_shared, created_at
		FROM transactions
		WHERE id = ?`, id)

	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: transaction %d", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// UpdateTransaction applies a partial update. The prior amount and category
// are read first because the compensating spend adjustments depend on them:
// the old expense side is removed from the old category and the new expense
// side is added to the new category, independently.
func (s *SQLiteStore) UpdateTransaction(ctx context.Context, id int64, patch model.TransactionPatch) error {
	if err := s.ensureReady(ctx); err != nil {
		return err
	}
	if err := validateTransactionPatch(&patch); err != nil {
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

	prior, err := s.getTransactionTx(ctx, tx, id)
	if err != nil {
		return err
	}

	var fields []string
	var args []any
	if patch.Title != nil {
		fields = append(fields, "title = ?")
		args = append(args, *patch.Title)
	}
	if patch.Amount != nil {
		fields = append(fields, "amount = ?")
		args = append(args, *patch.Amount)
	}
	if patch.Category != nil {
		fields = append(fields, "category = ?")
		args = append(args, *patch.Category)
	}
	if patch.Date != nil {
		fields = append(fields, "date = ?")
		args = append(args, *patch.Date)
	}
	if patch.Description != nil {
		fields = append(fields, "description = ?")
		args = append(args, nullableString(*patch.Description))
	}
	if patch.IsShared != nil {
		fields = append(fields, "is_shared = ?")
		args = append(args, *patch.IsShared)
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE transactions SET %s WHERE id = ?`, strings.Join(fields, ", "))
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update transaction %d: %w", id, err)
	}

	if patch.Amount != nil || patch.Category != nil {
		oldAmount := prior.Amount
		newAmount := oldAmount
		if patch.Amount != nil {
			newAmount = *patch.Amount
		}
		oldCategory := prior.Category
		newCategory := oldCategory
		if patch.Category != nil {
			newCategory = *patch.Category
		}

		// Each side is handled independently so category moves transfer the
		// spend entirely and sign flips resolve correctly.
		if oldAmount < 0 {
			if err := s.applySpendTx(ctx, tx, oldCategory, oldAmount); err != nil {
				return err
			}
		}
		if newAmount < 0 {
			if err := s.applySpendTx(ctx, tx, newCategory, -newAmount); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction update: %w", err)
	}

	slog.Debug("updated transaction", "id", id)
	return nil
}

// DeleteTransaction removes a ledger entry. Deleting an expense releases its
// amount from the category's spent total in the same transactional scope.
// Unknown ids return common.ErrNotFound.
func (s *SQLiteStore) DeleteTransaction(ctx context.Context, id int64) error {
	if err := s.ensureReady(ctx); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	prior, err := s.getTransactionTx(ctx, tx, id)
	if err != nil {
		return err
	}

	if prior.Amount < 0 {
		if err := s.applySpendTx(ctx, tx, prior.Category, prior.Amount); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete transaction %d: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction delete: %w", err)
	}

	slog.Debug("deleted transaction", "id", id, "category", prior.Category, "amount", prior.Amount)
	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (model.Transaction, error) {
	var txn model.Transaction
	var description sql.NullString
	if err := row.Scan(
		&txn.ID, &txn.Title, &txn.Amount, &txn.Category,
		&txn.Date, &description, &txn.IsShared, &txn.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return txn, err
		}
		return txn, fmt.Errorf("failed to scan transaction: %w", err)
	}
	txn.Description = description.String
	return txn, nil
}

// nullableString maps empty strings to SQL NULL.
func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
