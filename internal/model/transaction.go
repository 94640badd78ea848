package model

import "time"

// Transaction represents a single ledger entry. Negative amounts are
// expenses, positive amounts are income; zero is permitted.
type Transaction struct {
	Date        time.Time
	CreatedAt   time.Time
	Title       string
	Category    string
	Description string
	ID          int64
	Amount      float64
	IsShared    bool
}

// IsExpense reports whether the transaction counts as spend.
func (t *Transaction) IsExpense() bool {
	return t.Amount < 0
}

// SpendAmount returns the absolute value this transaction contributes to its
// category's spent total. Income and zero-amount transactions contribute
// nothing.
func (t *Transaction) SpendAmount() float64 {
	if t.Amount >= 0 {
		return 0
	}
	return -t.Amount
}

// TransactionPatch carries the mutable transaction fields for a partial
// update. Nil fields are left untouched. ID and CreatedAt are immutable.
type TransactionPatch struct {
	Title       *string
	Amount      *float64
	Category    *string
	Date        *time.Time
	Description *string
	IsShared    *bool
}

// IsEmpty reports whether the patch changes nothing.
func (p *TransactionPatch) IsEmpty() bool {
	return p.Title == nil && p.Amount == nil && p.Category == nil &&
		p.Date == nil && p.Description == nil && p.IsShared == nil
}
