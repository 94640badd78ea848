// Package model defines the core domain types shared across the application.
package model

// BudgetCategory represents a budget envelope. Transactions are bound to a
// category by name, not by id; the name is a case-sensitive unique key.
type BudgetCategory struct {
	Name             string
	Color            string
	ID               int64
	Allocated        float64
	Spent            float64
	Weight           float64
	IsActive         bool
	IncludedInBudget bool
	IsLocked         bool
	IsBuffer         bool
}

// Remaining returns the amount left before the allocation is exhausted.
// Negative values mean the category is overspent.
func (c *BudgetCategory) Remaining() float64 {
	return c.Allocated - c.Spent
}

// EffectiveAllocation is the amount the category contributes to the monthly
// budget sum: zero when the category is inactive or out of budget.
func (c *BudgetCategory) EffectiveAllocation() float64 {
	if !c.IsActive || !c.IncludedInBudget {
		return 0
	}
	return c.Allocated
}

// RebalanceWeight returns the proportional share used during redistribution.
// Unset weights count as 1.
func (c *BudgetCategory) RebalanceWeight() float64 {
	if c.Weight <= 0 {
		return 1
	}
	return c.Weight
}

// BudgetCategoryPatch carries the mutable category fields for a partial
// update. Nil fields are left untouched.
type BudgetCategoryPatch struct {
	Name             *string
	Allocated        *float64
	Spent            *float64
	Color            *string
	IsActive         *bool
	IncludedInBudget *bool
	IsLocked         *bool
	Weight           *float64
	IsBuffer         *bool
}

// IsEmpty reports whether the patch changes nothing.
func (p *BudgetCategoryPatch) IsEmpty() bool {
	return p.Name == nil && p.Allocated == nil && p.Spent == nil &&
		p.Color == nil && p.IsActive == nil && p.IncludedInBudget == nil &&
		p.IsLocked == nil && p.Weight == nil && p.IsBuffer == nil
}

// ApplyTo overlays the patch onto a copy of prior and returns the result.
// Used to compute the effective-allocation delta before writing.
func (p *BudgetCategoryPatch) ApplyTo(prior BudgetCategory) BudgetCategory {
	next := prior
	if p.Name != nil {
		next.Name = *p.Name
	}
	if p.Allocated != nil {
		next.Allocated = *p.Allocated
	}
	if p.Spent != nil {
		next.Spent = *p.Spent
	}
	if p.Color != nil {
		next.Color = *p.Color
	}
	if p.IsActive != nil {
		next.IsActive = *p.IsActive
	}
	if p.IncludedInBudget != nil {
		next.IncludedInBudget = *p.IncludedInBudget
	}
	if p.IsLocked != nil {
		next.IsLocked = *p.IsLocked
	}
	if p.Weight != nil {
		next.Weight = *p.Weight
	}
	if p.IsBuffer != nil {
		next.IsBuffer = *p.IsBuffer
	}
	return next
}
