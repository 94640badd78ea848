package model

import "time"

// SavingsGoal tracks progress toward a target amount by a target date.
// Goals live outside the monthly budget math.
type SavingsGoal struct {
	TargetDate    time.Time
	CreatedAt     time.Time
	Name          string
	ID            int64
	TargetAmount  float64
	CurrentAmount float64
	IsActive      bool
}

// Progress returns the completion ratio in [0, 1].
func (g *SavingsGoal) Progress() float64 {
	if g.TargetAmount <= 0 {
		return 0
	}
	ratio := g.CurrentAmount / g.TargetAmount
	if ratio > 1 {
		return 1
	}
	if ratio < 0 {
		return 0
	}
	return ratio
}

// SavingsGoalPatch carries the mutable goal fields for a partial update.
type SavingsGoalPatch struct {
	Name          *string
	TargetAmount  *float64
	CurrentAmount *float64
	TargetDate    *time.Time
	IsActive      *bool
}

// IsEmpty reports whether the patch changes nothing.
func (p *SavingsGoalPatch) IsEmpty() bool {
	return p.Name == nil && p.TargetAmount == nil && p.CurrentAmount == nil &&
		p.TargetDate == nil && p.IsActive == nil
}
