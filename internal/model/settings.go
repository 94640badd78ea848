package model

// Settings is the singleton user configuration row (id fixed to 1).
// MonthlyBudget is the target for the allocation sum invariant; the other
// fields are opaque passthrough preferences owned by the UI collaborators.
type Settings struct {
	BudgetMethod     string
	Currency         string
	MonthlyBudget    float64
	Notifications    bool
	BiometricEnabled bool
}

// DefaultSettings returns the values seeded on first run.
func DefaultSettings() Settings {
	return Settings{
		BudgetMethod:     "thirds",
		Currency:         "EUR",
		Notifications:    true,
		BiometricEnabled: false,
	}
}
