// Starting conditions: the difficulty profiles a run can be created from.

package agents

import (
	"errors"
	"fmt"
	"sort"

	"github.com/talgya/finsim/internal/money"
)

// Profile is the template a month-0 snapshot is stamped from.
type Profile struct {
	StartingCash   money.Cents `yaml:"starting_cash" json:"starting_cash"`
	MonthlyIncome  money.Cents `yaml:"monthly_income" json:"monthly_income"`
	LivingExpenses money.Cents `yaml:"living_expenses" json:"living_expenses"`
	CreditLimit    money.Cents `yaml:"credit_limit" json:"credit_limit"`
	CreditAPR      float64     `yaml:"credit_apr" json:"credit_apr"`
	CreditScore    int         `yaml:"credit_score" json:"credit_score"`
	StartingAge    float64     `yaml:"starting_age" json:"starting_age"`
	Happiness      float64     `yaml:"happiness" json:"happiness"`
	Health         float64     `yaml:"health" json:"health"`
}

// Profiles maps a difficulty name to its starting conditions.
type Profiles map[string]Profile

// Difficulty names shipped by default.
const (
	ModeNormal = "normal"
	ModeHard   = "hard"
)

// DefaultProfiles returns the built-in difficulty table.
func DefaultProfiles() Profiles {
	return Profiles{
		ModeNormal: {
			StartingCash:   200000,
			MonthlyIncome:  240000,
			LivingExpenses: 120000,
			CreditLimit:    50000,
			CreditAPR:      0.24,
			CreditScore:    620,
			StartingAge:    16,
			Happiness:      70,
			Health:         80,
		},
		ModeHard: {
			StartingCash:   100000,
			MonthlyIncome:  200000,
			LivingExpenses: 140000,
			CreditLimit:    50000,
			CreditAPR:      0.29,
			CreditScore:    580,
			StartingAge:    16,
			Happiness:      70,
			Health:         80,
		},
	}
}

// Names returns the profile names in sorted order.
func (p Profiles) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ErrUnknownProfile is returned by Lookup for a name with no profile.
var ErrUnknownProfile = errors.New("unknown difficulty")

// Lookup returns the named profile.
func (p Profiles) Lookup(name string) (Profile, error) {
	prof, ok := p[name]
	if !ok {
		return Profile{}, fmt.Errorf("%w %q", ErrUnknownProfile, name)
	}
	return prof, nil
}

// Validate rejects profiles that could not produce a valid snapshot.
func (p Profile) Validate() error {
	switch {
	case p.StartingCash < 0 || p.MonthlyIncome < 0 || p.LivingExpenses < 0:
		return errors.New("cash, income and expenses must not be negative")
	case p.CreditLimit < 0:
		return errors.New("credit limit must not be negative")
	case p.CreditAPR < 0:
		return errors.New("credit apr must not be negative")
	case p.CreditScore < MinCreditScore || p.CreditScore > MaxCreditScore:
		return fmt.Errorf("credit score must be within [%d, %d]", MinCreditScore, MaxCreditScore)
	case p.Happiness < MinWellbeing || p.Happiness > MaxWellbeing,
		p.Health < MinWellbeing || p.Health > MaxWellbeing:
		return errors.New("happiness and health must be within [0, 100]")
	}
	return nil
}

// NewSnapshot creates the month-0 snapshot for a profile.
func NewSnapshot(p Profile) *Snapshot {
	return &Snapshot{
		Month:          0,
		Age:            p.StartingAge,
		Cash:           p.StartingCash,
		MonthlyIncome:  p.MonthlyIncome,
		LivingExpenses: p.LivingExpenses,
		Revolving: RevolvingCredit{
			Limit: p.CreditLimit,
			APR:   p.CreditAPR,
		},
		CreditScore:   p.CreditScore,
		Happiness:     p.Happiness,
		Health:        p.Health,
		Purchases:     []Purchase{},
		Subscriptions: []Subscription{},
	}
}
