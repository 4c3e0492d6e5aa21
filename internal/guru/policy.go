// Package guru is the autonomous decision policy. Given a snapshot and the
// month's offers it returns a complete decision set plus the reasons behind
// each choice. It holds no state and draws no randomness, so the same inputs
// always produce the same decisions.
package guru

import (
	"errors"

	"github.com/talgya/finsim/internal/agents"
	"github.com/talgya/finsim/internal/money"
)

// Policy holds the thresholds the rule ladder checks against.
type Policy struct {
	EmergencyFundTarget   money.Cents        `yaml:"emergency_fund_target" json:"emergency_fund_target"`
	Buffer                money.Cents        `yaml:"buffer" json:"buffer"`
	DiscretionaryRate     float64            `yaml:"discretionary_rate" json:"discretionary_rate"`
	MaxItemsPerMonth      int                `yaml:"max_items_per_month" json:"max_items_per_month"`
	MaxRecurringTotal     money.Cents        `yaml:"max_recurring_total" json:"max_recurring_total"`
	MaxSinglePurchase     money.Cents        `yaml:"max_single_purchase" json:"max_single_purchase"`
	CheapThreshold        money.Cents        `yaml:"cheap_threshold" json:"cheap_threshold"`
	SubscriptionMinScore  float64            `yaml:"subscription_min_score" json:"subscription_min_score"`
	GrowthBonus           float64            `yaml:"growth_bonus" json:"growth_bonus"`
	GrowthCategories      []string           `yaml:"growth_categories" json:"growth_categories"`
	VehicleTier           agents.VehicleTier `yaml:"vehicle_tier" json:"vehicle_tier"`
	VehicleMinCreditScore int                `yaml:"vehicle_min_credit_score" json:"vehicle_min_credit_score"`
	VehicleTermMonths     int                `yaml:"vehicle_term_months" json:"vehicle_term_months"`
}

// DefaultPolicy returns the standard, conservative guru.
func DefaultPolicy() Policy {
	return Policy{
		EmergencyFundTarget:   150000,
		Buffer:                50000,
		DiscretionaryRate:     0.05,
		MaxItemsPerMonth:      1,
		MaxRecurringTotal:     20000,
		MaxSinglePurchase:     35000,
		CheapThreshold:        15000,
		SubscriptionMinScore:  6,
		GrowthBonus:           10,
		GrowthCategories:      []string{"health", "education", "charity", "home"},
		VehicleTier:           agents.TierUsed,
		VehicleMinCreditScore: 680,
		VehicleTermMonths:     36,
	}
}

// Validate rejects policies the ladder cannot run with.
func (p Policy) Validate() error {
	switch {
	case p.EmergencyFundTarget < 0 || p.Buffer < 0:
		return errors.New("guru: emergency fund target and buffer must not be negative")
	case p.DiscretionaryRate < 0 || p.DiscretionaryRate > 1:
		return errors.New("guru: discretionary rate must be within [0, 1]")
	case p.MaxItemsPerMonth < 0:
		return errors.New("guru: max items per month must not be negative")
	case p.MaxRecurringTotal < 0 || p.MaxSinglePurchase < 0 || p.CheapThreshold < 0:
		return errors.New("guru: spending ceilings must not be negative")
	case !p.VehicleTier.Valid():
		return errors.New("guru: unknown vehicle tier")
	case p.VehicleTermMonths < 1:
		return errors.New("guru: vehicle term must be at least one month")
	}
	return nil
}

func (p Policy) growth(category string) bool {
	for _, c := range p.GrowthCategories {
		if c == category {
			return true
		}
	}
	return false
}
