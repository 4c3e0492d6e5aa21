// Package agents provides the financial snapshot each agent carries from
// month to month, the decision sets agents submit, and the wellbeing and
// credit recomputation applied at the end of every month.
package agents

import (
	"github.com/talgya/finsim/internal/money"
)

// Actor identifies which side of a run a snapshot or decision belongs to.
type Actor string

const (
	ActorPlayer Actor = "player"
	ActorGuru   Actor = "guru"
)

// VehicleTier is the trim level of a vehicle offer or loan.
type VehicleTier string

const (
	TierUsed VehicleTier = "used"
	TierMid  VehicleTier = "mid"
	TierNew  VehicleTier = "new"
)

// Valid reports whether t is one of the known tiers.
func (t VehicleTier) Valid() bool {
	switch t {
	case TierUsed, TierMid, TierNew:
		return true
	}
	return false
}

// PaymentMethod is how a one-time purchase was funded.
type PaymentMethod string

const (
	PayCash   PaymentMethod = "cash"
	PayCredit PaymentMethod = "credit"
)

// Score bounds.
const (
	MinCreditScore = 300
	MaxCreditScore = 850
	MinWellbeing   = 0.0
	MaxWellbeing   = 100.0
)

// RevolvingCredit is a credit-card style debt line.
type RevolvingCredit struct {
	Balance money.Cents `json:"balance"`
	Limit   money.Cents `json:"limit"`
	APR     float64     `json:"apr"`
}

// Utilization returns balance/limit. A zero limit counts as fully used
// whenever anything is owed.
func (r RevolvingCredit) Utilization() float64 {
	if r.Limit <= 0 {
		if r.Balance > 0 {
			return 1
		}
		return 0
	}
	return float64(r.Balance) / float64(r.Limit)
}

// VehicleLoan is an installment loan taken out to buy a vehicle.
type VehicleLoan struct {
	RemainingBalance money.Cents `json:"remaining_balance"`
	MonthlyPayment   money.Cents `json:"monthly_payment"`
	APR              float64     `json:"apr"`
	RemainingMonths  int         `json:"remaining_months"`
	Tier             VehicleTier `json:"tier"`
}

// Purchase is a one-time acquisition kept in the purchase history. Sold or
// consumed items stay in the list with a zero current value.
type Purchase struct {
	Month            int           `json:"month"`
	Name             string        `json:"name"`
	Category         string        `json:"category"`
	Icon             string        `json:"icon"`
	Cost             money.Cents   `json:"cost"`
	PaymentMethod    PaymentMethod `json:"payment_method"`
	CurrentValue     money.Cents   `json:"current_value"`
	DepreciationRate float64       `json:"depreciation_rate,omitempty"`
	HappinessBoost   float64       `json:"happiness_boost,omitempty"`
	HealthBoost      float64       `json:"health_boost,omitempty"`
	StressImpact     int           `json:"stress_impact,omitempty"`
	ExperienceScore  int           `json:"experience_score,omitempty"`
	InvestmentScore  int           `json:"investment_score,omitempty"`
	Lane             string        `json:"lane,omitempty"`
}

// Subscription is a recurring monthly charge.
type Subscription struct {
	Name           string      `json:"name"`
	MonthlyCost    money.Cents `json:"monthly_cost"`
	Category       string      `json:"category"`
	Icon           string      `json:"icon,omitempty"`
	HappinessBoost float64     `json:"happiness_boost,omitempty"`
	HealthBoost    float64     `json:"health_boost,omitempty"`
	Lane           string      `json:"lane,omitempty"`
}

// Snapshot is one agent's complete financial position at the start of a
// month. Snapshots are values: the engine clones before it mutates and
// never changes a snapshot it was handed.
type Snapshot struct {
	Month            int             `json:"month"`
	Age              float64         `json:"age"`
	Cash             money.Cents     `json:"cash"`
	MonthlyIncome    money.Cents     `json:"monthly_income"`
	LivingExpenses   money.Cents     `json:"living_expenses"`
	Revolving        RevolvingCredit `json:"revolving_credit"`
	VehicleLoan      *VehicleLoan    `json:"vehicle_loan,omitempty"`
	CreditScore      int             `json:"credit_score"`
	Stress           float64         `json:"stress"`
	Happiness        float64         `json:"happiness"`
	Health           float64         `json:"health"`
	LifetimeInterest money.Cents     `json:"lifetime_interest"`
	Purchases        []Purchase      `json:"purchases"`
	Subscriptions    []Subscription  `json:"subscriptions"`
}

// Clone returns a deep copy that shares no memory with s.
func (s *Snapshot) Clone() *Snapshot {
	c := *s
	if s.VehicleLoan != nil {
		loan := *s.VehicleLoan
		c.VehicleLoan = &loan
	}
	c.Purchases = append([]Purchase(nil), s.Purchases...)
	c.Subscriptions = append([]Subscription(nil), s.Subscriptions...)
	if c.Purchases == nil {
		c.Purchases = []Purchase{}
	}
	if c.Subscriptions == nil {
		c.Subscriptions = []Subscription{}
	}
	return &c
}

// HasSubscription reports whether a subscription with name is active.
func (s *Snapshot) HasSubscription(name string) bool {
	for _, sub := range s.Subscriptions {
		if sub.Name == name {
			return true
		}
	}
	return false
}

// RecurringTotal is the sum of all active subscription charges.
func (s *Snapshot) RecurringTotal() money.Cents {
	var total money.Cents
	for _, sub := range s.Subscriptions {
		total += sub.MonthlyCost
	}
	return total
}

// TotalDebt is the revolving balance plus any outstanding vehicle loan.
func (s *Snapshot) TotalDebt() money.Cents {
	debt := s.Revolving.Balance
	if s.VehicleLoan != nil {
		debt += s.VehicleLoan.RemainingBalance
	}
	return debt
}

// NetWorth is cash plus the current value of held items minus all debt.
func (s *Snapshot) NetWorth() money.Cents {
	worth := s.Cash
	for _, p := range s.Purchases {
		worth += p.CurrentValue
	}
	return worth - s.TotalDebt()
}

// ChargeRevolving moves amount onto the revolving balance.
func (s *Snapshot) ChargeRevolving(amount money.Cents) {
	if amount <= 0 {
		return
	}
	s.Revolving.Balance += amount
}

// Spend takes amount from cash, carrying any shortfall onto the revolving
// balance. Cash never goes negative.
func (s *Snapshot) Spend(amount money.Cents) {
	var short money.Cents
	s.Cash, short = money.Debit(s.Cash, amount)
	s.ChargeRevolving(short)
}
