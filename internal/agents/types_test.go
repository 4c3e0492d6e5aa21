package agents

import (
	"testing"

	"github.com/talgya/finsim/internal/money"
)

func sampleSnapshot() *Snapshot {
	s := NewSnapshot(DefaultProfiles()[ModeNormal])
	s.VehicleLoan = &VehicleLoan{RemainingBalance: 700000, MonthlyPayment: 22260, APR: 0.09, RemainingMonths: 36, Tier: TierUsed}
	s.Purchases = append(s.Purchases, Purchase{Name: "Headphones", Cost: 15000, CurrentValue: 15000})
	s.Subscriptions = append(s.Subscriptions, Subscription{Name: "Gym membership", MonthlyCost: 5000})
	return s
}

func TestCloneSharesNoMemory(t *testing.T) {
	orig := sampleSnapshot()
	c := orig.Clone()

	c.VehicleLoan.RemainingMonths = 1
	c.Purchases[0].CurrentValue = 0
	c.Subscriptions[0].Name = "changed"
	c.Purchases = append(c.Purchases, Purchase{Name: "extra"})

	if orig.VehicleLoan.RemainingMonths != 36 {
		t.Errorf("expected loan months 36, got %d", orig.VehicleLoan.RemainingMonths)
	}
	if orig.Purchases[0].CurrentValue != 15000 {
		t.Errorf("expected current value 15000, got %d", orig.Purchases[0].CurrentValue)
	}
	if orig.Subscriptions[0].Name != "Gym membership" {
		t.Errorf("expected subscription name unchanged, got %s", orig.Subscriptions[0].Name)
	}
	if len(orig.Purchases) != 1 {
		t.Errorf("expected 1 purchase, got %d", len(orig.Purchases))
	}
}

func TestCloneNormalizesNilSlices(t *testing.T) {
	s := &Snapshot{}
	c := s.Clone()
	if c.Purchases == nil || c.Subscriptions == nil {
		t.Error("expected empty, non-nil slices")
	}
}

func TestSpendCarriesShortfall(t *testing.T) {
	s := &Snapshot{Cash: 3000}
	s.Spend(5000)
	if s.Cash != 0 {
		t.Errorf("expected cash 0, got %d", s.Cash)
	}
	if s.Revolving.Balance != 2000 {
		t.Errorf("expected balance 2000, got %d", s.Revolving.Balance)
	}
}

func TestTotalsAndNetWorth(t *testing.T) {
	s := sampleSnapshot()
	s.Revolving.Balance = 10000
	if got := s.TotalDebt(); got != 710000 {
		t.Errorf("expected debt 710000, got %d", got)
	}
	if got := s.RecurringTotal(); got != 5000 {
		t.Errorf("expected recurring 5000, got %d", got)
	}
	want := money.Cents(200000 + 15000 - 710000)
	if got := s.NetWorth(); got != want {
		t.Errorf("expected net worth %d, got %d", want, got)
	}
	if !s.HasSubscription("Gym membership") || s.HasSubscription("Phone plan") {
		t.Error("unexpected subscription lookup result")
	}
}

func TestUtilization(t *testing.T) {
	tests := []struct {
		name string
		r    RevolvingCredit
		want float64
	}{
		{"empty", RevolvingCredit{Limit: 50000}, 0},
		{"half", RevolvingCredit{Balance: 25000, Limit: 50000}, 0.5},
		{"over limit", RevolvingCredit{Balance: 75000, Limit: 50000}, 1.5},
		{"no limit owing", RevolvingCredit{Balance: 1}, 1},
		{"no limit clear", RevolvingCredit{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.r.Utilization(); got != tt.want {
				t.Errorf("expected %f, got %f", tt.want, got)
			}
		})
	}
}

func TestProfilesValidate(t *testing.T) {
	for name, p := range DefaultProfiles() {
		if err := p.Validate(); err != nil {
			t.Errorf("profile %s: unexpected error: %v", name, err)
		}
	}
	bad := DefaultProfiles()[ModeNormal]
	bad.CreditScore = 900
	if err := bad.Validate(); err == nil {
		t.Error("expected error for out-of-range credit score")
	}
	if _, err := DefaultProfiles().Lookup("nightmare"); err == nil {
		t.Error("expected error for unknown profile")
	}
}

func TestDecisionSetClone(t *testing.T) {
	d := DecisionSet{
		Offers:  []OfferDecision{{OfferID: "tempt-0-0", Action: Accept}},
		Vehicle: &VehicleDecision{Action: Accept, Tier: TierUsed, TermMonths: 36},
	}
	c := d.Clone()
	c.Offers[0].Action = Decline
	c.Vehicle.TermMonths = 72
	if d.Offers[0].Action != Accept || d.Vehicle.TermMonths != 36 {
		t.Error("expected clone to be independent of the original")
	}
	if len(d.Accepted()) != 1 || len(c.Accepted()) != 0 {
		t.Error("unexpected accepted counts")
	}
}
