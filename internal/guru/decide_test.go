package guru

import (
	"reflect"
	"testing"

	"github.com/talgya/finsim/internal/agents"
	"github.com/talgya/finsim/internal/economy"
	"github.com/talgya/finsim/internal/money"
)

func newSnapshot(cash money.Cents) *agents.Snapshot {
	s := agents.NewSnapshot(agents.DefaultProfiles()[agents.ModeNormal])
	s.Cash = cash
	return s
}

func offer(id string, kind economy.OfferKind, name, category string, cost money.Cents, happiness, health float64) economy.Offer {
	return economy.Offer{ID: id, Kind: kind, Name: name, Category: category, Cost: cost, HappinessBoost: happiness, HealthBoost: health}
}

func vehicles(month int) []economy.Offer {
	return []economy.Offer{
		{ID: "car-3-used", Month: month, Kind: economy.KindVehicle, Tier: agents.TierUsed, Cost: 800000},
		{ID: "car-3-mid", Month: month, Kind: economy.KindVehicle, Tier: agents.TierMid, Cost: 1800000},
		{ID: "car-3-new", Month: month, Kind: economy.KindVehicle, Tier: agents.TierNew, Cost: 3200000},
	}
}

func decisionFor(t *testing.T, d Decision, id string) agents.OfferDecision {
	t.Helper()
	for _, o := range d.Set.Offers {
		if o.OfferID == id {
			return o
		}
	}
	t.Fatalf("no decision for offer %s", id)
	return agents.OfferDecision{}
}

func TestLiquidityGateDeclinesEverything(t *testing.T) {
	offers := []economy.Offer{
		offer("tempt-3-0", economy.KindOneTime, "Charity donation", "charity", 5000, 6, 0),
		offer("tempt-3-1", economy.KindSubscription, "Gym membership", "health", 5000, 3, 7),
		offer("tempt-3-2", economy.KindOneTime, "Online course", "education", 15000, 1, 0),
		offer("tempt-3-3", economy.KindOneTime, "Friend's birthday gift", "gift", 3000, 5, 0),
		offer("tempt-3-4", economy.KindSubscription, "Streaming service", "entertainment", 1500, 2, 0),
	}
	offers = append(offers, vehicles(3)...)

	s := newSnapshot(149999)
	s.CreditScore = 800
	d := DefaultPolicy().Decide(s, offers)

	if len(d.Set.Offers) != 5 {
		t.Fatalf("expected 5 offer decisions, got %d", len(d.Set.Offers))
	}
	for _, o := range d.Set.Offers {
		if o.Action != agents.Decline {
			t.Errorf("offer %s: expected decline, got %s", o.OfferID, o.Action)
		}
	}
	if d.Set.Vehicle == nil || d.Set.Vehicle.Action != agents.Decline {
		t.Errorf("expected vehicle decline, got %+v", d.Set.Vehicle)
	}
	if len(d.Rationale()) == 0 {
		t.Error("expected a rationale for the gate")
	}
	for _, v := range d.Verdicts {
		if v.Rule == RuleEnvelope || v.Rule == RuleOneTime || v.Rule == RuleSubscription {
			t.Errorf("expected ladder to skip %s when gated", v.Rule)
		}
	}
}

func TestTriagePrefersGrowthAndCapsItems(t *testing.T) {
	offers := []economy.Offer{
		offer("tempt-1-0", economy.KindOneTime, "Headphones", "tech", 15000, 4, 0),
		offer("tempt-1-1", economy.KindOneTime, "Charity donation", "charity", 5000, 6, 0),
		offer("tempt-1-2", economy.KindSubscription, "Gym membership", "health", 5000, 3, 7),
	}
	d := DefaultPolicy().Decide(newSnapshot(200000), offers)

	if got := decisionFor(t, d, "tempt-1-2"); got.Action != agents.Accept || got.Payment != agents.PayCash {
		t.Errorf("expected gym accepted with cash, got %+v", got)
	}
	if got := decisionFor(t, d, "tempt-1-1"); got.Action != agents.Accept {
		t.Errorf("expected charity accepted, got %+v", got)
	}
	if got := decisionFor(t, d, "tempt-1-0"); got.Action != agents.Decline {
		t.Errorf("expected headphones declined after item cap, got %+v", got)
	}
	// Sorted by desirability: gym (20), charity (16), headphones (4).
	wantOrder := []string{"tempt-1-2", "tempt-1-1", "tempt-1-0"}
	for i, id := range wantOrder {
		if d.Set.Offers[i].OfferID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, d.Set.Offers[i].OfferID)
		}
	}
}

func TestOneTimeRespectsEnvelope(t *testing.T) {
	tests := []struct {
		name  string
		cash  money.Cents
		offer economy.Offer
		want  agents.Action
	}{
		{"at cap", 200000, offer("a", economy.KindOneTime, "Running shoes", "health", 12000, 2, 4), agents.Accept},
		{"over cap", 200000, offer("a", economy.KindOneTime, "Yoga block set", "health", 12001, 2, 4), agents.Decline},
		{"over single limit", 2000000, offer("a", economy.KindOneTime, "Professional certification", "education", 36000, 2, 0), agents.Decline},
		{"not growth and pricey", 2000000, offer("a", economy.KindOneTime, "Laptop upgrade", "tech", 59900, 2, 0), agents.Decline},
		{"cheap with boost", 200000, offer("a", economy.KindOneTime, "Movie night", "social", 3500, 4, 0), agents.Accept},
		{"cheap without boost", 200000, offer("a", economy.KindOneTime, "Index fund contribution", "investments", 10000, 0, 0), agents.Decline},
		{"just above the fund target", 152000, offer("a", economy.KindOneTime, "Charity donation", "charity", 5000, 6, 0), agents.Accept},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := DefaultPolicy().Decide(newSnapshot(tt.cash), []economy.Offer{tt.offer})
			if got := decisionFor(t, d, "a"); got.Action != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got.Action)
			}
		})
	}
}

func TestSubscriptionRules(t *testing.T) {
	gym := offer("s", economy.KindSubscription, "Gym membership", "health", 5000, 3, 7)
	streaming := offer("s", economy.KindSubscription, "Streaming service", "entertainment", 1500, 2, 0)

	t.Run("not growth", func(t *testing.T) {
		d := DefaultPolicy().Decide(newSnapshot(500000), []economy.Offer{streaming})
		if got := decisionFor(t, d, "s"); got.Action != agents.Decline {
			t.Errorf("expected decline, got %s", got.Action)
		}
	})

	t.Run("recurring cap", func(t *testing.T) {
		s := newSnapshot(500000)
		s.Subscriptions = []agents.Subscription{{Name: "Car insurance", MonthlyCost: 12000}, {Name: "Phone plan", MonthlyCost: 7000}}
		d := DefaultPolicy().Decide(s, []economy.Offer{gym})
		if got := decisionFor(t, d, "s"); got.Action != agents.Decline {
			t.Errorf("expected decline, got %s", got.Action)
		}
	})

	t.Run("already subscribed", func(t *testing.T) {
		s := newSnapshot(500000)
		s.Subscriptions = []agents.Subscription{{Name: "Gym membership", MonthlyCost: 5000}}
		d := DefaultPolicy().Decide(s, []economy.Offer{gym})
		if got := decisionFor(t, d, "s"); got.Action != agents.Decline {
			t.Errorf("expected decline, got %s", got.Action)
		}
	})
}

func TestVehicleRules(t *testing.T) {
	tests := []struct {
		name   string
		cash   money.Cents
		score  int
		loan   bool
		action agents.Action
	}{
		{"affordable with good credit", 300000, 700, false, agents.Accept},
		{"credit too low", 300000, 679, false, agents.Decline},
		{"down payment exactly covered", 150000, 700, false, agents.Accept},
		{"already financing", 300000, 700, true, agents.Decline},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSnapshot(tt.cash)
			s.CreditScore = tt.score
			if tt.loan {
				s.VehicleLoan = &agents.VehicleLoan{RemainingBalance: 1000, RemainingMonths: 2, Tier: agents.TierUsed}
			}
			d := DefaultPolicy().Decide(s, vehicles(3))
			if d.Set.Vehicle == nil {
				t.Fatal("expected a vehicle decision")
			}
			if d.Set.Vehicle.Action != tt.action {
				t.Errorf("expected %s, got %s", tt.action, d.Set.Vehicle.Action)
			}
			if tt.action == agents.Accept && (d.Set.Vehicle.Tier != agents.TierUsed || d.Set.Vehicle.TermMonths != 36) {
				t.Errorf("expected used tier over 36 months, got %+v", d.Set.Vehicle)
			}
		})
	}
}

func TestVehicleDownPaymentMustFitAboveBuffer(t *testing.T) {
	p := DefaultPolicy()
	p.Buffer = 120000
	s := newSnapshot(200000)
	s.CreditScore = 760
	d := p.Decide(s, vehicles(3))
	if d.Set.Vehicle == nil || d.Set.Vehicle.Action != agents.Decline {
		t.Errorf("expected decline when only 80000 sits above the buffer, got %+v", d.Set.Vehicle)
	}
}

func TestNoVehicleDecisionWithoutVehicleOffers(t *testing.T) {
	d := DefaultPolicy().Decide(newSnapshot(300000), nil)
	if d.Set.Vehicle != nil {
		t.Errorf("expected no vehicle decision, got %+v", d.Set.Vehicle)
	}
}

func TestRevolvingPayment(t *testing.T) {
	tests := []struct {
		name    string
		cash    money.Cents
		balance money.Cents
		want    agents.PaymentKind
	}{
		{"no balance", 200000, 0, agents.PaymentMinimum},
		{"cash covers balance", 200000, 10000, agents.PaymentFull},
		{"cash short", 100000, 300000, agents.PaymentMinimum},
		{"gated but covered", 100000, 40000, agents.PaymentFull},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSnapshot(tt.cash)
			s.Revolving.Balance = tt.balance
			d := DefaultPolicy().Decide(s, nil)
			if d.Set.Payment.Kind != tt.want {
				t.Errorf("expected %s, got %s", tt.want, d.Set.Payment.Kind)
			}
		})
	}
}

func TestDecideIsPure(t *testing.T) {
	offers := economy.NewGenerator(economy.DefaultCatalog()).Generate(newSnapshot(200000), "pure")
	s := newSnapshot(400000)
	s.CreditScore = 720
	before := s.Clone()

	a := DefaultPolicy().Decide(s, offers)
	b := DefaultPolicy().Decide(s, offers)
	if !reflect.DeepEqual(a, b) {
		t.Error("expected identical decisions for identical input")
	}
	if !reflect.DeepEqual(before, s) {
		t.Error("expected snapshot to be left untouched")
	}
}

func TestPolicyValidate(t *testing.T) {
	if err := DefaultPolicy().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p := DefaultPolicy()
	p.DiscretionaryRate = 1.5
	if err := p.Validate(); err == nil {
		t.Error("expected error for discretionary rate above 1")
	}
	p = DefaultPolicy()
	p.VehicleTier = "luxury"
	if err := p.Validate(); err == nil {
		t.Error("expected error for unknown tier")
	}
}
