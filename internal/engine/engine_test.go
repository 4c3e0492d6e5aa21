package engine

import (
	"fmt"
	"math/rand"
	"reflect"
	"testing"

	"github.com/talgya/finsim/internal/agents"
	"github.com/talgya/finsim/internal/economy"
	"github.com/talgya/finsim/internal/guru"
	"github.com/talgya/finsim/internal/money"
)

func newTestEngine() *Engine {
	return New(economy.NewGenerator(economy.DefaultCatalog()), guru.DefaultPolicy())
}

func normalStart() *agents.Snapshot {
	return agents.NewSnapshot(agents.DefaultProfiles()[agents.ModeNormal])
}

func concertOffer(month int) economy.Offer {
	return economy.Offer{
		ID:               "tempt-0-0",
		Month:            month,
		Kind:             economy.KindOneTime,
		Name:             "Concert Ticket",
		Category:         "entertainment",
		Cost:             5000,
		DepreciationRate: 1,
		HappinessBoost:   8,
	}
}

func gymOffer(id string, month int) economy.Offer {
	return economy.Offer{
		ID:             id,
		Month:          month,
		Kind:           economy.KindSubscription,
		Name:           "Gym Membership",
		Category:       "health",
		Cost:           3000,
		HealthBoost:    4,
		HappinessBoost: 1,
	}
}

func TestAdvanceCashPurchase(t *testing.T) {
	e := newTestEngine()
	in := Input{
		Player: normalStart(),
		Guru:   normalStart(),
		PlayerDecisions: agents.DecisionSet{
			Offers:  []agents.OfferDecision{{OfferID: "tempt-0-0", Action: agents.Accept, Payment: agents.PayCash}},
			Payment: agents.RevolvingPayment{Kind: agents.PaymentMinimum},
		},
		Offers: []economy.Offer{concertOffer(0)},
		Key:    "run-1",
	}

	res := e.Advance(in)
	p := res.Player
	if p.Cash != 315000 {
		t.Errorf("expected cash 315000, got %d", p.Cash)
	}
	if len(p.Purchases) != 1 {
		t.Fatalf("expected 1 purchase, got %d", len(p.Purchases))
	}
	got := p.Purchases[0]
	if got.CurrentValue != 5000 || got.Month != 0 || got.PaymentMethod != agents.PayCash {
		t.Errorf("unexpected purchase %+v", got)
	}
	if got.Icon != economy.CategoryIcon("entertainment") {
		t.Errorf("expected category icon, got %q", got.Icon)
	}
	if p.Month != 1 {
		t.Errorf("expected month 1, got %d", p.Month)
	}
	// +2 debt free, +1 low utilization, +5 month-0 anniversary.
	if p.CreditScore != 628 {
		t.Errorf("expected credit score 628, got %d", p.CreditScore)
	}
	if p.Revolving.Balance != 0 {
		t.Errorf("expected no revolving balance, got %d", p.Revolving.Balance)
	}
}

func TestAdvanceMinimumPaymentAfterInterest(t *testing.T) {
	start := &agents.Snapshot{
		Cash:        50000,
		Revolving:   agents.RevolvingCredit{Balance: 100000, Limit: 500000, APR: 0.24},
		CreditScore: 650,
		Happiness:   50,
		Health:      50,
	}
	res := newTestEngine().Advance(Input{
		Player:          start,
		Guru:            start,
		PlayerDecisions: agents.DefaultDecisions(),
		Key:             "run-2",
	})

	p := res.Player
	if p.Revolving.Balance != 99500 {
		t.Errorf("expected balance 99500, got %d", p.Revolving.Balance)
	}
	if p.Cash != 47500 {
		t.Errorf("expected cash 47500, got %d", p.Cash)
	}
	if p.LifetimeInterest != 2000 {
		t.Errorf("expected lifetime interest 2000, got %d", p.LifetimeInterest)
	}
}

func TestAdvanceInterestAccruesBeforePayment(t *testing.T) {
	start := normalStart()
	start.Revolving.Balance = 100000
	res := newTestEngine().Advance(Input{
		Player:          start,
		Guru:            start,
		PlayerDecisions: agents.DecisionSet{Payment: agents.RevolvingPayment{Kind: agents.PaymentFull}},
		Key:             "run-3",
	})

	p := res.Player
	if p.Revolving.Balance != 0 {
		t.Errorf("expected balance paid off, got %d", p.Revolving.Balance)
	}
	// 200000 + 240000 - 120000 - (100000 + 2000 interest)
	if p.Cash != 218000 {
		t.Errorf("expected cash 218000, got %d", p.Cash)
	}
	if p.LifetimeInterest != 2000 {
		t.Errorf("expected lifetime interest 2000, got %d", p.LifetimeInterest)
	}
}

func TestAdvanceDoesNotModifyInputs(t *testing.T) {
	e := newTestEngine()
	player := normalStart()
	player.Purchases = append(player.Purchases, agents.Purchase{Name: "Bike", Cost: 20000, CurrentValue: 20000, DepreciationRate: 0.2})
	offers := e.Offers.Generate(player, "run-4")
	decisions := agents.DecisionSet{
		Offers:       []agents.OfferDecision{{OfferID: offers[0].ID, Action: agents.Accept}},
		Liquidations: []agents.Liquidation{{Index: 0}},
		Payment:      agents.RevolvingPayment{Kind: agents.PaymentMinimum},
	}
	in := Input{Player: player, Guru: normalStart(), PlayerDecisions: decisions, Offers: offers, Key: "run-4"}

	before := Input{
		Player:          in.Player.Clone(),
		Guru:            in.Guru.Clone(),
		PlayerDecisions: in.PlayerDecisions.Clone(),
		Offers:          economy.CloneOffers(in.Offers),
		Key:             in.Key,
	}
	e.Advance(in)

	if !reflect.DeepEqual(before, in) {
		t.Error("Advance modified its input")
	}
}

func TestAdvanceDeterministic(t *testing.T) {
	e := newTestEngine()
	player := normalStart()
	offers := e.Offers.Generate(player, "seed-key")
	in := Input{Player: player, Guru: normalStart(), PlayerDecisions: agents.DefaultDecisions(), Offers: offers, Key: "seed-key"}

	first := e.Advance(in)
	second := e.Advance(in)
	if !reflect.DeepEqual(first, second) {
		t.Error("same input produced different results")
	}
}

func TestAdvanceParallelMatchesSequential(t *testing.T) {
	seq := newTestEngine()
	par := newTestEngine()
	par.Parallel = true

	player, guruSnap := normalStart(), normalStart()
	offers := seq.Offers.Generate(player, "parallel")
	for month := 0; month < 24; month++ {
		decisions := agents.DefaultDecisions()
		for _, o := range offers {
			if o.Kind != economy.KindVehicle {
				decisions.Offers = append(decisions.Offers, agents.OfferDecision{OfferID: o.ID, Action: agents.Accept, Payment: agents.PayCredit})
				break
			}
		}
		in := Input{Player: player, Guru: guruSnap, PlayerDecisions: decisions, Offers: offers, Key: "parallel"}
		a := seq.Advance(in)
		b := par.Advance(in)
		if !reflect.DeepEqual(a, b) {
			t.Fatalf("month %d: parallel result differs from sequential", month)
		}
		player, guruSnap, offers = a.Player, a.Guru, a.NextOffers
	}
}

func TestAdvanceSkipsInvalidReferences(t *testing.T) {
	e := newTestEngine()
	player := normalStart()
	offers := []economy.Offer{concertOffer(0)}
	base := e.Advance(Input{Player: player, Guru: player, PlayerDecisions: agents.DefaultDecisions(), Offers: offers, Key: "k"})

	bad := agents.DecisionSet{
		Offers: []agents.OfferDecision{
			{OfferID: "tempt-9-9", Action: agents.Accept},
			{OfferID: "tempt-0-0", Action: agents.Decline},
		},
		Vehicle:      &agents.VehicleDecision{Action: agents.Accept, Tier: agents.TierNew},
		Liquidations: []agents.Liquidation{{Index: 3}, {Index: -1}},
		Payment:      agents.RevolvingPayment{Kind: agents.PaymentMinimum},
	}
	res := e.Advance(Input{Player: player, Guru: player, PlayerDecisions: bad, Offers: offers, Key: "k"})

	if !reflect.DeepEqual(base.Player, res.Player) {
		t.Error("invalid references changed the player's state")
	}
	skipped := 0
	for _, ev := range res.Events {
		if ev.Actor == agents.ActorPlayer && ev.Category == "skipped" {
			skipped++
		}
	}
	if skipped != 4 {
		t.Errorf("expected 4 skipped items, got %d", skipped)
	}
}

func TestAdvanceDuplicateAcceptAppliesOnce(t *testing.T) {
	player := normalStart()
	accept := agents.OfferDecision{OfferID: "tempt-0-0", Action: agents.Accept}
	res := newTestEngine().Advance(Input{
		Player:          player,
		Guru:            player,
		PlayerDecisions: agents.DecisionSet{Offers: []agents.OfferDecision{accept, accept}},
		Offers:          []economy.Offer{concertOffer(0)},
		Key:             "k",
	})
	if len(res.Player.Purchases) != 1 {
		t.Errorf("expected 1 purchase, got %d", len(res.Player.Purchases))
	}
}

func TestAdvanceSubscriptionIsIdempotent(t *testing.T) {
	e := newTestEngine()
	player := normalStart()
	for month := 0; month < 3; month++ {
		id := fmt.Sprintf("tempt-%d-0", month)
		res := e.Advance(Input{
			Player:          player,
			Guru:            normalStart(),
			PlayerDecisions: agents.DecisionSet{Offers: []agents.OfferDecision{{OfferID: id, Action: agents.Accept}}},
			Offers:          []economy.Offer{gymOffer(id, month)},
			Key:             "subs",
		})
		player = res.Player
	}
	if len(player.Subscriptions) != 1 {
		t.Fatalf("expected 1 subscription, got %d", len(player.Subscriptions))
	}
	if player.RecurringTotal() != 3000 {
		t.Errorf("expected recurring 3000, got %d", player.RecurringTotal())
	}
}

func TestAdvanceCreditPurchaseChargesRevolving(t *testing.T) {
	player := normalStart()
	res := newTestEngine().Advance(Input{
		Player: player,
		Guru:   player,
		PlayerDecisions: agents.DecisionSet{
			Offers:  []agents.OfferDecision{{OfferID: "tempt-0-0", Action: agents.Accept, Payment: agents.PayCredit}},
			Payment: agents.RevolvingPayment{Kind: agents.PaymentCustom, Amount: 0},
		},
		Offers: []economy.Offer{concertOffer(0)},
		Key:    "k",
	})
	p := res.Player
	// 5000 charged, 100 interest, nothing paid.
	if p.Revolving.Balance != 5100 {
		t.Errorf("expected balance 5100, got %d", p.Revolving.Balance)
	}
	if p.Cash != 320000 {
		t.Errorf("expected cash 320000, got %d", p.Cash)
	}
	// Nothing paid, but the cash left covers the next minimum.
	if p.CreditScore != 627 {
		t.Errorf("expected credit score 627, got %d", p.CreditScore)
	}
}

func TestAdvanceCreditScoreFollowsCashLeft(t *testing.T) {
	covered := normalStart()
	covered.Revolving.Balance = 10000

	// Pays the minimum but is left with nothing toward the next one.
	strapped := &agents.Snapshot{
		Month:       5,
		Cash:        2500,
		Revolving:   agents.RevolvingCredit{Balance: 100000, Limit: 500000, APR: 0.24},
		CreditScore: 650,
		Happiness:   50,
		Health:      50,
	}

	tests := []struct {
		name     string
		start    *agents.Snapshot
		payment  agents.RevolvingPayment
		want     int
		wantCash money.Cents
	}{
		// 10200 owed after interest, 320000 cash left: +1 covered, +1 utilization, +5 anniversary.
		{"unpaid but covered", covered, agents.RevolvingPayment{Kind: agents.PaymentCustom, Amount: 0}, 627, 320000},
		// 2500 minimum on 102000 paid from 2500 cash: -50 uncovered, +1 utilization.
		{"paid but uncovered", strapped, agents.RevolvingPayment{Kind: agents.PaymentMinimum}, 601, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := newTestEngine().Advance(Input{
				Player:          tt.start,
				Guru:            tt.start,
				PlayerDecisions: agents.DecisionSet{Payment: tt.payment},
				Key:             "score",
			})
			p := res.Player
			if p.Cash != tt.wantCash {
				t.Errorf("expected cash %d, got %d", tt.wantCash, p.Cash)
			}
			if p.CreditScore != tt.want {
				t.Errorf("expected credit score %d, got %d", tt.want, p.CreditScore)
			}
			dropped := false
			for _, ev := range res.Events {
				if ev.Actor == agents.ActorPlayer && ev.Category == "credit" {
					dropped = true
				}
			}
			if dropped != (tt.want < tt.start.CreditScore) {
				t.Errorf("credit event recorded = %v, score %d -> %d", dropped, tt.start.CreditScore, p.CreditScore)
			}
		})
	}
}

func TestAdvanceLiquidationCapsAtCurrentValue(t *testing.T) {
	player := normalStart()
	player.Month = 4
	player.Purchases = []agents.Purchase{{Month: 1, Name: "Guitar", Cost: 20000, CurrentValue: 12000, DepreciationRate: 0.1}}
	res := newTestEngine().Advance(Input{
		Player: player,
		Guru:   player,
		PlayerDecisions: agents.DecisionSet{
			Liquidations: []agents.Liquidation{{Index: 0, SalePrice: 90000}, {Index: 0, SalePrice: 100}},
			Payment:      agents.RevolvingPayment{Kind: agents.PaymentMinimum},
		},
		Key: "k",
	})
	p := res.Player
	if p.Cash != 332000 {
		t.Errorf("expected cash 332000, got %d", p.Cash)
	}
	if p.Purchases[0].CurrentValue != 0 {
		t.Errorf("expected sold item to have no value, got %d", p.Purchases[0].CurrentValue)
	}

	var adjusted, skipped []Event
	for _, ev := range res.Events {
		if ev.Actor != agents.ActorPlayer {
			continue
		}
		switch ev.Category {
		case "adjusted":
			adjusted = append(adjusted, ev)
		case "skipped":
			skipped = append(skipped, ev)
		}
	}
	if len(adjusted) != 1 {
		t.Fatalf("expected 1 adjusted event, got %d", len(adjusted))
	}
	want := "sale price $900 for Guitar adjusted to its current value $120"
	if adjusted[0].Description != want {
		t.Errorf("expected %q, got %q", want, adjusted[0].Description)
	}
	if len(skipped) != 1 {
		t.Errorf("expected the second sale to be skipped, got %d skipped events", len(skipped))
	}
}

func TestAdvanceLiquidationAtCurrentValueIsNotAdjusted(t *testing.T) {
	player := normalStart()
	player.Month = 4
	player.Purchases = []agents.Purchase{{Month: 1, Name: "Guitar", Cost: 20000, CurrentValue: 12000}}
	res := newTestEngine().Advance(Input{
		Player: player,
		Guru:   player,
		PlayerDecisions: agents.DecisionSet{
			Liquidations: []agents.Liquidation{{Index: 0}},
			Payment:      agents.RevolvingPayment{Kind: agents.PaymentMinimum},
		},
		Key: "k",
	})
	for _, ev := range res.Events {
		if ev.Category == "adjusted" {
			t.Errorf("unexpected adjustment: %s", ev.Description)
		}
	}
	if res.Player.Cash != 332000 {
		t.Errorf("expected cash 332000, got %d", res.Player.Cash)
	}
}

func TestAdvanceFinancesVehicle(t *testing.T) {
	player := normalStart()
	player.Month = 3
	player.CreditScore = 650
	used := economy.Offer{ID: "car-3-used", Month: 3, Kind: economy.KindVehicle, Name: "Reliable used sedan", Category: "transportation", Cost: 800000, Tier: agents.TierUsed}

	res := newTestEngine().Advance(Input{
		Player: player,
		Guru:   player,
		PlayerDecisions: agents.DecisionSet{
			Vehicle: &agents.VehicleDecision{Action: agents.Accept, Tier: agents.TierUsed},
			Payment: agents.RevolvingPayment{Kind: agents.PaymentMinimum},
		},
		Offers: []economy.Offer{used},
		Key:    "k",
	})
	loan := res.Player.VehicleLoan
	if loan == nil {
		t.Fatal("expected a vehicle loan")
	}
	want := agents.VehicleLoan{RemainingBalance: 700000, MonthlyPayment: 22260, APR: 0.09, RemainingMonths: 36, Tier: agents.TierUsed}
	if *loan != want {
		t.Errorf("expected %+v, got %+v", want, *loan)
	}
	// 200000 + 240000 - 120000 - 100000 down
	if res.Player.Cash != 220000 {
		t.Errorf("expected cash 220000, got %d", res.Player.Cash)
	}
}

func TestAdvanceRejectsUnsupportedTerm(t *testing.T) {
	player := normalStart()
	used := economy.Offer{ID: "car-0-used", Kind: economy.KindVehicle, Cost: 800000, Tier: agents.TierUsed}
	res := newTestEngine().Advance(Input{
		Player:          player,
		Guru:            player,
		PlayerDecisions: agents.DecisionSet{Vehicle: &agents.VehicleDecision{Action: agents.Accept, Tier: agents.TierUsed, TermMonths: 48}},
		Offers:          []economy.Offer{used},
		Key:             "k",
	})
	if res.Player.VehicleLoan != nil {
		t.Error("expected 48-month term to be skipped")
	}
}

func TestAdvanceLoanEndsOnFinalPayment(t *testing.T) {
	player := normalStart()
	player.VehicleLoan = &agents.VehicleLoan{RemainingBalance: 10000, MonthlyPayment: 10075, APR: 0.09, RemainingMonths: 1, Tier: agents.TierUsed}

	res := newTestEngine().Advance(Input{Player: player, Guru: player, PlayerDecisions: agents.DefaultDecisions(), Key: "k"})
	p := res.Player
	if p.VehicleLoan != nil {
		t.Errorf("expected loan to be closed, got %+v", *p.VehicleLoan)
	}
	if p.LifetimeInterest != 75 {
		t.Errorf("expected 75 interest, got %d", p.LifetimeInterest)
	}
	if p.Cash != 309925 {
		t.Errorf("expected cash 309925, got %d", p.Cash)
	}
}

func TestAdvanceLoanMonthsDecrease(t *testing.T) {
	e := newTestEngine()
	player := normalStart()
	player.VehicleLoan = &agents.VehicleLoan{RemainingBalance: 700000, MonthlyPayment: 22260, APR: 0.09, RemainingMonths: 36, Tier: agents.TierUsed}

	for month := 0; month < 36; month++ {
		prev := player.VehicleLoan.RemainingMonths
		player = e.Advance(Input{Player: player, Guru: normalStart(), PlayerDecisions: agents.DefaultDecisions(), Key: "loan"}).Player
		if player.VehicleLoan == nil {
			if month != 35 {
				t.Fatalf("loan closed early at month %d", month)
			}
			break
		}
		if player.VehicleLoan.RemainingMonths != prev-1 {
			t.Fatalf("month %d: expected %d months left, got %d", month, prev-1, player.VehicleLoan.RemainingMonths)
		}
	}
	if player.VehicleLoan != nil {
		t.Errorf("expected loan closed after 36 months, %d left", player.VehicleLoan.RemainingMonths)
	}
}

func TestAdvanceDepreciatesOlderPurchases(t *testing.T) {
	player := normalStart()
	player.Month = 5
	player.Purchases = []agents.Purchase{
		{Month: 2, Name: "Console", Cost: 19900, CurrentValue: 19900, DepreciationRate: 0.15},
		{Month: 4, Name: "Snacks", Cost: 500, CurrentValue: 20, DepreciationRate: 1},
	}
	res := newTestEngine().Advance(Input{Player: player, Guru: player, PlayerDecisions: agents.DefaultDecisions(), Key: "k"})
	got := res.Player.Purchases
	if got[0].CurrentValue != 19751 {
		t.Errorf("expected 19751, got %d", got[0].CurrentValue)
	}
	if got[1].CurrentValue != 0 {
		t.Errorf("expected depreciation to floor at 0, got %d", got[1].CurrentValue)
	}
}

func TestAdvanceMilestoneRaise(t *testing.T) {
	player := normalStart()
	player.Month = 6
	res := newTestEngine().Advance(Input{Player: player, Guru: player, PlayerDecisions: agents.DefaultDecisions(), Key: "raise"})

	income := res.Player.MonthlyIncome
	lo := 240000 + money.Floor(240000, 0.05)
	hi := 240000 + money.Floor(240000, 0.12)
	if income < lo || income > hi {
		t.Errorf("expected income in [%d, %d], got %d", lo, hi, income)
	}
	if res.Guru.MonthlyIncome != income {
		t.Errorf("expected both agents to get the same raise, got %d and %d", income, res.Guru.MonthlyIncome)
	}

	player.Month = 7
	res = newTestEngine().Advance(Input{Player: player, Guru: player, PlayerDecisions: agents.DefaultDecisions(), Key: "raise"})
	if res.Player.MonthlyIncome != 240000 {
		t.Errorf("expected no raise off-milestone, got %d", res.Player.MonthlyIncome)
	}
}

func TestAdvanceGuruRationale(t *testing.T) {
	e := newTestEngine()
	player := normalStart()
	offers := e.Offers.Generate(player, "guru")
	res := e.Advance(Input{Player: player, Guru: normalStart(), PlayerDecisions: agents.DefaultDecisions(), Offers: offers, Key: "guru"})

	if len(res.GuruRationale()) == 0 {
		t.Error("expected guru rationale")
	}
	if res.Guru.Month != 1 || res.Player.Month != 1 {
		t.Errorf("expected both agents at month 1, got %d and %d", res.Player.Month, res.Guru.Month)
	}
	if len(res.NextOffers) == 0 {
		t.Fatal("expected next month's offers")
	}
	for _, o := range res.NextOffers {
		if o.Month != 1 {
			t.Errorf("expected next offers stamped month 1, got %d", o.Month)
		}
	}
}

// TestAdvanceBoundsUnderArbitraryDecisions feeds random, frequently invalid
// decision sets through many months and checks that state stays in range.
func TestAdvanceBoundsUnderArbitraryDecisions(t *testing.T) {
	e := newTestEngine()
	rng := rand.New(rand.NewSource(7))
	for _, mode := range []string{agents.ModeNormal, agents.ModeHard} {
		player := agents.NewSnapshot(agents.DefaultProfiles()[mode])
		guruSnap := player.Clone()
		offers := e.Offers.Generate(player, "fuzz-"+mode)

		for month := 0; month < 60; month++ {
			d := randomDecisions(rng, offers, len(player.Purchases))
			res := e.Advance(Input{Player: player, Guru: guruSnap, PlayerDecisions: d, Offers: offers, Key: "fuzz-" + mode})
			for _, s := range []*agents.Snapshot{res.Player, res.Guru} {
				checkBounds(t, mode, month, s)
			}
			player, guruSnap, offers = res.Player, res.Guru, res.NextOffers
		}
	}
}

func randomDecisions(rng *rand.Rand, offers []economy.Offer, purchases int) agents.DecisionSet {
	d := agents.DecisionSet{}
	for _, o := range offers {
		if rng.Intn(2) == 0 {
			continue
		}
		method := agents.PayCash
		if rng.Intn(2) == 0 {
			method = agents.PayCredit
		}
		d.Offers = append(d.Offers, agents.OfferDecision{OfferID: o.ID, Action: agents.Accept, Payment: method})
	}
	if rng.Intn(4) == 0 {
		d.Offers = append(d.Offers, agents.OfferDecision{OfferID: "bogus", Action: agents.Accept})
	}
	if rng.Intn(3) == 0 {
		tiers := []agents.VehicleTier{agents.TierUsed, agents.TierMid, agents.TierNew, "hover"}
		d.Vehicle = &agents.VehicleDecision{Action: agents.Accept, Tier: tiers[rng.Intn(len(tiers))], TermMonths: []int{0, 36, 60, 72, 13}[rng.Intn(5)]}
	}
	if rng.Intn(3) == 0 {
		d.Liquidations = append(d.Liquidations, agents.Liquidation{Index: rng.Intn(purchases+2) - 1, SalePrice: money.Cents(rng.Intn(50000) - 1000)})
	}
	kinds := []agents.PaymentKind{agents.PaymentMinimum, agents.PaymentFull, agents.PaymentCustom, "weird"}
	d.Payment = agents.RevolvingPayment{Kind: kinds[rng.Intn(len(kinds))], Amount: money.Cents(rng.Intn(300000) - 50000)}
	return d
}

func checkBounds(t *testing.T, mode string, month int, s *agents.Snapshot) {
	t.Helper()
	if s.Cash < 0 {
		t.Errorf("%s month %d: negative cash %d", mode, month, s.Cash)
	}
	if s.Revolving.Balance < 0 {
		t.Errorf("%s month %d: negative revolving balance %d", mode, month, s.Revolving.Balance)
	}
	if s.CreditScore < agents.MinCreditScore || s.CreditScore > agents.MaxCreditScore {
		t.Errorf("%s month %d: credit score %d out of range", mode, month, s.CreditScore)
	}
	for name, v := range map[string]float64{"stress": s.Stress, "happiness": s.Happiness, "health": s.Health} {
		if v < agents.MinWellbeing || v > agents.MaxWellbeing {
			t.Errorf("%s month %d: %s %.2f out of range", mode, month, name, v)
		}
	}
	for _, p := range s.Purchases {
		if p.CurrentValue < 0 {
			t.Errorf("%s month %d: %s has negative value", mode, month, p.Name)
		}
	}
	if s.VehicleLoan != nil && (s.VehicleLoan.RemainingBalance < 0 || s.VehicleLoan.RemainingMonths <= 0) {
		t.Errorf("%s month %d: invalid loan %+v", mode, month, *s.VehicleLoan)
	}
}
