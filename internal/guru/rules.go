package guru

import (
	"fmt"
	"sort"

	"github.com/talgya/finsim/internal/agents"
	"github.com/talgya/finsim/internal/economy"
	"github.com/talgya/finsim/internal/money"
)

// evaluation is the scratch state threaded down the ladder for one call.
type evaluation struct {
	policy Policy
	snap   *agents.Snapshot
	offers []economy.Offer

	gated     bool
	available money.Cents // cash above the buffer
	cap       money.Cents // discretionary spend allowed this month
	spent     money.Cents
	items     int
	recurring money.Cents // new recurring cost accepted this month
}

type rule struct {
	id      RuleID
	applies func(*evaluation) bool
	apply   func(*evaluation) []Verdict
}

// ladder is evaluated top to bottom. A nil applies means always.
var ladder = []rule{
	{RuleLiquidityGate, nil, liquidityGate},
	{RuleEnvelope, ungated, spendingEnvelope},
	{RuleOneTime, ungated, triageOffers},
	{RuleVehicle, vehicleOnMenu, triageVehicle},
	{RulePayment, nil, revolvingPayment},
}

func ungated(ev *evaluation) bool { return !ev.gated }

func vehicleOnMenu(ev *evaluation) bool {
	if ev.gated {
		return false
	}
	for _, o := range ev.offers {
		if o.Kind == economy.KindVehicle {
			return true
		}
	}
	return false
}

func liquidityGate(ev *evaluation) []Verdict {
	p := ev.policy
	if ev.snap.Cash >= p.EmergencyFundTarget {
		return nil
	}
	ev.gated = true

	out := []Verdict{{
		Rule:    RuleLiquidityGate,
		Outcome: OutcomeNote,
		Rationale: fmt.Sprintf("Building emergency fund (%s/%s), declining all non-essentials",
			ev.snap.Cash, p.EmergencyFundTarget),
	}}
	vehicles := false
	for _, o := range ev.offers {
		if o.Kind == economy.KindVehicle {
			vehicles = true
			continue
		}
		out = append(out, Verdict{
			Rule:    RuleLiquidityGate,
			Outcome: OutcomeDecline,
			Offer:   &agents.OfferDecision{OfferID: o.ID, Action: agents.Decline},
		})
	}
	if vehicles {
		out = append(out, Verdict{
			Rule:      RuleLiquidityGate,
			Outcome:   OutcomeDecline,
			Rationale: "Declining vehicle, emergency fund not complete",
			Vehicle:   &agents.VehicleDecision{Action: agents.Decline},
		})
	}
	return out
}

func spendingEnvelope(ev *evaluation) []Verdict {
	p := ev.policy
	ev.available = money.Max(0, ev.snap.Cash-p.Buffer)
	ev.cap = money.Round(ev.snap.MonthlyIncome, p.DiscretionaryRate)
	return []Verdict{{
		Rule:    RuleEnvelope,
		Outcome: OutcomeNote,
		Rationale: fmt.Sprintf("Emergency fund complete. Buffer kept: %s. Monthly fun cap: %s",
			p.Buffer, ev.cap),
	}}
}

func boost(o economy.Offer) float64 { return o.HappinessBoost + o.HealthBoost }

func (p Policy) desirability(o economy.Offer) float64 {
	score := boost(o)
	if p.growth(o.Category) {
		score += p.GrowthBonus
	}
	return score
}

func triageOffers(ev *evaluation) []Verdict {
	p := ev.policy
	menu := make([]economy.Offer, 0, len(ev.offers))
	for _, o := range ev.offers {
		if o.Kind != economy.KindVehicle {
			menu = append(menu, o)
		}
	}
	sort.SliceStable(menu, func(i, j int) bool {
		return p.desirability(menu[i]) > p.desirability(menu[j])
	})

	out := make([]Verdict, 0, len(menu))
	for _, o := range menu {
		if o.Recurring() {
			out = append(out, ev.subscription(o))
		} else {
			out = append(out, ev.oneTime(o))
		}
	}
	return out
}

func (ev *evaluation) subscription(o economy.Offer) Verdict {
	p := ev.policy
	score := boost(o)
	wouldBe := ev.snap.RecurringTotal() + ev.recurring + o.Cost

	v := Verdict{Rule: RuleSubscription, Outcome: OutcomeDecline}
	switch {
	case ev.snap.HasSubscription(o.Name):
		v.Rationale = fmt.Sprintf("Declined subscription %s, already subscribed", o.Name)
	case score < p.SubscriptionMinScore || !p.growth(o.Category):
		v.Rationale = fmt.Sprintf("Declined subscription %s, boosts too low or not a growth category", o.Name)
	case wouldBe > p.MaxRecurringTotal:
		v.Rationale = fmt.Sprintf("Declined subscription %s, recurring cap exceeded", o.Name)
	default:
		ev.recurring += o.Cost
		v.Outcome = OutcomeAccept
		v.Rationale = fmt.Sprintf("Subscribed to %s (%s/mo), boosts=%g, recurring total stays under %s",
			o.Name, o.Cost, score, p.MaxRecurringTotal)
	}
	v.Offer = offerDecision(o, v.Outcome)
	return v
}

func (ev *evaluation) oneTime(o economy.Offer) Verdict {
	p := ev.policy
	score := boost(o)
	cheap := o.Cost <= p.CheapThreshold
	fundable := ev.available-ev.spent >= o.Cost && ev.spent+o.Cost <= ev.cap

	v := Verdict{Rule: RuleOneTime, Outcome: OutcomeDecline}
	switch {
	case ev.items >= p.MaxItemsPerMonth:
		v.Rationale = fmt.Sprintf("Skipped %s, already bought %d/%d items this month", o.Name, ev.items, p.MaxItemsPerMonth)
	case !p.growth(o.Category) && !(cheap && score > 0):
		v.Rationale = fmt.Sprintf("Skipped %s, not a growth purchase", o.Name)
	case o.Cost > p.MaxSinglePurchase:
		v.Rationale = fmt.Sprintf("Skipped %s, %s is over the %s single-purchase limit", o.Name, o.Cost, p.MaxSinglePurchase)
	case !fundable:
		v.Rationale = fmt.Sprintf("Skipped %s, %s does not fit this month's cash envelope", o.Name, o.Cost)
	default:
		ev.spent += o.Cost
		ev.items++
		v.Outcome = OutcomeAccept
		v.Rationale = fmt.Sprintf("Bought %s with cash (%s), items this month: %d/%d",
			o.Name, o.Cost, ev.items, p.MaxItemsPerMonth)
	}
	v.Offer = offerDecision(o, v.Outcome)
	return v
}

func offerDecision(o economy.Offer, outcome Outcome) *agents.OfferDecision {
	if outcome == OutcomeAccept {
		return &agents.OfferDecision{OfferID: o.ID, Action: agents.Accept, Payment: agents.PayCash}
	}
	return &agents.OfferDecision{OfferID: o.ID, Action: agents.Decline}
}

func triageVehicle(ev *evaluation) []Verdict {
	p := ev.policy
	decline := func(reason string) []Verdict {
		return []Verdict{{
			Rule:      RuleVehicle,
			Outcome:   OutcomeDecline,
			Rationale: "Declined vehicle, " + reason,
			Vehicle:   &agents.VehicleDecision{Action: agents.Decline},
		}}
	}

	if ev.snap.VehicleLoan != nil {
		return decline("already financing one")
	}
	offer, ok := economy.FindVehicle(ev.offers, p.VehicleTier)
	if !ok {
		return decline(fmt.Sprintf("no %s tier on offer", p.VehicleTier))
	}
	down := economy.DownPayment(offer.Cost)
	if ev.available < down {
		return decline(fmt.Sprintf("not enough for the %s down payment", down))
	}
	if ev.snap.CreditScore < p.VehicleMinCreditScore {
		return decline(fmt.Sprintf("credit score %d is below %d", ev.snap.CreditScore, p.VehicleMinCreditScore))
	}
	return []Verdict{{
		Rule:    RuleVehicle,
		Outcome: OutcomeAccept,
		Rationale: fmt.Sprintf("Bought %s vehicle, down payment %s is affordable and credit score is %d",
			offer.Tier, down, ev.snap.CreditScore),
		Vehicle: &agents.VehicleDecision{Action: agents.Accept, Tier: offer.Tier, TermMonths: p.VehicleTermMonths},
	}}
}

func revolvingPayment(ev *evaluation) []Verdict {
	balance := ev.snap.Revolving.Balance
	if balance <= 0 {
		return []Verdict{{
			Rule:    RulePayment,
			Outcome: OutcomeNote,
			Payment: &agents.RevolvingPayment{Kind: agents.PaymentMinimum},
		}}
	}
	if ev.snap.Cash >= balance {
		return []Verdict{{
			Rule:      RulePayment,
			Outcome:   OutcomeAccept,
			Rationale: fmt.Sprintf("Paying revolving balance in full (%s) to avoid interest", balance),
			Payment:   &agents.RevolvingPayment{Kind: agents.PaymentFull},
		}}
	}
	return []Verdict{{
		Rule:      RulePayment,
		Outcome:   OutcomeAccept,
		Rationale: "Paying minimum, will prioritize payoff next month",
		Payment:   &agents.RevolvingPayment{Kind: agents.PaymentMinimum},
	}}
}
