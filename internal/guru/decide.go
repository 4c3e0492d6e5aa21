package guru

import (
	"github.com/talgya/finsim/internal/agents"
	"github.com/talgya/finsim/internal/economy"
)

// RuleID names a rung of the ladder.
type RuleID string

const (
	RuleLiquidityGate RuleID = "liquidity-gate"
	RuleEnvelope      RuleID = "spending-envelope"
	RuleSubscription  RuleID = "subscription"
	RuleOneTime       RuleID = "one-time"
	RuleVehicle       RuleID = "vehicle"
	RulePayment       RuleID = "revolving-payment"
)

// Outcome is what a rule concluded.
type Outcome string

const (
	OutcomeAccept  Outcome = "accept"
	OutcomeDecline Outcome = "decline"
	OutcomeNote    Outcome = "note"
)

// Verdict is a single rule's result. It carries at most one decision
// payload together with the reason for it.
type Verdict struct {
	Rule      RuleID                   `json:"rule"`
	Outcome   Outcome                  `json:"outcome"`
	Rationale string                   `json:"rationale,omitempty"`
	Offer     *agents.OfferDecision    `json:"offer,omitempty"`
	Vehicle   *agents.VehicleDecision  `json:"vehicle,omitempty"`
	Payment   *agents.RevolvingPayment `json:"payment,omitempty"`
}

// Decision is the guru's full answer for one month.
type Decision struct {
	Set      agents.DecisionSet `json:"decisions"`
	Verdicts []Verdict          `json:"verdicts"`
}

// Rationale returns the human-readable reasons in ladder order.
func (d Decision) Rationale() []string {
	out := make([]string, 0, len(d.Verdicts))
	for _, v := range d.Verdicts {
		if v.Rationale != "" {
			out = append(out, v.Rationale)
		}
	}
	return out
}

// Decide runs the ladder over s and offers.
func (p Policy) Decide(s *agents.Snapshot, offers []economy.Offer) Decision {
	ev := &evaluation{policy: p, snap: s, offers: offers}
	var verdicts []Verdict
	for _, r := range ladder {
		if r.applies != nil && !r.applies(ev) {
			continue
		}
		verdicts = append(verdicts, r.apply(ev)...)
	}
	return Decision{Set: fold(verdicts), Verdicts: verdicts}
}

// fold turns verdicts into a decision set. A set with no payment verdict
// defaults to the minimum payment.
func fold(verdicts []Verdict) agents.DecisionSet {
	set := agents.DefaultDecisions()
	for _, v := range verdicts {
		if v.Offer != nil {
			set.Offers = append(set.Offers, *v.Offer)
		}
		if v.Vehicle != nil {
			vd := *v.Vehicle
			set.Vehicle = &vd
		}
		if v.Payment != nil {
			set.Payment = *v.Payment
		}
	}
	return set
}
