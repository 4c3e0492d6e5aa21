package agents

import "github.com/talgya/finsim/internal/money"

// Action is an accept/decline choice on an offer.
type Action string

const (
	Accept  Action = "accept"
	Decline Action = "decline"
)

// PaymentKind selects how much of the revolving balance to pay.
type PaymentKind string

const (
	PaymentMinimum PaymentKind = "minimum"
	PaymentFull    PaymentKind = "full"
	PaymentCustom  PaymentKind = "custom"
)

// OfferDecision answers a single offer on the month's menu.
type OfferDecision struct {
	OfferID string        `json:"offer_id"`
	Action  Action        `json:"action"`
	Payment PaymentMethod `json:"payment,omitempty"`
}

// VehicleDecision answers the month's vehicle offers, if any.
type VehicleDecision struct {
	Action     Action      `json:"action"`
	Tier       VehicleTier `json:"tier,omitempty"`
	TermMonths int         `json:"term_months,omitempty"`
}

// RevolvingPayment is the instruction for paying down the revolving balance.
// Amount is only read for PaymentCustom.
type RevolvingPayment struct {
	Kind   PaymentKind `json:"kind"`
	Amount money.Cents `json:"amount,omitempty"`
}

// Liquidation sells the purchase at Index in the purchase history.
type Liquidation struct {
	Index     int         `json:"index"`
	SalePrice money.Cents `json:"sale_price"`
}

// DecisionSet is everything one agent decides for one month.
type DecisionSet struct {
	Offers       []OfferDecision  `json:"offers"`
	Vehicle      *VehicleDecision `json:"vehicle,omitempty"`
	Payment      RevolvingPayment `json:"payment"`
	Liquidations []Liquidation    `json:"liquidations,omitempty"`
}

// DefaultDecisions declines everything and pays the minimum, which is what a
// player who submits nothing is assumed to have chosen.
func DefaultDecisions() DecisionSet {
	return DecisionSet{
		Offers:  []OfferDecision{},
		Payment: RevolvingPayment{Kind: PaymentMinimum},
	}
}

// Accepted returns the offer decisions marked accept, in submission order.
func (d DecisionSet) Accepted() []OfferDecision {
	var out []OfferDecision
	for _, o := range d.Offers {
		if o.Action == Accept {
			out = append(out, o)
		}
	}
	return out
}

// Clone returns a deep copy of d.
func (d DecisionSet) Clone() DecisionSet {
	c := d
	c.Offers = append([]OfferDecision(nil), d.Offers...)
	c.Liquidations = append([]Liquidation(nil), d.Liquidations...)
	if d.Vehicle != nil {
		v := *d.Vehicle
		c.Vehicle = &v
	}
	return c
}
