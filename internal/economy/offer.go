// Package economy provides the offer catalog, vehicle financing terms and
// the deterministic monthly offer generator.
package economy

import (
	"github.com/talgya/finsim/internal/agents"
	"github.com/talgya/finsim/internal/money"
)

// OfferKind distinguishes how an offer is paid for.
type OfferKind string

const (
	KindOneTime      OfferKind = "one-time"
	KindSubscription OfferKind = "subscription"
	KindVehicle      OfferKind = "vehicle"
)

// Offer is one item on a month's menu. Offers live for a single month and
// are referenced by ID from that month's decisions only.
type Offer struct {
	ID               string             `json:"id"`
	Month            int                `json:"month"`
	Kind             OfferKind          `json:"kind"`
	Name             string             `json:"name"`
	Category         string             `json:"category"`
	Icon             string             `json:"icon,omitempty"`
	Cost             money.Cents        `json:"cost"`
	DepreciationRate float64            `json:"depreciation_rate,omitempty"`
	HappinessBoost   float64            `json:"happiness_boost,omitempty"`
	HealthBoost      float64            `json:"health_boost,omitempty"`
	StressImpact     int                `json:"stress_impact,omitempty"`
	ExperienceScore  int                `json:"experience_score,omitempty"`
	InvestmentScore  int                `json:"investment_score,omitempty"`
	Lane             string             `json:"lane,omitempty"`
	Tier             agents.VehicleTier `json:"tier,omitempty"`
	Description      string             `json:"description,omitempty"`
	Features         []string           `json:"features,omitempty"`
}

// Recurring reports whether accepting the offer creates a subscription.
func (o Offer) Recurring() bool { return o.Kind == KindSubscription }

// Find returns the offer with id.
func Find(offers []Offer, id string) (Offer, bool) {
	for _, o := range offers {
		if o.ID == id {
			return o, true
		}
	}
	return Offer{}, false
}

// FindVehicle returns the vehicle offer for tier.
func FindVehicle(offers []Offer, tier agents.VehicleTier) (Offer, bool) {
	for _, o := range offers {
		if o.Kind == KindVehicle && o.Tier == tier {
			return o, true
		}
	}
	return Offer{}, false
}

// CloneOffers returns a deep copy of offers.
func CloneOffers(offers []Offer) []Offer {
	out := make([]Offer, len(offers))
	for i, o := range offers {
		o.Features = append([]string(nil), o.Features...)
		out[i] = o
	}
	return out
}
