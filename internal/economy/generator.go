package economy

import (
	"fmt"

	"github.com/talgya/finsim/internal/agents"
	"github.com/talgya/finsim/internal/entropy"
)

// Generator produces each month's offer menu. Output depends only on the
// catalog, the snapshot's month and loan status, and the reproducibility key.
type Generator struct {
	catalog *Catalog

	MinOffers         int // inclusive
	MaxOffers         int // inclusive
	VehicleFirstMonth int
	VehicleEvery      int
}

// NewGenerator returns a generator over catalog with the standard schedule:
// two to four offers a month, vehicles in month 3 and every 6 months after.
func NewGenerator(catalog *Catalog) *Generator {
	return &Generator{
		catalog:           catalog,
		MinOffers:         2,
		MaxOffers:         4,
		VehicleFirstMonth: 3,
		VehicleEvery:      6,
	}
}

// Catalog returns the catalog the generator draws from.
func (g *Generator) Catalog() *Catalog { return g.catalog }

// Generate returns the offers for s.Month under key.
func (g *Generator) Generate(s *agents.Snapshot, key string) []Offer {
	month := s.Month
	rng := entropy.NewRand(key, month)

	count := g.MinOffers
	if spread := g.MaxOffers - g.MinOffers; spread > 0 {
		count += rng.Intn(spread + 1)
	}

	pool := g.catalog.Templates()
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	if count > len(pool) {
		count = len(pool)
	}

	offers := make([]Offer, 0, count+3)
	for i, t := range pool[:count] {
		offers = append(offers, stamp(t, month, i))
	}

	if s.VehicleLoan == nil && g.vehicleMonth(month) {
		for _, v := range g.catalog.Vehicles() {
			offers = append(offers, Offer{
				ID:          fmt.Sprintf("car-%d-%s", month, v.Tier),
				Month:       month,
				Kind:        KindVehicle,
				Name:        v.Description,
				Category:    "transportation",
				Icon:        CategoryIcon("transportation"),
				Cost:        v.Price,
				Tier:        v.Tier,
				Description: v.Reliability + " reliability",
				Features:    v.Features,
			})
		}
	}
	return offers
}

func (g *Generator) vehicleMonth(month int) bool {
	if month < g.VehicleFirstMonth {
		return false
	}
	if g.VehicleEvery <= 0 {
		return month == g.VehicleFirstMonth
	}
	return (month-g.VehicleFirstMonth)%g.VehicleEvery == 0
}

func stamp(t Template, month, index int) Offer {
	kind := KindOneTime
	if t.Recurring {
		kind = KindSubscription
	}
	return Offer{
		ID:               fmt.Sprintf("tempt-%d-%d", month, index),
		Month:            month,
		Kind:             kind,
		Name:             t.Name,
		Category:         t.Category,
		Icon:             t.Icon,
		Cost:             t.Cost,
		DepreciationRate: t.DepreciationRate,
		HappinessBoost:   t.HappinessBoost,
		HealthBoost:      t.HealthBoost,
		StressImpact:     t.StressImpact,
		ExperienceScore:  t.ExperienceScore,
		InvestmentScore:  t.InvestmentScore,
		Lane:             t.Lane,
	}
}
