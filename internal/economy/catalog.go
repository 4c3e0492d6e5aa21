package economy

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/talgya/finsim/internal/agents"
	"github.com/talgya/finsim/internal/money"
)

// Template is a catalog entry that the generator stamps into an Offer.
type Template struct {
	Name             string      `yaml:"name" json:"name"`
	Cost             money.Cents `yaml:"cost" json:"cost"`
	Category         string      `yaml:"category" json:"category"`
	Icon             string      `yaml:"icon" json:"icon,omitempty"`
	DepreciationRate float64     `yaml:"depreciation_rate" json:"depreciation_rate,omitempty"`
	Recurring        bool        `yaml:"recurring" json:"recurring,omitempty"`
	HappinessBoost   float64     `yaml:"happiness_boost" json:"happiness_boost,omitempty"`
	HealthBoost      float64     `yaml:"health_boost" json:"health_boost,omitempty"`
	StressImpact     int         `yaml:"stress_impact" json:"stress_impact,omitempty"`
	ExperienceScore  int         `yaml:"experience_score" json:"experience_score,omitempty"`
	InvestmentScore  int         `yaml:"investment_score" json:"investment_score,omitempty"`
	Lane             string      `yaml:"lane" json:"lane,omitempty"`
}

// VehicleTemplate is a vehicle that can be financed.
type VehicleTemplate struct {
	Tier        agents.VehicleTier `yaml:"tier" json:"tier"`
	Price       money.Cents        `yaml:"price" json:"price"`
	Description string             `yaml:"description" json:"description"`
	Reliability string             `yaml:"reliability" json:"reliability"`
	Features    []string           `yaml:"features" json:"features"`
}

// Catalog is the immutable table of everything that can be offered. Build
// one with NewCatalog or DefaultCatalog; accessors hand out copies.
type Catalog struct {
	templates []Template
	vehicles  []VehicleTemplate
}

type catalogFile struct {
	Offers   []Template        `yaml:"offers"`
	Vehicles []VehicleTemplate `yaml:"vehicles"`
}

// NewCatalog validates and copies the given entries into a Catalog.
func NewCatalog(templates []Template, vehicles []VehicleTemplate) (*Catalog, error) {
	if len(templates) == 0 {
		return nil, errors.New("catalog: no offer templates")
	}
	seen := make(map[string]bool, len(templates))
	for _, t := range templates {
		if t.Name == "" {
			return nil, errors.New("catalog: template without a name")
		}
		if seen[t.Name] {
			return nil, fmt.Errorf("catalog: duplicate template %q", t.Name)
		}
		seen[t.Name] = true
		if t.Cost <= 0 {
			return nil, fmt.Errorf("catalog: %q must cost more than zero", t.Name)
		}
		if t.DepreciationRate < 0 || t.DepreciationRate > 1 {
			return nil, fmt.Errorf("catalog: %q depreciation rate outside [0, 1]", t.Name)
		}
	}
	tiers := make(map[agents.VehicleTier]bool, len(vehicles))
	for _, v := range vehicles {
		if !v.Tier.Valid() {
			return nil, fmt.Errorf("catalog: unknown vehicle tier %q", v.Tier)
		}
		if tiers[v.Tier] {
			return nil, fmt.Errorf("catalog: duplicate vehicle tier %q", v.Tier)
		}
		tiers[v.Tier] = true
		if v.Price <= 0 {
			return nil, fmt.Errorf("catalog: vehicle %q must cost more than zero", v.Tier)
		}
	}

	c := &Catalog{
		templates: append([]Template(nil), templates...),
		vehicles:  make([]VehicleTemplate, len(vehicles)),
	}
	for i, v := range vehicles {
		v.Features = append([]string(nil), v.Features...)
		c.vehicles[i] = v
	}
	return c, nil
}

// LoadCatalog reads a YAML catalog from path.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return NewCatalog(f.Offers, f.Vehicles)
}

// Templates returns a copy of the offer templates in catalog order.
func (c *Catalog) Templates() []Template {
	return append([]Template(nil), c.templates...)
}

// Vehicles returns a copy of the vehicle templates in catalog order.
func (c *Catalog) Vehicles() []VehicleTemplate {
	out := make([]VehicleTemplate, len(c.vehicles))
	for i, v := range c.vehicles {
		v.Features = append([]string(nil), v.Features...)
		out[i] = v
	}
	return out
}

// Len is the number of offer templates.
func (c *Catalog) Len() int { return len(c.templates) }

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(defaultTemplates, defaultVehicles)
	if err != nil {
		panic(err)
	}
	return c
}

// Lanes group templates for presentation.
const (
	LaneEssentials = "essentials"
	LanePleasure   = "pleasure"
	LaneGrowth     = "growth"
	LaneGiving     = "giving"
	LaneInvesting  = "investing"
)

var defaultTemplates = []Template{
	// Essentials
	{Name: "Groceries upgrade (quality food)", Cost: 8000, Category: "essentials", Icon: "🧾", DepreciationRate: 1.0, HealthBoost: 2, HappinessBoost: 1, StressImpact: -1, ExperienceScore: 2, InvestmentScore: 2, Lane: LaneEssentials},
	{Name: "Car insurance", Cost: 12000, Category: "essentials", Icon: "🛡️", Recurring: true, StressImpact: -2, InvestmentScore: 5, Lane: LaneEssentials},
	{Name: "Phone plan", Cost: 7000, Category: "essentials", Icon: "📶", Recurring: true, StressImpact: -1, InvestmentScore: 2, Lane: LaneEssentials},
	{Name: "Internet plan", Cost: 6000, Category: "essentials", Icon: "🌐", Recurring: true, StressImpact: -1, InvestmentScore: 2, Lane: LaneEssentials},
	{Name: "Gas budget", Cost: 10000, Category: "essentials", Icon: "⛽", DepreciationRate: 1.0, StressImpact: -1, Lane: LaneEssentials},

	// Entertainment
	{Name: "Concert tickets", Cost: 6500, Category: "entertainment", Icon: "🎵", DepreciationRate: 1.0, HappinessBoost: 6, StressImpact: -2, ExperienceScore: 75, Lane: LanePleasure},
	{Name: "Video game", Cost: 6000, Category: "entertainment", Icon: "🎮", DepreciationRate: 0.30, HappinessBoost: 5, StressImpact: -1, ExperienceScore: 40, Lane: LanePleasure},
	{Name: "Movie night", Cost: 3500, Category: "social", Icon: "🎬", DepreciationRate: 1.0, HappinessBoost: 4, StressImpact: -1, ExperienceScore: 25, Lane: LanePleasure},
	{Name: "Streaming service", Cost: 1500, Category: "entertainment", Icon: "📺", Recurring: true, HappinessBoost: 2, StressImpact: -1, ExperienceScore: 15, Lane: LanePleasure},
	{Name: "Music festival", Cost: 75000, Category: "travel", Icon: "🎪", DepreciationRate: 1.0, HappinessBoost: 8, StressImpact: -3, ExperienceScore: 95, Lane: LanePleasure},

	// Tech
	{Name: "New phone", Cost: 19900, Category: "tech", Icon: "📱", DepreciationRate: 0.15, HappinessBoost: 3, StressImpact: -1, ExperienceScore: 10, InvestmentScore: 5, Lane: LanePleasure},
	{Name: "Headphones", Cost: 15000, Category: "tech", Icon: "🎧", DepreciationRate: 0.10, HappinessBoost: 4, StressImpact: -1, ExperienceScore: 15, Lane: LanePleasure},
	{Name: "Laptop upgrade", Cost: 59900, Category: "tech", Icon: "💻", DepreciationRate: 0.12, HappinessBoost: 2, StressImpact: -1, ExperienceScore: 5, InvestmentScore: 25, Lane: LaneGrowth},

	// Health and fitness
	{Name: "Gym membership", Cost: 5000, Category: "health", Icon: "🏋️", Recurring: true, HealthBoost: 7, HappinessBoost: 3, StressImpact: -3, ExperienceScore: 15, InvestmentScore: 35, Lane: LaneGrowth},
	{Name: "Yoga classes", Cost: 8000, Category: "health", Icon: "🧘", DepreciationRate: 1.0, HealthBoost: 6, HappinessBoost: 4, StressImpact: -4, ExperienceScore: 30, InvestmentScore: 20, Lane: LaneGrowth},
	{Name: "Running shoes", Cost: 12000, Category: "health", Icon: "👟", DepreciationRate: 0.25, HealthBoost: 4, HappinessBoost: 2, StressImpact: -2, ExperienceScore: 10, InvestmentScore: 15, Lane: LaneGrowth},

	// Education
	{Name: "Online course", Cost: 15000, Category: "education", Icon: "📚", HappinessBoost: 1, ExperienceScore: 10, InvestmentScore: 60, Lane: LaneGrowth},
	{Name: "Professional certification", Cost: 30000, Category: "education", Icon: "🎓", HappinessBoost: 2, StressImpact: 1, ExperienceScore: 10, InvestmentScore: 80, Lane: LaneGrowth},

	// Investing
	{Name: "Index fund contribution", Cost: 10000, Category: "investments", Icon: "📈", StressImpact: -1, InvestmentScore: 85, Lane: LaneInvesting},
	{Name: "Roth IRA contribution", Cost: 15000, Category: "investments", Icon: "🏦", StressImpact: -1, InvestmentScore: 90, Lane: LaneInvesting},
	{Name: "High-yield savings deposit", Cost: 8000, Category: "investments", Icon: "💰", StressImpact: -2, InvestmentScore: 70, Lane: LaneInvesting},
	{Name: "Emergency fund deposit", Cost: 10000, Category: "investments", Icon: "🧯", StressImpact: -3, InvestmentScore: 75, Lane: LaneInvesting},

	// Giving
	{Name: "Charity donation", Cost: 5000, Category: "charity", Icon: "💝", DepreciationRate: 1.0, HappinessBoost: 6, StressImpact: -1, ExperienceScore: 10, InvestmentScore: 5, Lane: LaneGiving},
	{Name: "Friend's birthday gift", Cost: 3000, Category: "gift", Icon: "🎁", DepreciationRate: 1.0, HappinessBoost: 5, StressImpact: -1, ExperienceScore: 15, Lane: LaneGiving},
}

var defaultVehicles = []VehicleTemplate{
	{
		Tier:        agents.TierUsed,
		Price:       800000,
		Description: "Used Car (5-7 years old)",
		Reliability: "Good",
		Features:    []string{"Reliable transportation", "Good gas mileage (30 MPG)", "Lower insurance costs"},
	},
	{
		Tier:        agents.TierMid,
		Price:       1800000,
		Description: "Mid-Range Car (2-3 years old)",
		Reliability: "Excellent",
		Features:    []string{"Modern safety features", "Bluetooth & backup camera", "Better warranty coverage"},
	},
	{
		Tier:        agents.TierNew,
		Price:       3200000,
		Description: "Brand New Car",
		Reliability: "Excellent",
		Features:    []string{"Latest technology", "Full manufacturer warranty", "Premium sound system", "Advanced driver assist"},
	},
}

var categoryIcons = map[string]string{
	"tech":           "📱",
	"fashion":        "👕",
	"entertainment":  "🎮",
	"social":         "🍽️",
	"travel":         "✈️",
	"hobby":          "🎨",
	"transportation": "🚗",
	"home":           "🛋️",
	"health":         "🏋️",
	"education":      "📚",
	"charity":        "💝",
	"gift":           "🎁",
}

// CategoryIcon returns the icon stamped on purchase records for category.
func CategoryIcon(category string) string {
	if icon, ok := categoryIcons[category]; ok {
		return icon
	}
	return "🛍️"
}
