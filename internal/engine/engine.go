// Package engine advances a run by one month: it settles each agent's
// obligations, applies their decisions, recomputes credit and wellbeing,
// and generates the next month's offers.
package engine

import (
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/talgya/finsim/internal/agents"
	"github.com/talgya/finsim/internal/economy"
	"github.com/talgya/finsim/internal/entropy"
	"github.com/talgya/finsim/internal/guru"
	"github.com/talgya/finsim/internal/money"
)

// Rules are the fixed constants of the monthly pipeline.
type Rules struct {
	MinimumPaymentRate  float64     `yaml:"minimum_payment_rate" json:"minimum_payment_rate"`
	MinimumPaymentFloor money.Cents `yaml:"minimum_payment_floor" json:"minimum_payment_floor"`
	DepreciationPace    float64     `yaml:"depreciation_pace" json:"depreciation_pace"`
	Milestones          []int       `yaml:"milestones" json:"milestones"`
	RaiseMin            float64     `yaml:"raise_min" json:"raise_min"`
	RaiseMax            float64     `yaml:"raise_max" json:"raise_max"`
	AnniversaryEvery    int         `yaml:"anniversary_every" json:"anniversary_every"`
}

// DefaultRules returns the standard pipeline constants.
func DefaultRules() Rules {
	return Rules{
		MinimumPaymentRate:  0.02,
		MinimumPaymentFloor: 2500,
		DepreciationPace:    0.05,
		Milestones:          []int{6, 12, 18, 24, 30, 36, 48},
		RaiseMin:            0.05,
		RaiseMax:            0.12,
		AnniversaryEvery:    12,
	}
}

// Validate rejects rule sets the pipeline cannot honor.
func (r Rules) Validate() error {
	switch {
	case r.MinimumPaymentRate < 0 || r.MinimumPaymentRate > 1:
		return fmt.Errorf("engine: minimum payment rate %g outside [0, 1]", r.MinimumPaymentRate)
	case r.MinimumPaymentFloor < 0:
		return fmt.Errorf("engine: minimum payment floor must not be negative")
	case r.DepreciationPace < 0 || r.DepreciationPace > 1:
		return fmt.Errorf("engine: depreciation pace %g outside [0, 1]", r.DepreciationPace)
	case r.RaiseMin < 0 || r.RaiseMax < r.RaiseMin:
		return fmt.Errorf("engine: raise range [%g, %g] is invalid", r.RaiseMin, r.RaiseMax)
	case r.AnniversaryEvery < 0:
		return fmt.Errorf("engine: anniversary interval must not be negative")
	}
	return nil
}

// Engine is stateless apart from its configuration and is safe for
// concurrent use.
type Engine struct {
	Offers *economy.Generator
	Guru   guru.Policy
	Rules  Rules

	// Parallel advances the player and guru on separate goroutines. The
	// result is identical either way.
	Parallel bool
}

// New returns an engine with the default rules.
func New(offers *economy.Generator, policy guru.Policy) *Engine {
	return &Engine{
		Offers: offers,
		Guru:   policy,
		Rules:  DefaultRules(),
	}
}

// Input is everything one month of a run depends on.
type Input struct {
	Player          *agents.Snapshot
	Guru            *agents.Snapshot
	PlayerDecisions agents.DecisionSet
	Offers          []economy.Offer
	Key             string
}

// Result is the outcome of one month.
type Result struct {
	Player       *agents.Snapshot
	Guru         *agents.Snapshot
	NextOffers   []economy.Offer
	GuruDecision guru.Decision
	Events       []Event
}

// GuruRationale returns the guru's reasons for this month's decisions.
func (r Result) GuruRationale() []string { return r.GuruDecision.Rationale() }

// Event is a notable outcome of a month for one agent.
type Event struct {
	Month       int          `json:"month"`
	Actor       agents.Actor `json:"actor"`
	Category    string       `json:"category"` // "purchase", "subscription", "sale", "vehicle", "payment", "credit", "raise", "adjusted", "skipped"
	Description string       `json:"description"`
}

// Advance runs one month for both agents. Inputs are never modified.
func (e *Engine) Advance(in Input) Result {
	growth := entropy.NewGrowth(in.Key, e.Rules.RaiseMin, e.Rules.RaiseMax)
	playerDecisions := in.PlayerDecisions.Clone()

	var (
		player, guruSnap     *agents.Snapshot
		playerEvts, guruEvts []Event
		guruDecision         guru.Decision
	)
	runPlayer := func() {
		player, playerEvts = e.pass(agents.ActorPlayer, in.Player, in.Offers, growth, func(*agents.Snapshot) agents.DecisionSet {
			return playerDecisions
		})
	}
	runGuru := func() {
		guruSnap, guruEvts = e.pass(agents.ActorGuru, in.Guru, in.Offers, growth, func(s *agents.Snapshot) agents.DecisionSet {
			guruDecision = e.Guru.Decide(s, in.Offers)
			return guruDecision.Set
		})
	}

	if e.Parallel {
		var g errgroup.Group
		g.Go(func() error { runPlayer(); return nil })
		g.Go(func() error { runGuru(); return nil })
		_ = g.Wait()
	} else {
		runPlayer()
		runGuru()
	}

	return Result{
		Player:       player,
		Guru:         guruSnap,
		NextOffers:   e.Offers.Generate(player, in.Key),
		GuruDecision: guruDecision,
		Events:       append(playerEvts, guruEvts...),
	}
}

// pass pushes one agent through the monthly pipeline. decide is called on
// the working snapshot once the month's fixed obligations are settled.
func (e *Engine) pass(actor agents.Actor, prior *agents.Snapshot, offers []economy.Offer, growth *entropy.Growth, decide func(*agents.Snapshot) agents.DecisionSet) (*agents.Snapshot, []Event) {
	p := &monthPass{
		rules:  e.Rules,
		actor:  actor,
		s:      prior.Clone(),
		offers: offers,
		growth: growth,
	}

	p.creditIncome()
	p.payLivingExpenses()
	p.paySubscriptions()
	p.serviceVehicleLoan()

	d := decide(p.s)

	p.liquidate(d.Liquidations)
	p.applyOffers(d)
	p.applyVehicle(d.Vehicle)
	p.accrueRevolvingInterest()
	covered := p.payRevolving(d.Payment)
	p.updateCreditScore(covered)
	p.s.RecomputeStress()
	p.s.RecomputeWellbeing()
	p.depreciate()
	p.applyMilestoneRaise()
	p.s.Month++
	p.s.Age += 1.0 / money.MonthsPerYear

	return p.s, p.events
}

type monthPass struct {
	rules  Rules
	actor  agents.Actor
	s      *agents.Snapshot
	offers []economy.Offer
	growth *entropy.Growth
	events []Event
}

func (p *monthPass) record(category, format string, args ...any) {
	p.events = append(p.events, Event{
		Month:       p.s.Month,
		Actor:       p.actor,
		Category:    category,
		Description: fmt.Sprintf(format, args...),
	})
}

// skip records a decision item that was ignored.
func (p *monthPass) skip(format string, args ...any) {
	p.record("skipped", format, args...)
	slog.Debug("decision skipped", "actor", p.actor, "month", p.s.Month, "reason", fmt.Sprintf(format, args...))
}
