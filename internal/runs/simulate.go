package runs

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/talgya/finsim/internal/agents"
	"github.com/talgya/finsim/internal/economy"
	"github.com/talgya/finsim/internal/engine"
	"github.com/talgya/finsim/internal/guru"
	"github.com/talgya/finsim/internal/money"
	"github.com/talgya/finsim/internal/persistence"
)

// Strategy chooses the player's decisions from the start-of-month snapshot.
type Strategy func(s *agents.Snapshot, offers []economy.Offer) agents.DecisionSet

// Strategies are the scripted players available to the simulate command.
var Strategies = map[string]Strategy{
	// idle declines everything and pays the minimum.
	"idle": func(*agents.Snapshot, []economy.Offer) agents.DecisionSet {
		return agents.DefaultDecisions()
	},
	// mirror plays the guru's own policy on the unsettled snapshot.
	"mirror": func(s *agents.Snapshot, offers []economy.Offer) agents.DecisionSet {
		return guru.DefaultPolicy().Decide(s, offers).Set
	},
	// spender accepts every offer on credit, finances the best vehicle on
	// the longest term, and pays the minimum.
	"spender": func(_ *agents.Snapshot, offers []economy.Offer) agents.DecisionSet {
		d := agents.DefaultDecisions()
		for _, o := range offers {
			if o.Kind == economy.KindVehicle {
				if d.Vehicle == nil || o.Cost > vehicleCost(offers, d.Vehicle.Tier) {
					d.Vehicle = &agents.VehicleDecision{Action: agents.Accept, Tier: o.Tier, TermMonths: 72}
				}
				continue
			}
			d.Offers = append(d.Offers, agents.OfferDecision{OfferID: o.ID, Action: agents.Accept, Payment: agents.PayCredit})
		}
		return d
	},
}

func vehicleCost(offers []economy.Offer, tier agents.VehicleTier) money.Cents {
	if o, ok := economy.FindVehicle(offers, tier); ok {
		return o.Cost
	}
	return 0
}

// StrategyNames lists the registered strategies in order.
func StrategyNames() []string {
	names := make([]string, 0, len(Strategies))
	for name := range Strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Simulation describes a scripted run.
type Simulation struct {
	Request  StartRequest
	Months   int
	Strategy string
	Interval time.Duration // wall time per month; 0 plays months back to back
	OnYear   func(st *State)
}

// Simulate starts a run and plays it for months using a scripted strategy.
func (s *Service) Simulate(ctx context.Context, req StartRequest, months int, strategy string) (*State, error) {
	return s.Play(ctx, Simulation{Request: req, Months: months, Strategy: strategy})
}

// Play runs a simulation on an engine clock.
func (s *Service) Play(ctx context.Context, sim Simulation) (*State, error) {
	play, ok := Strategies[sim.Strategy]
	if !ok {
		return nil, fmt.Errorf("%w: unknown strategy %q", ErrInvalidRequest, sim.Strategy)
	}
	if sim.Months <= 0 {
		return nil, fmt.Errorf("%w: months must be positive", ErrInvalidRequest)
	}
	req := sim.Request
	if req.Horizon == nil {
		req.Horizon = &sim.Months
	}

	st, err := s.Start(ctx, req)
	if err != nil {
		return nil, err
	}
	runID := st.Run.ID

	clock := engine.NewClock(0)
	clock.Limit = sim.Months
	clock.Interval = sim.Interval
	clock.OnMonth = func(ctx context.Context, month int) error {
		if st.Run.Status == persistence.RunFinished {
			clock.Stop()
			return nil
		}
		set := play(st.Month.Player, st.Month.Offers)
		if err := s.SubmitDecisions(ctx, runID, month, set); err != nil {
			return err
		}
		adv, err := s.Advance(ctx, runID, month, TriggerCLI)
		if err != nil {
			return err
		}
		st = &State{Run: adv.Run, Month: adv.Month}
		return nil
	}
	if sim.OnYear != nil {
		clock.OnYear = func(int) { sim.OnYear(st) }
	}

	if err := clock.Run(ctx); err != nil {
		return nil, err
	}
	return st, nil
}
