package runs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/talgya/finsim/internal/agents"
	"github.com/talgya/finsim/internal/engine"
	"github.com/talgya/finsim/internal/persistence"
)

// Divergence is a stored value that replay could not reproduce.
type Divergence struct {
	Month int    `json:"month"`
	Field string `json:"field"` // "player", "guru" or "offers"
}

// ReplayReport is the result of recomputing a run from its profile and the
// stored player decisions.
type ReplayReport struct {
	RunID       string                    `json:"run_id"`
	Months      int                       `json:"months"`
	Divergences []Divergence              `json:"divergences"`
	History     []persistence.MonthRecord `json:"history"`
}

// Consistent reports whether replay reproduced every stored month.
func (r *ReplayReport) Consistent() bool { return len(r.Divergences) == 0 }

// Replay recomputes every month of a run and compares it with what was
// stored. Nothing is written.
func (s *Service) Replay(ctx context.Context, runID string) (*ReplayReport, error) {
	run, err := s.store.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	stored, err := s.store.ListMonths(ctx, runID)
	if err != nil {
		return nil, err
	}

	report := &ReplayReport{RunID: runID, Divergences: []Divergence{}}
	player := agents.NewSnapshot(run.Profile)
	cur := persistence.MonthRecord{
		RunID:  runID,
		Player: player,
		Guru:   player.Clone(),
		Offers: s.engine.Offers.Generate(player, run.Key),
	}

	for i, want := range stored {
		if want.Month != i {
			return nil, fmt.Errorf("run %s: month %d missing from history", runID, i)
		}
		cur.CreatedAt = want.CreatedAt
		report.compare(i, &cur, &want)
		report.History = append(report.History, cur)
		report.Months++

		if i == len(stored)-1 {
			break
		}
		decisions := agents.DefaultDecisions()
		rec, err := s.store.GetDecisions(ctx, runID, i, agents.ActorPlayer)
		switch {
		case err == nil:
			decisions = rec.Set
		case !errors.Is(err, persistence.ErrNotFound):
			return nil, err
		}

		res := s.engine.Advance(engine.Input{
			Player:          cur.Player,
			Guru:            cur.Guru,
			PlayerDecisions: decisions,
			Offers:          cur.Offers,
			Key:             run.Key,
		})
		cur = persistence.MonthRecord{
			RunID:  runID,
			Month:  i + 1,
			Player: res.Player,
			Guru:   res.Guru,
			Offers: res.NextOffers,
			Events: res.Events,
		}
	}
	return report, nil
}

// compare checks values through their JSON form, which is what every store
// round-trips.
func (r *ReplayReport) compare(month int, got, want *persistence.MonthRecord) {
	fields := []struct {
		name      string
		got, want any
	}{
		{"player", got.Player, want.Player},
		{"guru", got.Guru, want.Guru},
		{"offers", got.Offers, want.Offers},
	}
	for _, f := range fields {
		a, errA := json.Marshal(f.got)
		b, errB := json.Marshal(f.want)
		if errA != nil || errB != nil || !bytes.Equal(a, b) {
			r.Divergences = append(r.Divergences, Divergence{Month: month, Field: f.name})
		}
	}
}
