package persistence

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/talgya/finsim/internal/agents"
	"github.com/talgya/finsim/internal/economy"
	"github.com/talgya/finsim/internal/engine"
)

// MemoryStore implements Store with in-memory maps. Used for tests, the
// simulate command and development servers.
type MemoryStore struct {
	mu        sync.RWMutex
	runs      map[string]*Run
	months    map[string]map[int]*MonthRecord
	decisions map[decisionKey]*DecisionRecord
}

type decisionKey struct {
	run   string
	month int
	actor agents.Actor
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs:      make(map[string]*Run),
		months:    make(map[string]map[int]*MonthRecord),
		decisions: make(map[decisionKey]*DecisionRecord),
	}
}

func (s *MemoryStore) CreateRun(_ context.Context, run *Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[run.ID]; ok {
		return fmt.Errorf("create run %s: %w", run.ID, ErrRunExists)
	}
	copy := *run
	s.runs[run.ID] = &copy
	s.months[run.ID] = make(map[int]*MonthRecord)
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	copy := *r
	return &copy, nil
}

func (s *MemoryStore) ListRuns(_ context.Context) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]Run, 0, len(s.runs))
	for _, r := range s.runs {
		runs = append(runs, *r)
	}
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].ID < runs[j].ID
		}
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	return runs, nil
}

func (s *MemoryStore) UpdateRun(_ context.Context, run *Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[run.ID]; !ok {
		return fmt.Errorf("update run %s: %w", run.ID, ErrNotFound)
	}
	copy := *run
	s.runs[run.ID] = &copy
	return nil
}

func (s *MemoryStore) SaveMonth(_ context.Context, rec *MonthRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	months, ok := s.months[rec.RunID]
	if !ok {
		return fmt.Errorf("save month for run %s: %w", rec.RunID, ErrNotFound)
	}
	if _, exists := months[rec.Month]; exists {
		return fmt.Errorf("save month %d of run %s: %w", rec.Month, rec.RunID, ErrMonthExists)
	}
	months[rec.Month] = cloneMonth(rec)
	return nil
}

func (s *MemoryStore) GetMonth(_ context.Context, runID string, month int) (*MonthRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.months[runID][month]
	if !ok {
		return nil, fmt.Errorf("month %d of run %s: %w", month, runID, ErrNotFound)
	}
	return cloneMonth(rec), nil
}

func (s *MemoryStore) ListMonths(_ context.Context, runID string) ([]MonthRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	months, ok := s.months[runID]
	if !ok {
		return nil, fmt.Errorf("months of run %s: %w", runID, ErrNotFound)
	}
	out := make([]MonthRecord, 0, len(months))
	for _, rec := range months {
		out = append(out, *cloneMonth(rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out, nil
}

func (s *MemoryStore) SaveDecisions(_ context.Context, rec *DecisionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[rec.RunID]; !ok {
		return fmt.Errorf("save decisions for run %s: %w", rec.RunID, ErrNotFound)
	}
	s.decisions[decisionKey{rec.RunID, rec.Month, rec.Actor}] = cloneDecisions(rec)
	return nil
}

func (s *MemoryStore) GetDecisions(_ context.Context, runID string, month int, actor agents.Actor) (*DecisionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.decisions[decisionKey{runID, month, actor}]
	if !ok {
		return nil, fmt.Errorf("%s decisions for month %d of run %s: %w", actor, month, runID, ErrNotFound)
	}
	return cloneDecisions(rec), nil
}

func (s *MemoryStore) Close() error { return nil }

func cloneMonth(rec *MonthRecord) *MonthRecord {
	c := *rec
	if rec.Player != nil {
		c.Player = rec.Player.Clone()
	}
	if rec.Guru != nil {
		c.Guru = rec.Guru.Clone()
	}
	c.Offers = economy.CloneOffers(rec.Offers)
	c.Events = append([]engine.Event(nil), rec.Events...)
	return &c
}

func cloneDecisions(rec *DecisionRecord) *DecisionRecord {
	c := *rec
	c.Set = rec.Set.Clone()
	c.Rationale = append([]string(nil), rec.Rationale...)
	return &c
}
