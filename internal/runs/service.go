// Package runs owns the lifecycle of a simulation run: starting it,
// collecting the player's decisions, advancing it one month at a time and
// replaying its stored history.
package runs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/finsim/internal/agents"
	"github.com/talgya/finsim/internal/engine"
	"github.com/talgya/finsim/internal/guru"
	"github.com/talgya/finsim/internal/metrics"
	"github.com/talgya/finsim/internal/persistence"
)

var (
	ErrStaleMonth  = errors.New("runs: month is not the run's current month")
	ErrRunFinished = errors.New("runs: run has reached its horizon")

	// ErrInvalidRequest wraps request values the service rejects.
	ErrInvalidRequest = errors.New("runs: invalid request")
)

// Trigger labels what caused a month to advance.
type Trigger string

const (
	TriggerAPI       Trigger = "api"
	TriggerAutopilot Trigger = "autopilot"
	TriggerCLI       Trigger = "cli"
)

// Notifier is told about every advanced month.
type Notifier interface {
	MonthAdvanced(a *Advanced)
}

// Service coordinates the engine and the store. Advances of the same run
// are serialized; different runs advance independently.
type Service struct {
	store    persistence.Store
	engine   *engine.Engine
	profiles agents.Profiles
	horizon  int
	notifier Notifier
	now      func() time.Time
	newID    func() string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithHorizon sets the default number of months a run lasts. 0 is
// open-ended.
func WithHorizon(months int) Option { return func(s *Service) { s.horizon = months } }

// WithNotifier registers a listener for advanced months.
func WithNotifier(n Notifier) Option { return func(s *Service) { s.notifier = n } }

// WithClock overrides the wall clock used for record timestamps.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithIDs overrides run ID generation.
func WithIDs(newID func() string) Option { return func(s *Service) { s.newID = newID } }

// NewService creates a run service.
func NewService(st persistence.Store, eng *engine.Engine, profiles agents.Profiles, opts ...Option) *Service {
	s := &Service{
		store:    st,
		engine:   eng,
		profiles: profiles,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    func() string { return uuid.New().String() },
		locks:    make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// lock serializes work on one run.
func (s *Service) lock(runID string) func() {
	s.mu.Lock()
	l, ok := s.locks[runID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[runID] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// StartRequest describes a new run.
type StartRequest struct {
	Mode    string `json:"mode"`
	Key     string `json:"key,omitempty"`     // reproducibility key; defaults to the run ID
	Horizon *int   `json:"horizon,omitempty"` // months; defaults to the service horizon
}

// State is a run together with its current month.
type State struct {
	Run         persistence.Run         `json:"run"`
	Month       persistence.MonthRecord `json:"month"`
	GuruPreview []string                `json:"guru_preview,omitempty"`
}

// Advanced is the outcome of one month transition.
type Advanced struct {
	Run           persistence.Run         `json:"run"`
	Month         persistence.MonthRecord `json:"month"`
	GuruDecisions agents.DecisionSet      `json:"guru_decisions"`
	GuruRationale []string                `json:"guru_rationale"`
}

// Start creates a run and records its month-0 state.
func (s *Service) Start(ctx context.Context, req StartRequest) (*State, error) {
	mode := req.Mode
	if mode == "" {
		mode = agents.ModeNormal
	}
	profile, err := s.profiles.Lookup(mode)
	if err != nil {
		return nil, err
	}
	horizon := s.horizon
	if req.Horizon != nil {
		if *req.Horizon < 0 {
			return nil, fmt.Errorf("%w: horizon must not be negative", ErrInvalidRequest)
		}
		horizon = *req.Horizon
	}

	id := s.newID()
	key := req.Key
	if key == "" {
		key = id
	}
	now := s.now()
	run := &persistence.Run{
		ID:        id,
		Mode:      mode,
		Key:       key,
		Horizon:   horizon,
		Status:    persistence.RunActive,
		Profile:   profile,
		CreatedAt: now,
		UpdatedAt: now,
	}
	player := agents.NewSnapshot(profile)
	first := &persistence.MonthRecord{
		RunID:     id,
		Month:     0,
		Player:    player,
		Guru:      player.Clone(),
		Offers:    s.engine.Offers.Generate(player, key),
		CreatedAt: now,
	}

	if err := s.store.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	if err := s.store.SaveMonth(ctx, first); err != nil {
		return nil, fmt.Errorf("save month 0: %w", err)
	}

	metrics.RunsStarted.WithLabelValues(mode).Inc()
	metrics.ActiveRuns.Inc()
	slog.Info("run started", "run", id, "mode", mode, "horizon", horizon)

	return &State{Run: *run, Month: *first, GuruPreview: s.preview(run, first).Rationale()}, nil
}

// preview runs the guru against the month without persisting anything.
func (s *Service) preview(run *persistence.Run, rec *persistence.MonthRecord) guru.Decision {
	res := s.engine.Advance(engine.Input{
		Player:          rec.Player,
		Guru:            rec.Guru,
		PlayerDecisions: agents.DefaultDecisions(),
		Offers:          rec.Offers,
		Key:             run.Key,
	})
	return res.GuruDecision
}

// State returns the run and its current month.
func (s *Service) State(ctx context.Context, runID string) (*State, error) {
	run, err := s.store.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	rec, err := s.store.GetMonth(ctx, runID, run.Month)
	if err != nil {
		return nil, err
	}
	st := &State{Run: *run, Month: *rec}
	if run.Status == persistence.RunActive {
		st.GuruPreview = s.preview(run, rec).Rationale()
	}
	return st, nil
}

// List returns every run, newest first.
func (s *Service) List(ctx context.Context) ([]persistence.Run, error) {
	return s.store.ListRuns(ctx)
}

// History returns every recorded month of a run in order.
func (s *Service) History(ctx context.Context, runID string) ([]persistence.MonthRecord, error) {
	return s.store.ListMonths(ctx, runID)
}

// MonthView is one recorded month with the decisions that ended it, if
// the month has been advanced.
type MonthView struct {
	Record          persistence.MonthRecord     `json:"record"`
	PlayerDecisions *persistence.DecisionRecord `json:"player_decisions,omitempty"`
	GuruDecisions   *persistence.DecisionRecord `json:"guru_decisions,omitempty"`
}

// Month returns a single recorded month.
func (s *Service) Month(ctx context.Context, runID string, month int) (*MonthView, error) {
	rec, err := s.store.GetMonth(ctx, runID, month)
	if err != nil {
		return nil, err
	}
	view := &MonthView{Record: *rec}
	if view.PlayerDecisions, err = s.optionalDecisions(ctx, runID, month, agents.ActorPlayer); err != nil {
		return nil, err
	}
	if view.GuruDecisions, err = s.optionalDecisions(ctx, runID, month, agents.ActorGuru); err != nil {
		return nil, err
	}
	return view, nil
}

func (s *Service) optionalDecisions(ctx context.Context, runID string, month int, actor agents.Actor) (*persistence.DecisionRecord, error) {
	rec, err := s.store.GetDecisions(ctx, runID, month, actor)
	if errors.Is(err, persistence.ErrNotFound) {
		return nil, nil
	}
	return rec, err
}

// SubmitDecisions stores the player's decisions for the run's current
// month, replacing any earlier submission.
func (s *Service) SubmitDecisions(ctx context.Context, runID string, month int, set agents.DecisionSet) error {
	unlock := s.lock(runID)
	defer unlock()

	run, err := s.openRun(ctx, runID, month)
	if err != nil {
		return err
	}
	return s.store.SaveDecisions(ctx, &persistence.DecisionRecord{
		RunID:       run.ID,
		Month:       month,
		Actor:       agents.ActorPlayer,
		Set:         set.Clone(),
		SubmittedAt: s.now(),
	})
}

// openRun loads a run that is still active and positioned at month.
func (s *Service) openRun(ctx context.Context, runID string, month int) (*persistence.Run, error) {
	run, err := s.store.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run.Status == persistence.RunFinished {
		return nil, fmt.Errorf("run %s: %w", runID, ErrRunFinished)
	}
	if month != run.Month {
		return nil, fmt.Errorf("run %s is at month %d, not %d: %w", runID, run.Month, month, ErrStaleMonth)
	}
	return run, nil
}

// Advance moves a run from month to month+1 using the player's submitted
// decisions, or the defaults if none were submitted.
func (s *Service) Advance(ctx context.Context, runID string, month int, trigger Trigger) (*Advanced, error) {
	unlock := s.lock(runID)
	defer unlock()

	start := time.Now()
	run, err := s.openRun(ctx, runID, month)
	if err != nil {
		return nil, err
	}
	rec, err := s.store.GetMonth(ctx, runID, month)
	if err != nil {
		return nil, err
	}

	playerRec, err := s.optionalDecisions(ctx, runID, month, agents.ActorPlayer)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if playerRec == nil {
		playerRec = &persistence.DecisionRecord{
			RunID:       runID,
			Month:       month,
			Actor:       agents.ActorPlayer,
			Set:         agents.DefaultDecisions(),
			SubmittedAt: now,
		}
		// Stored so replay sees exactly what the engine saw.
		if err := s.store.SaveDecisions(ctx, playerRec); err != nil {
			return nil, err
		}
	}

	res := s.engine.Advance(engine.Input{
		Player:          rec.Player,
		Guru:            rec.Guru,
		PlayerDecisions: playerRec.Set,
		Offers:          rec.Offers,
		Key:             run.Key,
	})

	guruRec := &persistence.DecisionRecord{
		RunID:       runID,
		Month:       month,
		Actor:       agents.ActorGuru,
		Set:         res.GuruDecision.Set,
		Rationale:   res.GuruRationale(),
		SubmittedAt: now,
	}
	if err := s.store.SaveDecisions(ctx, guruRec); err != nil {
		return nil, err
	}

	next := &persistence.MonthRecord{
		RunID:     runID,
		Month:     month + 1,
		Player:    res.Player,
		Guru:      res.Guru,
		Offers:    res.NextOffers,
		Events:    res.Events,
		CreatedAt: now,
	}
	if err := s.store.SaveMonth(ctx, next); err != nil {
		return nil, fmt.Errorf("save month %d: %w", next.Month, err)
	}

	run.Month = next.Month
	run.UpdatedAt = now
	if run.Horizon > 0 && run.Month >= run.Horizon {
		run.Status = persistence.RunFinished
		metrics.ActiveRuns.Dec()
		slog.Info("run finished", "run", runID, "month", run.Month)
	}
	if err := s.store.UpdateRun(ctx, run); err != nil {
		return nil, err
	}

	recordSkips(res.Events)
	metrics.MonthsAdvanced.WithLabelValues(string(trigger)).Inc()
	metrics.AdvanceLatency.Observe(time.Since(start).Seconds())
	slog.Info("month advanced", "run", runID, "month", run.Month, "trigger", trigger,
		"player_cash", res.Player.Cash, "guru_cash", res.Guru.Cash)

	adv := &Advanced{
		Run:           *run,
		Month:         *next,
		GuruDecisions: guruRec.Set,
		GuruRationale: guruRec.Rationale,
	}
	if s.notifier != nil {
		s.notifier.MonthAdvanced(adv)
	}
	return adv, nil
}

func recordSkips(events []engine.Event) {
	for _, ev := range events {
		if ev.Category == "skipped" {
			metrics.SkippedDecisions.WithLabelValues(string(ev.Actor)).Inc()
		}
	}
}

// SetAutopilot turns scheduled advancing on or off for a run.
func (s *Service) SetAutopilot(ctx context.Context, runID string, enabled bool) (*persistence.Run, error) {
	unlock := s.lock(runID)
	defer unlock()

	run, err := s.store.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	run.Autopilot = enabled
	run.UpdatedAt = s.now()
	if err := s.store.UpdateRun(ctx, run); err != nil {
		return nil, err
	}
	slog.Info("autopilot updated", "run", runID, "enabled", enabled)
	return run, nil
}

// AdvanceAutopilot advances every active run with autopilot enabled by one
// month and returns how many advanced. A failing run is logged and does not
// stop the others.
func (s *Service) AdvanceAutopilot(ctx context.Context) (int, error) {
	list, err := s.store.ListRuns(ctx)
	if err != nil {
		return 0, err
	}
	advanced := 0
	for _, run := range list {
		if !run.Autopilot || run.Status != persistence.RunActive {
			continue
		}
		if err := ctx.Err(); err != nil {
			return advanced, err
		}
		if _, err := s.Advance(ctx, run.ID, run.Month, TriggerAutopilot); err != nil {
			slog.Warn("autopilot advance failed", "run", run.ID, "month", run.Month, "error", err)
			continue
		}
		advanced++
	}
	return advanced, nil
}
