// Package persistence stores runs, the snapshot recorded at the start of
// every month, and the decision sets that moved a run from one month to the
// next. Month records are append-only; decision sets may be replaced until
// their month is advanced.
package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/talgya/finsim/internal/agents"
	"github.com/talgya/finsim/internal/economy"
	"github.com/talgya/finsim/internal/engine"
)

var (
	ErrNotFound    = errors.New("persistence: not found")
	ErrRunExists   = errors.New("persistence: run already exists")
	ErrMonthExists = errors.New("persistence: month already recorded")
)

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	RunActive   RunStatus = "active"
	RunFinished RunStatus = "finished"
)

// Run is one player-versus-guru simulation.
type Run struct {
	ID        string         `json:"id"`
	Mode      string         `json:"mode"`
	Key       string         `json:"key"`
	Horizon   int            `json:"horizon"` // last month; 0 means open-ended
	Month     int            `json:"month"`
	Status    RunStatus      `json:"status"`
	Autopilot bool           `json:"autopilot"`
	Profile   agents.Profile `json:"profile"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// MonthRecord is the state of both agents at the start of a month together
// with the offers shown that month. Events are those produced by the
// transition into this month.
type MonthRecord struct {
	RunID     string           `json:"run_id"`
	Month     int              `json:"month"`
	Player    *agents.Snapshot `json:"player"`
	Guru      *agents.Snapshot `json:"guru"`
	Offers    []economy.Offer  `json:"offers"`
	Events    []engine.Event   `json:"events,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// DecisionRecord is one agent's decision set for one month.
type DecisionRecord struct {
	RunID       string             `json:"run_id"`
	Month       int                `json:"month"`
	Actor       agents.Actor       `json:"actor"`
	Set         agents.DecisionSet `json:"decisions"`
	Rationale   []string           `json:"rationale,omitempty"`
	SubmittedAt time.Time          `json:"submitted_at"`
}

// Store is the persistence interface. Implementations must be safe for
// concurrent use.
type Store interface {
	CreateRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context) ([]Run, error)
	UpdateRun(ctx context.Context, run *Run) error

	// SaveMonth appends a month record. Rewriting a month fails with
	// ErrMonthExists.
	SaveMonth(ctx context.Context, rec *MonthRecord) error
	GetMonth(ctx context.Context, runID string, month int) (*MonthRecord, error)
	ListMonths(ctx context.Context, runID string) ([]MonthRecord, error)

	// SaveDecisions inserts or replaces the decision set for (run, month, actor).
	SaveDecisions(ctx context.Context, rec *DecisionRecord) error
	GetDecisions(ctx context.Context, runID string, month int, actor agents.Actor) (*DecisionRecord, error)

	Close() error
}
