package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/talgya/finsim/internal/agents"
)

// PostgresStore implements Store on PostgreSQL. JSON columns are JSONB.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// ConnectPostgres opens a pool for dsn and ensures the schema exists.
func ConnectPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := NewPostgresStore(pool)
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Migrate creates the tables if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		mode TEXT NOT NULL,
		seed_key TEXT NOT NULL,
		horizon INTEGER NOT NULL,
		month INTEGER NOT NULL,
		status TEXT NOT NULL,
		autopilot BOOLEAN NOT NULL,
		profile JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS month_states (
		run_id TEXT NOT NULL REFERENCES runs(id),
		month INTEGER NOT NULL,
		player JSONB NOT NULL,
		guru JSONB NOT NULL,
		offers JSONB NOT NULL,
		events JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (run_id, month)
	);

	CREATE TABLE IF NOT EXISTS decisions (
		run_id TEXT NOT NULL REFERENCES runs(id),
		month INTEGER NOT NULL,
		actor TEXT NOT NULL,
		decision_set JSONB NOT NULL,
		rationale JSONB NOT NULL,
		submitted_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (run_id, month, actor)
	);`)
	return err
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, run *Run) error {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, mode, seed_key, horizon, month, status, autopilot, profile, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO NOTHING`,
		run.ID, run.Mode, run.Key, run.Horizon, run.Month, string(run.Status), run.Autopilot,
		run.Profile, run.CreatedAt, run.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("create run %s: %w", run.ID, ErrRunExists)
	}
	return nil
}

const runColumns = `id, mode, seed_key, horizon, month, status, autopilot, profile, created_at, updated_at`

func scanRun(row pgx.Row) (*Run, error) {
	var r Run
	var status string
	err := row.Scan(&r.ID, &r.Mode, &r.Key, &r.Horizon, &r.Month, &status, &r.Autopilot,
		&r.Profile, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	r.Status = RunStatus(status)
	return &r, nil
}

func (s *PostgresStore) GetRun(ctx context.Context, id string) (*Run, error) {
	r, err := scanRun(s.pool.QueryRow(ctx, `SELECT `+runColumns+` FROM runs WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

func (s *PostgresStore) UpdateRun(ctx context.Context, run *Run) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET month = $1, status = $2, autopilot = $3, horizon = $4, updated_at = $5 WHERE id = $6`,
		run.Month, string(run.Status), run.Autopilot, run.Horizon, run.UpdatedAt, run.ID,
	)
	if err != nil {
		return fmt.Errorf("update run %s: %w", run.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update run %s: %w", run.ID, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) SaveMonth(ctx context.Context, rec *MonthRecord) error {
	player, guru, offers, events, err := encodeMonth(rec)
	if err != nil {
		return err
	}
	if _, err := s.GetRun(ctx, rec.RunID); err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO month_states (run_id, month, player, guru, offers, events, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (run_id, month) DO NOTHING`,
		rec.RunID, rec.Month, player, guru, offers, events, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert month %d of run %s: %w", rec.Month, rec.RunID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("save month %d of run %s: %w", rec.Month, rec.RunID, ErrMonthExists)
	}
	return nil
}

const monthColumns = `run_id, month, player, guru, offers, events, created_at`

func scanMonth(row pgx.Row) (*MonthRecord, error) {
	var rec MonthRecord
	var player, guru, offers, events []byte
	if err := row.Scan(&rec.RunID, &rec.Month, &player, &guru, &offers, &events, &rec.CreatedAt); err != nil {
		return nil, err
	}
	if err := decodeMonth(&rec, player, guru, offers, events); err != nil {
		return nil, fmt.Errorf("decode month %d of run %s: %w", rec.Month, rec.RunID, err)
	}
	return &rec, nil
}

func (s *PostgresStore) GetMonth(ctx context.Context, runID string, month int) (*MonthRecord, error) {
	rec, err := scanMonth(s.pool.QueryRow(ctx,
		`SELECT `+monthColumns+` FROM month_states WHERE run_id = $1 AND month = $2`, runID, month))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("month %d of run %s: %w", month, runID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get month %d of run %s: %w", month, runID, err)
	}
	return rec, nil
}

func (s *PostgresStore) ListMonths(ctx context.Context, runID string) ([]MonthRecord, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+monthColumns+` FROM month_states WHERE run_id = $1 ORDER BY month`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []MonthRecord{}
	for rows.Next() {
		rec, err := scanMonth(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func (s *PostgresStore) SaveDecisions(ctx context.Context, rec *DecisionRecord) error {
	if _, err := s.GetRun(ctx, rec.RunID); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO decisions (run_id, month, actor, decision_set, rationale, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (run_id, month, actor)
		 DO UPDATE SET decision_set = EXCLUDED.decision_set, rationale = EXCLUDED.rationale, submitted_at = EXCLUDED.submitted_at`,
		rec.RunID, rec.Month, string(rec.Actor), rec.Set, nonNil(rec.Rationale), rec.SubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("save %s decisions for month %d of run %s: %w", rec.Actor, rec.Month, rec.RunID, err)
	}
	return nil
}

func (s *PostgresStore) GetDecisions(ctx context.Context, runID string, month int, actor agents.Actor) (*DecisionRecord, error) {
	rec := DecisionRecord{Actor: actor}
	err := s.pool.QueryRow(ctx,
		`SELECT run_id, month, decision_set, rationale, submitted_at
		 FROM decisions WHERE run_id = $1 AND month = $2 AND actor = $3`,
		runID, month, string(actor)).
		Scan(&rec.RunID, &rec.Month, &rec.Set, &rec.Rationale, &rec.SubmittedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s decisions for month %d of run %s: %w", actor, month, runID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
