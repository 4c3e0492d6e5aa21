package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/finsim/internal/agents"
)

// SQLiteStore implements Store on a single SQLite file. Snapshots, offers
// and decision sets are stored as JSON columns.
type SQLiteStore struct {
	conn *sqlx.DB
}

// OpenSQLite opens or creates a SQLite database at the given path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// SQLite allows a single writer.
	conn.SetMaxOpenConns(1)

	db := &SQLiteStore{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	slog.Info("sqlite store opened", "path", path)
	return db, nil
}

// Close closes the database connection.
func (db *SQLiteStore) Close() error {
	return db.conn.Close()
}

func (db *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		mode TEXT NOT NULL,
		seed_key TEXT NOT NULL,
		horizon INTEGER NOT NULL,
		month INTEGER NOT NULL,
		status TEXT NOT NULL,
		autopilot INTEGER NOT NULL,
		profile_json TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS month_states (
		run_id TEXT NOT NULL REFERENCES runs(id),
		month INTEGER NOT NULL,
		player_json TEXT NOT NULL,
		guru_json TEXT NOT NULL,
		offers_json TEXT NOT NULL,
		events_json TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		PRIMARY KEY (run_id, month)
	);

	CREATE TABLE IF NOT EXISTS decisions (
		run_id TEXT NOT NULL REFERENCES runs(id),
		month INTEGER NOT NULL,
		actor TEXT NOT NULL,
		set_json TEXT NOT NULL,
		rationale_json TEXT NOT NULL,
		submitted_at INTEGER NOT NULL,
		PRIMARY KEY (run_id, month, actor)
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
	`
	_, err := db.conn.Exec(schema)
	return err
}

type runRow struct {
	ID          string `db:"id"`
	Mode        string `db:"mode"`
	Key         string `db:"seed_key"`
	Horizon     int    `db:"horizon"`
	Month       int    `db:"month"`
	Status      string `db:"status"`
	Autopilot   bool   `db:"autopilot"`
	ProfileJSON string `db:"profile_json"`
	CreatedAt   int64  `db:"created_at"`
	UpdatedAt   int64  `db:"updated_at"`
}

func (r runRow) run() (*Run, error) {
	run := &Run{
		ID:        r.ID,
		Mode:      r.Mode,
		Key:       r.Key,
		Horizon:   r.Horizon,
		Month:     r.Month,
		Status:    RunStatus(r.Status),
		Autopilot: r.Autopilot,
		CreatedAt: time.Unix(0, r.CreatedAt).UTC(),
		UpdatedAt: time.Unix(0, r.UpdatedAt).UTC(),
	}
	if err := json.Unmarshal([]byte(r.ProfileJSON), &run.Profile); err != nil {
		return nil, fmt.Errorf("decode profile of run %s: %w", r.ID, err)
	}
	return run, nil
}

type monthRow struct {
	RunID      string `db:"run_id"`
	Month      int    `db:"month"`
	PlayerJSON string `db:"player_json"`
	GuruJSON   string `db:"guru_json"`
	OffersJSON string `db:"offers_json"`
	EventsJSON string `db:"events_json"`
	CreatedAt  int64  `db:"created_at"`
}

func (r monthRow) record() (*MonthRecord, error) {
	rec := &MonthRecord{
		RunID:     r.RunID,
		Month:     r.Month,
		CreatedAt: time.Unix(0, r.CreatedAt).UTC(),
	}
	if err := decodeMonth(rec, []byte(r.PlayerJSON), []byte(r.GuruJSON), []byte(r.OffersJSON), []byte(r.EventsJSON)); err != nil {
		return nil, fmt.Errorf("decode month %d of run %s: %w", r.Month, r.RunID, err)
	}
	return rec, nil
}

type decisionRow struct {
	RunID         string `db:"run_id"`
	Month         int    `db:"month"`
	Actor         string `db:"actor"`
	SetJSON       string `db:"set_json"`
	RationaleJSON string `db:"rationale_json"`
	SubmittedAt   int64  `db:"submitted_at"`
}

func (db *SQLiteStore) CreateRun(ctx context.Context, run *Run) error {
	profileJSON, err := json.Marshal(run.Profile)
	if err != nil {
		return err
	}
	res, err := db.conn.ExecContext(ctx, `INSERT INTO runs
		(id, mode, seed_key, horizon, month, status, autopilot, profile_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		run.ID, run.Mode, run.Key, run.Horizon, run.Month, string(run.Status), run.Autopilot,
		string(profileJSON), run.CreatedAt.UnixNano(), run.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("create run %s: %w", run.ID, ErrRunExists)
	}
	return nil
}

func (db *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	var row runRow
	err := db.conn.GetContext(ctx, &row, "SELECT * FROM runs WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return row.run()
}

func (db *SQLiteStore) ListRuns(ctx context.Context) ([]Run, error) {
	var rows []runRow
	if err := db.conn.SelectContext(ctx, &rows, "SELECT * FROM runs ORDER BY created_at DESC, id"); err != nil {
		return nil, err
	}
	runs := make([]Run, 0, len(rows))
	for _, r := range rows {
		run, err := r.run()
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, nil
}

func (db *SQLiteStore) UpdateRun(ctx context.Context, run *Run) error {
	res, err := db.conn.ExecContext(ctx, `UPDATE runs
		SET month = ?, status = ?, autopilot = ?, horizon = ?, updated_at = ?
		WHERE id = ?`,
		run.Month, string(run.Status), run.Autopilot, run.Horizon, run.UpdatedAt.UnixNano(), run.ID,
	)
	if err != nil {
		return fmt.Errorf("update run %s: %w", run.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update run %s: %w", run.ID, ErrNotFound)
	}
	return nil
}

func (db *SQLiteStore) SaveMonth(ctx context.Context, rec *MonthRecord) error {
	player, guru, offers, events, err := encodeMonth(rec)
	if err != nil {
		return err
	}

	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	if err := tx.GetContext(ctx, &exists, "SELECT COUNT(*) FROM runs WHERE id = ?", rec.RunID); err != nil {
		return err
	}
	if exists == 0 {
		return fmt.Errorf("save month for run %s: %w", rec.RunID, ErrNotFound)
	}

	res, err := tx.ExecContext(ctx, `INSERT INTO month_states
		(run_id, month, player_json, guru_json, offers_json, events_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, month) DO NOTHING`,
		rec.RunID, rec.Month, string(player), string(guru), string(offers), string(events), rec.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert month %d of run %s: %w", rec.Month, rec.RunID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("save month %d of run %s: %w", rec.Month, rec.RunID, ErrMonthExists)
	}
	return tx.Commit()
}

func (db *SQLiteStore) GetMonth(ctx context.Context, runID string, month int) (*MonthRecord, error) {
	var row monthRow
	err := db.conn.GetContext(ctx, &row, "SELECT * FROM month_states WHERE run_id = ? AND month = ?", runID, month)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("month %d of run %s: %w", month, runID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get month %d of run %s: %w", month, runID, err)
	}
	return row.record()
}

func (db *SQLiteStore) ListMonths(ctx context.Context, runID string) ([]MonthRecord, error) {
	if _, err := db.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	var rows []monthRow
	if err := db.conn.SelectContext(ctx, &rows, "SELECT * FROM month_states WHERE run_id = ? ORDER BY month", runID); err != nil {
		return nil, err
	}
	out := make([]MonthRecord, 0, len(rows))
	for _, r := range rows {
		rec, err := r.record()
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, nil
}

func (db *SQLiteStore) SaveDecisions(ctx context.Context, rec *DecisionRecord) error {
	setJSON, err := json.Marshal(rec.Set)
	if err != nil {
		return err
	}
	rationaleJSON, err := json.Marshal(nonNil(rec.Rationale))
	if err != nil {
		return err
	}
	if _, err := db.GetRun(ctx, rec.RunID); err != nil {
		return err
	}
	_, err = db.conn.ExecContext(ctx, `INSERT OR REPLACE INTO decisions
		(run_id, month, actor, set_json, rationale_json, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.Month, string(rec.Actor), string(setJSON), string(rationaleJSON), rec.SubmittedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("save %s decisions for month %d of run %s: %w", rec.Actor, rec.Month, rec.RunID, err)
	}
	return nil
}

func (db *SQLiteStore) GetDecisions(ctx context.Context, runID string, month int, actor agents.Actor) (*DecisionRecord, error) {
	var row decisionRow
	err := db.conn.GetContext(ctx, &row,
		"SELECT * FROM decisions WHERE run_id = ? AND month = ? AND actor = ?",
		runID, month, string(actor),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s decisions for month %d of run %s: %w", actor, month, runID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	rec := &DecisionRecord{
		RunID:       row.RunID,
		Month:       row.Month,
		Actor:       agents.Actor(row.Actor),
		SubmittedAt: time.Unix(0, row.SubmittedAt).UTC(),
	}
	if err := json.Unmarshal([]byte(row.SetJSON), &rec.Set); err != nil {
		return nil, fmt.Errorf("decode decisions: %w", err)
	}
	if err := json.Unmarshal([]byte(row.RationaleJSON), &rec.Rationale); err != nil {
		return nil, fmt.Errorf("decode rationale: %w", err)
	}
	return rec, nil
}
