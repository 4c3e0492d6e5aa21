package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/talgya/finsim/internal/agents"
)

// CachedStore wraps a primary Store with a Redis read-through cache. Month
// records never change once written, so they are cached on write; runs are
// invalidated on update. A Redis outage degrades to primary reads.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Write-through ---

func (s *CachedStore) CreateRun(ctx context.Context, run *Run) error {
	if err := s.primary.CreateRun(ctx, run); err != nil {
		return err
	}
	s.put(ctx, runKey(run.ID), run)
	return nil
}

func (s *CachedStore) UpdateRun(ctx context.Context, run *Run) error {
	if err := s.primary.UpdateRun(ctx, run); err != nil {
		return err
	}
	s.rdb.Del(ctx, runKey(run.ID))
	return nil
}

func (s *CachedStore) SaveMonth(ctx context.Context, rec *MonthRecord) error {
	if err := s.primary.SaveMonth(ctx, rec); err != nil {
		return err
	}
	s.put(ctx, monthKey(rec.RunID, rec.Month), rec)
	return nil
}

// --- Read-through ---

func (s *CachedStore) GetRun(ctx context.Context, id string) (*Run, error) {
	var run Run
	if s.get(ctx, runKey(id), &run) {
		return &run, nil
	}
	r, err := s.primary.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	s.put(ctx, runKey(id), r)
	return r, nil
}

func (s *CachedStore) GetMonth(ctx context.Context, runID string, month int) (*MonthRecord, error) {
	var rec MonthRecord
	if s.get(ctx, monthKey(runID, month), &rec) {
		return &rec, nil
	}
	r, err := s.primary.GetMonth(ctx, runID, month)
	if err != nil {
		return nil, err
	}
	s.put(ctx, monthKey(runID, month), r)
	return r, nil
}

// --- Passthrough ---

func (s *CachedStore) ListRuns(ctx context.Context) ([]Run, error) {
	return s.primary.ListRuns(ctx)
}

func (s *CachedStore) ListMonths(ctx context.Context, runID string) ([]MonthRecord, error) {
	return s.primary.ListMonths(ctx, runID)
}

func (s *CachedStore) SaveDecisions(ctx context.Context, rec *DecisionRecord) error {
	return s.primary.SaveDecisions(ctx, rec)
}

func (s *CachedStore) GetDecisions(ctx context.Context, runID string, month int, actor agents.Actor) (*DecisionRecord, error) {
	return s.primary.GetDecisions(ctx, runID, month, actor)
}

// Close closes the primary store and the Redis client.
func (s *CachedStore) Close() error {
	rerr := s.rdb.Close()
	if err := s.primary.Close(); err != nil {
		return err
	}
	return rerr
}

// --- Cache helpers ---

func (s *CachedStore) get(ctx context.Context, key string, v any) bool {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, v) == nil
}

func (s *CachedStore) put(ctx context.Context, key string, v any) {
	if data, err := json.Marshal(v); err == nil {
		s.rdb.Set(ctx, key, data, s.ttl)
	}
}

func runKey(id string) string              { return fmt.Sprintf("finsim:run:%s", id) }
func monthKey(id string, month int) string { return fmt.Sprintf("finsim:month:%s:%d", id, month) }
