package salesdata

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-process Repository used by tests and by
// standalone runs without Postgres.
type MemoryRepository struct {
	mu      sync.Mutex
	byKey   map[string]*SalesData
	saveErr func(rec *SalesData) error
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byKey: make(map[string]*SalesData)}
}

// FailSavesWith installs a hook consulted before every Save, for exercising
// transient-failure paths.
func (r *MemoryRepository) FailSavesWith(fn func(rec *SalesData) error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saveErr = fn
}

func key(teamID string, date time.Time) string {
	return teamID + "|" + date.Format("2006-01-02")
}

func (r *MemoryRepository) FindByTeamAndDate(ctx context.Context, teamID string, date time.Time) (*SalesData, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byKey[key(teamID, date)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (r *MemoryRepository) Save(ctx context.Context, rec *SalesData, replace bool) (*SalesData, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		if err := r.saveErr(rec); err != nil {
			return nil, err
		}
	}
	k := key(rec.TeamID, rec.Date)
	existing, ok := r.byKey[k]
	if ok && !replace {
		return nil, ErrDuplicateEntry
	}
	saved := *rec
	now := time.Now().UTC()
	saved.UpdatedAt = now
	if ok {
		saved.ID = existing.ID
		saved.CreatedAt = existing.CreatedAt
	} else {
		saved.ID = uuid.New().String()
		saved.CreatedAt = now
	}
	stored := saved
	r.byKey[k] = &stored
	return &saved, nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, rec := range r.byKey {
		if rec.ID == id {
			delete(r.byKey, k)
			return nil
		}
	}
	return ErrNotFound
}

// Count returns the number of stored records.
func (r *MemoryRepository) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byKey)
}
