package repo

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/ovaphlow/pitchfork/service-haven-core/internal/waitlist/entity"
)

// MemoryRepo is the waitlist store used when no database is configured.
// A user waits for at most one city at a time.
type MemoryRepo struct {
	mu     sync.RWMutex
	byUser map[string]entity.Entry
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byUser: make(map[string]entity.Entry)}
}

// Join is idempotent for the same city; joining another city moves the entry.
func (r *MemoryRepo) Join(ctx context.Context, e entity.Entry) (entity.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.byUser[e.UserID]; ok && cur.CityID == e.CityID {
		return cur, nil
	}
	if e.JoinedAt.IsZero() {
		e.JoinedAt = time.Now().UTC()
	}
	r.byUser[e.UserID] = e
	return e, nil
}

// Restore stores e as given, including its JoinedAt.
func (r *MemoryRepo) Restore(ctx context.Context, e entity.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byUser[e.UserID] = e
	return nil
}

func (r *MemoryRepo) Leave(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byUser, userID)
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, userID string) (entity.Entry, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byUser[userID]
	return e, ok, nil
}

func (r *MemoryRepo) Count(ctx context.Context, cityID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, e := range r.byUser {
		if e.CityID == cityID {
			n++
		}
	}
	return n, nil
}

// List returns entries for a city, oldest first.
func (r *MemoryRepo) List(ctx context.Context, cityID string) ([]entity.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []entity.Entry
	for _, e := range r.byUser {
		if e.CityID == cityID {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b entity.Entry) int {
		if c := a.JoinedAt.Compare(b.JoinedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.UserID, b.UserID)
	})
	return out, nil
}
