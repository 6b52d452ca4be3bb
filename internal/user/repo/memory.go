package repo

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ovaphlow/pitchfork/service-haven-core/internal/user/entity"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already taken")
)

// MemoryRepo keeps users in process memory. It is the default store when no
// database is configured.
type MemoryRepo struct {
	mu      sync.RWMutex
	byID    map[string]*entity.User
	byEmail map[string]string
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]*entity.User), byEmail: make(map[string]string)}
}

func copyUser(u *entity.User) *entity.User {
	cp := *u
	cp.Profile = u.Profile.Clone()
	return &cp
}

// Create stores u. Email uniqueness is checked and claimed atomically.
func (r *MemoryRepo) Create(ctx context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.byEmail[u.Email]; taken {
		return ErrEmailTaken
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	r.byID[u.ID] = copyUser(u)
	r.byEmail[u.Email] = u.ID
	return nil
}

func (r *MemoryRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	return copyUser(r.byID[id]), nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyUser(u), nil
}

// SaveProfile replaces the stored profile of a user.
func (r *MemoryRepo) SaveProfile(ctx context.Context, id string, p entity.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	u.Profile = p.Clone()
	u.UpdatedAt = time.Now().UTC()
	return nil
}
