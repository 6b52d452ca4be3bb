package waitlist

import (
	"context"
	"errors"

	"github.com/ovaphlow/pitchfork/service-haven-core/internal/waitlist/entity"
	"github.com/ovaphlow/pitchfork/service-haven-core/internal/waitlist/repo"
)

// Store is satisfied by repo.MemoryRepo and repo.WaitlistRepo.
type Store interface {
	Join(ctx context.Context, e entity.Entry) (entity.Entry, error)
	Restore(ctx context.Context, e entity.Entry) error
	Leave(ctx context.Context, userID string) error
	Get(ctx context.Context, userID string) (entity.Entry, bool, error)
	Count(ctx context.Context, cityID string) (int, error)
	List(ctx context.Context, cityID string) ([]entity.Entry, error)
}

var ErrMissingField = errors.New("waitlist entry needs city, user and join time")

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	if store == nil {
		store = repo.NewMemoryRepo()
	}
	return &Service{store: store}
}

// Join reports whether the entry is new for this city.
func (s *Service) Join(ctx context.Context, cityID, userID, email string) (entity.Entry, bool, error) {
	if cityID == "" || userID == "" {
		return entity.Entry{}, false, ErrMissingField
	}
	cur, ok, err := s.store.Get(ctx, userID)
	if err != nil {
		return entity.Entry{}, false, err
	}
	if ok && cur.CityID == cityID {
		return cur, false, nil
	}
	e, err := s.store.Join(ctx, entity.Entry{CityID: cityID, UserID: userID, Email: email})
	return e, true, err
}

// Restore writes back an entry read earlier, keeping its JoinedAt so the
// user's place in line is unchanged.
func (s *Service) Restore(ctx context.Context, e entity.Entry) error {
	if e.CityID == "" || e.UserID == "" || e.JoinedAt.IsZero() {
		return ErrMissingField
	}
	return s.store.Restore(ctx, e)
}

func (s *Service) Leave(ctx context.Context, userID string) error {
	return s.store.Leave(ctx, userID)
}

// Waiting returns the city the user is waitlisted for, if any.
func (s *Service) Waiting(ctx context.Context, userID string) (string, bool, error) {
	e, ok, err := s.store.Get(ctx, userID)
	return e.CityID, ok, err
}

// Entry returns the user's current waitlist entry, if any.
func (s *Service) Entry(ctx context.Context, userID string) (entity.Entry, bool, error) {
	return s.store.Get(ctx, userID)
}

func (s *Service) Count(ctx context.Context, cityID string) (int, error) {
	return s.store.Count(ctx, cityID)
}

func (s *Service) List(ctx context.Context, cityID string) ([]entity.Entry, error) {
	return s.store.List(ctx, cityID)
}
