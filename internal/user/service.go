package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-haven-core/internal/user/entity"
	userrepo "github.com/ovaphlow/pitchfork/service-haven-core/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-haven-core/pkg/utilities"
)

// PasswordHasher defines minimal hashing interface (abstract so we can swap to argon2 later).
type PasswordHasher interface {
	Hash(pw string) (hash string, algo string, err error)
	Verify(hash, pw string) bool
}

// BcryptHasher implementation.
type BcryptHasher struct{ Cost int }

func (b BcryptHasher) Hash(pw string) (string, string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
	if err != nil {
		return "", "", err
	}
	return string(h), fmt.Sprintf("bcrypt:%d", cost), nil
}

func (b BcryptHasher) Verify(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// Store is the persistence the service needs. userrepo.MemoryRepo and
// userrepo.UserRepo both satisfy it.
type Store interface {
	Create(ctx context.Context, u *entity.User) error
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	GetByID(ctx context.Context, id string) (*entity.User, error)
	SaveProfile(ctx context.Context, id string, p entity.Profile) error
}

var (
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrUserNotFound           = errors.New("user not found")
)

// UserService handles sign-up, sign-in and profile storage.
type UserService struct {
	store  Store
	hasher PasswordHasher
	// configuration knobs
	MinPasswordLen int
	NewID          func() string
}

func NewUserService(store Store, hasher PasswordHasher) *UserService {
	if store == nil {
		store = userrepo.NewMemoryRepo()
	}
	if hasher == nil {
		hasher = BcryptHasher{Cost: 12}
	}
	return &UserService{store: store, hasher: hasher, MinPasswordLen: 8, NewID: utilities.NewSnowflakeID}
}

// NormalizeEmail trims and lower-cases so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUp creates an account. The first name defaults to the email local part.
func (s *UserService) SignUp(ctx context.Context, email, password string) (*entity.User, error) {
	email = NormalizeEmail(email)
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return nil, fmt.Errorf("%w: malformed email", ErrInvalidCredentials)
	}
	if len(password) < s.MinPasswordLen {
		return nil, fmt.Errorf("%w: password shorter than %d characters", ErrInvalidCredentials, s.MinPasswordLen)
	}
	hash, algo, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	u := &entity.User{
		ID:           s.NewID(),
		Email:        email,
		PasswordHash: hash,
		PasswordAlgo: algo,
		Profile:      entity.Profile{FirstName: email[:at]},
	}
	if err := s.store.Create(ctx, u); err != nil {
		if errors.Is(err, userrepo.ErrEmailTaken) {
			return nil, ErrEmailAlreadyRegistered
		}
		return nil, err
	}
	return u, nil
}

// SignIn verifies credentials. Unknown email and wrong password are the
// same error to avoid user enumeration.
func (s *UserService) SignIn(ctx context.Context, email, password string) (*entity.User, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	u, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !s.hasher.Verify(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// Get loads a user by id.
func (s *UserService) Get(ctx context.Context, id string) (*entity.User, error) {
	u, err := s.store.GetByID(ctx, id)
	if errors.Is(err, userrepo.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}

// SaveProfile persists p after checking its field order.
func (s *UserService) SaveProfile(ctx context.Context, id string, p entity.Profile) error {
	if err := p.CheckOrder(); err != nil {
		return err
	}
	err := s.store.SaveProfile(ctx, id, p)
	if errors.Is(err, userrepo.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}
