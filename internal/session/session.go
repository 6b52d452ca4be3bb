package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ovaphlow/pitchfork/service-haven-core/pkg/utilities"
)

const DefaultTTL = 24 * time.Hour

var ErrInvalidToken = errors.New("invalid session token")

// Session binds a signed bearer token to one user.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Token     string    `json:"token"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Claims is what a verified token carries.
type Claims struct {
	SessionID string
	UserID    string
	ExpiresAt time.Time
}

// Manager signs and verifies HS256 session tokens. It keeps no state;
// deciding which session is still active belongs to the caller.
type Manager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewManager(secret []byte, issuer string, ttl time.Duration) (*Manager, error) {
	if len(secret) < 16 {
		return nil, fmt.Errorf("session secret must be at least 16 bytes, got %d", len(secret))
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{secret: secret, issuer: issuer, ttl: ttl, now: time.Now}, nil
}

// Issue mints a new session for userID.
func (m *Manager) Issue(userID string) (Session, error) {
	now := m.now().UTC().Truncate(time.Second)
	s := Session{
		ID:        utilities.NewKSUID(),
		UserID:    userID,
		IssuedAt:  now,
		ExpiresAt: now.Add(m.ttl),
	}
	claims := jwt.RegisteredClaims{
		Issuer:    m.issuer,
		Subject:   userID,
		ID:        s.ID,
		IssuedAt:  jwt.NewNumericDate(s.IssuedAt),
		ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return Session{}, err
	}
	s.Token = tok
	return s, nil
}

// Verify checks signature, issuer and expiry.
func (m *Manager) Verify(token string) (Claims, error) {
	var rc jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &rc, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if rc.Subject == "" || rc.ID == "" {
		return Claims{}, fmt.Errorf("%w: missing subject or id", ErrInvalidToken)
	}
	return Claims{SessionID: rc.ID, UserID: rc.Subject, ExpiresAt: rc.ExpiresAt.Time}, nil
}
