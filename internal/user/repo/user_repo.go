package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ovaphlow/pitchfork/service-haven-core/internal/user/entity"
)

// UserRepo provides data access for the haven_users table using sqlx.
type UserRepo struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{db: db} }

// EnsureTable creates the users table if not exists (idempotent).
// Prefer migrations in production.
func (r *UserRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE EXTENSION IF NOT EXISTS citext;
CREATE TABLE IF NOT EXISTS haven_users (
  id TEXT PRIMARY KEY,
  email CITEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  password_algo TEXT NOT NULL,
  profile JSONB NOT NULL DEFAULT '{}'::jsonb,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

type userRow struct {
	ID           string    `db:"id"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	PasswordAlgo string    `db:"password_algo"`
	Profile      []byte    `db:"profile"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (row userRow) toEntity() (*entity.User, error) {
	u := &entity.User{
		ID:           row.ID,
		Email:        row.Email,
		PasswordHash: row.PasswordHash,
		PasswordAlgo: row.PasswordAlgo,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
	if len(row.Profile) > 0 {
		if err := json.Unmarshal(row.Profile, &u.Profile); err != nil {
			return nil, fmt.Errorf("decode profile of %s: %w", row.ID, err)
		}
	}
	return u, nil
}

// Create inserts a new user row. A duplicate email maps to ErrEmailTaken.
func (r *UserRepo) Create(ctx context.Context, u *entity.User) error {
	profile, err := json.Marshal(u.Profile)
	if err != nil {
		return err
	}
	const q = `INSERT INTO haven_users (id, email, password_hash, password_algo, profile)
		VALUES ($1, $2, $3, $4, $5) RETURNING created_at, updated_at`
	err = r.db.QueryRowxContext(ctx, q, u.ID, u.Email, u.PasswordHash, u.PasswordAlgo, profile).
		Scan(&u.CreatedAt, &u.UpdatedAt)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrEmailTaken
	}
	return err
}

const selectUser = `SELECT id, email, password_hash, password_algo, profile, created_at, updated_at FROM haven_users`

func (r *UserRepo) get(ctx context.Context, where string, arg any) (*entity.User, error) {
	var row userRow
	if err := r.db.GetContext(ctx, &row, selectUser+" WHERE "+where, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return row.toEntity()
}

// GetByEmail matches case-insensitively through citext.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.get(ctx, "email = $1", email)
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return r.get(ctx, "id = $1", id)
}

// SaveProfile overwrites the profile document.
func (r *UserRepo) SaveProfile(ctx context.Context, id string, p entity.Profile) error {
	profile, err := json.Marshal(p)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `UPDATE haven_users SET profile = $2, updated_at = NOW() WHERE id = $1`, id, profile)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
