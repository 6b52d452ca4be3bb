package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-haven-core/internal/waitlist/entity"
)

type WaitlistRepo struct {
	db *sqlx.DB
}

func NewWaitlistRepo(db *sqlx.DB) *WaitlistRepo {
	return &WaitlistRepo{db: db}
}

// EnsureTable creates the waitlist table if it does not already exist.
// user_id is the primary key so a user waits for one city at a time.
func (r *WaitlistRepo) EnsureTable(ctx context.Context) error {
	const tbl = `
	CREATE TABLE IF NOT EXISTS haven_waitlist (
		user_id TEXT PRIMARY KEY,
		city_id TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		joined_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	`
	if _, err := r.db.ExecContext(ctx, tbl); err != nil {
		return err
	}

	const idx = `
	CREATE INDEX IF NOT EXISTS idx_haven_waitlist_city ON haven_waitlist (city_id, joined_at);
	`
	if _, err := r.db.ExecContext(ctx, idx); err != nil {
		return err
	}
	return nil
}

// Join upserts the entry. Re-joining the same city keeps the original
// joined_at; joining a different city resets it.
func (r *WaitlistRepo) Join(ctx context.Context, e entity.Entry) (entity.Entry, error) {
	const q = `
	INSERT INTO haven_waitlist (user_id, city_id, email)
	VALUES ($1, $2, $3)
	ON CONFLICT (user_id) DO UPDATE SET
		city_id = EXCLUDED.city_id,
		email = EXCLUDED.email,
		joined_at = CASE WHEN haven_waitlist.city_id = EXCLUDED.city_id
			THEN haven_waitlist.joined_at ELSE NOW() END
	RETURNING user_id, city_id, email, joined_at
	`
	var out entity.Entry
	err := r.db.QueryRowxContext(ctx, q, e.UserID, e.CityID, e.Email).StructScan(&out)
	return out, err
}

// Restore upserts e with its own joined_at.
func (r *WaitlistRepo) Restore(ctx context.Context, e entity.Entry) error {
	const q = `
	INSERT INTO haven_waitlist (user_id, city_id, email, joined_at)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (user_id) DO UPDATE SET
		city_id = EXCLUDED.city_id,
		email = EXCLUDED.email,
		joined_at = EXCLUDED.joined_at
	`
	_, err := r.db.ExecContext(ctx, q, e.UserID, e.CityID, e.Email, e.JoinedAt)
	return err
}

func (r *WaitlistRepo) Leave(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM haven_waitlist WHERE user_id = $1`, userID)
	return err
}

func (r *WaitlistRepo) Get(ctx context.Context, userID string) (entity.Entry, bool, error) {
	var e entity.Entry
	err := r.db.GetContext(ctx, &e, `SELECT user_id, city_id, email, joined_at FROM haven_waitlist WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Entry{}, false, nil
	}
	if err != nil {
		return entity.Entry{}, false, err
	}
	return e, true, nil
}

func (r *WaitlistRepo) Count(ctx context.Context, cityID string) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM haven_waitlist WHERE city_id = $1`, cityID)
	return n, err
}

func (r *WaitlistRepo) List(ctx context.Context, cityID string) ([]entity.Entry, error) {
	out := []entity.Entry{}
	err := r.db.SelectContext(ctx, &out,
		`SELECT user_id, city_id, email, joined_at FROM haven_waitlist WHERE city_id = $1 ORDER BY joined_at, user_id`, cityID)
	return out, err
}
