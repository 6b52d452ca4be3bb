package database

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Config struct {
	DSN      string
	MaxConns int
	Timeout  time.Duration
	TimeZone string
}

// Enabled reports whether a database was configured. Without one the
// service keeps users and the waitlist in memory.
func (c Config) Enabled() bool { return c.DSN != "" }

// ConfigFromEnv reads DATABASE_URL and DATABASE_TIMEZONE.
func ConfigFromEnv() Config {
	return Config{
		DSN:      os.Getenv("DATABASE_URL"),
		MaxConns: 5,
		Timeout:  5 * time.Second,
		TimeZone: os.Getenv("DATABASE_TIMEZONE"),
	}
}

// Connect opens a Postgres pool and verifies it with a ping. The time zone
// travels in the DSN so every pooled connection starts with it.
func Connect(ctx context.Context, cfg Config) (*sqlx.DB, error) {
	dsn, err := dsnWithTimeZone(cfg.DSN, cfg.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(cfg.MaxConns)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return db, nil
}

// dsnWithTimeZone sets the timezone run-time parameter on a URL or
// key=value DSN. lib/pq sends unknown options to the server at startup.
func dsnWithTimeZone(dsn, tz string) (string, error) {
	if tz == "" {
		return dsn, nil
	}
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", err
		}
		q := u.Query()
		q.Set("timezone", tz)
		u.RawQuery = q.Encode()
		return u.String(), nil
	}
	return strings.TrimSpace(dsn + " timezone=" + quoteValue(tz)), nil
}

// quoteValue quotes a key=value DSN value, escaping backslashes and single
// quotes.
func quoteValue(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}
