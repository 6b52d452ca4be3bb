package entity

import "time"

// Entry records a user waiting for a city to go live.
type Entry struct {
	CityID   string    `json:"city_id" db:"city_id"`
	UserID   string    `json:"user_id" db:"user_id"`
	Email    string    `json:"email" db:"email"`
	JoinedAt time.Time `json:"joined_at" db:"joined_at"`
}
