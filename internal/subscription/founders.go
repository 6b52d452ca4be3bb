package subscription

import (
	"fmt"
	"sync/atomic"
)

// DefaultFounderCap is the modeled founder cohort size per city.
const DefaultFounderCap = 500

// Ledger tracks the remaining founder slots of each city. Counts only move
// down through Claim; Refund exists to undo a claim whose operation failed.
type Ledger struct {
	limit int
	slots map[string]*atomic.Int64
}

// NewLedger seeds the ledger with each city's available slots. Counts must
// lie in [0, cap].
func NewLedger(founderCap int, available map[string]int) (*Ledger, error) {
	if founderCap <= 0 {
		founderCap = DefaultFounderCap
	}
	l := &Ledger{limit: founderCap, slots: make(map[string]*atomic.Int64, len(available))}
	for city, n := range available {
		if n < 0 || n > founderCap {
			return nil, fmt.Errorf("founder slots for %s: %d not in [0,%d]", city, n, founderCap)
		}
		c := new(atomic.Int64)
		c.Store(int64(n))
		l.slots[city] = c
	}
	return l, nil
}

// Cap is the per-city founder cohort size.
func (l *Ledger) Cap() int { return l.limit }

// Available returns the remaining slots for a city, 0 when unknown.
func (l *Ledger) Available(cityID string) int {
	c, ok := l.slots[cityID]
	if !ok {
		return 0
	}
	return int(c.Load())
}

// Claim takes one founder slot and returns how many remain. Concurrent
// claims on the last slot succeed exactly once.
func (l *Ledger) Claim(cityID string) (int, error) {
	c, ok := l.slots[cityID]
	if !ok {
		return 0, fmt.Errorf("%w: no founder cohort for %s", ErrNoFounderSlotsLeft, cityID)
	}
	for {
		cur := c.Load()
		if cur <= 0 {
			return 0, fmt.Errorf("%w: %s", ErrNoFounderSlotsLeft, cityID)
		}
		if c.CompareAndSwap(cur, cur-1) {
			return int(cur - 1), nil
		}
	}
}

// Refund returns a slot taken by Claim. It never raises a count above cap.
func (l *Ledger) Refund(cityID string) {
	c, ok := l.slots[cityID]
	if !ok {
		return
	}
	for {
		cur := c.Load()
		if cur >= int64(l.limit) || c.CompareAndSwap(cur, cur+1) {
			return
		}
	}
}
