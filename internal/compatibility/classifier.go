// Package compatibility classifies match scores produced by the matching
// engine and decides which actions a viewer may take on a match.
package compatibility

import (
	"errors"
	"fmt"
)

// Tier is the discrete compatibility bucket of a score.
type Tier int

const (
	Low Tier = iota
	Medium
	High
)

const (
	MinScore = 0
	MaxScore = 100

	// HighThreshold and MediumThreshold are inclusive lower bounds.
	HighThreshold   = 80
	MediumThreshold = 60
)

var ErrScoreOutOfRange = errors.New("score out of range")

func (t Tier) String() string {
	switch t {
	case High:
		return "High"
	case Medium:
		return "Medium"
	default:
		return "Low"
	}
}

// Bucket is the display bucket used by the presentation layer for styling.
func (t Tier) Bucket() string {
	switch t {
	case High:
		return "compatibility-high"
	case Medium:
		return "compatibility-medium"
	default:
		return "compatibility-low"
	}
}

func (t Tier) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// Classification is the result of classifying one score.
type Classification struct {
	Score         int    `json:"score"`
	Tier          Tier   `json:"tier"`
	DisplayBucket string `json:"display_bucket"`
	Badge         string `json:"badge"`
}

// Classify maps a score in [0,100] to exactly one tier.
func Classify(score int) (Classification, error) {
	if score < MinScore || score > MaxScore {
		return Classification{}, fmt.Errorf("%w: %d not in [%d,%d]", ErrScoreOutOfRange, score, MinScore, MaxScore)
	}
	tier := Low
	switch {
	case score >= HighThreshold:
		tier = High
	case score >= MediumThreshold:
		tier = Medium
	}
	return Classification{
		Score:         score,
		Tier:          tier,
		DisplayBucket: tier.Bucket(),
		Badge:         fmt.Sprintf("%d%% • %s", score, tier),
	}, nil
}
