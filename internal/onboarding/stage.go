package onboarding

import (
	"fmt"

	"github.com/ovaphlow/pitchfork/service-haven-core/internal/user/entity"
)

// Stage is the derived onboarding position of a user. Later stages compare
// greater.
type Stage int

const (
	Unauthenticated Stage = iota
	CitySelection
	SubscriptionSelection
	SurveyInProgress
	DiscoveryUnlocked
)

var stageNames = [...]string{
	Unauthenticated:       "Unauthenticated",
	CitySelection:         "CitySelection",
	SubscriptionSelection: "SubscriptionSelection",
	SurveyInProgress:      "SurveyInProgress",
	DiscoveryUnlocked:     "DiscoveryUnlocked",
}

func (s Stage) String() string {
	if s < Unauthenticated || s > DiscoveryUnlocked {
		return fmt.Sprintf("Stage(%d)", int(s))
	}
	return stageNames[s]
}

func (s Stage) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Stage) UnmarshalText(b []byte) error {
	for i, name := range stageNames {
		if name == string(b) {
			*s = Stage(i)
			return nil
		}
	}
	return fmt.Errorf("unknown onboarding stage %q", b)
}

// Derive returns the highest stage whose entry conditions p satisfies.
// isLive reports whether a city id is live; a city that is not live keeps
// the user at CitySelection.
func Derive(signedIn bool, p entity.Profile, isLive func(cityID string) bool) Stage {
	switch {
	case !signedIn:
		return Unauthenticated
	case p.CityID == "" || !isLive(p.CityID):
		return CitySelection
	case p.Subscription == nil:
		return SubscriptionSelection
	case p.SurveyCompletedAt == nil:
		return SurveyInProgress
	default:
		return DiscoveryUnlocked
	}
}
