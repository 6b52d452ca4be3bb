package entity

import (
	"errors"
	"time"

	"github.com/ovaphlow/pitchfork/service-haven-core/internal/subscription"
	"github.com/ovaphlow/pitchfork/service-haven-core/internal/survey"
)

// ErrFieldOrder means a later onboarding field is set while an earlier one
// is missing.
var ErrFieldOrder = errors.New("profile fields out of onboarding order")

// User is an account row. The password is only ever held as a hash.
type User struct {
	ID           string
	Email        string // normalized lower case, unique
	PasswordHash string
	PasswordAlgo string
	Profile      Profile
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Subscription is the plan choice recorded at the subscription stage.
type Subscription struct {
	Tier         subscription.Tier         `json:"tier"`
	BillingCycle subscription.BillingCycle `json:"billing_cycle"`
	IsFounder    bool                      `json:"is_founder"`
	Price        int                       `json:"price"`
	SelectedAt   time.Time                 `json:"selected_at"`
}

// Profile is filled in stage by stage. Zero values mean "not yet":
// CityID "" before the city stage, Subscription nil before the plan stage,
// SurveyCompletedAt nil until the survey is submitted.
type Profile struct {
	FirstName         string         `json:"first_name"`
	CityID            string         `json:"city_id,omitempty"`
	Subscription      *Subscription  `json:"subscription,omitempty"`
	Answers           survey.Answers `json:"answers,omitempty"`
	SurveyCompletedAt *time.Time     `json:"survey_completed_at,omitempty"`
}

// Clone returns a deep copy.
func (p Profile) Clone() Profile {
	out := p
	if p.Subscription != nil {
		s := *p.Subscription
		out.Subscription = &s
	}
	if p.Answers != nil {
		out.Answers = p.Answers.Clone()
	}
	if p.SurveyCompletedAt != nil {
		t := *p.SurveyCompletedAt
		out.SurveyCompletedAt = &t
	}
	return out
}

// CheckOrder verifies no field is populated ahead of the ones before it.
func (p Profile) CheckOrder() error {
	if p.Subscription != nil && p.CityID == "" {
		return errors.Join(ErrFieldOrder, errors.New("subscription without city"))
	}
	if len(p.Answers) > 0 && p.Subscription == nil {
		return errors.Join(ErrFieldOrder, errors.New("survey answers without subscription"))
	}
	if p.SurveyCompletedAt != nil && p.Subscription == nil {
		return errors.Join(ErrFieldOrder, errors.New("survey completed without subscription"))
	}
	return nil
}
