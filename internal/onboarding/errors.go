package onboarding

import (
	"errors"
	"fmt"
)

var (
	ErrCityNotLive            = errors.New("city is not live")
	ErrStageOrderViolation    = errors.New("onboarding step out of order")
	ErrConcurrentModification = errors.New("another onboarding operation is in progress for this user")

	// ErrNotSignedIn is a stage order violation: every step after
	// authentication needs an active session.
	ErrNotSignedIn = fmt.Errorf("%w: not signed in", ErrStageOrderViolation)
	// ErrSessionInvalid rejects tokens that are malformed, expired, or no
	// longer the user's active session.
	ErrSessionInvalid = errors.New("session is not valid")
)
