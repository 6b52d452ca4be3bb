package onboarding

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-haven-core/internal/catalog"
	cityentity "github.com/ovaphlow/pitchfork/service-haven-core/internal/catalog/entity"
	"github.com/ovaphlow/pitchfork/service-haven-core/internal/compatibility"
	"github.com/ovaphlow/pitchfork/service-haven-core/internal/events"
	"github.com/ovaphlow/pitchfork/service-haven-core/internal/session"
	"github.com/ovaphlow/pitchfork/service-haven-core/internal/subscription"
	"github.com/ovaphlow/pitchfork/service-haven-core/internal/survey"
	"github.com/ovaphlow/pitchfork/service-haven-core/internal/user"
	"github.com/ovaphlow/pitchfork/service-haven-core/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-haven-core/internal/waitlist"
)

// Deps are the collaborators of a Flow. Users, Catalog and Sessions are
// required; the rest default to in-memory or log-only implementations.
type Deps struct {
	Users     *user.UserService
	Catalog   *catalog.Catalog
	Sessions  *session.Manager
	Ledger    *subscription.Ledger
	Waitlist  *waitlist.Service
	Publisher events.Publisher
	Logger    *zap.SugaredLogger
}

// Flow drives users through onboarding. Every mutating call for one user
// holds that user's lock; a second call arriving meanwhile fails with
// ErrConcurrentModification. Calls for different users never contend.
type Flow struct {
	users    *user.UserService
	catalog  *catalog.Catalog
	sessions *session.Manager
	ledger   *subscription.Ledger
	waitlist *waitlist.Service
	events   events.Publisher
	logger   *zap.SugaredLogger
	now      func() time.Time

	mu     sync.RWMutex
	active map[string]string // user id -> active session id
	locks  userLocks
}

func NewFlow(d Deps) (*Flow, error) {
	if d.Users == nil || d.Catalog == nil || d.Sessions == nil {
		return nil, errors.New("onboarding flow is missing a required collaborator")
	}
	if d.Ledger == nil {
		l, err := subscription.NewLedger(d.Catalog.FounderCap(), d.Catalog.FounderSlots())
		if err != nil {
			return nil, err
		}
		d.Ledger = l
	}
	if d.Waitlist == nil {
		d.Waitlist = waitlist.NewService(nil)
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop().Sugar()
	}
	if d.Publisher == nil {
		d.Publisher = events.NewLogPublisher(d.Logger)
	}
	return &Flow{
		users:    d.Users,
		catalog:  d.Catalog,
		sessions: d.Sessions,
		ledger:   d.Ledger,
		waitlist: d.Waitlist,
		events:   d.Publisher,
		logger:   d.Logger,
		now:      func() time.Time { return time.Now().UTC() },
		active:   make(map[string]string),
	}, nil
}

// Status is the onboarding summary shown to a signed-in user.
type Status struct {
	Stage        Stage                     `json:"stage"`
	FirstName    string                    `json:"first_name"`
	Waitlisted   bool                      `json:"waitlisted"`
	City         *cityentity.City          `json:"city,omitempty"`
	Subscription *entity.Subscription      `json:"subscription,omitempty"`
	Entitlements subscription.Entitlements `json:"entitlements"`
	Survey       survey.Progress           `json:"survey"`
}

func (f *Flow) isLive(cityID string) bool {
	c, err := f.catalog.City(cityID)
	return err == nil && c.IsLive
}

func (f *Flow) signedIn(userID string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.active[userID]
	return ok
}

// Authenticate signs a user up or in and makes the new session the only
// active one for that user. Returning users resume at the stage their
// stored profile supports.
func (f *Flow) Authenticate(ctx context.Context, email, password string, isSignUp bool) (*entity.User, session.Session, error) {
	var (
		u   *entity.User
		err error
	)
	if isSignUp {
		u, err = f.users.SignUp(ctx, email, password)
	} else {
		u, err = f.users.SignIn(ctx, email, password)
	}
	if err != nil {
		return nil, session.Session{}, err
	}

	unlock, ok := f.locks.tryLock(u.ID)
	if !ok {
		return nil, session.Session{}, ErrConcurrentModification
	}
	before := Derive(f.signedIn(u.ID), u.Profile, f.isLive)
	s, err := f.sessions.Issue(u.ID)
	if err != nil {
		unlock()
		return nil, session.Session{}, err
	}
	f.mu.Lock()
	f.active[u.ID] = s.ID
	f.mu.Unlock()
	after := Derive(true, u.Profile, f.isLive)
	unlock()

	if before != after {
		f.publish(ctx, []events.Event{f.stageChanged(u.ID, u.Profile.CityID, before, after)})
	}
	return u, s, nil
}

// Resolve maps a bearer token to its user id. Tokens from a session that was
// signed out or replaced are rejected.
func (f *Flow) Resolve(token string) (string, error) {
	c, err := f.sessions.Verify(token)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSessionInvalid, err)
	}
	f.mu.RLock()
	active := f.active[c.UserID]
	f.mu.RUnlock()
	if active != c.SessionID {
		return "", fmt.Errorf("%w: session ended", ErrSessionInvalid)
	}
	return c.UserID, nil
}

// SignOut ends the user's session. Profile data is kept.
func (f *Flow) SignOut(ctx context.Context, userID string) error {
	unlock, ok := f.locks.tryLock(userID)
	if !ok {
		return ErrConcurrentModification
	}
	before, err := f.CurrentStage(ctx, userID)
	if err != nil {
		f.logger.Warnw("sign out without readable profile", "user_id", userID, "err", err)
	}
	f.mu.Lock()
	delete(f.active, userID)
	f.mu.Unlock()
	unlock()

	if before != Unauthenticated {
		f.publish(ctx, []events.Event{f.stageChanged(userID, "", before, Unauthenticated)})
	}
	return nil
}

// change is the outcome of one mutating step, applied by mutate.
type change struct {
	profile entity.Profile
	noop    bool
	// undo reverts side effects taken before the profile is saved.
	undo   func()
	events []events.Event
}

// mutate runs fn under the user's lock and persists the profile it returns.
// Events are published after the lock is released.
func (f *Flow) mutate(ctx context.Context, userID string, fn func(u *entity.User) (change, error)) (entity.Profile, error) {
	unlock, ok := f.locks.tryLock(userID)
	if !ok {
		return entity.Profile{}, ErrConcurrentModification
	}
	var emit []events.Event
	p, err := func() (entity.Profile, error) {
		defer unlock()
		if !f.signedIn(userID) {
			return entity.Profile{}, ErrNotSignedIn
		}
		u, err := f.users.Get(ctx, userID)
		if err != nil {
			return entity.Profile{}, err
		}
		before := Derive(true, u.Profile, f.isLive)
		c, err := fn(u)
		if err != nil {
			return entity.Profile{}, err
		}
		if c.noop {
			return u.Profile, nil
		}
		if err := f.users.SaveProfile(ctx, userID, c.profile); err != nil {
			if c.undo != nil {
				c.undo()
			}
			return entity.Profile{}, err
		}
		emit = c.events
		if after := Derive(true, c.profile, f.isLive); after != before {
			emit = append(emit, f.stageChanged(userID, c.profile.CityID, before, after))
		}
		return c.profile, nil
	}()
	f.publish(ctx, emit)
	return p, err
}

// SelectCity records the user's city. A city that is not live puts the user
// on its waitlist and keeps them at CitySelection.
func (f *Flow) SelectCity(ctx context.Context, userID, cityID string) (entity.Profile, error) {
	return f.mutate(ctx, userID, func(u *entity.User) (change, error) {
		city, err := f.catalog.City(cityID)
		if err != nil {
			return change{}, err
		}
		p := u.Profile.Clone()
		if p.CityID == city.ID {
			return change{noop: true}, nil
		}
		if p.Subscription != nil {
			return change{}, fmt.Errorf("%w: city cannot change once a plan is chosen", ErrStageOrderViolation)
		}
		if p.CityID != "" && f.isLive(p.CityID) && !city.IsLive {
			return change{}, fmt.Errorf("%w: cannot move from a live city to a waitlisted one", ErrStageOrderViolation)
		}

		prev, wasWaiting, err := f.waitlist.Entry(ctx, userID)
		if err != nil {
			return change{}, err
		}
		c := change{undo: func() {
			var err error
			if wasWaiting {
				err = f.waitlist.Restore(ctx, prev)
			} else {
				err = f.waitlist.Leave(ctx, userID)
			}
			if err != nil {
				f.logger.Warnw("restore waitlist failed", "user_id", userID, "err", err)
			}
		}}
		if city.IsLive {
			if err := f.waitlist.Leave(ctx, userID); err != nil {
				return change{}, err
			}
		} else {
			_, added, err := f.waitlist.Join(ctx, city.ID, userID, u.Email)
			if err != nil {
				return change{}, err
			}
			if added {
				c.events = append(c.events, events.Event{Type: events.Waitlisted, UserID: userID, CityID: city.ID, At: f.now()})
			}
		}
		p.CityID = city.ID
		c.profile = p
		return c, nil
	})
}

// SelectPlan records the plan and billing cycle. The first paid plan in a
// live city claims a founder slot while any remain; founder status is kept
// across later plan changes.
func (f *Flow) SelectPlan(ctx context.Context, userID, planID, billingCycle string) (entity.Profile, error) {
	return f.mutate(ctx, userID, func(u *entity.User) (change, error) {
		p := u.Profile.Clone()
		if p.CityID == "" {
			return change{}, fmt.Errorf("%w: choose a city before a plan", ErrStageOrderViolation)
		}
		plan, err := f.catalog.Plan(planID)
		if err != nil {
			return change{}, err
		}
		cycle, err := subscription.ParseBillingCycle(billingCycle)
		if err != nil {
			return change{}, err
		}
		if !f.isLive(p.CityID) {
			return change{}, fmt.Errorf("%w: %s is waitlisted", ErrCityNotLive, p.CityID)
		}
		cur := p.Subscription
		if cur != nil && cur.Tier == plan.ID && cur.BillingCycle == cycle {
			return change{noop: true}, nil
		}

		var c change
		founder := cur != nil && cur.IsFounder
		if !founder && plan.ID.Paid() {
			cityID := p.CityID
			if _, err := f.ledger.Claim(cityID); err == nil {
				founder = true
				c.undo = func() { f.ledger.Refund(cityID) }
			} else if !errors.Is(err, subscription.ErrNoFounderSlotsLeft) {
				return change{}, err
			} else {
				f.logger.Debugw("founder cohort full", "city_id", cityID, "user_id", userID)
			}
		}
		price, err := subscription.Price(plan, cycle, founder)
		if err != nil {
			if c.undo != nil {
				c.undo()
			}
			return change{}, err
		}
		p.Subscription = &entity.Subscription{
			Tier:         plan.ID,
			BillingCycle: cycle,
			IsFounder:    founder,
			Price:        price,
			SelectedAt:   f.now(),
		}
		c.profile = p
		return c, nil
	})
}

// RecordSurveyAnswer validates and stores one answer. A nil or empty value
// clears the answer. It never changes the stage by itself.
func (f *Flow) RecordSurveyAnswer(ctx context.Context, userID, questionID string, value any) (entity.Profile, error) {
	return f.mutate(ctx, userID, func(u *entity.User) (change, error) {
		p := u.Profile.Clone()
		if p.Subscription == nil {
			return change{}, fmt.Errorf("%w: choose a plan before answering the survey", ErrStageOrderViolation)
		}
		s := f.catalog.Survey()
		a, err := s.ValidateAnswer(questionID, value)
		if err != nil {
			return change{}, err
		}
		cur, had := p.Answers[questionID]
		if a == nil || a.Empty() {
			if !had {
				return change{noop: true}, nil
			}
			if q, _ := s.Question(questionID); p.SurveyCompletedAt != nil && q.Required() {
				return change{}, fmt.Errorf("%w: %s is required by the completed survey", ErrStageOrderViolation, questionID)
			}
			delete(p.Answers, questionID)
			return change{profile: p}, nil
		}
		if had && reflect.DeepEqual(cur.Value(), a.Value()) {
			return change{noop: true}, nil
		}
		if p.Answers == nil {
			p.Answers = survey.Answers{}
		}
		p.Answers[questionID] = a
		return change{profile: p}, nil
	})
}

// CompleteSurvey unlocks discovery once every required question has a valid
// answer. The error is a *survey.IncompleteError otherwise.
func (f *Flow) CompleteSurvey(ctx context.Context, userID string) (entity.Profile, error) {
	return f.mutate(ctx, userID, func(u *entity.User) (change, error) {
		p := u.Profile.Clone()
		if p.Subscription == nil {
			return change{}, fmt.Errorf("%w: choose a plan before completing the survey", ErrStageOrderViolation)
		}
		if p.SurveyCompletedAt != nil {
			return change{noop: true}, nil
		}
		if err := f.catalog.Survey().Check(p.Answers); err != nil {
			return change{}, err
		}
		now := f.now()
		p.SurveyCompletedAt = &now
		return change{profile: p}, nil
	})
}

// CurrentStage derives the stage from the stored profile. It has no side
// effects.
func (f *Flow) CurrentStage(ctx context.Context, userID string) (Stage, error) {
	if !f.signedIn(userID) {
		return Unauthenticated, nil
	}
	u, err := f.users.Get(ctx, userID)
	if err != nil {
		return Unauthenticated, err
	}
	return Derive(true, u.Profile, f.isLive), nil
}

func (f *Flow) profile(ctx context.Context, userID string) (entity.Profile, error) {
	if !f.signedIn(userID) {
		return entity.Profile{}, ErrNotSignedIn
	}
	u, err := f.users.Get(ctx, userID)
	if err != nil {
		return entity.Profile{}, err
	}
	return u.Profile, nil
}

func entitlementsOf(p entity.Profile) subscription.Entitlements {
	if p.Subscription == nil {
		return subscription.EntitlementsFor(subscription.TierFree, false)
	}
	return subscription.EntitlementsFor(p.Subscription.Tier, p.Subscription.IsFounder)
}

func (f *Flow) Status(ctx context.Context, userID string) (Status, error) {
	p, err := f.profile(ctx, userID)
	if err != nil {
		return Status{}, err
	}
	st := Status{
		Stage:        Derive(true, p, f.isLive),
		FirstName:    p.FirstName,
		Subscription: p.Subscription,
		Entitlements: entitlementsOf(p),
		Survey:       f.catalog.Survey().Progress(p.Answers),
	}
	if p.CityID != "" {
		if c, err := f.catalog.City(p.CityID); err == nil {
			c.FoundersAvailable = f.ledger.Available(c.ID)
			st.City = &c
			st.Waitlisted = !c.IsLive
		}
	}
	return st, nil
}

// Entitlements reports what the user's plan allows. Users without a plan get
// the free tier.
func (f *Flow) Entitlements(ctx context.Context, userID string) (subscription.Entitlements, error) {
	p, err := f.profile(ctx, userID)
	if err != nil {
		return subscription.Entitlements{}, err
	}
	return entitlementsOf(p), nil
}

// PresentMatch classifies a candidate's score for a user who has unlocked
// discovery.
func (f *Flow) PresentMatch(ctx context.Context, userID string, score int) (compatibility.Presentation, error) {
	p, err := f.profile(ctx, userID)
	if err != nil {
		return compatibility.Presentation{}, err
	}
	if Derive(true, p, f.isLive) < DiscoveryUnlocked {
		return compatibility.Presentation{}, fmt.Errorf("%w: discovery is locked until onboarding completes", ErrStageOrderViolation)
	}
	return compatibility.Present(score, entitlementsOf(p))
}

// FounderSlots returns the remaining founder slots for a city.
func (f *Flow) FounderSlots(cityID string) int { return f.ledger.Available(cityID) }

func (f *Flow) stageChanged(userID, cityID string, from, to Stage) events.Event {
	f.logger.Infow("onboarding stage changed", "user_id", userID, "from", from.String(), "to", to.String())
	return events.Event{
		Type:   events.StageChanged,
		UserID: userID,
		CityID: cityID,
		From:   from.String(),
		To:     to.String(),
		At:     f.now(),
	}
}

// publish never fails the caller; broker errors are only logged.
func (f *Flow) publish(ctx context.Context, evs []events.Event) {
	ctx = context.WithoutCancel(ctx)
	for _, e := range evs {
		if err := f.events.Publish(ctx, e); err != nil {
			f.logger.Warnw("publish onboarding event failed", "type", string(e.Type), "user_id", e.UserID, "err", err)
		}
	}
}
