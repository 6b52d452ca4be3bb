package onboarding

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"github.com/ovaphlow/pitchfork/service-haven-core/internal/catalog"
	"github.com/ovaphlow/pitchfork/service-haven-core/internal/compatibility"
	"github.com/ovaphlow/pitchfork/service-haven-core/internal/events"
	"github.com/ovaphlow/pitchfork/service-haven-core/internal/session"
	"github.com/ovaphlow/pitchfork/service-haven-core/internal/subscription"
	"github.com/ovaphlow/pitchfork/service-haven-core/internal/survey"
	"github.com/ovaphlow/pitchfork/service-haven-core/internal/user"
	"github.com/ovaphlow/pitchfork/service-haven-core/internal/user/entity"
	userrepo "github.com/ovaphlow/pitchfork/service-haven-core/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-haven-core/internal/waitlist"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// flakyStore fails SaveProfile while failSave is set.
type flakyStore struct {
	*userrepo.MemoryRepo
	failSave atomic.Bool
}

func (s *flakyStore) SaveProfile(ctx context.Context, id string, p entity.Profile) error {
	if s.failSave.Load() {
		return errors.New("disk full")
	}
	return s.MemoryRepo.SaveProfile(ctx, id, p)
}

type fixture struct {
	flow     *Flow
	store    *flakyStore
	ledger   *subscription.Ledger
	waitlist *waitlist.Service
	events   *events.Recorder
}

func newFixture(t *testing.T, slots map[string]int) *fixture {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)
	if slots == nil {
		slots = cat.FounderSlots()
	}
	ledger, err := subscription.NewLedger(cat.FounderCap(), slots)
	require.NoError(t, err)
	sessions, err := session.NewManager([]byte("0123456789abcdef0123456789abcdef"), "haven", time.Hour)
	require.NoError(t, err)

	fx := &fixture{
		store:    &flakyStore{MemoryRepo: userrepo.NewMemoryRepo()},
		ledger:   ledger,
		waitlist: waitlist.NewService(nil),
		events:   &events.Recorder{},
	}
	fx.flow, err = NewFlow(Deps{
		Users:     user.NewUserService(fx.store, user.BcryptHasher{Cost: bcrypt.MinCost}),
		Catalog:   cat,
		Sessions:  sessions,
		Ledger:    ledger,
		Waitlist:  fx.waitlist,
		Publisher: fx.events,
	})
	require.NoError(t, err)
	return fx
}

func (fx *fixture) signUp(t *testing.T, email string) string {
	t.Helper()
	u, _, err := fx.flow.Authenticate(context.Background(), email, "password1", true)
	require.NoError(t, err)
	return u.ID
}

// toSurvey signs a user up and takes them to SurveyInProgress in austin.
func (fx *fixture) toSurvey(t *testing.T, email, plan string) string {
	t.Helper()
	ctx := context.Background()
	id := fx.signUp(t, email)
	_, err := fx.flow.SelectCity(ctx, id, "austin")
	require.NoError(t, err)
	_, err = fx.flow.SelectPlan(ctx, id, plan, "monthly")
	require.NoError(t, err)
	return id
}

func (fx *fixture) answerAll(t *testing.T, id string) {
	t.Helper()
	ctx := context.Background()
	for q, v := range map[string]any{
		"relationship_structure": "Still exploring",
		"looking_for":            []any{"Friendship", "Community"},
		"age":                    "34",
		"values_statement":       "Showing up, every week.",
	} {
		_, err := fx.flow.RecordSurveyAnswer(ctx, id, q, v)
		require.NoError(t, err, q)
	}
}

func (fx *fixture) stage(t *testing.T, id string) Stage {
	t.Helper()
	s, err := fx.flow.CurrentStage(context.Background(), id)
	require.NoError(t, err)
	return s
}

func TestFlow_Walkthrough(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, nil)
	f := fx.flow

	u, sess, err := f.Authenticate(ctx, "a@x.com", "password1", true)
	require.NoError(t, err)
	assert.Equal(t, "a", u.Profile.FirstName)
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, CitySelection, fx.stage(t, u.ID))

	_, err = f.SelectCity(ctx, u.ID, "portland")
	require.NoError(t, err)
	assert.Equal(t, CitySelection, fx.stage(t, u.ID))
	st, err := f.Status(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, st.Waitlisted)
	require.NotNil(t, st.City)
	assert.Equal(t, "Q2 2024", st.City.EstimatedLaunch)

	_, err = f.SelectPlan(ctx, u.ID, "plus", "monthly")
	assert.ErrorIs(t, err, ErrCityNotLive)

	_, err = f.SelectCity(ctx, u.ID, "austin")
	require.NoError(t, err)
	assert.Equal(t, SubscriptionSelection, fx.stage(t, u.ID))
	_, waiting, err := fx.waitlist.Waiting(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, waiting)

	p, err := f.SelectPlan(ctx, u.ID, "plus", "monthly")
	require.NoError(t, err)
	assert.Equal(t, SurveyInProgress, fx.stage(t, u.ID))
	require.NotNil(t, p.Subscription)
	assert.True(t, p.Subscription.IsFounder)
	assert.Equal(t, 23, p.Subscription.Price)
	assert.Equal(t, 341, fx.ledger.Available("austin"))

	for q, v := range map[string]any{
		"relationship_structure": "Monogamous",
		"looking_for":            []string{"Long-term partner"},
		"age":                    30,
	} {
		_, err := f.RecordSurveyAnswer(ctx, u.ID, q, v)
		require.NoError(t, err, q)
	}
	assert.Equal(t, SurveyInProgress, fx.stage(t, u.ID))

	_, err = f.CompleteSurvey(ctx, u.ID)
	require.ErrorIs(t, err, survey.ErrSurveyIncomplete)
	var inc *survey.IncompleteError
	require.ErrorAs(t, err, &inc)
	assert.Equal(t, []string{"values_statement"}, inc.Missing)
	assert.Equal(t, SurveyInProgress, fx.stage(t, u.ID))

	_, err = f.RecordSurveyAnswer(ctx, u.ID, "values_statement", "Consistency and care.")
	require.NoError(t, err)
	p, err = f.CompleteSurvey(ctx, u.ID)
	require.NoError(t, err)
	assert.NotNil(t, p.SurveyCompletedAt)
	assert.Equal(t, DiscoveryUnlocked, fx.stage(t, u.ID))

	var stages []string
	var waitlisted int
	for _, e := range fx.events.Events() {
		switch e.Type {
		case events.StageChanged:
			stages = append(stages, e.To)
		case events.Waitlisted:
			waitlisted++
			assert.Equal(t, "portland", e.CityID)
		}
	}
	assert.Equal(t, []string{"CitySelection", "SubscriptionSelection", "SurveyInProgress", "DiscoveryUnlocked"}, stages)
	assert.Equal(t, 1, waitlisted)
}

func TestFlow_OutOfOrder(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, nil)
	f := fx.flow
	id := fx.signUp(t, "a@x.com")

	_, err := f.SelectPlan(ctx, id, "plus", "monthly")
	assert.ErrorIs(t, err, ErrStageOrderViolation)
	_, err = f.RecordSurveyAnswer(ctx, id, "age", 30)
	assert.ErrorIs(t, err, ErrStageOrderViolation)
	_, err = f.CompleteSurvey(ctx, id)
	assert.ErrorIs(t, err, ErrStageOrderViolation)
	_, err = f.PresentMatch(ctx, id, 90)
	assert.ErrorIs(t, err, ErrStageOrderViolation)

	_, err = f.SelectCity(ctx, "nobody", "austin")
	assert.ErrorIs(t, err, ErrNotSignedIn)
	assert.ErrorIs(t, err, ErrStageOrderViolation)

	assert.Equal(t, CitySelection, fx.stage(t, id))
	assert.Equal(t, Unauthenticated, fx.stage(t, "nobody"))
}

func TestFlow_SelectCity(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown city", func(t *testing.T) {
		fx := newFixture(t, nil)
		id := fx.signUp(t, "a@x.com")
		_, err := fx.flow.SelectCity(ctx, id, "atlantis")
		assert.ErrorIs(t, err, catalog.ErrUnknownCity)
		assert.Equal(t, CitySelection, fx.stage(t, id))
	})

	t.Run("same city twice", func(t *testing.T) {
		fx := newFixture(t, nil)
		id := fx.signUp(t, "a@x.com")
		_, err := fx.flow.SelectCity(ctx, id, "portland")
		require.NoError(t, err)
		n := len(fx.events.Events())
		_, err = fx.flow.SelectCity(ctx, id, "portland")
		require.NoError(t, err)
		assert.Len(t, fx.events.Events(), n)
		count, err := fx.waitlist.Count(ctx, "portland")
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("live to waitlisted is rejected", func(t *testing.T) {
		fx := newFixture(t, nil)
		id := fx.signUp(t, "a@x.com")
		_, err := fx.flow.SelectCity(ctx, id, "austin")
		require.NoError(t, err)
		_, err = fx.flow.SelectCity(ctx, id, "portland")
		assert.ErrorIs(t, err, ErrStageOrderViolation)
		assert.Equal(t, SubscriptionSelection, fx.stage(t, id))
	})

	t.Run("locked after plan", func(t *testing.T) {
		fx := newFixture(t, nil)
		id := fx.toSurvey(t, "a@x.com", "free")
		_, err := fx.flow.SelectCity(ctx, id, "portland")
		assert.ErrorIs(t, err, ErrStageOrderViolation)
		_, err = fx.flow.SelectCity(ctx, id, "austin")
		assert.NoError(t, err)
	})

	t.Run("save failure restores waitlist", func(t *testing.T) {
		fx := newFixture(t, nil)
		id := fx.signUp(t, "a@x.com")
		fx.store.failSave.Store(true)
		_, err := fx.flow.SelectCity(ctx, id, "portland")
		assert.Error(t, err)
		_, waiting, err := fx.waitlist.Waiting(ctx, id)
		require.NoError(t, err)
		assert.False(t, waiting)
		assert.Empty(t, fx.flow.mustProfile(t, id).CityID)
	})

	t.Run("save failure keeps place in line", func(t *testing.T) {
		fx := newFixture(t, nil)
		id := fx.signUp(t, "a@x.com")
		_, err := fx.flow.SelectCity(ctx, id, "portland")
		require.NoError(t, err)
		before, ok, err := fx.waitlist.Entry(ctx, id)
		require.NoError(t, err)
		require.True(t, ok)

		fx.store.failSave.Store(true)
		_, err = fx.flow.SelectCity(ctx, id, "austin")
		assert.Error(t, err)

		list, err := fx.waitlist.List(ctx, "portland")
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, id, list[0].UserID)
		assert.True(t, before.JoinedAt.Equal(list[0].JoinedAt), "joined_at %v, want %v", list[0].JoinedAt, before.JoinedAt)
		assert.Equal(t, "portland", fx.flow.mustProfile(t, id).CityID)
	})
}

func (f *Flow) mustProfile(t *testing.T, id string) entity.Profile {
	t.Helper()
	p, err := f.profile(context.Background(), id)
	require.NoError(t, err)
	return p
}

func TestFlow_SelectPlan(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown plan and cycle", func(t *testing.T) {
		fx := newFixture(t, nil)
		id := fx.signUp(t, "a@x.com")
		_, err := fx.flow.SelectCity(ctx, id, "austin")
		require.NoError(t, err)
		_, err = fx.flow.SelectPlan(ctx, id, "gold", "monthly")
		assert.ErrorIs(t, err, subscription.ErrUnknownPlan)
		_, err = fx.flow.SelectPlan(ctx, id, "plus", "weekly")
		assert.ErrorIs(t, err, subscription.ErrUnknownPlan)
		assert.Equal(t, SubscriptionSelection, fx.stage(t, id))
		assert.Equal(t, 342, fx.ledger.Available("austin"))
	})

	t.Run("free plan keeps founder slots", func(t *testing.T) {
		fx := newFixture(t, nil)
		id := fx.toSurvey(t, "a@x.com", "free")
		p := fx.flow.mustProfile(t, id)
		assert.False(t, p.Subscription.IsFounder)
		assert.Zero(t, p.Subscription.Price)
		assert.Equal(t, 342, fx.ledger.Available("austin"))
	})

	t.Run("same plan twice claims once", func(t *testing.T) {
		fx := newFixture(t, nil)
		id := fx.toSurvey(t, "a@x.com", "plus")
		_, err := fx.flow.SelectPlan(ctx, id, "plus", "monthly")
		require.NoError(t, err)
		assert.Equal(t, 341, fx.ledger.Available("austin"))
	})

	t.Run("change keeps founder status", func(t *testing.T) {
		fx := newFixture(t, nil)
		id := fx.toSurvey(t, "a@x.com", "plus")
		p, err := fx.flow.SelectPlan(ctx, id, "select", "annual")
		require.NoError(t, err)
		assert.True(t, p.Subscription.IsFounder)
		assert.Equal(t, subscription.FounderPrice(590), p.Subscription.Price)
		assert.Equal(t, 341, fx.ledger.Available("austin"))
		assert.Equal(t, SurveyInProgress, fx.stage(t, id))
	})

	t.Run("no slots left still subscribes", func(t *testing.T) {
		fx := newFixture(t, map[string]int{"austin": 1, "portland": 500})
		first := fx.toSurvey(t, "a@x.com", "plus")
		second := fx.toSurvey(t, "b@x.com", "plus")
		assert.True(t, fx.flow.mustProfile(t, first).Subscription.IsFounder)
		p := fx.flow.mustProfile(t, second)
		assert.False(t, p.Subscription.IsFounder)
		assert.Equal(t, 29, p.Subscription.Price)
		assert.Zero(t, fx.ledger.Available("austin"))
	})

	t.Run("save failure refunds slot", func(t *testing.T) {
		fx := newFixture(t, nil)
		id := fx.signUp(t, "a@x.com")
		_, err := fx.flow.SelectCity(ctx, id, "austin")
		require.NoError(t, err)
		fx.store.failSave.Store(true)
		_, err = fx.flow.SelectPlan(ctx, id, "plus", "monthly")
		assert.Error(t, err)
		assert.Equal(t, 342, fx.ledger.Available("austin"))
		fx.store.failSave.Store(false)
		assert.Equal(t, SubscriptionSelection, fx.stage(t, id))
	})
}

func TestFlow_SurveyAnswers(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, nil)
	f := fx.flow
	id := fx.toSurvey(t, "a@x.com", "plus")

	_, err := f.RecordSurveyAnswer(ctx, id, "age", "thirty")
	assert.ErrorIs(t, err, survey.ErrInvalidAnswerShape)
	_, err = f.RecordSurveyAnswer(ctx, id, "age", 30.5)
	assert.ErrorIs(t, err, survey.ErrInvalidAnswerShape)
	_, err = f.RecordSurveyAnswer(ctx, id, "looking_for", []string{"Friendship", "Friendship"})
	assert.ErrorIs(t, err, survey.ErrInvalidAnswerShape)
	_, err = f.RecordSurveyAnswer(ctx, id, "relationship_structure", "Married")
	assert.ErrorIs(t, err, survey.ErrInvalidAnswerShape)
	_, err = f.RecordSurveyAnswer(ctx, id, "nope", "x")
	assert.ErrorIs(t, err, survey.ErrInvalidAnswerShape)
	assert.Empty(t, f.mustProfile(t, id).Answers)

	p1, err := f.RecordSurveyAnswer(ctx, id, "age", 30)
	require.NoError(t, err)
	p2, err := f.RecordSurveyAnswer(ctx, id, "age", 30)
	require.NoError(t, err)
	assert.Equal(t, p1.Answers, p2.Answers)
	assert.Equal(t, survey.Number(30), p2.Answers["age"])

	p, err := f.RecordSurveyAnswer(ctx, id, "age", nil)
	require.NoError(t, err)
	assert.NotContains(t, p.Answers, "age")

	fx.answerAll(t, id)
	_, err = f.CompleteSurvey(ctx, id)
	require.NoError(t, err)

	_, err = f.RecordSurveyAnswer(ctx, id, "values_statement", "  ")
	assert.Error(t, err)
	_, err = f.RecordSurveyAnswer(ctx, id, "values_statement", nil)
	assert.ErrorIs(t, err, ErrStageOrderViolation)
	_, err = f.RecordSurveyAnswer(ctx, id, "weekend", "Hiking")
	require.NoError(t, err)
	_, err = f.RecordSurveyAnswer(ctx, id, "weekend", nil)
	require.NoError(t, err)
	assert.Equal(t, DiscoveryUnlocked, fx.stage(t, id))

	before := f.mustProfile(t, id).SurveyCompletedAt
	_, err = f.CompleteSurvey(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, before, f.mustProfile(t, id).SurveyCompletedAt)
}

func TestFlow_Sessions(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, nil)
	f := fx.flow

	u, first, err := f.Authenticate(ctx, "a@x.com", "password1", true)
	require.NoError(t, err)
	uid, err := f.Resolve(first.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, uid)

	_, err = f.SelectCity(ctx, u.ID, "austin")
	require.NoError(t, err)

	_, _, err = f.Authenticate(ctx, "a@x.com", "password1", true)
	assert.ErrorIs(t, err, user.ErrEmailAlreadyRegistered)
	_, _, err = f.Authenticate(ctx, "a@x.com", "wrong-pass", false)
	assert.ErrorIs(t, err, user.ErrInvalidCredentials)
	_, _, err = f.Authenticate(ctx, "b@x.com", "password1", false)
	assert.ErrorIs(t, err, user.ErrInvalidCredentials)

	_, second, err := f.Authenticate(ctx, "A@X.com", "password1", false)
	require.NoError(t, err)
	_, err = f.Resolve(first.Token)
	assert.ErrorIs(t, err, ErrSessionInvalid, "replaced session")
	_, err = f.Resolve(second.Token)
	require.NoError(t, err)

	require.NoError(t, f.SignOut(ctx, u.ID))
	assert.Equal(t, Unauthenticated, fx.stage(t, u.ID))
	_, err = f.Resolve(second.Token)
	assert.ErrorIs(t, err, ErrSessionInvalid)
	_, err = f.Status(ctx, u.ID)
	assert.ErrorIs(t, err, ErrNotSignedIn)
	require.NoError(t, f.SignOut(ctx, u.ID))

	_, _, err = f.Authenticate(ctx, "a@x.com", "password1", false)
	require.NoError(t, err)
	assert.Equal(t, SubscriptionSelection, fx.stage(t, u.ID), "profile resumes")

	_, err = f.Resolve("garbage")
	assert.ErrorIs(t, err, ErrSessionInvalid)
}

func TestFlow_ConcurrentModification(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, nil)
	f := fx.flow
	id := fx.signUp(t, "a@x.com")

	unlock, ok := f.locks.tryLock(id)
	require.True(t, ok)
	_, err := f.SelectCity(ctx, id, "austin")
	assert.ErrorIs(t, err, ErrConcurrentModification)
	assert.ErrorIs(t, f.SignOut(ctx, id), ErrConcurrentModification)
	other := fx.signUp(t, "b@x.com")
	_, err = f.SelectCity(ctx, other, "austin")
	assert.NoError(t, err, "other users are not blocked")
	unlock()

	_, err = f.SelectCity(ctx, id, "austin")
	assert.NoError(t, err)
	require.NoError(t, f.SignOut(ctx, id))
	assert.Zero(t, f.locks.size(), "no lock entries left once every call returns")
}

func TestFlow_ConcurrentFounders(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, map[string]int{"austin": 3, "portland": 500})
	const n = 12
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fx.signUp(t, fmt.Sprintf("user%d@x.com", i))
		_, err := fx.flow.SelectCity(ctx, ids[i], "austin")
		require.NoError(t, err)
	}

	var g errgroup.Group
	for _, id := range ids {
		g.Go(func() error {
			_, err := fx.flow.SelectPlan(ctx, id, "plus", "annual")
			return err
		})
	}
	require.NoError(t, g.Wait())

	founders := 0
	for _, id := range ids {
		if fx.flow.mustProfile(t, id).Subscription.IsFounder {
			founders++
		}
	}
	assert.Equal(t, 3, founders)
	assert.Zero(t, fx.ledger.Available("austin"))
}

func TestFlow_SameUserRace(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, nil)
	id := fx.toSurvey(t, "a@x.com", "plus")

	var g errgroup.Group
	var conflicts atomic.Int32
	for i := range 20 {
		g.Go(func() error {
			_, err := fx.flow.RecordSurveyAnswer(ctx, id, "age", 20+i)
			if errors.Is(err, ErrConcurrentModification) {
				conflicts.Add(1)
				return nil
			}
			return err
		})
	}
	require.NoError(t, g.Wait())
	assert.Contains(t, fx.flow.mustProfile(t, id).Answers, "age")
}

func TestFlow_PresentMatch(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, nil)
	f := fx.flow

	free := fx.toSurvey(t, "free@x.com", "free")
	fx.answerAll(t, free)
	_, err := f.CompleteSurvey(ctx, free)
	require.NoError(t, err)

	paid := fx.toSurvey(t, "paid@x.com", "plus")
	fx.answerAll(t, paid)
	_, err = f.CompleteSurvey(ctx, paid)
	require.NoError(t, err)

	p, err := f.PresentMatch(ctx, free, 87)
	require.NoError(t, err)
	assert.Equal(t, compatibility.High, p.Tier)
	assert.Equal(t, "87% • High", p.Badge)
	assert.Equal(t, []compatibility.Action{compatibility.ActionViewDetails, compatibility.ActionUpgradePrompt}, p.Actions)

	p, err = f.PresentMatch(ctx, paid, 60)
	require.NoError(t, err)
	assert.Equal(t, compatibility.Medium, p.Tier)
	assert.Equal(t, []compatibility.Action{compatibility.ActionLike, compatibility.ActionNudge, compatibility.ActionViewProfile}, p.Actions)

	_, err = f.PresentMatch(ctx, paid, 101)
	assert.ErrorIs(t, err, compatibility.ErrScoreOutOfRange)

	e, err := f.Entitlements(ctx, paid)
	require.NoError(t, err)
	assert.True(t, e.CanMessage)
	assert.True(t, e.Founder)
	e, err = f.Entitlements(ctx, free)
	require.NoError(t, err)
	assert.False(t, e.CanLike)
}

func TestFlow_PublishFailureDoesNotFail(t *testing.T) {
	fx := newFixture(t, nil)
	fx.events.Err = errors.New("broker down")
	id := fx.signUp(t, "a@x.com")
	_, err := fx.flow.SelectCity(context.Background(), id, "austin")
	require.NoError(t, err)
	assert.Equal(t, SubscriptionSelection, fx.stage(t, id))
	assert.Empty(t, fx.events.Events())
}

func TestFlow_FailureLogsUseErrKey(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, nil)
	core, logs := observer.New(zap.WarnLevel)
	fx.flow.logger = zap.New(core).Sugar()
	fx.events.Err = errors.New("broker down")

	id := fx.signUp(t, "a@x.com")
	_, err := fx.flow.SelectCity(ctx, id, "austin")
	require.NoError(t, err)

	entries := logs.All()
	require.NotEmpty(t, entries)
	for _, e := range entries {
		fields := e.ContextMap()
		assert.Contains(t, fields, "err", e.Message)
		assert.NotContains(t, fields, "error", e.Message)
	}
	assert.NotZero(t, logs.FilterMessage("publish onboarding event failed").Len())
}
