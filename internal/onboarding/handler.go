package onboarding

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-haven-core/internal/catalog"
	"github.com/ovaphlow/pitchfork/service-haven-core/internal/compatibility"
	"github.com/ovaphlow/pitchfork/service-haven-core/internal/subscription"
	"github.com/ovaphlow/pitchfork/service-haven-core/internal/survey"
	"github.com/ovaphlow/pitchfork/service-haven-core/internal/user"
)

const maxBody = 1 << 20

// Handler exposes the onboarding flow over HTTP. Every route except sign-up
// and sign-in needs a bearer token.
type Handler struct {
	flow   *Flow
	logger *zap.SugaredLogger
}

func NewHandler(flow *Flow, logger *zap.SugaredLogger) *Handler {
	return &Handler{flow: flow, logger: logger}
}

// CredentialsRequest is the sign-up and sign-in payload.
type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UserView struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
}

// AuthResponse returns the bearer token and the resumed onboarding status.
type AuthResponse struct {
	User      UserView  `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Status    Status    `json:"status"`
}

type CityRequest struct {
	CityID string `json:"city_id"`
}

type PlanRequest struct {
	PlanID       string `json:"plan_id"`
	BillingCycle string `json:"billing_cycle"`
}

type AnswerRequest struct {
	Value any `json:"value"`
}

// ErrorResponse carries a stable code next to the human message.
type ErrorResponse struct {
	Code    string   `json:"code"`
	Error   string   `json:"error"`
	Missing []string `json:"missing,omitempty"`
}

func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) { h.authenticate(w, r, true) }

func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) { h.authenticate(w, r, false) }

func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request, isSignUp bool) {
	var req CredentialsRequest
	if !h.decode(w, r, &req) {
		return
	}
	u, s, err := h.flow.Authenticate(r.Context(), req.Email, req.Password, isSignUp)
	if err != nil {
		h.fail(w, err)
		return
	}
	st, err := h.flow.Status(r.Context(), u.ID)
	if err != nil {
		h.fail(w, err)
		return
	}
	status := http.StatusOK
	if isSignUp {
		status = http.StatusCreated
	}
	h.writeJSON(w, status, AuthResponse{
		User:      UserView{ID: u.ID, Email: u.Email, FirstName: u.Profile.FirstName},
		Token:     s.Token,
		ExpiresAt: s.ExpiresAt,
		Status:    st,
	})
}

// Authed resolves the bearer token and passes the user id to next.
func (h *Handler) Authed(next func(w http.ResponseWriter, r *http.Request, userID string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			h.writeJSON(w, http.StatusUnauthorized, ErrorResponse{Code: "unauthenticated", Error: "missing bearer token"})
			return
		}
		userID, err := h.flow.Resolve(token)
		if err != nil {
			h.fail(w, err)
			return
		}
		next(w, r, userID)
	}
}

func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request, userID string) {
	if err := h.flow.SignOut(r.Context(), userID); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request, userID string) {
	h.respondStatus(w, r, userID)
}

func (h *Handler) SelectCity(w http.ResponseWriter, r *http.Request, userID string) {
	var req CityRequest
	if !h.decode(w, r, &req) {
		return
	}
	if _, err := h.flow.SelectCity(r.Context(), userID, req.CityID); err != nil {
		h.fail(w, err)
		return
	}
	h.respondStatus(w, r, userID)
}

func (h *Handler) SelectPlan(w http.ResponseWriter, r *http.Request, userID string) {
	var req PlanRequest
	if !h.decode(w, r, &req) {
		return
	}
	if _, err := h.flow.SelectPlan(r.Context(), userID, req.PlanID, req.BillingCycle); err != nil {
		h.fail(w, err)
		return
	}
	h.respondStatus(w, r, userID)
}

func (h *Handler) RecordAnswer(w http.ResponseWriter, r *http.Request, userID string) {
	var req AnswerRequest
	if !h.decode(w, r, &req) {
		return
	}
	if _, err := h.flow.RecordSurveyAnswer(r.Context(), userID, r.PathValue("questionID"), req.Value); err != nil {
		h.fail(w, err)
		return
	}
	h.respondStatus(w, r, userID)
}

func (h *Handler) CompleteSurvey(w http.ResponseWriter, r *http.Request, userID string) {
	if _, err := h.flow.CompleteSurvey(r.Context(), userID); err != nil {
		h.fail(w, err)
		return
	}
	h.respondStatus(w, r, userID)
}

func (h *Handler) Entitlements(w http.ResponseWriter, r *http.Request, userID string) {
	e, err := h.flow.Entitlements(r.Context(), userID)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, e)
}

func (h *Handler) Compatibility(w http.ResponseWriter, r *http.Request, userID string) {
	score, err := strconv.Atoi(r.URL.Query().Get("score"))
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, ErrorResponse{Code: "invalid_score", Error: "score must be an integer"})
		return
	}
	p, err := h.flow.PresentMatch(r.Context(), userID, score)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, p)
}

func (h *Handler) respondStatus(w http.ResponseWriter, r *http.Request, userID string) {
	st, err := h.flow.Status(r.Context(), userID)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, st)
}

// decode reads a JSON body. Numbers stay json.Number so integer answers are
// not rounded through float64.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		h.logger.Debugw("invalid payload", "path", r.URL.Path, "err", err)
		h.writeJSON(w, http.StatusBadRequest, ErrorResponse{Code: "invalid_payload", Error: "invalid payload"})
		return false
	}
	return true
}

type errorMapping struct {
	target error
	status int
	code   string
}

// Order matters: ErrNotSignedIn also matches ErrStageOrderViolation.
var errorMappings = []errorMapping{
	{ErrNotSignedIn, http.StatusUnauthorized, "unauthenticated"},
	{ErrSessionInvalid, http.StatusUnauthorized, "unauthenticated"},
	{user.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{user.ErrEmailAlreadyRegistered, http.StatusConflict, "email_already_registered"},
	{user.ErrUserNotFound, http.StatusNotFound, "user_not_found"},
	{catalog.ErrUnknownCity, http.StatusNotFound, "unknown_city"},
	{subscription.ErrUnknownPlan, http.StatusNotFound, "unknown_plan"},
	{ErrCityNotLive, http.StatusConflict, "city_not_live"},
	{survey.ErrSurveyIncomplete, http.StatusUnprocessableEntity, "survey_incomplete"},
	{survey.ErrInvalidAnswerShape, http.StatusUnprocessableEntity, "invalid_answer_shape"},
	{ErrStageOrderViolation, http.StatusConflict, "stage_order_violation"},
	{compatibility.ErrScoreOutOfRange, http.StatusBadRequest, "score_out_of_range"},
	{subscription.ErrNoFounderSlotsLeft, http.StatusConflict, "no_founder_slots_left"},
	{ErrConcurrentModification, http.StatusConflict, "concurrent_modification"},
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	for _, m := range errorMappings {
		if !errors.Is(err, m.target) {
			continue
		}
		h.logger.Debugw("onboarding request rejected", "code", m.code, "err", err)
		body := ErrorResponse{Code: m.code, Error: err.Error()}
		var inc *survey.IncompleteError
		if errors.As(err, &inc) {
			body.Missing = inc.Missing
		}
		h.writeJSON(w, m.status, body)
		return
	}
	h.logger.Warnw("onboarding request failed", "err", err)
	h.writeJSON(w, http.StatusInternalServerError, ErrorResponse{Code: "internal", Error: "internal error"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
