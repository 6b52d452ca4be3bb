package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-haven-core/internal/catalog/entity"
	"github.com/ovaphlow/pitchfork/service-haven-core/internal/subscription"
	"github.com/ovaphlow/pitchfork/service-haven-core/internal/survey"
)

// SlotCounter reports live founder slot counts; subscription.Ledger does.
type SlotCounter interface {
	Available(cityID string) int
}

// WaitlistCounter reports how many users wait for a city.
type WaitlistCounter interface {
	Count(ctx context.Context, cityID string) (int, error)
}

// Handler serves the read-only catalog: cities, plans and the survey.
type Handler struct {
	catalog  *Catalog
	slots    SlotCounter
	waitlist WaitlistCounter
	logger   *zap.SugaredLogger
}

func NewHandler(c *Catalog, slots SlotCounter, waitlist WaitlistCounter, logger *zap.SugaredLogger) *Handler {
	return &Handler{catalog: c, slots: slots, waitlist: waitlist, logger: logger}
}

// CityView is a city as listed on the city picker.
type CityView struct {
	entity.City
	Limited       bool `json:"limited"`
	WaitlistCount int  `json:"waitlist_count,omitempty"`
}

func (h *Handler) Cities(w http.ResponseWriter, r *http.Request) {
	cities := h.catalog.Cities()
	out := make([]CityView, 0, len(cities))
	for _, c := range cities {
		if h.slots != nil {
			c.FoundersAvailable = h.slots.Available(c.ID)
		}
		v := CityView{City: c, Limited: c.Limited()}
		if !c.IsLive && h.waitlist != nil {
			n, err := h.waitlist.Count(r.Context(), c.ID)
			if err != nil {
				h.logger.Warnw("waitlist count failed", "city_id", c.ID, "err", err)
			}
			v.WaitlistCount = n
		}
		out = append(out, v)
	}
	h.writeJSON(w, http.StatusOK, out)
}

// Plans lists the plan table. With ?founder=true prices carry the founder
// discount.
func (h *Handler) Plans(w http.ResponseWriter, r *http.Request) {
	founder, _ := strconv.ParseBool(r.URL.Query().Get("founder"))
	plans := h.catalog.Plans()
	out := make([]subscription.PlanView, 0, len(plans))
	for _, p := range plans {
		out = append(out, subscription.View(p, founder))
	}
	h.writeJSON(w, http.StatusOK, out)
}

// SectionView is one survey section with its question definitions.
type SectionView struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Questions   []survey.Spec `json:"questions"`
}

func (h *Handler) Survey(w http.ResponseWriter, r *http.Request) {
	sections := h.catalog.Survey().Sections()
	out := make([]SectionView, 0, len(sections))
	for _, s := range sections {
		v := SectionView{ID: s.ID, Title: s.Title, Description: s.Description}
		for _, q := range s.Questions {
			v.Questions = append(v.Questions, survey.Describe(q))
		}
		out = append(out, v)
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
