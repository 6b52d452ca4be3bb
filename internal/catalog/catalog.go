// Package catalog loads the read-only tables the onboarding flow runs on:
// launch cities, the plan table and the survey schema.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ovaphlow/pitchfork/service-haven-core/internal/catalog/entity"
	"github.com/ovaphlow/pitchfork/service-haven-core/internal/subscription"
	"github.com/ovaphlow/pitchfork/service-haven-core/internal/survey"
)

//go:embed default.yaml
var defaultCatalog []byte

var (
	ErrUnknownCity    = errors.New("unknown city")
	ErrInvalidCatalog = errors.New("invalid catalog")
)

type planSpec struct {
	ID           string   `yaml:"id"`
	Name         string   `yaml:"name"`
	Description  string   `yaml:"description"`
	MonthlyPrice int      `yaml:"monthly_price"`
	AnnualPrice  int      `yaml:"annual_price"`
	Popular      bool     `yaml:"popular"`
	Features     []string `yaml:"features"`
}

type sectionSpec struct {
	ID          string        `yaml:"id"`
	Title       string        `yaml:"title"`
	Description string        `yaml:"description"`
	Questions   []survey.Spec `yaml:"questions"`
}

type file struct {
	FounderCap int           `yaml:"founder_cap"`
	Cities     []entity.City `yaml:"cities"`
	Plans      []planSpec    `yaml:"plans"`
	Survey     struct {
		Sections []sectionSpec `yaml:"sections"`
	} `yaml:"survey"`
}

// Catalog is immutable after Parse returns.
type Catalog struct {
	founderCap int
	cities     []entity.City
	cityByID   map[string]entity.City
	plans      []subscription.Plan
	planByTier map[subscription.Tier]subscription.Plan
	survey     *survey.Survey
}

// Default returns the catalog compiled into the binary.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog file, or the built-in catalog when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	if f.FounderCap <= 0 {
		f.FounderCap = subscription.DefaultFounderCap
	}
	c := &Catalog{
		founderCap: f.FounderCap,
		cityByID:   make(map[string]entity.City, len(f.Cities)),
		planByTier: make(map[subscription.Tier]subscription.Plan, len(f.Plans)),
	}

	if len(f.Cities) == 0 {
		return nil, fmt.Errorf("%w: no cities", ErrInvalidCatalog)
	}
	for _, city := range f.Cities {
		city.ID = strings.TrimSpace(city.ID)
		if city.ID == "" {
			return nil, fmt.Errorf("%w: city without id", ErrInvalidCatalog)
		}
		if _, dup := c.cityByID[city.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate city %q", ErrInvalidCatalog, city.ID)
		}
		if city.FoundersAvailable < 0 || city.FoundersAvailable > f.FounderCap {
			return nil, fmt.Errorf("%w: city %q founders_available %d not in [0,%d]", ErrInvalidCatalog, city.ID, city.FoundersAvailable, f.FounderCap)
		}
		c.cityByID[city.ID] = city
		c.cities = append(c.cities, city)
	}

	for _, ps := range f.Plans {
		tier, err := subscription.ParseTier(ps.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
		}
		p := subscription.Plan{
			ID:           tier,
			Name:         ps.Name,
			Description:  ps.Description,
			MonthlyPrice: ps.MonthlyPrice,
			AnnualPrice:  ps.AnnualPrice,
			Features:     slices.Clone(ps.Features),
			Popular:      ps.Popular,
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
		}
		if _, dup := c.planByTier[tier]; dup {
			return nil, fmt.Errorf("%w: duplicate plan %q", ErrInvalidCatalog, tier)
		}
		c.planByTier[tier] = p
		c.plans = append(c.plans, p)
	}
	if len(c.plans) == 0 {
		return nil, fmt.Errorf("%w: no plans", ErrInvalidCatalog)
	}

	sections := make([]survey.Section, 0, len(f.Survey.Sections))
	for _, ss := range f.Survey.Sections {
		sec := survey.Section{ID: ss.ID, Title: ss.Title, Description: ss.Description}
		for _, qs := range ss.Questions {
			q, err := survey.NewQuestion(qs)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
			}
			sec.Questions = append(sec.Questions, q)
		}
		sections = append(sections, sec)
	}
	s, err := survey.New(sections)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	c.survey = s
	return c, nil
}

// FounderCap is the configured founder cohort size per city.
func (c *Catalog) FounderCap() int { return c.founderCap }

// Cities returns the cities in catalog order.
func (c *Catalog) Cities() []entity.City { return slices.Clone(c.cities) }

// City looks up a city by id.
func (c *Catalog) City(id string) (entity.City, error) {
	city, ok := c.cityByID[id]
	if !ok {
		return entity.City{}, fmt.Errorf("%w: %q", ErrUnknownCity, id)
	}
	return city, nil
}

// FounderSlots returns the seed slot counts for a subscription.Ledger.
func (c *Catalog) FounderSlots() map[string]int {
	out := make(map[string]int, len(c.cities))
	for _, city := range c.cities {
		out[city.ID] = city.FoundersAvailable
	}
	return out
}

// Plans returns the plan table in catalog order.
func (c *Catalog) Plans() []subscription.Plan { return slices.Clone(c.plans) }

// Plan looks up a plan by id.
func (c *Catalog) Plan(id string) (subscription.Plan, error) {
	tier, err := subscription.ParseTier(id)
	if err != nil {
		return subscription.Plan{}, err
	}
	p, ok := c.planByTier[tier]
	if !ok {
		return subscription.Plan{}, fmt.Errorf("%w: %q is not offered", subscription.ErrUnknownPlan, id)
	}
	return p, nil
}

// Survey returns the onboarding survey.
func (c *Catalog) Survey() *survey.Survey { return c.survey }
