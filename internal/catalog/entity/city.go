package entity

// LimitedThreshold is the slot count below which a city's founder cohort is
// shown as limited.
const LimitedThreshold = 100

// City is a launch market. Members may only pick cities from the catalog.
type City struct {
	ID                string `yaml:"id" json:"id"`
	Name              string `yaml:"name" json:"name"`
	Region            string `yaml:"region" json:"region"`
	IsLive            bool   `yaml:"is_live" json:"is_live"`
	FoundersAvailable int    `yaml:"founders_available" json:"founders_available"`
	EstimatedLaunch   string `yaml:"estimated_launch,omitempty" json:"estimated_launch,omitempty"`
}

// Limited reports whether few founder slots remain.
func (c City) Limited() bool { return c.FoundersAvailable < LimitedThreshold }
