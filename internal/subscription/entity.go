package subscription

import (
	"errors"
	"fmt"
	"strings"
)

// Tier is a membership level. Capability order is given by Rank, not by
// declaration order.
type Tier string

const (
	TierFree   Tier = "free"
	TierPlus   Tier = "plus"
	TierSelect Tier = "select"
)

// BillingCycle selects which price of a plan applies.
type BillingCycle string

const (
	Monthly BillingCycle = "monthly"
	Annual  BillingCycle = "annual"
)

var (
	ErrUnknownPlan         = errors.New("unknown plan")
	ErrUnknownBillingCycle = fmt.Errorf("%w: unknown billing cycle", ErrUnknownPlan)
	ErrInvalidPlan         = errors.New("invalid plan definition")
	ErrNoFounderSlotsLeft  = errors.New("no founder slots left")
)

// Rank orders tiers by capability; higher is more capable.
func (t Tier) Rank() int {
	switch t {
	case TierPlus:
		return 1
	case TierSelect:
		return 2
	default:
		return 0
	}
}

// Paid reports whether the tier is a paid membership.
func (t Tier) Paid() bool { return t.Rank() > 0 }

// ParseTier accepts a plan id in any case.
func ParseTier(s string) (Tier, error) {
	switch t := Tier(strings.ToLower(strings.TrimSpace(s))); t {
	case TierFree, TierPlus, TierSelect:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPlan, s)
}

// ParseBillingCycle accepts "monthly" or "annual" in any case.
func ParseBillingCycle(s string) (BillingCycle, error) {
	switch c := BillingCycle(strings.ToLower(strings.TrimSpace(s))); c {
	case Monthly, Annual:
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownBillingCycle, s)
}

// Plan is one row of the plan table.
type Plan struct {
	ID           Tier
	Name         string
	Description  string
	MonthlyPrice int
	AnnualPrice  int
	Features     []string
	Popular      bool
}

// Validate checks the price rules: both prices non-negative and, for paid
// plans, annual strictly cheaper than twelve months.
func (p Plan) Validate() error {
	if _, err := ParseTier(string(p.ID)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPlan, err)
	}
	if p.MonthlyPrice < 0 || p.AnnualPrice < 0 {
		return fmt.Errorf("%w: %s: negative price", ErrInvalidPlan, p.ID)
	}
	if p.MonthlyPrice > 0 && p.AnnualPrice >= p.MonthlyPrice*12 {
		return fmt.Errorf("%w: %s: annual price %d not below 12x monthly %d", ErrInvalidPlan, p.ID, p.AnnualPrice, p.MonthlyPrice)
	}
	return nil
}

// BasePrice is the undiscounted price for the cycle.
func (p Plan) BasePrice(c BillingCycle) (int, error) {
	switch c {
	case Monthly:
		return p.MonthlyPrice, nil
	case Annual:
		return p.AnnualPrice, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownBillingCycle, c)
}

// Entitlements are the discovery actions a member may initiate.
type Entitlements struct {
	CanLike            bool `json:"can_like"`
	CanNudge           bool `json:"can_nudge"`
	CanViewFullProfile bool `json:"can_view_full_profile"`
	CanMessage         bool `json:"can_message"`
	// EnhancedVerification only flags eligibility; verification itself
	// happens elsewhere.
	EnhancedVerification bool `json:"enhanced_verification"`
	Founder              bool `json:"founder"`
}
