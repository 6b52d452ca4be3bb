// Package subscription holds the plan table rules: entitlements per tier,
// founder pricing and per-city founder slot accounting.
package subscription

import (
	"math"
	"slices"
)

// FounderDiscount is the fraction taken off every founder price.
const FounderDiscount = 0.20

// EntitlementsFor derives what a member of the tier may do. Free members can
// receive likes and nudges but not send them.
func EntitlementsFor(t Tier, isFounder bool) Entitlements {
	e := Entitlements{Founder: isFounder}
	if t.Paid() {
		e.CanLike = true
		e.CanNudge = true
		e.CanViewFullProfile = true
		e.CanMessage = true
	}
	if t == TierSelect {
		e.EnhancedVerification = true
	}
	return e
}

// FounderPrice applies the founder discount and rounds to the nearest whole
// unit.
func FounderPrice(base int) int {
	return int(math.Round(float64(base) * (1 - FounderDiscount)))
}

// Price returns what a member pays for the plan and cycle. Monthly and
// annual founder prices are each discounted from their own base price.
func Price(p Plan, c BillingCycle, isFounder bool) (int, error) {
	base, err := p.BasePrice(c)
	if err != nil {
		return 0, err
	}
	if isFounder {
		return FounderPrice(base), nil
	}
	return base, nil
}

// PlanView is the plan as shown on the membership screen.
type PlanView struct {
	ID           Tier     `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	MonthlyPrice int      `json:"monthly_price"`
	AnnualPrice  int      `json:"annual_price"`
	Features     []string `json:"features"`
	Popular      bool     `json:"popular"`
	Founder      bool     `json:"founder"`
	// AnnualSavingsPercent compares the undiscounted annual price with
	// twelve monthly payments.
	AnnualSavingsPercent int `json:"annual_savings_percent"`
}

func View(p Plan, isFounder bool) PlanView {
	v := PlanView{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		MonthlyPrice: p.MonthlyPrice,
		AnnualPrice:  p.AnnualPrice,
		Features:     slices.Clone(p.Features),
		Popular:      p.Popular,
		Founder:      isFounder,
	}
	if isFounder {
		v.MonthlyPrice = FounderPrice(p.MonthlyPrice)
		v.AnnualPrice = FounderPrice(p.AnnualPrice)
	}
	if p.MonthlyPrice > 0 {
		v.AnnualSavingsPercent = int(math.Round((1 - float64(p.AnnualPrice)/float64(p.MonthlyPrice*12)) * 100))
	}
	return v
}
