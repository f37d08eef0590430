package models

import "time"

// PricingTier is one rule in a location's hourly schedule. MaxHours nil marks
// the unlimited tier, which must be last.
type PricingTier struct {
	MaxHours     *int  `json:"max_hours"`
	RateCents    int64 `json:"rate_cents"`
	InOutAllowed bool  `json:"in_out_allowed"`
}

type Location struct {
	LocationID            string        `json:"location_id"`
	Name                  string        `json:"name"`
	Code                  string        `json:"code"`
	Tiers                 []PricingTier `json:"tiers"`
	OvernightRateCents    int64         `json:"overnight_rate_cents"`
	OvernightInOutAllowed bool          `json:"overnight_in_out_allowed"`
	TaxBasisPoints        int           `json:"tax_basis_points"`
	RevShareBasisPoints   int           `json:"rev_share_basis_points"`
	CreatedAt             time.Time     `json:"created_at"`
}

// InOutAllowed resolves the effective in/out policy for a ticket of the
// given rate type: the overnight flag for overnight tickets, the matched
// tier's flag for hourly tickets.
func (l Location) InOutAllowed(rateType string, tierIndex int) bool {
	if rateType == RateOvernight {
		return l.OvernightInOutAllowed
	}
	if tierIndex < 0 || tierIndex >= len(l.Tiers) {
		return l.OvernightInOutAllowed
	}
	return l.Tiers[tierIndex].InOutAllowed
}
