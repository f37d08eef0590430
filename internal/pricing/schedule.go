package pricing

import (
	"errors"

	"valet/internal/models"
)

var (
	ErrNoUnlimitedTier   = errors.New("tier schedule needs exactly one unlimited tier")
	ErrUnlimitedNotLast  = errors.New("unlimited tier must be last")
	ErrTiersOutOfOrder   = errors.New("tiers must be ascending by max hours")
	ErrNegativeTierRate  = errors.New("tier rate must be non-negative")
	ErrNonPositiveHours  = errors.New("tier max hours must be positive")
)

// ValidateTiers checks the schedule invariants: tiers ascending by MaxHours,
// exactly one unlimited (nil MaxHours) tier, and it comes last.
func ValidateTiers(tiers []models.PricingTier) error {
	if len(tiers) == 0 {
		return nil
	}
	unlimited := 0
	prev := 0
	for i, tier := range tiers {
		if tier.RateCents < 0 {
			return ErrNegativeTierRate
		}
		if tier.MaxHours == nil {
			unlimited++
			if i != len(tiers)-1 {
				return ErrUnlimitedNotLast
			}
			continue
		}
		if *tier.MaxHours <= 0 {
			return ErrNonPositiveHours
		}
		if *tier.MaxHours <= prev {
			return ErrTiersOutOfOrder
		}
		prev = *tier.MaxHours
	}
	if unlimited != 1 {
		return ErrNoUnlimitedTier
	}
	return nil
}
