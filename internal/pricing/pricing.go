package pricing

import (
	"time"

	"valet/internal/models"
)

const hoursPerDay = 24

// Schedule is an immutable snapshot of a location's pricing. Callers must
// not hand the engine a location whose tiers can mutate mid-calculation.
type Schedule struct {
	Tiers              []models.PricingTier
	OvernightRateCents int64
}

// ScheduleFor snapshots the pricing fields of a location.
func ScheduleFor(loc models.Location) Schedule {
	tiers := make([]models.PricingTier, len(loc.Tiers))
	copy(tiers, loc.Tiers)
	return Schedule{Tiers: tiers, OvernightRateCents: loc.OvernightRateCents}
}

// Bill is the tagged union of billable stay facts. Exactly one of the two
// concrete types applies to a ticket, and within each the prepaid duration
// wins over elapsed time.
type Bill interface {
	charge(s Schedule, now time.Time) int64
}

type HourlyBill struct {
	CheckedInAt  time.Time
	CheckedOutAt *time.Time
	PrepaidHours *int
}

type OvernightBill struct {
	CheckedInAt  time.Time
	CheckedOutAt *time.Time
	PrepaidDays  *int
}

// BillFor maps a ticket's billing facts onto the union.
func BillFor(t models.Ticket) Bill {
	if t.RateType == models.RateOvernight {
		return OvernightBill{CheckedInAt: t.CheckedInAt, CheckedOutAt: t.CheckedOutAt, PrepaidDays: t.DurationDays}
	}
	return HourlyBill{CheckedInAt: t.CheckedInAt, CheckedOutAt: t.CheckedOutAt, PrepaidHours: t.DurationHours}
}

// Charge returns the projected amount owed in cents. Pure: no I/O, no clock
// reads beyond the supplied reference time.
func Charge(s Schedule, b Bill, now time.Time) int64 {
	return b.charge(s, now)
}

// Hours is the hour count the schedule walk bills against: the prepaid
// duration verbatim when set, otherwise elapsed time rounded up.
func (b HourlyBill) Hours(now time.Time) int {
	if b.PrepaidHours != nil {
		if *b.PrepaidHours < 0 {
			return 0
		}
		return *b.PrepaidHours
	}
	return ceilHours(elapsed(b.CheckedInAt, b.CheckedOutAt, now))
}

func (b HourlyBill) charge(s Schedule, now time.Time) int64 {
	hours := b.Hours(now)

	// Tier pricing is designed for same-day stays; past 24 hours the stay
	// escalates to the per-day overnight rate regardless of tier.
	if hours >= hoursPerDay {
		return s.OvernightRateCents * int64(ceilDiv(hours, hoursPerDay))
	}
	if len(s.Tiers) == 0 {
		return s.OvernightRateCents
	}
	if idx := TierIndex(s.Tiers, hours); idx >= 0 {
		return s.Tiers[idx].RateCents
	}
	// Misconfigured schedule with no unlimited tier and every bounded tier
	// exceeded: fall back to the overnight rate.
	return s.OvernightRateCents
}

func (b OvernightBill) charge(s Schedule, now time.Time) int64 {
	days := 0
	if b.PrepaidDays != nil {
		days = *b.PrepaidDays
	} else {
		days = ceilDiv(ceilHours(elapsed(b.CheckedInAt, b.CheckedOutAt, now)), hoursPerDay)
	}
	if days < 1 {
		days = 1
	}
	return s.OvernightRateCents * int64(days)
}

// TierIndex returns the index of the first tier whose range contains the
// elapsed hours: the first tier with a nil MaxHours or MaxHours >= hours.
// Returns -1 if no tier matches.
func TierIndex(tiers []models.PricingTier, hours int) int {
	for i, tier := range tiers {
		if tier.MaxHours == nil || *tier.MaxHours >= hours {
			return i
		}
	}
	return -1
}

// elapsed clamps clock skew to zero.
func elapsed(checkedInAt time.Time, checkedOutAt *time.Time, now time.Time) time.Duration {
	end := now
	if checkedOutAt != nil {
		end = *checkedOutAt
	}
	d := end.Sub(checkedInAt)
	if d < 0 {
		return 0
	}
	return d
}

func ceilHours(d time.Duration) int {
	return ceilDiv(int(d/time.Minute), 60)
}

func ceilDiv(n, unit int) int {
	if n <= 0 {
		return 0
	}
	return (n + unit - 1) / unit
}
