// Package lifecycle enforces the legal ticket status and vehicle presence
// transitions, including the payment gates in front of them.
package lifecycle

import (
	"errors"
	"fmt"
	"time"

	"valet/internal/models"
	"valet/internal/pricing"
)

var ErrInvalidTransition = errors.New("invalid ticket transition")

// PaymentRequiredError blocks a status advance while a balance is owed.
type PaymentRequiredError struct {
	OutstandingCents int64
}

func (e *PaymentRequiredError) Error() string {
	return fmt.Sprintf("payment required: %d cents outstanding", e.OutstandingCents)
}

// DepartureBlockedError blocks a vehicle leaving the lot before settlement
// or without in/out privileges.
type DepartureBlockedError struct {
	OutstandingCents int64
	InOutAllowed     bool
}

func (e *DepartureBlockedError) Error() string {
	if !e.InOutAllowed {
		return "departure blocked: ticket has no in/out privileges"
	}
	return fmt.Sprintf("settlement required before departure: %d cents outstanding", e.OutstandingCents)
}

var statusTransitions = map[string][]string{
	models.StatusReadyForPickup: {models.StatusCheckedIn},
	models.StatusCompleted:      {models.StatusCheckedIn, models.StatusReadyForPickup},
	models.StatusCancelled:      {models.StatusCheckedIn, models.StatusReadyForPickup},
	// A vehicle leaving the curb reverts a ready ticket to checked in.
	models.StatusCheckedIn: {models.StatusReadyForPickup},
}

func ValidStatusTransition(from, to string) bool {
	allowed, ok := statusTransitions[to]
	if !ok {
		return false
	}
	for _, status := range allowed {
		if status == from {
			return true
		}
	}
	return false
}

// CheckStatusTransition validates a status change against the transition
// table and the payment gate. Ready-for-pickup and completed both require a
// settled ledger.
func CheckStatusTransition(from, to string, outstandingCents int64) error {
	if from == to {
		return nil
	}
	if !ValidStatusTransition(from, to) {
		return ErrInvalidTransition
	}
	if (to == models.StatusReadyForPickup || to == models.StatusCompleted) && outstandingCents > 0 {
		return &PaymentRequiredError{OutstandingCents: outstandingCents}
	}
	return nil
}

// CheckVehicleTransition validates a vehicle presence change. Leaving the lot
// requires in/out privileges and a settled ledger; returning is always fine.
func CheckVehicleTransition(from, to string, inOutAllowed bool, outstandingCents int64) error {
	if from == to {
		return nil
	}
	if to != models.VehicleWithUs && to != models.VehicleAway {
		return ErrInvalidTransition
	}
	if to == models.VehicleAway {
		if !inOutAllowed {
			return &DepartureBlockedError{InOutAllowed: false}
		}
		if outstandingCents > 0 {
			return &DepartureBlockedError{OutstandingCents: outstandingCents, InOutAllowed: true}
		}
	}
	return nil
}

// StatusAfterVehicleChange reverts a ready ticket whose vehicle leaves: it
// is no longer waiting at the curb.
func StatusAfterVehicleChange(status, vehicleState string) string {
	if vehicleState == models.VehicleAway && status == models.StatusReadyForPickup {
		return models.StatusCheckedIn
	}
	return status
}

// InOutAllowed derives a ticket's effective in/out privileges from its rate
// type and the location's tier and overnight flags.
func InOutAllowed(loc models.Location, t models.Ticket, now time.Time) bool {
	if t.RateType == models.RateOvernight {
		return loc.OvernightInOutAllowed
	}
	bill, ok := pricing.BillFor(t).(pricing.HourlyBill)
	if !ok {
		return loc.OvernightInOutAllowed
	}
	idx := pricing.TierIndex(loc.Tiers, bill.Hours(now))
	return loc.InOutAllowed(t.RateType, idx)
}
