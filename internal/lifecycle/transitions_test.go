package lifecycle

import (
	"errors"
	"testing"
	"time"

	"valet/internal/models"
)

func TestValidStatusTransition(t *testing.T) {
	cases := []struct {
		from  string
		to    string
		valid bool
	}{
		{models.StatusCheckedIn, models.StatusReadyForPickup, true},
		{models.StatusCheckedIn, models.StatusCompleted, true},
		{models.StatusCheckedIn, models.StatusCancelled, true},
		{models.StatusReadyForPickup, models.StatusCompleted, true},
		{models.StatusReadyForPickup, models.StatusCancelled, true},
		{models.StatusReadyForPickup, models.StatusCheckedIn, true},
		{models.StatusCompleted, models.StatusReadyForPickup, false},
		{models.StatusCompleted, models.StatusCancelled, false},
		{models.StatusCancelled, models.StatusCheckedIn, false},
		{models.StatusCompleted, models.StatusCheckedIn, false},
		{"bogus", models.StatusCompleted, false},
	}
	for _, tt := range cases {
		if got := ValidStatusTransition(tt.from, tt.to); got != tt.valid {
			t.Fatalf("ValidStatusTransition(%q, %q)=%v, want %v", tt.from, tt.to, got, tt.valid)
		}
	}
}

func TestCheckStatusTransitionPaymentGate(t *testing.T) {
	err := CheckStatusTransition(models.StatusCheckedIn, models.StatusReadyForPickup, 2000)
	var payErr *PaymentRequiredError
	if !errors.As(err, &payErr) {
		t.Fatalf("unsettled ready: err=%v, want PaymentRequiredError", err)
	}
	if payErr.OutstandingCents != 2000 {
		t.Fatalf("outstanding=%d, want 2000", payErr.OutstandingCents)
	}

	if err := CheckStatusTransition(models.StatusCheckedIn, models.StatusReadyForPickup, 0); err != nil {
		t.Fatalf("settled ready: %v", err)
	}
	if err := CheckStatusTransition(models.StatusReadyForPickup, models.StatusCompleted, 100); err == nil {
		t.Fatalf("unsettled complete must be blocked")
	}
	// Cancellation is not payment gated.
	if err := CheckStatusTransition(models.StatusCheckedIn, models.StatusCancelled, 5000); err != nil {
		t.Fatalf("cancel with balance: %v", err)
	}
	// No-op transitions pass regardless of balance.
	if err := CheckStatusTransition(models.StatusCheckedIn, models.StatusCheckedIn, 5000); err != nil {
		t.Fatalf("same-status: %v", err)
	}
	if err := CheckStatusTransition(models.StatusCompleted, models.StatusCancelled, 0); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("terminal cancel: err=%v, want ErrInvalidTransition", err)
	}
}

func TestCheckVehicleTransition(t *testing.T) {
	if err := CheckVehicleTransition(models.VehicleWithUs, models.VehicleAway, true, 0); err != nil {
		t.Fatalf("settled departure with privileges: %v", err)
	}

	err := CheckVehicleTransition(models.VehicleWithUs, models.VehicleAway, true, 1600)
	var depErr *DepartureBlockedError
	if !errors.As(err, &depErr) || depErr.OutstandingCents != 1600 {
		t.Fatalf("unsettled departure: err=%v", err)
	}

	err = CheckVehicleTransition(models.VehicleWithUs, models.VehicleAway, false, 0)
	if !errors.As(err, &depErr) || depErr.InOutAllowed {
		t.Fatalf("no-privilege departure: err=%v", err)
	}

	// Returning never needs settlement.
	if err := CheckVehicleTransition(models.VehicleAway, models.VehicleWithUs, false, 9000); err != nil {
		t.Fatalf("return: %v", err)
	}
	if err := CheckVehicleTransition(models.VehicleWithUs, "gone", true, 0); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("unknown vehicle state: err=%v", err)
	}
}

func TestStatusAfterVehicleChange(t *testing.T) {
	if got := StatusAfterVehicleChange(models.StatusReadyForPickup, models.VehicleAway); got != models.StatusCheckedIn {
		t.Fatalf("ready ticket leaving: status=%s, want checked_in", got)
	}
	if got := StatusAfterVehicleChange(models.StatusCheckedIn, models.VehicleAway); got != models.StatusCheckedIn {
		t.Fatalf("checked-in ticket leaving: status=%s", got)
	}
	if got := StatusAfterVehicleChange(models.StatusReadyForPickup, models.VehicleWithUs); got != models.StatusReadyForPickup {
		t.Fatalf("ready ticket staying: status=%s", got)
	}
}

func TestInOutAllowed(t *testing.T) {
	three := 3
	loc := models.Location{
		Tiers: []models.PricingTier{
			{MaxHours: &three, RateCents: 2000, InOutAllowed: false},
			{MaxHours: nil, RateCents: 4600, InOutAllowed: true},
		},
		OvernightRateCents:    4600,
		OvernightInOutAllowed: true,
	}
	now := time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)

	shortStay := models.Ticket{RateType: models.RateHourly, CheckedInAt: now.Add(-2 * time.Hour)}
	if InOutAllowed(loc, shortStay, now) {
		t.Fatalf("first-tier stay must not have in/out privileges")
	}

	longStay := models.Ticket{RateType: models.RateHourly, CheckedInAt: now.Add(-6 * time.Hour)}
	if !InOutAllowed(loc, longStay, now) {
		t.Fatalf("unlimited-tier stay must have in/out privileges")
	}

	overnight := models.Ticket{RateType: models.RateOvernight, CheckedInAt: now.Add(-2 * time.Hour)}
	if !InOutAllowed(loc, overnight, now) {
		t.Fatalf("overnight ticket follows the overnight flag")
	}
}
