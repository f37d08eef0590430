package models

import "time"

type Ticket struct {
	TicketID      string     `json:"ticket_id"`
	TicketNumber  string     `json:"ticket_number"`
	LocationID    string     `json:"location_id"`
	RateType      string     `json:"rate_type"`
	Status        string     `json:"status"`
	VehicleState  string     `json:"vehicle_state"`
	WillReturn    string     `json:"will_return"`
	Phone         string     `json:"phone,omitempty"`
	VehicleDesc   string     `json:"vehicle_desc,omitempty"`
	CheckedInAt   time.Time  `json:"checked_in_at"`
	CheckedOutAt  *time.Time `json:"checked_out_at,omitempty"`
	DurationHours *int       `json:"duration_hours,omitempty"`
	DurationDays  *int       `json:"duration_days,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	RequestID     string     `json:"request_id,omitempty"`
}

const (
	RateHourly    = "hourly"
	RateOvernight = "overnight"
)

const (
	StatusCheckedIn      = "checked_in"
	StatusReadyForPickup = "ready_for_pickup"
	StatusCompleted      = "completed"
	StatusCancelled      = "cancelled"
)

const (
	VehicleWithUs = "with_us"
	VehicleAway   = "away"
)

// willReturn is tri-state: unknown until the customer answers the
// return-confirmation question.
const (
	WillReturnUnknown = "unknown"
	WillReturnYes     = "yes"
	WillReturnNo      = "no"
)

// Open reports whether the ticket can still be matched to inbound messages
// and advanced by automation.
func (t Ticket) Open() bool {
	return t.Status == StatusCheckedIn || t.Status == StatusReadyForPickup
}
