// Package store defines the transactional record-store surface the core
// works through, with typed inputs for each mutation.
package store

import (
	"context"
	"time"

	"valet/internal/models"
)

type CreateTicketInput struct {
	RequestID     string
	LocationID    string
	RateType      string
	Phone         string
	VehicleDesc   string
	DurationHours *int
	DurationDays  *int
	CheckedInAt   time.Time
}

// UpdateTicketInput carries the staff PATCH / automation mutation; nil
// fields are left untouched. OccurredAt is the reference "now" for pricing
// and gating inside the transaction.
type UpdateTicketInput struct {
	TicketID      string
	Status        *string
	VehicleState  *string
	LocationID    *string
	WillReturn    *string
	DurationHours *int
	DurationDays  *int
	CheckedOutAt  *time.Time
	Actor         string
	OccurredAt    time.Time
}

type TicketFilter struct {
	LocationID   string
	Status       string
	VehicleState string
}

// Balance is the settled view of a ticket's money at one instant.
type Balance struct {
	ProjectedCents   int64 `json:"projected_cents"`
	PaidCents        int64 `json:"paid_cents"`
	OutstandingCents int64 `json:"outstanding_cents"`
}

func (b Balance) Settled() bool { return b.OutstandingCents == 0 }

type Session struct {
	SessionID string
	UserID    string
	Role      string
	ExpiresAt time.Time
}

const RolePrivileged = "manager"

type Store interface {
	CreateLocation(ctx context.Context, loc models.Location) (models.Location, error)
	GetLocation(ctx context.Context, locationID string) (models.Location, error)
	ListLocations(ctx context.Context) ([]models.Location, error)

	CreateTicket(ctx context.Context, input CreateTicketInput) (models.Ticket, bool, error)
	GetTicket(ctx context.Context, ticketID string) (models.Ticket, error)
	ListTickets(ctx context.Context, filter TicketFilter) ([]models.Ticket, error)
	UpdateTicket(ctx context.Context, input UpdateTicketInput) (models.Ticket, error)
	DeleteTicket(ctx context.Context, ticketID, actor string) error

	FindOpenTicketByPhone(ctx context.Context, variants []string) (models.Ticket, bool, error)
	FindOpenTicketByNumberAndPhone(ctx context.Context, number string, variants []string) (models.Ticket, bool, error)
	FindOpenTicketByNumber(ctx context.Context, number string) (models.Ticket, bool, error)

	Balance(ctx context.Context, ticketID string, now time.Time) (Balance, error)
	ListPayments(ctx context.Context, ticketID string) ([]models.Payment, error)
	GetPayment(ctx context.Context, paymentID string) (models.Payment, error)
	GetOpenPayment(ctx context.Context, ticketID string) (models.Payment, bool, error)
	CreatePendingPayment(ctx context.Context, ticketID string, amountCents int64) (models.Payment, error)
	MarkPaymentLinkSent(ctx context.Context, paymentID, linkID, linkURL string) (models.Payment, error)
	MarkPaymentFailed(ctx context.Context, paymentID, reason string) error
	CompletePaymentByLink(ctx context.Context, linkID, providerRef, ticketID string, now time.Time) (models.Payment, bool, error)
	ApplyRefund(ctx context.Context, paymentID string, amountCents int64, now time.Time) (models.Payment, error)

	InsertMessage(ctx context.Context, msg models.Message) (models.Message, bool, error)
	ListMessages(ctx context.Context, ticketID string) ([]models.Message, error)

	AppendAudit(ctx context.Context, entry models.AuditEntry) error
	ListAudit(ctx context.Context, ticketID string) ([]models.AuditEntry, error)

	GetSession(ctx context.Context, sessionID string) (Session, error)
}
