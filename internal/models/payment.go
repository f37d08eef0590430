package models

import "time"

type Payment struct {
	PaymentID         string     `json:"payment_id"`
	TicketID          string     `json:"ticket_id"`
	AmountCents       int64      `json:"amount_cents"`
	Status            string     `json:"status"`
	LinkID            string     `json:"link_id,omitempty"`
	LinkURL           string     `json:"link_url,omitempty"`
	ProviderRef       string     `json:"provider_ref,omitempty"`
	RefundAmountCents int64      `json:"refund_amount_cents"`
	RefundedAt        *time.Time `json:"refunded_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
}

const (
	PaymentPending   = "pending"
	PaymentLinkSent  = "payment_link_sent"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
	PaymentRefunded  = "refunded"
)

type Message struct {
	MessageID   string    `json:"message_id"`
	TicketID    string    `json:"ticket_id"`
	Direction   string    `json:"direction"`
	Body        string    `json:"body"`
	Status      string    `json:"status"`
	Reason      string    `json:"reason,omitempty"`
	ProviderSID string    `json:"provider_sid,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

const (
	MessageInbound  = "inbound"
	MessageOutbound = "outbound"
)

const (
	DeliveryReceived = "received"
	DeliverySent     = "sent"
	DeliveryFailed   = "failed"
	DeliverySkipped  = "skipped"
)

// Outbound message reason tags.
const (
	ReasonWelcome               = "welcome"
	ReasonPaymentRequest        = "payment_request"
	ReasonPaymentConfirmation   = "payment_confirmation"
	ReasonPickupAcknowledgement = "pickup_acknowledgement"
	ReasonReturnQuestion        = "return_question"
	ReasonReturnAcknowledgement = "return_acknowledgement"
)

type AuditEntry struct {
	AuditID   string    `json:"audit_id"`
	TicketID  string    `json:"ticket_id,omitempty"`
	Action    string    `json:"action"`
	Details   string    `json:"details,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
