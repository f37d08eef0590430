// Package provider is the boundary to the SMS and payment-link services.
// The core depends on the interfaces here; concrete Twilio and Stripe
// implementations live alongside log/noop stand-ins for development and
// tests.
package provider

import (
	"context"
	"errors"
)

var ErrUnavailable = errors.New("provider unavailable")

// Capabilities gates what the automation path may attempt. Injected
// explicitly so tests can simulate a missing or disabled provider.
type Capabilities struct {
	SMSConfigured      bool
	SMSDisabled        bool
	PaymentsConfigured bool
}

func (c Capabilities) CanSendSMS() bool {
	return c.SMSConfigured && !c.SMSDisabled
}

func (c Capabilities) CanCreatePaymentLinks() bool {
	return c.PaymentsConfigured
}

type SMSSender interface {
	Send(ctx context.Context, to, body string) error
}

type LinkRequest struct {
	TicketID     string
	TicketNumber string
	LocationID   string
	AmountCents  int64
	Description  string
}

type Link struct {
	ID  string
	URL string
}

type PaymentLinks interface {
	CreateLink(ctx context.Context, req LinkRequest) (Link, error)
	Refund(ctx context.Context, providerRef string, amountCents int64) error
}
