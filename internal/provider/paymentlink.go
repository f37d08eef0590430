package provider

import (
	"context"
	"fmt"
	"log"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"

	"github.com/google/uuid"
)

type StripeConfig struct {
	SecretKey  string
	SuccessURL string
	Currency   string
}

func (c StripeConfig) Configured() bool {
	return c.SecretKey != ""
}

// NewPaymentLinks picks the concrete link service: Stripe checkout sessions
// when configured, otherwise a log stand-in that mints fake links.
func NewPaymentLinks(cfg StripeConfig) PaymentLinks {
	if !cfg.Configured() {
		return logPaymentLinks{}
	}
	api := &client.API{}
	api.Init(cfg.SecretKey, nil)
	currency := cfg.Currency
	if currency == "" {
		currency = "usd"
	}
	successURL := cfg.SuccessURL
	if successURL == "" {
		successURL = "https://example.com/paid"
	}
	return &stripeLinks{api: api, currency: currency, successURL: successURL}
}

type stripeLinks struct {
	api        *client.API
	currency   string
	successURL string
}

func (s *stripeLinks) CreateLink(ctx context.Context, req LinkRequest) (Link, error) {
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(s.currency),
				UnitAmount: stripe.Int64(req.AmountCents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(req.Description),
				},
			},
			Quantity: stripe.Int64(1),
		}},
		SuccessURL: stripe.String(s.successURL),
	}
	params.Context = ctx
	params.AddMetadata("ticket_id", req.TicketID)
	params.AddMetadata("ticket_number", req.TicketNumber)
	params.AddMetadata("location_id", req.LocationID)

	session, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return Link{}, fmt.Errorf("%w: stripe checkout session: %v", ErrUnavailable, err)
	}
	return Link{ID: session.ID, URL: session.URL}, nil
}

func (s *stripeLinks) Refund(ctx context.Context, providerRef string, amountCents int64) error {
	if providerRef == "" {
		return fmt.Errorf("%w: payment has no provider reference", ErrUnavailable)
	}
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(providerRef),
		Amount:        stripe.Int64(amountCents),
	}
	params.Context = ctx
	if _, err := s.api.Refunds.New(params); err != nil {
		return fmt.Errorf("%w: stripe refund: %v", ErrUnavailable, err)
	}
	return nil
}

type logPaymentLinks struct{}

func (logPaymentLinks) CreateLink(ctx context.Context, req LinkRequest) (Link, error) {
	id := "stub_" + uuid.NewString()
	log.Printf("payment link stub ticket=%s amount_cents=%d link=%s", req.TicketID, req.AmountCents, id)
	return Link{ID: id, URL: "https://pay.example.com/" + id}, nil
}

func (logPaymentLinks) Refund(ctx context.Context, providerRef string, amountCents int64) error {
	log.Printf("refund stub ref=%s amount_cents=%d", providerRef, amountCents)
	return nil
}
