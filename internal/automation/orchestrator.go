// Package automation drives ticket state from inbound text messages: it
// resolves the sender to a ticket, walks the decision table, and executes
// exactly one automated action per message.
package automation

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"valet/internal/lifecycle"
	"valet/internal/models"
	"valet/internal/provider"
	"valet/internal/sms"
	"valet/internal/store"

	"github.com/google/uuid"
)

// Store is the record-store surface the orchestrator needs. The postgres
// store satisfies it.
type Store interface {
	sms.TicketFinder
	GetLocation(ctx context.Context, locationID string) (models.Location, error)
	Balance(ctx context.Context, ticketID string, now time.Time) (store.Balance, error)
	UpdateTicket(ctx context.Context, input store.UpdateTicketInput) (models.Ticket, error)
	GetOpenPayment(ctx context.Context, ticketID string) (models.Payment, bool, error)
	CreatePendingPayment(ctx context.Context, ticketID string, amountCents int64) (models.Payment, error)
	MarkPaymentLinkSent(ctx context.Context, paymentID, linkID, linkURL string) (models.Payment, error)
	MarkPaymentFailed(ctx context.Context, paymentID, reason string) error
	InsertMessage(ctx context.Context, msg models.Message) (models.Message, bool, error)
	AppendAudit(ctx context.Context, entry models.AuditEntry) error
}

const actor = "automation"

type Orchestrator struct {
	store Store
	sms   provider.SMSSender
	links provider.PaymentLinks
	caps  provider.Capabilities
	now   func() time.Time
}

func New(st Store, smsSender provider.SMSSender, links provider.PaymentLinks, caps provider.Capabilities) *Orchestrator {
	return &Orchestrator{
		store: st,
		sms:   smsSender,
		links: links,
		caps:  caps,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// WithClock fixes the reference clock; tests use it.
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// HandleInbound processes one inbound message end to end. The inbound record
// is committed before any action runs, and every provider failure past that
// point is logged and swallowed so the audit trail survives.
func (o *Orchestrator) HandleInbound(ctx context.Context, from, body, providerSID string) error {
	interp, err := sms.Interpret(ctx, o.store, from, body)
	if err != nil {
		return err
	}
	if !interp.Matched {
		// No ticket to attribute the message to; dropped without
		// persistence.
		log.Printf("inbound sms unmatched from=%s body_len=%d", from, len(body))
		return nil
	}
	ticket := interp.Ticket

	_, isNew, err := o.store.InsertMessage(ctx, models.Message{
		MessageID:   uuid.NewString(),
		TicketID:    ticket.TicketID,
		Direction:   models.MessageInbound,
		Body:        body,
		Status:      models.DeliveryReceived,
		ProviderSID: providerSID,
		CreatedAt:   o.now(),
	})
	if err != nil {
		return err
	}
	if !isNew {
		// Carrier retry of an already-recorded payload; the first
		// delivery's action stands.
		log.Printf("inbound sms duplicate sid=%s ticket=%s", providerSID, ticket.TicketNumber)
		return nil
	}

	if err := o.act(ctx, ticket, interp.Intent); err != nil {
		log.Printf("automation action error ticket=%s: %v", ticket.TicketNumber, err)
	}
	return nil
}

// act evaluates the decision table top-down against current state and
// executes the first matching action.
func (o *Orchestrator) act(ctx context.Context, ticket models.Ticket, intent sms.Intent) error {
	now := o.now()
	loc, err := o.store.GetLocation(ctx, ticket.LocationID)
	if err != nil {
		return err
	}
	bal, err := o.store.Balance(ctx, ticket.TicketID, now)
	if err != nil {
		return err
	}
	inOut := lifecycle.InOutAllowed(loc, ticket, now)
	yesNo := intent.Affirmative != intent.Negative
	wantsPickup := intent.PickupRequest || intent.Affirmative

	switch {
	case ticket.Status == models.StatusReadyForPickup && inOut && ticket.WillReturn == models.WillReturnUnknown && yesNo:
		return o.recordWillReturn(ctx, ticket, intent.Affirmative, now)
	case wantsPickup && !bal.Settled():
		return o.issuePaymentLink(ctx, ticket, loc, bal, now)
	case wantsPickup && bal.Settled() && ticket.Status == models.StatusCheckedIn:
		return o.markReady(ctx, ticket, inOut, now)
	case inOut && yesNo:
		return o.noteReply(ctx, ticket, intent.Affirmative, now)
	default:
		log.Printf("automation no action ticket=%s status=%s", ticket.TicketNumber, ticket.Status)
		return nil
	}
}

func (o *Orchestrator) recordWillReturn(ctx context.Context, ticket models.Ticket, returning bool, now time.Time) error {
	will := models.WillReturnNo
	ack := "Got it, we'll keep your spot closed out. Thanks!"
	if returning {
		will = models.WillReturnYes
		ack = "Got it, we'll hold your spot for when you're back."
	}
	if _, err := o.store.UpdateTicket(ctx, store.UpdateTicketInput{
		TicketID:   ticket.TicketID,
		WillReturn: &will,
		Actor:      actor,
		OccurredAt: now,
	}); err != nil {
		return err
	}
	o.sendSMS(ctx, ticket, ack, models.ReasonReturnAcknowledgement)
	o.audit(ctx, ticket.TicketID, "automation.will_return_recorded", map[string]string{"will_return": will})
	return nil
}

// issuePaymentLink quotes the outstanding balance over SMS with a hosted
// payment link. An open link for the same amount is reused so a repeated
// pickup text never mints a second link; the link is created at the provider
// before the payment row claims it was sent.
func (o *Orchestrator) issuePaymentLink(ctx context.Context, ticket models.Ticket, loc models.Location, bal store.Balance, now time.Time) error {
	if !o.caps.CanCreatePaymentLinks() {
		log.Printf("payment links unavailable ticket=%s outstanding_cents=%d", ticket.TicketNumber, bal.OutstandingCents)
		o.audit(ctx, ticket.TicketID, "automation.payment_link_unavailable", map[string]string{
			"outstanding_cents": fmt.Sprint(bal.OutstandingCents),
		})
		return nil
	}

	payment, found, err := o.store.GetOpenPayment(ctx, ticket.TicketID)
	if err != nil {
		return err
	}
	if !found || payment.Status != models.PaymentLinkSent || payment.AmountCents != bal.OutstandingCents {
		pending, err := o.store.CreatePendingPayment(ctx, ticket.TicketID, bal.OutstandingCents)
		if err != nil {
			return err
		}
		link, err := o.links.CreateLink(ctx, provider.LinkRequest{
			TicketID:     ticket.TicketID,
			TicketNumber: ticket.TicketNumber,
			LocationID:   loc.LocationID,
			AmountCents:  bal.OutstandingCents,
			Description:  fmt.Sprintf("Valet parking, ticket %s at %s", ticket.TicketNumber, loc.Name),
		})
		if err != nil {
			if markErr := o.store.MarkPaymentFailed(ctx, pending.PaymentID, err.Error()); markErr != nil {
				log.Printf("mark payment failed error payment=%s: %v", pending.PaymentID, markErr)
			}
			log.Printf("payment link create error ticket=%s: %v", ticket.TicketNumber, err)
			return nil
		}
		payment, err = o.store.MarkPaymentLinkSent(ctx, pending.PaymentID, link.ID, link.URL)
		if err != nil {
			return err
		}
	}

	body := fmt.Sprintf("Your balance for ticket %s is %s. Pay here to get your car ready: %s",
		ticket.TicketNumber, dollars(bal.OutstandingCents), payment.LinkURL)
	o.sendSMS(ctx, ticket, body, models.ReasonPaymentRequest)
	o.audit(ctx, ticket.TicketID, "automation.payment_link_sent", map[string]string{
		"payment_id":        payment.PaymentID,
		"outstanding_cents": fmt.Sprint(bal.OutstandingCents),
	})
	return nil
}

func (o *Orchestrator) markReady(ctx context.Context, ticket models.Ticket, inOut bool, now time.Time) error {
	ready := models.StatusReadyForPickup
	updated, err := o.store.UpdateTicket(ctx, store.UpdateTicketInput{
		TicketID:   ticket.TicketID,
		Status:     &ready,
		Actor:      actor,
		OccurredAt: now,
	})
	if err != nil {
		return err
	}
	o.sendSMS(ctx, ticket, fmt.Sprintf("We're bringing your car up now, ticket %s. See you at the curb!", ticket.TicketNumber), models.ReasonPickupAcknowledgement)
	if inOut && updated.WillReturn == models.WillReturnUnknown {
		o.sendSMS(ctx, ticket, "Will you be coming back with the car today? Reply YES or NO.", models.ReasonReturnQuestion)
	}
	o.audit(ctx, ticket.TicketID, "automation.ready_for_pickup", nil)
	return nil
}

func (o *Orchestrator) noteReply(ctx context.Context, ticket models.Ticket, affirmative bool, now time.Time) error {
	reply := "no"
	if affirmative {
		reply = "yes"
	}
	o.audit(ctx, ticket.TicketID, "automation.reply_noted", map[string]string{"reply": reply})
	return nil
}

// SendWelcome texts the check-in confirmation for a new ticket.
// Best-effort.
func (o *Orchestrator) SendWelcome(ctx context.Context, ticket models.Ticket, loc models.Location) {
	if ticket.Phone == "" {
		return
	}
	body := fmt.Sprintf("Welcome to %s! Your valet ticket is %s. Text us here when you're ready for your car.", loc.Name, ticket.TicketNumber)
	o.sendSMS(ctx, ticket, body, models.ReasonWelcome)
}

// SendPaymentConfirmation texts the receipt after a payment completes.
// Best-effort.
func (o *Orchestrator) SendPaymentConfirmation(ctx context.Context, ticket models.Ticket, payment models.Payment) {
	if ticket.Phone == "" {
		return
	}
	body := fmt.Sprintf("Payment of %s received for ticket %s. Text us when you're ready for pickup!", dollars(payment.AmountCents), ticket.TicketNumber)
	o.sendSMS(ctx, ticket, body, models.ReasonPaymentConfirmation)
}

// sendSMS sends and records one outbound message. Provider failures are
// recorded and swallowed: notification is best-effort and never rolls back
// the state change it announces.
func (o *Orchestrator) sendSMS(ctx context.Context, ticket models.Ticket, body, reason string) {
	status := models.DeliverySent
	if !o.caps.CanSendSMS() {
		status = models.DeliverySkipped
		log.Printf("sms disabled, skipping reason=%s ticket=%s", reason, ticket.TicketNumber)
	} else if err := o.sms.Send(ctx, ticket.Phone, body); err != nil {
		status = models.DeliveryFailed
		log.Printf("sms send error reason=%s ticket=%s: %v", reason, ticket.TicketNumber, err)
	}
	if _, _, err := o.store.InsertMessage(ctx, models.Message{
		MessageID: uuid.NewString(),
		TicketID:  ticket.TicketID,
		Direction: models.MessageOutbound,
		Body:      body,
		Status:    status,
		Reason:    reason,
		CreatedAt: o.now(),
	}); err != nil {
		log.Printf("record outbound message error ticket=%s: %v", ticket.TicketNumber, err)
	}
}

func (o *Orchestrator) audit(ctx context.Context, ticketID, action string, details map[string]string) {
	payload := ""
	if len(details) > 0 {
		raw, err := json.Marshal(details)
		if err == nil {
			payload = string(raw)
		}
	}
	if err := o.store.AppendAudit(ctx, models.AuditEntry{
		AuditID:   uuid.NewString(),
		TicketID:  ticketID,
		Action:    action,
		Details:   payload,
		CreatedAt: o.now(),
	}); err != nil {
		log.Printf("audit append error ticket=%s action=%s: %v", ticketID, action, err)
	}
}

func dollars(cents int64) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}
