package httpapi

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"valet/internal/automation"
	"valet/internal/store"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
	twilioclient "github.com/twilio/twilio-go/client"
)

type WebhookConfig struct {
	TwilioAuthToken     string
	StripeWebhookSecret string
}

// Webhooks terminates the provider callbacks. The SMS webhook always
// answers 200 with an empty reply document; errors there are logged, never
// surfaced, so the carrier does not retry a message we already recorded.
type Webhooks struct {
	store store.Store
	orch  *automation.Orchestrator
	cfg   WebhookConfig
}

func NewWebhooks(st store.Store, orch *automation.Orchestrator, cfg WebhookConfig) *Webhooks {
	return &Webhooks{store: st, orch: orch, cfg: cfg}
}

func (wh *Webhooks) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/webhooks/sms", wh.handleInboundSMS)
	mux.HandleFunc("/webhooks/stripe", wh.handleStripeEvent)
	return mux
}

const emptyTwiML = `<?xml version="1.0" encoding="UTF-8"?><Response></Response>`

func (wh *Webhooks) handleInboundSMS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		writeTwiML(w)
		return
	}

	if wh.cfg.TwilioAuthToken != "" && !wh.validTwilioSignature(r) {
		w.WriteHeader(http.StatusForbidden)
		return
	}

	from := strings.TrimSpace(r.PostForm.Get("From"))
	body := r.PostForm.Get("Body")
	sid := strings.TrimSpace(r.PostForm.Get("MessageSid"))
	inboundSMS.Add(1)

	if from != "" && body != "" {
		if err := wh.orch.HandleInbound(r.Context(), from, body, sid); err != nil {
			log.Printf("inbound sms error sid=%s: %v", sid, err)
		}
	}
	writeTwiML(w)
}

func (wh *Webhooks) validTwilioSignature(r *http.Request) bool {
	params := make(map[string]string, len(r.PostForm))
	for key := range r.PostForm {
		params[key] = r.PostForm.Get(key)
	}
	url := "https://" + r.Host + r.URL.RequestURI()
	validator := twilioclient.NewRequestValidator(wh.cfg.TwilioAuthToken)
	return validator.Validate(url, params, r.Header.Get("X-Twilio-Signature"))
}

func writeTwiML(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, emptyTwiML)
}

func (wh *Webhooks) handleStripeEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	event, err := webhook.ConstructEvent(payload, r.Header.Get("Stripe-Signature"), wh.cfg.StripeWebhookSecret)
	if err != nil {
		log.Printf("stripe webhook signature error: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if event.Type != "checkout.session.completed" {
		w.WriteHeader(http.StatusOK)
		return
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		log.Printf("stripe webhook payload error: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	// Async payment methods fire checkout.session.completed before any
	// money moves; only a paid session settles the ledger.
	if session.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		log.Printf("checkout session completed but not paid link=%s payment_status=%s", session.ID, session.PaymentStatus)
		w.WriteHeader(http.StatusOK)
		return
	}

	providerRef := ""
	if session.PaymentIntent != nil {
		providerRef = session.PaymentIntent.ID
	}
	ticketID := session.Metadata["ticket_id"]

	payment, applied, err := wh.store.CompletePaymentByLink(r.Context(), session.ID, providerRef, ticketID, time.Now().UTC())
	if err != nil {
		log.Printf("payment completion error link=%s ticket=%s: %v", session.ID, ticketID, err)
		// 200 so the processor does not retry an event we cannot match.
		w.WriteHeader(http.StatusOK)
		return
	}
	if !applied {
		log.Printf("payment completion replay link=%s payment=%s", session.ID, payment.PaymentID)
		w.WriteHeader(http.StatusOK)
		return
	}

	if ticket, err := wh.store.GetTicket(r.Context(), payment.TicketID); err == nil {
		wh.orch.SendPaymentConfirmation(r.Context(), ticket, payment)
	}
	w.WriteHeader(http.StatusOK)
}
