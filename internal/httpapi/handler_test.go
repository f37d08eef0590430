package httpapi

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v79/webhook"

	"valet/internal/automation"
	"valet/internal/lifecycle"
	"valet/internal/models"
	"valet/internal/provider"
	"valet/internal/store"
)

type fakeStore struct {
	createLocationFn func(ctx context.Context, loc models.Location) (models.Location, error)
	getLocationFn    func(ctx context.Context, locationID string) (models.Location, error)
	listLocationsFn  func(ctx context.Context) ([]models.Location, error)

	createTicketFn func(ctx context.Context, input store.CreateTicketInput) (models.Ticket, bool, error)
	getTicketFn    func(ctx context.Context, ticketID string) (models.Ticket, error)
	listTicketsFn  func(ctx context.Context, filter store.TicketFilter) ([]models.Ticket, error)
	updateTicketFn func(ctx context.Context, input store.UpdateTicketInput) (models.Ticket, error)
	deleteTicketFn func(ctx context.Context, ticketID, actor string) error

	findByPhoneFn     func(ctx context.Context, variants []string) (models.Ticket, bool, error)
	findByNumPhoneFn  func(ctx context.Context, number string, variants []string) (models.Ticket, bool, error)
	findByNumberFn    func(ctx context.Context, number string) (models.Ticket, bool, error)

	balanceFn        func(ctx context.Context, ticketID string, now time.Time) (store.Balance, error)
	listPaymentsFn   func(ctx context.Context, ticketID string) ([]models.Payment, error)
	getPaymentFn     func(ctx context.Context, paymentID string) (models.Payment, error)
	getOpenPaymentFn func(ctx context.Context, ticketID string) (models.Payment, bool, error)
	createPendingFn  func(ctx context.Context, ticketID string, amountCents int64) (models.Payment, error)
	markLinkSentFn   func(ctx context.Context, paymentID, linkID, linkURL string) (models.Payment, error)
	markFailedFn     func(ctx context.Context, paymentID, reason string) error
	completeByLinkFn func(ctx context.Context, linkID, providerRef, ticketID string, now time.Time) (models.Payment, bool, error)
	applyRefundFn    func(ctx context.Context, paymentID string, amountCents int64, now time.Time) (models.Payment, error)

	insertMessageFn func(ctx context.Context, msg models.Message) (models.Message, bool, error)
	listMessagesFn  func(ctx context.Context, ticketID string) ([]models.Message, error)
	appendAuditFn   func(ctx context.Context, entry models.AuditEntry) error
	listAuditFn     func(ctx context.Context, ticketID string) ([]models.AuditEntry, error)
	getSessionFn    func(ctx context.Context, sessionID string) (store.Session, error)
}

func (f fakeStore) CreateLocation(ctx context.Context, loc models.Location) (models.Location, error) {
	if f.createLocationFn == nil {
		return loc, nil
	}
	return f.createLocationFn(ctx, loc)
}

func (f fakeStore) GetLocation(ctx context.Context, locationID string) (models.Location, error) {
	if f.getLocationFn == nil {
		return models.Location{LocationID: locationID}, nil
	}
	return f.getLocationFn(ctx, locationID)
}

func (f fakeStore) ListLocations(ctx context.Context) ([]models.Location, error) {
	if f.listLocationsFn == nil {
		return nil, nil
	}
	return f.listLocationsFn(ctx)
}

func (f fakeStore) CreateTicket(ctx context.Context, input store.CreateTicketInput) (models.Ticket, bool, error) {
	if f.createTicketFn == nil {
		return models.Ticket{}, false, nil
	}
	return f.createTicketFn(ctx, input)
}

func (f fakeStore) GetTicket(ctx context.Context, ticketID string) (models.Ticket, error) {
	if f.getTicketFn == nil {
		return models.Ticket{}, store.ErrTicketNotFound
	}
	return f.getTicketFn(ctx, ticketID)
}

func (f fakeStore) ListTickets(ctx context.Context, filter store.TicketFilter) ([]models.Ticket, error) {
	if f.listTicketsFn == nil {
		return nil, nil
	}
	return f.listTicketsFn(ctx, filter)
}

func (f fakeStore) UpdateTicket(ctx context.Context, input store.UpdateTicketInput) (models.Ticket, error) {
	if f.updateTicketFn == nil {
		return models.Ticket{}, nil
	}
	return f.updateTicketFn(ctx, input)
}

func (f fakeStore) DeleteTicket(ctx context.Context, ticketID, actor string) error {
	if f.deleteTicketFn == nil {
		return nil
	}
	return f.deleteTicketFn(ctx, ticketID, actor)
}

func (f fakeStore) FindOpenTicketByPhone(ctx context.Context, variants []string) (models.Ticket, bool, error) {
	if f.findByPhoneFn == nil {
		return models.Ticket{}, false, nil
	}
	return f.findByPhoneFn(ctx, variants)
}

func (f fakeStore) FindOpenTicketByNumberAndPhone(ctx context.Context, number string, variants []string) (models.Ticket, bool, error) {
	if f.findByNumPhoneFn == nil {
		return models.Ticket{}, false, nil
	}
	return f.findByNumPhoneFn(ctx, number, variants)
}

func (f fakeStore) FindOpenTicketByNumber(ctx context.Context, number string) (models.Ticket, bool, error) {
	if f.findByNumberFn == nil {
		return models.Ticket{}, false, nil
	}
	return f.findByNumberFn(ctx, number)
}

func (f fakeStore) Balance(ctx context.Context, ticketID string, now time.Time) (store.Balance, error) {
	if f.balanceFn == nil {
		return store.Balance{}, nil
	}
	return f.balanceFn(ctx, ticketID, now)
}

func (f fakeStore) ListPayments(ctx context.Context, ticketID string) ([]models.Payment, error) {
	if f.listPaymentsFn == nil {
		return nil, nil
	}
	return f.listPaymentsFn(ctx, ticketID)
}

func (f fakeStore) GetPayment(ctx context.Context, paymentID string) (models.Payment, error) {
	if f.getPaymentFn == nil {
		return models.Payment{}, store.ErrPaymentNotFound
	}
	return f.getPaymentFn(ctx, paymentID)
}

func (f fakeStore) GetOpenPayment(ctx context.Context, ticketID string) (models.Payment, bool, error) {
	if f.getOpenPaymentFn == nil {
		return models.Payment{}, false, nil
	}
	return f.getOpenPaymentFn(ctx, ticketID)
}

func (f fakeStore) CreatePendingPayment(ctx context.Context, ticketID string, amountCents int64) (models.Payment, error) {
	if f.createPendingFn == nil {
		return models.Payment{PaymentID: "pay-1", TicketID: ticketID, AmountCents: amountCents, Status: models.PaymentPending}, nil
	}
	return f.createPendingFn(ctx, ticketID, amountCents)
}

func (f fakeStore) MarkPaymentLinkSent(ctx context.Context, paymentID, linkID, linkURL string) (models.Payment, error) {
	if f.markLinkSentFn == nil {
		return models.Payment{PaymentID: paymentID, LinkID: linkID, LinkURL: linkURL, Status: models.PaymentLinkSent}, nil
	}
	return f.markLinkSentFn(ctx, paymentID, linkID, linkURL)
}

func (f fakeStore) MarkPaymentFailed(ctx context.Context, paymentID, reason string) error {
	if f.markFailedFn == nil {
		return nil
	}
	return f.markFailedFn(ctx, paymentID, reason)
}

func (f fakeStore) CompletePaymentByLink(ctx context.Context, linkID, providerRef, ticketID string, now time.Time) (models.Payment, bool, error) {
	if f.completeByLinkFn == nil {
		return models.Payment{}, false, store.ErrPaymentNotFound
	}
	return f.completeByLinkFn(ctx, linkID, providerRef, ticketID, now)
}

func (f fakeStore) ApplyRefund(ctx context.Context, paymentID string, amountCents int64, now time.Time) (models.Payment, error) {
	if f.applyRefundFn == nil {
		return models.Payment{}, nil
	}
	return f.applyRefundFn(ctx, paymentID, amountCents, now)
}

func (f fakeStore) InsertMessage(ctx context.Context, msg models.Message) (models.Message, bool, error) {
	if f.insertMessageFn == nil {
		return msg, true, nil
	}
	return f.insertMessageFn(ctx, msg)
}

func (f fakeStore) ListMessages(ctx context.Context, ticketID string) ([]models.Message, error) {
	if f.listMessagesFn == nil {
		return nil, nil
	}
	return f.listMessagesFn(ctx, ticketID)
}

func (f fakeStore) AppendAudit(ctx context.Context, entry models.AuditEntry) error {
	if f.appendAuditFn == nil {
		return nil
	}
	return f.appendAuditFn(ctx, entry)
}

func (f fakeStore) ListAudit(ctx context.Context, ticketID string) ([]models.AuditEntry, error) {
	if f.listAuditFn == nil {
		return nil, nil
	}
	return f.listAuditFn(ctx, ticketID)
}

func (f fakeStore) GetSession(ctx context.Context, sessionID string) (store.Session, error) {
	if f.getSessionFn == nil {
		return store.Session{}, store.ErrSessionNotFound
	}
	return f.getSessionFn(ctx, sessionID)
}

type stubSMS struct {
	sent []string
}

func (s *stubSMS) Send(ctx context.Context, to, body string) error {
	s.sent = append(s.sent, body)
	return nil
}

type stubLinks struct {
	created int
	refunds int
}

func (s *stubLinks) CreateLink(ctx context.Context, req provider.LinkRequest) (provider.Link, error) {
	s.created++
	return provider.Link{ID: "cs_test", URL: "https://pay.example.com/cs_test"}, nil
}

func (s *stubLinks) Refund(ctx context.Context, providerRef string, amountCents int64) error {
	s.refunds++
	return nil
}

func newTestHandler(fs fakeStore) (*Handler, *stubSMS, *stubLinks) {
	sms := &stubSMS{}
	links := &stubLinks{}
	caps := provider.Capabilities{SMSConfigured: true, PaymentsConfigured: true}
	orch := automation.New(fs, sms, links, caps)
	return NewHandler(fs, links, caps, orch), sms, links
}

const (
	testTicketID  = "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa"
	testLocID     = "bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb"
	testPaymentID = "cccccccc-cccc-cccc-cccc-cccccccccccc"
	testRequestID = "dddddddd-dddd-dddd-dddd-dddddddddddd"
)

func TestCreateTicketSendsWelcome(t *testing.T) {
	var welcome []models.Message
	fs := fakeStore{
		createTicketFn: func(ctx context.Context, input store.CreateTicketInput) (models.Ticket, bool, error) {
			return models.Ticket{
				TicketID:     testTicketID,
				TicketNumber: "HAM-001",
				LocationID:   input.LocationID,
				Status:       models.StatusCheckedIn,
				Phone:        input.Phone,
			}, true, nil
		},
		getLocationFn: func(ctx context.Context, locationID string) (models.Location, error) {
			return models.Location{LocationID: locationID, Name: "Hampton Garage"}, nil
		},
		insertMessageFn: func(ctx context.Context, msg models.Message) (models.Message, bool, error) {
			welcome = append(welcome, msg)
			return msg, true, nil
		},
	}
	h, sms, _ := newTestHandler(fs)

	body, _ := json.Marshal(map[string]string{
		"request_id":  testRequestID,
		"location_id": testLocID,
		"rate_type":   "hourly",
		"phone":       "(212) 555-0144",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/tickets", bytes.NewReader(body))
	resp := httptest.NewRecorder()
	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var ticket models.Ticket
	if err := json.NewDecoder(resp.Body).Decode(&ticket); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if ticket.Phone != "+12125550144" {
		t.Fatalf("expected canonical phone, got %q", ticket.Phone)
	}
	if len(sms.sent) != 1 {
		t.Fatalf("expected one welcome text, got %d", len(sms.sent))
	}
	if len(welcome) != 1 || welcome[0].Reason != models.ReasonWelcome {
		t.Fatalf("expected welcome message record, got %+v", welcome)
	}
}

func TestCreateTicketInvalidRateType(t *testing.T) {
	fs := fakeStore{
		createTicketFn: func(ctx context.Context, input store.CreateTicketInput) (models.Ticket, bool, error) {
			return models.Ticket{}, false, store.ErrInvalidInput
		},
	}
	h, _, _ := newTestHandler(fs)

	body, _ := json.Marshal(map[string]string{"location_id": testLocID, "rate_type": "weekly"})
	req := httptest.NewRequest(http.MethodPost, "/api/tickets", bytes.NewReader(body))
	resp := httptest.NewRecorder()
	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
}

func TestPatchTicketPaymentGateConflict(t *testing.T) {
	fs := fakeStore{
		updateTicketFn: func(ctx context.Context, input store.UpdateTicketInput) (models.Ticket, error) {
			return models.Ticket{}, &lifecycle.PaymentRequiredError{OutstandingCents: 4600}
		},
	}
	h, _, _ := newTestHandler(fs)

	body, _ := json.Marshal(map[string]string{"status": models.StatusReadyForPickup})
	req := httptest.NewRequest(http.MethodPatch, "/api/tickets/"+testTicketID, bytes.NewReader(body))
	resp := httptest.NewRecorder()
	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", resp.Code)
	}
	var errResp errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if errResp.Error.Code != "payment_required" {
		t.Fatalf("expected payment_required code, got %q", errResp.Error.Code)
	}
}

func TestDeleteTicketRequiresPrivilegedRole(t *testing.T) {
	fs := fakeStore{
		getSessionFn: func(ctx context.Context, sessionID string) (store.Session, error) {
			return store.Session{SessionID: sessionID, UserID: "user-1", Role: "attendant"}, nil
		},
	}
	h, _, _ := newTestHandler(fs)
	srv := AuthMiddleware(fs, h.Routes())

	req := httptest.NewRequest(http.MethodDelete, "/api/tickets/"+testTicketID, nil)
	req.Header.Set("Authorization", "Bearer session-1")
	resp := httptest.NewRecorder()
	srv.ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", resp.Code)
	}
}

func TestDeleteTicketPrivileged(t *testing.T) {
	deleted := ""
	fs := fakeStore{
		getSessionFn: func(ctx context.Context, sessionID string) (store.Session, error) {
			return store.Session{SessionID: sessionID, UserID: "user-1", Role: store.RolePrivileged}, nil
		},
		deleteTicketFn: func(ctx context.Context, ticketID, actor string) error {
			deleted = ticketID
			return nil
		},
	}
	h, _, _ := newTestHandler(fs)
	srv := AuthMiddleware(fs, h.Routes())

	req := httptest.NewRequest(http.MethodDelete, "/api/tickets/"+testTicketID, nil)
	req.Header.Set("Authorization", "Bearer session-1")
	resp := httptest.NewRecorder()
	srv.ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", resp.Code)
	}
	if deleted != testTicketID {
		t.Fatalf("expected delete of %s, got %q", testTicketID, deleted)
	}
}

func TestBalanceEndpoint(t *testing.T) {
	fs := fakeStore{
		balanceFn: func(ctx context.Context, ticketID string, now time.Time) (store.Balance, error) {
			return store.Balance{ProjectedCents: 4600, PaidCents: 2000, OutstandingCents: 2600}, nil
		},
	}
	h, _, _ := newTestHandler(fs)

	req := httptest.NewRequest(http.MethodGet, "/api/tickets/"+testTicketID+"/balance", nil)
	resp := httptest.NewRecorder()
	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var balance store.Balance
	if err := json.NewDecoder(resp.Body).Decode(&balance); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if balance.OutstandingCents != 2600 {
		t.Fatalf("expected outstanding 2600, got %d", balance.OutstandingCents)
	}
}

func TestCreatePaymentLinkSettledConflict(t *testing.T) {
	fs := fakeStore{
		getTicketFn: func(ctx context.Context, ticketID string) (models.Ticket, error) {
			return models.Ticket{TicketID: ticketID, TicketNumber: "HAM-001"}, nil
		},
		balanceFn: func(ctx context.Context, ticketID string, now time.Time) (store.Balance, error) {
			return store.Balance{ProjectedCents: 2000, PaidCents: 2000}, nil
		},
	}
	h, _, links := newTestHandler(fs)

	req := httptest.NewRequest(http.MethodPost, "/api/tickets/"+testTicketID+"/payment-link", strings.NewReader("{}"))
	resp := httptest.NewRecorder()
	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", resp.Code)
	}
	if links.created != 0 {
		t.Fatalf("expected no link creation, got %d", links.created)
	}
}

func TestCreatePaymentLinkSuccess(t *testing.T) {
	var markedLink string
	fs := fakeStore{
		getTicketFn: func(ctx context.Context, ticketID string) (models.Ticket, error) {
			return models.Ticket{TicketID: ticketID, TicketNumber: "HAM-001"}, nil
		},
		balanceFn: func(ctx context.Context, ticketID string, now time.Time) (store.Balance, error) {
			return store.Balance{ProjectedCents: 4600, OutstandingCents: 4600}, nil
		},
		markLinkSentFn: func(ctx context.Context, paymentID, linkID, linkURL string) (models.Payment, error) {
			markedLink = linkID
			return models.Payment{PaymentID: paymentID, LinkID: linkID, LinkURL: linkURL, Status: models.PaymentLinkSent, AmountCents: 4600}, nil
		},
	}
	h, _, links := newTestHandler(fs)

	req := httptest.NewRequest(http.MethodPost, "/api/tickets/"+testTicketID+"/payment-link", strings.NewReader("{}"))
	resp := httptest.NewRecorder()
	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}
	if links.created != 1 {
		t.Fatalf("expected one link creation, got %d", links.created)
	}
	if markedLink != "cs_test" {
		t.Fatalf("expected link cs_test recorded, got %q", markedLink)
	}
}

func TestRefundRejectsInvalidAmountBeforeProvider(t *testing.T) {
	fs := fakeStore{
		getSessionFn: func(ctx context.Context, sessionID string) (store.Session, error) {
			return store.Session{SessionID: sessionID, UserID: "user-1", Role: store.RolePrivileged}, nil
		},
		getPaymentFn: func(ctx context.Context, paymentID string) (models.Payment, error) {
			return models.Payment{PaymentID: paymentID, Status: models.PaymentPending, AmountCents: 2000}, nil
		},
	}
	h, _, links := newTestHandler(fs)
	srv := AuthMiddleware(fs, h.Routes())

	body, _ := json.Marshal(map[string]int64{"amount_cents": 2000})
	req := httptest.NewRequest(http.MethodPost, "/api/payments/"+testPaymentID+"/refund", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer session-1")
	resp := httptest.NewRecorder()
	srv.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
	if links.refunds != 0 {
		t.Fatalf("expected no provider refund, got %d", links.refunds)
	}
}

func TestRefundSuccess(t *testing.T) {
	completedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fs := fakeStore{
		getSessionFn: func(ctx context.Context, sessionID string) (store.Session, error) {
			return store.Session{SessionID: sessionID, UserID: "user-1", Role: store.RolePrivileged}, nil
		},
		getPaymentFn: func(ctx context.Context, paymentID string) (models.Payment, error) {
			return models.Payment{
				PaymentID:   paymentID,
				Status:      models.PaymentCompleted,
				AmountCents: 2000,
				ProviderRef: "pi_123",
				CompletedAt: &completedAt,
			}, nil
		},
		applyRefundFn: func(ctx context.Context, paymentID string, amountCents int64, now time.Time) (models.Payment, error) {
			return models.Payment{PaymentID: paymentID, Status: models.PaymentRefunded, RefundAmountCents: amountCents}, nil
		},
	}
	h, _, links := newTestHandler(fs)
	srv := AuthMiddleware(fs, h.Routes())

	body, _ := json.Marshal(map[string]int64{"amount_cents": 2000})
	req := httptest.NewRequest(http.MethodPost, "/api/payments/"+testPaymentID+"/refund", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer session-1")
	resp := httptest.NewRecorder()
	srv.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if links.refunds != 1 {
		t.Fatalf("expected one provider refund, got %d", links.refunds)
	}
}

func TestInboundSMSWebhookAlwaysAnswersTwiML(t *testing.T) {
	fs := fakeStore{}
	sms := &stubSMS{}
	links := &stubLinks{}
	orch := automation.New(fs, sms, links, provider.Capabilities{SMSConfigured: true, PaymentsConfigured: true})
	wh := NewWebhooks(fs, orch, WebhookConfig{})

	form := url.Values{}
	form.Set("From", "+12125550144")
	form.Set("Body", "is my car ready")
	form.Set("MessageSid", "SM123")
	req := httptest.NewRequest(http.MethodPost, "/webhooks/sms", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp := httptest.NewRecorder()
	wh.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "<Response></Response>") {
		t.Fatalf("expected empty reply document, got %q", resp.Body.String())
	}
}

func signedStripeRequest(t *testing.T, payload, secret string) *http.Request {
	t.Helper()
	now := time.Now()
	sig := webhook.ComputeSignature(now, []byte(payload), secret)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(payload))
	req.Header.Set("Stripe-Signature", fmt.Sprintf("t=%d,v1=%s", now.Unix(), hex.EncodeToString(sig)))
	return req
}

func TestStripeWebhookIgnoresUnpaidSession(t *testing.T) {
	completions := 0
	fs := fakeStore{
		completeByLinkFn: func(ctx context.Context, linkID, providerRef, ticketID string, now time.Time) (models.Payment, bool, error) {
			completions++
			return models.Payment{PaymentID: "pay-1", TicketID: ticketID, Status: models.PaymentCompleted}, true, nil
		},
	}
	orch := automation.New(fs, &stubSMS{}, &stubLinks{}, provider.Capabilities{})
	wh := NewWebhooks(fs, orch, WebhookConfig{StripeWebhookSecret: "whsec_test"})

	payload := fmt.Sprintf(`{"id":"evt_1","api_version":"2024-06-20","type":"checkout.session.completed","data":{"object":{"id":"cs_1","payment_status":"unpaid","metadata":{"ticket_id":"%s"}}}}`, testTicketID)
	resp := httptest.NewRecorder()
	wh.Routes().ServeHTTP(resp, signedStripeRequest(t, payload, "whsec_test"))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	if completions != 0 {
		t.Fatalf("expected no payment completion for unpaid session, got %d", completions)
	}
}

func TestStripeWebhookCompletesPaidSession(t *testing.T) {
	var completedLink string
	fs := fakeStore{
		completeByLinkFn: func(ctx context.Context, linkID, providerRef, ticketID string, now time.Time) (models.Payment, bool, error) {
			completedLink = linkID
			return models.Payment{PaymentID: "pay-1", TicketID: testTicketID, AmountCents: 4600, Status: models.PaymentCompleted, ProviderRef: providerRef}, true, nil
		},
		getTicketFn: func(ctx context.Context, ticketID string) (models.Ticket, error) {
			return models.Ticket{TicketID: ticketID, TicketNumber: "HAM-001", Phone: "+12125550144"}, nil
		},
	}
	sms := &stubSMS{}
	orch := automation.New(fs, sms, &stubLinks{}, provider.Capabilities{SMSConfigured: true, PaymentsConfigured: true})
	wh := NewWebhooks(fs, orch, WebhookConfig{StripeWebhookSecret: "whsec_test"})

	payload := fmt.Sprintf(`{"id":"evt_2","api_version":"2024-06-20","type":"checkout.session.completed","data":{"object":{"id":"cs_2","payment_status":"paid","payment_intent":"pi_1","metadata":{"ticket_id":"%s"}}}}`, testTicketID)
	resp := httptest.NewRecorder()
	wh.Routes().ServeHTTP(resp, signedStripeRequest(t, payload, "whsec_test"))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	if completedLink != "cs_2" {
		t.Fatalf("expected completion for cs_2, got %q", completedLink)
	}
	if len(sms.sent) != 1 {
		t.Fatalf("expected one confirmation text, got %d", len(sms.sent))
	}
}

func TestStripeWebhookRejectsBadSignature(t *testing.T) {
	fs := fakeStore{}
	orch := automation.New(fs, &stubSMS{}, &stubLinks{}, provider.Capabilities{})
	wh := NewWebhooks(fs, orch, WebhookConfig{StripeWebhookSecret: "whsec_test"})

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(`{"type":"checkout.session.completed"}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=bad")
	resp := httptest.NewRecorder()
	wh.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
}
