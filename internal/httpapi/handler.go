package httpapi

import (
	"encoding/json"
	"errors"
	"expvar"
	"net/http"
	"strings"
	"time"

	"valet/internal/automation"
	"valet/internal/ledger"
	"valet/internal/lifecycle"
	"valet/internal/models"
	"valet/internal/phone"
	"valet/internal/provider"
	"valet/internal/store"

	"github.com/google/uuid"
)

type Handler struct {
	store store.Store
	links provider.PaymentLinks
	caps  provider.Capabilities
	orch  *automation.Orchestrator
}

func NewHandler(st store.Store, links provider.PaymentLinks, caps provider.Capabilities, orch *automation.Orchestrator) *Handler {
	return &Handler{store: st, links: links, caps: caps, orch: orch}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.Handle("/debug/vars", expvar.Handler())
	mux.HandleFunc("/api/locations", h.handleLocations)
	mux.HandleFunc("/api/tickets", h.handleTickets)
	mux.HandleFunc("/api/tickets/", h.handleTicketSubpaths)
	mux.HandleFunc("/api/payments/", h.handlePaymentSubpaths)
	return mux
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// --- Locations ---

type createLocationRequest struct {
	Name                  string       `json:"name"`
	Code                  string       `json:"code"`
	Tiers                 []tierInput  `json:"tiers"`
	OvernightRateCents    int64        `json:"overnight_rate_cents"`
	OvernightInOutAllowed bool         `json:"overnight_in_out_allowed"`
	TaxBasisPoints        int          `json:"tax_basis_points"`
	RevShareBasisPoints   int          `json:"rev_share_basis_points"`
}

type tierInput struct {
	MaxHours     *int  `json:"max_hours"`
	RateCents    int64 `json:"rate_cents"`
	InOutAllowed bool  `json:"in_out_allowed"`
}

func (h *Handler) handleLocations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		locations, err := h.store.ListLocations(r.Context())
		if err != nil {
			status, code, msg := mapError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, locations)
	case http.MethodPost:
		if !requirePrivileged(w, r) {
			return
		}
		var req createLocationRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		req.Code = strings.ToUpper(strings.TrimSpace(req.Code))
		if req.Name == "" || req.Code == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "name and code are required")
			return
		}
		tiers := make([]models.PricingTier, 0, len(req.Tiers))
		for _, t := range req.Tiers {
			tiers = append(tiers, models.PricingTier{MaxHours: t.MaxHours, RateCents: t.RateCents, InOutAllowed: t.InOutAllowed})
		}
		loc, err := h.store.CreateLocation(r.Context(), models.Location{
			Name:                  req.Name,
			Code:                  req.Code,
			Tiers:                 tiers,
			OvernightRateCents:    req.OvernightRateCents,
			OvernightInOutAllowed: req.OvernightInOutAllowed,
			TaxBasisPoints:        req.TaxBasisPoints,
			RevShareBasisPoints:   req.RevShareBasisPoints,
		})
		if err != nil {
			status, code, msg := mapError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusCreated, loc)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// --- Tickets ---

type createTicketRequest struct {
	RequestID     string `json:"request_id"`
	LocationID    string `json:"location_id"`
	RateType      string `json:"rate_type"`
	Phone         string `json:"phone"`
	VehicleDesc   string `json:"vehicle_desc"`
	DurationHours *int   `json:"duration_hours"`
	DurationDays  *int   `json:"duration_days"`
}

func (h *Handler) handleTickets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		filter := store.TicketFilter{
			LocationID:   strings.TrimSpace(r.URL.Query().Get("location_id")),
			Status:       strings.TrimSpace(r.URL.Query().Get("status")),
			VehicleState: strings.TrimSpace(r.URL.Query().Get("vehicle_state")),
		}
		tickets, err := h.store.ListTickets(r.Context(), filter)
		if err != nil {
			status, code, msg := mapError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, tickets)
	case http.MethodPost:
		h.handleCreateTicket(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleCreateTicket(w http.ResponseWriter, r *http.Request) {
	var req createTicketRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.RequestID = strings.TrimSpace(req.RequestID)
	req.LocationID = strings.TrimSpace(req.LocationID)
	req.RateType = strings.TrimSpace(req.RateType)
	req.Phone = strings.TrimSpace(req.Phone)
	req.VehicleDesc = strings.TrimSpace(req.VehicleDesc)

	if req.LocationID == "" || req.RateType == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "location_id and rate_type are required")
		return
	}
	if !isValidUUID(req.LocationID) {
		writeError(w, http.StatusBadRequest, "invalid_request", "location_id must be a UUID")
		return
	}
	if req.RequestID != "" && !isValidUUID(req.RequestID) {
		writeError(w, http.StatusBadRequest, "invalid_request", "request_id must be a UUID when provided")
		return
	}

	canonicalPhone := ""
	if req.Phone != "" {
		canonicalPhone = phone.Canonical(req.Phone)
	}

	ticket, created, err := h.store.CreateTicket(r.Context(), store.CreateTicketInput{
		RequestID:     req.RequestID,
		LocationID:    req.LocationID,
		RateType:      req.RateType,
		Phone:         canonicalPhone,
		VehicleDesc:   req.VehicleDesc,
		DurationHours: req.DurationHours,
		DurationDays:  req.DurationDays,
	})
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}

	if created && ticket.Phone != "" {
		if loc, err := h.store.GetLocation(r.Context(), ticket.LocationID); err == nil {
			h.orch.SendWelcome(r.Context(), ticket, loc)
		}
	}
	writeJSON(w, http.StatusOK, ticket)
}

func (h *Handler) handleTicketSubpaths(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/tickets/"), "/")
	parts := strings.Split(path, "/")

	ticketID := parts[0]
	if !isValidUUID(ticketID) {
		writeError(w, http.StatusBadRequest, "invalid_request", "ticket_id must be a UUID")
		return
	}

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			h.handleGetTicket(w, r, ticketID)
		case http.MethodPatch:
			h.handlePatchTicket(w, r, ticketID)
		case http.MethodDelete:
			h.handleDeleteTicket(w, r, ticketID)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	if len(parts) != 2 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	switch parts[1] {
	case "balance":
		h.handleBalance(w, r, ticketID)
	case "messages":
		h.handleListMessages(w, r, ticketID)
	case "audit":
		h.handleListAudit(w, r, ticketID)
	case "payments":
		h.handleListPayments(w, r, ticketID)
	case "payment-link":
		h.handleCreatePaymentLink(w, r, ticketID)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleGetTicket(w http.ResponseWriter, r *http.Request, ticketID string) {
	ticket, err := h.store.GetTicket(r.Context(), ticketID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

type patchTicketRequest struct {
	Status        *string `json:"status"`
	VehicleState  *string `json:"vehicle_state"`
	WillReturn    *string `json:"will_return"`
	LocationID    *string `json:"location_id"`
	DurationHours *int    `json:"duration_hours"`
	DurationDays  *int    `json:"duration_days"`
	CheckedOutAt  *string `json:"checked_out_at"`
}

func (h *Handler) handlePatchTicket(w http.ResponseWriter, r *http.Request, ticketID string) {
	var req patchTicketRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.LocationID != nil && !isValidUUID(*req.LocationID) {
		writeError(w, http.StatusBadRequest, "invalid_request", "location_id must be a UUID")
		return
	}

	input := store.UpdateTicketInput{
		TicketID:      ticketID,
		Status:        req.Status,
		VehicleState:  req.VehicleState,
		WillReturn:    req.WillReturn,
		LocationID:    req.LocationID,
		DurationHours: req.DurationHours,
		DurationDays:  req.DurationDays,
		Actor:         actorFromRequest(r),
		OccurredAt:    time.Now().UTC(),
	}
	if req.CheckedOutAt != nil {
		parsed, err := time.Parse(time.RFC3339, *req.CheckedOutAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "checked_out_at must be RFC3339 timestamp")
			return
		}
		input.CheckedOutAt = &parsed
	}

	ticket, err := h.store.UpdateTicket(r.Context(), input)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

func (h *Handler) handleDeleteTicket(w http.ResponseWriter, r *http.Request, ticketID string) {
	if !requirePrivileged(w, r) {
		return
	}
	if err := h.store.DeleteTicket(r.Context(), ticketID, actorFromRequest(r)); err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleBalance(w http.ResponseWriter, r *http.Request, ticketID string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	balance, err := h.store.Balance(r.Context(), ticketID, time.Now().UTC())
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, balance)
}

func (h *Handler) handleListMessages(w http.ResponseWriter, r *http.Request, ticketID string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	messages, err := h.store.ListMessages(r.Context(), ticketID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

func (h *Handler) handleListAudit(w http.ResponseWriter, r *http.Request, ticketID string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	entries, err := h.store.ListAudit(r.Context(), ticketID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) handleListPayments(w http.ResponseWriter, r *http.Request, ticketID string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	payments, err := h.store.ListPayments(r.Context(), ticketID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, payments)
}

// handleCreatePaymentLink mints a payment link for a ticket's outstanding
// balance on staff request. Unlike the message-driven path, provider errors
// surface to the caller here.
func (h *Handler) handleCreatePaymentLink(w http.ResponseWriter, r *http.Request, ticketID string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !h.caps.CanCreatePaymentLinks() {
		writeError(w, http.StatusServiceUnavailable, "provider_unavailable", "payment provider is not configured")
		return
	}

	ticket, err := h.store.GetTicket(r.Context(), ticketID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	balance, err := h.store.Balance(r.Context(), ticketID, time.Now().UTC())
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	if balance.Settled() {
		writeError(w, http.StatusConflict, "no_balance", "ticket has no outstanding balance")
		return
	}

	if open, found, err := h.store.GetOpenPayment(r.Context(), ticketID); err == nil && found &&
		open.Status == models.PaymentLinkSent && open.AmountCents == balance.OutstandingCents {
		writeJSON(w, http.StatusOK, open)
		return
	}

	payment, err := h.store.CreatePendingPayment(r.Context(), ticketID, balance.OutstandingCents)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	link, err := h.links.CreateLink(r.Context(), provider.LinkRequest{
		TicketID:     ticket.TicketID,
		TicketNumber: ticket.TicketNumber,
		LocationID:   ticket.LocationID,
		AmountCents:  balance.OutstandingCents,
		Description:  "Valet parking ticket " + ticket.TicketNumber,
	})
	if err != nil {
		_ = h.store.MarkPaymentFailed(r.Context(), payment.PaymentID, err.Error())
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	payment, err = h.store.MarkPaymentLinkSent(r.Context(), payment.PaymentID, link.ID, link.URL)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusCreated, payment)
}

// --- Payments ---

type refundRequest struct {
	AmountCents int64 `json:"amount_cents"`
}

func (h *Handler) handlePaymentSubpaths(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/payments/"), "/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[1] != "refund" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !requirePrivileged(w, r) {
		return
	}

	paymentID := parts[0]
	if !isValidUUID(paymentID) {
		writeError(w, http.StatusBadRequest, "invalid_request", "payment_id must be a UUID")
		return
	}
	var req refundRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.AmountCents <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "amount_cents must be positive")
		return
	}

	payment, err := h.store.GetPayment(r.Context(), paymentID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}

	// Validate against a copy before touching the processor, so an invalid
	// amount never reaches it.
	now := time.Now().UTC()
	check := payment
	if err := ledger.ApplyRefund(&check, req.AmountCents, now); err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}

	if err := h.links.Refund(r.Context(), payment.ProviderRef, req.AmountCents); err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	payment, err = h.store.ApplyRefund(r.Context(), paymentID, req.AmountCents, now)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

// --- shared helpers ---

func decodeJSON(w http.ResponseWriter, r *http.Request, target interface{}) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return false
	}
	return true
}

func isValidUUID(value string) bool {
	_, err := uuid.Parse(value)
	return err == nil
}

func mapError(err error) (int, string, string) {
	var paymentRequired *lifecycle.PaymentRequiredError
	var departureBlocked *lifecycle.DepartureBlockedError
	switch {
	case errors.As(err, &paymentRequired):
		return http.StatusConflict, "payment_required", paymentRequired.Error()
	case errors.As(err, &departureBlocked):
		return http.StatusConflict, "departure_blocked", departureBlocked.Error()
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition", "ticket state does not allow this change"
	case errors.Is(err, ledger.ErrInvalidRefundAmount):
		return http.StatusBadRequest, "invalid_refund", "refund amount is not valid for this payment"
	case errors.Is(err, store.ErrLocationNotFound):
		return http.StatusNotFound, "location_not_found", "location not found"
	case errors.Is(err, store.ErrTicketNotFound):
		return http.StatusNotFound, "ticket_not_found", "ticket not found"
	case errors.Is(err, store.ErrPaymentNotFound):
		return http.StatusNotFound, "payment_not_found", "payment not found"
	case errors.Is(err, store.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_request", "request is not valid"
	case errors.Is(err, provider.ErrUnavailable):
		return http.StatusServiceUnavailable, "provider_unavailable", "provider is not configured"
	default:
		return http.StatusInternalServerError, "internal_error", "internal server error"
	}
}

type errorResponse struct {
	Error responseError `json:"error"`
}

type responseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: responseError{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}
