// Package postgres implements the record store on pgx. Every
// read-decide-write path locks the ticket row inside one transaction so a
// staff update and an inbound message can never both pass a payment gate
// against a stale balance.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"valet/internal/ledger"
	"valet/internal/lifecycle"
	"valet/internal/models"
	"valet/internal/pricing"
	"valet/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const ticketNumberPad = 3

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// --- Locations ---

func (s *Store) CreateLocation(ctx context.Context, loc models.Location) (models.Location, error) {
	if loc.Name == "" || loc.Code == "" {
		return models.Location{}, store.ErrInvalidInput
	}
	if err := pricing.ValidateTiers(loc.Tiers); err != nil {
		return models.Location{}, fmt.Errorf("%w: %v", store.ErrInvalidInput, err)
	}
	tiers, err := json.Marshal(loc.Tiers)
	if err != nil {
		return models.Location{}, err
	}

	loc.LocationID = uuid.NewString()
	loc.CreatedAt = time.Now().UTC()
	_, err = s.pool.Exec(ctx, `
		INSERT INTO locations (
			location_id, name, code, tiers, overnight_rate_cents,
			overnight_in_out_allowed, tax_basis_points, rev_share_basis_points, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, loc.LocationID, loc.Name, loc.Code, tiers, loc.OvernightRateCents,
		loc.OvernightInOutAllowed, loc.TaxBasisPoints, loc.RevShareBasisPoints, loc.CreatedAt)
	if err != nil {
		return models.Location{}, err
	}
	return loc, nil
}

func (s *Store) GetLocation(ctx context.Context, locationID string) (models.Location, error) {
	return getLocation(ctx, s.pool, locationID)
}

type queryer interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getLocation(ctx context.Context, q queryer, locationID string) (models.Location, error) {
	var loc models.Location
	var tiers []byte
	row := q.QueryRow(ctx, `
		SELECT location_id, name, code, tiers, overnight_rate_cents,
		       overnight_in_out_allowed, tax_basis_points, rev_share_basis_points, created_at
		FROM locations
		WHERE location_id = $1
	`, locationID)
	if err := row.Scan(&loc.LocationID, &loc.Name, &loc.Code, &tiers, &loc.OvernightRateCents,
		&loc.OvernightInOutAllowed, &loc.TaxBasisPoints, &loc.RevShareBasisPoints, &loc.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Location{}, store.ErrLocationNotFound
		}
		return models.Location{}, err
	}
	if len(tiers) > 0 {
		if err := json.Unmarshal(tiers, &loc.Tiers); err != nil {
			return models.Location{}, err
		}
	}
	return loc, nil
}

func (s *Store) ListLocations(ctx context.Context) ([]models.Location, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT location_id, name, code, tiers, overnight_rate_cents,
		       overnight_in_out_allowed, tax_basis_points, rev_share_basis_points, created_at
		FROM locations
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var locations []models.Location
	for rows.Next() {
		var loc models.Location
		var tiers []byte
		if err := rows.Scan(&loc.LocationID, &loc.Name, &loc.Code, &tiers, &loc.OvernightRateCents,
			&loc.OvernightInOutAllowed, &loc.TaxBasisPoints, &loc.RevShareBasisPoints, &loc.CreatedAt); err != nil {
			return nil, err
		}
		if len(tiers) > 0 {
			if err := json.Unmarshal(tiers, &loc.Tiers); err != nil {
				return nil, err
			}
		}
		locations = append(locations, loc)
	}
	return locations, rows.Err()
}

// --- Tickets ---

func (s *Store) CreateTicket(ctx context.Context, input store.CreateTicketInput) (models.Ticket, bool, error) {
	if input.RateType != models.RateHourly && input.RateType != models.RateOvernight {
		return models.Ticket{}, false, store.ErrInvalidInput
	}
	// Prepaid durations are exclusive to their rate type.
	if input.RateType == models.RateHourly && input.DurationDays != nil {
		return models.Ticket{}, false, store.ErrInvalidInput
	}
	if input.RateType == models.RateOvernight && input.DurationHours != nil {
		return models.Ticket{}, false, store.ErrInvalidInput
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Ticket{}, false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if input.RequestID != "" {
		existing, found, findErr := findTicketByRequestID(ctx, tx, input.RequestID)
		if findErr != nil {
			err = findErr
			return models.Ticket{}, false, err
		}
		if found {
			if err = tx.Commit(ctx); err != nil {
				return models.Ticket{}, false, err
			}
			return existing, false, nil
		}
	}

	loc, err := getLocation(ctx, tx, input.LocationID)
	if err != nil {
		return models.Ticket{}, false, err
	}

	seq, err := nextTicketNumber(ctx, tx, loc.LocationID)
	if err != nil {
		return models.Ticket{}, false, err
	}

	checkedInAt := input.CheckedInAt
	if checkedInAt.IsZero() {
		checkedInAt = time.Now().UTC()
	}
	ticket := models.Ticket{
		TicketID:      uuid.NewString(),
		TicketNumber:  fmt.Sprintf("%s-%0*d", loc.Code, ticketNumberPad, seq),
		LocationID:    loc.LocationID,
		RateType:      input.RateType,
		Status:        models.StatusCheckedIn,
		VehicleState:  models.VehicleWithUs,
		WillReturn:    models.WillReturnUnknown,
		Phone:         input.Phone,
		VehicleDesc:   input.VehicleDesc,
		CheckedInAt:   checkedInAt,
		DurationHours: input.DurationHours,
		DurationDays:  input.DurationDays,
		CreatedAt:     time.Now().UTC(),
		RequestID:     input.RequestID,
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO tickets (
			ticket_id, ticket_number, request_id, location_id, rate_type, status,
			vehicle_state, will_return, phone, vehicle_desc, checked_in_at,
			duration_hours, duration_days, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`, ticket.TicketID, ticket.TicketNumber, nullIfEmpty(ticket.RequestID), ticket.LocationID,
		ticket.RateType, ticket.Status, ticket.VehicleState, ticket.WillReturn,
		nullIfEmpty(ticket.Phone), nullIfEmpty(ticket.VehicleDesc), ticket.CheckedInAt,
		ticket.DurationHours, ticket.DurationDays, ticket.CreatedAt)
	if err != nil {
		return models.Ticket{}, false, err
	}

	if err = appendAudit(ctx, tx, models.AuditEntry{
		AuditID:   uuid.NewString(),
		TicketID:  ticket.TicketID,
		Action:    "ticket.created",
		Details:   diffJSON(map[string][2]string{"status": {"", ticket.Status}, "ticket_number": {"", ticket.TicketNumber}}),
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		return models.Ticket{}, false, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.Ticket{}, false, err
	}
	return ticket, true, nil
}

func nextTicketNumber(ctx context.Context, tx pgx.Tx, locationID string) (int, error) {
	var seq int
	row := tx.QueryRow(ctx, `
		INSERT INTO ticket_counters (location_id, seq)
		VALUES ($1, 1)
		ON CONFLICT (location_id) DO UPDATE SET seq = ticket_counters.seq + 1
		RETURNING seq
	`, locationID)
	if err := row.Scan(&seq); err != nil {
		return 0, err
	}
	return seq, nil
}

func findTicketByRequestID(ctx context.Context, tx pgx.Tx, requestID string) (models.Ticket, bool, error) {
	ticket, err := scanTicket(tx.QueryRow(ctx, selectTicket+` WHERE request_id = $1`, requestID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Ticket{}, false, nil
		}
		return models.Ticket{}, false, err
	}
	return ticket, true, nil
}

const selectTicket = `
	SELECT ticket_id, ticket_number, request_id, location_id, rate_type, status,
	       vehicle_state, will_return, phone, vehicle_desc, checked_in_at,
	       checked_out_at, duration_hours, duration_days, created_at
	FROM tickets`

func scanTicket(row pgx.Row) (models.Ticket, error) {
	var t models.Ticket
	var requestID, phone, vehicleDesc sql.NullString
	var checkedOutAt sql.NullTime
	var durationHours, durationDays sql.NullInt64
	err := row.Scan(&t.TicketID, &t.TicketNumber, &requestID, &t.LocationID, &t.RateType,
		&t.Status, &t.VehicleState, &t.WillReturn, &phone, &vehicleDesc, &t.CheckedInAt,
		&checkedOutAt, &durationHours, &durationDays, &t.CreatedAt)
	if err != nil {
		return models.Ticket{}, err
	}
	t.RequestID = requestID.String
	t.Phone = phone.String
	t.VehicleDesc = vehicleDesc.String
	t.CheckedOutAt = nullTimePtr(checkedOutAt)
	t.DurationHours = nullIntPtr(durationHours)
	t.DurationDays = nullIntPtr(durationDays)
	return t, nil
}

func (s *Store) GetTicket(ctx context.Context, ticketID string) (models.Ticket, error) {
	ticket, err := scanTicket(s.pool.QueryRow(ctx, selectTicket+` WHERE ticket_id = $1`, ticketID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Ticket{}, store.ErrTicketNotFound
		}
		return models.Ticket{}, err
	}
	return ticket, nil
}

func (s *Store) ListTickets(ctx context.Context, filter store.TicketFilter) ([]models.Ticket, error) {
	query := selectTicket + ` WHERE 1=1`
	var args []any
	if filter.LocationID != "" {
		args = append(args, filter.LocationID)
		query += fmt.Sprintf(" AND location_id = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.VehicleState != "" {
		args = append(args, filter.VehicleState)
		query += fmt.Sprintf(" AND vehicle_state = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []models.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}
	return tickets, rows.Err()
}

// UpdateTicket applies a staff or automation mutation under a row lock,
// re-pricing the ticket and re-checking the payment gates against the
// balance inside the same transaction. The audit entry records the diff of
// every changed field.
func (s *Store) UpdateTicket(ctx context.Context, input store.UpdateTicketInput) (models.Ticket, error) {
	now := input.OccurredAt
	if now.IsZero() {
		now = time.Now().UTC()
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Ticket{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	before, err := scanTicket(tx.QueryRow(ctx, selectTicket+` WHERE ticket_id = $1 FOR UPDATE`, input.TicketID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrTicketNotFound
		}
		return models.Ticket{}, err
	}

	after := before
	if input.LocationID != nil && *input.LocationID != after.LocationID {
		if _, err = getLocation(ctx, tx, *input.LocationID); err != nil {
			return models.Ticket{}, err
		}
		after.LocationID = *input.LocationID
	}
	if input.DurationHours != nil {
		if after.RateType != models.RateHourly {
			err = store.ErrInvalidInput
			return models.Ticket{}, err
		}
		after.DurationHours = input.DurationHours
	}
	if input.DurationDays != nil {
		if after.RateType != models.RateOvernight {
			err = store.ErrInvalidInput
			return models.Ticket{}, err
		}
		after.DurationDays = input.DurationDays
	}
	if input.WillReturn != nil {
		switch *input.WillReturn {
		case models.WillReturnUnknown, models.WillReturnYes, models.WillReturnNo:
			after.WillReturn = *input.WillReturn
		default:
			err = store.ErrInvalidInput
			return models.Ticket{}, err
		}
	}
	if input.CheckedOutAt != nil {
		after.CheckedOutAt = input.CheckedOutAt
	}

	loc, err := getLocation(ctx, tx, after.LocationID)
	if err != nil {
		return models.Ticket{}, err
	}
	payments, err := listPayments(ctx, tx, after.TicketID)
	if err != nil {
		return models.Ticket{}, err
	}
	projected := pricing.Charge(pricing.ScheduleFor(loc), pricing.BillFor(after), now)
	outstanding := ledger.Outstanding(projected, payments)

	if input.Status != nil {
		if err = lifecycle.CheckStatusTransition(after.Status, *input.Status, outstanding); err != nil {
			return models.Ticket{}, err
		}
		after.Status = *input.Status
	}
	if input.VehicleState != nil {
		inOut := lifecycle.InOutAllowed(loc, after, now)
		if err = lifecycle.CheckVehicleTransition(after.VehicleState, *input.VehicleState, inOut, outstanding); err != nil {
			return models.Ticket{}, err
		}
		after.VehicleState = *input.VehicleState
		after.Status = lifecycle.StatusAfterVehicleChange(after.Status, after.VehicleState)
	}

	_, err = tx.Exec(ctx, `
		UPDATE tickets SET
			location_id = $2, rate_type = $3, status = $4, vehicle_state = $5,
			will_return = $6, checked_out_at = $7, duration_hours = $8, duration_days = $9
		WHERE ticket_id = $1
	`, after.TicketID, after.LocationID, after.RateType, after.Status, after.VehicleState,
		after.WillReturn, after.CheckedOutAt, after.DurationHours, after.DurationDays)
	if err != nil {
		return models.Ticket{}, err
	}

	if diff := ticketDiff(before, after); len(diff) > 0 {
		if input.Actor != "" {
			diff["actor"] = [2]string{"", input.Actor}
		}
		if err = appendAudit(ctx, tx, models.AuditEntry{
			AuditID:   uuid.NewString(),
			TicketID:  after.TicketID,
			Action:    "ticket.updated",
			Details:   diffJSON(diff),
			CreatedAt: now,
		}); err != nil {
			return models.Ticket{}, err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return models.Ticket{}, err
	}
	return after, nil
}

// DeleteTicket removes a ticket and its payments and messages. Privileged
// staff only; the audit entry is written before the rows go away.
func (s *Store) DeleteTicket(ctx context.Context, ticketID, actor string) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	ticket, err := scanTicket(tx.QueryRow(ctx, selectTicket+` WHERE ticket_id = $1 FOR UPDATE`, ticketID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrTicketNotFound
		}
		return err
	}

	if err = appendAudit(ctx, tx, models.AuditEntry{
		AuditID:   uuid.NewString(),
		TicketID:  ticket.TicketID,
		Action:    "ticket.deleted",
		Details:   diffJSON(map[string][2]string{"status": {ticket.Status, ""}, "actor": {"", actor}}),
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		return err
	}

	for _, stmt := range []string{
		`DELETE FROM messages WHERE ticket_id = $1`,
		`DELETE FROM payments WHERE ticket_id = $1`,
		`DELETE FROM tickets WHERE ticket_id = $1`,
	} {
		if _, err = tx.Exec(ctx, stmt, ticketID); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// --- Open-ticket lookups for inbound messages ---

const openStatuses = `('checked_in','ready_for_pickup')`

func (s *Store) FindOpenTicketByPhone(ctx context.Context, variants []string) (models.Ticket, bool, error) {
	if len(variants) == 0 {
		return models.Ticket{}, false, nil
	}
	row := s.pool.QueryRow(ctx, selectTicket+`
		WHERE status IN `+openStatuses+` AND phone = ANY($1)
		ORDER BY created_at DESC
		LIMIT 1
	`, variants)
	return oneTicket(row)
}

func (s *Store) FindOpenTicketByNumberAndPhone(ctx context.Context, number string, variants []string) (models.Ticket, bool, error) {
	if number == "" || len(variants) == 0 {
		return models.Ticket{}, false, nil
	}
	row := s.pool.QueryRow(ctx, selectTicket+`
		WHERE status IN `+openStatuses+` AND upper(ticket_number) = upper($1) AND phone = ANY($2)
		ORDER BY created_at DESC
		LIMIT 1
	`, number, variants)
	return oneTicket(row)
}

func (s *Store) FindOpenTicketByNumber(ctx context.Context, number string) (models.Ticket, bool, error) {
	if number == "" {
		return models.Ticket{}, false, nil
	}
	row := s.pool.QueryRow(ctx, selectTicket+`
		WHERE status IN `+openStatuses+` AND upper(ticket_number) = upper($1)
		ORDER BY created_at DESC
		LIMIT 1
	`, number)
	return oneTicket(row)
}

func oneTicket(row pgx.Row) (models.Ticket, bool, error) {
	ticket, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Ticket{}, false, nil
		}
		return models.Ticket{}, false, err
	}
	return ticket, true, nil
}

// --- Messages ---

// InsertMessage records a message. Inbound messages carrying a provider SID
// are deduplicated on it so a carrier retry is detected; the second return
// value reports whether the row is new.
func (s *Store) InsertMessage(ctx context.Context, msg models.Message) (models.Message, bool, error) {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO messages (message_id, ticket_id, direction, body, status, reason, provider_sid, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (provider_sid) DO NOTHING
	`, msg.MessageID, msg.TicketID, msg.Direction, msg.Body, msg.Status,
		nullIfEmpty(msg.Reason), nullIfEmpty(msg.ProviderSID), msg.CreatedAt)
	if err != nil {
		return models.Message{}, false, err
	}
	return msg, tag.RowsAffected() == 1, nil
}

func (s *Store) ListMessages(ctx context.Context, ticketID string) ([]models.Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT message_id, ticket_id, direction, body, status, reason, provider_sid, created_at
		FROM messages
		WHERE ticket_id = $1
		ORDER BY created_at ASC
	`, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		var reason, providerSID sql.NullString
		if err := rows.Scan(&m.MessageID, &m.TicketID, &m.Direction, &m.Body, &m.Status, &reason, &providerSID, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Reason = reason.String
		m.ProviderSID = providerSID.String
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// --- Audit ---

func (s *Store) AppendAudit(ctx context.Context, entry models.AuditEntry) error {
	if entry.AuditID == "" {
		entry.AuditID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO audit_log (audit_id, ticket_id, action, details, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, entry.AuditID, nullIfEmpty(entry.TicketID), entry.Action, nullIfEmpty(entry.Details), entry.CreatedAt)
	return err
}

func appendAudit(ctx context.Context, tx pgx.Tx, entry models.AuditEntry) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO audit_log (audit_id, ticket_id, action, details, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, entry.AuditID, nullIfEmpty(entry.TicketID), entry.Action, nullIfEmpty(entry.Details), entry.CreatedAt)
	return err
}

func (s *Store) ListAudit(ctx context.Context, ticketID string) ([]models.AuditEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT audit_id, ticket_id, action, details, created_at
		FROM audit_log
		WHERE ticket_id = $1
		ORDER BY created_at ASC
	`, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		var ticket, details sql.NullString
		if err := rows.Scan(&e.AuditID, &ticket, &e.Action, &details, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.TicketID = ticket.String
		e.Details = details.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// --- Sessions ---

func (s *Store) GetSession(ctx context.Context, sessionID string) (store.Session, error) {
	var session store.Session
	row := s.pool.QueryRow(ctx, `
		SELECT session_id, user_id, role, expires_at
		FROM sessions
		WHERE session_id = $1 AND expires_at > now()
	`, sessionID)
	if err := row.Scan(&session.SessionID, &session.UserID, &session.Role, &session.ExpiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.Session{}, store.ErrSessionNotFound
		}
		return store.Session{}, err
	}
	return session, nil
}

// --- helpers ---

func ticketDiff(before, after models.Ticket) map[string][2]string {
	diff := make(map[string][2]string)
	if before.Status != after.Status {
		diff["status"] = [2]string{before.Status, after.Status}
	}
	if before.VehicleState != after.VehicleState {
		diff["vehicle_state"] = [2]string{before.VehicleState, after.VehicleState}
	}
	if before.WillReturn != after.WillReturn {
		diff["will_return"] = [2]string{before.WillReturn, after.WillReturn}
	}
	if before.LocationID != after.LocationID {
		diff["location_id"] = [2]string{before.LocationID, after.LocationID}
	}
	if intPtrString(before.DurationHours) != intPtrString(after.DurationHours) {
		diff["duration_hours"] = [2]string{intPtrString(before.DurationHours), intPtrString(after.DurationHours)}
	}
	if intPtrString(before.DurationDays) != intPtrString(after.DurationDays) {
		diff["duration_days"] = [2]string{intPtrString(before.DurationDays), intPtrString(after.DurationDays)}
	}
	if timePtrString(before.CheckedOutAt) != timePtrString(after.CheckedOutAt) {
		diff["checked_out_at"] = [2]string{timePtrString(before.CheckedOutAt), timePtrString(after.CheckedOutAt)}
	}
	return diff
}

func diffJSON(diff map[string][2]string) string {
	type change struct {
		Before string `json:"before"`
		After  string `json:"after"`
	}
	changes := make(map[string]change, len(diff))
	for field, pair := range diff {
		changes[field] = change{Before: pair[0], After: pair[1]}
	}
	raw, err := json.Marshal(changes)
	if err != nil {
		return ""
	}
	return string(raw)
}

func intPtrString(v *int) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(*v)
}

func timePtrString(v *time.Time) string {
	if v == nil {
		return ""
	}
	return v.UTC().Format(time.RFC3339)
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullTimePtr(value sql.NullTime) *time.Time {
	if !value.Valid {
		return nil
	}
	t := value.Time
	return &t
}

func nullIntPtr(value sql.NullInt64) *int {
	if !value.Valid {
		return nil
	}
	v := int(value.Int64)
	return &v
}
