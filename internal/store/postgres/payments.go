package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"valet/internal/ledger"
	"valet/internal/models"
	"valet/internal/pricing"
	"valet/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const selectPayment = `
	SELECT payment_id, ticket_id, amount_cents, status, link_id, link_url,
	       provider_ref, refund_amount_cents, refunded_at, created_at, completed_at
	FROM payments`

func scanPayment(row pgx.Row) (models.Payment, error) {
	var p models.Payment
	var linkID, linkURL, providerRef sql.NullString
	var refundedAt, completedAt sql.NullTime
	err := row.Scan(&p.PaymentID, &p.TicketID, &p.AmountCents, &p.Status, &linkID, &linkURL,
		&providerRef, &p.RefundAmountCents, &refundedAt, &p.CreatedAt, &completedAt)
	if err != nil {
		return models.Payment{}, err
	}
	p.LinkID = linkID.String
	p.LinkURL = linkURL.String
	p.ProviderRef = providerRef.String
	p.RefundedAt = nullTimePtr(refundedAt)
	p.CompletedAt = nullTimePtr(completedAt)
	return p, nil
}

func listPayments(ctx context.Context, q querier, ticketID string) ([]models.Payment, error) {
	rows, err := q.Query(ctx, selectPayment+` WHERE ticket_id = $1 ORDER BY created_at ASC`, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []models.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}
	return payments, rows.Err()
}

func (s *Store) ListPayments(ctx context.Context, ticketID string) ([]models.Payment, error) {
	return listPayments(ctx, s.pool, ticketID)
}

// Balance prices the ticket as of now and nets completed payments against it.
func (s *Store) Balance(ctx context.Context, ticketID string, now time.Time) (store.Balance, error) {
	ticket, err := s.GetTicket(ctx, ticketID)
	if err != nil {
		return store.Balance{}, err
	}
	loc, err := s.GetLocation(ctx, ticket.LocationID)
	if err != nil {
		return store.Balance{}, err
	}
	payments, err := listPayments(ctx, s.pool, ticketID)
	if err != nil {
		return store.Balance{}, err
	}
	projected := pricing.Charge(pricing.ScheduleFor(loc), pricing.BillFor(ticket), now)
	paid := ledger.AmountPaid(payments)
	return store.Balance{
		ProjectedCents:   projected,
		PaidCents:        paid,
		OutstandingCents: ledger.Outstanding(projected, payments),
	}, nil
}

// GetOpenPayment returns the most recent payment still waiting on the payer,
// so a repeated pickup text can re-send the existing link instead of minting
// a new one.
func (s *Store) GetOpenPayment(ctx context.Context, ticketID string) (models.Payment, bool, error) {
	row := s.pool.QueryRow(ctx, selectPayment+`
		WHERE ticket_id = $1 AND status IN ('pending','payment_link_sent')
		ORDER BY created_at DESC
		LIMIT 1
	`, ticketID)
	payment, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Payment{}, false, nil
		}
		return models.Payment{}, false, err
	}
	return payment, true, nil
}

func (s *Store) CreatePendingPayment(ctx context.Context, ticketID string, amountCents int64) (models.Payment, error) {
	if amountCents <= 0 {
		return models.Payment{}, store.ErrInvalidInput
	}
	if _, err := s.GetTicket(ctx, ticketID); err != nil {
		return models.Payment{}, err
	}
	payment := models.Payment{
		PaymentID:   uuid.NewString(),
		TicketID:    ticketID,
		AmountCents: amountCents,
		Status:      models.PaymentPending,
		CreatedAt:   time.Now().UTC(),
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO payments (payment_id, ticket_id, amount_cents, status, refund_amount_cents, created_at)
		VALUES ($1,$2,$3,$4,0,$5)
	`, payment.PaymentID, payment.TicketID, payment.AmountCents, payment.Status, payment.CreatedAt)
	if err != nil {
		return models.Payment{}, err
	}
	return payment, nil
}

func (s *Store) MarkPaymentLinkSent(ctx context.Context, paymentID, linkID, linkURL string) (models.Payment, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE payments
		SET status = $2, link_id = $3, link_url = $4
		WHERE payment_id = $1 AND status = $5
		RETURNING payment_id
	`, paymentID, models.PaymentLinkSent, linkID, linkURL, models.PaymentPending)
	var id string
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Payment{}, store.ErrPaymentNotFound
		}
		return models.Payment{}, err
	}
	return s.GetPayment(ctx, paymentID)
}

func (s *Store) MarkPaymentFailed(ctx context.Context, paymentID, reason string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE payments SET status = $2 WHERE payment_id = $1
	`, paymentID, models.PaymentFailed)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrPaymentNotFound
	}
	return s.AppendAudit(ctx, models.AuditEntry{
		Action:  "payment.failed",
		Details: diffJSON(map[string][2]string{"payment_id": {"", paymentID}, "reason": {"", reason}}),
	})
}

// CompletePaymentByLink settles a payment when the processor confirms it.
// The link ID is matched first; if the confirmation carries a link we never
// recorded, the most recent open payment for the ticket absorbs it rather
// than losing the money. A confirmation replay returns the already-completed
// payment with applied=false.
func (s *Store) CompletePaymentByLink(ctx context.Context, linkID, providerRef, ticketID string, now time.Time) (models.Payment, bool, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Payment{}, false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	payment, err := scanPayment(tx.QueryRow(ctx, selectPayment+` WHERE link_id = $1 FOR UPDATE`, linkID))
	if errors.Is(err, pgx.ErrNoRows) && ticketID != "" {
		payment, err = scanPayment(tx.QueryRow(ctx, selectPayment+`
			WHERE ticket_id = $1 AND status IN ('pending','payment_link_sent')
			ORDER BY created_at DESC
			LIMIT 1
			FOR UPDATE
		`, ticketID))
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrPaymentNotFound
		}
		return models.Payment{}, false, err
	}

	if payment.Status == models.PaymentCompleted {
		if err = tx.Commit(ctx); err != nil {
			return models.Payment{}, false, err
		}
		return payment, false, nil
	}

	payment.Status = models.PaymentCompleted
	payment.ProviderRef = providerRef
	payment.CompletedAt = &now
	_, err = tx.Exec(ctx, `
		UPDATE payments SET status = $2, provider_ref = $3, completed_at = $4
		WHERE payment_id = $1
	`, payment.PaymentID, payment.Status, nullIfEmpty(payment.ProviderRef), payment.CompletedAt)
	if err != nil {
		return models.Payment{}, false, err
	}

	if err = appendAudit(ctx, tx, models.AuditEntry{
		AuditID:   uuid.NewString(),
		TicketID:  payment.TicketID,
		Action:    "payment.completed",
		Details:   diffJSON(map[string][2]string{"payment_id": {"", payment.PaymentID}, "provider_ref": {"", providerRef}}),
		CreatedAt: now,
	}); err != nil {
		return models.Payment{}, false, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.Payment{}, false, err
	}
	return payment, true, nil
}

// ApplyRefund records a refund against a completed payment under a row lock.
// The processor call happens before this; a failure here leaves the ledger
// behind the processor and is surfaced to the caller.
func (s *Store) ApplyRefund(ctx context.Context, paymentID string, amountCents int64, now time.Time) (models.Payment, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Payment{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	payment, err := scanPayment(tx.QueryRow(ctx, selectPayment+` WHERE payment_id = $1 FOR UPDATE`, paymentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrPaymentNotFound
		}
		return models.Payment{}, err
	}

	if err = ledger.ApplyRefund(&payment, amountCents, now); err != nil {
		return models.Payment{}, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE payments SET status = $2, refund_amount_cents = $3, refunded_at = $4
		WHERE payment_id = $1
	`, payment.PaymentID, payment.Status, payment.RefundAmountCents, payment.RefundedAt)
	if err != nil {
		return models.Payment{}, err
	}

	if err = appendAudit(ctx, tx, models.AuditEntry{
		AuditID:   uuid.NewString(),
		TicketID:  payment.TicketID,
		Action:    "payment.refunded",
		Details:   diffJSON(map[string][2]string{"payment_id": {"", payment.PaymentID}, "refund_amount_cents": {"", fmtCents(amountCents)}}),
		CreatedAt: now,
	}); err != nil {
		return models.Payment{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.Payment{}, err
	}
	return payment, nil
}

func (s *Store) GetPayment(ctx context.Context, paymentID string) (models.Payment, error) {
	payment, err := scanPayment(s.pool.QueryRow(ctx, selectPayment+` WHERE payment_id = $1`, paymentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Payment{}, store.ErrPaymentNotFound
		}
		return models.Payment{}, err
	}
	return payment, nil
}

func fmtCents(v int64) string {
	return strconv.FormatInt(v, 10)
}
