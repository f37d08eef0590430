// Package ledger derives paid and outstanding balances from a ticket's
// payment history and applies refunds. Pure: callers load the payments and
// persist the results.
package ledger

import (
	"errors"
	"time"

	"valet/internal/models"
)

var ErrInvalidRefundAmount = errors.New("invalid refund amount")

// AmountPaid sums the requested amounts of completed payments. A partially
// refunded payment still counts in full; a fully refunded one has left the
// completed state and no longer counts.
func AmountPaid(payments []models.Payment) int64 {
	var total int64
	for _, p := range payments {
		if p.Status == models.PaymentCompleted {
			total += p.AmountCents
		}
	}
	return total
}

// Outstanding is the projected charge minus the amount paid, floored at zero.
func Outstanding(projectedCents int64, payments []models.Payment) int64 {
	out := projectedCents - AmountPaid(payments)
	if out < 0 {
		return 0
	}
	return out
}

func IsSettled(projectedCents int64, payments []models.Payment) bool {
	return Outstanding(projectedCents, payments) == 0
}

// ApplyRefund records a refund of amountCents against the payment.
// RefundAmountCents only ever grows; the payment transitions to refunded
// exactly when the full amount has been returned.
func ApplyRefund(p *models.Payment, amountCents int64, now time.Time) error {
	if p.Status != models.PaymentCompleted {
		return ErrInvalidRefundAmount
	}
	if amountCents <= 0 || amountCents > p.AmountCents-p.RefundAmountCents {
		return ErrInvalidRefundAmount
	}
	p.RefundAmountCents += amountCents
	if p.RefundedAt == nil {
		t := now
		p.RefundedAt = &t
	}
	if p.RefundAmountCents == p.AmountCents {
		p.Status = models.PaymentRefunded
	}
	return nil
}
