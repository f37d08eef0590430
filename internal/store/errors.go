package store

import "errors"

var (
	ErrLocationNotFound = errors.New("location not found")
	ErrTicketNotFound   = errors.New("ticket not found")
	ErrPaymentNotFound  = errors.New("payment not found")
	ErrSessionNotFound  = errors.New("session not found")
	ErrInvalidInput     = errors.New("invalid input")
)
