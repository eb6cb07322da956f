package domain

import "errors"

var (
	ErrInvalidRequest     = errors.New("invalid request")
	ErrUnknownReference   = errors.New("unknown transaction reference")
	ErrDuplicateReference = errors.New("duplicate transaction reference")
	ErrInvalidTransition  = errors.New("invalid status transition")

	// store level
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrConflict            = errors.New("transaction status changed concurrently")

	// gateway level
	ErrGatewayRejected    = errors.New("gateway rejected request")
	ErrGatewayUnavailable = errors.New("gateway unavailable")
	ErrGatewayError       = errors.New("gateway error")
)
