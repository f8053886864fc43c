package ledger

import "errors"

// Error kinds shared across the token layer. Services downstream of the
// ledger (governance, rewards, station, escrow) reuse these where the failure
// mode is the same so callers can map them uniformly.
var (
	ErrUnauthorized        = errors.New("caller is not authorized")
	ErrPaused              = errors.New("ledger is paused")
	ErrFrozen              = errors.New("account is frozen")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrAlreadyActive       = errors.New("account already active")
)
