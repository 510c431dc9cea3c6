package models

import "errors"

// Domain failure taxonomy. Every mutating operation checks permissions and
// preconditions before touching state, so none of these leave partial effects.
var (
	ErrPermissionDenied  = errors.New("permission denied")
	ErrNotFound          = errors.New("data feed not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrInvalidOrdering   = errors.New("timestamp older than last accepted write")
	ErrHalted            = errors.New("data feed is halted")
	ErrInvalidTimeframe  = errors.New("timeframe not whitelisted")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidInput      = errors.New("invalid input")
	ErrFeeCooldown       = errors.New("usage fee updated too recently")
)
