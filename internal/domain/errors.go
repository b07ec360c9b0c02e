package domain

import "errors"

var (
	ErrNoDepth            = errors.New("no depth data")
	ErrStalePrice         = errors.New("price data stale")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrVenueUnavailable   = errors.New("venue unavailable")
	ErrOrderNotFound      = errors.New("order not found")
	ErrOutcomeNotFound    = errors.New("outcome not found")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidDepth       = errors.New("invalid depth snapshot")
	ErrTooManyOrders      = errors.New("resting order limit reached")
	ErrCompensationFailed = errors.New("compensation leg failed")
)
