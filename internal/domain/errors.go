package domain

import (
	"context"
	"errors"
)

var (
	// Caller errors
	ErrInvalidAmount     = errors.New("amount must be a positive decimal with at most 2 fractional digits")
	ErrSameAccount       = errors.New("cannot transfer to same account")
	ErrAccountNotFound   = errors.New("account not found")
	ErrAccountLocked     = errors.New("account is locked")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidStatus     = errors.New("invalid account status")
	ErrAccountExists     = errors.New("account already exists")

	// Storage errors
	ErrConcurrencyConflict = errors.New("concurrent modification detected")
	ErrPersistenceFailure  = errors.New("persistence failure")
)

// ErrorKind is the stable, caller-facing classification of a ledger error.
type ErrorKind string

const (
	KindNone                ErrorKind = ""
	KindInvalidAmount       ErrorKind = "invalid_amount"
	KindSameAccount         ErrorKind = "same_account"
	KindAccountNotFound     ErrorKind = "account_not_found"
	KindAccountLocked       ErrorKind = "account_locked"
	KindInsufficientFunds   ErrorKind = "insufficient_funds"
	KindInvalidStatus       ErrorKind = "invalid_status"
	KindAccountExists       ErrorKind = "account_exists"
	KindInvalidAccountName  ErrorKind = "invalid_account_name"
	KindConcurrencyConflict ErrorKind = "concurrency_conflict"
	KindPersistenceFailure  ErrorKind = "persistence_failure"
)

// KindOf classifies err. Anything unrecognised, including context
// cancellation and deadline errors, is a persistence failure.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrInvalidAmount):
		return KindInvalidAmount
	case errors.Is(err, ErrSameAccount):
		return KindSameAccount
	case errors.Is(err, ErrAccountNotFound):
		return KindAccountNotFound
	case errors.Is(err, ErrAccountLocked):
		return KindAccountLocked
	case errors.Is(err, ErrInsufficientFunds):
		return KindInsufficientFunds
	case errors.Is(err, ErrInvalidStatus):
		return KindInvalidStatus
	case errors.Is(err, ErrAccountExists):
		return KindAccountExists
	case errors.Is(err, ErrInvalidAccountName):
		return KindInvalidAccountName
	case errors.Is(err, ErrConcurrencyConflict):
		return KindConcurrencyConflict
	default:
		return KindPersistenceFailure
	}
}

// IsCallerError reports whether err was caused by the request itself rather
// than by the infrastructure.
func IsCallerError(err error) bool {
	switch KindOf(err) {
	case KindNone, KindPersistenceFailure, KindConcurrencyConflict:
		return false
	default:
		return true
	}
}

// IsTimeout reports whether err came from an expired or cancelled context.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
