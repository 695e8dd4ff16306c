package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorKind
	}{
		{nil, KindNone},
		{ErrInvalidAmount, KindInvalidAmount},
		{fmt.Errorf("%w: too many digits", ErrInvalidAmount), KindInvalidAmount},
		{ErrSameAccount, KindSameAccount},
		{ErrAccountNotFound, KindAccountNotFound},
		{ErrAccountLocked, KindAccountLocked},
		{ErrInsufficientFunds, KindInsufficientFunds},
		{ErrConcurrencyConflict, KindConcurrencyConflict},
		{fmt.Errorf("%w: connection refused", ErrPersistenceFailure), KindPersistenceFailure},
		{context.DeadlineExceeded, KindPersistenceFailure},
		{errors.New("something unexpected"), KindPersistenceFailure},
	}

	for _, tt := range tests {
		if got := KindOf(tt.err); got != tt.want {
			t.Errorf("KindOf(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestIsCallerError(t *testing.T) {
	if !IsCallerError(ErrInsufficientFunds) {
		t.Error("insufficient funds is a caller error")
	}
	if IsCallerError(ErrPersistenceFailure) {
		t.Error("persistence failure is not a caller error")
	}
	if IsCallerError(ErrConcurrencyConflict) {
		t.Error("concurrency conflict is not a caller error")
	}
}
