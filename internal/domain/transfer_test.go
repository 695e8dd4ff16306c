package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestTransferRequest_Validate(t *testing.T) {
	tests := []struct {
		name        string
		fromID      string
		toID        string
		amount      decimal.Decimal
		expectError error
	}{
		{
			name:        "valid transfer",
			fromID:      "account-1",
			toID:        "account-2",
			amount:      decimal.NewFromInt(100),
			expectError: nil,
		},
		{
			name:        "same account",
			fromID:      "account-1",
			toID:        "account-1",
			amount:      decimal.NewFromInt(100),
			expectError: ErrSameAccount,
		},
		{
			name:        "zero amount",
			fromID:      "account-1",
			toID:        "account-2",
			amount:      decimal.Zero,
			expectError: ErrInvalidAmount,
		},
		{
			name:        "negative amount",
			fromID:      "account-1",
			toID:        "account-2",
			amount:      decimal.RequireFromString("-5.00"),
			expectError: ErrInvalidAmount,
		},
		{
			name:        "negative amount to same account reports the amount",
			fromID:      "account-1",
			toID:        "account-1",
			amount:      decimal.NewFromInt(-1),
			expectError: ErrInvalidAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &TransferRequest{
				FromAccountID: tt.fromID,
				ToAccountID:   tt.toID,
				Amount:        tt.amount,
			}

			err := req.Validate()

			if tt.expectError == nil && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if tt.expectError != nil && !errors.Is(err, tt.expectError) {
				t.Errorf("expected error %v, got %v", tt.expectError, err)
			}
		})
	}
}

func TestTransferRequest_LockOrder(t *testing.T) {
	forward := &TransferRequest{FromAccountID: "A", ToAccountID: "B"}
	backward := &TransferRequest{FromAccountID: "B", ToAccountID: "A"}

	f := forward.LockOrder()
	b := backward.LockOrder()

	if f[0] != "A" || f[1] != "B" {
		t.Fatalf("expected [A B], got %v", f)
	}
	if b[0] != f[0] || b[1] != f[1] {
		t.Fatalf("opposite transfers must lock in the same order, got %v and %v", f, b)
	}
}
