package domain

import (
	"github.com/shopspring/decimal"
)

// TransferRequest asks to move Amount from one account to another.
// It is never persisted.
type TransferRequest struct {
	FromAccountID string
	ToAccountID   string
	Amount        decimal.Decimal
}

// Validate validates transfer request.
func (t *TransferRequest) Validate() error {
	if err := ValidateAmount(t.Amount); err != nil {
		return err
	}

	if t.FromAccountID == t.ToAccountID {
		return ErrSameAccount
	}

	return nil
}

// LockOrder returns both account IDs in the order their locks must be taken.
func (t *TransferRequest) LockOrder() []string {
	if t.ToAccountID < t.FromAccountID {
		return []string{t.ToAccountID, t.FromAccountID}
	}
	return []string{t.FromAccountID, t.ToAccountID}
}

// TransferResult carries both committed legs of a transfer.
type TransferResult struct {
	OperationID string
	From        *Adjustment
	To          *Adjustment
}
