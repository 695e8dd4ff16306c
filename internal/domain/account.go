package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountStatus is the lifecycle state of an account as seen by the ledger.
type AccountStatus string

const (
	AccountStatusActive AccountStatus = "active"
	AccountStatusLocked AccountStatus = "locked"
)

// IsValid reports whether s is a known status.
func (s AccountStatus) IsValid() bool {
	return s == AccountStatusActive || s == AccountStatusLocked
}

// ParseAccountStatus parses a status name. An empty string is not a status.
func ParseAccountStatus(s string) (AccountStatus, error) {
	status := AccountStatus(s)
	if !status.IsValid() {
		return "", ErrInvalidStatus
	}
	return status, nil
}

// Account represents a customer account holding a balance.
type Account struct {
	ID        string
	Name      string
	Balance   decimal.Decimal
	Status    AccountStatus
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsActive reports whether the account may be debited or credited.
func (a *Account) IsActive() bool {
	return a.Status == AccountStatusActive
}

// CheckAdjust returns the balance after applying delta, or the reason the
// adjustment is refused. It never mutates the account.
func (a *Account) CheckAdjust(delta, minBalance decimal.Decimal) (decimal.Decimal, error) {
	if !a.IsActive() {
		return decimal.Zero, ErrAccountLocked
	}

	newBalance := a.Balance.Add(delta)
	if newBalance.LessThan(minBalance) {
		return decimal.Zero, ErrInsufficientFunds
	}

	return newBalance, nil
}

// AccountFilter narrows account listings.
type AccountFilter struct {
	Status AccountStatus // empty means any status
	Limit  int
	Offset int
}

// Adjustment is the committed result of a conditional balance adjustment.
type Adjustment struct {
	AccountID  string
	Delta      decimal.Decimal
	NewBalance decimal.Decimal
	NewVersion int64
}
