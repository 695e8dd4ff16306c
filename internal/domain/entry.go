package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Entry is the journal line written together with every committed balance
// change. A transfer produces two entries sharing one OperationID whose
// amounts sum to zero.
type Entry struct {
	CreatedAt      time.Time
	ID             string
	AccountID      string
	OperationID    string
	Operation      OperationType
	Amount         decimal.Decimal
	BalanceAfter   decimal.Decimal
	AccountVersion int64
}

// LedgerTotals are the aggregate figures used to verify conservation.
type LedgerTotals struct {
	AccountBalance      decimal.Decimal // sum of all account balances
	EntryAmount         decimal.Decimal // sum of all journal amounts
	Deposits            decimal.Decimal
	Withdrawals         decimal.Decimal // positive figure
	UnbalancedTransfers int64
	NegativeAccounts    int64
}

// AccountTotals pairs an account's recorded balance with the sum of its
// journal entries, read from one snapshot.
type AccountTotals struct {
	AccountID   string
	Balance     decimal.Decimal
	EntryAmount decimal.Decimal
	EntryCount  int64
}

// AccountReconciliation is the outcome of reconciling one account against
// its journal.
type AccountReconciliation struct {
	Totals     AccountTotals
	Difference decimal.Decimal // recorded balance minus journal total
	Reconciled bool
	CheckedAt  time.Time
}

// ConsistencyReport is the outcome of a ledger-wide consistency check.
type ConsistencyReport struct {
	Totals     LedgerTotals
	Consistent bool
	Problems   []string
	CheckedAt  time.Time
}
