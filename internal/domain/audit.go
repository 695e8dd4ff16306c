package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OperationType names the ledger operation an audit entry or journal entry
// belongs to.
type OperationType string

const (
	OperationDeposit  OperationType = "deposit"
	OperationWithdraw OperationType = "withdraw"
	OperationTransfer OperationType = "transfer"
	OperationLock     OperationType = "lock"
	OperationUnlock   OperationType = "unlock"
)

// AuditOutcome represents the status of an audited operation
type AuditOutcome string

const (
	AuditOutcomeSuccess AuditOutcome = "success"
	AuditOutcomeFailure AuditOutcome = "failure"
)

// AuditEntry records one attempted ledger operation. Entries are created once
// and never updated or deleted.
type AuditEntry struct {
	ID             string
	OperationID    string
	ActorID        string
	Operation      OperationType
	TargetAccounts []string
	Amount         decimal.Decimal
	Outcome        AuditOutcome
	ErrorKind      ErrorKind
	Reason         string
	CreatedAt      time.Time
}

// Succeeded reports whether the audited operation was applied.
func (e *AuditEntry) Succeeded() bool {
	return e.Outcome == AuditOutcomeSuccess
}

// AuditFilter defines filters for querying audit entries
type AuditFilter struct {
	ActorID   string
	Operation OperationType
	AccountID string
	Outcome   AuditOutcome
	Since     *time.Time
	Limit     int
	Offset    int
}
