package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
)

// AdjustParams describes one conditional balance adjustment.
type AdjustParams struct {
	AccountID   string
	OperationID string
	EntryID     string
	Operation   domain.OperationType
	Delta       decimal.Decimal
	// MinBalance is the lowest balance the account may be left with.
	MinBalance decimal.Decimal
	// ExpectedVersion, when positive, makes the adjustment a compare-and-set
	// against the account version.
	ExpectedVersion int64
	At              time.Time
}

// AccountStore is the durable keyed storage of accounts. Balances change only
// through ConditionalAdjust and ConditionalAdjustTx.
type AccountStore interface {
	Create(ctx context.Context, account *domain.Account) error
	Get(ctx context.Context, id string) (*domain.Account, error)
	List(ctx context.Context, filter domain.AccountFilter) ([]*domain.Account, error)
	// ConditionalAdjust applies params.Delta in a single atomic step, only if
	// the account is active and the resulting balance is at least
	// params.MinBalance.
	ConditionalAdjust(ctx context.Context, params AdjustParams) (*domain.Adjustment, error)
	ConditionalAdjustTx(ctx context.Context, tx Transaction, params AdjustParams) (*domain.Adjustment, error)
	// LockForUpdate locks the given accounts for the lifetime of tx in
	// ascending ID order.
	LockForUpdate(ctx context.Context, tx Transaction, ids []string) ([]*domain.Account, error)
	SetStatus(ctx context.Context, id string, status domain.AccountStatus, at time.Time) (*domain.Account, error)
}

// EntryRepository defines read access to the balance journal.
type EntryRepository interface {
	ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Entry, error)
	ListByOperation(ctx context.Context, operationID string) ([]*domain.Entry, error)
}

// LedgerRepository defines data access for ledger-wide operations.
type LedgerRepository interface {
	Totals(ctx context.Context) (*domain.LedgerTotals, error)
	// AccountTotals returns domain.ErrAccountNotFound for unknown accounts.
	AccountTotals(ctx context.Context, accountID string) (*domain.AccountTotals, error)
}

// AuditRepository defines append-only persistence for audit entries.
type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditEntry) error
	List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditEntry, error)
}

// AuditDeadLetter holds audit entries that could not be written to the
// AuditRepository until they can be replayed.
type AuditDeadLetter interface {
	Push(ctx context.Context, entry *domain.AuditEntry) error
	// Pop may return the entries it decoded together with an error for
	// payloads it could not decode.
	Pop(ctx context.Context, max int) ([]*domain.AuditEntry, error)
	Requeue(ctx context.Context, entries []*domain.AuditEntry) error
}

// AuditRecorder is the side-effect sink for audit entries. It never reports
// failure to the caller.
type AuditRecorder interface {
	Record(ctx context.Context, entry *domain.AuditEntry)
}

// Transaction represents a storage transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Retrier re-runs operation while it fails with domain.ErrConcurrencyConflict.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// LedgerMetrics receives ledger operation measurements.
type LedgerMetrics interface {
	ObserveOperation(op domain.OperationType, kind domain.ErrorKind, duration time.Duration)
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release drops a key whose request did not complete.
	Release(ctx context.Context, key string) error
}
