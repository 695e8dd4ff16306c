package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
)

// LedgerServiceConfig carries the collaborators of a LedgerService.
type LedgerServiceConfig struct {
	Accounts    AccountStore
	Coordinator *TransferCoordinator
	Audit       AuditRecorder
	Retrier     Retrier
	IDGen       IDGenerator
	Metrics     LedgerMetrics
	Logger      zerolog.Logger
	// Timeout bounds each call, lock waits and retries included.
	Timeout time.Duration
}

// LedgerService is the public entry point for balance-changing operations.
// Every mutating call is validated before storage is touched and produces
// exactly one audit entry once its outcome is known.
type LedgerService struct {
	accounts    AccountStore
	coordinator *TransferCoordinator
	audit       AuditRecorder
	retrier     Retrier
	idGen       IDGenerator
	metrics     LedgerMetrics
	logger      zerolog.Logger
	timeout     time.Duration
	now         func() time.Time
}

// NewLedgerService creates a new LedgerService.
func NewLedgerService(cfg LedgerServiceConfig) *LedgerService {
	s := &LedgerService{
		accounts:    cfg.Accounts,
		coordinator: cfg.Coordinator,
		audit:       cfg.Audit,
		retrier:     cfg.Retrier,
		idGen:       cfg.IDGen,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
		timeout:     cfg.Timeout,
		now:         func() time.Time { return time.Now().UTC() },
	}

	if s.timeout <= 0 {
		s.timeout = DefaultOperationTimeout
	}

	if s.retrier == nil {
		s.retrier = noRetry{}
	}

	if s.metrics == nil {
		s.metrics = nopMetrics{}
	}

	if s.audit == nil {
		s.audit = &logAuditRecorder{logger: s.logger}
	}

	return s
}

// Deposit adds amount to the account balance.
func (s *LedgerService) Deposit(ctx context.Context, accountID string, amount decimal.Decimal) (*domain.Adjustment, error) {
	return s.adjust(ctx, domain.OperationDeposit, accountID, amount, amount)
}

// Withdraw removes amount from the account balance. The balance may reach
// zero but never go below it.
func (s *LedgerService) Withdraw(ctx context.Context, accountID string, amount decimal.Decimal) (*domain.Adjustment, error) {
	return s.adjust(ctx, domain.OperationWithdraw, accountID, amount, amount.Neg())
}

// Transfer moves amount between two distinct accounts atomically.
func (s *LedgerService) Transfer(ctx context.Context, fromID, toID string, amount decimal.Decimal) (*domain.TransferResult, error) {
	req := domain.TransferRequest{
		FromAccountID: fromID,
		ToAccountID:   toID,
		Amount:        amount,
	}

	entry := s.newAuditEntry(ctx, domain.OperationTransfer, amount, fromID, toID)

	var result *domain.TransferResult

	err := s.run(ctx, domain.OperationTransfer, req.Validate, func(ctx context.Context) error {
		r, err := s.coordinator.Transfer(ctx, entry.OperationID, req)
		if err != nil {
			return err
		}

		result = r

		return nil
	})

	s.record(ctx, entry, err)

	if err != nil {
		return nil, err
	}

	return result, nil
}

// CheckBalance returns the committed balance of an account. It is a pure
// read and is not audited.
func (s *LedgerService) CheckBalance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	account, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return decimal.Zero, normalizeError(err)
	}

	return account.Balance, nil
}

// LockAccount moves an account to the locked state. Locked accounts reject
// every balance change. Locking a locked account is a no-op.
func (s *LedgerService) LockAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	return s.setStatus(ctx, domain.OperationLock, accountID, domain.AccountStatusLocked)
}

// UnlockAccount moves an account back to the active state.
func (s *LedgerService) UnlockAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	return s.setStatus(ctx, domain.OperationUnlock, accountID, domain.AccountStatusActive)
}

func (s *LedgerService) adjust(
	ctx context.Context,
	op domain.OperationType,
	accountID string,
	amount decimal.Decimal,
	delta decimal.Decimal,
) (*domain.Adjustment, error) {
	entry := s.newAuditEntry(ctx, op, amount, accountID)

	var result *domain.Adjustment

	validate := func() error { return domain.ValidateAmount(amount) }

	err := s.run(ctx, op, validate, func(ctx context.Context) error {
		adj, err := s.accounts.ConditionalAdjust(ctx, AdjustParams{
			AccountID:   accountID,
			OperationID: entry.OperationID,
			EntryID:     s.idGen.Generate(),
			Operation:   op,
			Delta:       delta,
			MinBalance:  decimal.Zero,
			At:          s.now(),
		})
		if err != nil {
			return err
		}

		result = adj

		return nil
	})

	s.record(ctx, entry, err)

	if err != nil {
		return nil, err
	}

	return result, nil
}

func (s *LedgerService) setStatus(
	ctx context.Context,
	op domain.OperationType,
	accountID string,
	status domain.AccountStatus,
) (*domain.Account, error) {
	entry := s.newAuditEntry(ctx, op, decimal.Zero, accountID)

	var result *domain.Account

	err := s.run(ctx, op, nil, func(ctx context.Context) error {
		account, err := s.accounts.SetStatus(ctx, accountID, status, s.now())
		if err != nil {
			return err
		}

		result = account

		return nil
	})

	s.record(ctx, entry, err)

	if err != nil {
		return nil, err
	}

	return result, nil
}

// run validates, then executes fn under the call timeout, retrying
// concurrency conflicts. The returned error is always classifiable by
// domain.KindOf.
func (s *LedgerService) run(
	ctx context.Context,
	op domain.OperationType,
	validate func() error,
	fn func(ctx context.Context) error,
) error {
	start := time.Now()

	var err error
	if validate != nil {
		err = validate()
	}

	if err == nil {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		err = s.retrier.Retry(callCtx, func() error { return fn(callCtx) })
		cancel()
		err = normalizeError(err)
	}

	kind := domain.KindOf(err)
	s.metrics.ObserveOperation(op, kind, time.Since(start))

	switch {
	case err == nil:
		s.logger.Debug().Str("operation", string(op)).Msg("operation applied")
	case domain.IsCallerError(err):
		s.logger.Info().Str("operation", string(op)).Str("error_kind", string(kind)).Err(err).Msg("operation rejected")
	default:
		s.logger.Error().Str("operation", string(op)).Str("error_kind", string(kind)).Err(err).Msg("operation failed")
	}

	return err
}

func (s *LedgerService) newAuditEntry(
	ctx context.Context,
	op domain.OperationType,
	amount decimal.Decimal,
	accounts ...string,
) *domain.AuditEntry {
	return &domain.AuditEntry{
		ID:             s.idGen.Generate(),
		OperationID:    s.idGen.Generate(),
		ActorID:        ActorFromContext(ctx),
		Operation:      op,
		TargetAccounts: accounts,
		Amount:         amount,
	}
}

// record finalises entry with the outcome of the call and hands it to the
// audit recorder. The recorder never influences the result.
func (s *LedgerService) record(ctx context.Context, entry *domain.AuditEntry, err error) {
	entry.CreatedAt = s.now()

	if err == nil {
		entry.Outcome = domain.AuditOutcomeSuccess
	} else {
		entry.Outcome = domain.AuditOutcomeFailure
		entry.ErrorKind = domain.KindOf(err)
		entry.Reason = err.Error()
	}

	s.audit.Record(context.WithoutCancel(ctx), entry)
}

// normalizeError makes sure infrastructure failures surface as
// domain.ErrPersistenceFailure.
func normalizeError(err error) error {
	if err == nil {
		return nil
	}

	if domain.KindOf(err) != domain.KindPersistenceFailure {
		return err
	}

	if errors.Is(err, domain.ErrPersistenceFailure) {
		return err
	}

	return fmt.Errorf("%w: %w", domain.ErrPersistenceFailure, err)
}

type noRetry struct{}

func (noRetry) Retry(_ context.Context, operation func() error) error {
	return operation()
}

type nopMetrics struct{}

func (nopMetrics) ObserveOperation(domain.OperationType, domain.ErrorKind, time.Duration) {}

// logAuditRecorder writes audit entries to the log when no durable recorder
// is configured.
type logAuditRecorder struct {
	logger zerolog.Logger
}

func (r *logAuditRecorder) Record(_ context.Context, entry *domain.AuditEntry) {
	r.logger.Info().
		Str("audit_id", entry.ID).
		Str("operation_id", entry.OperationID).
		Str("actor", entry.ActorID).
		Str("operation", string(entry.Operation)).
		Strs("accounts", entry.TargetAccounts).
		Str("amount", entry.Amount.StringFixed(domain.AmountScale)).
		Str("outcome", string(entry.Outcome)).
		Str("error_kind", string(entry.ErrorKind)).
		Msg("audit")
}
