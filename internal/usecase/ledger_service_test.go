package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/bankledger/internal/adapter/repository/memory"
	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/infrastructure/retry"
	"github.com/iho/bankledger/internal/usecase"
	"github.com/iho/bankledger/internal/usecase/mocks"
)

type ledgerFixture struct {
	store   *memory.Store
	audit   *mocks.MockAuditRecorder
	service *usecase.LedgerService
}

func newLedgerFixture(t *testing.T, accounts ...*domain.Account) *ledgerFixture {
	t.Helper()

	store := memory.NewStore()
	for _, acc := range accounts {
		require.NoError(t, store.Create(context.Background(), acc))
	}

	idGen := mocks.NewMockIDGenerator()
	audit := mocks.NewMockAuditRecorder()

	service := usecase.NewLedgerService(usecase.LedgerServiceConfig{
		Accounts:    store,
		Coordinator: usecase.NewTransferCoordinator(store, store, idGen),
		Audit:       audit,
		Retrier:     retry.New(retry.Config{MaxRetries: 3, InitialInterval: time.Millisecond}, zerolog.Nop()),
		IDGen:       idGen,
		Logger:      zerolog.Nop(),
		Timeout:     2 * time.Second,
	})

	return &ledgerFixture{store: store, audit: audit, service: service}
}

func account(id, balance string, status domain.AccountStatus) *domain.Account {
	now := time.Now().UTC()
	return &domain.Account{
		ID:        id,
		Name:      "account " + id,
		Balance:   decimal.RequireFromString(balance),
		Status:    status,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (f *ledgerFixture) balance(t *testing.T, id string) decimal.Decimal {
	t.Helper()
	b, err := f.service.CheckBalance(context.Background(), id)
	require.NoError(t, err)
	return b
}

func TestLedgerService_Scenarios(t *testing.T) {
	active, locked := domain.AccountStatusActive, domain.AccountStatusLocked

	tests := []struct {
		name     string
		accounts []*domain.Account
		call     func(s *usecase.LedgerService) error
		wantErr  error
		balances map[string]string
	}{
		{
			name:     "withdraw within balance",
			accounts: []*domain.Account{account("A", "100.00", active)},
			call: func(s *usecase.LedgerService) error {
				_, err := s.Withdraw(context.Background(), "A", dec("50.00"))
				return err
			},
			balances: map[string]string{"A": "50.00"},
		},
		{
			name:     "withdraw beyond balance",
			accounts: []*domain.Account{account("A", "50.00", active)},
			call: func(s *usecase.LedgerService) error {
				_, err := s.Withdraw(context.Background(), "A", dec("100.00"))
				return err
			},
			wantErr:  domain.ErrInsufficientFunds,
			balances: map[string]string{"A": "50.00"},
		},
		{
			name:     "transfer whole balance",
			accounts: []*domain.Account{account("A", "100.00", active), account("B", "0.00", active)},
			call: func(s *usecase.LedgerService) error {
				_, err := s.Transfer(context.Background(), "A", "B", dec("100.00"))
				return err
			},
			balances: map[string]string{"A": "0.00", "B": "100.00"},
		},
		{
			name:     "transfer negative amount",
			accounts: []*domain.Account{account("A", "100.00", active), account("B", "0.00", active)},
			call: func(s *usecase.LedgerService) error {
				_, err := s.Transfer(context.Background(), "A", "B", dec("-5.00"))
				return err
			},
			wantErr:  domain.ErrInvalidAmount,
			balances: map[string]string{"A": "100.00", "B": "0.00"},
		},
		{
			name:     "transfer to locked account",
			accounts: []*domain.Account{account("A", "100.00", active), account("B", "0.00", locked)},
			call: func(s *usecase.LedgerService) error {
				_, err := s.Transfer(context.Background(), "A", "B", dec("10.00"))
				return err
			},
			wantErr:  domain.ErrAccountLocked,
			balances: map[string]string{"A": "100.00", "B": "0.00"},
		},
		{
			name:     "transfer to same account",
			accounts: []*domain.Account{account("A", "100.00", active)},
			call: func(s *usecase.LedgerService) error {
				_, err := s.Transfer(context.Background(), "A", "A", dec("10.00"))
				return err
			},
			wantErr:  domain.ErrSameAccount,
			balances: map[string]string{"A": "100.00"},
		},
		{
			name:     "deposit with three fractional digits",
			accounts: []*domain.Account{account("A", "1.00", active)},
			call: func(s *usecase.LedgerService) error {
				_, err := s.Deposit(context.Background(), "A", dec("0.001"))
				return err
			},
			wantErr:  domain.ErrInvalidAmount,
			balances: map[string]string{"A": "1.00"},
		},
		{
			name:     "deposit into locked account",
			accounts: []*domain.Account{account("A", "1.00", locked)},
			call: func(s *usecase.LedgerService) error {
				_, err := s.Deposit(context.Background(), "A", dec("5.00"))
				return err
			},
			wantErr:  domain.ErrAccountLocked,
			balances: map[string]string{"A": "1.00"},
		},
		{
			name: "withdraw from unknown account",
			call: func(s *usecase.LedgerService) error {
				_, err := s.Withdraw(context.Background(), "nope", dec("5.00"))
				return err
			},
			wantErr: domain.ErrAccountNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newLedgerFixture(t, tt.accounts...)

			err := tt.call(f.service)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}

			for id, want := range tt.balances {
				got := f.balance(t, id)
				assert.True(t, got.Equal(dec(want)), "balance(%s) = %s, want %s", id, got, want)
			}

			entries := f.audit.Entries()
			require.Len(t, entries, 1, "exactly one audit entry per call")
			if tt.wantErr != nil {
				assert.Equal(t, domain.AuditOutcomeFailure, entries[0].Outcome)
				assert.Equal(t, domain.KindOf(tt.wantErr), entries[0].ErrorKind)
				assert.NotEmpty(t, entries[0].Reason)
			} else {
				assert.Equal(t, domain.AuditOutcomeSuccess, entries[0].Outcome)
			}
		})
	}
}

func TestLedgerService_ConcurrentDepositsLoseNothing(t *testing.T) {
	f := newLedgerFixture(t, account("A", "0.00", domain.AccountStatusActive))

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.Deposit(context.Background(), "A", dec("1.00"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.True(t, f.balance(t, "A").Equal(dec("100.00")))
	assert.Len(t, f.audit.Entries(), 100)
}

func TestLedgerService_OpposingTransfersConserveMoney(t *testing.T) {
	f := newLedgerFixture(t,
		account("A", "500.00", domain.AccountStatusActive),
		account("B", "500.00", domain.AccountStatusActive),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = f.service.Transfer(ctx, "A", "B", dec("3.00"))
		}()
		go func() {
			defer wg.Done()
			_, _ = f.service.Transfer(ctx, "B", "A", dec("2.00"))
		}()
	}
	wg.Wait()
	require.NoError(t, ctx.Err(), "transfers must not deadlock")

	a, b := f.balance(t, "A"), f.balance(t, "B")
	assert.True(t, a.Add(b).Equal(dec("1000.00")), "sum = %s", a.Add(b))
	assert.False(t, a.IsNegative())
	assert.False(t, b.IsNegative())

	totals, err := f.store.Totals(context.Background())
	require.NoError(t, err)
	assert.Zero(t, totals.UnbalancedTransfers)
}

func TestLedgerService_CheckBalanceIsIdempotentAndUnaudited(t *testing.T) {
	f := newLedgerFixture(t, account("A", "12.34", domain.AccountStatusActive))

	first := f.balance(t, "A")
	second := f.balance(t, "A")

	assert.True(t, first.Equal(second))
	assert.Empty(t, f.audit.Entries())

	_, err := f.service.CheckBalance(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestLedgerService_LockAndUnlock(t *testing.T) {
	f := newLedgerFixture(t, account("A", "10.00", domain.AccountStatusActive))
	ctx := usecase.WithActor(context.Background(), "admin-1")

	acc, err := f.service.LockAccount(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, domain.AccountStatusLocked, acc.Status)

	_, err = f.service.Withdraw(ctx, "A", dec("1.00"))
	assert.ErrorIs(t, err, domain.ErrAccountLocked)

	acc, err = f.service.UnlockAccount(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, domain.AccountStatusActive, acc.Status)

	_, err = f.service.Withdraw(ctx, "A", dec("1.00"))
	assert.NoError(t, err)

	entries := f.audit.Entries()
	require.Len(t, entries, 4)
	assert.Equal(t, domain.OperationLock, entries[0].Operation)
	assert.Equal(t, domain.OperationUnlock, entries[2].Operation)
	for _, e := range entries {
		assert.Equal(t, "admin-1", e.ActorID)
	}
}

func TestLedgerService_ConflictsAreRetried(t *testing.T) {
	store := mocks.NewMockAccountStore()
	store.Seed(account("A", "10.00", domain.AccountStatusActive))

	attempts := 0
	store.ConditionalAdjustFunc = func(ctx context.Context, params usecase.AdjustParams) (*domain.Adjustment, error) {
		attempts++
		if attempts < 3 {
			return nil, domain.ErrConcurrencyConflict
		}
		return &domain.Adjustment{AccountID: params.AccountID, Delta: params.Delta, NewBalance: dec("15.00"), NewVersion: 2}, nil
	}

	audit := mocks.NewMockAuditRecorder()
	service := usecase.NewLedgerService(usecase.LedgerServiceConfig{
		Accounts: store,
		Audit:    audit,
		Retrier:  retry.New(retry.Config{MaxRetries: 2, InitialInterval: time.Millisecond}, zerolog.Nop()),
		IDGen:    mocks.NewMockIDGenerator(),
		Logger:   zerolog.Nop(),
	})

	adj, err := service.Deposit(context.Background(), "A", dec("5.00"))
	require.NoError(t, err)
	assert.True(t, adj.NewBalance.Equal(dec("15.00")))
	assert.Equal(t, 3, attempts)
	assert.Len(t, audit.Entries(), 1)
}

func TestLedgerService_ExhaustedConflictSurfaces(t *testing.T) {
	store := mocks.NewMockAccountStore()
	store.ConditionalAdjustFunc = func(ctx context.Context, params usecase.AdjustParams) (*domain.Adjustment, error) {
		return nil, domain.ErrConcurrencyConflict
	}

	audit := mocks.NewMockAuditRecorder()
	service := usecase.NewLedgerService(usecase.LedgerServiceConfig{
		Accounts: store,
		Audit:    audit,
		Retrier:  retry.New(retry.Config{MaxRetries: 1, InitialInterval: time.Millisecond}, zerolog.Nop()),
		IDGen:    mocks.NewMockIDGenerator(),
		Logger:   zerolog.Nop(),
	})

	_, err := service.Withdraw(context.Background(), "A", dec("5.00"))
	assert.ErrorIs(t, err, domain.ErrConcurrencyConflict)

	entries := audit.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, domain.KindConcurrencyConflict, entries[0].ErrorKind)
}

func TestLedgerService_StorageErrorsBecomePersistenceFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"driver error", errors.New("connection reset by peer")},
		{"deadline", context.DeadlineExceeded},
		{"already wrapped", fmt.Errorf("%w: disk full", domain.ErrPersistenceFailure)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := mocks.NewMockAccountStore()
			store.ConditionalAdjustFunc = func(ctx context.Context, params usecase.AdjustParams) (*domain.Adjustment, error) {
				return nil, tt.err
			}

			audit := mocks.NewMockAuditRecorder()
			service := usecase.NewLedgerService(usecase.LedgerServiceConfig{
				Accounts: store,
				Audit:    audit,
				IDGen:    mocks.NewMockIDGenerator(),
				Logger:   zerolog.Nop(),
			})

			_, err := service.Deposit(context.Background(), "A", dec("5.00"))
			assert.ErrorIs(t, err, domain.ErrPersistenceFailure)

			entries := audit.Entries()
			require.Len(t, entries, 1)
			assert.Equal(t, domain.KindPersistenceFailure, entries[0].ErrorKind)
		})
	}
}

func TestLedgerService_TimeoutLeavesBalanceUntouched(t *testing.T) {
	f := newLedgerFixture(t, account("A", "10.00", domain.AccountStatusActive))

	// Hold the account inside an open transaction so the deposit cannot
	// acquire it before its deadline.
	tx, err := f.store.Begin(context.Background())
	require.NoError(t, err)
	_, err = f.store.LockForUpdate(context.Background(), tx, []string{"A"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = f.service.Deposit(ctx, "A", dec("5.00"))
	assert.ErrorIs(t, err, domain.ErrPersistenceFailure)

	require.NoError(t, tx.Rollback(context.Background()))
	assert.True(t, f.balance(t, "A").Equal(dec("10.00")))
}
