// Package memory provides an in-process AccountStore. Each account is
// guarded by its own context-aware lock and every change is written to an
// optional write-ahead log before it becomes visible.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/semaphore"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/infrastructure/wal"
	"github.com/iho/bankledger/internal/usecase"
)

type slot struct {
	// sem is held by whoever reads or writes account.
	sem     *semaphore.Weighted
	account domain.Account
}

// walRecord is one committed change: the resulting account states and the
// journal entries written with them.
type walRecord struct {
	Accounts []domain.Account `json:"accounts"`
	Entries  []domain.Entry   `json:"entries,omitempty"`
}

// Store is an in-memory AccountStore, EntryRepository, LedgerRepository and
// TransactionManager.
type Store struct {
	mu    sync.RWMutex
	slots map[string]*slot

	journalMu sync.RWMutex
	journal   []domain.Entry

	wal *wal.WAL
}

// NewStore creates a volatile store.
func NewStore() *Store {
	return &Store{
		slots: make(map[string]*slot),
	}
}

// Open creates a store backed by the write-ahead log at path and restores
// the state recorded in it.
func Open(path string) (*Store, error) {
	log, err := wal.Open(path)
	if err != nil {
		return nil, err
	}

	s := NewStore()
	s.wal = log

	if err := log.Replay(s.replay); err != nil {
		log.Close()
		return nil, fmt.Errorf("replay %s: %w", path, err)
	}

	return s, nil
}

// Close closes the write-ahead log.
func (s *Store) Close() error {
	if s.wal == nil {
		return nil
	}

	return s.wal.Close()
}

// replay applies one log record. It runs before the store is shared.
func (s *Store) replay(raw json.RawMessage) error {
	var rec walRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return err
	}

	for _, acc := range rec.Accounts {
		if sl, ok := s.slots[acc.ID]; ok {
			sl.account = acc
			continue
		}

		s.slots[acc.ID] = &slot{sem: semaphore.NewWeighted(1), account: acc}
	}

	s.journal = append(s.journal, rec.Entries...)

	return nil
}

// persist makes rec durable. It must be called before the change is
// applied in memory.
func (s *Store) persist(rec walRecord) error {
	if s.wal == nil {
		return nil
	}

	if err := s.wal.Append(rec); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistenceFailure, err)
	}

	return nil
}

func (s *Store) lookup(id string) (*slot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sl, ok := s.slots[id]

	return sl, ok
}

func acquire(ctx context.Context, sl *slot) error {
	if err := sl.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistenceFailure, err)
	}

	return nil
}

// Create stores a new account.
func (s *Store) Create(ctx context.Context, account *domain.Account) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistenceFailure, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.slots[account.ID]; ok {
		return domain.ErrAccountExists
	}

	if err := s.persist(walRecord{Accounts: []domain.Account{*account}}); err != nil {
		return err
	}

	s.slots[account.ID] = &slot{sem: semaphore.NewWeighted(1), account: *account}

	return nil
}

// Get returns the committed state of an account.
func (s *Store) Get(ctx context.Context, id string) (*domain.Account, error) {
	sl, ok := s.lookup(id)
	if !ok {
		return nil, domain.ErrAccountNotFound
	}

	if err := acquire(ctx, sl); err != nil {
		return nil, err
	}
	defer sl.sem.Release(1)

	acc := sl.account

	return &acc, nil
}

// List returns accounts ordered by ID.
func (s *Store) List(ctx context.Context, filter domain.AccountFilter) ([]*domain.Account, error) {
	ids := s.sortedIDs()

	var accounts []*domain.Account

	skipped := 0
	for _, id := range ids {
		acc, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}

		if filter.Status != "" && acc.Status != filter.Status {
			continue
		}

		if skipped < filter.Offset {
			skipped++
			continue
		}

		accounts = append(accounts, acc)

		if filter.Limit > 0 && len(accounts) == filter.Limit {
			break
		}
	}

	return accounts, nil
}

func (s *Store) sortedIDs() []string {
	s.mu.RLock()
	ids := make([]string, 0, len(s.slots))
	for id := range s.slots {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	sort.Strings(ids)

	return ids
}

// ConditionalAdjust applies one adjustment atomically.
func (s *Store) ConditionalAdjust(ctx context.Context, params usecase.AdjustParams) (*domain.Adjustment, error) {
	sl, ok := s.lookup(params.AccountID)
	if !ok {
		return nil, domain.ErrAccountNotFound
	}

	if err := acquire(ctx, sl); err != nil {
		return nil, err
	}
	defer sl.sem.Release(1)

	next, entry, err := apply(sl.account, params)
	if err != nil {
		return nil, err
	}

	if err := s.persist(walRecord{Accounts: []domain.Account{next}, Entries: []domain.Entry{entry}}); err != nil {
		return nil, err
	}

	sl.account = next
	s.appendJournal(entry)

	return adjustment(next, params.Delta), nil
}

// SetStatus changes the status of an account. Setting the current status
// leaves the account untouched.
func (s *Store) SetStatus(ctx context.Context, id string, status domain.AccountStatus, at time.Time) (*domain.Account, error) {
	if !status.IsValid() {
		return nil, domain.ErrInvalidStatus
	}

	sl, ok := s.lookup(id)
	if !ok {
		return nil, domain.ErrAccountNotFound
	}

	if err := acquire(ctx, sl); err != nil {
		return nil, err
	}
	defer sl.sem.Release(1)

	if sl.account.Status != status {
		next := sl.account
		next.Status = status
		next.Version++
		next.UpdatedAt = at

		if err := s.persist(walRecord{Accounts: []domain.Account{next}}); err != nil {
			return nil, err
		}

		sl.account = next
	}

	acc := sl.account

	return &acc, nil
}

// apply computes the state of acc after params without mutating anything.
func apply(acc domain.Account, params usecase.AdjustParams) (domain.Account, domain.Entry, error) {
	if params.ExpectedVersion > 0 && acc.Version != params.ExpectedVersion {
		return acc, domain.Entry{}, domain.ErrConcurrencyConflict
	}

	balance, err := acc.CheckAdjust(params.Delta, params.MinBalance)
	if err != nil {
		return acc, domain.Entry{}, err
	}

	acc.Balance = balance
	acc.Version++
	acc.UpdatedAt = params.At

	entry := domain.Entry{
		CreatedAt:      params.At,
		ID:             params.EntryID,
		AccountID:      acc.ID,
		OperationID:    params.OperationID,
		Operation:      params.Operation,
		Amount:         params.Delta,
		BalanceAfter:   balance,
		AccountVersion: acc.Version,
	}

	return acc, entry, nil
}

func adjustment(acc domain.Account, delta decimal.Decimal) *domain.Adjustment {
	return &domain.Adjustment{
		AccountID:  acc.ID,
		Delta:      delta,
		NewBalance: acc.Balance,
		NewVersion: acc.Version,
	}
}

func (s *Store) appendJournal(entries ...domain.Entry) {
	s.journalMu.Lock()
	s.journal = append(s.journal, entries...)
	s.journalMu.Unlock()
}
