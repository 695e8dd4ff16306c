package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

// MockAccountStore is a mock implementation of AccountStore. Without
// overrides it behaves like a simple non-transactional map store.
type MockAccountStore struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account

	CreateFunc              func(ctx context.Context, account *domain.Account) error
	GetFunc                 func(ctx context.Context, id string) (*domain.Account, error)
	ListFunc                func(ctx context.Context, filter domain.AccountFilter) ([]*domain.Account, error)
	ConditionalAdjustFunc   func(ctx context.Context, params usecase.AdjustParams) (*domain.Adjustment, error)
	ConditionalAdjustTxFunc func(ctx context.Context, tx usecase.Transaction, params usecase.AdjustParams) (*domain.Adjustment, error)
	LockForUpdateFunc       func(ctx context.Context, tx usecase.Transaction, ids []string) ([]*domain.Account, error)
	SetStatusFunc           func(ctx context.Context, id string, status domain.AccountStatus, at time.Time) (*domain.Account, error)
}

func NewMockAccountStore() *MockAccountStore {
	return &MockAccountStore{
		accounts: make(map[string]*domain.Account),
	}
}

// Seed stores accounts as-is.
func (m *MockAccountStore) Seed(accounts ...*domain.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, acc := range accounts {
		copied := *acc
		m.accounts[acc.ID] = &copied
	}
}

func (m *MockAccountStore) Create(ctx context.Context, account *domain.Account) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, account)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[account.ID]; ok {
		return domain.ErrAccountExists
	}
	copied := *account
	m.accounts[account.ID] = &copied
	return nil
}

func (m *MockAccountStore) Get(ctx context.Context, id string) (*domain.Account, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if acc, ok := m.accounts[id]; ok {
		copied := *acc
		return &copied, nil
	}
	return nil, domain.ErrAccountNotFound
}

func (m *MockAccountStore) List(ctx context.Context, filter domain.AccountFilter) ([]*domain.Account, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var accounts []*domain.Account
	for _, acc := range m.accounts {
		if filter.Status != "" && acc.Status != filter.Status {
			continue
		}
		copied := *acc
		accounts = append(accounts, &copied)
	}
	return accounts, nil
}

func (m *MockAccountStore) ConditionalAdjust(ctx context.Context, params usecase.AdjustParams) (*domain.Adjustment, error) {
	if m.ConditionalAdjustFunc != nil {
		return m.ConditionalAdjustFunc(ctx, params)
	}
	return m.adjust(params)
}

func (m *MockAccountStore) ConditionalAdjustTx(ctx context.Context, tx usecase.Transaction, params usecase.AdjustParams) (*domain.Adjustment, error) {
	if m.ConditionalAdjustTxFunc != nil {
		return m.ConditionalAdjustTxFunc(ctx, tx, params)
	}
	return m.adjust(params)
}

func (m *MockAccountStore) adjust(params usecase.AdjustParams) (*domain.Adjustment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[params.AccountID]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	if params.ExpectedVersion > 0 && acc.Version != params.ExpectedVersion {
		return nil, domain.ErrConcurrencyConflict
	}
	balance, err := acc.CheckAdjust(params.Delta, params.MinBalance)
	if err != nil {
		return nil, err
	}
	acc.Balance = balance
	acc.Version++
	acc.UpdatedAt = params.At
	return &domain.Adjustment{
		AccountID:  acc.ID,
		Delta:      params.Delta,
		NewBalance: acc.Balance,
		NewVersion: acc.Version,
	}, nil
}

func (m *MockAccountStore) LockForUpdate(ctx context.Context, tx usecase.Transaction, ids []string) ([]*domain.Account, error) {
	if m.LockForUpdateFunc != nil {
		return m.LockForUpdateFunc(ctx, tx, ids)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var accounts []*domain.Account
	for _, id := range ids {
		if acc, ok := m.accounts[id]; ok {
			copied := *acc
			accounts = append(accounts, &copied)
		}
	}
	return accounts, nil
}

func (m *MockAccountStore) SetStatus(ctx context.Context, id string, status domain.AccountStatus, at time.Time) (*domain.Account, error) {
	if m.SetStatusFunc != nil {
		return m.SetStatusFunc(ctx, id, status, at)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	if acc.Status != status {
		acc.Status = status
		acc.Version++
		acc.UpdatedAt = at
	}
	copied := *acc
	return &copied, nil
}

// MockTransactionManager is a mock implementation of TransactionManager.
type MockTransactionManager struct {
	BeginFunc func(ctx context.Context) (usecase.Transaction, error)
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	return &MockTransaction{}, nil
}

// MockTransaction is a mock implementation of Transaction.
type MockTransaction struct {
	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error

	Committed  bool
	RolledBack bool
}

func (m *MockTransaction) Commit(ctx context.Context) error {
	m.Committed = true
	if m.CommitFunc != nil {
		return m.CommitFunc(ctx)
	}
	return nil
}

func (m *MockTransaction) Rollback(ctx context.Context) error {
	if !m.Committed {
		m.RolledBack = true
	}
	if m.RollbackFunc != nil {
		return m.RollbackFunc(ctx)
	}
	return nil
}

// MockIDGenerator is a mock implementation of IDGenerator.
type MockIDGenerator struct {
	GenerateFunc func() string
	counter      int
	mu           sync.Mutex
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return fmt.Sprintf("mock-id-%d", m.counter)
}

// MockAuditRecorder captures recorded audit entries.
type MockAuditRecorder struct {
	mu      sync.Mutex
	entries []*domain.AuditEntry
}

func NewMockAuditRecorder() *MockAuditRecorder {
	return &MockAuditRecorder{}
}

func (m *MockAuditRecorder) Record(ctx context.Context, entry *domain.AuditEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
}

// Entries returns a snapshot of the recorded entries.
func (m *MockAuditRecorder) Entries() []*domain.AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.AuditEntry(nil), m.entries...)
}

// MockIdempotencyStore is a mock implementation of IdempotencyStore.
type MockIdempotencyStore struct {
	mu   sync.RWMutex
	data map[string][]byte

	CheckAndSetFunc func(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	UpdateFunc      func(ctx context.Context, key string, response []byte, ttl time.Duration) error
	ReleaseFunc     func(ctx context.Context, key string) error
}

func NewMockIdempotencyStore() *MockIdempotencyStore {
	return &MockIdempotencyStore{
		data: make(map[string][]byte),
	}
}

func (m *MockIdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	if m.CheckAndSetFunc != nil {
		return m.CheckAndSetFunc(ctx, key, response, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.data[key]; ok {
		return true, existing, nil
	}
	if response != nil {
		m.data[key] = response
	} else {
		m.data[key] = []byte(usecase.IdempotencyProcessing)
	}
	return false, nil, nil
}

func (m *MockIdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, key, response, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = response
	return nil
}

func (m *MockIdempotencyStore) Release(ctx context.Context, key string) error {
	if m.ReleaseFunc != nil {
		return m.ReleaseFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Get returns the stored value for key.
func (m *MockIdempotencyStore) Get(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok
}
