package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
)

// AccountUseCase opens accounts and serves account reads. It is the
// registration collaborator of the ledger: the only place accounts are created.
type AccountUseCase struct {
	accounts AccountStore
	idGen    IDGenerator
	now      func() time.Time
}

// NewAccountUseCase creates a new AccountUseCase.
func NewAccountUseCase(accounts AccountStore, idGen IDGenerator) *AccountUseCase {
	return &AccountUseCase{
		accounts: accounts,
		idGen:    idGen,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// OpenAccountInput represents input for opening an account.
type OpenAccountInput struct {
	Name string
}

// OpenAccount creates an active account with a zero balance. Generated IDs
// are checked for collisions by the store and regenerated a bounded number
// of times.
func (uc *AccountUseCase) OpenAccount(ctx context.Context, input OpenAccountInput) (*domain.Account, error) {
	if err := domain.ValidateAccountName(input.Name); err != nil {
		return nil, err
	}

	now := uc.now()

	var err error
	for attempt := 0; attempt < maxOpenAttempts; attempt++ {
		account := &domain.Account{
			ID:        uc.idGen.Generate(),
			Name:      input.Name,
			Balance:   decimal.Zero,
			Status:    domain.AccountStatusActive,
			Version:   1,
			CreatedAt: now,
			UpdatedAt: now,
		}

		err = uc.accounts.Create(ctx, account)
		if err == nil {
			return account, nil
		}

		if !errors.Is(err, domain.ErrAccountExists) {
			return nil, normalizeError(err)
		}
	}

	return nil, err
}

// GetAccount retrieves an account by ID.
func (uc *AccountUseCase) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	account, err := uc.accounts.Get(ctx, id)
	if err != nil {
		return nil, normalizeError(err)
	}

	return account, nil
}

// ListAccountsInput represents input for listing accounts.
type ListAccountsInput struct {
	Status string
	Limit  int
	Offset int
}

// ListAccounts lists accounts with pagination, optionally by status.
func (uc *AccountUseCase) ListAccounts(ctx context.Context, input ListAccountsInput) ([]*domain.Account, error) {
	filter := domain.AccountFilter{}

	if input.Status != "" {
		status, err := domain.ParseAccountStatus(input.Status)
		if err != nil {
			return nil, err
		}

		filter.Status = status
	}

	filter.Limit, filter.Offset = domain.ValidatePagination(input.Limit, input.Offset)

	accounts, err := uc.accounts.List(ctx, filter)
	if err != nil {
		return nil, normalizeError(err)
	}

	return accounts, nil
}
