package usecase

import (
	"context"

	"github.com/iho/bankledger/internal/domain"
)

// EntryUseCase serves the balance journal.
type EntryUseCase struct {
	entryRepo EntryRepository
	accounts  AccountStore
}

// NewEntryUseCase creates a new EntryUseCase.
func NewEntryUseCase(entryRepo EntryRepository, accounts AccountStore) *EntryUseCase {
	return &EntryUseCase{
		entryRepo: entryRepo,
		accounts:  accounts,
	}
}

// GetEntriesByAccountInput represents input for listing entries.
type GetEntriesByAccountInput struct {
	AccountID string
	Limit     int
	Offset    int
}

// GetEntriesByAccount lists the movements of an account, newest first.
func (uc *EntryUseCase) GetEntriesByAccount(ctx context.Context, input GetEntriesByAccountInput) ([]*domain.Entry, error) {
	if _, err := uc.accounts.Get(ctx, input.AccountID); err != nil {
		return nil, normalizeError(err)
	}

	limit, offset := domain.ValidatePagination(input.Limit, input.Offset)

	entries, err := uc.entryRepo.ListByAccount(ctx, input.AccountID, limit, offset)
	if err != nil {
		return nil, normalizeError(err)
	}

	return entries, nil
}

// GetEntriesByOperation lists the entries written by one ledger operation.
// A transfer yields two entries whose amounts sum to zero.
func (uc *EntryUseCase) GetEntriesByOperation(ctx context.Context, operationID string) ([]*domain.Entry, error) {
	entries, err := uc.entryRepo.ListByOperation(ctx, operationID)
	if err != nil {
		return nil, normalizeError(err)
	}

	return entries, nil
}
