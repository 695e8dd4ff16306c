package memory

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
)

// ListByAccount returns the entries of an account, newest first.
func (s *Store) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Entry, error) {
	s.journalMu.RLock()
	defer s.journalMu.RUnlock()

	var entries []*domain.Entry

	skipped := 0
	for i := len(s.journal) - 1; i >= 0; i-- {
		if s.journal[i].AccountID != accountID {
			continue
		}

		if skipped < offset {
			skipped++
			continue
		}

		e := s.journal[i]
		entries = append(entries, &e)

		if limit > 0 && len(entries) == limit {
			break
		}
	}

	return entries, nil
}

// ListByOperation returns the entries written by one operation.
func (s *Store) ListByOperation(ctx context.Context, operationID string) ([]*domain.Entry, error) {
	s.journalMu.RLock()
	defer s.journalMu.RUnlock()

	var entries []*domain.Entry
	for i := range s.journal {
		if s.journal[i].OperationID == operationID {
			e := s.journal[i]
			entries = append(entries, &e)
		}
	}

	return entries, nil
}

// Totals computes the conservation figures over a consistent snapshot. All
// account locks are taken in ascending order, so no transfer is half applied
// while the figures are collected.
func (s *Store) Totals(ctx context.Context) (*domain.LedgerTotals, error) {
	ids := s.sortedIDs()

	held := make([]*slot, 0, len(ids))
	defer func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].sem.Release(1)
		}
	}()

	totals := &domain.LedgerTotals{}

	for _, id := range ids {
		sl, ok := s.lookup(id)
		if !ok {
			continue
		}

		if err := acquire(ctx, sl); err != nil {
			return nil, err
		}

		held = append(held, sl)

		totals.AccountBalance = totals.AccountBalance.Add(sl.account.Balance)
		if sl.account.Balance.IsNegative() {
			totals.NegativeAccounts++
		}
	}

	s.journalMu.RLock()
	defer s.journalMu.RUnlock()

	transfers := make(map[string]decimal.Decimal)
	for _, e := range s.journal {
		totals.EntryAmount = totals.EntryAmount.Add(e.Amount)

		switch e.Operation {
		case domain.OperationDeposit:
			totals.Deposits = totals.Deposits.Add(e.Amount)
		case domain.OperationWithdraw:
			totals.Withdrawals = totals.Withdrawals.Sub(e.Amount)
		case domain.OperationTransfer:
			transfers[e.OperationID] = transfers[e.OperationID].Add(e.Amount)
		}
	}

	for _, sum := range transfers {
		if !sum.IsZero() {
			totals.UnbalancedTransfers++
		}
	}

	return totals, nil
}

// AccountTotals reads the balance and journal total of one account while
// holding its lock, so no adjustment lands between the two reads.
func (s *Store) AccountTotals(ctx context.Context, accountID string) (*domain.AccountTotals, error) {
	sl, ok := s.lookup(accountID)
	if !ok {
		return nil, domain.ErrAccountNotFound
	}

	if err := acquire(ctx, sl); err != nil {
		return nil, err
	}
	defer sl.sem.Release(1)

	totals := &domain.AccountTotals{
		AccountID: accountID,
		Balance:   sl.account.Balance,
	}

	s.journalMu.RLock()
	defer s.journalMu.RUnlock()

	for i := range s.journal {
		if s.journal[i].AccountID == accountID {
			totals.EntryAmount = totals.EntryAmount.Add(s.journal[i].Amount)
			totals.EntryCount++
		}
	}

	return totals, nil
}
