package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iho/bankledger/internal/domain"
)

// ErrInconsistentLedger is returned when the journal does not explain the
// account balances.
var ErrInconsistentLedger = errors.New("ledger is inconsistent")

// LedgerUseCase handles ledger-wide operations.
type LedgerUseCase struct {
	ledgerRepo LedgerRepository
	now        func() time.Time
}

// NewLedgerUseCase creates a new LedgerUseCase.
func NewLedgerUseCase(ledgerRepo LedgerRepository) *LedgerUseCase {
	return &LedgerUseCase{
		ledgerRepo: ledgerRepo,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// CheckConsistency verifies conservation of money: account balances equal the
// journal total, the journal equals deposits minus withdrawals, every
// transfer nets to zero and no balance is negative. The report is returned
// together with ErrInconsistentLedger when any check fails.
func (uc *LedgerUseCase) CheckConsistency(ctx context.Context) (*domain.ConsistencyReport, error) {
	totals, err := uc.ledgerRepo.Totals(ctx)
	if err != nil {
		return nil, normalizeError(err)
	}

	report := &domain.ConsistencyReport{
		Totals:    *totals,
		CheckedAt: uc.now(),
	}

	// 1. Balances are fully explained by the journal
	if !totals.AccountBalance.Equal(totals.EntryAmount) {
		report.Problems = append(report.Problems, fmt.Sprintf(
			"account balances %s differ from journal total %s",
			domain.FormatAmount(totals.AccountBalance), domain.FormatAmount(totals.EntryAmount)))
	}

	// 2. Money only enters through deposits and leaves through withdrawals
	external := totals.Deposits.Sub(totals.Withdrawals)
	if !external.Equal(totals.EntryAmount) {
		report.Problems = append(report.Problems, fmt.Sprintf(
			"deposits minus withdrawals %s differ from journal total %s",
			domain.FormatAmount(external), domain.FormatAmount(totals.EntryAmount)))
	}

	if totals.UnbalancedTransfers > 0 {
		report.Problems = append(report.Problems, fmt.Sprintf("%d transfers do not net to zero", totals.UnbalancedTransfers))
	}

	if totals.NegativeAccounts > 0 {
		report.Problems = append(report.Problems, fmt.Sprintf("%d accounts have a negative balance", totals.NegativeAccounts))
	}

	report.Consistent = len(report.Problems) == 0
	if !report.Consistent {
		return report, ErrInconsistentLedger
	}

	return report, nil
}

// ReconcileAccount compares one account's balance with the sum of its journal
// entries. A mismatch is reported together with ErrInconsistentLedger.
func (uc *LedgerUseCase) ReconcileAccount(ctx context.Context, accountID string) (*domain.AccountReconciliation, error) {
	if accountID == "" {
		return nil, domain.ErrAccountNotFound
	}

	totals, err := uc.ledgerRepo.AccountTotals(ctx, accountID)
	if err != nil {
		return nil, normalizeError(err)
	}

	diff := totals.Balance.Sub(totals.EntryAmount)
	result := &domain.AccountReconciliation{
		Totals:     *totals,
		Difference: diff,
		Reconciled: diff.IsZero(),
		CheckedAt:  uc.now(),
	}

	if !result.Reconciled {
		return result, fmt.Errorf("%w: account %s is off by %s", ErrInconsistentLedger, accountID, domain.FormatAmount(diff))
	}

	return result, nil
}
