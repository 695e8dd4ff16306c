package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/bankledger/internal/domain"
)

// totalsSQL runs as one statement so every figure comes from the same
// snapshot.
const totalsSQL = `
	SELECT
		(SELECT COALESCE(SUM(balance), 0) FROM accounts),
		(SELECT COALESCE(SUM(amount), 0) FROM entries),
		(SELECT COALESCE(SUM(amount), 0) FROM entries WHERE operation = 'deposit'),
		(SELECT COALESCE(-SUM(amount), 0) FROM entries WHERE operation = 'withdraw'),
		(SELECT COUNT(*) FROM (
			SELECT operation_id FROM entries
			WHERE operation = 'transfer'
			GROUP BY operation_id
			HAVING SUM(amount) <> 0
		) unbalanced),
		(SELECT COUNT(*) FROM accounts WHERE balance < 0)`

const accountTotalsSQL = `
	SELECT a.balance,
		COALESCE(SUM(e.amount), 0),
		COUNT(e.id)
	FROM accounts a
	LEFT JOIN entries e ON e.account_id = a.id
	WHERE a.id = $1
	GROUP BY a.id, a.balance`

// LedgerRepository implements usecase.LedgerRepository.
type LedgerRepository struct {
	db dbtx
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{db: pool}
}

// Totals returns the conservation figures of the whole ledger.
func (r *LedgerRepository) Totals(ctx context.Context) (*domain.LedgerTotals, error) {
	var (
		balance, amount, deposits, withdrawals pgtype.Numeric
		totals                                 domain.LedgerTotals
	)

	err := r.db.QueryRow(ctx, totalsSQL).Scan(
		&balance,
		&amount,
		&deposits,
		&withdrawals,
		&totals.UnbalancedTransfers,
		&totals.NegativeAccounts,
	)
	if err != nil {
		return nil, mapError(err)
	}

	totals.AccountBalance = numericToDecimal(balance)
	totals.EntryAmount = numericToDecimal(amount)
	totals.Deposits = numericToDecimal(deposits)
	totals.Withdrawals = numericToDecimal(withdrawals)

	return &totals, nil
}

// AccountTotals returns one account's balance next to its journal total.
func (r *LedgerRepository) AccountTotals(ctx context.Context, accountID string) (*domain.AccountTotals, error) {
	var (
		balance, amount pgtype.Numeric
		totals          = domain.AccountTotals{AccountID: accountID}
	)

	err := r.db.QueryRow(ctx, accountTotalsSQL, accountID).Scan(&balance, &amount, &totals.EntryCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, mapError(err)
	}

	totals.Balance = numericToDecimal(balance)
	totals.EntryAmount = numericToDecimal(amount)

	return &totals, nil
}
