package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/bankledger/internal/domain"
)

const entryColumns = `id, account_id, operation_id, operation, amount, balance_after, account_version, created_at`

// EntryRepository implements usecase.EntryRepository.
type EntryRepository struct {
	db dbtx
}

// NewEntryRepository creates a new EntryRepository.
func NewEntryRepository(pool *pgxpool.Pool) *EntryRepository {
	return &EntryRepository{db: pool}
}

// ListByAccount lists the entries of an account, newest first.
func (r *EntryRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Entry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+entryColumns+`
		FROM entries
		WHERE account_id = $1
		ORDER BY account_version DESC
		LIMIT $2 OFFSET $3`, accountID, limit, offset)
	if err != nil {
		return nil, mapError(err)
	}

	return collectEntries(rows)
}

// ListByOperation lists the entries written by one operation.
func (r *EntryRepository) ListByOperation(ctx context.Context, operationID string) ([]*domain.Entry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+entryColumns+`
		FROM entries
		WHERE operation_id = $1
		ORDER BY id`, operationID)
	if err != nil {
		return nil, mapError(err)
	}

	return collectEntries(rows)
}

func collectEntries(rows pgx.Rows) ([]*domain.Entry, error) {
	defer rows.Close()

	var entries []*domain.Entry
	for rows.Next() {
		var (
			e            domain.Entry
			operation    string
			amount       pgtype.Numeric
			balanceAfter pgtype.Numeric
		)

		if err := rows.Scan(
			&e.ID,
			&e.AccountID,
			&e.OperationID,
			&operation,
			&amount,
			&balanceAfter,
			&e.AccountVersion,
			&e.CreatedAt,
		); err != nil {
			return nil, mapError(err)
		}

		e.Operation = domain.OperationType(operation)
		e.Amount = numericToDecimal(amount)
		e.BalanceAfter = numericToDecimal(balanceAfter)
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	return entries, nil
}
