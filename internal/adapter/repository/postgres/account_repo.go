package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

const accountColumns = `id, name, balance, status, version, created_at, updated_at`

const (
	createAccountSQL = `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	getAccountSQL = `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	listAccountsSQL = `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE ($1 = '' OR status = $1)
		ORDER BY id
		LIMIT $2 OFFSET $3`

	lockAccountsSQL = `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE`

	// conditionalAdjustSQL applies the delta and writes the journal entry in
	// one statement. The guard is evaluated by the row update itself, so two
	// concurrent callers can never both pass it against the same balance.
	conditionalAdjustSQL = `
		WITH updated AS (
			UPDATE accounts
			SET balance = balance + $2,
			    version = version + 1,
			    updated_at = $7
			WHERE id = $1
			  AND status = 'active'
			  AND balance + $2 >= $3
			  AND ($4::bigint = 0 OR version = $4::bigint)
			RETURNING id, balance, version
		), journal AS (
			INSERT INTO entries (id, account_id, operation_id, operation, amount, balance_after, account_version, created_at)
			SELECT $5, id, $6, $8, $2, balance, version, $7 FROM updated
		)
		SELECT balance, version FROM updated`

	setStatusSQL = `
		UPDATE accounts
		SET status = $2, version = version + 1, updated_at = $3
		WHERE id = $1 AND status <> $2
		RETURNING ` + accountColumns
)

// AccountRepository implements usecase.AccountStore on PostgreSQL.
type AccountRepository struct {
	db dbtx
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return newAccountRepository(pool)
}

func newAccountRepository(db dbtx) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create inserts a new account.
func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	_, err := r.db.Exec(ctx, createAccountSQL,
		account.ID,
		account.Name,
		decimalToNumeric(account.Balance),
		string(account.Status),
		account.Version,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAccountExists
		}

		return mapError(err)
	}

	return nil
}

// Get retrieves an account by ID.
func (r *AccountRepository) Get(ctx context.Context, id string) (*domain.Account, error) {
	return getAccount(ctx, r.db, id)
}

// List lists accounts ordered by ID.
func (r *AccountRepository) List(ctx context.Context, filter domain.AccountFilter) ([]*domain.Account, error) {
	rows, err := r.db.Query(ctx, listAccountsSQL, string(filter.Status), filter.Limit, filter.Offset)
	if err != nil {
		return nil, mapError(err)
	}

	return collectAccounts(rows)
}

// ConditionalAdjust applies the adjustment in its own implicit transaction.
func (r *AccountRepository) ConditionalAdjust(ctx context.Context, params usecase.AdjustParams) (*domain.Adjustment, error) {
	return conditionalAdjust(ctx, r.db, params)
}

// ConditionalAdjustTx applies the adjustment inside tx.
func (r *AccountRepository) ConditionalAdjustTx(ctx context.Context, tx usecase.Transaction, params usecase.AdjustParams) (*domain.Adjustment, error) {
	pgxTx, err := pgxTxFrom(tx)
	if err != nil {
		return nil, err
	}

	return conditionalAdjust(ctx, pgxTx, params)
}

// LockForUpdate locks the rows of ids in ascending ID order.
func (r *AccountRepository) LockForUpdate(ctx context.Context, tx usecase.Transaction, ids []string) ([]*domain.Account, error) {
	pgxTx, err := pgxTxFrom(tx)
	if err != nil {
		return nil, err
	}

	rows, err := pgxTx.Query(ctx, lockAccountsSQL, ids)
	if err != nil {
		return nil, mapError(err)
	}

	return collectAccounts(rows)
}

// SetStatus changes the account status. An account already in the requested
// status is returned unchanged.
func (r *AccountRepository) SetStatus(ctx context.Context, id string, status domain.AccountStatus, at time.Time) (*domain.Account, error) {
	if !status.IsValid() {
		return nil, domain.ErrInvalidStatus
	}

	account, err := scanAccount(r.db.QueryRow(ctx, setStatusSQL, id, string(status), at))
	if err == nil {
		return account, nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, mapError(err)
	}

	return r.Get(ctx, id)
}

func conditionalAdjust(ctx context.Context, db dbtx, params usecase.AdjustParams) (*domain.Adjustment, error) {
	var (
		balance pgtype.Numeric
		version int64
	)

	err := db.QueryRow(ctx, conditionalAdjustSQL,
		params.AccountID,
		decimalToNumeric(params.Delta),
		decimalToNumeric(params.MinBalance),
		params.ExpectedVersion,
		params.EntryID,
		params.OperationID,
		params.At,
		string(params.Operation),
	).Scan(&balance, &version)
	if err == nil {
		return &domain.Adjustment{
			AccountID:  params.AccountID,
			Delta:      params.Delta,
			NewBalance: numericToDecimal(balance),
			NewVersion: version,
		}, nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, mapError(err)
	}

	return nil, diagnoseRejection(ctx, db, params)
}

// diagnoseRejection explains why the guarded update matched no row.
func diagnoseRejection(ctx context.Context, db dbtx, params usecase.AdjustParams) error {
	account, err := getAccount(ctx, db, params.AccountID)
	if err != nil {
		return err
	}

	if !account.IsActive() {
		return domain.ErrAccountLocked
	}

	if params.ExpectedVersion > 0 && account.Version != params.ExpectedVersion {
		return domain.ErrConcurrencyConflict
	}

	return domain.ErrInsufficientFunds
}

func getAccount(ctx context.Context, db dbtx, id string) (*domain.Account, error) {
	account, err := scanAccount(db.QueryRow(ctx, getAccountSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}

		return nil, mapError(err)
	}

	return account, nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		account domain.Account
		balance pgtype.Numeric
		status  string
	)

	if err := row.Scan(
		&account.ID,
		&account.Name,
		&balance,
		&status,
		&account.Version,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return nil, err
	}

	account.Balance = numericToDecimal(balance)
	account.Status = domain.AccountStatus(status)

	return &account, nil
}

func collectAccounts(rows pgx.Rows) ([]*domain.Account, error) {
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, mapError(err)
		}

		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	return accounts, nil
}
