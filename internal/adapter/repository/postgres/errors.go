package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/iho/bankledger/internal/domain"
)

// PostgreSQL error codes the ledger reacts to.
const (
	pgErrSerializationFailure = "40001"
	pgErrDeadlock             = "40P01"
	pgErrLockNotAvailable     = "55P03"
	pgErrUniqueViolation      = "23505"
	pgErrCheckViolation       = "23514"
)

const balanceCheckConstraint = "accounts_balance_non_negative"

// mapError translates driver errors into domain errors. Retryable database
// conflicts become domain.ErrConcurrencyConflict and everything else that is
// not a business rule becomes domain.ErrPersistenceFailure.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgErrSerializationFailure, pgErrDeadlock, pgErrLockNotAvailable:
			return fmt.Errorf("%w: %s", domain.ErrConcurrencyConflict, pgErr.Message)
		case pgErrCheckViolation:
			if pgErr.ConstraintName == balanceCheckConstraint {
				return domain.ErrInsufficientFunds
			}
		}
	}

	return fmt.Errorf("%w: %w", domain.ErrPersistenceFailure, err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation
}
