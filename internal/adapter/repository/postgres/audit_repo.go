package postgres

import (
	"context"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/bankledger/internal/domain"
)

// AuditRepository implements usecase.AuditRepository. The audit_entries
// table rejects UPDATE and DELETE at the database level.
type AuditRepository struct {
	db dbtx
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{db: pool}
}

// Create inserts an audit entry. Inserting an ID twice is a no-op, which
// keeps dead-letter replays idempotent.
func (r *AuditRepository) Create(ctx context.Context, entry *domain.AuditEntry) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO audit_entries (
			id, operation_id, actor_id, operation, target_accounts,
			amount, outcome, error_kind, reason, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING`,
		entry.ID,
		entry.OperationID,
		entry.ActorID,
		string(entry.Operation),
		entry.TargetAccounts,
		decimalToNumeric(entry.Amount),
		string(entry.Outcome),
		string(entry.ErrorKind),
		entry.Reason,
		entry.CreatedAt,
	)

	return mapError(err)
}

// List retrieves audit entries with filtering, most recent first.
func (r *AuditRepository) List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditEntry, error) {
	var (
		query strings.Builder
		args  []any
	)

	query.WriteString(`
		SELECT id, operation_id, actor_id, operation, target_accounts,
		       amount, outcome, error_kind, reason, created_at
		FROM audit_entries
		WHERE 1=1`)

	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.ActorID != "" {
		query.WriteString(` AND actor_id = ` + arg(filter.ActorID))
	}

	if filter.Operation != "" {
		query.WriteString(` AND operation = ` + arg(string(filter.Operation)))
	}

	if filter.Outcome != "" {
		query.WriteString(` AND outcome = ` + arg(string(filter.Outcome)))
	}

	if filter.AccountID != "" {
		query.WriteString(` AND ` + arg(filter.AccountID) + ` = ANY(target_accounts)`)
	}

	if filter.Since != nil {
		query.WriteString(` AND created_at >= ` + arg(*filter.Since))
	}

	query.WriteString(` ORDER BY created_at DESC, id DESC`)

	if filter.Limit > 0 {
		query.WriteString(` LIMIT ` + arg(filter.Limit))
	}

	if filter.Offset > 0 {
		query.WriteString(` OFFSET ` + arg(filter.Offset))
	}

	rows, err := r.db.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var entries []*domain.AuditEntry
	for rows.Next() {
		var (
			e                             domain.AuditEntry
			operation, outcome, errorKind string
			amount                        pgtype.Numeric
		)

		if err := rows.Scan(
			&e.ID,
			&e.OperationID,
			&e.ActorID,
			&operation,
			&e.TargetAccounts,
			&amount,
			&outcome,
			&errorKind,
			&e.Reason,
			&e.CreatedAt,
		); err != nil {
			return nil, mapError(err)
		}

		e.Operation = domain.OperationType(operation)
		e.Outcome = domain.AuditOutcome(outcome)
		e.ErrorKind = domain.ErrorKind(errorKind)
		e.Amount = numericToDecimal(amount)
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	return entries, nil
}
