package usecase

import (
	"context"
	"time"

	"github.com/iho/bankledger/internal/domain"
)

// AuditUseCase answers questions about past ledger operations.
type AuditUseCase struct {
	auditRepo AuditRepository
}

// NewAuditUseCase creates a new AuditUseCase.
func NewAuditUseCase(auditRepo AuditRepository) *AuditUseCase {
	return &AuditUseCase{auditRepo: auditRepo}
}

// ListAuditInput represents input for querying audit entries.
type ListAuditInput struct {
	ActorID   string
	Operation string
	AccountID string
	Outcome   string
	Since     *time.Time
	Limit     int
	Offset    int
}

// ListAuditEntries returns matching audit entries, most recent first.
func (uc *AuditUseCase) ListAuditEntries(ctx context.Context, input ListAuditInput) ([]*domain.AuditEntry, error) {
	filter := domain.AuditFilter{
		ActorID:   input.ActorID,
		Operation: domain.OperationType(input.Operation),
		AccountID: input.AccountID,
		Outcome:   domain.AuditOutcome(input.Outcome),
		Since:     input.Since,
	}
	filter.Limit, filter.Offset = domain.ValidatePagination(input.Limit, input.Offset)

	entries, err := uc.auditRepo.List(ctx, filter)
	if err != nil {
		return nil, normalizeError(err)
	}

	return entries, nil
}
