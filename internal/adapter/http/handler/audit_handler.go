package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/iho/bankledger/internal/adapter/http/dto"
	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

// AuditService defines the audit queries needed by AuditHandler.
type AuditService interface {
	ListAuditEntries(ctx context.Context, input usecase.ListAuditInput) ([]*domain.AuditEntry, error)
}

// AuditHandler serves the audit trail.
type AuditHandler struct {
	auditUC AuditService
}

// NewAuditHandler creates a new AuditHandler.
func NewAuditHandler(auditUC AuditService) *AuditHandler {
	return &AuditHandler{auditUC: auditUC}
}

// List returns audit entries, newest first. Supported filters are actor,
// operation, account, outcome and since (RFC3339).
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	input := usecase.ListAuditInput{
		ActorID:   q.Get("actor"),
		Operation: q.Get("operation"),
		AccountID: q.Get("account"),
		Outcome:   q.Get("outcome"),
		Limit:     parseIntQuery(r, "limit", domain.DefaultPageSize),
		Offset:    parseIntQuery(r, "offset", 0),
	}

	if s := q.Get("since"); s != "" {
		since, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid 'since' format (use RFC3339)", err.Error())
			return
		}
		input.Since = &since
	}

	entries, err := h.auditUC.ListAuditEntries(r.Context(), input)
	if err != nil {
		writeDomainError(w, "failed to list audit entries", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AuditEntriesFromDomain(entries))
}
