package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/iho/bankledger/internal/domain"
)

// AuditRepository keeps audit entries in memory, append-only.
type AuditRepository struct {
	mu      sync.RWMutex
	entries []domain.AuditEntry
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository() *AuditRepository {
	return &AuditRepository{}
}

// Create appends an audit entry. Re-creating an existing ID is a no-op so
// replays stay idempotent.
func (r *AuditRepository) Create(ctx context.Context, entry *domain.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.entries {
		if r.entries[i].ID == entry.ID {
			return nil
		}
	}

	e := *entry
	e.TargetAccounts = slices.Clone(entry.TargetAccounts)
	r.entries = append(r.entries, e)

	return nil
}

// List returns matching entries, most recent first.
func (r *AuditRepository) List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*domain.AuditEntry

	skipped := 0
	for i := len(r.entries) - 1; i >= 0; i-- {
		e := r.entries[i]
		if !matches(&e, filter) {
			continue
		}

		if skipped < filter.Offset {
			skipped++
			continue
		}

		e.TargetAccounts = slices.Clone(e.TargetAccounts)
		result = append(result, &e)

		if filter.Limit > 0 && len(result) == filter.Limit {
			break
		}
	}

	return result, nil
}

func matches(e *domain.AuditEntry, f domain.AuditFilter) bool {
	if f.ActorID != "" && e.ActorID != f.ActorID {
		return false
	}

	if f.Operation != "" && e.Operation != f.Operation {
		return false
	}

	if f.Outcome != "" && e.Outcome != f.Outcome {
		return false
	}

	if f.AccountID != "" && !slices.Contains(e.TargetAccounts, f.AccountID) {
		return false
	}

	if f.Since != nil && e.CreatedAt.Before(*f.Since) {
		return false
	}

	return true
}
