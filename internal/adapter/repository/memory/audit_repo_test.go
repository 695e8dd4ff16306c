package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/bankledger/internal/domain"
)

func TestAuditRepository_CreateAndList(t *testing.T) {
	ctx := context.Background()
	repo := NewAuditRepository()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	entries := []*domain.AuditEntry{
		{ID: "1", ActorID: "alice", Operation: domain.OperationDeposit, TargetAccounts: []string{"a"}, Outcome: domain.AuditOutcomeSuccess, CreatedAt: base},
		{ID: "2", ActorID: "bob", Operation: domain.OperationTransfer, TargetAccounts: []string{"a", "b"}, Outcome: domain.AuditOutcomeFailure, CreatedAt: base.Add(time.Minute)},
		{ID: "3", ActorID: "alice", Operation: domain.OperationWithdraw, TargetAccounts: []string{"b"}, Outcome: domain.AuditOutcomeSuccess, CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, e := range entries {
		require.NoError(t, repo.Create(ctx, e))
	}
	require.NoError(t, repo.Create(ctx, entries[0]))

	since := base.Add(30 * time.Second)

	tests := []struct {
		name   string
		filter domain.AuditFilter
		want   []string
	}{
		{name: "all newest first", filter: domain.AuditFilter{}, want: []string{"3", "2", "1"}},
		{name: "by actor", filter: domain.AuditFilter{ActorID: "alice"}, want: []string{"3", "1"}},
		{name: "by account", filter: domain.AuditFilter{AccountID: "b"}, want: []string{"3", "2"}},
		{name: "by outcome", filter: domain.AuditFilter{Outcome: domain.AuditOutcomeFailure}, want: []string{"2"}},
		{name: "by operation", filter: domain.AuditFilter{Operation: domain.OperationDeposit}, want: []string{"1"}},
		{name: "since", filter: domain.AuditFilter{Since: &since}, want: []string{"3", "2"}},
		{name: "paged", filter: domain.AuditFilter{Limit: 1, Offset: 1}, want: []string{"2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.List(ctx, tt.filter)
			require.NoError(t, err)

			ids := make([]string, 0, len(got))
			for _, e := range got {
				ids = append(ids, e.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}
