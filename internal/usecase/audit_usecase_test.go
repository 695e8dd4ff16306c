package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
	"github.com/iho/bankledger/internal/usecase/mocks"
)

func TestAuditUseCase_ListAuditEntries(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockAuditRepository(ctrl)
	repo.EXPECT().List(gomock.Any(), domain.AuditFilter{
		ActorID:   "alice",
		Operation: domain.OperationTransfer,
		Limit:     domain.DefaultPageSize,
	}).Return([]*domain.AuditEntry{{ID: "a1", ActorID: "alice"}}, nil)

	uc := usecase.NewAuditUseCase(repo)

	entries, err := uc.ListAuditEntries(context.Background(), usecase.ListAuditInput{
		ActorID:   "alice",
		Operation: "transfer",
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a1", entries[0].ID)
}

func TestActorFromContext(t *testing.T) {
	assert.Equal(t, usecase.SystemActor, usecase.ActorFromContext(context.Background()))
	assert.Equal(t, "bob", usecase.ActorFromContext(usecase.WithActor(context.Background(), "bob")))
	assert.Equal(t, usecase.SystemActor, usecase.ActorFromContext(usecase.WithActor(context.Background(), "")))
}
