package audit

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/iho/bankledger/internal/adapter/repository/memory"
	redisRepo "github.com/iho/bankledger/internal/adapter/repository/redis"
	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/infrastructure/logger"
	"github.com/iho/bankledger/internal/usecase/mocks"
)

func TestReplayer_ReplayOnce(t *testing.T) {
	a, b, c := testEntry("a"), testEntry("b"), testEntry("c")

	tests := []struct {
		name        string
		setup       func(repo *mocks.MockAuditRepository, dl *mocks.MockAuditDeadLetter)
		wantWritten int
		wantErr     bool
	}{
		{
			name: "empty dead letter",
			setup: func(_ *mocks.MockAuditRepository, dl *mocks.MockAuditDeadLetter) {
				dl.EXPECT().Pop(gomock.Any(), 10).Return(nil, nil)
			},
		},
		{
			name: "all written",
			setup: func(repo *mocks.MockAuditRepository, dl *mocks.MockAuditDeadLetter) {
				dl.EXPECT().Pop(gomock.Any(), 10).Return([]*domain.AuditEntry{a, b}, nil)
				repo.EXPECT().Create(gomock.Any(), a).Return(nil)
				repo.EXPECT().Create(gomock.Any(), b).Return(nil)
			},
			wantWritten: 2,
		},
		{
			name: "failures requeued",
			setup: func(repo *mocks.MockAuditRepository, dl *mocks.MockAuditDeadLetter) {
				dl.EXPECT().Pop(gomock.Any(), 10).Return([]*domain.AuditEntry{a, b, c}, nil)
				repo.EXPECT().Create(gomock.Any(), a).Return(nil)
				repo.EXPECT().Create(gomock.Any(), b).Return(errors.New("db down"))
				repo.EXPECT().Create(gomock.Any(), c).Return(errors.New("db down"))
				dl.EXPECT().Requeue(gomock.Any(), []*domain.AuditEntry{b, c}).Return(nil)
			},
			wantWritten: 1,
		},
		{
			name: "requeue failure reported",
			setup: func(repo *mocks.MockAuditRepository, dl *mocks.MockAuditDeadLetter) {
				dl.EXPECT().Pop(gomock.Any(), 10).Return([]*domain.AuditEntry{a}, nil)
				repo.EXPECT().Create(gomock.Any(), a).Return(errors.New("db down"))
				dl.EXPECT().Requeue(gomock.Any(), gomock.Any()).Return(errors.New("redis down"))
			},
			wantErr: true,
		},
		{
			name: "decoded entries replayed despite undecodable payloads",
			setup: func(repo *mocks.MockAuditRepository, dl *mocks.MockAuditDeadLetter) {
				dl.EXPECT().Pop(gomock.Any(), 10).Return([]*domain.AuditEntry{a, b, c}, errors.New("invalid character 'n'"))
				repo.EXPECT().Create(gomock.Any(), a).Return(nil)
				repo.EXPECT().Create(gomock.Any(), b).Return(nil)
				repo.EXPECT().Create(gomock.Any(), c).Return(nil)
			},
			wantWritten: 3,
			wantErr:     true,
		},
		{
			name: "decoded entries requeued despite undecodable payloads",
			setup: func(repo *mocks.MockAuditRepository, dl *mocks.MockAuditDeadLetter) {
				dl.EXPECT().Pop(gomock.Any(), 10).Return([]*domain.AuditEntry{a, b}, errors.New("invalid character 'n'"))
				repo.EXPECT().Create(gomock.Any(), a).Return(nil)
				repo.EXPECT().Create(gomock.Any(), b).Return(errors.New("db down"))
				dl.EXPECT().Requeue(gomock.Any(), []*domain.AuditEntry{b}).Return(nil)
			},
			wantWritten: 1,
			wantErr:     true,
		},
		{
			name: "pop failure",
			setup: func(_ *mocks.MockAuditRepository, dl *mocks.MockAuditDeadLetter) {
				dl.EXPECT().Pop(gomock.Any(), 10).Return(nil, errors.New("redis down"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			repo := mocks.NewMockAuditRepository(ctrl)
			dl := mocks.NewMockAuditDeadLetter(ctrl)
			tt.setup(repo, dl)

			r := NewReplayer(ReplayerConfig{
				Repository: repo,
				DeadLetter: dl,
				Logger:     zerolog.Nop(),
				BatchSize:  10,
			})

			written, err := r.ReplayOnce(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantWritten, written)
		})
	}
}

func TestReplayer_StartStopsOnCancel(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockAuditRepository(ctrl)
	dl := mocks.NewMockAuditDeadLetter(ctrl)
	dl.EXPECT().Pop(gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()

	r := NewReplayer(ReplayerConfig{
		Repository: repo,
		DeadLetter: dl,
		Logger:     zerolog.Nop(),
		Interval:   5 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := r.Start(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestReplayer_CorruptPayloadDoesNotLoseNeighbours(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	dl := redisRepo.NewAuditDeadLetter(client)
	require.NoError(t, dl.Push(ctx, testEntry("a")))
	require.NoError(t, dl.Push(ctx, testEntry("b")))
	_, err := mr.Push("bankledger:audit:dead-letter", "{not json")
	require.NoError(t, err)
	require.NoError(t, dl.Push(ctx, testEntry("c")))

	repo := memory.NewAuditRepository()
	r := NewReplayer(ReplayerConfig{Repository: repo, DeadLetter: dl, Logger: zerolog.Nop(), BatchSize: 10})

	written, err := r.ReplayOnce(ctx)
	assert.Error(t, err)
	assert.Equal(t, 3, written)

	stored, err := repo.List(ctx, domain.AuditFilter{})
	require.NoError(t, err)
	assert.Len(t, stored, 3)

	left, err := dl.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, left)
}

func TestReplayer_LogsComponentOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockAuditRepository(ctrl)
	dl := mocks.NewMockAuditDeadLetter(ctrl)
	a := testEntry("a")
	dl.EXPECT().Pop(gomock.Any(), gomock.Any()).Return([]*domain.AuditEntry{a}, nil)
	repo.EXPECT().Create(gomock.Any(), a).Return(nil)

	var buf bytes.Buffer
	r := NewReplayer(ReplayerConfig{
		Repository: repo,
		DeadLetter: dl,
		Logger:     logger.Component(zerolog.New(&buf), "audit_replayer"),
	})

	written, err := r.ReplayOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, written)
	assertSingleComponent(t, buf.String(), "audit_replayer")
}
