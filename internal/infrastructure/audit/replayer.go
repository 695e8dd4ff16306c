package audit

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

// Replayer moves dead-lettered audit entries back into the repository.
type Replayer struct {
	repo       usecase.AuditRepository
	deadLetter usecase.AuditDeadLetter
	metrics    Metrics
	logger     zerolog.Logger
	batchSize  int
	interval   time.Duration
}

// ReplayerConfig for Replayer.
type ReplayerConfig struct {
	Repository usecase.AuditRepository
	DeadLetter usecase.AuditDeadLetter
	Metrics    Metrics
	Logger     zerolog.Logger
	BatchSize  int           // Number of entries to pop per batch
	Interval   time.Duration // Polling interval
}

// NewReplayer creates a new Replayer.
func NewReplayer(cfg ReplayerConfig) *Replayer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.Metrics == nil {
		cfg.Metrics = nopMetrics{}
	}

	return &Replayer{
		repo:       cfg.Repository,
		deadLetter: cfg.DeadLetter,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
		batchSize:  cfg.BatchSize,
		interval:   cfg.Interval,
	}
}

// Start runs the replay loop until ctx is cancelled.
func (r *Replayer) Start(ctx context.Context) error {
	r.logger.Info().Int("batch_size", r.batchSize).Dur("interval", r.interval).Msg("audit replayer started")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("audit replayer shutting down")
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.ReplayOnce(ctx); err != nil {
				r.logger.Error().Err(err).Msg("error replaying audit entries")
			}
		}
	}
}

// ReplayOnce replays a single batch and returns how many entries were
// written. Entries that fail again are requeued. A Pop error that comes with
// decoded entries does not stop those entries from being replayed; it is
// returned after them.
func (r *Replayer) ReplayOnce(ctx context.Context) (int, error) {
	entries, popErr := r.deadLetter.Pop(ctx, r.batchSize)
	if popErr != nil {
		if len(entries) == 0 {
			return 0, popErr
		}
		r.logger.Error().Err(popErr).Int("decoded", len(entries)).Msg("dead letter batch partially undecodable")
	}

	if len(entries) == 0 {
		return 0, nil
	}

	var failed []*domain.AuditEntry

	for _, entry := range entries {
		if err := r.repo.Create(ctx, entry); err != nil {
			r.logger.Warn().Err(err).Str("audit_id", entry.ID).Msg("audit replay failed")
			failed = append(failed, entry)

			continue
		}

		r.metrics.AuditResult(ResultWritten)
	}

	written := len(entries) - len(failed)

	if len(failed) > 0 {
		// Requeue must outlive a cancelled ctx or the popped entries are lost.
		if err := r.deadLetter.Requeue(context.WithoutCancel(ctx), failed); err != nil {
			for _, entry := range failed {
				r.metrics.AuditResult(ResultLost)
				r.logger.Error().Err(err).
					Str("audit_id", entry.ID).
					Str("operation_id", entry.OperationID).
					Str("actor", entry.ActorID).
					Str("operation", string(entry.Operation)).
					Strs("accounts", entry.TargetAccounts).
					Str("amount", domain.FormatAmount(entry.Amount)).
					Str("outcome", string(entry.Outcome)).
					Str("error_kind", string(entry.ErrorKind)).
					Msg("audit entry lost")
			}

			return written, errors.Join(popErr, err)
		}
	}

	if written > 0 {
		r.logger.Info().Int("written", written).Int("requeued", len(failed)).Msg("audit entries replayed")
	}

	return written, popErr
}
