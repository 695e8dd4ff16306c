package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/iho/bankledger/internal/domain"
)

// Config controls the retry budget.
type Config struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// OnRetry is called before every retry.
	OnRetry func()
}

// Retrier implements usecase.Retrier with exponential backoff. Only
// domain.ErrConcurrencyConflict is retried; every other error is returned
// immediately.
type Retrier struct {
	maxRetries      int
	initialInterval time.Duration
	maxInterval     time.Duration
	onRetry         func()
	logger          zerolog.Logger
}

// New creates a new Retrier.
func New(cfg Config, logger zerolog.Logger) *Retrier {
	r := &Retrier{
		maxRetries:      cfg.MaxRetries,
		initialInterval: cfg.InitialInterval,
		maxInterval:     cfg.MaxInterval,
		onRetry:         cfg.OnRetry,
		logger:          logger,
	}

	if r.maxRetries < 0 {
		r.maxRetries = 0
	}

	if r.initialInterval <= 0 {
		r.initialInterval = 10 * time.Millisecond
	}

	if r.maxInterval <= 0 {
		r.maxInterval = 500 * time.Millisecond
	}

	return r
}

// Retry executes operation, retrying concurrency conflicts at most
// maxRetries times. The caller's context bounds the total time spent.
func (r *Retrier) Retry(ctx context.Context, operation func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.initialInterval
	b.MaxInterval = r.maxInterval
	b.MaxElapsedTime = 0

	retryCount := 0

	return backoff.Retry(func() error {
		err := operation()
		if err == nil {
			return nil
		}

		if !errors.Is(err, domain.ErrConcurrencyConflict) {
			return backoff.Permanent(err)
		}

		retryCount++
		if retryCount > r.maxRetries {
			return backoff.Permanent(err)
		}

		if r.onRetry != nil {
			r.onRetry()
		}

		r.logger.Warn().Err(err).Int("retry", retryCount).Msg("concurrency conflict, retrying")

		return err
	}, backoff.WithContext(b, ctx))
}
