// Package audit delivers audit entries to durable storage without ever
// blocking or failing the ledger operation that produced them.
package audit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

// Results reported to Metrics.
const (
	ResultWritten      = "written"
	ResultDeadLettered = "dead_lettered"
	ResultLost         = "lost"
)

// Metrics receives audit delivery measurements.
type Metrics interface {
	AuditResult(result string)
	AuditQueueDepth(depth int)
}

// Config for Recorder.
type Config struct {
	Repository usecase.AuditRepository
	// DeadLetter holds entries the repository rejected. Optional.
	DeadLetter   usecase.AuditDeadLetter
	Metrics      Metrics
	Logger       zerolog.Logger
	QueueSize    int
	Workers      int
	MaxRetries   int
	WriteTimeout time.Duration
	// BreakerTimeout is how long the breaker stays open before probing.
	BreakerTimeout time.Duration
	// BreakerFailures is the number of consecutive failures that opens it.
	BreakerFailures uint32
}

// Recorder implements usecase.AuditRecorder with a bounded queue drained by
// a pool of workers. Writes go through a circuit breaker and are retried with
// exponential backoff. Entries that still cannot be written are pushed to the
// dead letter; if that fails too they are logged in full at error level and
// counted as lost.
type Recorder struct {
	repo         usecase.AuditRepository
	deadLetter   usecase.AuditDeadLetter
	metrics      Metrics
	logger       zerolog.Logger
	breaker      *gobreaker.CircuitBreaker
	workers      int
	maxRetries   int
	writeTimeout time.Duration

	queue   chan *domain.AuditEntry
	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

// NewRecorder creates a new Recorder. Call Start to launch the workers.
func NewRecorder(cfg Config) *Recorder {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 2 * time.Second
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = 10 * time.Second
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.Metrics == nil {
		cfg.Metrics = nopMetrics{}
	}

	logger := cfg.Logger

	r := &Recorder{
		repo:         cfg.Repository,
		deadLetter:   cfg.DeadLetter,
		metrics:      cfg.Metrics,
		logger:       logger,
		workers:      cfg.Workers,
		maxRetries:   cfg.MaxRetries,
		writeTimeout: cfg.WriteTimeout,
		queue:        make(chan *domain.AuditEntry, cfg.QueueSize),
	}

	failures := cfg.BreakerFailures
	r.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "audit-repository",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})

	return r
}

// Start launches the workers.
func (r *Recorder) Start() {
	r.logger.Info().Int("workers", r.workers).Int("queue_size", cap(r.queue)).Msg("audit recorder started")

	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go r.work()
	}
}

// Record queues entry for delivery. When the queue is full, or the recorder
// has been stopped, the entry is written synchronously instead of dropped.
func (r *Recorder) Record(ctx context.Context, entry *domain.AuditEntry) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.stopped {
		select {
		case r.queue <- entry:
			r.metrics.AuditQueueDepth(len(r.queue))
			return
		default:
			r.logger.Warn().Str("audit_id", entry.ID).Msg("audit queue full, writing inline")
		}
	}

	r.deliver(ctx, entry)
}

// Stop stops accepting queued entries and waits for the queue to drain.
func (r *Recorder) Stop(ctx context.Context) error {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return nil
	}
	r.stopped = true
	close(r.queue)
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info().Msg("audit recorder drained")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Recorder) work() {
	defer r.wg.Done()

	for entry := range r.queue {
		r.metrics.AuditQueueDepth(len(r.queue))
		r.deliver(context.Background(), entry)
	}
}

// deliver writes entry, falling back to the dead letter and finally to the
// log.
func (r *Recorder) deliver(ctx context.Context, entry *domain.AuditEntry) {
	err := r.write(ctx, entry)
	if err == nil {
		r.metrics.AuditResult(ResultWritten)
		return
	}

	if r.deadLetter != nil {
		dlCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.writeTimeout)
		dlErr := r.deadLetter.Push(dlCtx, entry)
		cancel()

		if dlErr == nil {
			r.metrics.AuditResult(ResultDeadLettered)
			r.logger.Warn().Err(err).Str("audit_id", entry.ID).Msg("audit entry dead-lettered")
			return
		}

		err = errors.Join(err, dlErr)
	}

	r.metrics.AuditResult(ResultLost)
	r.logger.Error().
		Err(err).
		Str("audit_id", entry.ID).
		Str("operation_id", entry.OperationID).
		Str("actor", entry.ActorID).
		Str("operation", string(entry.Operation)).
		Strs("accounts", entry.TargetAccounts).
		Str("amount", domain.FormatAmount(entry.Amount)).
		Str("outcome", string(entry.Outcome)).
		Str("error_kind", string(entry.ErrorKind)).
		Str("reason", entry.Reason).
		Time("created_at", entry.CreatedAt).
		Msg("audit entry lost")
}

// write stores entry through the circuit breaker, retrying transient
// failures. An open breaker fails immediately.
func (r *Recorder) write(ctx context.Context, entry *domain.AuditEntry) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 20 * time.Millisecond
	b.MaxInterval = time.Second

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(r.maxRetries)), context.WithoutCancel(ctx))

	return backoff.Retry(func() error {
		_, err := r.breaker.Execute(func() (interface{}, error) {
			writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.writeTimeout)
			defer cancel()

			return nil, r.repo.Create(writeCtx, entry)
		})

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return backoff.Permanent(err)
		}

		return err
	}, policy)
}

type nopMetrics struct{}

func (nopMetrics) AuditResult(string)  {}
func (nopMetrics) AuditQueueDepth(int) {}
