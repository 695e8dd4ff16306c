package usecase

import "time"

const (
	// DefaultOperationTimeout bounds a single ledger call including lock waits.
	DefaultOperationTimeout = 5 * time.Second

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour

	// IdempotencyProcessing is the value an IdempotencyStore holds for a key
	// whose first request has not finished.
	IdempotencyProcessing = "processing"

	// maxOpenAttempts bounds ID collision retries when opening an account.
	maxOpenAttempts = 3
)
