package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
)

// AuditDeadLetter implements usecase.AuditDeadLetter as a Redis list. Entries
// are pushed to the tail and popped from the head, so replays keep their
// original order.
type AuditDeadLetter struct {
	client    *redis.Client
	key       string
	poisonKey string
}

// NewAuditDeadLetter creates a new AuditDeadLetter.
func NewAuditDeadLetter(client *redis.Client) *AuditDeadLetter {
	return &AuditDeadLetter{
		client: client,
		key:       "bankledger:audit:dead-letter",
		poisonKey: "bankledger:audit:dead-letter:poison",
	}
}

type deadLetterEntry struct {
	ID             string    `json:"id"`
	OperationID    string    `json:"operation_id"`
	ActorID        string    `json:"actor_id"`
	Operation      string    `json:"operation"`
	TargetAccounts []string  `json:"target_accounts"`
	Amount         string    `json:"amount"`
	Outcome        string    `json:"outcome"`
	ErrorKind      string    `json:"error_kind,omitempty"`
	Reason         string    `json:"reason,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func encodeEntry(e *domain.AuditEntry) ([]byte, error) {
	return json.Marshal(deadLetterEntry{
		ID:             e.ID,
		OperationID:    e.OperationID,
		ActorID:        e.ActorID,
		Operation:      string(e.Operation),
		TargetAccounts: e.TargetAccounts,
		Amount:         domain.FormatAmount(e.Amount),
		Outcome:        string(e.Outcome),
		ErrorKind:      string(e.ErrorKind),
		Reason:         e.Reason,
		CreatedAt:      e.CreatedAt,
	})
}

func decodeEntry(raw string) (*domain.AuditEntry, error) {
	var d deadLetterEntry
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return nil, err
	}

	amount, err := decimal.NewFromString(d.Amount)
	if err != nil {
		return nil, err
	}

	return &domain.AuditEntry{
		ID:             d.ID,
		OperationID:    d.OperationID,
		ActorID:        d.ActorID,
		Operation:      domain.OperationType(d.Operation),
		TargetAccounts: d.TargetAccounts,
		Amount:         amount,
		Outcome:        domain.AuditOutcome(d.Outcome),
		ErrorKind:      domain.ErrorKind(d.ErrorKind),
		Reason:         d.Reason,
		CreatedAt:      d.CreatedAt,
	}, nil
}

// Push appends an entry to the dead letter.
func (d *AuditDeadLetter) Push(ctx context.Context, entry *domain.AuditEntry) error {
	payload, err := encodeEntry(entry)
	if err != nil {
		return fmt.Errorf("encode audit entry %s: %w", entry.ID, err)
	}

	return d.client.RPush(ctx, d.key, payload).Err()
}

// Pop removes and returns up to max entries from the head of the list.
// Undecodable payloads are moved to the poison list and reported as an error
// alongside the entries that did decode.
func (d *AuditDeadLetter) Pop(ctx context.Context, max int) ([]*domain.AuditEntry, error) {
	raws, err := d.client.LPopCount(ctx, d.key, max).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}

		return nil, err
	}

	entries := make([]*domain.AuditEntry, 0, len(raws))

	var (
		decodeErrs []error
		poison     []any
	)
	for _, raw := range raws {
		entry, err := decodeEntry(raw)
		if err != nil {
			decodeErrs = append(decodeErrs, fmt.Errorf("decode dead-lettered audit entry: %w", err))
			poison = append(poison, raw)
			continue
		}

		entries = append(entries, entry)
	}

	if len(poison) > 0 {
		// Keep the raw payloads for manual inspection; they must outlive a
		// cancelled ctx like any popped entry.
		if err := d.client.RPush(context.WithoutCancel(ctx), d.poisonKey, poison...).Err(); err != nil {
			decodeErrs = append(decodeErrs, fmt.Errorf("park undecodable audit entries: %w", err))
		}
	}

	return entries, errors.Join(decodeErrs...)
}

// Requeue puts entries back at the head of the list in their original order.
func (d *AuditDeadLetter) Requeue(ctx context.Context, entries []*domain.AuditEntry) error {
	if len(entries) == 0 {
		return nil
	}

	payloads := make([]any, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		payload, err := encodeEntry(entries[i])
		if err != nil {
			return fmt.Errorf("encode audit entry %s: %w", entries[i].ID, err)
		}

		payloads = append(payloads, payload)
	}

	return d.client.LPush(ctx, d.key, payloads...).Err()
}

// Len returns the number of entries waiting for replay.
func (d *AuditDeadLetter) Len(ctx context.Context) (int64, error) {
	return d.client.LLen(ctx, d.key).Result()
}
