package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

var (
	errForeignTx = errors.New("memory: transaction was not started by this store")
	errTxDone    = errors.New("memory: transaction already finished")
)

// tx holds the locks of every account it touched until Commit or Rollback.
// Changes are applied in place while the locks are held and undone on
// rollback.
type tx struct {
	store   *Store
	held    map[string]*slot
	undo    map[string]domain.Account
	order   []string
	entries []domain.Entry
	done    bool
}

// Begin starts a transaction.
func (s *Store) Begin(ctx context.Context) (usecase.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrPersistenceFailure, err)
	}

	return &tx{
		store: s,
		held:  make(map[string]*slot),
		undo:  make(map[string]domain.Account),
	}, nil
}

func (s *Store) txFrom(t usecase.Transaction) (*tx, error) {
	mt, ok := t.(*tx)
	if !ok || mt.store != s {
		return nil, errForeignTx
	}

	if mt.done {
		return nil, fmt.Errorf("%w: %w", domain.ErrPersistenceFailure, errTxDone)
	}

	return mt, nil
}

// LockForUpdate acquires the locks of ids in ascending order. Unknown IDs
// are skipped.
func (s *Store) LockForUpdate(ctx context.Context, t usecase.Transaction, ids []string) ([]*domain.Account, error) {
	mt, err := s.txFrom(t)
	if err != nil {
		return nil, err
	}

	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)

	var accounts []*domain.Account
	for _, id := range sorted {
		sl, ok := s.lookup(id)
		if !ok {
			continue
		}

		if err := mt.lock(ctx, id, sl); err != nil {
			return nil, err
		}

		acc := sl.account
		accounts = append(accounts, &acc)
	}

	return accounts, nil
}

// ConditionalAdjustTx applies an adjustment inside t. The account is locked
// for the rest of the transaction if it was not already.
func (s *Store) ConditionalAdjustTx(ctx context.Context, t usecase.Transaction, params usecase.AdjustParams) (*domain.Adjustment, error) {
	mt, err := s.txFrom(t)
	if err != nil {
		return nil, err
	}

	sl, ok := s.lookup(params.AccountID)
	if !ok {
		return nil, domain.ErrAccountNotFound
	}

	if err := mt.lock(ctx, params.AccountID, sl); err != nil {
		return nil, err
	}

	next, entry, err := apply(sl.account, params)
	if err != nil {
		return nil, err
	}

	if _, ok := mt.undo[params.AccountID]; !ok {
		mt.undo[params.AccountID] = sl.account
	}

	sl.account = next
	mt.entries = append(mt.entries, entry)

	return adjustment(next, params.Delta), nil
}

func (t *tx) lock(ctx context.Context, id string, sl *slot) error {
	if _, ok := t.held[id]; ok {
		return nil
	}

	if err := acquire(ctx, sl); err != nil {
		return err
	}

	t.held[id] = sl
	t.order = append(t.order, id)

	return nil
}

// Commit writes the changed accounts and their entries as one log record,
// then publishes them by releasing the locks.
func (t *tx) Commit(ctx context.Context) error {
	if t.done {
		return fmt.Errorf("%w: %w", domain.ErrPersistenceFailure, errTxDone)
	}

	if err := ctx.Err(); err != nil {
		t.rollback()
		return fmt.Errorf("%w: %w", domain.ErrPersistenceFailure, err)
	}

	if len(t.undo) > 0 {
		rec := walRecord{Entries: t.entries}
		for _, id := range t.order {
			if _, changed := t.undo[id]; changed {
				rec.Accounts = append(rec.Accounts, t.held[id].account)
			}
		}

		if err := t.store.persist(rec); err != nil {
			t.rollback()
			return err
		}

		t.store.appendJournal(t.entries...)
	}

	t.release()

	return nil
}

// Rollback undoes every change and releases the locks. It is a no-op after
// Commit.
func (t *tx) Rollback(context.Context) error {
	if t.done {
		return nil
	}

	t.rollback()

	return nil
}

func (t *tx) rollback() {
	for id, prev := range t.undo {
		t.held[id].account = prev
	}

	t.release()
}

func (t *tx) release() {
	for i := len(t.order) - 1; i >= 0; i-- {
		t.held[t.order[i]].sem.Release(1)
	}

	t.done = true
	t.held = nil
	t.undo = nil
	t.entries = nil
}
