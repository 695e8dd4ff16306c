package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
)

// TransferCoordinator moves money between two accounts inside one storage
// transaction. Both accounts are locked in ascending ID order so that opposing
// transfers cannot deadlock.
type TransferCoordinator struct {
	txManager TransactionManager
	accounts  AccountStore
	idGen     IDGenerator
	now       func() time.Time
}

// NewTransferCoordinator creates a new TransferCoordinator.
func NewTransferCoordinator(txManager TransactionManager, accounts AccountStore, idGen IDGenerator) *TransferCoordinator {
	return &TransferCoordinator{
		txManager: txManager,
		accounts:  accounts,
		idGen:     idGen,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Transfer debits req.FromAccountID and credits req.ToAccountID. Either both
// legs commit or neither does. The request must already be validated.
func (c *TransferCoordinator) Transfer(ctx context.Context, operationID string, req domain.TransferRequest) (*domain.TransferResult, error) {
	// 1. Fail fast without taking locks
	for _, id := range []string{req.FromAccountID, req.ToAccountID} {
		account, err := c.accounts.Get(ctx, id)
		if err != nil {
			return nil, err
		}

		if !account.IsActive() {
			return nil, domain.ErrAccountLocked
		}
	}

	// 2. Begin transaction
	tx, err := c.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(context.WithoutCancel(ctx))

	// 3. Lock accounts in sorted order
	ids := req.LockOrder()

	locked, err := c.accounts.LockForUpdate(ctx, tx, ids)
	if err != nil {
		return nil, err
	}

	if len(locked) != len(ids) {
		return nil, domain.ErrAccountNotFound
	}

	now := c.now()

	// 4. Debit, then credit. A failing credit leg rolls back the debit.
	from, err := c.accounts.ConditionalAdjustTx(ctx, tx, AdjustParams{
		AccountID:   req.FromAccountID,
		OperationID: operationID,
		EntryID:     c.idGen.Generate(),
		Operation:   domain.OperationTransfer,
		Delta:       req.Amount.Neg(),
		MinBalance:  decimal.Zero,
		At:          now,
	})
	if err != nil {
		return nil, err
	}

	to, err := c.accounts.ConditionalAdjustTx(ctx, tx, AdjustParams{
		AccountID:   req.ToAccountID,
		OperationID: operationID,
		EntryID:     c.idGen.Generate(),
		Operation:   domain.OperationTransfer,
		Delta:       req.Amount,
		MinBalance:  decimal.Zero,
		At:          now,
	})
	if err != nil {
		return nil, err
	}

	// 5. Commit
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &domain.TransferResult{
		OperationID: operationID,
		From:        from,
		To:          to,
	}, nil
}
