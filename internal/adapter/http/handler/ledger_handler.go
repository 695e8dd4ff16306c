package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/adapter/http/dto"
	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

// LedgerService defines the balance operations needed by LedgerHandler.
type LedgerService interface {
	Deposit(ctx context.Context, accountID string, amount decimal.Decimal) (*domain.Adjustment, error)
	Withdraw(ctx context.Context, accountID string, amount decimal.Decimal) (*domain.Adjustment, error)
	Transfer(ctx context.Context, fromID, toID string, amount decimal.Decimal) (*domain.TransferResult, error)
	CheckBalance(ctx context.Context, accountID string) (decimal.Decimal, error)
	LockAccount(ctx context.Context, accountID string) (*domain.Account, error)
	UnlockAccount(ctx context.Context, accountID string) (*domain.Account, error)
}

// ConsistencyChecker verifies ledger-wide invariants.
type ConsistencyChecker interface {
	CheckConsistency(ctx context.Context) (*domain.ConsistencyReport, error)
	ReconcileAccount(ctx context.Context, accountID string) (*domain.AccountReconciliation, error)
}

// LedgerHandler handles balance operations and ledger-wide checks.
type LedgerHandler struct {
	ledger  LedgerService
	checker ConsistencyChecker
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledger LedgerService, checker ConsistencyChecker) *LedgerHandler {
	return &LedgerHandler{ledger: ledger, checker: checker}
}

// Deposit credits the account in the path.
func (h *LedgerHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.adjust(w, r, "deposit failed", h.ledger.Deposit)
}

// Withdraw debits the account in the path.
func (h *LedgerHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.adjust(w, r, "withdraw failed", h.ledger.Withdraw)
}

func (h *LedgerHandler) adjust(
	w http.ResponseWriter,
	r *http.Request,
	message string,
	op func(ctx context.Context, accountID string, amount decimal.Decimal) (*domain.Adjustment, error),
) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing account ID", "")
		return
	}

	var req dto.AmountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
			Error:   "invalid request body",
			Kind:    string(domain.KindInvalidAmount),
			Message: err.Error(),
		})
		return
	}

	amount, err := req.ParseAmount()
	if err != nil {
		writeDomainError(w, message, err)
		return
	}

	adj, err := op(r.Context(), id, amount)
	if err != nil {
		writeDomainError(w, message, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AdjustmentFromDomain(adj))
}

// Transfer moves money between two accounts.
func (h *LedgerHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req dto.TransferRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
			Error:   "invalid request body",
			Kind:    string(domain.KindInvalidAmount),
			Message: err.Error(),
		})
		return
	}

	transfer, err := req.ToDomain()
	if err != nil {
		writeDomainError(w, "transfer failed", err)
		return
	}

	result, err := h.ledger.Transfer(r.Context(), transfer.FromAccountID, transfer.ToAccountID, transfer.Amount)
	if err != nil {
		writeDomainError(w, "transfer failed", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.TransferFromDomain(result))
}

// Balance returns the current balance of the account in the path.
func (h *LedgerHandler) Balance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	balance, err := h.ledger.CheckBalance(r.Context(), id)
	if err != nil {
		writeDomainError(w, "balance inquiry failed", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BalanceResponse{
		AccountID: id,
		Balance:   domain.FormatAmount(balance),
	})
}

// Lock blocks further balance changes on the account in the path.
func (h *LedgerHandler) Lock(w http.ResponseWriter, r *http.Request) {
	account, err := h.ledger.LockAccount(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "lock failed", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}

// Unlock reactivates the account in the path.
func (h *LedgerHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	account, err := h.ledger.UnlockAccount(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "unlock failed", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}

// CheckConsistency checks if the ledger is consistent.
func (h *LedgerHandler) CheckConsistency(w http.ResponseWriter, r *http.Request) {
	report, err := h.checker.CheckConsistency(r.Context())
	if err != nil {
		if errors.Is(err, usecase.ErrInconsistentLedger) && report != nil {
			writeJSON(w, http.StatusConflict, dto.ConsistencyFromDomain(report))
			return
		}
		writeDomainError(w, "failed to check consistency", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ConsistencyFromDomain(report))
}

// Reconcile compares the account's balance with its journal. A drifted
// account is reported with 409.
func (h *LedgerHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	result, err := h.checker.ReconcileAccount(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, usecase.ErrInconsistentLedger) && result != nil {
			writeJSON(w, http.StatusConflict, dto.ReconciliationFromDomain(result))
			return
		}
		writeDomainError(w, "failed to reconcile account", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ReconciliationFromDomain(result))
}
