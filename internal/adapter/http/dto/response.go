package dto

import (
	"time"

	"github.com/iho/bankledger/internal/domain"
)

// AccountResponse represents an account in API responses.
type AccountResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Balance   string    `json:"balance"`
	Status    string    `json:"status"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AccountFromDomain converts domain account to response.
func AccountFromDomain(a *domain.Account) *AccountResponse {
	return &AccountResponse{
		ID:        a.ID,
		Name:      a.Name,
		Balance:   domain.FormatAmount(a.Balance),
		Status:    string(a.Status),
		Version:   a.Version,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// AccountsFromDomain converts domain accounts to responses.
func AccountsFromDomain(accounts []*domain.Account) []*AccountResponse {
	result := make([]*AccountResponse, len(accounts))
	for i, a := range accounts {
		result[i] = AccountFromDomain(a)
	}
	return result
}

// ListAccountsResponse is one page of accounts.
type ListAccountsResponse struct {
	Accounts []*AccountResponse `json:"accounts"`
	Limit    int                `json:"limit"`
	Offset   int                `json:"offset"`
}

// BalanceResponse is the answer to a balance inquiry.
type BalanceResponse struct {
	AccountID string `json:"account_id"`
	Balance   string `json:"balance"`
}

// AdjustmentResponse describes one committed balance change.
type AdjustmentResponse struct {
	AccountID string `json:"account_id"`
	Amount    string `json:"amount"`
	Balance   string `json:"balance"`
	Version   int64  `json:"version"`
}

// AdjustmentFromDomain converts a domain adjustment to response.
func AdjustmentFromDomain(a *domain.Adjustment) *AdjustmentResponse {
	return &AdjustmentResponse{
		AccountID: a.AccountID,
		Amount:    domain.FormatAmount(a.Delta),
		Balance:   domain.FormatAmount(a.NewBalance),
		Version:   a.NewVersion,
	}
}

// TransferResponse carries both legs of a committed transfer.
type TransferResponse struct {
	OperationID string              `json:"operation_id"`
	From        *AdjustmentResponse `json:"from"`
	To          *AdjustmentResponse `json:"to"`
}

// TransferFromDomain converts a transfer result to response.
func TransferFromDomain(t *domain.TransferResult) *TransferResponse {
	return &TransferResponse{
		OperationID: t.OperationID,
		From:        AdjustmentFromDomain(t.From),
		To:          AdjustmentFromDomain(t.To),
	}
}

// EntryResponse represents a journal entry in API responses.
type EntryResponse struct {
	ID             string    `json:"id"`
	AccountID      string    `json:"account_id"`
	OperationID    string    `json:"operation_id"`
	Operation      string    `json:"operation"`
	Amount         string    `json:"amount"`
	BalanceAfter   string    `json:"balance_after"`
	AccountVersion int64     `json:"account_version"`
	CreatedAt      time.Time `json:"created_at"`
}

// EntryFromDomain converts domain entry to response.
func EntryFromDomain(e *domain.Entry) *EntryResponse {
	return &EntryResponse{
		ID:             e.ID,
		AccountID:      e.AccountID,
		OperationID:    e.OperationID,
		Operation:      string(e.Operation),
		Amount:         domain.FormatAmount(e.Amount),
		BalanceAfter:   domain.FormatAmount(e.BalanceAfter),
		AccountVersion: e.AccountVersion,
		CreatedAt:      e.CreatedAt,
	}
}

// EntriesFromDomain converts domain entries to responses.
func EntriesFromDomain(entries []*domain.Entry) []*EntryResponse {
	result := make([]*EntryResponse, len(entries))
	for i, e := range entries {
		result[i] = EntryFromDomain(e)
	}
	return result
}

// AuditEntryResponse represents an audit entry in API responses.
type AuditEntryResponse struct {
	ID             string    `json:"id"`
	OperationID    string    `json:"operation_id"`
	ActorID        string    `json:"actor_id"`
	Operation      string    `json:"operation"`
	TargetAccounts []string  `json:"target_accounts"`
	Amount         string    `json:"amount,omitempty"`
	Outcome        string    `json:"outcome"`
	ErrorKind      string    `json:"error_kind,omitempty"`
	Reason         string    `json:"reason,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// AuditEntriesFromDomain converts audit entries to responses.
func AuditEntriesFromDomain(entries []*domain.AuditEntry) []*AuditEntryResponse {
	result := make([]*AuditEntryResponse, len(entries))
	for i, e := range entries {
		resp := &AuditEntryResponse{
			ID:             e.ID,
			OperationID:    e.OperationID,
			ActorID:        e.ActorID,
			Operation:      string(e.Operation),
			TargetAccounts: e.TargetAccounts,
			Outcome:        string(e.Outcome),
			ErrorKind:      string(e.ErrorKind),
			Reason:         e.Reason,
			CreatedAt:      e.CreatedAt,
		}
		if !e.Amount.IsZero() {
			resp.Amount = domain.FormatAmount(e.Amount)
		}
		result[i] = resp
	}
	return result
}

// ConsistencyResponse reports the ledger-wide consistency check.
type ConsistencyResponse struct {
	Consistent          bool      `json:"consistent"`
	Problems            []string  `json:"problems,omitempty"`
	AccountBalance      string    `json:"account_balance"`
	EntryAmount         string    `json:"entry_amount"`
	Deposits            string    `json:"deposits"`
	Withdrawals         string    `json:"withdrawals"`
	UnbalancedTransfers int64     `json:"unbalanced_transfers"`
	NegativeAccounts    int64     `json:"negative_accounts"`
	CheckedAt           time.Time `json:"checked_at"`
}

// ConsistencyFromDomain converts a consistency report to response.
func ConsistencyFromDomain(r *domain.ConsistencyReport) *ConsistencyResponse {
	return &ConsistencyResponse{
		Consistent:          r.Consistent,
		Problems:            r.Problems,
		AccountBalance:      domain.FormatAmount(r.Totals.AccountBalance),
		EntryAmount:         domain.FormatAmount(r.Totals.EntryAmount),
		Deposits:            domain.FormatAmount(r.Totals.Deposits),
		Withdrawals:         domain.FormatAmount(r.Totals.Withdrawals),
		UnbalancedTransfers: r.Totals.UnbalancedTransfers,
		NegativeAccounts:    r.Totals.NegativeAccounts,
		CheckedAt:           r.CheckedAt,
	}
}

// ReconciliationResponse reports one account reconciled against its journal.
type ReconciliationResponse struct {
	AccountID   string    `json:"account_id"`
	Reconciled  bool      `json:"reconciled"`
	Balance     string    `json:"balance"`
	EntryAmount string    `json:"entry_amount"`
	EntryCount  int64     `json:"entry_count"`
	Difference  string    `json:"difference"`
	CheckedAt   time.Time `json:"checked_at"`
}

// ReconciliationFromDomain converts an account reconciliation to response.
func ReconciliationFromDomain(r *domain.AccountReconciliation) *ReconciliationResponse {
	return &ReconciliationResponse{
		AccountID:   r.Totals.AccountID,
		Reconciled:  r.Reconciled,
		Balance:     domain.FormatAmount(r.Totals.Balance),
		EntryAmount: domain.FormatAmount(r.Totals.EntryAmount),
		EntryCount:  r.Totals.EntryCount,
		Difference:  domain.FormatAmount(r.Difference),
		CheckedAt:   r.CheckedAt,
	}
}

// ErrorResponse represents an error in API responses. Kind is the stable
// machine-readable error kind.
type ErrorResponse struct {
	Error   string `json:"error"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message,omitempty"`
}
