package dto

import (
	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

// OpenAccountRequest represents a request to open an account.
type OpenAccountRequest struct {
	Name string `json:"name"`
}

// ToUseCaseInput converts to use case input.
func (r *OpenAccountRequest) ToUseCaseInput() usecase.OpenAccountInput {
	return usecase.OpenAccountInput{Name: r.Name}
}

// AmountRequest is the body of deposit and withdraw requests. Amount must be
// a JSON string such as "12.50"; JSON numbers fail to decode.
type AmountRequest struct {
	Amount string `json:"amount"`
}

// ParseAmount parses the amount. Sign, scale and bounds are checked by the
// ledger service so rejections are audited.
func (r *AmountRequest) ParseAmount() (decimal.Decimal, error) {
	return domain.ParseAmount(r.Amount)
}

// TransferRequest represents a request to move money between two accounts.
type TransferRequest struct {
	FromAccountID string `json:"from_account_id"`
	ToAccountID   string `json:"to_account_id"`
	Amount        string `json:"amount"`
}

// ToDomain parses the amount and builds the domain request.
func (r *TransferRequest) ToDomain() (domain.TransferRequest, error) {
	amount, err := domain.ParseAmount(r.Amount)
	if err != nil {
		return domain.TransferRequest{}, err
	}

	return domain.TransferRequest{
		FromAccountID: r.FromAccountID,
		ToAccountID:   r.ToAccountID,
		Amount:        amount,
	}, nil
}
