package dto

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

func TestOpenAccountRequest_ToUseCaseInput(t *testing.T) {
	req := &OpenAccountRequest{Name: "Main"}

	got := req.ToUseCaseInput()
	want := usecase.OpenAccountInput{Name: "Main"}

	if got != want {
		t.Fatalf("ToUseCaseInput() = %+v, want %+v", got, want)
	}
}

func TestAmountRequest_Decode(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		want       string
		decodeErr  bool
		invalidAmt bool
	}{
		{name: "string amount", body: `{"amount":"12.50"}`, want: "12.5"},
		{name: "integer string", body: `{"amount":"7"}`, want: "7"},
		{name: "json number rejected", body: `{"amount":12.50}`, decodeErr: true},
		{name: "three decimals left to the service", body: `{"amount":"1.005"}`, want: "1.005"},
		{name: "negative left to the service", body: `{"amount":"-1.00"}`, want: "-1"},
		{name: "not a decimal", body: `{"amount":"ten"}`, invalidAmt: true},
		{name: "exponent", body: `{"amount":"1e3"}`, invalidAmt: true},
		{name: "missing", body: `{}`, invalidAmt: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req AmountRequest
			err := json.Unmarshal([]byte(tt.body), &req)
			if tt.decodeErr {
				if err == nil {
					t.Fatalf("expected decode error for %s", tt.body)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected decode error: %v", err)
			}

			amount, err := req.ParseAmount()
			if tt.invalidAmt {
				if !errors.Is(err, domain.ErrInvalidAmount) {
					t.Fatalf("expected ErrInvalidAmount, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !amount.Equal(decimal.RequireFromString(tt.want)) {
				t.Fatalf("expected %s, got %s", tt.want, amount)
			}
		})
	}
}

func TestTransferRequest_ToDomain(t *testing.T) {
	req := &TransferRequest{FromAccountID: "a", ToAccountID: "b", Amount: "30.00"}

	got, err := req.ToDomain()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.FromAccountID != "a" || got.ToAccountID != "b" || !got.Amount.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("unexpected domain request: %+v", got)
	}

	req.Amount = "-5.00"
	got, err = req.ToDomain()
	if err != nil {
		t.Fatalf("negative amount must reach the service for auditing, got %v", err)
	}
	if !errors.Is(got.Validate(), domain.ErrInvalidAmount) {
		t.Fatalf("expected domain validation to reject %s", got.Amount)
	}

	req.Amount = "1e3"
	if _, err := req.ToDomain(); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for exponent notation, got %v", err)
	}
}
