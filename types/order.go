package types

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// TradeRequest is the body of a buy or sell.
type TradeRequest struct {
	Symbol string `json:"symbol"`
	Shares int64  `json:"shares"`
}

func (r TradeRequest) Validate() error {
	if NormalizeSymbol(r.Symbol) == "" {
		return fmt.Errorf("symbol is required: %w", ErrInvalidInput)
	}
	if r.Shares < 1 {
		return fmt.Errorf("shares must be >= 1, got %d: %w", r.Shares, ErrInvalidInput)
	}
	return nil
}

type DepositRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// Validate requires a positive amount expressed in whole cents.
func (r DepositRequest) Validate() error {
	if !r.Amount.IsPositive() {
		return fmt.Errorf("amount must be positive, got %s: %w", r.Amount, ErrInvalidInput)
	}
	if !r.Amount.Equal(r.Amount.Round(2)) {
		return fmt.Errorf("amount %s has sub-cent precision: %w", r.Amount, ErrInvalidInput)
	}
	return nil
}

type RegisterRequest struct {
	Username     string `json:"username"`
	Password     string `json:"password"`
	Confirmation string `json:"confirmation"`
}

func (r RegisterRequest) Validate() error {
	switch {
	case r.Username == "":
		return fmt.Errorf("username is required: %w", ErrInvalidInput)
	case r.Password == "":
		return fmt.Errorf("password is required: %w", ErrInvalidInput)
	case r.Confirmation == "":
		return fmt.Errorf("password confirmation is required: %w", ErrInvalidInput)
	case r.Password != r.Confirmation:
		return fmt.Errorf("passwords do not match: %w", ErrInvalidInput)
	}
	return nil
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
