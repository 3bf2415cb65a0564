package engine

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"papertrade/internal/repository"
	"papertrade/types"
)

var ErrUnknownSide = errors.New("unknown fill side")

// applyFill books one execution against the user's cash and position and
// appends it to the history. It must run inside an atomic unit; any error
// leaves the unit to be discarded.
func applyFill(ctx context.Context, tx repository.Tx, fill types.HistoryEntry) (int64, decimal.Decimal, error) {
	if !fill.Side.Valid() {
		return 0, decimal.Zero, ErrUnknownSide
	}

	cash, err := tx.GetCash(ctx, fill.UserID)
	if err != nil {
		return 0, decimal.Zero, err
	}
	held, err := tx.GetPosition(ctx, fill.UserID, fill.Symbol)
	if err != nil {
		return 0, decimal.Zero, err
	}

	amount := fill.Amount()
	var position int64
	switch fill.Side {
	case types.SideTypeBuy:
		if amount.GreaterThan(cash) {
			return 0, decimal.Zero, fmt.Errorf("buy %d %s costs %s, cash is %s: %w",
				fill.Shares, fill.Symbol, amount, cash, types.ErrInsufficientFunds)
		}
		if fill.Shares > math.MaxInt64-held {
			return 0, decimal.Zero, fmt.Errorf("position %s would overflow: %w", fill.Symbol, types.ErrInvalidInput)
		}
		position = held + fill.Shares
		cash = cash.Sub(amount)

	case types.SideTypeSell:
		if held == 0 {
			return 0, decimal.Zero, fmt.Errorf("sell %s: %w", fill.Symbol, types.ErrNoPosition)
		}
		if fill.Shares > held {
			return 0, decimal.Zero, fmt.Errorf("sell %d %s, holding %d: %w",
				fill.Shares, fill.Symbol, held, types.ErrInsufficientShares)
		}
		position = held - fill.Shares
		cash = cash.Add(amount)
	}

	if err := tx.UpsertPosition(ctx, fill.UserID, fill.Symbol, position); err != nil {
		return 0, decimal.Zero, err
	}
	if err := tx.SetCash(ctx, fill.UserID, cash); err != nil {
		return 0, decimal.Zero, err
	}
	if err := tx.AppendHistory(ctx, fill); err != nil {
		return 0, decimal.Zero, err
	}
	return position, cash, nil
}
