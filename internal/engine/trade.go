package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"papertrade/internal/repository"
	"papertrade/types"
)

// Quote resolves a symbol through the oracle. A miss is ErrUnknownSymbol;
// any other oracle failure is ErrQuoteUnavailable.
func (e *Engine) Quote(ctx context.Context, symbol string) (types.Quote, error) {
	sym := types.NormalizeSymbol(symbol)
	if sym == "" {
		return types.Quote{}, fmt.Errorf("symbol is required: %w", types.ErrInvalidInput)
	}
	q, err := e.oracle.Lookup(ctx, sym)
	if err != nil {
		if errors.Is(err, types.ErrUnknownSymbol) {
			return types.Quote{}, err
		}
		return types.Quote{}, fmt.Errorf("quote %s: %w: %w", sym, types.ErrQuoteUnavailable, err)
	}
	if !q.Price.IsPositive() {
		return types.Quote{}, fmt.Errorf("quote %s has price %s: %w", sym, q.Price, types.ErrUnknownSymbol)
	}
	if q.Symbol == "" {
		q.Symbol = sym
	}
	return q, nil
}

// Buy purchases shares of symbol at the current quote.
func (e *Engine) Buy(ctx context.Context, userID int64, symbol string, shares int64) (types.TradeResult, error) {
	return e.trade(ctx, userID, types.SideTypeBuy, types.TradeRequest{Symbol: symbol, Shares: shares})
}

// Sell disposes of shares of symbol at the current quote. Selling the whole
// position removes it.
func (e *Engine) Sell(ctx context.Context, userID int64, symbol string, shares int64) (types.TradeResult, error) {
	return e.trade(ctx, userID, types.SideTypeSell, types.TradeRequest{Symbol: symbol, Shares: shares})
}

func (e *Engine) trade(ctx context.Context, userID int64, side types.Side, req types.TradeRequest) (types.TradeResult, error) {
	if err := req.Validate(); err != nil {
		return types.TradeResult{}, e.rejected(side, userID, req.Symbol, err)
	}

	// The price is read once, before the unit opens, and is both the
	// funds check and the recorded execution price.
	quote, err := e.Quote(ctx, req.Symbol)
	if err != nil {
		return types.TradeResult{}, e.rejected(side, userID, req.Symbol, err)
	}

	res := types.TradeResult{Name: quote.Name}
	err = e.store.RunAtomic(ctx, userID, func(tx repository.Tx) error {
		fill := types.HistoryEntry{
			ID:     e.newID(),
			UserID: userID,
			Symbol: quote.Symbol,
			Side:   side,
			Shares: req.Shares,
			Price:  quote.Price,
			Time:   e.now().UTC(),
		}
		position, cash, err := applyFill(ctx, tx, fill)
		if err != nil {
			return err
		}
		res.Entry = fill
		res.Position = position
		res.Cash = cash
		return nil
	})
	if err != nil {
		return types.TradeResult{}, e.rejected(side, userID, quote.Symbol, err)
	}

	e.logger.Info("trade executed",
		zap.Int64("user", userID),
		zap.String("side", string(side)),
		zap.String("symbol", quote.Symbol),
		zap.Int64("shares", req.Shares),
		zap.Stringer("price", quote.Price),
		zap.Stringer("cash", res.Cash),
	)
	return res, nil
}

// Deposit adds amount to the user's cash and returns the new balance. It
// does not produce a history entry.
func (e *Engine) Deposit(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	if err := (types.DepositRequest{Amount: amount}).Validate(); err != nil {
		return decimal.Zero, err
	}
	var balance decimal.Decimal
	err := e.store.RunAtomic(ctx, userID, func(tx repository.Tx) error {
		cash, err := tx.GetCash(ctx, userID)
		if err != nil {
			return err
		}
		balance = cash.Add(amount)
		return tx.SetCash(ctx, userID, balance)
	})
	if err != nil {
		e.logger.Debug("deposit rejected", zap.Int64("user", userID), zap.Error(err))
		return decimal.Zero, err
	}
	e.logger.Info("deposit",
		zap.Int64("user", userID),
		zap.Stringer("amount", amount),
		zap.Stringer("cash", balance),
	)
	return balance, nil
}

func (e *Engine) rejected(side types.Side, userID int64, symbol string, err error) error {
	e.logger.Debug("trade rejected",
		zap.Int64("user", userID),
		zap.String("side", string(side)),
		zap.String("symbol", symbol),
		zap.String("kind", types.KindOf(err)),
		zap.Error(err),
	)
	return err
}
