package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"papertrade/types"
)

// GetPortfolio values every position at a fresh quote. Cash and positions
// come from one store snapshot taken before any lookup. Lookups run in
// parallel, bounded by the engine's concurrency. A symbol the oracle cannot
// price fails the whole valuation with ErrQuoteUnavailable.
func (e *Engine) GetPortfolio(ctx context.Context, userID int64) (types.PortfolioView, error) {
	holdings, err := e.store.Snapshot(ctx, userID)
	if err != nil {
		return types.PortfolioView{}, err
	}
	cash, positions := holdings.Cash, holdings.Positions

	snapshots := make([]types.PositionSnapshot, len(positions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, pos := range positions {
		g.Go(func() error {
			q, err := e.oracle.Lookup(gctx, pos.Symbol)
			if err == nil && !q.Price.IsPositive() {
				err = fmt.Errorf("price %s: %w", q.Price, types.ErrUnknownSymbol)
			}
			if err != nil {
				return fmt.Errorf("value %s: %w: %w", pos.Symbol, types.ErrQuoteUnavailable, err)
			}
			snapshots[i] = types.PositionSnapshot{
				Symbol: pos.Symbol,
				Name:   q.Name,
				Shares: pos.Shares,
				Price:  q.Price,
				Value:  q.Price.Mul(decimal.NewFromInt(pos.Shares)),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return types.PortfolioView{}, err
	}

	sort.Slice(snapshots, func(i, j int) bool { return snapshots[i].Symbol < snapshots[j].Symbol })
	total := cash
	for _, s := range snapshots {
		total = total.Add(s.Value)
	}
	return types.PortfolioView{
		UserID:    userID,
		Cash:      cash,
		Positions: snapshots,
		Total:     total,
		Time:      e.now().UTC(),
	}, nil
}

// GetHistory returns the user's executed trades, oldest first.
func (e *Engine) GetHistory(ctx context.Context, userID int64) ([]types.HistoryEntry, error) {
	return e.store.ListHistory(ctx, userID)
}
