package engine

import (
	"context"

	"papertrade/internal/repository"
	"papertrade/types"
)

type ledgerStore interface {
	RunAtomic(ctx context.Context, userID int64, fn func(tx repository.Tx) error) error
	Snapshot(ctx context.Context, userID int64) (repository.Holdings, error)
	ListHistory(ctx context.Context, userID int64) ([]types.HistoryEntry, error)
}

type priceOracle interface {
	Lookup(ctx context.Context, symbol string) (types.Quote, error)
}
