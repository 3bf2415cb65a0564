package repository

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"papertrade/types"
)

var errTxDone = errors.New("transaction already finished")

// Store is the durable ledger: cash balances, positions and trade history.
// All mutations go through RunAtomic.
type Store interface {
	// RunAtomic runs fn as a single all-or-nothing unit while holding the
	// user's lock. Changes made through tx are published only if fn and the
	// commit both succeed. Fails with types.ErrNotFound for unknown users.
	RunAtomic(ctx context.Context, userID int64, fn func(tx Tx) error) error

	CreateUser(ctx context.Context, username, passwordHash string, cash decimal.Decimal) (types.User, error)
	GetUser(ctx context.Context, userID int64) (types.User, error)
	GetUserByName(ctx context.Context, username string) (UserRecord, error)
	GetCash(ctx context.Context, userID int64) (decimal.Decimal, error)
	// ListPositions returns the user's positions ordered by symbol.
	ListPositions(ctx context.Context, userID int64) ([]types.Position, error)
	// ListHistory returns the user's entries oldest first.
	ListHistory(ctx context.Context, userID int64) ([]types.HistoryEntry, error)
	// Snapshot reads cash and positions as of a single committed state. It
	// does not take the user's lock.
	Snapshot(ctx context.Context, userID int64) (Holdings, error)
	Close() error
}

// Holdings is a user's cash and positions read together.
type Holdings struct {
	Cash      decimal.Decimal
	Positions []types.Position
}

// Tx is the view of the store inside an atomic unit. It must not be used
// after the unit's function returns.
type Tx interface {
	GetCash(ctx context.Context, userID int64) (decimal.Decimal, error)
	// SetCash fails with types.ErrInvalidAmount for negative amounts.
	SetCash(ctx context.Context, userID int64, amount decimal.Decimal) error
	// GetPosition returns 0 when no position exists.
	GetPosition(ctx context.Context, userID int64, symbol string) (int64, error)
	// UpsertPosition deletes the position when shares is 0 and fails with
	// types.ErrInvalidAmount when shares is negative.
	UpsertPosition(ctx context.Context, userID int64, symbol string, shares int64) error
	AppendHistory(ctx context.Context, entry types.HistoryEntry) error
}

// UserRecord is a user together with the stored password hash.
type UserRecord struct {
	types.User
	PasswordHash string
}
