package repository

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"papertrade/types"
)

//go:embed schema.sql
var schema string

const uniqueViolation = "23505"

// Database is the postgres driver. Atomic units run in a transaction that
// first locks the user's row, so units for the same user serialize.
type Database struct {
	queries *Queries
	conn    *pgxpool.Pool
}

// NewDatabase creates a new Database instance and verifies connectivity.
// Pool sizing can be passed in dbURL as pool_max_conns / pool_min_conns.
func NewDatabase(ctx context.Context, dbURL string) (*Database, error) {
	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// Register shopspring decimal
	config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	conn, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	// Ensure the connection is established.
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Database{
		queries: NewQueries(conn),
		conn:    conn,
	}, nil
}

// Migrate creates the ledger tables if they do not exist.
func (db *Database) Migrate(ctx context.Context) error {
	if _, err := db.conn.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (db *Database) Close() error {
	db.conn.Close()
	return nil
}

func (db *Database) CreateUser(ctx context.Context, username, passwordHash string, cash decimal.Decimal) (types.User, error) {
	if cash.IsNegative() {
		return types.User{}, fmt.Errorf("initial cash %s: %w", cash, types.ErrInvalidAmount)
	}
	id, createdAt, err := db.queries.CreateUser(ctx, username, passwordHash, cash)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return types.User{}, fmt.Errorf("user %q: %w", username, types.ErrUsernameTaken)
		}
		return types.User{}, unavailable("create user", err)
	}
	return types.User{ID: id, Username: username, Cash: cash, CreatedAt: createdAt.UTC()}, nil
}

func (db *Database) GetUser(ctx context.Context, userID int64) (types.User, error) {
	rec, err := db.queries.GetUser(ctx, userID)
	if err != nil {
		return types.User{}, mapUserErr(userID, "get user", err)
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec.User, nil
}

func (db *Database) GetUserByName(ctx context.Context, username string) (UserRecord, error) {
	rec, err := db.queries.GetUserByName(ctx, username)
	if errors.Is(err, pgx.ErrNoRows) {
		return UserRecord{}, fmt.Errorf("user %q: %w", username, types.ErrNotFound)
	}
	if err != nil {
		return UserRecord{}, unavailable("get user", err)
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, nil
}

func (db *Database) GetCash(ctx context.Context, userID int64) (decimal.Decimal, error) {
	cash, err := db.queries.GetCash(ctx, userID)
	if err != nil {
		return decimal.Zero, mapUserErr(userID, "get cash", err)
	}
	return cash, nil
}

func (db *Database) ListPositions(ctx context.Context, userID int64) ([]types.Position, error) {
	if _, err := db.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	positions, err := db.queries.ListPositions(ctx, userID)
	if err != nil {
		return nil, unavailable("list positions", err)
	}
	return positions, nil
}

// Snapshot reads cash and positions in one read-only REPEATABLE READ
// transaction. The user row is not locked.
func (db *Database) Snapshot(ctx context.Context, userID int64) (Holdings, error) {
	tx, err := db.conn.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return Holdings{}, unavailable("begin snapshot", err)
	}
	defer tx.Rollback(ctx)

	q := db.queries.WithTx(tx)
	cash, err := q.GetCash(ctx, userID)
	if err != nil {
		return Holdings{}, mapUserErr(userID, "get cash", err)
	}
	positions, err := q.ListPositions(ctx, userID)
	if err != nil {
		return Holdings{}, unavailable("list positions", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return Holdings{}, unavailable("commit snapshot", err)
	}
	return Holdings{Cash: cash, Positions: positions}, nil
}

func (db *Database) ListHistory(ctx context.Context, userID int64) ([]types.HistoryEntry, error) {
	if _, err := db.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	entries, err := db.queries.ListHistory(ctx, userID)
	if err != nil {
		return nil, unavailable("list history", err)
	}
	return entries, nil
}

func (db *Database) RunAtomic(ctx context.Context, userID int64, fn func(tx Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return unavailable("begin", err)
	}
	// Rollback after a successful commit is a no-op.
	defer tx.Rollback(ctx)

	q := db.queries.WithTx(tx)
	if err := q.LockUser(ctx, userID); err != nil {
		return mapUserErr(userID, "lock user", err)
	}

	dtx := &databaseTx{q: q}
	err = fn(dtx)
	dtx.done = true
	if err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return unavailable("commit", err)
	}
	return nil
}

type databaseTx struct {
	q    *Queries
	done bool
}

func (tx *databaseTx) GetCash(ctx context.Context, userID int64) (decimal.Decimal, error) {
	if tx.done {
		return decimal.Zero, errTxDone
	}
	cash, err := tx.q.GetCash(ctx, userID)
	if err != nil {
		return decimal.Zero, mapUserErr(userID, "get cash", err)
	}
	return cash, nil
}

func (tx *databaseTx) SetCash(ctx context.Context, userID int64, amount decimal.Decimal) error {
	if tx.done {
		return errTxDone
	}
	if amount.IsNegative() {
		return fmt.Errorf("cash %s: %w", amount, types.ErrInvalidAmount)
	}
	n, err := tx.q.SetCash(ctx, userID, amount)
	if err != nil {
		return unavailable("set cash", err)
	}
	if n == 0 {
		return userNotFound(userID)
	}
	return nil
}

func (tx *databaseTx) GetPosition(ctx context.Context, userID int64, symbol string) (int64, error) {
	if tx.done {
		return 0, errTxDone
	}
	shares, err := tx.q.GetPosition(ctx, userID, symbol)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, unavailable("get position", err)
	}
	return shares, nil
}

func (tx *databaseTx) UpsertPosition(ctx context.Context, userID int64, symbol string, shares int64) error {
	if tx.done {
		return errTxDone
	}
	var err error
	switch {
	case shares < 0:
		return fmt.Errorf("position %s shares %d: %w", symbol, shares, types.ErrInvalidAmount)
	case shares == 0:
		err = tx.q.DeletePosition(ctx, userID, symbol)
	default:
		err = tx.q.UpsertPosition(ctx, userID, symbol, shares)
	}
	if err != nil {
		return unavailable("write position", err)
	}
	return nil
}

func (tx *databaseTx) AppendHistory(ctx context.Context, entry types.HistoryEntry) error {
	if tx.done {
		return errTxDone
	}
	if err := tx.q.AppendHistory(ctx, entry); err != nil {
		return unavailable("append history", err)
	}
	return nil
}

func mapUserErr(userID int64, op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return userNotFound(userID)
	}
	return unavailable(op, err)
}

var _ Store = (*Database)(nil)
