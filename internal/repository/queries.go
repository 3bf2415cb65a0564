package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"papertrade/types"
)

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries holds the SQL of the postgres driver. It runs against the pool or
// inside a transaction.
type Queries struct {
	db DBTX
}

func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

const createUser = `
INSERT INTO users (username, hash, cash)
VALUES ($1, $2, $3)
RETURNING id, created_at`

func (q *Queries) CreateUser(ctx context.Context, username, hash string, cash decimal.Decimal) (int64, time.Time, error) {
	var id int64
	var createdAt time.Time
	err := q.db.QueryRow(ctx, createUser, username, hash, cash).Scan(&id, &createdAt)
	return id, createdAt, err
}

const getUser = `SELECT id, username, hash, cash, created_at FROM users WHERE id = $1`

func (q *Queries) GetUser(ctx context.Context, id int64) (UserRecord, error) {
	return scanUser(q.db.QueryRow(ctx, getUser, id))
}

const getUserByName = `SELECT id, username, hash, cash, created_at FROM users WHERE username = $1`

func (q *Queries) GetUserByName(ctx context.Context, username string) (UserRecord, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByName, username))
}

func scanUser(row pgx.Row) (UserRecord, error) {
	var u UserRecord
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Cash, &u.CreatedAt)
	return u, err
}

const lockUser = `SELECT id FROM users WHERE id = $1 FOR UPDATE`

func (q *Queries) LockUser(ctx context.Context, id int64) error {
	return q.db.QueryRow(ctx, lockUser, id).Scan(&id)
}

const getCash = `SELECT cash FROM users WHERE id = $1`

func (q *Queries) GetCash(ctx context.Context, id int64) (decimal.Decimal, error) {
	var cash decimal.Decimal
	err := q.db.QueryRow(ctx, getCash, id).Scan(&cash)
	return cash, err
}

const setCash = `UPDATE users SET cash = $2 WHERE id = $1`

func (q *Queries) SetCash(ctx context.Context, id int64, cash decimal.Decimal) (int64, error) {
	tag, err := q.db.Exec(ctx, setCash, id, cash)
	return tag.RowsAffected(), err
}

const getPosition = `SELECT shares FROM positions WHERE user_id = $1 AND symbol = $2`

func (q *Queries) GetPosition(ctx context.Context, id int64, symbol string) (int64, error) {
	var shares int64
	err := q.db.QueryRow(ctx, getPosition, id, symbol).Scan(&shares)
	return shares, err
}

const upsertPosition = `
INSERT INTO positions (user_id, symbol, shares)
VALUES ($1, $2, $3)
ON CONFLICT (user_id, symbol) DO UPDATE SET shares = EXCLUDED.shares`

func (q *Queries) UpsertPosition(ctx context.Context, id int64, symbol string, shares int64) error {
	_, err := q.db.Exec(ctx, upsertPosition, id, symbol, shares)
	return err
}

const deletePosition = `DELETE FROM positions WHERE user_id = $1 AND symbol = $2`

func (q *Queries) DeletePosition(ctx context.Context, id int64, symbol string) error {
	_, err := q.db.Exec(ctx, deletePosition, id, symbol)
	return err
}

const listPositions = `SELECT symbol, shares FROM positions WHERE user_id = $1 ORDER BY symbol`

func (q *Queries) ListPositions(ctx context.Context, id int64) ([]types.Position, error) {
	rows, err := q.db.Query(ctx, listPositions, id)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (types.Position, error) {
		var p types.Position
		err := row.Scan(&p.Symbol, &p.Shares)
		return p, err
	})
}

const appendHistory = `
INSERT INTO history (id, user_id, symbol, kind, shares, price, executed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

func (q *Queries) AppendHistory(ctx context.Context, e types.HistoryEntry) error {
	_, err := q.db.Exec(ctx, appendHistory,
		e.ID.String(), e.UserID, e.Symbol, string(e.Side), e.Shares, e.Price, e.Time)
	return err
}

const listHistory = `
SELECT id::text, user_id, symbol, kind, shares, price, executed_at
FROM history
WHERE user_id = $1
ORDER BY executed_at, seq`

func (q *Queries) ListHistory(ctx context.Context, id int64) ([]types.HistoryEntry, error) {
	rows, err := q.db.Query(ctx, listHistory, id)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (types.HistoryEntry, error) {
		var (
			e     types.HistoryEntry
			rawID string
			kind  string
		)
		if err := row.Scan(&rawID, &e.UserID, &e.Symbol, &kind, &e.Shares, &e.Price, &e.Time); err != nil {
			return e, err
		}
		parsed, err := uuid.Parse(rawID)
		if err != nil {
			return e, err
		}
		e.ID = parsed
		if e.Side, err = types.ParseSide(kind); err != nil {
			return e, err
		}
		e.Time = e.Time.UTC()
		return e, nil
	})
}
