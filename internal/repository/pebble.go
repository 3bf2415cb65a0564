package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/shopspring/decimal"

	"papertrade/types"
)

// PebbleStore persists the ledger in an embedded pebble database. An atomic
// unit is an indexed batch committed with pebble.Sync.
type PebbleStore struct {
	db       *pebble.DB
	locks    *userLocks
	createMu sync.Mutex
	now      func() time.Time
}

type pebbleUser struct {
	ID        int64           `json:"id"`
	Username  string          `json:"username"`
	Hash      string          `json:"hash"`
	Cash      decimal.Decimal `json:"cash"`
	CreatedAt time.Time       `json:"createdAt"`
}

// NewPebbleStore opens (or creates) the database at path. A nil opts uses
// pebble defaults.
func NewPebbleStore(path string, opts *pebble.Options) (*PebbleStore, error) {
	if opts == nil {
		opts = &pebble.Options{}
	}
	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("open pebble %s: %w", path, err)
	}
	return &PebbleStore{db: db, locks: newUserLocks(), now: time.Now}, nil
}

func (s *PebbleStore) Close() error { return s.db.Close() }

// reader is satisfied by *pebble.DB, *pebble.Snapshot and an indexed
// *pebble.Batch.
type reader interface {
	Get(key []byte) ([]byte, io.Closer, error)
}

type iterReader interface {
	reader
	NewIter(o *pebble.IterOptions) (*pebble.Iterator, error)
}

func getJSON(r reader, key []byte, v any) (bool, error) {
	val, closer, err := r.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, unavailable("get", err)
	}
	defer closer.Close()
	if err := json.Unmarshal(val, v); err != nil {
		return false, unavailable("decode", err)
	}
	return true, nil
}

func getUint(r reader, key []byte) (uint64, bool, error) {
	val, closer, err := r.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, unavailable("get", err)
	}
	defer closer.Close()
	v, err := decodeUint(val)
	if err != nil {
		return 0, false, unavailable("decode", err)
	}
	return v, true, nil
}

func loadUser(r reader, id int64) (pebbleUser, error) {
	var u pebbleUser
	ok, err := getJSON(r, userKey(id), &u)
	if err != nil {
		return pebbleUser{}, err
	}
	if !ok {
		return pebbleUser{}, userNotFound(id)
	}
	return u, nil
}

func (u pebbleUser) record() UserRecord {
	return UserRecord{
		User: types.User{
			ID:        u.ID,
			Username:  u.Username,
			Cash:      u.Cash,
			CreatedAt: u.CreatedAt,
		},
		PasswordHash: u.Hash,
	}
}

func (s *PebbleStore) CreateUser(_ context.Context, username, passwordHash string, cash decimal.Decimal) (types.User, error) {
	if cash.IsNegative() {
		return types.User{}, fmt.Errorf("initial cash %s: %w", cash, types.ErrInvalidAmount)
	}
	s.createMu.Lock()
	defer s.createMu.Unlock()

	_, closer, err := s.db.Get(usernameKey(username))
	if err == nil {
		closer.Close()
		return types.User{}, fmt.Errorf("user %q: %w", username, types.ErrUsernameTaken)
	}
	if !errors.Is(err, pebble.ErrNotFound) {
		return types.User{}, unavailable("get username", err)
	}

	last, _, err := getUint(s.db, userSeqKey())
	if err != nil {
		return types.User{}, err
	}
	u := pebbleUser{
		ID:        int64(last + 1),
		Username:  username,
		Hash:      passwordHash,
		Cash:      cash,
		CreatedAt: s.now().UTC(),
	}
	data, err := json.Marshal(u)
	if err != nil {
		return types.User{}, fmt.Errorf("marshal user: %w", err)
	}

	b := s.db.NewBatch()
	defer b.Close()
	b.Set(userSeqKey(), encodeUint(uint64(u.ID)), nil)
	b.Set(userKey(u.ID), data, nil)
	b.Set(usernameKey(username), encodeUint(uint64(u.ID)), nil)
	if err := b.Commit(pebble.Sync); err != nil {
		return types.User{}, unavailable("commit user", err)
	}
	return u.record().User, nil
}

func (s *PebbleStore) GetUser(_ context.Context, userID int64) (types.User, error) {
	u, err := loadUser(s.db, userID)
	if err != nil {
		return types.User{}, err
	}
	return u.record().User, nil
}

func (s *PebbleStore) GetUserByName(_ context.Context, username string) (UserRecord, error) {
	id, ok, err := getUint(s.db, usernameKey(username))
	if err != nil {
		return UserRecord{}, err
	}
	if !ok {
		return UserRecord{}, fmt.Errorf("user %q: %w", username, types.ErrNotFound)
	}
	u, err := loadUser(s.db, int64(id))
	if err != nil {
		return UserRecord{}, err
	}
	return u.record(), nil
}

func (s *PebbleStore) GetCash(ctx context.Context, userID int64) (decimal.Decimal, error) {
	u, err := s.GetUser(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return u.Cash, nil
}

func (s *PebbleStore) ListPositions(ctx context.Context, userID int64) ([]types.Position, error) {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	return scanPositions(s.db, userID)
}

// Snapshot reads the user record and the position keys from one pebble
// snapshot, so a batch committed in between is either fully visible or not
// at all.
func (s *PebbleStore) Snapshot(_ context.Context, userID int64) (Holdings, error) {
	snap := s.db.NewSnapshot()
	defer snap.Close()

	u, err := loadUser(snap, userID)
	if err != nil {
		return Holdings{}, err
	}
	positions, err := scanPositions(snap, userID)
	if err != nil {
		return Holdings{}, err
	}
	return Holdings{Cash: u.Cash, Positions: positions}, nil
}

func scanPositions(r iterReader, userID int64) ([]types.Position, error) {
	prefix := positionPrefix(userID)
	iter, err := r.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, unavailable("iterate positions", err)
	}
	defer iter.Close()

	out := []types.Position{}
	for iter.First(); iter.Valid(); iter.Next() {
		shares, err := decodeUint(iter.Value())
		if err != nil {
			return nil, unavailable("decode position", err)
		}
		out = append(out, types.Position{
			Symbol: strings.TrimPrefix(string(iter.Key()), string(prefix)),
			Shares: int64(shares),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

func (s *PebbleStore) ListHistory(ctx context.Context, userID int64) ([]types.HistoryEntry, error) {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	prefix := historyPrefix(userID)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, unavailable("iterate history", err)
	}
	defer iter.Close()

	var out []types.HistoryEntry
	for iter.First(); iter.Valid(); iter.Next() {
		var e types.HistoryEntry
		if err := json.Unmarshal(iter.Value(), &e); err != nil {
			return nil, unavailable("decode history", err)
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out, nil
}

func (s *PebbleStore) RunAtomic(ctx context.Context, userID int64, fn func(tx Tx) error) error {
	release, err := s.locks.acquire(ctx, userID)
	if err != nil {
		return err
	}
	defer release()

	if _, err := loadUser(s.db, userID); err != nil {
		return err
	}

	b := s.db.NewIndexedBatch()
	defer b.Close()

	tx := &pebbleTx{b: b}
	err = fn(tx)
	tx.done = true
	if err != nil {
		return err
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return unavailable("commit", err)
	}
	return nil
}

// pebbleTx reads through the indexed batch so a unit sees its own writes.
type pebbleTx struct {
	b    *pebble.Batch
	done bool
}

func (tx *pebbleTx) GetCash(_ context.Context, userID int64) (decimal.Decimal, error) {
	if tx.done {
		return decimal.Zero, errTxDone
	}
	u, err := loadUser(tx.b, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return u.Cash, nil
}

func (tx *pebbleTx) SetCash(_ context.Context, userID int64, amount decimal.Decimal) error {
	if tx.done {
		return errTxDone
	}
	if amount.IsNegative() {
		return fmt.Errorf("cash %s: %w", amount, types.ErrInvalidAmount)
	}
	u, err := loadUser(tx.b, userID)
	if err != nil {
		return err
	}
	u.Cash = amount
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	if err := tx.b.Set(userKey(userID), data, nil); err != nil {
		return unavailable("set cash", err)
	}
	return nil
}

func (tx *pebbleTx) GetPosition(_ context.Context, userID int64, symbol string) (int64, error) {
	if tx.done {
		return 0, errTxDone
	}
	shares, _, err := getUint(tx.b, positionKeyBytes(userID, symbol))
	if err != nil {
		return 0, err
	}
	return int64(shares), nil
}

func (tx *pebbleTx) UpsertPosition(_ context.Context, userID int64, symbol string, shares int64) error {
	if tx.done {
		return errTxDone
	}
	key := positionKeyBytes(userID, symbol)
	switch {
	case shares < 0:
		return fmt.Errorf("position %s shares %d: %w", symbol, shares, types.ErrInvalidAmount)
	case shares == 0:
		if err := tx.b.Delete(key, nil); err != nil {
			return unavailable("delete position", err)
		}
	default:
		if err := tx.b.Set(key, encodeUint(uint64(shares)), nil); err != nil {
			return unavailable("set position", err)
		}
	}
	return nil
}

func (tx *pebbleTx) AppendHistory(_ context.Context, entry types.HistoryEntry) error {
	if tx.done {
		return errTxDone
	}
	last, _, err := getUint(tx.b, historySeqKey(entry.UserID))
	if err != nil {
		return err
	}
	seq := last + 1
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}
	if err := tx.b.Set(historySeqKey(entry.UserID), encodeUint(seq), nil); err != nil {
		return unavailable("set history seq", err)
	}
	if err := tx.b.Set(historyKey(entry.UserID, seq), data, nil); err != nil {
		return unavailable("append history", err)
	}
	return nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, types.ErrStoreUnavailable, err)
}

var _ Store = (*PebbleStore)(nil)
