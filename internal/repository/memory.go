package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"papertrade/types"
)

// MemoryStore keeps the ledger in process memory. It is used by tests and by
// the "memory" storage driver.
type MemoryStore struct {
	mu        sync.RWMutex
	users     map[int64]*UserRecord
	names     map[string]int64
	positions map[int64]map[string]int64
	history   map[int64][]types.HistoryEntry
	lastID    int64

	locks *userLocks
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[int64]*UserRecord),
		names:     make(map[string]int64),
		positions: make(map[int64]map[string]int64),
		history:   make(map[int64][]types.HistoryEntry),
		locks:     newUserLocks(),
		now:       time.Now,
	}
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) CreateUser(_ context.Context, username, passwordHash string, cash decimal.Decimal) (types.User, error) {
	if cash.IsNegative() {
		return types.User{}, fmt.Errorf("initial cash %s: %w", cash, types.ErrInvalidAmount)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.names[username]; ok {
		return types.User{}, fmt.Errorf("user %q: %w", username, types.ErrUsernameTaken)
	}
	s.lastID++
	rec := &UserRecord{
		User: types.User{
			ID:        s.lastID,
			Username:  username,
			Cash:      cash,
			CreatedAt: s.now().UTC(),
		},
		PasswordHash: passwordHash,
	}
	s.users[rec.ID] = rec
	s.names[username] = rec.ID
	return rec.User, nil
}

func (s *MemoryStore) GetUser(_ context.Context, userID int64) (types.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.users[userID]
	if !ok {
		return types.User{}, userNotFound(userID)
	}
	return rec.User, nil
}

func (s *MemoryStore) GetUserByName(_ context.Context, username string) (UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.names[username]
	if !ok {
		return UserRecord{}, fmt.Errorf("user %q: %w", username, types.ErrNotFound)
	}
	return *s.users[id], nil
}

func (s *MemoryStore) GetCash(ctx context.Context, userID int64) (decimal.Decimal, error) {
	u, err := s.GetUser(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return u.Cash, nil
}

func (s *MemoryStore) ListPositions(_ context.Context, userID int64) ([]types.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.users[userID]; !ok {
		return nil, userNotFound(userID)
	}
	return s.sortedPositions(userID), nil
}

func (s *MemoryStore) Snapshot(_ context.Context, userID int64) (Holdings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.users[userID]
	if !ok {
		return Holdings{}, userNotFound(userID)
	}
	return Holdings{Cash: rec.Cash, Positions: s.sortedPositions(userID)}, nil
}

// sortedPositions must be called with s.mu held.
func (s *MemoryStore) sortedPositions(userID int64) []types.Position {
	out := make([]types.Position, 0, len(s.positions[userID]))
	for sym, shares := range s.positions[userID] {
		out = append(out, types.Position{Symbol: sym, Shares: shares})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

func (s *MemoryStore) ListHistory(_ context.Context, userID int64) ([]types.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.users[userID]; !ok {
		return nil, userNotFound(userID)
	}
	out := append([]types.HistoryEntry(nil), s.history[userID]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out, nil
}

func (s *MemoryStore) RunAtomic(ctx context.Context, userID int64, fn func(tx Tx) error) error {
	release, err := s.locks.acquire(ctx, userID)
	if err != nil {
		return err
	}
	defer release()

	if _, err := s.GetUser(ctx, userID); err != nil {
		return err
	}

	tx := &memoryTx{
		s:         s,
		cash:      make(map[int64]decimal.Decimal),
		positions: make(map[positionKey]int64),
	}
	defer func() { tx.done = true }()

	if err := fn(tx); err != nil {
		return err
	}
	s.commit(tx)
	return nil
}

func (s *MemoryStore) commit(tx *memoryTx) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, cash := range tx.cash {
		s.users[id].Cash = cash
	}
	for k, shares := range tx.positions {
		if shares == 0 {
			delete(s.positions[k.userID], k.symbol)
			continue
		}
		if s.positions[k.userID] == nil {
			s.positions[k.userID] = make(map[string]int64)
		}
		s.positions[k.userID][k.symbol] = shares
	}
	for _, e := range tx.history {
		s.history[e.UserID] = append(s.history[e.UserID], e)
	}
}

type positionKey struct {
	userID int64
	symbol string
}

// memoryTx stages writes in an overlay; nothing reaches the store until
// commit.
type memoryTx struct {
	s         *MemoryStore
	cash      map[int64]decimal.Decimal
	positions map[positionKey]int64
	history   []types.HistoryEntry
	done      bool
}

func (tx *memoryTx) GetCash(ctx context.Context, userID int64) (decimal.Decimal, error) {
	if tx.done {
		return decimal.Zero, errTxDone
	}
	if cash, ok := tx.cash[userID]; ok {
		return cash, nil
	}
	return tx.s.GetCash(ctx, userID)
}

func (tx *memoryTx) SetCash(ctx context.Context, userID int64, amount decimal.Decimal) error {
	if tx.done {
		return errTxDone
	}
	if amount.IsNegative() {
		return fmt.Errorf("cash %s: %w", amount, types.ErrInvalidAmount)
	}
	if _, err := tx.s.GetUser(ctx, userID); err != nil {
		return err
	}
	tx.cash[userID] = amount
	return nil
}

func (tx *memoryTx) GetPosition(_ context.Context, userID int64, symbol string) (int64, error) {
	if tx.done {
		return 0, errTxDone
	}
	if shares, ok := tx.positions[positionKey{userID, symbol}]; ok {
		return shares, nil
	}
	tx.s.mu.RLock()
	defer tx.s.mu.RUnlock()
	return tx.s.positions[userID][symbol], nil
}

func (tx *memoryTx) UpsertPosition(_ context.Context, userID int64, symbol string, shares int64) error {
	if tx.done {
		return errTxDone
	}
	if shares < 0 {
		return fmt.Errorf("position %s shares %d: %w", symbol, shares, types.ErrInvalidAmount)
	}
	tx.positions[positionKey{userID, symbol}] = shares
	return nil
}

func (tx *memoryTx) AppendHistory(_ context.Context, entry types.HistoryEntry) error {
	if tx.done {
		return errTxDone
	}
	tx.history = append(tx.history, entry)
	return nil
}

func userNotFound(userID int64) error {
	return fmt.Errorf("user %d: %w", userID, types.ErrNotFound)
}

var _ Store = (*MemoryStore)(nil)
