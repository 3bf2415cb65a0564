package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"papertrade/types"
)

var errAbort = errors.New("abort")

// testStoreContract runs the behaviour every driver must share.
func testStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	newUser := func(t *testing.T, s Store, name, cash string) types.User {
		t.Helper()
		u, err := s.CreateUser(ctx, name, "hash-"+name, decimal.RequireFromString(cash))
		if err != nil {
			t.Fatalf("CreateUser(%s) failed: %v", name, err)
		}
		return u
	}

	t.Run("create and fetch user", func(t *testing.T) {
		s := newStore(t)
		u := newUser(t, s, "alice", "10000")
		if u.ID == 0 {
			t.Fatal("user id should be assigned")
		}
		got, err := s.GetUser(ctx, u.ID)
		if err != nil {
			t.Fatalf("GetUser failed: %v", err)
		}
		if got.Username != "alice" || !got.Cash.Equal(decimal.NewFromInt(10000)) {
			t.Errorf("GetUser = %+v", got)
		}
		rec, err := s.GetUserByName(ctx, "alice")
		if err != nil {
			t.Fatalf("GetUserByName failed: %v", err)
		}
		if rec.ID != u.ID || rec.PasswordHash != "hash-alice" {
			t.Errorf("GetUserByName = %+v", rec)
		}
	})

	t.Run("duplicate username", func(t *testing.T) {
		s := newStore(t)
		newUser(t, s, "bob", "1")
		_, err := s.CreateUser(ctx, "bob", "x", decimal.Zero)
		if !errors.Is(err, types.ErrUsernameTaken) {
			t.Fatalf("CreateUser duplicate error = %v, want ErrUsernameTaken", err)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		s := newStore(t)
		if _, err := s.GetCash(ctx, 999); !errors.Is(err, types.ErrNotFound) {
			t.Errorf("GetCash error = %v, want ErrNotFound", err)
		}
		if _, err := s.GetUserByName(ctx, "nobody"); !errors.Is(err, types.ErrNotFound) {
			t.Errorf("GetUserByName error = %v, want ErrNotFound", err)
		}
		err := s.RunAtomic(ctx, 999, func(tx Tx) error { return nil })
		if !errors.Is(err, types.ErrNotFound) {
			t.Errorf("RunAtomic error = %v, want ErrNotFound", err)
		}
		if _, err := s.ListHistory(ctx, 999); !errors.Is(err, types.ErrNotFound) {
			t.Errorf("ListHistory error = %v, want ErrNotFound", err)
		}
	})

	t.Run("commit publishes all writes", func(t *testing.T) {
		s := newStore(t)
		u := newUser(t, s, "carol", "100")
		entry := testEntry(u.ID, "AAA", types.SideTypeBuy, 2, "10", time.Unix(100, 0))

		err := s.RunAtomic(ctx, u.ID, func(tx Tx) error {
			if err := tx.SetCash(ctx, u.ID, decimal.NewFromInt(80)); err != nil {
				return err
			}
			// Reads inside the unit see the unit's own writes.
			cash, err := tx.GetCash(ctx, u.ID)
			if err != nil {
				return err
			}
			if !cash.Equal(decimal.NewFromInt(80)) {
				return fmt.Errorf("cash inside unit = %s", cash)
			}
			if err := tx.UpsertPosition(ctx, u.ID, "AAA", 2); err != nil {
				return err
			}
			shares, err := tx.GetPosition(ctx, u.ID, "AAA")
			if err != nil {
				return err
			}
			if shares != 2 {
				return fmt.Errorf("position inside unit = %d", shares)
			}
			return tx.AppendHistory(ctx, entry)
		})
		if err != nil {
			t.Fatalf("RunAtomic failed: %v", err)
		}

		cash, _ := s.GetCash(ctx, u.ID)
		if !cash.Equal(decimal.NewFromInt(80)) {
			t.Errorf("cash = %s, want 80", cash)
		}
		positions, err := s.ListPositions(ctx, u.ID)
		if err != nil {
			t.Fatalf("ListPositions failed: %v", err)
		}
		if len(positions) != 1 || positions[0] != (types.Position{Symbol: "AAA", Shares: 2}) {
			t.Errorf("positions = %+v", positions)
		}
		history, err := s.ListHistory(ctx, u.ID)
		if err != nil {
			t.Fatalf("ListHistory failed: %v", err)
		}
		if len(history) != 1 {
			t.Fatalf("history len = %d, want 1", len(history))
		}
		got := history[0]
		if got.ID != entry.ID || got.Symbol != "AAA" || got.Side != types.SideTypeBuy ||
			got.Shares != 2 || !got.Price.Equal(entry.Price) || !got.Time.Equal(entry.Time) {
			t.Errorf("history[0] = %+v, want %+v", got, entry)
		}
	})

	t.Run("error discards all writes", func(t *testing.T) {
		s := newStore(t)
		u := newUser(t, s, "dave", "100")
		err := s.RunAtomic(ctx, u.ID, func(tx Tx) error {
			tx.SetCash(ctx, u.ID, decimal.NewFromInt(1))
			tx.UpsertPosition(ctx, u.ID, "BBB", 7)
			tx.AppendHistory(ctx, testEntry(u.ID, "BBB", types.SideTypeBuy, 7, "1", time.Unix(1, 0)))
			return errAbort
		})
		if !errors.Is(err, errAbort) {
			t.Fatalf("RunAtomic error = %v, want errAbort", err)
		}
		cash, _ := s.GetCash(ctx, u.ID)
		if !cash.Equal(decimal.NewFromInt(100)) {
			t.Errorf("cash = %s, want 100", cash)
		}
		positions, _ := s.ListPositions(ctx, u.ID)
		if len(positions) != 0 {
			t.Errorf("positions = %+v, want none", positions)
		}
		history, _ := s.ListHistory(ctx, u.ID)
		if len(history) != 0 {
			t.Errorf("history = %+v, want none", history)
		}
	})

	t.Run("invalid amounts", func(t *testing.T) {
		s := newStore(t)
		u := newUser(t, s, "erin", "5")
		err := s.RunAtomic(ctx, u.ID, func(tx Tx) error {
			return tx.SetCash(ctx, u.ID, decimal.NewFromInt(-1))
		})
		if !errors.Is(err, types.ErrInvalidAmount) {
			t.Errorf("SetCash(-1) error = %v, want ErrInvalidAmount", err)
		}
		err = s.RunAtomic(ctx, u.ID, func(tx Tx) error {
			return tx.UpsertPosition(ctx, u.ID, "CCC", -3)
		})
		if !errors.Is(err, types.ErrInvalidAmount) {
			t.Errorf("UpsertPosition(-3) error = %v, want ErrInvalidAmount", err)
		}
	})

	t.Run("zero shares deletes position", func(t *testing.T) {
		s := newStore(t)
		u := newUser(t, s, "frank", "5")
		mustAtomic(t, s, u.ID, func(tx Tx) error { return tx.UpsertPosition(ctx, u.ID, "DDD", 4) })
		mustAtomic(t, s, u.ID, func(tx Tx) error { return tx.UpsertPosition(ctx, u.ID, "EEE", 1) })
		mustAtomic(t, s, u.ID, func(tx Tx) error { return tx.UpsertPosition(ctx, u.ID, "DDD", 0) })

		positions, _ := s.ListPositions(ctx, u.ID)
		if len(positions) != 1 || positions[0].Symbol != "EEE" {
			t.Errorf("positions = %+v, want only EEE", positions)
		}
		mustAtomic(t, s, u.ID, func(tx Tx) error {
			shares, err := tx.GetPosition(ctx, u.ID, "DDD")
			if err != nil {
				return err
			}
			if shares != 0 {
				return fmt.Errorf("deleted position reads %d", shares)
			}
			return nil
		})
	})

	t.Run("history ordered by time", func(t *testing.T) {
		s := newStore(t)
		u := newUser(t, s, "gina", "5")
		times := []int64{30, 10, 20}
		for _, sec := range times {
			e := testEntry(u.ID, "FFF", types.SideTypeBuy, 1, "1", time.Unix(sec, 0))
			mustAtomic(t, s, u.ID, func(tx Tx) error { return tx.AppendHistory(ctx, e) })
		}
		history, _ := s.ListHistory(ctx, u.ID)
		if len(history) != 3 {
			t.Fatalf("history len = %d", len(history))
		}
		for i := 1; i < len(history); i++ {
			if history[i].Time.Before(history[i-1].Time) {
				t.Fatalf("history out of order: %v before %v", history[i].Time, history[i-1].Time)
			}
		}
	})

	t.Run("units for one user serialize", func(t *testing.T) {
		s := newStore(t)
		u := newUser(t, s, "hank", "0")
		const workers = 20
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := s.RunAtomic(ctx, u.ID, func(tx Tx) error {
					cash, err := tx.GetCash(ctx, u.ID)
					if err != nil {
						return err
					}
					return tx.SetCash(ctx, u.ID, cash.Add(decimal.NewFromInt(1)))
				})
				if err != nil {
					t.Errorf("RunAtomic failed: %v", err)
				}
			}()
		}
		wg.Wait()
		cash, _ := s.GetCash(ctx, u.ID)
		if !cash.Equal(decimal.NewFromInt(workers)) {
			t.Errorf("cash = %s, want %d (lost update)", cash, workers)
		}
	})

	t.Run("snapshot reads cash and positions together", func(t *testing.T) {
		s := newStore(t)
		u := newUser(t, s, "judy", "1000")
		mustAtomic(t, s, u.ID, func(tx Tx) error {
			return tx.UpsertPosition(ctx, u.ID, "KKK", 10)
		})

		got, err := s.Snapshot(ctx, u.ID)
		if err != nil {
			t.Fatalf("Snapshot failed: %v", err)
		}
		if !got.Cash.Equal(decimal.NewFromInt(1000)) {
			t.Errorf("cash = %s, want 1000", got.Cash)
		}
		if len(got.Positions) != 1 || got.Positions[0] != (types.Position{Symbol: "KKK", Shares: 10}) {
			t.Errorf("positions = %+v", got.Positions)
		}
		if _, err := s.Snapshot(ctx, 999); !errors.Is(err, types.ErrNotFound) {
			t.Errorf("Snapshot error = %v, want ErrNotFound", err)
		}
	})

	t.Run("snapshot never sees half a unit", func(t *testing.T) {
		s := newStore(t)
		u := newUser(t, s, "kate", "1000")
		// Each unit moves one share at 10 between cash and the position, so
		// cash + 10*shares stays 1000 in every committed state.
		const rounds = 50
		done := make(chan error, 1)
		go func() {
			for i := 0; i < rounds; i++ {
				delta := int64(1)
				if i%2 == 1 {
					delta = -1
				}
				err := s.RunAtomic(ctx, u.ID, func(tx Tx) error {
					cash, err := tx.GetCash(ctx, u.ID)
					if err != nil {
						return err
					}
					shares, err := tx.GetPosition(ctx, u.ID, "LLL")
					if err != nil {
						return err
					}
					if err := tx.SetCash(ctx, u.ID, cash.Sub(decimal.NewFromInt(10*delta))); err != nil {
						return err
					}
					return tx.UpsertPosition(ctx, u.ID, "LLL", shares+delta)
				})
				if err != nil {
					done <- err
					return
				}
			}
			done <- nil
		}()

		for {
			select {
			case err := <-done:
				if err != nil {
					t.Fatalf("writer failed: %v", err)
				}
				return
			default:
			}
			h, err := s.Snapshot(ctx, u.ID)
			if err != nil {
				t.Fatalf("Snapshot failed: %v", err)
			}
			total := h.Cash
			for _, p := range h.Positions {
				total = total.Add(decimal.NewFromInt(10 * p.Shares))
			}
			if !total.Equal(decimal.NewFromInt(1000)) {
				t.Fatalf("torn snapshot: cash=%s positions=%+v", h.Cash, h.Positions)
			}
		}
	})

	t.Run("tx unusable after unit", func(t *testing.T) {
		s := newStore(t)
		u := newUser(t, s, "ivy", "1")
		var leaked Tx
		mustAtomic(t, s, u.ID, func(tx Tx) error { leaked = tx; return nil })
		if err := leaked.SetCash(ctx, u.ID, decimal.NewFromInt(50)); err == nil {
			t.Error("SetCash after unit should fail")
		}
		cash, _ := s.GetCash(ctx, u.ID)
		if !cash.Equal(decimal.NewFromInt(1)) {
			t.Errorf("cash = %s, want 1", cash)
		}
	})
}

func mustAtomic(t *testing.T, s Store, userID int64, fn func(tx Tx) error) {
	t.Helper()
	if err := s.RunAtomic(context.Background(), userID, fn); err != nil {
		t.Fatalf("RunAtomic failed: %v", err)
	}
}

func testEntry(userID int64, symbol string, side types.Side, shares int64, price string, at time.Time) types.HistoryEntry {
	return types.HistoryEntry{
		ID:     uuid.New(),
		UserID: userID,
		Symbol: symbol,
		Side:   side,
		Shares: shares,
		Price:  decimal.RequireFromString(price),
		Time:   at.UTC(),
	}
}
