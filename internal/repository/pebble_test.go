package repository

import (
	"context"
	"testing"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newMemPebble(t *testing.T) *PebbleStore {
	t.Helper()
	s, err := NewPebbleStore("", &pebble.Options{FS: vfs.NewMem()})
	if err != nil {
		t.Fatalf("NewPebbleStore failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPebbleStore(t *testing.T) {
	testStoreContract(t, func(t *testing.T) Store {
		return newMemPebble(t)
	})
}

func TestPebbleStore_Reopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := NewPebbleStore(dir, nil)
	if err != nil {
		t.Fatalf("NewPebbleStore failed: %v", err)
	}
	u, err := s.CreateUser(ctx, "alice", "h", decimal.NewFromInt(10))
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	mustAtomic(t, s, u.ID, func(tx Tx) error { return tx.UpsertPosition(ctx, u.ID, "AAA", 3) })
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	s, err = NewPebbleStore(dir, nil)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()

	positions, err := s.ListPositions(ctx, u.ID)
	if err != nil {
		t.Fatalf("ListPositions failed: %v", err)
	}
	if len(positions) != 1 || positions[0].Shares != 3 {
		t.Errorf("positions after reopen = %+v", positions)
	}
	u2, err := s.CreateUser(ctx, "bob", "h", decimal.Zero)
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if u2.ID != u.ID+1 {
		t.Errorf("user id after reopen = %d, want %d", u2.ID, u.ID+1)
	}
}

func TestPebbleLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := newPebbleLogger(zap.New(core).Named("pebble"))
	l.Infof("replayed %d WAL entries", 3)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].Message != "replayed 3 WAL entries" || entries[0].LoggerName != "pebble" {
		t.Errorf("entry = %q from %q", entries[0].Message, entries[0].LoggerName)
	}

	// The store accepts the adapter as its pebble logger.
	s, err := NewPebbleStore("", &pebble.Options{FS: vfs.NewMem(), Logger: l})
	if err != nil {
		t.Fatalf("NewPebbleStore failed: %v", err)
	}
	s.Close()
}

func TestKeyUpperBound(t *testing.T) {
	prefix := positionPrefix(1)
	bound := keyUpperBound(prefix)
	if string(bound[:len(bound)-1]) != string(prefix[:len(prefix)-1]) {
		t.Fatalf("bound %q does not share prefix %q", bound, prefix)
	}
	if string(positionKeyBytes(1, "ZZZZ")) >= string(bound) {
		t.Errorf("key for user 1 sorts past bound")
	}
	if string(positionKeyBytes(2, "A")) < string(bound) {
		t.Errorf("key for user 2 sorts inside user 1 range")
	}
}
