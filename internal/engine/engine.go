package engine

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultConcurrency = 8

// Engine executes trades and deposits against the ledger and values
// portfolios. It is safe for concurrent use; per-user serialization is
// provided by the store's atomic units.
type Engine struct {
	store  ledgerStore
	oracle priceOracle
	logger *zap.Logger

	now         func() time.Time
	newID       func() uuid.UUID
	concurrency int
}

type Option func(*Engine)

// WithClock sets the source of execution and valuation timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithConcurrency bounds the number of oracle lookups in flight during a
// portfolio valuation. Values below 1 are ignored.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n >= 1 {
			e.concurrency = n
		}
	}
}

func New(store ledgerStore, oracle priceOracle, opts ...Option) *Engine {
	e := &Engine{
		store:       store,
		oracle:      oracle,
		logger:      zap.NewNop(),
		now:         time.Now,
		newID:       uuid.New,
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}
