package oracle

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"papertrade/types"
)

// Static serves quotes from an in-memory table. Prices can be changed at
// runtime with Set.
type Static struct {
	mu     sync.RWMutex
	quotes map[string]types.Quote
}

func NewStatic(quotes ...types.Quote) *Static {
	s := &Static{quotes: make(map[string]types.Quote, len(quotes))}
	for _, q := range quotes {
		s.Set(q.Symbol, q.Name, q.Price)
	}
	return s
}

// Set adds or replaces a symbol's quote.
func (s *Static) Set(symbol, name string, price decimal.Decimal) {
	sym := types.NormalizeSymbol(symbol)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotes[sym] = types.Quote{Symbol: sym, Name: name, Price: price}
}

// Remove delists a symbol.
func (s *Static) Remove(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.quotes, types.NormalizeSymbol(symbol))
}

func (s *Static) Lookup(_ context.Context, symbol string) (types.Quote, error) {
	sym := types.NormalizeSymbol(symbol)
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.quotes[sym]
	if !ok {
		return types.Quote{}, fmt.Errorf("quote %s: %w", sym, types.ErrUnknownSymbol)
	}
	return q, nil
}
