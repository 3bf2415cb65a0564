package oracle

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"papertrade/internal/config"
	"papertrade/types"
)

// Oracle resolves a symbol to its current quote.
type Oracle interface {
	Lookup(ctx context.Context, symbol string) (types.Quote, error)
}

// New builds the oracle selected by cfg.Driver. cfg is expected to be
// validated.
func New(cfg config.OracleConfig, logger *zap.Logger) (Oracle, error) {
	switch cfg.Driver {
	case "http":
		return NewClient(cfg.BaseURL, cfg.APIKey,
			WithTimeout(cfg.Timeout),
			WithRetries(cfg.MaxRetries, cfg.RetryBackoff),
			WithLogger(logger.Named("oracle")),
		), nil
	case "static":
		s := NewStatic()
		for sym, q := range cfg.Symbols {
			price, err := decimal.NewFromString(q.Price)
			if err != nil {
				return nil, fmt.Errorf("oracle.symbols.%s.price: %w", sym, err)
			}
			s.Set(sym, q.Name, price)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown oracle driver %q", cfg.Driver)
	}
}
