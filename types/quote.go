package types

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Quote is a price/name pair for a symbol at a point in time. It is never
// persisted.
type Quote struct {
	Symbol string          `json:"symbol"`
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
}

// NormalizeSymbol trims and upper-cases a ticker so that "aapl " and "AAPL"
// address the same position.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
