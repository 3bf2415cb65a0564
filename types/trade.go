package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// HistoryEntry is the immutable audit record of a completed trade.
type HistoryEntry struct {
	ID     uuid.UUID       `json:"id"`
	UserID int64           `json:"userId"`
	Symbol string          `json:"symbol"`
	Side   Side            `json:"side"`
	Shares int64           `json:"shares"`
	Price  decimal.Decimal `json:"price"`
	Time   time.Time       `json:"time"`
}

// Amount is the cash moved by the entry (shares x execution price).
func (h HistoryEntry) Amount() decimal.Decimal {
	return h.Price.Mul(decimal.NewFromInt(h.Shares))
}

// TradeResult is returned by a successful Buy or Sell.
type TradeResult struct {
	Entry    HistoryEntry    `json:"entry"`
	Name     string          `json:"name"`
	Position int64           `json:"position"`
	Cash     decimal.Decimal `json:"cash"`
}
