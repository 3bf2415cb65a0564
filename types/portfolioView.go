package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// PortfolioView is a point-in-time valuation of a user's holdings.
type PortfolioView struct {
	UserID    int64              `json:"userId"`
	Cash      decimal.Decimal    `json:"cash"`
	Positions []PositionSnapshot `json:"positions"`
	Total     decimal.Decimal    `json:"total"`
	Time      time.Time          `json:"time"`
}

type PositionSnapshot struct {
	Symbol string          `json:"symbol"`
	Name   string          `json:"name"`
	Shares int64           `json:"shares"`
	Price  decimal.Decimal `json:"price"`
	Value  decimal.Decimal `json:"value"`
}
