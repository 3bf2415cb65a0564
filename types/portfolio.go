package types

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID        int64           `json:"id"`
	Username  string          `json:"username"`
	Cash      decimal.Decimal `json:"cash"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Position is a user's holding of one symbol. A stored position always has
// Shares > 0.
type Position struct {
	Symbol string `json:"symbol"`
	Shares int64  `json:"shares"`
}
