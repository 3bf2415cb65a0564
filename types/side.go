package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

type Side string

const (
	SideTypeBuy  Side = "BUY"
	SideTypeSell Side = "SELL"
)

func (s Side) Valid() bool {
	return s == SideTypeBuy || s == SideTypeSell
}

// ParseSide accepts the stored spelling as well as "buy"/"Sell" variants.
func ParseSide(s string) (Side, error) {
	side := Side(strings.ToUpper(strings.TrimSpace(s)))
	if !side.Valid() {
		return "", fmt.Errorf("side %q: %w", s, ErrInvalidInput)
	}
	return side, nil
}

// UnmarshalJSON rejects anything ParseSide rejects, so a stored entry with a
// corrupt side fails to decode.
func (s *Side) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	side, err := ParseSide(raw)
	if err != nil {
		return err
	}
	*s = side
	return nil
}
