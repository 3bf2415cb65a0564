package types

import "errors"

// Failure taxonomy shared by the store, the engine and every front end.
// Callers match with errors.Is; the kind alone is enough to render a message.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnknownSymbol      = errors.New("unknown symbol")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInsufficientShares = errors.New("insufficient shares")
	ErrNoPosition         = errors.New("no position held")
	ErrNotFound           = errors.New("not found")
	ErrStoreUnavailable   = errors.New("store unavailable")
	ErrQuoteUnavailable   = errors.New("quote unavailable")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUnauthenticated    = errors.New("missing or invalid bearer token")
	ErrForbidden          = errors.New("token does not grant access to this user")
)

var kinds = []struct {
	err  error
	name string
}{
	// Unavailability wraps its cause, which may itself be a ledger failure,
	// so it is matched first.
	{ErrQuoteUnavailable, "quote_unavailable"},
	{ErrStoreUnavailable, "store_unavailable"},
	{ErrInvalidInput, "invalid_input"},
	{ErrUnknownSymbol, "unknown_symbol"},
	{ErrInsufficientFunds, "insufficient_funds"},
	{ErrInsufficientShares, "insufficient_shares"},
	{ErrNoPosition, "no_position"},
	{ErrNotFound, "not_found"},
	{ErrInvalidAmount, "invalid_amount"},
	{ErrUsernameTaken, "username_taken"},
	{ErrInvalidCredentials, "invalid_credentials"},
	{ErrUnauthenticated, "unauthenticated"},
	{ErrForbidden, "forbidden"},
}

// KindOf returns the taxonomy name of err, or "internal" when err does not
// wrap any of the ledger failures.
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "internal"
}
