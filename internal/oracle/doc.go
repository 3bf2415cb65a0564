// Package oracle resolves ticker symbols to quotes.
//
// Client talks to an IEX Cloud compatible REST API:
//
//	GET {base_url}/stock/{symbol}/quote?token={api_key}
//
// and reads symbol, companyName and latestPrice from the response. Static
// serves a fixed symbol table and backs tests and offline demos.
//
// Both return types.ErrUnknownSymbol when the symbol cannot be resolved.
package oracle
