package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"papertrade/types"
)

type quoteResponse struct {
	Symbol      string           `json:"symbol"`
	CompanyName string           `json:"companyName"`
	LatestPrice *decimal.Decimal `json:"latestPrice"`
}

// APIError is a non-2xx answer from the quote API.
type APIError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("quote api error %d: %s", e.StatusCode, e.Message)
}

// IsRetryable reports whether the API may answer differently if asked again.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// Lookup fetches the current quote for symbol. Unknown symbols and quotes
// without a usable price return types.ErrUnknownSymbol.
func (c *Client) Lookup(ctx context.Context, symbol string) (types.Quote, error) {
	sym := types.NormalizeSymbol(symbol)
	if sym == "" {
		return types.Quote{}, fmt.Errorf("empty symbol: %w", types.ErrUnknownSymbol)
	}

	resp, err := c.fetchQuote(ctx, sym)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return types.Quote{}, fmt.Errorf("quote %s: %w", sym, types.ErrUnknownSymbol)
		}
		c.logger.Warn("quote lookup failed", zap.String("symbol", sym), zap.Error(err))
		return types.Quote{}, fmt.Errorf("quote %s: %w", sym, err)
	}

	if resp.LatestPrice == nil || !resp.LatestPrice.IsPositive() {
		return types.Quote{}, fmt.Errorf("quote %s has no price: %w", sym, types.ErrUnknownSymbol)
	}
	if resp.Symbol == "" {
		resp.Symbol = sym
	}
	return types.Quote{
		Symbol: types.NormalizeSymbol(resp.Symbol),
		Name:   resp.CompanyName,
		Price:  *resp.LatestPrice,
	}, nil
}

// fetchQuote asks for sym's quote, retrying retryable API errors with
// jittered exponential backoff.
func (c *Client) fetchQuote(ctx context.Context, sym string) (quoteResponse, error) {
	endpoint := c.quoteURL(sym)
	delay := c.backoff

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			wait := jitter(delay)
			c.logger.Debug("retrying quote",
				zap.String("symbol", sym),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", wait),
			)
			select {
			case <-ctx.Done():
				return quoteResponse{}, ctx.Err()
			case <-time.After(wait):
			}
			delay *= 2
		}

		resp, err := c.getQuote(ctx, endpoint)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		var apiErr *APIError
		if !errors.As(err, &apiErr) || !apiErr.IsRetryable() {
			return quoteResponse{}, err
		}
	}

	if c.retries == 0 {
		return quoteResponse{}, lastErr
	}
	return quoteResponse{}, fmt.Errorf("gave up after %d attempts: %w", c.retries+1, lastErr)
}

func (c *Client) quoteURL(sym string) string {
	u := c.baseURL + "/stock/" + url.PathEscape(sym) + "/quote"
	if c.apiKey != "" {
		u += "?" + url.Values{"token": {c.apiKey}}.Encode()
	}
	return u
}

func (c *Client) getQuote(ctx context.Context, endpoint string) (quoteResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return quoteResponse{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return quoteResponse{}, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return quoteResponse{}, &APIError{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			Body:       body,
		}
	}

	var q quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&q); err != nil {
		return quoteResponse{}, fmt.Errorf("decode quote: %w", err)
	}
	return q, nil
}

// jitter spreads d over [d/2, 3d/2).
func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d/2 + time.Duration(rand.Int64N(int64(d)))
}
