// Package market is a read-only Polymarket Gamma client for esports
// team-winner markets: discover markets for a live match and fetch the
// current YES price.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the Gamma API base URL.
	DefaultBaseURL = "https://gamma-api.polymarket.com"

	defaultRateLimit = 10.0 // requests per second
	defaultBurst     = 5
)

// ErrPriceOutOfRange is returned when the API reports a price outside (0,1).
var ErrPriceOutOfRange = fmt.Errorf("market price outside (0,1)")

// Market is one tradeable team-winner market.
type Market struct {
	ID        string          `json:"id"`
	Question  string          `json:"question"`
	Slug      string          `json:"slug"`
	YesPrice  decimal.Decimal `json:"yes_price"`
	Liquidity decimal.Decimal `json:"liquidity"`
	Active    bool            `json:"active"`
	Closed    bool            `json:"closed"`

	// Outcome team names as listed by the market.
	Team1Name string `json:"team1_name"`
	Team2Name string `json:"team2_name"`

	// CLOB token IDs per outcome, same order as the teams. Used to
	// subscribe the price stream.
	TokenIDs []string `json:"token_ids,omitempty"`
}

// Client is a rate-limited Gamma API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit sets custom rate limiting.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// NewClient creates a Gamma client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(defaultRateLimit), defaultBurst),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// gammaMarket mirrors the subset of the Gamma market payload we read.
type gammaMarket struct {
	ID            string `json:"id"`
	Question      string `json:"question"`
	Slug          string `json:"slug"`
	Active        bool   `json:"active"`
	Closed        bool   `json:"closed"`
	Liquidity     string `json:"liquidity"`
	Outcomes      string `json:"outcomes"`      // JSON-encoded array
	OutcomePrices string `json:"outcomePrices"` // JSON-encoded array
	ClobTokenIDs  string `json:"clobTokenIds"`  // JSON-encoded array
}

// ListEsportsMarkets fetches active markets under an esports tag slug
// (e.g. "lol" or "dota-2").
func (c *Client) ListEsportsMarkets(ctx context.Context, tagSlug string) ([]Market, error) {
	params := url.Values{}
	params.Set("tag_slug", tagSlug)
	params.Set("active", "true")
	params.Set("closed", "false")
	params.Set("limit", "100")

	var raw []gammaMarket
	if err := c.get(ctx, "/markets", params, &raw); err != nil {
		return nil, err
	}

	markets := make([]Market, 0, len(raw))
	for _, m := range raw {
		conv, err := convertMarket(m)
		if err != nil {
			continue // skip malformed entries, they are not tradeable anyway
		}
		markets = append(markets, conv)
	}
	return markets, nil
}

// FetchYesPrice returns the current YES price for a market. Prices outside
// (0,1) are rejected with ErrPriceOutOfRange; the edge layer guards again
// independently.
func (c *Client) FetchYesPrice(ctx context.Context, marketID string) (decimal.Decimal, error) {
	var raw gammaMarket
	if err := c.get(ctx, "/markets/"+marketID, nil, &raw); err != nil {
		return decimal.Zero, err
	}
	m, err := convertMarket(raw)
	if err != nil {
		return decimal.Zero, err
	}
	if m.YesPrice.LessThanOrEqual(decimal.Zero) || m.YesPrice.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return decimal.Zero, fmt.Errorf("market %s: %w: %s", marketID, ErrPriceOutOfRange, m.YesPrice)
	}
	return m.YesPrice, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("gamma %s returned %d: %s", path, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

func convertMarket(raw gammaMarket) (Market, error) {
	m := Market{
		ID:       raw.ID,
		Question: raw.Question,
		Slug:     raw.Slug,
		Active:   raw.Active,
		Closed:   raw.Closed,
	}

	if raw.Liquidity != "" {
		if liq, err := decimal.NewFromString(raw.Liquidity); err == nil {
			m.Liquidity = liq
		}
	}

	var outcomes []string
	if raw.Outcomes != "" {
		if err := json.Unmarshal([]byte(raw.Outcomes), &outcomes); err != nil {
			return m, fmt.Errorf("market %s: bad outcomes: %w", raw.ID, err)
		}
	}
	if len(outcomes) >= 2 {
		m.Team1Name = outcomes[0]
		m.Team2Name = outcomes[1]
	}

	if raw.ClobTokenIDs != "" {
		// Best effort; a market without token IDs just cannot be streamed.
		_ = json.Unmarshal([]byte(raw.ClobTokenIDs), &m.TokenIDs)
	}

	var prices []string
	if raw.OutcomePrices != "" {
		if err := json.Unmarshal([]byte(raw.OutcomePrices), &prices); err != nil {
			return m, fmt.Errorf("market %s: bad prices: %w", raw.ID, err)
		}
	}
	if len(prices) == 0 {
		return m, fmt.Errorf("market %s: no prices", raw.ID)
	}
	price, err := strconv.ParseFloat(prices[0], 64)
	if err != nil {
		return m, fmt.Errorf("market %s: bad price %q: %w", raw.ID, prices[0], err)
	}
	m.YesPrice = decimal.NewFromFloat(price)
	return m, nil
}
