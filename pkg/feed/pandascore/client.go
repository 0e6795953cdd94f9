// Package pandascore is a feed connector that polls the PandaScore live API
// for running LoL and Dota 2 matches and diffs successive frames into
// normalized game events and state snapshots.
package pandascore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the PandaScore REST API base URL.
	DefaultBaseURL = "https://api.pandascore.co"

	defaultRateLimit = 2.0 // free-tier friendly
	defaultBurst     = 2
)

// Client is a rate-limited PandaScore API client.
type Client struct {
	baseURL    string
	token      string
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

// NewClient creates a PandaScore client with the given API token.
func NewClient(token string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(defaultRateLimit), defaultBurst),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RunningMatch is one live series as listed by the API.
type RunningMatch struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Videogame struct {
		Slug string `json:"slug"`
	} `json:"videogame"`
	NumberOfGames int `json:"number_of_games"`
	Results       []struct {
		TeamID int64 `json:"team_id"`
		Score  int   `json:"score"`
	} `json:"results"`
	Opponents []struct {
		Opponent struct {
			ID      int64  `json:"id"`
			Name    string `json:"name"`
			Acronym string `json:"acronym"`
		} `json:"opponent"`
	} `json:"opponents"`
}

// ListRunning fetches currently running matches for a videogame slug
// ("league-of-legends" or "dota-2").
func (c *Client) ListRunning(ctx context.Context, videogame string) ([]RunningMatch, error) {
	params := url.Values{}
	params.Set("filter[videogame]", videogame)
	params.Set("page[size]", "50")

	var matches []RunningMatch
	if err := c.get(ctx, "/matches/running", params, &matches); err != nil {
		return nil, err
	}
	return matches, nil
}

// Frame is one live snapshot of a running game. Only the fields the differ
// consumes are decoded.
type Frame struct {
	GameID    int64 `json:"game_id"`
	Position  int   `json:"position"` // game number within the series
	ClockSecs int   `json:"current_timestamp"`
	Finished  bool  `json:"finished"`
	WinnerID  int64 `json:"winner_id"`

	Teams []FrameTeam `json:"teams"`
}

// FrameTeam is one side's counters within a frame.
type FrameTeam struct {
	TeamID   int64 `json:"team_id"`
	Kills    int   `json:"kills"`
	Deaths   int   `json:"deaths"`
	Gold     int   `json:"gold"`
	Towers   int   `json:"towers"`
	Dragons  int   `json:"dragons"`
	Barons   int   `json:"barons"`
	Heralds  int   `json:"heralds"`
	Inhibits int   `json:"inhibitors"`
	Roshans  int   `json:"roshans"`
	Barracks int   `json:"barracks"`
}

// FetchFrame fetches the latest live frame for a match.
func (c *Client) FetchFrame(ctx context.Context, matchID int64) (*Frame, error) {
	var frame Frame
	path := fmt.Sprintf("/matches/%d/live", matchID)
	if err := c.get(ctx, path, nil, &frame); err != nil {
		return nil, err
	}
	return &frame, nil
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
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("pandascore %s returned %d: %s", path, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}
