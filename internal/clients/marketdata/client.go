package marketdata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/paper-trader/internal/domain"
)

// TokenSource supplies a valid provider access token for data calls.
// Implemented by the credential cache.
type TokenSource interface {
	Get(ctx context.Context) (string, error)
}

// Client for the market data provider service
type Client struct {
	baseURL   string
	apiKey    string
	apiSecret string
	tokens    TokenSource
	client    *http.Client
	log       zerolog.Logger
}

// ServiceResponse is the provider's standard response format
type ServiceResponse struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Error     *string         `json:"error"`
	Timestamp string          `json:"timestamp"`
}

// NewClient creates a new market data client. The token source may be set
// later with SetTokenSource to break the client/cache construction cycle.
func NewClient(baseURL, apiKey, apiSecret string, log zerolog.Logger) *Client {
	return &Client{
		baseURL:   baseURL,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log.With().Str("client", "marketdata").Logger(),
	}
}

// SetTokenSource wires the credential cache into the client
func (c *Client) SetTokenSource(ts TokenSource) {
	c.tokens = ts
}

// Quote fetches the last traded price and previous close for a symbol.
// Returns domain.ErrPriceUnavailable when the provider cannot price it.
func (c *Client) Quote(ctx context.Context, symbol, exchange string) (*Quote, error) {
	endpoint := fmt.Sprintf("/api/quotes/%s?exchange=%s", url.PathEscape(symbol), url.QueryEscape(exchange))

	resp, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var quote Quote
	if err := json.Unmarshal(resp.Data, &quote); err != nil {
		return nil, fmt.Errorf("failed to parse quote: %w", err)
	}

	if quote.LastPrice <= 0 {
		return nil, fmt.Errorf("%w: %s on %s", domain.ErrPriceUnavailable, symbol, exchange)
	}

	return &quote, nil
}

// Quotes fetches prices for multiple symbols in one request. Symbols the
// provider cannot price are absent from the result; callers decide whether
// that is fatal.
func (c *Client) Quotes(ctx context.Context, keys []SymbolKey) (map[SymbolKey]Quote, error) {
	if len(keys) == 0 {
		return map[SymbolKey]Quote{}, nil
	}

	resp, err := c.post(ctx, "/api/quotes/batch", map[string]interface{}{"symbols": keys})
	if err != nil {
		return nil, err
	}

	var quotes []Quote
	if err := json.Unmarshal(resp.Data, &quotes); err != nil {
		return nil, fmt.Errorf("failed to parse quotes: %w", err)
	}

	result := make(map[SymbolKey]Quote, len(quotes))
	for _, q := range quotes {
		if q.LastPrice > 0 {
			result[SymbolKey{Symbol: q.Symbol, Exchange: q.Exchange}] = q
		}
	}

	return result, nil
}

// Candles fetches daily price history for a symbol, oldest first
func (c *Client) Candles(ctx context.Context, symbol, exchange string, days int) ([]Candle, error) {
	endpoint := fmt.Sprintf("/api/history/%s?exchange=%s&days=%d",
		url.PathEscape(symbol), url.QueryEscape(exchange), days)

	resp, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var candles []Candle
	if err := json.Unmarshal(resp.Data, &candles); err != nil {
		return nil, fmt.Errorf("failed to parse candles: %w", err)
	}

	return candles, nil
}

// IssueToken exchanges the API credentials for a fresh access token.
// This is the only call that does not attach a bearer token.
func (c *Client) IssueToken(ctx context.Context) (string, error) {
	body, err := json.Marshal(map[string]string{
		"api_key":    c.apiKey,
		"api_secret": c.apiSecret,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/auth/token", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}
	defer resp.Body.Close()

	svcResp, err := c.parseResponse(resp)
	if err != nil {
		return "", err
	}

	var tok tokenResponse
	if err := json.Unmarshal(svcResp.Data, &tok); err != nil {
		return "", fmt.Errorf("failed to parse token response: %w", err)
	}

	if tok.AccessToken == "" {
		return "", fmt.Errorf("provider returned empty access token")
	}

	return tok.AccessToken, nil
}

// get makes an authenticated GET request to the provider
func (c *Client) get(ctx context.Context, endpoint string) (*ServiceResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	return c.do(ctx, req)
}

// post makes an authenticated POST request to the provider
func (c *Client) post(ctx context.Context, endpoint string, request interface{}) (*ServiceResponse, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(ctx, req)
}

func (c *Client) do(ctx context.Context, req *http.Request) (*ServiceResponse, error) {
	if c.tokens != nil {
		token, err := c.tokens.Get(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get access token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: provider returned 404", domain.ErrPriceUnavailable)
	}

	return c.parseResponse(resp)
}

// parseResponse parses the service response envelope
func (c *Client) parseResponse(resp *http.Response) (*ServiceResponse, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var result ServiceResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if !result.Success {
		errMsg := "unknown error"
		if result.Error != nil {
			errMsg = *result.Error
		}
		return &result, fmt.Errorf("provider error: %s", errMsg)
	}

	return &result, nil
}
