// Package ratesapi talks to ExchangeRate-API v6 and provides caching and
// logging decorators around it.
package ratesapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/currency-exchange-api/internal/config"
	"github.com/currency-exchange-api/internal/domain"
	"github.com/shopspring/decimal"
)

// Oracle returns the latest rates against base.
type Oracle interface {
	Latest(ctx context.Context, base domain.CurrencyCode) (domain.RateTable, error)
}

// Client is the HTTP Oracle.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.RateAPIBaseURL, "/"),
		apiKey:  cfg.RateAPIKey,
		http:    &http.Client{Timeout: cfg.RateAPITimeout},
	}
}

// latestResponse covers both the keyed endpoint (conversion_rates) and the
// open endpoint (rates).
type latestResponse struct {
	Result          string                     `json:"result"`
	ErrorType       string                     `json:"error-type"`
	BaseCode        string                     `json:"base_code"`
	TimeLastUpdate  int64                      `json:"time_last_update_unix"`
	ConversionRates map[string]decimal.Decimal `json:"conversion_rates"`
	Rates           map[string]decimal.Decimal `json:"rates"`
}

func (c *Client) url(base domain.CurrencyCode) string {
	if c.apiKey == "" {
		return fmt.Sprintf("%s/latest/%s", c.baseURL, base)
	}
	return fmt.Sprintf("%s/%s/latest/%s", c.baseURL, c.apiKey, base)
}

func (c *Client) Latest(ctx context.Context, base domain.CurrencyCode) (domain.RateTable, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(base), nil)
	if err != nil {
		return domain.RateTable{}, fmt.Errorf("building rates request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return domain.RateTable{}, fmt.Errorf("rates api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.RateTable{}, fmt.Errorf("rates api: unexpected status %d", resp.StatusCode)
	}
	var body latestResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.RateTable{}, fmt.Errorf("decoding rates: %w", err)
	}
	if body.Result == "error" {
		return domain.RateTable{}, fmt.Errorf("rates api: %s", body.ErrorType)
	}

	raw := body.ConversionRates
	if len(raw) == 0 {
		raw = body.Rates
	}
	if len(raw) == 0 {
		return domain.RateTable{}, fmt.Errorf("rates api: empty rate table for %s", base)
	}
	rates := make(map[domain.CurrencyCode]decimal.Decimal, len(raw))
	for code, r := range raw {
		cc, ok := domain.NormalizeCode(code)
		if !ok || !r.IsPositive() {
			continue
		}
		rates[cc] = r
	}

	fetched := time.Now().UTC()
	if body.TimeLastUpdate > 0 {
		fetched = time.Unix(body.TimeLastUpdate, 0).UTC()
	}
	return domain.RateTable{
		Base:      base,
		Rates:     rates,
		Source:    domain.SourceLive,
		FetchedAt: fetched,
	}, nil
}
