package prices

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	clierr "github.com/larivera/evm-agent/internal/errors"
	"github.com/larivera/evm-agent/internal/httpx"
)

const DefaultBaseURL = "https://api.coingecko.com/api/v3"

// Client fetches USD spot prices keyed by provider price id
// (e.g. "usd-coin", "weth").
type Client struct {
	http    *httpx.Client
	baseURL string
	apiKey  string
	log     *zap.Logger
}

func NewClient(http *httpx.Client, baseURL, apiKey string, log *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{http: http, baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey, log: log}
}

// flexFloat accepts both JSON numbers and numeric strings. Price
// providers are inconsistent about which they emit.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*f = 0
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return fmt.Errorf("parse price string %q: %w", s, err)
		}
		*f = flexFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

// USDPrices resolves the USD price of each id in one request. Ids the
// provider does not know are absent from the returned map.
func (c *Client) USDPrices(ctx context.Context, ids []string) (map[string]float64, error) {
	cleaned := make([]string, 0, len(ids))
	for _, id := range ids {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	if len(cleaned) == 0 {
		return map[string]float64{}, nil
	}

	endpoint := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd",
		c.baseURL, url.QueryEscape(strings.Join(cleaned, ",")))
	headers := map[string]string{}
	if c.apiKey != "" {
		headers["x-cg-demo-api-key"] = c.apiKey
	}

	var payload map[string]struct {
		USD flexFloat `json:"usd"`
	}
	start := time.Now()
	if err := c.http.GetJSON(ctx, endpoint, headers, &payload); err != nil {
		return nil, err
	}
	c.log.Debug("price lookup",
		zap.Int("ids", len(cleaned)),
		zap.Duration("took", time.Since(start)))

	out := make(map[string]float64, len(payload))
	for id, entry := range payload {
		out[id] = float64(entry.USD)
	}
	return out, nil
}

// USDPrice resolves a single id and errors when the provider has no
// quote for it.
func (c *Client) USDPrice(ctx context.Context, id string) (float64, error) {
	prices, err := c.USDPrices(ctx, []string{id})
	if err != nil {
		return 0, err
	}
	price, ok := prices[strings.TrimSpace(id)]
	if !ok {
		return 0, clierr.New(clierr.CodeUnknownToken, fmt.Sprintf("no price for %q", id))
	}
	return price, nil
}
