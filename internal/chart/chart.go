// Package chart renders candlestick chart images through the chart-img API.
package chart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

// ErrNotConfigured is returned when no API key was provided.
var ErrNotConfigured = errors.New("chart: no API key configured")

// Client fetches rendered chart PNGs.
type Client struct {
	key  string
	base string
	rest *resty.Client
}

// NewClient creates a chart client. An empty key disables rendering.
func NewClient(key, baseURL string, timeout time.Duration) *Client {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(20 * time.Second)
	}
	return &Client{key: key, base: strings.TrimRight(baseURL, "/"), rest: r}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool { return c.key != "" }

type chartRequest struct {
	Symbol   string   `json:"symbol"`
	Interval string   `json:"interval"`
	Width    int      `json:"width"`
	Height   int      `json:"height"`
	Theme    string   `json:"theme"`
	Studies  []string `json:"studies,omitempty"`
}

// Render returns PNG bytes for the given symbol and interval (e.g. "1D").
func (c *Client) Render(ctx context.Context, symbol, interval string) ([]byte, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	body := chartRequest{
		Symbol:   symbol,
		Interval: interval,
		Width:    800,
		Height:   600,
		Theme:    "dark",
		Studies:  []string{"RSI", "MACD"},
	}

	resp, err := c.rest.R().
		SetContext(ctx).
		SetHeader("x-api-key", c.key).
		SetBody(body).
		Post(c.base + "/v2/tradingview/advanced-chart")
	if err != nil {
		return nil, fmt.Errorf("chart request failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("chart API error: status %d: %s", resp.StatusCode(), truncate(resp.String(), 200))
	}
	png := resp.Body()
	if len(png) == 0 {
		return nil, fmt.Errorf("chart API returned empty body")
	}

	log.Debug().Str("symbol", symbol).Str("interval", interval).Int("bytes", len(png)).Msg("chart rendered")
	return png, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
