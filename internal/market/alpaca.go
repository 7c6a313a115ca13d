package market

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client is a thin REST client for the Alpaca Market Data API.
type Client struct {
	key, secret, base string
	rest              *resty.Client
}

// NewClient creates a data API client. Credentials may be empty for the
// free IEX feed endpoints that allow anonymous access in tests.
func NewClient(key, secret, base string, timeout time.Duration) *Client {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(10 * time.Second)
	}
	return &Client{key: key, secret: secret, base: base, rest: r}
}

func (c *Client) req(ctx context.Context) *resty.Request {
	return c.rest.R().
		SetContext(ctx).
		SetHeader("APCA-API-KEY-ID", c.key).
		SetHeader("APCA-API-SECRET-KEY", c.secret)
}

type snapshotResp struct {
	LatestTrade struct {
		Price float64   `json:"p"`
		Size  float64   `json:"s"`
		Ts    time.Time `json:"t"`
	} `json:"latestTrade"`
	DailyBar struct {
		Volume float64 `json:"v"`
		Close  float64 `json:"c"`
	} `json:"dailyBar"`
	PrevDailyBar struct {
		Close float64 `json:"c"`
	} `json:"prevDailyBar"`
}

// GetQuote fetches the latest snapshot for a symbol and derives the
// day-over-day change from the previous daily close.
func (c *Client) GetQuote(ctx context.Context, symbol string) (*Quote, error) {
	var snap snapshotResp
	resp, err := c.req(ctx).
		SetResult(&snap).
		Get(fmt.Sprintf("%s/v2/stocks/%s/snapshot", c.base, symbol))
	if err != nil {
		return nil, fmt.Errorf("snapshot request failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("snapshot API error: status %d, body: %s", resp.StatusCode(), resp.String())
	}
	if snap.LatestTrade.Price <= 0 {
		return nil, fmt.Errorf("no trade data for %s", symbol)
	}

	q := &Quote{
		Symbol:    symbol,
		Price:     snap.LatestTrade.Price,
		Volume:    snap.DailyBar.Volume,
		PrevClose: snap.PrevDailyBar.Close,
		Ts:        snap.LatestTrade.Ts,
	}
	if q.Ts.IsZero() {
		q.Ts = time.Now()
	}
	if q.PrevClose > 0 {
		q.Change = q.Price - q.PrevClose
		q.ChangePct = q.Change / q.PrevClose * 100
	}
	return q, nil
}

type barsResp struct {
	Bars []struct {
		Ts     time.Time `json:"t"`
		Open   float64   `json:"o"`
		High   float64   `json:"h"`
		Low    float64   `json:"l"`
		Close  float64   `json:"c"`
		Volume float64   `json:"v"`
	} `json:"bars"`
	NextPageToken *string `json:"next_page_token"`
}

// GetBars fetches up to limit bars for a symbol since start.
func (c *Client) GetBars(ctx context.Context, symbol string, timeframe Timeframe, start time.Time, limit int) ([]Bar, error) {
	params := map[string]string{
		"timeframe": string(timeframe),
		"limit":     strconv.Itoa(limit),
	}
	if !start.IsZero() {
		params["start"] = start.UTC().Format(time.RFC3339)
	}

	var result barsResp
	resp, err := c.req(ctx).
		SetQueryParams(params).
		SetResult(&result).
		Get(fmt.Sprintf("%s/v2/stocks/%s/bars", c.base, symbol))
	if err != nil {
		return nil, fmt.Errorf("bars request failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("bars API error: status %d, body: %s", resp.StatusCode(), resp.String())
	}

	bars := make([]Bar, 0, len(result.Bars))
	for _, b := range result.Bars {
		if b.Close <= 0 {
			continue
		}
		bars = append(bars, Bar{
			Symbol: symbol,
			Ts:     b.Ts,
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		})
	}
	return bars, nil
}
