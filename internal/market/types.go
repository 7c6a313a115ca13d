// Package market provides quote and bar access for US equities through the
// Alpaca Market Data API, with a Redis read-through cache, a BoltDB
// write-through history cache, and a streaming tick feed.
package market

import "time"

// Quote is the latest price snapshot for a symbol.
type Quote struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Change    float64   `json:"change"`
	ChangePct float64   `json:"change_pct"`
	Volume    float64   `json:"volume"`
	PrevClose float64   `json:"prev_close"`
	Ts        time.Time `json:"ts"`
}

// Bar is a single OHLCV candle.
type Bar struct {
	Symbol string    `json:"symbol"`
	Ts     time.Time `json:"ts"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Tick is a single trade print from the streaming feed.
type Tick struct {
	Symbol string
	Price  float64
	Size   float64
	Ts     time.Time
}

// Timeframe is the bar aggregation window accepted by the data API.
type Timeframe string

const (
	Timeframe1Min  Timeframe = "1Min"
	Timeframe5Min  Timeframe = "5Min"
	Timeframe15Min Timeframe = "15Min"
	Timeframe1Hour Timeframe = "1Hour"
	Timeframe1Day  Timeframe = "1Day"
)
