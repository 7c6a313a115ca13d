package analysis

import (
	"github.com/amar01vidality/tradeai-companion/internal/market"
)

// Signal is the coarse direction read from the indicator set.
type Signal string

const (
	SignalBullish Signal = "bullish"
	SignalBearish Signal = "bearish"
	SignalNeutral Signal = "neutral"
)

// Snapshot bundles the indicator values for a symbol at a point in time.
// Indicators that lacked history are left at zero with the matching Has*
// flag unset.
type Snapshot struct {
	Symbol    string
	LastClose float64

	SMA20  float64
	SMA50  float64
	EMA12  float64
	RSI14  float64
	HasRSI bool

	MACD       float64
	MACDSignal float64
	MACDHist   float64
	HasMACD    bool

	BollMiddle float64
	BollUpper  float64
	BollLower  float64
	HasBands   bool

	VWAP    float64
	HasVWAP bool

	Signal Signal
}

// Summarize computes the indicator snapshot from bar history. It needs at
// least 21 bars for the core indicators; richer indicators switch on as
// history allows.
func Summarize(symbol string, bars []market.Bar) (*Snapshot, error) {
	if len(bars) < 21 {
		return nil, ErrNotEnoughData
	}

	closes := Closes(bars)
	snap := &Snapshot{
		Symbol:    symbol,
		LastClose: closes[len(closes)-1],
	}

	snap.SMA20, _ = SMA(closes, 20)
	if sma50, err := SMA(closes, 50); err == nil {
		snap.SMA50 = sma50
	}
	snap.EMA12, _ = EMA(closes, 12)

	if rsi, err := RSI(closes, 14); err == nil {
		snap.RSI14 = rsi
		snap.HasRSI = true
	}

	if macd, sig, hist, err := MACD(closes); err == nil {
		snap.MACD, snap.MACDSignal, snap.MACDHist = macd, sig, hist
		snap.HasMACD = true
	}

	if mid, up, low, err := Bollinger(closes, 20, 2); err == nil {
		snap.BollMiddle, snap.BollUpper, snap.BollLower = mid, up, low
		snap.HasBands = true
	}

	if vwap, err := VWAP(bars); err == nil {
		snap.VWAP = vwap
		snap.HasVWAP = true
	}

	snap.Signal = classify(snap)
	return snap, nil
}

// classify votes across the available indicators. Two or more aligned
// votes decide the direction; anything else is neutral.
func classify(s *Snapshot) Signal {
	bullish, bearish := 0, 0

	if s.SMA20 > 0 {
		if s.LastClose > s.SMA20 {
			bullish++
		} else if s.LastClose < s.SMA20 {
			bearish++
		}
	}
	if s.HasRSI {
		switch {
		case s.RSI14 < 30:
			bullish++ // oversold
		case s.RSI14 > 70:
			bearish++ // overbought
		}
	}
	if s.HasMACD {
		if s.MACDHist > 0 {
			bullish++
		} else if s.MACDHist < 0 {
			bearish++
		}
	}
	if s.HasVWAP {
		if s.LastClose > s.VWAP {
			bullish++
		} else if s.LastClose < s.VWAP {
			bearish++
		}
	}

	switch {
	case bullish >= 2 && bullish > bearish:
		return SignalBullish
	case bearish >= 2 && bearish > bullish:
		return SignalBearish
	default:
		return SignalNeutral
	}
}
