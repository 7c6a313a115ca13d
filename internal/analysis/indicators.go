// Package analysis computes technical indicators over OHLCV bars and
// condenses them into a snapshot used by the /analyze command and the AI
// prompt builder.
package analysis

import (
	"errors"
	"math"

	"github.com/amar01vidality/tradeai-companion/internal/market"
)

// ErrNotEnoughData is returned when the bar history is shorter than the
// indicator period requires.
var ErrNotEnoughData = errors.New("not enough bar data")

// SMA returns the simple moving average of the last period closes.
func SMA(closes []float64, period int) (float64, error) {
	if period <= 0 || len(closes) < period {
		return 0, ErrNotEnoughData
	}
	var sum float64
	for _, c := range closes[len(closes)-period:] {
		sum += c
	}
	return sum / float64(period), nil
}

// EMA returns the exponential moving average over the full series,
// seeded with the SMA of the first period values.
func EMA(closes []float64, period int) (float64, error) {
	if period <= 0 || len(closes) < period {
		return 0, ErrNotEnoughData
	}
	seed, err := SMA(closes[:period], period)
	if err != nil {
		return 0, err
	}
	k := 2.0 / (float64(period) + 1.0)
	ema := seed
	for _, c := range closes[period:] {
		ema = c*k + ema*(1-k)
	}
	return ema, nil
}

// RSI returns Wilder's relative strength index for the last value of the
// series.
func RSI(closes []float64, period int) (float64, error) {
	if period <= 0 || len(closes) < period+1 {
		return 0, ErrNotEnoughData
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			avgGain += delta
		} else {
			avgLoss -= delta
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	// Wilder smoothing over the remainder of the series.
	for i := period + 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return 100, nil
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), nil
}

// MACD returns the MACD line, signal line and histogram using the
// standard 12/26/9 configuration.
func MACD(closes []float64) (macd, signal, histogram float64, err error) {
	const fast, slow, signalPeriod = 12, 26, 9
	if len(closes) < slow+signalPeriod {
		return 0, 0, 0, ErrNotEnoughData
	}

	// Build the MACD series so the signal line has real history.
	macdSeries := make([]float64, 0, len(closes)-slow+1)
	for i := slow; i <= len(closes); i++ {
		window := closes[:i]
		f, err := EMA(window, fast)
		if err != nil {
			return 0, 0, 0, err
		}
		s, err := EMA(window, slow)
		if err != nil {
			return 0, 0, 0, err
		}
		macdSeries = append(macdSeries, f-s)
	}

	sig, err := EMA(macdSeries, signalPeriod)
	if err != nil {
		return 0, 0, 0, err
	}

	macd = macdSeries[len(macdSeries)-1]
	return macd, sig, macd - sig, nil
}

// Bollinger returns the middle, upper and lower Bollinger bands
// (period-SMA ± mult standard deviations).
func Bollinger(closes []float64, period int, mult float64) (middle, upper, lower float64, err error) {
	if period <= 0 || len(closes) < period {
		return 0, 0, 0, ErrNotEnoughData
	}

	window := closes[len(closes)-period:]
	mean, _ := SMA(closes, period)

	var sumSq float64
	for _, c := range window {
		d := c - mean
		sumSq += d * d
	}
	std := math.Sqrt(sumSq / float64(period))

	return mean, mean + mult*std, mean - mult*std, nil
}

// VWAP returns the volume-weighted average price across the bars, using
// the typical price (H+L+C)/3 per bar.
func VWAP(bars []market.Bar) (float64, error) {
	if len(bars) == 0 {
		return 0, ErrNotEnoughData
	}
	var pv, vol float64
	for _, b := range bars {
		typical := (b.High + b.Low + b.Close) / 3
		pv += typical * b.Volume
		vol += b.Volume
	}
	if vol == 0 {
		return 0, ErrNotEnoughData
	}
	return pv / vol, nil
}

// Closes extracts the close series from bars.
func Closes(bars []market.Bar) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}
