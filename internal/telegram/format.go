package telegram

import (
	"fmt"
	"strings"

	"github.com/amar01vidality/tradeai-companion/internal/alert"
	"github.com/amar01vidality/tradeai-companion/internal/analysis"
	"github.com/amar01vidality/tradeai-companion/internal/market"
	"github.com/amar01vidality/tradeai-companion/internal/trade"
)

// AbbrevNumber renders large values as 1.5K / 2.3M / 1.1B / 4.0T.
func AbbrevNumber(v float64) string {
	neg := ""
	if v < 0 {
		neg = "-"
		v = -v
	}
	switch {
	case v >= 1e12:
		return fmt.Sprintf("%s%.1fT", neg, v/1e12)
	case v >= 1e9:
		return fmt.Sprintf("%s%.1fB", neg, v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("%s%.1fM", neg, v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("%s%.1fK", neg, v/1e3)
	}
	return fmt.Sprintf("%s%.2f", neg, v)
}

func changeArrow(change float64) string {
	if change >= 0 {
		return "▲"
	}
	return "▼"
}

// FormatQuote renders a /price reply in HTML parse mode.
func FormatQuote(q *market.Quote) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b>  $%.2f\n", q.Symbol, q.Price)
	fmt.Fprintf(&b, "%s %+.2f (%+.2f%%)\n", changeArrow(q.Change), q.Change, q.ChangePct)
	if q.Volume > 0 {
		fmt.Fprintf(&b, "Volume: %s\n", AbbrevNumber(q.Volume))
	}
	if q.PrevClose > 0 {
		fmt.Fprintf(&b, "Prev close: $%.2f", q.PrevClose)
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatSnapshot renders the indicator block of an /analyze reply.
func FormatSnapshot(s *analysis.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b> technicals (close $%.2f)\n", s.Symbol, s.LastClose)
	fmt.Fprintf(&b, "SMA20 %.2f", s.SMA20)
	if s.SMA50 > 0 {
		fmt.Fprintf(&b, " · SMA50 %.2f", s.SMA50)
	}
	b.WriteString("\n")
	if s.HasRSI {
		fmt.Fprintf(&b, "RSI14 %.1f\n", s.RSI14)
	}
	if s.HasMACD {
		fmt.Fprintf(&b, "MACD %.3f / signal %.3f / hist %+.3f\n", s.MACD, s.MACDSignal, s.MACDHist)
	}
	if s.HasBands {
		fmt.Fprintf(&b, "Bands %.2f – %.2f – %.2f\n", s.BollLower, s.BollMiddle, s.BollUpper)
	}
	if s.HasVWAP {
		fmt.Fprintf(&b, "VWAP %.2f\n", s.VWAP)
	}
	fmt.Fprintf(&b, "Signal: <b>%s</b>", s.Signal)
	return b.String()
}

// FormatTrades renders a /trades listing, newest first.
func FormatTrades(trades []trade.Trade) string {
	if len(trades) == 0 {
		return "No trades recorded yet. Use /trade SYMBOL buy|sell QTY PRICE to add one."
	}
	var b strings.Builder
	b.WriteString("<b>Your trades</b>\n")
	for _, t := range trades {
		fmt.Fprintf(&b, "#%d %s %s %.4g @ $%.2f (%s)\n",
			t.ID, strings.ToUpper(t.Action), t.Symbol, t.Quantity, t.Price,
			t.ExecutedAt.Format("2006-01-02"))
	}
	b.WriteString("Remove one with /trade_remove ID.")
	return b.String()
}

// FormatPortfolio renders aggregated positions with live values.
func FormatPortfolio(positions []trade.PositionValue) string {
	if len(positions) == 0 {
		return "Your portfolio is empty. Record trades with /trade to build it."
	}
	var b strings.Builder
	b.WriteString("<b>Portfolio</b>\n")
	var total, pnl float64
	for _, p := range positions {
		fmt.Fprintf(&b, "%s: %.4g @ avg $%.2f", p.Symbol, p.Quantity, p.AvgCost)
		if p.CurrentPrice > 0 {
			fmt.Fprintf(&b, " → $%s (%+.2f)", AbbrevNumber(p.MarketValue), p.UnrealizedPnL)
			total += p.MarketValue
			pnl += p.UnrealizedPnL
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Total: $%s (%+.2f unrealized)", AbbrevNumber(total), pnl)
	return b.String()
}

// FormatAlerts renders a /alerts listing.
func FormatAlerts(alerts []alert.Alert) string {
	if len(alerts) == 0 {
		return "No active alerts. Add one with /alert SYMBOL above|below PRICE."
	}
	var b strings.Builder
	b.WriteString("<b>Active alerts</b>\n")
	for _, a := range alerts {
		fmt.Fprintf(&b, "#%d %s %s $%.2f\n", a.ID, a.Symbol, a.Condition, a.TargetPrice)
	}
	b.WriteString("Remove one with /alert_remove ID.")
	return b.String()
}

// FormatAlertFired renders the notification for a triggered alert.
func FormatAlertFired(a alert.Alert, price float64) string {
	return fmt.Sprintf("🔔 <b>%s</b> is %s your target of $%.2f — now $%.2f.",
		a.Symbol, a.Condition, a.TargetPrice, price)
}

const helpText = `<b>TradeAI Companion</b>

/price SYMBOL — live quote
/analyze SYMBOL — indicators + AI read
/chart SYMBOL [interval] — candlestick chart
/trade SYMBOL buy|sell QTY PRICE — record a trade
/trades — list your trades
/trade_remove ID — delete a trade
/portfolio — positions with live values
/alert SYMBOL above|below PRICE — price alert
/alerts — list active alerts
/alert_remove ID — cancel an alert
/help — this message`
