package backtest

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
)

// Reporter writes backtest results to the output directory.
type Reporter struct {
	results    *Results
	outputPath string
}

func NewReporter(results *Results, outputPath string) *Reporter {
	return &Reporter{results: results, outputPath: outputPath}
}

// GenerateReport writes the summary, the CSV trade log and the JSON dump.
func (r *Reporter) GenerateReport() error {
	if err := os.MkdirAll(r.outputPath, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	summaryPath := filepath.Join(r.outputPath, "backtest_summary.txt")
	file, err := os.Create(summaryPath)
	if err != nil {
		return fmt.Errorf("create summary file: %w", err)
	}
	r.WriteSummary(file)
	file.Close()
	log.Info().Str("file", summaryPath).Msg("summary report written")

	if err := r.writeTradeLog(); err != nil {
		return err
	}
	return r.writeJSON()
}

// WriteSummary renders the human-readable result block.
func (r *Reporter) WriteSummary(w io.Writer) {
	res := r.results
	fmt.Fprintf(w, "SIGNAL BACKTEST RESULTS\n")
	fmt.Fprintf(w, "=======================\n\n")
	fmt.Fprintf(w, "Period: %s to %s\n",
		res.StartTime.Format("2006-01-02"), res.EndTime.Format("2006-01-02"))
	fmt.Fprintf(w, "Initial Balance: $%.2f\n", res.InitialBalance)
	fmt.Fprintf(w, "Final Balance: $%.2f\n", res.FinalBalance)
	pctPnL := 0.0
	if res.InitialBalance > 0 {
		pctPnL = res.TotalPnL / res.InitialBalance * 100
	}
	fmt.Fprintf(w, "Total PnL: $%.2f (%.2f%%)\n", res.TotalPnL, pctPnL)
	fmt.Fprintf(w, "Total Commission: $%.2f\n\n", res.TotalCommission)

	fmt.Fprintf(w, "Total Trades: %d\n", res.TotalTrades)
	fmt.Fprintf(w, "Winning / Losing: %d / %d\n", res.WinningTrades, res.LosingTrades)
	fmt.Fprintf(w, "Win Rate: %.2f%%\n", res.WinRate*100)
	fmt.Fprintf(w, "Profit Factor: %.2f\n", res.ProfitFactor)
	fmt.Fprintf(w, "Max Drawdown: %.2f%%\n", res.MaxDrawdown)

	stats := r.symbolStats()
	if len(stats) > 1 {
		fmt.Fprintf(w, "\nPER SYMBOL\n")
		fmt.Fprintf(w, "----------\n")
		for symbol, s := range stats {
			fmt.Fprintf(w, "%s: %d trades, %.2f%% win rate, $%.2f PnL\n",
				symbol, s.count, s.winRate*100, s.pnl)
		}
	}
}

func (r *Reporter) writeTradeLog() error {
	csvPath := filepath.Join(r.outputPath, "trade_log.csv")
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("create trade log: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"Symbol", "Entry Time", "Exit Time", "Entry Price", "Exit Price", "Shares", "PnL", "PnL %", "Commission", "Exit Reason"}
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, t := range r.results.Trades {
		record := []string{
			t.Symbol,
			t.EntryTime.Format("2006-01-02"),
			t.ExitTime.Format("2006-01-02"),
			fmt.Sprintf("%.2f", t.EntryPrice),
			fmt.Sprintf("%.2f", t.ExitPrice),
			fmt.Sprintf("%.4f", t.Shares),
			fmt.Sprintf("%.2f", t.PnL),
			fmt.Sprintf("%.2f", t.PnLPercent),
			fmt.Sprintf("%.2f", t.Commission),
			t.ExitReason,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	log.Info().Str("file", csvPath).Msg("trade log written")
	return nil
}

func (r *Reporter) writeJSON() error {
	jsonPath := filepath.Join(r.outputPath, "backtest_results.json")
	report := map[string]any{
		"summary": map[string]any{
			"start_time":       r.results.StartTime,
			"end_time":         r.results.EndTime,
			"initial_balance":  r.results.InitialBalance,
			"final_balance":    r.results.FinalBalance,
			"total_pnl":        r.results.TotalPnL,
			"total_commission": r.results.TotalCommission,
			"total_trades":     r.results.TotalTrades,
			"winning_trades":   r.results.WinningTrades,
			"losing_trades":    r.results.LosingTrades,
			"win_rate":         r.results.WinRate,
			"profit_factor":    r.results.ProfitFactor,
			"max_drawdown":     r.results.MaxDrawdown,
		},
		"trades":       r.results.Trades,
		"generated_at": time.Now(),
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		return fmt.Errorf("write JSON report: %w", err)
	}
	log.Info().Str("file", jsonPath).Msg("JSON report written")
	return nil
}

type symbolStat struct {
	count   int
	pnl     float64
	winRate float64
}

func (r *Reporter) symbolStats() map[string]*symbolStat {
	stats := make(map[string]*symbolStat)
	for _, t := range r.results.Trades {
		s, ok := stats[t.Symbol]
		if !ok {
			s = &symbolStat{}
			stats[t.Symbol] = s
		}
		s.count++
		s.pnl += t.PnL
		if t.PnL > 0 {
			s.winRate++
		}
	}
	for _, s := range stats {
		if s.count > 0 {
			s.winRate /= float64(s.count)
		}
	}
	return stats
}
