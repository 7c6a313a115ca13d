// Command backtest replays cached or freshly fetched daily bars through
// the indicator signal and reports how the long-only strategy would have
// done.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/amar01vidality/tradeai-companion/internal/backtest"
	"github.com/amar01vidality/tradeai-companion/internal/common"
	"github.com/amar01vidality/tradeai-companion/internal/market"
	"github.com/amar01vidality/tradeai-companion/internal/security"
	"github.com/amar01vidality/tradeai-companion/internal/storage"
)

func main() {
	_ = godotenv.Load()
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	var (
		symbolsFlag = flag.String("symbols", "", "comma-separated symbols to test (required)")
		days        = flag.Int("days", 365, "days of history to replay")
		balance     = flag.Float64("balance", 10000, "starting balance per symbol")
		commission  = flag.Float64("commission", 0.001, "commission fraction per fill")
		window      = flag.Int("window", 60, "bars fed to the signal")
		dataPath    = flag.String("data", os.Getenv(common.EnvDataPath), "market cache directory")
		outputPath  = flag.String("out", "backtest_results", "report output directory")
	)
	flag.Parse()

	symbols, err := parseSymbols(*symbolsFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid -symbols")
	}

	ctx := context.Background()

	var store *storage.Store
	if *dataPath != "" {
		if store, err = storage.New(*dataPath); err != nil {
			log.Warn().Err(err).Msg("local cache unavailable, falling back to the data API")
			store = nil
		} else {
			defer store.Close()
		}
	}

	var fetcher backtest.BarFetcher
	if key := os.Getenv(common.EnvAlpacaAPIKey); key != "" {
		fetcher = market.NewClient(
			key,
			os.Getenv(common.EnvAlpacaAPISecret),
			envOr(common.EnvAlpacaDataURL, common.DefaultAlpacaDataURL),
			30*time.Second,
		)
	}

	cfg := backtest.Config{InitialBalance: *balance, Commission: *commission, Window: *window}
	var combined backtest.Results

	for _, symbol := range symbols {
		bars, err := backtest.LoadBars(ctx, store, fetcher, symbol, *days)
		if err != nil {
			log.Error().Err(err).Str("symbol", symbol).Msg("no data, skipping")
			continue
		}
		res, err := backtest.Run(symbol, bars, cfg)
		if err != nil {
			log.Error().Err(err).Str("symbol", symbol).Msg("run failed, skipping")
			continue
		}
		combined.Merge(res)
	}

	if combined.TotalTrades == 0 && combined.FinalBalance == 0 {
		log.Fatal().Msg("no symbols produced results")
	}

	reporter := backtest.NewReporter(&combined, *outputPath)
	reporter.WriteSummary(os.Stdout)
	if err := reporter.GenerateReport(); err != nil {
		log.Fatal().Err(err).Msg("report generation failed")
	}
}

func parseSymbols(raw string) ([]string, error) {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		symbol, err := security.ValidateSymbol(part)
		if err != nil {
			return nil, err
		}
		out = append(out, symbol)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("at least one symbol required")
	}
	return out, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
