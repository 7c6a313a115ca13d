package trade

import (
	"context"
	"sort"
)

// Position is the net holding in one symbol across all recorded trades.
type Position struct {
	Symbol   string
	Quantity float64 // net shares; negative means net short
	AvgCost  float64 // volume-weighted average cost of the buys
	Invested float64 // cost basis of the current net position
}

// PositionValue is a position enriched with a live price.
type PositionValue struct {
	Position
	CurrentPrice  float64
	MarketValue   float64
	UnrealizedPnL float64
}

// BuildPositions aggregates trades into net positions per symbol.
// Symbols whose buys and sells cancel out are omitted.
func BuildPositions(trades []Trade) []Position {
	type acc struct {
		qty       float64
		buyQty    float64
		buyAmount float64
	}
	accs := make(map[string]*acc)

	for _, t := range trades {
		a, ok := accs[t.Symbol]
		if !ok {
			a = &acc{}
			accs[t.Symbol] = a
		}
		switch t.Action {
		case "buy":
			a.qty += t.Quantity
			a.buyQty += t.Quantity
			a.buyAmount += t.Quantity * t.Price
		case "sell":
			a.qty -= t.Quantity
		}
	}

	positions := make([]Position, 0, len(accs))
	for symbol, a := range accs {
		if a.qty == 0 {
			continue
		}
		avg := 0.0
		if a.buyQty > 0 {
			avg = a.buyAmount / a.buyQty
		}
		positions = append(positions, Position{
			Symbol:   symbol,
			Quantity: a.qty,
			AvgCost:  avg,
			Invested: a.qty * avg,
		})
	}

	sort.Slice(positions, func(i, j int) bool {
		return positions[i].Symbol < positions[j].Symbol
	})
	return positions
}

// PriceFunc resolves a live price for a symbol.
type PriceFunc func(ctx context.Context, symbol string) (float64, error)

// Portfolio lists a user's net positions valued against live prices.
// Symbols whose price lookup fails keep a zero CurrentPrice so the rest
// of the portfolio still renders.
func (s *Service) Portfolio(ctx context.Context, telegramUserID int64, priceOf PriceFunc) ([]PositionValue, error) {
	trades, err := s.ListTrades(ctx, telegramUserID)
	if err != nil {
		return nil, err
	}

	positions := BuildPositions(trades)
	values := make([]PositionValue, 0, len(positions))
	for _, p := range positions {
		pv := PositionValue{Position: p}
		if priceOf != nil {
			if price, err := priceOf(ctx, p.Symbol); err == nil {
				pv.CurrentPrice = price
				pv.MarketValue = price * p.Quantity
				pv.UnrealizedPnL = pv.MarketValue - p.Invested
			}
		}
		values = append(values, pv)
	}
	return values, nil
}
