package alert

import (
	"context"
	"sync"
	"testing"

	"github.com/amar01vidality/tradeai-companion/internal/market"
)

type fakeStore struct {
	mu        sync.Mutex
	alerts    []Alert
	triggered []int64
}

func (f *fakeStore) ActiveAlerts(ctx context.Context) ([]Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Alert, 0, len(f.alerts))
	for _, a := range f.alerts {
		if a.Active {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeStore) MarkTriggered(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.alerts {
		if f.alerts[i].ID == id && f.alerts[i].Active {
			f.alerts[i].Active = false
			f.triggered = append(f.triggered, id)
			return nil
		}
	}
	return ErrAlertNotFound
}

type fakePrices struct {
	prices map[string]float64
}

func (f *fakePrices) Price(ctx context.Context, symbol string) (float64, error) {
	return f.prices[symbol], nil
}

type fakeNotifier struct {
	mu    sync.Mutex
	fired []Alert
}

func (f *fakeNotifier) NotifyAlert(ctx context.Context, userID int64, a Alert, price float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fired = append(f.fired, a)
	return nil
}

func TestAlertMet(t *testing.T) {
	cases := []struct {
		name  string
		alert Alert
		price float64
		want  bool
	}{
		{"above hit", Alert{Condition: CondAbove, TargetPrice: 100}, 101, true},
		{"above exact", Alert{Condition: CondAbove, TargetPrice: 100}, 100, true},
		{"above miss", Alert{Condition: CondAbove, TargetPrice: 100}, 99.99, false},
		{"below hit", Alert{Condition: CondBelow, TargetPrice: 50}, 49, true},
		{"below miss", Alert{Condition: CondBelow, TargetPrice: 50}, 50.5, false},
		{"bad condition", Alert{Condition: "between", TargetPrice: 50}, 50, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.alert.Met(tc.price); got != tc.want {
				t.Errorf("Met(%v) = %v, want %v", tc.price, got, tc.want)
			}
		})
	}
}

func TestSweepFiresMetAlerts(t *testing.T) {
	store := &fakeStore{alerts: []Alert{
		{ID: 1, TelegramUserID: 7, Symbol: "AAPL", Condition: CondAbove, TargetPrice: 190, Active: true},
		{ID: 2, TelegramUserID: 7, Symbol: "AAPL", Condition: CondBelow, TargetPrice: 100, Active: true},
		{ID: 3, TelegramUserID: 9, Symbol: "TSLA", Condition: CondBelow, TargetPrice: 300, Active: true},
	}}
	prices := &fakePrices{prices: map[string]float64{"AAPL": 195.5, "TSLA": 250}}
	notifier := &fakeNotifier{}

	e := NewEngine(store, prices, notifier, nil, 0)
	e.sweep(context.Background())

	if len(store.triggered) != 2 {
		t.Fatalf("triggered = %v, want ids 1 and 3", store.triggered)
	}
	if len(notifier.fired) != 2 {
		t.Fatalf("notified %d alerts, want 2", len(notifier.fired))
	}
	got := map[int64]bool{notifier.fired[0].ID: true, notifier.fired[1].ID: true}
	if !got[1] || !got[3] {
		t.Errorf("fired alerts %v, want ids 1 and 3", got)
	}
}

func TestSweepIsIdempotent(t *testing.T) {
	store := &fakeStore{alerts: []Alert{
		{ID: 1, Symbol: "AAPL", Condition: CondAbove, TargetPrice: 190, Active: true},
	}}
	prices := &fakePrices{prices: map[string]float64{"AAPL": 195.5}}
	notifier := &fakeNotifier{}

	e := NewEngine(store, prices, notifier, nil, 0)
	e.sweep(context.Background())
	e.sweep(context.Background())

	if len(notifier.fired) != 1 {
		t.Fatalf("notified %d times, want 1", len(notifier.fired))
	}
}

func TestCheckTick(t *testing.T) {
	store := &fakeStore{alerts: []Alert{
		{ID: 1, Symbol: "AAPL", Condition: CondAbove, TargetPrice: 200, Active: true},
		{ID: 2, Symbol: "MSFT", Condition: CondBelow, TargetPrice: 400, Active: true},
	}}
	prices := &fakePrices{prices: map[string]float64{"AAPL": 150, "MSFT": 450}}
	notifier := &fakeNotifier{}

	e := NewEngine(store, prices, notifier, nil, 0)
	e.sweep(context.Background()) // populate the cache, nothing fires yet
	if len(notifier.fired) != 0 {
		t.Fatalf("sweep fired %d alerts, want 0", len(notifier.fired))
	}

	e.CheckTick(context.Background(), market.Tick{Symbol: "AAPL", Price: 201})
	if len(notifier.fired) != 1 || notifier.fired[0].ID != 1 {
		t.Fatalf("fired = %+v, want alert 1", notifier.fired)
	}

	// Fired alert is dropped from the cache, so the same tick is a no-op.
	e.CheckTick(context.Background(), market.Tick{Symbol: "AAPL", Price: 205})
	if len(notifier.fired) != 1 {
		t.Fatalf("notified %d times after repeat tick, want 1", len(notifier.fired))
	}
}
