package market

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func snapshotHandler(t *testing.T, price, prevClose float64) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("APCA-API-KEY-ID") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{
			"latestTrade": {"p": %f, "s": 100, "t": "2025-06-02T15:30:00Z"},
			"dailyBar": {"v": 52000000, "c": %f},
			"prevDailyBar": {"c": %f}
		}`, price, price, prevClose)
	}
}

func TestGetQuote(t *testing.T) {
	srv := httptest.NewServer(snapshotHandler(t, 195.50, 190.0))
	defer srv.Close()

	c := NewClient("key", "secret", srv.URL, 5*time.Second)
	q, err := c.GetQuote(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("GetQuote failed: %v", err)
	}

	if q.Symbol != "AAPL" {
		t.Errorf("expected symbol AAPL, got %q", q.Symbol)
	}
	if q.Price != 195.50 {
		t.Errorf("expected price 195.50, got %v", q.Price)
	}
	if q.PrevClose != 190.0 {
		t.Errorf("expected prev close 190.0, got %v", q.PrevClose)
	}
	wantChange := 5.5
	if diff := q.Change - wantChange; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("expected change %v, got %v", wantChange, q.Change)
	}
	if q.ChangePct <= 2.8 || q.ChangePct >= 3.0 {
		t.Errorf("expected change pct around 2.89, got %v", q.ChangePct)
	}
}

func TestGetQuote_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient("key", "secret", srv.URL, 5*time.Second)
	if _, err := c.GetQuote(context.Background(), "NOPE"); err == nil {
		t.Fatal("expected error for 404 response")
	}
}

func TestGetQuote_NoTradeData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"latestTrade": {"p": 0}}`)
	}))
	defer srv.Close()

	c := NewClient("key", "secret", srv.URL, 5*time.Second)
	if _, err := c.GetQuote(context.Background(), "HALTED"); err == nil {
		t.Fatal("expected error for zero-price snapshot")
	}
}

func TestGetBars(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("timeframe"); got != "1Day" {
			t.Errorf("expected timeframe 1Day, got %q", got)
		}
		if got := r.URL.Query().Get("limit"); got != "30" {
			t.Errorf("expected limit 30, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"bars": [
				{"t": "2025-06-02T04:00:00Z", "o": 190, "h": 196, "l": 189, "c": 195, "v": 1000},
				{"t": "2025-06-03T04:00:00Z", "o": 195, "h": 198, "l": 194, "c": 197, "v": 1200},
				{"t": "2025-06-04T04:00:00Z", "o": 197, "h": 197, "l": 191, "c": 0, "v": 900}
			],
			"next_page_token": null
		}`)
	}))
	defer srv.Close()

	c := NewClient("key", "secret", srv.URL, 5*time.Second)
	bars, err := c.GetBars(context.Background(), "AAPL", Timeframe1Day, time.Now().Add(-30*24*time.Hour), 30)
	if err != nil {
		t.Fatalf("GetBars failed: %v", err)
	}

	// The zero-close bar is dropped.
	if len(bars) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(bars))
	}
	if bars[1].Close != 197 {
		t.Errorf("expected close 197, got %v", bars[1].Close)
	}
	if bars[0].Symbol != "AAPL" {
		t.Errorf("expected symbol AAPL, got %q", bars[0].Symbol)
	}
}

func TestGetBars_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewClient("key", "secret", srv.URL, 50*time.Millisecond)
	if _, err := c.GetBars(context.Background(), "AAPL", Timeframe1Day, time.Time{}, 10); err == nil {
		t.Fatal("expected timeout error")
	}
}
