package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	tempDir := t.TempDir()

	store, err := New(tempDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	if store.db == nil {
		t.Error("Store database is nil")
	}

	dbPath := filepath.Join(tempDir, DBFileName)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func TestNew_InvalidPath(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "does", "not", "exist"))
	if err == nil {
		t.Error("Expected error for invalid path, got nil")
	}
}

func TestStore_Close(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Errorf("Error closing store: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("Error closing already closed store: %v", err)
	}
}

func TestStore_CloseNilDB(t *testing.T) {
	store := &Store{db: nil}
	if err := store.Close(); err != nil {
		t.Errorf("Expected no error for nil db, got: %v", err)
	}
}

func TestStoreBarAndGetBars(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	now := time.Now()
	for i := 0; i < 5; i++ {
		bar := BarRecord{
			Symbol:    "AAPL",
			Timestamp: now.Add(time.Duration(i) * time.Minute),
			Open:      190.0 + float64(i),
			High:      191.0 + float64(i),
			Low:       189.0 + float64(i),
			Close:     190.5 + float64(i),
			Volume:    1_000_000,
		}
		if err := store.StoreBar(bar); err != nil {
			t.Fatalf("Failed to store bar %d: %v", i, err)
		}
	}

	bars, err := store.GetBars("AAPL", now.Add(-time.Minute), now.Add(10*time.Minute))
	if err != nil {
		t.Fatalf("Failed to get bars: %v", err)
	}
	if len(bars) != 5 {
		t.Fatalf("Expected 5 bars, got %d", len(bars))
	}
	if bars[0].Close != 190.5 {
		t.Errorf("Expected first close 190.5, got %v", bars[0].Close)
	}

	// Range that excludes the last two bars
	bars, err = store.GetBars("AAPL", now, now.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("Failed to get range: %v", err)
	}
	if len(bars) != 3 {
		t.Errorf("Expected 3 bars in range, got %d", len(bars))
	}
}

func TestGetBars_SymbolIsolation(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	now := time.Now()
	if err := store.StoreBar(BarRecord{Symbol: "AAPL", Timestamp: now, Close: 190}); err != nil {
		t.Fatal(err)
	}
	if err := store.StoreBar(BarRecord{Symbol: "MSFT", Timestamp: now, Close: 410}); err != nil {
		t.Fatal(err)
	}

	bars, err := store.GetBars("AAPL", now.Add(-time.Hour), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("Failed to get bars: %v", err)
	}
	if len(bars) != 1 || bars[0].Symbol != "AAPL" {
		t.Errorf("Expected only AAPL bars, got %+v", bars)
	}
}

func TestStoreBars_Batch(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	now := time.Now()
	batch := make([]BarRecord, 10)
	for i := range batch {
		batch[i] = BarRecord{Symbol: "TSLA", Timestamp: now.Add(time.Duration(i) * time.Hour), Close: 200}
	}
	if err := store.StoreBars(batch); err != nil {
		t.Fatalf("Failed to store batch: %v", err)
	}

	bars, err := store.GetBars("TSLA", now.Add(-time.Hour), now.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("Failed to get bars: %v", err)
	}
	if len(bars) != 10 {
		t.Errorf("Expected 10 bars, got %d", len(bars))
	}
}

func TestLatestQuote(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	// Empty cache
	q, err := store.LatestQuote("AAPL")
	if err != nil {
		t.Fatalf("LatestQuote on empty cache: %v", err)
	}
	if q != nil {
		t.Errorf("Expected nil quote on empty cache, got %+v", q)
	}

	now := time.Now()
	for i := 0; i < 3; i++ {
		err := store.StoreQuote(QuoteRecord{
			Symbol:    "AAPL",
			Timestamp: now.Add(time.Duration(i) * time.Second),
			Price:     190.0 + float64(i),
		})
		if err != nil {
			t.Fatalf("Failed to store quote: %v", err)
		}
	}

	q, err = store.LatestQuote("AAPL")
	if err != nil {
		t.Fatalf("LatestQuote failed: %v", err)
	}
	if q == nil {
		t.Fatal("Expected a quote, got nil")
	}
	if q.Price != 192.0 {
		t.Errorf("Expected latest price 192.0, got %v", q.Price)
	}
}

func TestPruneBars(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	now := time.Now()
	for i := 0; i < 6; i++ {
		err := store.StoreBar(BarRecord{
			Symbol:    "NVDA",
			Timestamp: now.Add(time.Duration(i-3) * time.Hour),
			Close:     100,
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	deleted, err := store.PruneBars("NVDA", now)
	if err != nil {
		t.Fatalf("PruneBars failed: %v", err)
	}
	if deleted != 3 {
		t.Errorf("Expected 3 pruned bars, got %d", deleted)
	}

	bars, err := store.GetBars("NVDA", now.Add(-24*time.Hour), now.Add(24*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(bars) != 3 {
		t.Errorf("Expected 3 remaining bars, got %d", len(bars))
	}
}
