// Package storage provides the persistent market-data cache for the trading
// companion bot. It uses BoltDB as the underlying engine to keep historical
// bars and quote snapshots under the qlib_data directory, so indicator
// calculations and offline analysis survive restarts and upstream outages.
//
// Keys use the "SYMBOL_unixnano" format which keeps per-symbol records
// contiguous and makes time-range scans a single cursor seek.
package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

const (
	barsBucket   = "bars"   // Bucket for historical OHLCV bars
	quotesBucket = "quotes" // Bucket for quote snapshots
)

// DBFileName is the cache database file created under the data path.
const DBFileName = "market-cache.db"

// BarRecord is a single OHLCV bar as persisted in the cache.
type BarRecord struct {
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// QuoteRecord is a point-in-time quote snapshot.
type QuoteRecord struct {
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
	Change    float64   `json:"change"`
	ChangePct float64   `json:"change_pct"`
	Volume    float64   `json:"volume"`
}

// Store provides persistent storage for market data using BoltDB.
type Store struct {
	db *bbolt.DB
}

// New opens (or creates) the cache database under dataPath and ensures
// all buckets exist.
func New(dataPath string) (*Store, error) {
	dbPath := filepath.Join(dataPath, DBFileName)

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(barsBucket)); err != nil {
			return fmt.Errorf("create bars bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(quotesBucket)); err != nil {
			return fmt.Errorf("create quotes bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database connection gracefully.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// StoreBar persists a single bar. Writing the same symbol+timestamp twice
// overwrites the previous record, which keeps refreshes idempotent.
func (s *Store) StoreBar(bar BarRecord) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(barsBucket))

		data, err := json.Marshal(bar)
		if err != nil {
			return fmt.Errorf("marshal bar: %w", err)
		}

		key := fmt.Sprintf("%s_%d", bar.Symbol, bar.Timestamp.UnixNano())
		return b.Put([]byte(key), data)
	})
}

// StoreBars persists a batch of bars in a single transaction.
func (s *Store) StoreBars(bars []BarRecord) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(barsBucket))
		for _, bar := range bars {
			data, err := json.Marshal(bar)
			if err != nil {
				return fmt.Errorf("marshal bar: %w", err)
			}
			key := fmt.Sprintf("%s_%d", bar.Symbol, bar.Timestamp.UnixNano())
			if err := b.Put([]byte(key), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// StoreQuote persists a quote snapshot.
func (s *Store) StoreQuote(quote QuoteRecord) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(quotesBucket))

		data, err := json.Marshal(quote)
		if err != nil {
			return fmt.Errorf("marshal quote: %w", err)
		}

		key := fmt.Sprintf("%s_%d", quote.Symbol, quote.Timestamp.UnixNano())
		return b.Put([]byte(key), data)
	})
}

// GetBars retrieves bars for a symbol within a time range, ordered by
// timestamp. The range is inclusive on both ends.
func (s *Store) GetBars(symbol string, start, end time.Time) ([]BarRecord, error) {
	var bars []BarRecord

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(barsBucket))
		c := b.Cursor()

		prefix := []byte(symbol + "_")
		startKey := []byte(fmt.Sprintf("%s_%d", symbol, start.UnixNano()))
		endKey := []byte(fmt.Sprintf("%s_%d", symbol, end.UnixNano()))

		for k, v := c.Seek(startKey); k != nil && bytes.Compare(k, endKey) <= 0; k, v = c.Next() {
			if !bytes.HasPrefix(k, prefix) {
				continue
			}

			var bar BarRecord
			if err := json.Unmarshal(v, &bar); err != nil {
				continue // Skip malformed records
			}
			bars = append(bars, bar)
		}

		return nil
	})

	return bars, err
}

// LatestQuote returns the most recent quote snapshot for a symbol, or nil
// when the cache holds none.
func (s *Store) LatestQuote(symbol string) (*QuoteRecord, error) {
	var quote *QuoteRecord

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(quotesBucket))
		c := b.Cursor()

		prefix := []byte(symbol + "_")
		// Seek just past the symbol's key space, then step back.
		seekKey := []byte(symbol + "`") // '`' sorts directly after '_'
		k, v := c.Seek(seekKey)
		if k == nil {
			k, v = c.Last()
		} else {
			k, v = c.Prev()
		}
		if k == nil || !bytes.HasPrefix(k, prefix) {
			return nil
		}

		var q QuoteRecord
		if err := json.Unmarshal(v, &q); err != nil {
			return fmt.Errorf("unmarshal quote: %w", err)
		}
		quote = &q
		return nil
	})

	return quote, err
}

// PruneBars deletes bars older than cutoff for the given symbol and
// returns the number of deleted records.
func (s *Store) PruneBars(symbol string, cutoff time.Time) (int, error) {
	deleted := 0

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(barsBucket))
		c := b.Cursor()

		prefix := []byte(symbol + "_")
		cutoffKey := []byte(fmt.Sprintf("%s_%d", symbol, cutoff.UnixNano()))

		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			if bytes.Compare(k, cutoffKey) >= 0 {
				break
			}
			if err := c.Delete(); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})

	return deleted, err
}
