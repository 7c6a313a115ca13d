package security

import (
	"strings"
	"testing"
	"time"
)

func TestValidateSymbol(t *testing.T) {
	valid := []struct{ in, want string }{
		{"AAPL", "AAPL"},
		{"aapl", "AAPL"},
		{" msft ", "MSFT"},
		{"BRK.B", "BRK.B"},
		{"A", "A"},
	}
	for _, tt := range valid {
		got, err := ValidateSymbol(tt.in)
		if err != nil {
			t.Errorf("ValidateSymbol(%q) unexpected error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ValidateSymbol(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	invalid := []string{"", "   ", "123", "TOOLONGSYMBOL", "AA PL", "aapl;drop", ".AAPL"}
	for _, in := range invalid {
		if _, err := ValidateSymbol(in); err == nil {
			t.Errorf("ValidateSymbol(%q) expected error, got nil", in)
		}
	}
}

func TestValidateQuantity(t *testing.T) {
	if qty, err := ValidateQuantity("10.5"); err != nil || qty != 10.5 {
		t.Errorf("ValidateQuantity(10.5) = %v, %v", qty, err)
	}
	for _, in := range []string{"abc", "0", "-5", "2e12", ""} {
		if _, err := ValidateQuantity(in); err == nil {
			t.Errorf("ValidateQuantity(%q) expected error", in)
		}
	}
}

func TestValidatePrice(t *testing.T) {
	if p, err := ValidatePrice("199.99"); err != nil || p != 199.99 {
		t.Errorf("ValidatePrice(199.99) = %v, %v", p, err)
	}
	for _, in := range []string{"free", "0", "-1"} {
		if _, err := ValidatePrice(in); err == nil {
			t.Errorf("ValidatePrice(%q) expected error", in)
		}
	}
}

func TestValidateCondition(t *testing.T) {
	for _, in := range []string{"above", "BELOW", " Above "} {
		if _, err := ValidateCondition(in); err != nil {
			t.Errorf("ValidateCondition(%q) unexpected error: %v", in, err)
		}
	}
	if _, err := ValidateCondition("near"); err == nil {
		t.Error("ValidateCondition(near) expected error")
	}
}

func TestValidateMessage(t *testing.T) {
	if err := ValidateMessage("/price AAPL"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateMessage("  "); err == nil {
		t.Error("expected error for blank message")
	}
	if err := ValidateMessage(strings.Repeat("a", maxMessageLength+1)); err == nil {
		t.Error("expected error for oversized message")
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(3)
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		if !rl.Allow(42) {
			t.Fatalf("request %d should be allowed within burst", i)
		}
	}
	if rl.Allow(42) {
		t.Error("request beyond burst should be denied")
	}

	// Independent bucket per user
	if !rl.Allow(43) {
		t.Error("different user should have an independent budget")
	}
}

func TestRateLimiter_EvictIdle(t *testing.T) {
	rl := NewRateLimiter(5)
	defer rl.Stop()

	rl.Allow(1)
	rl.Allow(2)

	rl.mu.Lock()
	rl.limiters[1].lastAccess = rl.limiters[1].lastAccess.Add(-time.Hour)
	rl.mu.Unlock()

	rl.evictIdle()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if _, ok := rl.limiters[1]; ok {
		t.Error("idle limiter should have been evicted")
	}
	if _, ok := rl.limiters[2]; !ok {
		t.Error("active limiter should have been kept")
	}
}
