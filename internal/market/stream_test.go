package market

import (
	"testing"
	"time"
)

func TestHandleStreamMessage_Trades(t *testing.T) {
	ticks := make(chan Tick, 4)

	msg := []byte(`[
		{"T": "t", "S": "AAPL", "p": 195.5, "s": 100, "t": "2025-06-02T15:30:00Z"},
		{"T": "t", "S": "MSFT", "p": 410.0, "s": 50, "t": "2025-06-02T15:30:01Z"}
	]`)
	handleStreamMessage(msg, ticks)

	if len(ticks) != 2 {
		t.Fatalf("expected 2 ticks, got %d", len(ticks))
	}

	tick := <-ticks
	if tick.Symbol != "AAPL" || tick.Price != 195.5 {
		t.Errorf("unexpected tick: %+v", tick)
	}
	if tick.Ts.IsZero() {
		t.Error("tick timestamp should be parsed")
	}
}

func TestHandleStreamMessage_IgnoresControlMessages(t *testing.T) {
	ticks := make(chan Tick, 4)

	msg := []byte(`[
		{"T": "success", "msg": "authenticated"},
		{"T": "subscription"},
		{"T": "error", "msg": "invalid syntax"}
	]`)
	handleStreamMessage(msg, ticks)

	if len(ticks) != 0 {
		t.Errorf("control messages should not produce ticks, got %d", len(ticks))
	}
}

func TestHandleStreamMessage_InvalidTicksDropped(t *testing.T) {
	ticks := make(chan Tick, 4)

	msg := []byte(`[
		{"T": "t", "S": "", "p": 10},
		{"T": "t", "S": "AAPL", "p": 0},
		{"T": "t", "S": "AAPL", "p": -5}
	]`)
	handleStreamMessage(msg, ticks)

	if len(ticks) != 0 {
		t.Errorf("invalid ticks should be dropped, got %d", len(ticks))
	}
}

func TestHandleStreamMessage_Malformed(t *testing.T) {
	ticks := make(chan Tick, 1)
	handleStreamMessage([]byte(`not json`), ticks)
	if len(ticks) != 0 {
		t.Error("malformed frame should not produce ticks")
	}
}

func TestHandleStreamMessage_FullChannelDoesNotBlock(t *testing.T) {
	ticks := make(chan Tick, 1)
	ticks <- Tick{Symbol: "X", Price: 1, Ts: time.Now()}

	done := make(chan struct{})
	go func() {
		handleStreamMessage([]byte(`[{"T": "t", "S": "AAPL", "p": 10, "s": 1}]`), ticks)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handleStreamMessage blocked on a full channel")
	}
}
