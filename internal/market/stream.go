package market

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Stream consumes the Alpaca stocks websocket feed and fans trade prints
// into a tick channel for near-real-time alert evaluation.
type Stream struct {
	url         string
	key, secret string
}

func NewStream(url, key, secret string) *Stream {
	return &Stream{url: url, key: key, secret: secret}
}

// Run keeps the stream connected until the context is canceled,
// reconnecting with exponential backoff on failure.
func (s *Stream) Run(ctx context.Context, symbols []string, ticks chan<- Tick, errs chan<- error) error {
	backoff := time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := s.streamOnce(ctx, symbols, ticks); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Warn().Err(err).Dur("backoff", backoff).Msg("market stream disconnected, reconnecting")
				select {
				case errs <- fmt.Errorf("stream reconnect: %w", err):
				default:
				}

				select {
				case <-time.After(backoff):
				case <-ctx.Done():
					return ctx.Err()
				}

				backoff *= 2
				if backoff > maxBackoff {
					backoff = maxBackoff
				}
				continue
			}
			backoff = time.Second
		}
	}
}

type streamMsg struct {
	Type   string    `json:"T"`
	Msg    string    `json:"msg,omitempty"`
	Symbol string    `json:"S,omitempty"`
	Price  float64   `json:"p,omitempty"`
	Size   float64   `json:"s,omitempty"`
	Ts     time.Time `json:"t,omitempty"`
}

func (s *Stream) streamOnce(ctx context.Context, symbols []string, ticks chan<- Tick) error {
	log.Info().Str("url", s.url).Int("symbols", len(symbols)).Msg("connecting to market stream")

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}
	defer conn.Close()

	conn.SetReadLimit(512 * 1024)
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	auth := map[string]string{"action": "auth", "key": s.key, "secret": s.secret}
	if err := conn.WriteJSON(auth); err != nil {
		return fmt.Errorf("auth failed: %w", err)
	}

	sub := map[string]any{"action": "subscribe", "trades": symbols}
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("subscribe failed: %w", err)
	}

	pingTicker := time.NewTicker(30 * time.Second)
	defer pingTicker.Stop()

	// Reader goroutine so pings and ctx cancellation stay responsive.
	msgCh := make(chan []byte, 16)
	readErr := make(chan error, 1)
	go func() {
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			select {
			case msgCh <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return fmt.Errorf("ping failed: %w", err)
			}
		case err := <-readErr:
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Error().Err(err).Msg("market stream closed unexpectedly")
			}
			return fmt.Errorf("read message failed: %w", err)
		case msg := <-msgCh:
			conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			handleStreamMessage(msg, ticks)
		}
	}
}

// handleStreamMessage parses one websocket frame. Frames carry an array
// of messages; only trade prints ("T":"t") become ticks, errors from the
// server are logged and everything else is ignored.
func handleStreamMessage(msg []byte, ticks chan<- Tick) {
	var batch []streamMsg
	if err := json.Unmarshal(msg, &batch); err != nil {
		log.Debug().Err(err).Str("message", string(msg)).Msg("failed to parse stream message")
		return
	}

	for _, m := range batch {
		switch m.Type {
		case "t":
			if m.Symbol == "" || m.Price <= 0 {
				continue
			}
			ts := m.Ts
			if ts.IsZero() {
				ts = time.Now()
			}
			tick := Tick{Symbol: m.Symbol, Price: m.Price, Size: m.Size, Ts: ts}
			select {
			case ticks <- tick:
			default:
				log.Warn().Str("symbol", m.Symbol).Msg("tick channel full, dropping message")
			}
		case "success":
			log.Info().Str("msg", m.Msg).Msg("market stream status")
		case "error":
			log.Warn().Str("msg", m.Msg).Msg("market stream server error")
		case "subscription":
			log.Info().Msg("market stream subscription confirmed")
		}
	}
}
