// Package ai wraps the OpenAI chat completions API for market commentary.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"github.com/amar01vidality/tradeai-companion/internal/analysis"
	"github.com/amar01vidality/tradeai-companion/internal/market"
	"github.com/amar01vidality/tradeai-companion/internal/metrics"
)

// ErrNotConfigured is returned when no API key was provided; callers fall
// back to indicator-only analysis.
var ErrNotConfigured = errors.New("ai: no API key configured")

const systemPrompt = "You are a concise trading assistant. Given market data and " +
	"technical indicators for a stock, write a short plain-language read of the " +
	"current setup in at most 120 words. Mention momentum, trend and notable " +
	"levels. Never give financial advice and never promise returns."

// Client calls the chat completions endpoint.
type Client struct {
	key   string
	model string
	base  string
	rest  *resty.Client
	m     *metrics.Metrics
}

// NewClient creates an OpenAI client. An empty key produces a client whose
// Analyze always returns ErrNotConfigured.
func NewClient(key, model, baseURL string, timeout time.Duration, m *metrics.Metrics) *Client {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(30 * time.Second)
	}
	return &Client{key: key, model: model, base: strings.TrimRight(baseURL, "/"), rest: r, m: m}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool { return c.key != "" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Analyze sends the market context to the model and returns its commentary.
func (c *Client) Analyze(ctx context.Context, quote *market.Quote, snap *analysis.Snapshot) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	start := time.Now()
	if c.m != nil {
		c.m.AIRequests.Inc()
	}

	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: BuildPrompt(quote, snap)},
		},
		Temperature: 0.4,
		MaxTokens:   300,
	}

	var result chatResponse
	resp, err := c.rest.R().
		SetContext(ctx).
		SetAuthToken(c.key).
		SetBody(req).
		SetResult(&result).
		SetError(&result).
		Post(c.base + "/v1/chat/completions")

	if c.m != nil {
		c.m.AILatency.Observe(time.Since(start).Seconds())
	}

	if err != nil {
		c.countFailure()
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		c.countFailure()
		if result.Error != nil {
			return "", fmt.Errorf("completion API error: %s (%s)", result.Error.Message, result.Error.Type)
		}
		return "", fmt.Errorf("completion API error: status %d", resp.StatusCode())
	}
	if len(result.Choices) == 0 || strings.TrimSpace(result.Choices[0].Message.Content) == "" {
		c.countFailure()
		return "", fmt.Errorf("completion returned no content")
	}

	text := strings.TrimSpace(result.Choices[0].Message.Content)
	log.Debug().Str("symbol", snap.Symbol).Int("chars", len(text)).Msg("AI analysis generated")
	return text, nil
}

func (c *Client) countFailure() {
	if c.m != nil {
		c.m.AIFailures.Inc()
	}
}

// BuildPrompt renders the market context handed to the model.
func BuildPrompt(quote *market.Quote, snap *analysis.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Symbol: %s\n", snap.Symbol)
	if quote != nil {
		fmt.Fprintf(&b, "Price: %.2f (%+.2f, %+.2f%%)\n", quote.Price, quote.Change, quote.ChangePct)
		fmt.Fprintf(&b, "Volume: %.0f\n", quote.Volume)
	} else {
		fmt.Fprintf(&b, "Last close: %.2f\n", snap.LastClose)
	}
	fmt.Fprintf(&b, "SMA20: %.2f\n", snap.SMA20)
	if snap.SMA50 > 0 {
		fmt.Fprintf(&b, "SMA50: %.2f\n", snap.SMA50)
	}
	if snap.HasRSI {
		fmt.Fprintf(&b, "RSI14: %.1f\n", snap.RSI14)
	}
	if snap.HasMACD {
		fmt.Fprintf(&b, "MACD: %.3f signal %.3f hist %.3f\n", snap.MACD, snap.MACDSignal, snap.MACDHist)
	}
	if snap.HasBands {
		fmt.Fprintf(&b, "Bollinger: %.2f / %.2f / %.2f\n", snap.BollLower, snap.BollMiddle, snap.BollUpper)
	}
	if snap.HasVWAP {
		fmt.Fprintf(&b, "VWAP: %.2f\n", snap.VWAP)
	}
	fmt.Fprintf(&b, "Indicator signal: %s\n", snap.Signal)
	return b.String()
}
