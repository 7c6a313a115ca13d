package telegram

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/amar01vidality/tradeai-companion/internal/metrics"
)

// Handler consumes one update.
type Handler interface {
	HandleUpdate(ctx context.Context, u Update)
}

// Poller drives getUpdates long polling and feeds updates to the handler.
// Transient API failures back off exponentially up to 30s and the loop
// resumes from the last confirmed offset.
type Poller struct {
	client  *Client
	handler Handler
	timeout int // server-side long-poll hold, seconds
	m       *metrics.Metrics

	offset int64
}

func NewPoller(client *Client, handler Handler, pollTimeout time.Duration, m *metrics.Metrics) *Poller {
	secs := int(pollTimeout / time.Second)
	if secs < 1 {
		secs = 30
	}
	return &Poller{client: client, handler: handler, timeout: secs, m: m}
}

// Run polls until the context is cancelled.
func (p *Poller) Run(ctx context.Context) {
	backoff := time.Second
	const maxBackoff = 30 * time.Second

	log.Info().Int("timeout_s", p.timeout).Msg("update poller started")
	for {
		if ctx.Err() != nil {
			log.Info().Msg("update poller stopped")
			return
		}

		updates, err := p.client.GetUpdates(ctx, p.offset, p.timeout)
		if err != nil {
			if ctx.Err() != nil {
				log.Info().Msg("update poller stopped")
				return
			}
			if p.m != nil {
				p.m.PollRestarts.Inc()
			}
			log.Warn().Err(err).Dur("backoff", backoff).Msg("getUpdates failed; backing off")
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		backoff = time.Second

		for _, u := range updates {
			if u.UpdateID >= p.offset {
				p.offset = u.UpdateID + 1
			}
			p.handler.HandleUpdate(ctx, u)
		}
	}
}
