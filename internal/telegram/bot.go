package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/amar01vidality/tradeai-companion/internal/ai"
	"github.com/amar01vidality/tradeai-companion/internal/alert"
	"github.com/amar01vidality/tradeai-companion/internal/analysis"
	"github.com/amar01vidality/tradeai-companion/internal/chart"
	"github.com/amar01vidality/tradeai-companion/internal/market"
	"github.com/amar01vidality/tradeai-companion/internal/metrics"
	"github.com/amar01vidality/tradeai-companion/internal/security"
	"github.com/amar01vidality/tradeai-companion/internal/trade"
)

// api is the slice of the Bot API the handlers use; *Client satisfies it.
type api interface {
	SendMessage(ctx context.Context, p SendMessageParams) (*Message, error)
	SendPhoto(ctx context.Context, chatID int64, caption string, photo []byte) error
	EditMessageText(ctx context.Context, p EditMessageParams) error
	AnswerCallbackQuery(ctx context.Context, callbackID, text string) error
}

// Bot routes updates to command handlers.
type Bot struct {
	api     api
	markets *market.Service
	ai      *ai.Client
	charts  *chart.Client
	trades  *trade.Service
	alerts  *alert.Service
	limiter *security.RateLimiter
	m       *metrics.Metrics
}

func NewBot(client *Client, markets *market.Service, aiClient *ai.Client, charts *chart.Client,
	trades *trade.Service, alerts *alert.Service, limiter *security.RateLimiter, m *metrics.Metrics) *Bot {
	return &Bot{
		api:     client,
		markets: markets,
		ai:      aiClient,
		charts:  charts,
		trades:  trades,
		alerts:  alerts,
		limiter: limiter,
		m:       m,
	}
}

// NotifyAlert delivers a fired price alert to its owner.
func (b *Bot) NotifyAlert(ctx context.Context, telegramUserID int64, a alert.Alert, price float64) error {
	return b.reply(ctx, telegramUserID, FormatAlertFired(a, price))
}

// HandleUpdate dispatches one update. Errors are reported to the user and
// logged; the poller never sees them.
func (b *Bot) HandleUpdate(ctx context.Context, u Update) {
	if b.m != nil {
		b.m.UpdatesReceived.Inc()
	}
	switch {
	case u.CallbackQuery != nil:
		b.handleCallback(ctx, u.CallbackQuery)
	case u.Message != nil && strings.HasPrefix(u.Message.Text, "/"):
		b.handleCommand(ctx, u.Message)
	case u.Message != nil && strings.TrimSpace(u.Message.Text) != "":
		b.handleFreeText(ctx, u.Message)
	}
}

// parseCommand splits "/price@MyBot AAPL 1D" into ("price", ["AAPL","1D"]).
func parseCommand(text string) (string, []string) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", nil
	}
	cmd := strings.TrimPrefix(fields[0], "/")
	if at := strings.IndexByte(cmd, '@'); at >= 0 {
		cmd = cmd[:at]
	}
	return strings.ToLower(cmd), fields[1:]
}

func (b *Bot) handleCommand(ctx context.Context, msg *Message) {
	if msg.From == nil {
		return
	}
	if err := security.ValidateMessage(msg.Text); err != nil {
		return
	}
	userID := msg.From.ID
	if b.limiter != nil && !b.limiter.Allow(userID) {
		if b.m != nil {
			b.m.RateLimited.Inc()
		}
		b.reply(ctx, msg.Chat.ID, "Slow down a little — try again in a minute.")
		return
	}

	cmd, args := parseCommand(msg.Text)
	reqID := uuid.NewString()
	lg := log.With().Str("req_id", reqID).Int64("user_id", userID).Str("command", cmd).Logger()
	start := time.Now()

	var err error
	switch cmd {
	case "start":
		err = b.handleStart(ctx, msg)
	case "help":
		err = b.reply(ctx, msg.Chat.ID, helpText)
	case "price":
		err = b.handlePrice(ctx, msg, args)
	case "analyze":
		err = b.handleAnalyze(ctx, msg.Chat.ID, args)
	case "chart":
		err = b.handleChart(ctx, msg.Chat.ID, args)
	case "trade":
		err = b.handleTrade(ctx, msg, args)
	case "trades":
		err = b.handleTrades(ctx, msg)
	case "trade_remove":
		err = b.handleTradeRemove(ctx, msg, args)
	case "portfolio":
		err = b.handlePortfolio(ctx, msg)
	case "alert":
		err = b.handleAlert(ctx, msg, args)
	case "alerts":
		err = b.handleAlerts(ctx, msg)
	case "alert_remove":
		err = b.handleAlertRemove(ctx, msg, args)
	default:
		err = b.reply(ctx, msg.Chat.ID, "Unknown command. /help lists what I can do.")
	}

	if b.m != nil {
		b.m.CommandHandled(cmd)
	}
	if err != nil {
		if b.m != nil {
			b.m.CommandErrors.Inc()
		}
		lg.Error().Err(err).Dur("took", time.Since(start)).Msg("command failed")
		return
	}
	lg.Debug().Dur("took", time.Since(start)).Msg("command handled")
}

// handleFreeText answers plain messages by routing recognisable
// price, analysis and chart questions to the matching command handler.
func (b *Bot) handleFreeText(ctx context.Context, msg *Message) {
	if msg.From == nil {
		return
	}
	if err := security.ValidateMessage(msg.Text); err != nil {
		return
	}
	if b.limiter != nil && !b.limiter.Allow(msg.From.ID) {
		if b.m != nil {
			b.m.RateLimited.Inc()
		}
		b.reply(ctx, msg.Chat.ID, "Slow down a little — try again in a minute.")
		return
	}

	intent, symbol := detectQuery(msg.Text)
	lg := log.With().
		Str("req_id", uuid.NewString()).
		Int64("user_id", msg.From.ID).
		Str("symbol", symbol).
		Logger()

	var err error
	switch intent {
	case intentPrice:
		err = b.handlePrice(ctx, msg, []string{symbol})
	case intentAnalysis:
		err = b.handleAnalyze(ctx, msg.Chat.ID, []string{symbol})
	case intentChart:
		err = b.handleChart(ctx, msg.Chat.ID, []string{symbol})
	default:
		err = b.reply(ctx, msg.Chat.ID,
			"I didn't spot a ticker in that. Ask me something like \"price of AAPL\", or see /help.")
	}

	if b.m != nil {
		b.m.CommandHandled("text")
	}
	if err != nil {
		if b.m != nil {
			b.m.CommandErrors.Inc()
		}
		lg.Error().Err(err).Msg("free-text query failed")
		return
	}
	lg.Debug().Msg("free-text query handled")
}

func (b *Bot) handleStart(ctx context.Context, msg *Message) error {
	name := msg.From.FirstName
	if name == "" {
		name = "there"
	}
	name = html.EscapeString(name)
	text := fmt.Sprintf("Hi %s! I track quotes, run technical analysis and keep your trade journal.\n\n%s", name, helpText)
	return b.reply(ctx, msg.Chat.ID, text)
}

func (b *Bot) handlePrice(ctx context.Context, msg *Message, args []string) error {
	symbol, err := b.requireSymbol(ctx, msg.Chat.ID, args, "/price SYMBOL")
	if err != nil || symbol == "" {
		return err
	}
	quote, err := b.markets.Quote(ctx, symbol)
	if err != nil {
		return b.reply(ctx, msg.Chat.ID, fmt.Sprintf("Could not fetch %s right now, try again shortly.", symbol))
	}

	keyboard := &InlineKeyboardMarkup{InlineKeyboard: [][]InlineKeyboardButton{{
		{Text: "Analyze", CallbackData: "analyze:" + symbol},
		{Text: "Chart", CallbackData: "chart:" + symbol},
	}}}
	return b.send(ctx, SendMessageParams{
		ChatID:      msg.Chat.ID,
		Text:        FormatQuote(quote),
		ParseMode:   "HTML",
		ReplyMarkup: keyboard,
	})
}

func (b *Bot) handleAnalyze(ctx context.Context, chatID int64, args []string) error {
	symbol, err := b.requireSymbol(ctx, chatID, args, "/analyze SYMBOL")
	if err != nil || symbol == "" {
		return err
	}

	bars, err := b.markets.Bars(ctx, symbol, market.Timeframe1Day, 120*24*time.Hour, 120)
	if err != nil {
		return b.reply(ctx, chatID, fmt.Sprintf("No market data for %s right now.", symbol))
	}
	snap, err := analysis.Summarize(symbol, bars)
	if errors.Is(err, analysis.ErrNotEnoughData) {
		return b.reply(ctx, chatID, fmt.Sprintf("Not enough history on %s for a full analysis.", symbol))
	}
	if err != nil {
		return err
	}

	text := FormatSnapshot(snap)
	if b.ai != nil && b.ai.Configured() {
		quote, _ := b.markets.Quote(ctx, symbol)
		if comment, err := b.ai.Analyze(ctx, quote, snap); err == nil {
			text += "\n\n" + comment
		} else {
			log.Warn().Err(err).Str("symbol", symbol).Msg("AI comment unavailable, sending indicators only")
		}
	}
	return b.send(ctx, SendMessageParams{ChatID: chatID, Text: text, ParseMode: "HTML"})
}

func (b *Bot) handleChart(ctx context.Context, chatID int64, args []string) error {
	symbol, err := b.requireSymbol(ctx, chatID, args, "/chart SYMBOL [interval]")
	if err != nil || symbol == "" {
		return err
	}
	interval := "1D"
	if len(args) > 1 {
		interval = strings.ToUpper(args[1])
	}

	if b.charts == nil || !b.charts.Configured() {
		return b.reply(ctx, chatID, "Chart rendering is not configured on this deployment.")
	}
	png, err := b.charts.Render(ctx, symbol, interval)
	if err != nil {
		return b.reply(ctx, chatID, fmt.Sprintf("Could not render a chart for %s.", symbol))
	}
	caption := fmt.Sprintf("%s · %s", symbol, interval)
	if err := b.api.SendPhoto(ctx, chatID, caption, png); err != nil {
		return err
	}
	if b.m != nil {
		b.m.MessagesSent.Inc()
	}
	return nil
}

const noJournalReply = "The trade journal needs a database and this deployment runs without one."

func (b *Bot) handleTrade(ctx context.Context, msg *Message, args []string) error {
	if b.trades == nil {
		return b.reply(ctx, msg.Chat.ID, noJournalReply)
	}
	if len(args) != 4 {
		return b.reply(ctx, msg.Chat.ID, "Usage: /trade SYMBOL buy|sell QTY PRICE")
	}
	symbol, err := security.ValidateSymbol(args[0])
	if err != nil {
		return b.reply(ctx, msg.Chat.ID, "That does not look like a ticker symbol.")
	}
	action := strings.ToLower(args[1])
	qty, err := security.ValidateQuantity(args[2])
	if err != nil {
		return b.reply(ctx, msg.Chat.ID, "Quantity must be a positive number.")
	}
	price, err := security.ValidatePrice(args[3])
	if err != nil {
		return b.reply(ctx, msg.Chat.ID, "Price must be a positive number.")
	}

	id, err := b.trades.CreateTrade(ctx, msg.From.ID, symbol, action, qty, price)
	if err != nil {
		return b.reply(ctx, msg.Chat.ID, "Could not record that trade: "+userFacing(err))
	}
	if b.m != nil {
		b.m.TradesRecorded.Inc()
	}
	return b.reply(ctx, msg.Chat.ID, fmt.Sprintf("Recorded trade #%d: %s %s %.4g @ $%.2f", id, action, symbol, qty, price))
}

func (b *Bot) handleTrades(ctx context.Context, msg *Message) error {
	if b.trades == nil {
		return b.reply(ctx, msg.Chat.ID, noJournalReply)
	}
	trades, err := b.trades.ListTrades(ctx, msg.From.ID)
	if err != nil {
		return err
	}
	return b.send(ctx, SendMessageParams{ChatID: msg.Chat.ID, Text: FormatTrades(trades), ParseMode: "HTML"})
}

func (b *Bot) handleTradeRemove(ctx context.Context, msg *Message, args []string) error {
	if b.trades == nil {
		return b.reply(ctx, msg.Chat.ID, noJournalReply)
	}
	if len(args) != 1 {
		return b.reply(ctx, msg.Chat.ID, "Usage: /trade_remove ID")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return b.reply(ctx, msg.Chat.ID, "The trade id must be a number from /trades.")
	}
	switch err := b.trades.DeleteTrade(ctx, msg.From.ID, id); {
	case errors.Is(err, trade.ErrTradeNotFound), errors.Is(err, trade.ErrUserNotFound):
		return b.reply(ctx, msg.Chat.ID, fmt.Sprintf("Trade #%d was not found in your journal.", id))
	case err != nil:
		return err
	}
	return b.reply(ctx, msg.Chat.ID, fmt.Sprintf("Deleted trade #%d.", id))
}

func (b *Bot) handlePortfolio(ctx context.Context, msg *Message) error {
	if b.trades == nil {
		return b.reply(ctx, msg.Chat.ID, noJournalReply)
	}
	positions, err := b.trades.Portfolio(ctx, msg.From.ID, b.markets.Price)
	if err != nil {
		return err
	}
	return b.send(ctx, SendMessageParams{ChatID: msg.Chat.ID, Text: FormatPortfolio(positions), ParseMode: "HTML"})
}

func (b *Bot) handleAlert(ctx context.Context, msg *Message, args []string) error {
	if b.alerts == nil {
		return b.reply(ctx, msg.Chat.ID, noJournalReply)
	}
	if len(args) != 3 {
		return b.reply(ctx, msg.Chat.ID, "Usage: /alert SYMBOL above|below PRICE")
	}
	symbol, err := security.ValidateSymbol(args[0])
	if err != nil {
		return b.reply(ctx, msg.Chat.ID, "That does not look like a ticker symbol.")
	}
	cond, err := security.ValidateCondition(args[1])
	if err != nil {
		return b.reply(ctx, msg.Chat.ID, "The condition must be 'above' or 'below'.")
	}
	target, err := security.ValidatePrice(args[2])
	if err != nil {
		return b.reply(ctx, msg.Chat.ID, "The target price must be a positive number.")
	}

	id, err := b.alerts.Add(ctx, msg.From.ID, symbol, cond, target)
	if err != nil {
		return err
	}
	return b.reply(ctx, msg.Chat.ID, fmt.Sprintf("Alert #%d set: %s %s $%.2f. I'll ping you when it fires.", id, symbol, cond, target))
}

func (b *Bot) handleAlerts(ctx context.Context, msg *Message) error {
	if b.alerts == nil {
		return b.reply(ctx, msg.Chat.ID, noJournalReply)
	}
	alerts, err := b.alerts.List(ctx, msg.From.ID)
	if err != nil {
		return err
	}
	return b.send(ctx, SendMessageParams{ChatID: msg.Chat.ID, Text: FormatAlerts(alerts), ParseMode: "HTML"})
}

func (b *Bot) handleAlertRemove(ctx context.Context, msg *Message, args []string) error {
	if b.alerts == nil {
		return b.reply(ctx, msg.Chat.ID, noJournalReply)
	}
	if len(args) != 1 {
		return b.reply(ctx, msg.Chat.ID, "Usage: /alert_remove ID")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return b.reply(ctx, msg.Chat.ID, "The alert id must be a number from /alerts.")
	}
	switch err := b.alerts.Remove(ctx, msg.From.ID, id); {
	case errors.Is(err, alert.ErrAlertNotFound), errors.Is(err, alert.ErrUserNotFound):
		return b.reply(ctx, msg.Chat.ID, fmt.Sprintf("Alert #%d was not found among your active alerts.", id))
	case err != nil:
		return err
	}
	return b.reply(ctx, msg.Chat.ID, fmt.Sprintf("Alert #%d cancelled.", id))
}

// handleCallback serves the inline buttons attached to /price replies.
func (b *Bot) handleCallback(ctx context.Context, cb *CallbackQuery) {
	if cb.Message == nil {
		return
	}
	action, symbol, ok := strings.Cut(cb.Data, ":")
	if !ok {
		b.api.AnswerCallbackQuery(ctx, cb.ID, "")
		return
	}
	symbol, err := security.ValidateSymbol(symbol)
	if err != nil {
		b.api.AnswerCallbackQuery(ctx, cb.ID, "")
		return
	}
	if b.limiter != nil && !b.limiter.Allow(cb.From.ID) {
		if b.m != nil {
			b.m.RateLimited.Inc()
		}
		b.api.AnswerCallbackQuery(ctx, cb.ID, "Rate limited, wait a bit.")
		return
	}

	b.api.AnswerCallbackQuery(ctx, cb.ID, "")
	chatID := cb.Message.Chat.ID

	switch action {
	case "analyze":
		err = b.handleAnalyze(ctx, chatID, []string{symbol})
	case "chart":
		err = b.handleChart(ctx, chatID, []string{symbol})
	default:
		return
	}
	if err != nil {
		if b.m != nil {
			b.m.CommandErrors.Inc()
		}
		log.Error().Err(err).Str("action", action).Str("symbol", symbol).Msg("callback failed")
	}
}

// requireSymbol validates args[0] as a ticker; on bad input it messages the
// user and returns an empty symbol with a nil error.
func (b *Bot) requireSymbol(ctx context.Context, chatID int64, args []string, usage string) (string, error) {
	if len(args) < 1 {
		return "", b.reply(ctx, chatID, "Usage: "+usage)
	}
	symbol, err := security.ValidateSymbol(args[0])
	if err != nil {
		return "", b.reply(ctx, chatID, "That does not look like a ticker symbol.")
	}
	return symbol, nil
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) error {
	return b.send(ctx, SendMessageParams{ChatID: chatID, Text: text, ParseMode: "HTML"})
}

func (b *Bot) send(ctx context.Context, p SendMessageParams) error {
	if _, err := b.api.SendMessage(ctx, p); err != nil {
		return err
	}
	if b.m != nil {
		b.m.MessagesSent.Inc()
	}
	return nil
}

// userFacing strips the wrapped context off validation errors so the reply
// stays readable.
func userFacing(err error) string {
	s := err.Error()
	if i := strings.LastIndex(s, ": "); i >= 0 {
		return s[i+2:]
	}
	return s
}
