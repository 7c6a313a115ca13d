// Package telegram implements the Bot API client, the long-poll loop and
// the command handlers.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client is a minimal Bot API client over long polling.
type Client struct {
	token string
	base  string
	rest  *resty.Client
}

// NewClient creates a Bot API client. baseURL is the API host, normally
// https://api.telegram.org.
func NewClient(token, baseURL string, timeout time.Duration) *Client {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	}
	return &Client{token: token, base: baseURL, rest: r}
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
	ErrorCode   int             `json:"error_code"`
}

func (c *Client) url(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.base, c.token, method)
}

// call posts body as JSON and unmarshals the result envelope into out.
func (c *Client) call(ctx context.Context, method string, body, out any) error {
	var env apiResponse
	req := c.rest.R().SetContext(ctx).SetResult(&env).SetError(&env)
	if body != nil {
		req.SetBody(body)
	}
	resp, err := req.Post(c.url(method))
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	if !env.OK {
		if env.Description != "" {
			return fmt.Errorf("%s: API error %d: %s", method, env.ErrorCode, env.Description)
		}
		return fmt.Errorf("%s: status %d", method, resp.StatusCode())
	}
	if out != nil {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return fmt.Errorf("%s: decode result: %w", method, err)
		}
	}
	return nil
}

// GetMe verifies the token and returns the bot account.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	var u User
	if err := c.call(ctx, "getMe", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUpdates long-polls for updates after offset. timeout is the server-side
// hold in seconds; the HTTP client must allow at least that long.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout int) ([]Update, error) {
	body := map[string]any{
		"offset":          offset,
		"timeout":         timeout,
		"allowed_updates": []string{"message", "callback_query"},
	}
	var updates []Update
	if err := c.call(ctx, "getUpdates", body, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// SendMessage delivers a text message and returns the sent message.
func (c *Client) SendMessage(ctx context.Context, p SendMessageParams) (*Message, error) {
	var msg Message
	if err := c.call(ctx, "sendMessage", p, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// SendPhoto uploads photo bytes with an optional caption.
func (c *Client) SendPhoto(ctx context.Context, chatID int64, caption string, photo []byte) error {
	var env apiResponse
	resp, err := c.rest.R().
		SetContext(ctx).
		SetResult(&env).
		SetError(&env).
		SetFileReader("photo", "chart.png", bytes.NewReader(photo)).
		SetFormData(map[string]string{
			"chat_id": strconv.FormatInt(chatID, 10),
			"caption": caption,
		}).
		Post(c.url("sendPhoto"))
	if err != nil {
		return fmt.Errorf("sendPhoto: %w", err)
	}
	if !env.OK {
		if env.Description != "" {
			return fmt.Errorf("sendPhoto: API error %d: %s", env.ErrorCode, env.Description)
		}
		return fmt.Errorf("sendPhoto: status %d", resp.StatusCode())
	}
	return nil
}

// EditMessageText rewrites a previously sent message, used by callback
// button handlers.
func (c *Client) EditMessageText(ctx context.Context, p EditMessageParams) error {
	return c.call(ctx, "editMessageText", p, nil)
}

// AnswerCallbackQuery acknowledges a button press so the client stops
// showing its spinner.
func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackID, text string) error {
	body := map[string]any{"callback_query_id": callbackID}
	if text != "" {
		body["text"] = text
	}
	return c.call(ctx, "answerCallbackQuery", body, nil)
}
