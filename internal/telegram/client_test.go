package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestGetMe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bottest-token/getMe" {
			t.Errorf("path = %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"ok":true,"result":{"id":12345,"is_bot":true,"first_name":"TradeAI","username":"tradeai_bot"}}`)
	}))
	defer srv.Close()

	c := NewClient("test-token", srv.URL, 5*time.Second)
	me, err := c.GetMe(context.Background())
	if err != nil {
		t.Fatalf("GetMe: %v", err)
	}
	if me.ID != 12345 || me.Username != "tradeai_bot" {
		t.Errorf("unexpected user %+v", me)
	}
}

func TestGetUpdates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if got := body["offset"].(float64); got != 7 {
			t.Errorf("offset = %v, want 7", got)
		}
		fmt.Fprint(w, `{"ok":true,"result":[
			{"update_id":8,"message":{"message_id":1,"from":{"id":99},"chat":{"id":99,"type":"private"},"text":"/price AAPL"}}
		]}`)
	}))
	defer srv.Close()

	c := NewClient("test-token", srv.URL, 5*time.Second)
	updates, err := c.GetUpdates(context.Background(), 7, 30)
	if err != nil {
		t.Fatalf("GetUpdates: %v", err)
	}
	if len(updates) != 1 || updates[0].UpdateID != 8 || updates[0].Message.Text != "/price AAPL" {
		t.Errorf("unexpected updates %+v", updates)
	}
}

func TestSendMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p SendMessageParams
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if p.ChatID != 42 || p.Text != "hello" || p.ParseMode != "HTML" {
			t.Errorf("unexpected params %+v", p)
		}
		fmt.Fprint(w, `{"ok":true,"result":{"message_id":100,"chat":{"id":42,"type":"private"},"text":"hello"}}`)
	}))
	defer srv.Close()

	c := NewClient("test-token", srv.URL, 5*time.Second)
	msg, err := c.SendMessage(context.Background(), SendMessageParams{ChatID: 42, Text: "hello", ParseMode: "HTML"})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if msg.MessageID != 100 {
		t.Errorf("message id = %d", msg.MessageID)
	}
}

func TestAPIErrorSurfacesDescription(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`)
	}))
	defer srv.Close()

	c := NewClient("test-token", srv.URL, 5*time.Second)
	_, err := c.SendMessage(context.Background(), SendMessageParams{ChatID: 1, Text: "x"})
	if err == nil || !strings.Contains(err.Error(), "chat not found") {
		t.Fatalf("err = %v, want description surfaced", err)
	}
}

func TestAnswerCallbackQuery(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		fmt.Fprint(w, `{"ok":true,"result":true}`)
	}))
	defer srv.Close()

	c := NewClient("test-token", srv.URL, 5*time.Second)
	if err := c.AnswerCallbackQuery(context.Background(), "cb123", "done"); err != nil {
		t.Fatalf("AnswerCallbackQuery: %v", err)
	}
	if gotBody["callback_query_id"] != "cb123" || gotBody["text"] != "done" {
		t.Errorf("unexpected body %v", gotBody)
	}
}

func TestPollerAdvancesOffset(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	call := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		call++
		switch call {
		case 1:
			fmt.Fprint(w, `{"ok":true,"result":[{"update_id":41,"message":{"message_id":1,"chat":{"id":5,"type":"private"},"text":"hi"}}]}`)
		case 2:
			if got := body["offset"].(float64); got != 42 {
				t.Errorf("second poll offset = %v, want 42", got)
			}
			fmt.Fprint(w, `{"ok":true,"result":[{"update_id":42}]}`)
		default:
			fmt.Fprint(w, `{"ok":true,"result":[]}`)
		}
	}))
	defer srv.Close()

	seen := make(chan int64, 4)
	h := handlerFunc(func(ctx context.Context, u Update) {
		seen <- u.UpdateID
		if u.UpdateID == 42 {
			cancel()
		}
	})

	c := NewClient("test-token", srv.URL, 5*time.Second)
	p := NewPoller(c, h, time.Second, nil)

	done := make(chan struct{})
	go func() { p.Run(ctx); close(done) }()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("poller did not stop after cancel")
	}
	if first := <-seen; first != 41 {
		t.Errorf("first update = %d, want 41", first)
	}
}

type handlerFunc func(ctx context.Context, u Update)

func (f handlerFunc) HandleUpdate(ctx context.Context, u Update) { f(ctx, u) }
