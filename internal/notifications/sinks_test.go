package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jordan-wright/email"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnnouncement(t *testing.T) {
	evt := sampleEvent(12)
	evt.Tags = []string{"go", "fiber"}

	assert.Equal(t, "Новая статья: Hello\nТеги: #go #fiber\nhttps://blog.example.com/posts/12\n",
		announcement(evt, "https://blog.example.com/"))

	evt.Tags = nil
	assert.Equal(t, "Новая статья: Hello\n", announcement(evt, ""))
}

func TestNewTelegramSink_RequiresCredentials(t *testing.T) {
	assert.Nil(t, NewTelegramSink(TelegramConfig{BotToken: "123:abc"}))
	assert.Nil(t, NewTelegramSink(TelegramConfig{ChatID: "-100"}))
	assert.NotNil(t, NewTelegramSink(TelegramConfig{BotToken: "123:abc", ChatID: "-100"}))
}

func TestTelegramSink_Deliver(t *testing.T) {
	var got sendMessageRequest
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	sink := NewTelegramSink(TelegramConfig{APIURL: srv.URL, BotToken: "123:abc", ChatID: "-100", PublicBaseURL: "https://blog.example.com"})
	require.NoError(t, sink.Deliver(context.Background(), sampleEvent(3)))

	assert.Equal(t, "/bot123:abc/sendMessage", path)
	assert.Equal(t, "-100", got.ChatID)
	assert.Contains(t, got.Text, "Новая статья: Hello")
	assert.Contains(t, got.Text, "https://blog.example.com/posts/3")
}

func TestTelegramSink_DeliverAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	sink := NewTelegramSink(TelegramConfig{APIURL: srv.URL, BotToken: "t", ChatID: "c"})
	err := sink.Deliver(context.Background(), sampleEvent(3))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestEmailSink_Deliver(t *testing.T) {
	assert.Nil(t, NewEmailSink(EmailConfig{Host: "smtp.example.com", From: "blog@example.com"}))

	sink := NewEmailSink(EmailConfig{
		Host: "smtp.example.com",
		From: "blog@example.com",
		To:   SplitRecipients(" editor@example.com, ,readers@example.com"),
	})
	require.NotNil(t, sink)
	assert.Equal(t, "587", sink.cfg.Port)

	var sent *email.Email
	sink.send = func(_ context.Context, e *email.Email) error {
		sent = e
		return nil
	}

	require.NoError(t, sink.Deliver(context.Background(), sampleEvent(1)))
	require.NotNil(t, sent)
	assert.Equal(t, []string{"editor@example.com", "readers@example.com"}, sent.To)
	assert.Equal(t, "Новая статья: Hello", sent.Subject)
	assert.Contains(t, string(sent.Text), "#go")

	sink.send = func(context.Context, *email.Email) error { return errors.New("connection refused") }
	assert.ErrorContains(t, sink.Deliver(context.Background(), sampleEvent(1)), "connection refused")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sink.Deliver(ctx, sampleEvent(1)), context.Canceled)
}

// silentSMTPServer accepts connections and never sends a greeting.
func silentSMTPServer(t *testing.T) (host, port string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var (
		mu    sync.Mutex
		conns []net.Conn
	)
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, c)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			_ = c.Close()
		}
	})

	host, port, err = net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	return host, port
}

func TestEmailSink_StalledRelayHonoursDeadline(t *testing.T) {
	host, port := silentSMTPServer(t)
	sink := NewEmailSink(EmailConfig{Host: host, Port: port, From: "blog@example.com", To: []string{"editor@example.com"}})
	require.NotNil(t, sink)
	t.Cleanup(func() { _ = sink.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := sink.Deliver(ctx, sampleEvent(1))
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestDispatcher_StalledRelayDoesNotBlockOtherSinks(t *testing.T) {
	host, port := silentSMTPServer(t)
	mail := NewEmailSink(EmailConfig{Host: host, Port: port, From: "blog@example.com", To: []string{"editor@example.com"}})
	require.NotNil(t, mail)

	feed := NewFeedHub()
	reader, err := feed.Register(nil)
	require.NoError(t, err)

	d := NewDispatcher(NewLocalBus(0), mail, feed)
	d.SetTimeout(100 * time.Millisecond)
	t.Cleanup(func() { _ = d.Close() })

	done := make(chan struct{})
	go func() {
		d.Dispatch(context.Background(), sampleEvent(1))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Dispatch blocked on a silent SMTP relay")
	}

	select {
	case <-reader.Send:
	default:
		t.Fatal("feed did not receive the event")
	}
}
