package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// TelegramConfig configures the bot used to announce posts to a chat.
type TelegramConfig struct {
	APIURL        string
	BotToken      string
	ChatID        string
	PublicBaseURL string
}

// TelegramSink posts announcements through the Bot API sendMessage method.
type TelegramSink struct {
	cfg TelegramConfig
}

// NewTelegramSink returns nil when the bot token or chat id is missing.
func NewTelegramSink(cfg TelegramConfig) *TelegramSink {
	if cfg.BotToken == "" || cfg.ChatID == "" {
		return nil
	}
	if cfg.APIURL == "" {
		cfg.APIURL = "https://api.telegram.org"
	}
	return &TelegramSink{cfg: cfg}
}

func (s *TelegramSink) Name() string { return "telegram" }

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (s *TelegramSink) Deliver(ctx context.Context, evt Event) error {
	if evt.Type != EventPostCreated {
		return nil
	}

	timeout := defaultSinkTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return context.DeadlineExceeded
		}
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(s.cfg.APIURL, "/"), s.cfg.BotToken)
	agent := fiber.Post(url).
		JSON(sendMessageRequest{
			ChatID: s.cfg.ChatID,
			Text:   announcement(evt, s.cfg.PublicBaseURL),
		}).
		Timeout(timeout)

	var resp sendMessageResponse
	code, _, errs := agent.Struct(&resp)
	if len(errs) > 0 {
		return fmt.Errorf("telegram sendMessage: %w", errors.Join(errs...))
	}
	if code != fiber.StatusOK || !resp.OK {
		return fmt.Errorf("telegram sendMessage: status %d: %s", code, resp.Description)
	}
	return nil
}
