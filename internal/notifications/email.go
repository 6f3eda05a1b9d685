package notifications

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"inkwell/internal/middleware"

	"github.com/jordan-wright/email"
)

// EmailConfig configures the SMTP relay and recipients of post announcements.
type EmailConfig struct {
	Host          string
	Port          string
	Username      string
	Password      string
	From          string
	To            []string
	PublicBaseURL string
}

// EmailSink mails an announcement for every new post.
type EmailSink struct {
	cfg  EmailConfig
	pool *email.Pool
	send func(ctx context.Context, e *email.Email) error
}

// NewEmailSink returns nil unless host, sender and recipients are configured.
func NewEmailSink(cfg EmailConfig) *EmailSink {
	if cfg.Host == "" || cfg.From == "" || len(cfg.To) == 0 {
		return nil
	}
	if cfg.Port == "" {
		cfg.Port = "587"
	}

	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	pool, err := email.NewPool(net.JoinHostPort(cfg.Host, cfg.Port), 1, auth)
	if err != nil {
		middleware.Logger.Warn("e-mail notifications disabled", "host", cfg.Host, "error", err)
		return nil
	}

	s := &EmailSink{cfg: cfg, pool: pool}
	s.send = s.poolSend
	return s
}

// SplitRecipients parses a comma separated address list.
func SplitRecipients(list string) []string {
	var out []string
	for _, addr := range strings.Split(list, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

func (s *EmailSink) Name() string { return "email" }

// Deliver returns once the message is sent or ctx is done, whichever comes
// first. A send still talking to a stalled relay is abandoned.
func (s *EmailSink) Deliver(ctx context.Context, evt Event) error {
	if evt.Type != EventPostCreated {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	e := email.NewEmail()
	e.From = s.cfg.From
	e.To = s.cfg.To
	e.Subject = fmt.Sprintf("Новая статья: %s", evt.Title)
	e.Text = []byte(announcement(evt, s.cfg.PublicBaseURL))

	errc := make(chan error, 1)
	go func() { errc <- s.send(ctx, e) }()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("failed to send post announcement: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to send post announcement: %w", ctx.Err())
	}
}

// Close releases pooled SMTP connections.
func (s *EmailSink) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func (s *EmailSink) poolSend(ctx context.Context, e *email.Email) error {
	timeout := defaultSinkTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if timeout <= 0 {
		return context.DeadlineExceeded
	}
	return s.pool.Send(e, timeout)
}
