package notifications

import (
	"context"
	"fmt"
	"io"
	"time"

	"inkwell/internal/middleware"

	"github.com/redis/go-redis/v9"
)

const claimTTL = 24 * time.Hour

// Claimer grants a key to exactly one caller until it expires.
type Claimer interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// RedisClaimer claims keys with SET NX, shared by every replica on the same Redis.
type RedisClaimer struct {
	rdb *redis.Client
}

// NewRedisClaimer creates a claimer over rdb.
func NewRedisClaimer(rdb *redis.Client) *RedisClaimer {
	return &RedisClaimer{rdb: rdb}
}

func (c *RedisClaimer) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, key, "1", ttl).Result()
}

// ClaimKey names the claim for delivering evt to sink.
func ClaimKey(sink string, evt Event) string {
	return fmt.Sprintf("notify:%s:%s:%d", sink, evt.Type, evt.PostID)
}

type onceSink struct {
	Sink
	claims Claimer
}

// Once wraps sink so that replicas sharing claims deliver each event once.
// The feed stays unwrapped: every replica serves its own websocket clients.
func Once(sink Sink, claims Claimer) Sink {
	if claims == nil {
		return sink
	}
	return &onceSink{Sink: sink, claims: claims}
}

func (s *onceSink) Deliver(ctx context.Context, evt Event) error {
	won, err := s.claims.Claim(ctx, ClaimKey(s.Name(), evt), claimTTL)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "notification claim failed, delivering anyway",
			"sink", s.Name(), "post_id", evt.PostID, "error", err)
		return s.Sink.Deliver(ctx, evt)
	}
	if !won {
		middleware.Logger.DebugContext(ctx, "notification claimed by another replica",
			"sink", s.Name(), "post_id", evt.PostID)
		return nil
	}
	return s.Sink.Deliver(ctx, evt)
}

func (s *onceSink) Close() error {
	if c, ok := s.Sink.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
