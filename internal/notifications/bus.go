package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"

	"inkwell/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// PostsChannel is the Redis pub/sub channel for post events.
const PostsChannel = "events:posts"

// ErrBusFull is returned by LocalBus when its buffer is exhausted.
var ErrBusFull = errors.New("event bus buffer full")

// RedisBus publishes events as JSON on a Redis channel, so every API replica
// can feed its own websocket clients.
type RedisBus struct {
	rdb     *redis.Client
	channel string
}

// NewRedisBus creates a bus over rdb.
func NewRedisBus(rdb *redis.Client) *RedisBus {
	return &RedisBus{rdb: rdb, channel: PostsChannel}
}

func (b *RedisBus) Publish(ctx context.Context, evt Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return b.rdb.Publish(ctx, b.channel, payload).Err()
}

// Subscribe waits for the subscription to be confirmed, then consumes messages
// in a goroutine. A panicking handler is logged and the loop continues.
func (b *RedisBus) Subscribe(ctx context.Context, handle func(Event)) error {
	sub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var evt Event
				if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
					middleware.Logger.Warn("discarding malformed event", "channel", msg.Channel, "error", err)
					continue
				}
				safeHandle(handle, evt)
			}
		}
	}()

	return nil
}

// LocalBus is the in-process fallback used when Redis is unavailable.
type LocalBus struct {
	events chan Event
}

// NewLocalBus creates a bus buffering up to size events.
func NewLocalBus(size int) *LocalBus {
	if size <= 0 {
		size = 64
	}
	return &LocalBus{events: make(chan Event, size)}
}

// Publish never blocks; when the buffer is full the event is dropped.
func (b *LocalBus) Publish(_ context.Context, evt Event) error {
	select {
	case b.events <- evt:
		return nil
	default:
		return ErrBusFull
	}
}

func (b *LocalBus) Subscribe(ctx context.Context, handle func(Event)) error {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case evt := <-b.events:
				safeHandle(handle, evt)
			}
		}
	}()
	return nil
}

func safeHandle(handle func(Event), evt Event) {
	defer func() {
		if r := recover(); r != nil {
			middleware.Logger.Error("panic in event handler", "panic", r, "stack", string(debug.Stack()))
		}
	}()
	handle(evt)
}
