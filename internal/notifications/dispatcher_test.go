package notifications

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"inkwell/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSink struct {
	name    string
	err     error
	delay   time.Duration
	calls   int32
	lastErr atomic.Value
}

func (s *stubSink) Name() string { return s.name }

func (s *stubSink) Deliver(ctx context.Context, _ Event) error {
	atomic.AddInt32(&s.calls, 1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			s.lastErr.Store(ctx.Err())
			return ctx.Err()
		}
	}
	return s.err
}

func TestDispatcher_DeliversToEverySink(t *testing.T) {
	ok := &stubSink{name: "ok"}
	failing := &stubSink{name: "failing", err: errors.New("smtp down")}
	d := NewDispatcher(NewLocalBus(4), ok, nil, failing)

	d.Dispatch(context.Background(), sampleEvent(1))

	assert.Equal(t, int32(1), atomic.LoadInt32(&ok.calls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&failing.calls))
}

func TestDispatcher_SinkTimeout(t *testing.T) {
	slow := &stubSink{name: "slow", delay: time.Second}
	d := NewDispatcher(NewLocalBus(4), slow)
	d.SetTimeout(20 * time.Millisecond)

	start := time.Now()
	d.Dispatch(context.Background(), sampleEvent(1))

	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, context.DeadlineExceeded, slow.lastErr.Load())
}

func TestDispatcher_StartConsumesBus(t *testing.T) {
	sink := &stubSink{name: "count"}
	bus := NewLocalBus(4)
	d := NewDispatcher(bus, sink)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, d.Start(ctx))

	require.NoError(t, bus.Publish(ctx, NewPostCreated(&models.Post{ID: 9, Title: "T", UserID: 2})))
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&sink.calls) == 1 }, testEventuallyTimeout, testPollInterval)
}

func TestNewPostCreated(t *testing.T) {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	evt := NewPostCreated(&models.Post{ID: 4, Title: "Title", UserID: 8, CreatedAt: created})

	assert.Equal(t, Event{
		Type:      EventPostCreated,
		PostID:    4,
		AuthorID:  8,
		Title:     "Title",
		Tags:      []string{},
		CreatedAt: created,
	}, evt)
}

// stuckSink ignores its context until released.
type stuckSink struct{ release chan struct{} }

func (s *stuckSink) Name() string { return "stuck" }

func (s *stuckSink) Deliver(context.Context, Event) error {
	<-s.release
	return nil
}

func TestDispatcher_SinkIgnoringContextIsAbandoned(t *testing.T) {
	stuck := &stuckSink{release: make(chan struct{})}
	defer close(stuck.release)
	ok := &stubSink{name: "ok"}

	d := NewDispatcher(NewLocalBus(4), stuck, ok)
	d.SetTimeout(20 * time.Millisecond)

	start := time.Now()
	d.Dispatch(context.Background(), sampleEvent(1))

	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&ok.calls))
}
