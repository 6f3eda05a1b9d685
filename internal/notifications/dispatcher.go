package notifications

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"inkwell/internal/middleware"
	"inkwell/internal/observability"
)

const defaultSinkTimeout = 10 * time.Second

// Sink delivers an event to one destination.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, evt Event) error
}

// Dispatcher fans events from a Bus out to every Sink.
type Dispatcher struct {
	bus     Bus
	sinks   []Sink
	timeout time.Duration
}

// NewDispatcher creates a dispatcher; nil sinks are ignored.
func NewDispatcher(bus Bus, sinks ...Sink) *Dispatcher {
	d := &Dispatcher{bus: bus, timeout: defaultSinkTimeout}
	for _, s := range sinks {
		if s != nil {
			d.sinks = append(d.sinks, s)
		}
	}
	return d
}

// SetTimeout bounds each sink delivery.
func (d *Dispatcher) SetTimeout(timeout time.Duration) {
	if timeout > 0 {
		d.timeout = timeout
	}
}

// Start subscribes to the bus. Delivery stops when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) error {
	return d.bus.Subscribe(ctx, func(evt Event) {
		d.Dispatch(ctx, evt)
	})
}

// Dispatch delivers evt to every sink concurrently and waits for all of them.
// Failures are logged and counted only.
func (d *Dispatcher) Dispatch(ctx context.Context, evt Event) {
	var wg sync.WaitGroup
	for _, sink := range d.sinks {
		wg.Add(1)
		go func(sink Sink) {
			defer wg.Done()

			sinkCtx, cancel := context.WithTimeout(ctx, d.timeout)
			defer cancel()

			if err := deliverWithin(sinkCtx, sink, evt); err != nil {
				observability.NotificationsDelivered.WithLabelValues(sink.Name(), "failure").Inc()
				middleware.Logger.WarnContext(ctx, "notification delivery failed",
					"sink", sink.Name(), "post_id", evt.PostID, "error", err)
				return
			}
			observability.NotificationsDelivered.WithLabelValues(sink.Name(), "success").Inc()
		}(sink)
	}
	wg.Wait()
}

// Close releases sinks that hold connections.
func (d *Dispatcher) Close() error {
	var errs []error
	for _, sink := range d.sinks {
		if c, ok := sink.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", sink.Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}

// deliverWithin stops waiting for sink once ctx is done, so a sink that
// ignores its context cannot hold up the others.
func deliverWithin(ctx context.Context, sink Sink, evt Event) error {
	errc := make(chan error, 1)
	go func() { errc <- sink.Deliver(ctx, evt) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
