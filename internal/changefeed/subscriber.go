package changefeed

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// reconnectDelay is how long a subscription waits before redialing
// after a transport error.
const reconnectDelay = 2 * time.Second

// Feed hands out independent change-event subscriptions. Each caller
// owns its Subscription and must Close it; closing is idempotent and
// safe on every teardown path.
type Feed struct {
	client *redis.Client
	logger *slog.Logger
}

func NewFeed(client *redis.Client, logger *slog.Logger) *Feed {
	return &Feed{client: client, logger: logger}
}

// Subscribe starts delivering change events for the given tables,
// narrowed by filter (nil = all rows). Delivery runs until Close is
// called or ctx is cancelled.
func (f *Feed) Subscribe(ctx context.Context, filter Filter, tables ...string) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		events: make(chan Event, 64),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	channels := make([]string, len(tables))
	for i, t := range tables {
		channels[i] = ChannelFor(t)
	}

	go f.run(ctx, sub, filter, channels)
	return sub
}

// run keeps the underlying Pub/Sub connection alive, redialing after
// transport errors until the subscription is closed.
func (f *Feed) run(ctx context.Context, sub *Subscription, filter Filter, channels []string) {
	defer close(sub.done)
	defer close(sub.events)

	for {
		err := f.receive(ctx, sub, filter, channels)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			f.logger.Warn("change feed subscription error, reconnecting",
				"channels", channels, "error", err, "delay", reconnectDelay)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func (f *Feed) receive(ctx context.Context, sub *Subscription, filter Filter, channels []string) error {
	pubsub := f.client.Subscribe(ctx, channels...)
	defer pubsub.Close()

	// Wait for the subscription to be active before reporting events.
	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			sub.dispatch(ctx, f.logger, filter, msg.Payload)
		}
	}
}

// Subscription is a scoped handle on a change-event stream.
type Subscription struct {
	events    chan Event
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// Events returns the delivery channel. It is closed after Close.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Close releases the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		<-s.done
	})
}

// dispatch decodes one payload and forwards it if the filter accepts
// it. Events that cannot be decoded are logged and dropped rather than
// tearing down the stream.
func (s *Subscription) dispatch(ctx context.Context, logger *slog.Logger, filter Filter, payload string) {
	var event Event
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		logger.Warn("dropping malformed change event", "error", err)
		return
	}
	if filter != nil && !filter(event) {
		return
	}
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}
