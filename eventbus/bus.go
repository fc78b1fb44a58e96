package eventbus

import (
	"context"
	"fmt"
	"sync"

	"github.com/danieldean2000/oscorm-dashboard/errors"
	"github.com/danieldean2000/oscorm-dashboard/logging"
	"github.com/google/uuid"
)

// BusOption configures the event bus.
type BusOption func(*Bus)

// WithWorkerPool sets the number of worker goroutines for processing events.
// Default is 16 workers. Set to 0 to use unbounded goroutines.
func WithWorkerPool(size int) BusOption {
	return func(b *Bus) {
		b.workers = size
	}
}

// NewBus returns an in-memory EventBus. ctx supplies the logger handed to
// subscribers.
func NewBus(ctx context.Context, opts ...BusOption) *Bus {
	ctx = logging.EnsureLogger(ctx)
	b := &Bus{
		subscriberCtx: logging.With(ctx, logging.FromContext(ctx).Named("eventbus")),
		workers:       16,
		jobs:          make(chan job, 64),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

type job struct {
	ctx     context.Context
	handler Handler
	msg     *Message
}

// Bus is an in-memory implementation of EventBus.
type Bus struct {
	subscribers   map[string][]Handler
	subscriberCtx context.Context

	mu sync.Mutex     // Protects subscribers and lifecycle flags.
	wg sync.WaitGroup // Waits for active subscribers to complete.

	jobs    chan job
	workers int
	started bool
	closed  bool
}

// Subscribe registers a handler for a topic.
func (b *Bus) Subscribe(topic string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subscribers == nil {
		b.subscribers = make(map[string][]Handler)
	}
	b.subscribers[topic] = append(b.subscribers[topic], handler)
}

// Publish sends a message to all subscribers of topic. Messages published
// after Shutdown are dropped.
func (b *Bus) Publish(ctx context.Context, topic string, data any) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		logging.Warnw(ctx, "eventbus: dropping message published after shutdown", "topic", topic)
		return
	}
	if !b.started {
		b.startWorkers()
		b.started = true
	}

	handlers := b.subscribers[topic]
	if len(handlers) == 0 {
		return
	}

	hctx := logging.With(b.subscriberCtx, logging.FromContext(b.subscriberCtx).Named(topic))
	logging.Debugw(ctx, "eventbus: publishing", "topic", topic, "subscribers", len(handlers))

	for _, handler := range handlers {
		msg := &Message{ID: uuid.NewString(), Topic: topic, Data: data}
		b.wg.Add(1)
		if b.workers == 0 {
			go b.execute(hctx, handler, msg)
		} else {
			b.jobs <- job{ctx: hctx, handler: handler, msg: msg}
		}
	}
}

func (b *Bus) startWorkers() {
	for range b.workers {
		go b.worker()
	}
}

func (b *Bus) worker() {
	for job := range b.jobs {
		b.execute(job.ctx, job.handler, job.msg)
	}
}

// Shutdown closes the job channel and waits for all workers to finish.
func (b *Bus) Shutdown(ctx context.Context) error {
	b.mu.Lock()
	if !b.closed {
		b.closed = true
		if b.started && b.workers > 0 {
			close(b.jobs)
		}
	}
	b.mu.Unlock()

	return b.Wait(ctx)
}

// Wait blocks until all pending messages are processed.
func (b *Bus) Wait(ctx context.Context) error {
	c := make(chan struct{})
	go func() {
		defer close(c)
		b.wg.Wait()
	}()
	select {
	case <-c:
		return nil
	case <-ctx.Done():
		return errors.New("eventbus: timeout waiting for handlers to finish")
	}
}

func (b *Bus) execute(ctx context.Context, handler Handler, msg *Message) {
	defer func() {
		if r := recover(); r != nil {
			err := errors.Wrap(fmt.Errorf("%v", r), 0)
			logging.Errorw(ctx, "eventbus: recovered from panic",
				"error", r, "message_id", msg.ID, "error.stack_trace", err.MinimalStack(2, 5))
		}
		b.wg.Done()
	}()
	if err := handler(ctx, msg); err != nil {
		logging.Errorw(ctx, "eventbus: handler error", "error", err, "message_id", msg.ID)
	}
}
