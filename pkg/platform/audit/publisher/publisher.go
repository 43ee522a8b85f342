// Package publisher emits application lifecycle events without blocking the
// request that caused them.
package publisher

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	audit "readykids/pkg/platform/audit"
	"readykids/pkg/platform/audit/worker"
	"readykids/pkg/requestcontext"
)

// Publisher hands events to a sink. In async mode (WithAsyncBuffer) events
// are queued on a bounded channel and a full queue drops the event.
type Publisher struct {
	sink   audit.Sink
	logger *slog.Logger
	onDrop func()

	bufferSize int
	mu         sync.RWMutex
	inbox      chan audit.Event
	closed     bool
	done       chan struct{}
}

type Option func(*Publisher)

// WithAsyncBuffer queues up to size events for a background worker.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.bufferSize = size
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithDropHook is called for every event dropped on a full queue.
func WithDropHook(fn func()) Option {
	return func(p *Publisher) {
		p.onDrop = fn
	}
}

func NewPublisher(sink audit.Sink, opts ...Option) *Publisher {
	p := &Publisher{sink: sink, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufferSize > 0 {
		p.inbox = make(chan audit.Event, p.bufferSize)
		p.done = make(chan struct{})
		w := worker.NewWorker(sink, p.inbox, p.logger)
		go func() {
			defer close(p.done)
			_ = w.Run(context.Background())
		}()
	}
	return p
}

// Emit stamps the event with an id, time and request id when missing and
// publishes it. Async publishing never returns an error.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}

	if p.inbox == nil {
		return p.sink.Append(ctx, event)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.drop(ctx, event, "publisher closed")
		return nil
	}
	select {
	case p.inbox <- event:
	default:
		p.drop(ctx, event, "event buffer full")
	}
	return nil
}

func (p *Publisher) drop(ctx context.Context, event audit.Event, reason string) {
	p.logger.WarnContext(ctx, "dropping lifecycle event",
		"reason", reason,
		"action", event.Action,
		"application_id", event.ApplicationID,
		"request_id", event.RequestID,
	)
	if p.onDrop != nil {
		p.onDrop()
	}
}

// Close stops accepting events and waits for queued ones to reach the sink.
func (p *Publisher) Close() {
	if p.inbox == nil {
		return
	}
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.inbox)
	}
	p.mu.Unlock()
	<-p.done
}
