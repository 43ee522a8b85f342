package worker

import (
	"context"
	"log/slog"
	"time"

	audit "readykids/pkg/platform/audit"
)

const appendTimeout = 5 * time.Second

// Worker drains events from a channel into a sink. A failed append is logged
// and the event is dropped; the worker keeps going.
type Worker struct {
	sink   audit.Sink
	inbox  <-chan audit.Event
	logger *slog.Logger
}

func NewWorker(sink audit.Sink, inbox <-chan audit.Event, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{sink: sink, inbox: inbox, logger: logger}
}

// Run processes events until the inbox is closed (after draining it) or ctx
// is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.inbox:
			if !ok {
				return nil
			}
			w.append(ctx, event)
		}
	}
}

func (w *Worker) append(ctx context.Context, event audit.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), appendTimeout)
	defer cancel()
	if err := w.sink.Append(ctx, event); err != nil {
		w.logger.WarnContext(ctx, "failed to publish lifecycle event",
			"action", event.Action,
			"application_id", event.ApplicationID,
			"request_id", event.RequestID,
			"error", err,
		)
	}
}
