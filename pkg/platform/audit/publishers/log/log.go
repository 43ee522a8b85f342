// Package log is a lifecycle event sink that writes each event as a
// structured log line.
package log

import (
	"context"
	"log/slog"

	audit "readykids/pkg/platform/audit"
)

type Sink struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{logger: logger}
}

func (s *Sink) Append(ctx context.Context, event audit.Event) error {
	s.logger.InfoContext(ctx, "application lifecycle event",
		"event_id", event.ID,
		"action", event.Action,
		"application_id", event.ApplicationID,
		"stage", event.Stage,
		"detail", event.Detail,
		"request_id", event.RequestID,
		"timestamp", event.Timestamp,
	)
	return nil
}
