package audit

import (
	"context"
	"time"
)

// Event records something that happened to an application. Keep it
// transport-agnostic so sinks can fan out.
type Event struct {
	ID            string    `json:"id"`
	Action        string    `json:"action"`
	ApplicationID string    `json:"application_id"`
	Stage         string    `json:"stage,omitempty"`
	Detail        string    `json:"detail,omitempty"`
	RequestID     string    `json:"request_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

type AuditEvent string

const (
	EventApplicationCreated AuditEvent = "application_created"
	EventApplicationUpdated AuditEvent = "application_updated"
	EventApplicationDeleted AuditEvent = "application_deleted"
	EventTimelineAdded      AuditEvent = "timeline_event_added"
)

// Sink is where published events end up.
type Sink interface {
	Append(ctx context.Context, event Event) error
}
