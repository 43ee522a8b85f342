package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"readykids/internal/application/builder"
	"readykids/internal/application/metrics"
	"readykids/internal/application/models"
	dErrors "readykids/pkg/domain-errors"
	audit "readykids/pkg/platform/audit"
	"readykids/pkg/platform/sentinel"
	"readykids/pkg/requestcontext"
)

const tracerName = "readykids/internal/application"

// Store persists applications and their timelines. Implementations join the
// transaction carried by ctx when RunInTx started one.
type Store interface {
	NextSequence(ctx context.Context) (int64, error)
	Insert(ctx context.Context, app *models.Application) error
	FindByID(ctx context.Context, id string) (*models.Application, error)
	List(ctx context.Context) ([]*models.Application, error)
	Update(ctx context.Context, id string, patch *models.Patch, now time.Time) (*models.Application, error)
	Delete(ctx context.Context, id string) (bool, error)
	AppendTimelineEvent(ctx context.Context, event *models.TimelineEvent) (*models.TimelineEvent, error)
	ListTimeline(ctx context.Context, applicationID string) ([]*models.TimelineEvent, error)
	ListTimelines(ctx context.Context, applicationIDs []string) (map[string][]*models.TimelineEvent, error)
}

type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service is the application repository: it creates records from submitted
// forms and serves the dashboard's reads and edits.
type Service struct {
	store          Store
	tx             TxRunner
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	tracer         trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

func New(store Store, tx TxRunner, opts ...Option) *Service {
	s := &Service{
		store:  store,
		tx:     tx,
		logger: slog.Default(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create builds an application from sub, draws its id and writes it together
// with its initial timeline in one transaction. Nothing is written when any
// step fails.
func (s *Service) Create(ctx context.Context, sub *models.Submission) (string, error) {
	ctx, span := s.tracer.Start(ctx, "application.Create")
	defer span.End()
	defer s.metrics.ObserveOperation("create", time.Now())

	now := requestcontext.Now(ctx)
	app := builder.Build(sub, now)

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		seq, err := s.store.NextSequence(ctx)
		if err != nil {
			return err
		}
		app.ID = builder.GenerateID(now.Year(), seq)
		if err := s.store.Insert(ctx, app); err != nil {
			return err
		}
		for _, event := range models.InitialTimeline(app.ID, now) {
			if _, err := s.store.AppendTimelineEvent(ctx, event); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		recordError(span, err)
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to create application")
	}

	span.SetAttributes(attribute.String("application.id", app.ID))
	s.metrics.IncrementCreated()
	s.logger.InfoContext(ctx, "application created",
		"application_id", app.ID,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emit(ctx, audit.EventApplicationCreated, app.ID, string(app.Stage), "")
	return app.ID, nil
}

// List returns every application newest first, each with its timeline.
func (s *Service) List(ctx context.Context) ([]*models.ApplicationView, error) {
	ctx, span := s.tracer.Start(ctx, "application.List")
	defer span.End()
	defer s.metrics.ObserveOperation("list", time.Now())

	apps, err := s.store.List(ctx)
	if err != nil {
		recordError(span, err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list applications")
	}
	ids := make([]string, 0, len(apps))
	for _, app := range apps {
		ids = append(ids, app.ID)
	}
	timelines, err := s.store.ListTimelines(ctx, ids)
	if err != nil {
		recordError(span, err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list applications")
	}

	now := requestcontext.Now(ctx)
	views := make([]*models.ApplicationView, 0, len(apps))
	for _, app := range apps {
		views = append(views, models.NewView(app, timelines[app.ID], now))
	}
	span.SetAttributes(attribute.Int("application.count", len(views)))
	return views, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.ApplicationView, error) {
	ctx, span := s.tracer.Start(ctx, "application.Get", trace.WithAttributes(attribute.String("application.id", id)))
	defer span.End()
	defer s.metrics.ObserveOperation("get", time.Now())

	app, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "Application not found")
		}
		recordError(span, err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load application")
	}
	return s.view(ctx, app)
}

// Update applies patch. An empty patch is indistinguishable from an unknown
// id. A new checklist also resets progress to match it.
func (s *Service) Update(ctx context.Context, id string, patch *models.Patch) (*models.ApplicationView, error) {
	ctx, span := s.tracer.Start(ctx, "application.Update", trace.WithAttributes(attribute.String("application.id", id)))
	defer span.End()
	defer s.metrics.ObserveOperation("update", time.Now())

	if patch == nil {
		patch = &models.Patch{}
	}
	if patch.Has(models.FieldChecks) {
		patch.SetProgress(builder.CalculateProgress(patch.Checks))
	}

	app, err := s.store.Update(ctx, id, patch, requestcontext.Now(ctx))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) || errors.Is(err, sentinel.ErrNoChanges) {
			return nil, dErrors.New(dErrors.CodeNotFound, "Application not found or no valid fields")
		}
		recordError(span, err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update application")
	}

	detail := fieldList(patch.Fields())
	s.logger.InfoContext(ctx, "application updated",
		"application_id", id,
		"fields", detail,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emit(ctx, audit.EventApplicationUpdated, id, string(app.Stage), detail)
	return s.view(ctx, app)
}

// Delete removes an application and, through the foreign key, its timeline.
func (s *Service) Delete(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "application.Delete", trace.WithAttributes(attribute.String("application.id", id)))
	defer span.End()
	defer s.metrics.ObserveOperation("delete", time.Now())

	deleted, err := s.store.Delete(ctx, id)
	if err != nil {
		recordError(span, err)
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete application")
	}
	if !deleted {
		return dErrors.New(dErrors.CodeNotFound, "Application not found")
	}

	s.metrics.IncrementDeleted()
	s.logger.InfoContext(ctx, "application deleted",
		"application_id", id,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emit(ctx, audit.EventApplicationDeleted, id, "", "")
	return nil
}

// AddTimelineEvent appends a free-text entry to an application's timeline.
func (s *Service) AddTimelineEvent(ctx context.Context, id, event string, eventType models.TimelineType) (*models.TimelineEvent, error) {
	ctx, span := s.tracer.Start(ctx, "application.AddTimelineEvent", trace.WithAttributes(attribute.String("application.id", id)))
	defer span.End()
	defer s.metrics.ObserveOperation("add_timeline_event", time.Now())

	if eventType == "" {
		eventType = models.TimelineAction
	}
	stored, err := s.store.AppendTimelineEvent(ctx, &models.TimelineEvent{
		ApplicationID: id,
		Event:         event,
		Type:          eventType,
		CreatedAt:     requestcontext.Now(ctx),
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "Application not found")
		}
		recordError(span, err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to add timeline event")
	}

	s.metrics.IncrementTimelineEvent(string(eventType))
	s.emit(ctx, audit.EventTimelineAdded, id, "", event)
	return stored, nil
}

func (s *Service) view(ctx context.Context, app *models.Application) (*models.ApplicationView, error) {
	timeline, err := s.store.ListTimeline(ctx, app.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load timeline")
	}
	return models.NewView(app, timeline, requestcontext.Now(ctx)), nil
}

// emit publishes a lifecycle event. Publishing never fails the operation.
func (s *Service) emit(ctx context.Context, action audit.AuditEvent, applicationID, stage, detail string) {
	if s.auditPublisher == nil {
		return
	}
	err := s.auditPublisher.Emit(ctx, audit.Event{
		Action:        string(action),
		ApplicationID: applicationID,
		Stage:         stage,
		Detail:        detail,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to publish lifecycle event",
			"action", string(action),
			"application_id", applicationID,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func fieldList(fields []models.Field) string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = string(f)
	}
	return strings.Join(names, ",")
}
