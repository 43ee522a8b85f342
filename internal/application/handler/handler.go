package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"readykids/internal/application/models"
	dErrors "readykids/pkg/domain-errors"
	"readykids/pkg/platform/httputil"
	"readykids/pkg/requestcontext"
)

// Service defines the application operations the HTTP layer needs.
type Service interface {
	Create(ctx context.Context, sub *models.Submission) (string, error)
	List(ctx context.Context) ([]*models.ApplicationView, error)
	Get(ctx context.Context, id string) (*models.ApplicationView, error)
	Update(ctx context.Context, id string, patch *models.Patch) (*models.ApplicationView, error)
	Delete(ctx context.Context, id string) error
	AddTimelineEvent(ctx context.Context, id, event string, eventType models.TimelineType) (*models.TimelineEvent, error)
}

type Handler struct {
	service          Service
	logger           *slog.Logger
	submissionGuards []func(http.Handler) http.Handler
}

type Option func(*Handler)

// WithSubmissionMiddleware wraps only the public submission endpoint, e.g.
// with a rate limiter.
func WithSubmissionMiddleware(mw ...func(http.Handler) http.Handler) Option {
	return func(h *Handler) {
		h.submissionGuards = append(h.submissionGuards, mw...)
	}
}

func New(service Service, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{service: service, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type createResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

type updateResponse struct {
	Message     string                  `json:"message"`
	Application *models.ApplicationView `json:"application"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Register mounts the application routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api/applications", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.With(h.submissionGuards...).Post("/", h.handleCreate)
		r.Get("/{id}", h.handleGet)
		r.Patch("/{id}", h.handleUpdate)
		r.Delete("/{id}", h.handleDelete)
		r.Post("/{id}/timeline", h.handleAddTimelineEvent)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	views, err := h.service.List(ctx)
	if err != nil {
		h.writeError(ctx, w, err, "failed to list applications")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, views)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	view, err := h.service.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(ctx, w, err, "failed to load application")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[SubmissionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	sub, err := req.Submission()
	if err != nil {
		h.writeError(ctx, w, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid submission"), "failed to read submission")
		return
	}

	id, err := h.service.Create(ctx, sub)
	if err != nil {
		h.writeError(ctx, w, err, "failed to create application")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, createResponse{
		ID:      id,
		Message: "Application submitted successfully",
	})
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[UpdateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	view, err := h.service.Update(ctx, chi.URLParam(r, "id"), req.Patch())
	if err != nil {
		h.writeError(ctx, w, err, "failed to update application")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updateResponse{
		Message:     "Application updated",
		Application: view,
	})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.service.Delete(ctx, chi.URLParam(r, "id")); err != nil {
		h.writeError(ctx, w, err, "failed to delete application")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, messageResponse{Message: "Application deleted"})
}

func (h *Handler) handleAddTimelineEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[TimelineRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	event, err := h.service.AddTimelineEvent(ctx, chi.URLParam(r, "id"), req.EscapedEvent(), req.eventType)
	if err != nil {
		h.writeError(ctx, w, err, "failed to add timeline event")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, event)
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error, msg string) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	} else {
		h.logger.WarnContext(ctx, msg,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}
