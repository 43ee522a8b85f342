// Package health serves the liveness endpoint.
package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"readykids/pkg/platform/httputil"
	"readykids/pkg/requestcontext"
)

const pingTimeout = 2 * time.Second

type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	db     Pinger
	logger *slog.Logger
}

func New(db Pinger, logger *slog.Logger) *Handler {
	return &Handler{db: db, logger: logger}
}

type response struct {
	Status string `json:"status"`
}

// ServeHTTP answers 200 {"status":"ok"}, or 503 when the database does not
// answer a ping.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			h.logger.WarnContext(ctx, "health check failed",
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
			httputil.WriteJSON(w, http.StatusServiceUnavailable, response{Status: "unavailable"})
			return
		}
	}
	httputil.WriteJSON(w, http.StatusOK, response{Status: "ok"})
}
