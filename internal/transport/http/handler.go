package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"contactsync/internal/syncer"
	"contactsync/pkg/platform/httputil"
	"contactsync/pkg/platform/middleware/request"
)

// SyncService runs one sync cycle on demand.
type SyncService interface {
	Sync(ctx context.Context) (*syncer.Outcome, error)
}

// Handler is the thin HTTP layer over the sync service.
type Handler struct {
	svc         SyncService
	mediatorURN string
	logger      *slog.Logger
	now         func() time.Time
	onCycle     func(*syncer.Outcome)
}

// Option configures the Handler.
type Option func(*Handler)

// WithCycleObserver registers fn to be called with every finished cycle.
func WithCycleObserver(fn func(*syncer.Outcome)) Option {
	return func(h *Handler) {
		h.onCycle = fn
	}
}

// WithClock overrides the time source (for testing).
func WithClock(now func() time.Time) Option {
	return func(h *Handler) {
		h.now = now
	}
}

func NewHandler(svc SyncService, mediatorURN string, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		svc:         svc,
		mediatorURN: mediatorURN,
		logger:      logger,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandleSync runs one cycle and replies with a mediator return object: 200
// when the cycle completed (with or without upsert errors), 500 when it
// failed.
func (h *Handler) HandleSync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.RequestIDFrom(ctx)
	h.logger.InfoContext(ctx, "sync triggered", "request_id", requestID)

	out, err := h.svc.Sync(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "sync not started", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	if h.onCycle != nil {
		h.onCycle(out)
	}

	status := http.StatusOK
	if out.Failed() {
		status = http.StatusInternalServerError
		h.logger.ErrorContext(ctx, "relaying failed cycle to OpenHIM core",
			"cycle_id", out.CycleID,
			"error", out.Error,
			"request_id", requestID,
		)
	}
	httputil.WriteJSONAs(w, ContentTypeOpenHIM, status, buildMediatorResponse(h.mediatorURN, out, status, h.now()))
}
