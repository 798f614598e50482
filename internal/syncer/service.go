package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"contactsync/internal/syncstate"
	dErrors "contactsync/pkg/domain-errors"
)

// ErrBusy is returned when a cycle is requested while another is running.
var ErrBusy = dErrors.New(dErrors.CodeConflict, "a sync cycle is already running")

// Runner runs one cycle.
type Runner interface {
	Run(ctx context.Context, p Params) *Outcome
}

// Service owns the persisted sync state around the orchestrator and
// rejects overlapping cycles.
type Service struct {
	runner Runner
	store  syncstate.Store
	logger *slog.Logger
	mu     sync.Mutex
}

// NewService creates a Service.
func NewService(runner Runner, store syncstate.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{runner: runner, store: store, logger: logger}
}

// Sync loads the state, runs one cycle and, unless the cycle failed,
// advances the state to the cycle start. The returned error is non-nil only
// when no cycle ran; a failed cycle is reported through the Outcome.
func (s *Service) Sync(ctx context.Context) (*Outcome, error) {
	if !s.mu.TryLock() {
		return nil, ErrBusy
	}
	defer s.mu.Unlock()

	state, err := s.store.Load(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, fmt.Sprintf("load sync state: %v", err))
	}

	out := s.runner.Run(ctx, Params{LastSync: state.LastSync, Reset: state.Reset})
	if out.Failed() {
		return out, nil
	}

	// The cycle may have outlived the caller.
	if err := s.store.Save(context.WithoutCancel(ctx), syncstate.Advance(out.StartedAt)); err != nil {
		s.logger.Error("failed to save sync state", "cycle_id", out.CycleID, "error", err)
	}
	return out, nil
}
