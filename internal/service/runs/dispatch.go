package runs

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Dispatcher runs the detached second phase of the run pipeline. Tasks
// outlive the HTTP request that spawned them: their context is derived
// from the request context with cancellation stripped, so a client
// disconnect never aborts an execution in flight.
type Dispatcher struct {
	group  errgroup.Group
	logger *slog.Logger
}

// NewDispatcher creates a dispatcher for background run execution.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	return &Dispatcher{logger: logger}
}

// Dispatch starts fn on its own goroutine. A panic in fn is logged and
// swallowed; it must not take the process down with it.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, fn func(context.Context)) {
	detached := context.WithoutCancel(ctx)
	d.group.Go(func() error {
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("background task panicked",
					slog.String("task", name),
					slog.Any("panic", r))
			}
		}()
		fn(detached)
		return nil
	})
}

// Drain blocks until every dispatched task has finished or ctx expires.
// Called during graceful shutdown so in-flight runs settle before the
// database pool closes.
func (d *Dispatcher) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		_ = d.group.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
