// Package worker consumes queued run requests and executes them
// through the engine.
package worker

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/appforge/flowcore/pkg/engine"
	"github.com/appforge/flowcore/pkg/eventbus"
	"github.com/appforge/flowcore/pkg/events"
)

// Worker processes one job at a time per subscription. Delivery is at
// least once, so a crashed worker's job is redelivered; a job that
// merely fails is acked and its outcome published, never retried here.
type Worker struct {
	id     string
	logger *slog.Logger
	runner *engine.Runner
	bus    eventbus.EventBus
}

func NewWorker(logger *slog.Logger, runner *engine.Runner, bus eventbus.EventBus) *Worker {
	id := uuid.New().String()[:8]

	return &Worker{
		id:     id,
		logger: logger.With("module", "worker", "worker_id", id),
		runner: runner,
		bus:    bus,
	}
}

func (w *Worker) ID() string {
	return w.id
}

// Start subscribes to the run topic and blocks until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	if err := w.bus.Handle(events.RunRequestedEvent, w.handleRunRequested); err != nil {
		return err
	}

	if err := w.bus.Subscribe(ctx); err != nil {
		return err
	}

	w.logger.Info("worker started")

	<-ctx.Done()

	return w.bus.Close()
}

// handleRunRequested executes one queued run. It always returns nil:
// a failed run is an outcome to report, not a message to redeliver.
func (w *Worker) handleRunRequested(ctx context.Context, raw any) error {
	request, ok := raw.(*events.RunRequested)
	if !ok {
		return errors.New("unexpected payload on run topic")
	}

	logger := w.logger.With("app_id", request.AppID, "trigger", request.Trigger)
	logger.Info("processing run request")

	result, err := w.runner.Run(ctx, request.Graph, request.Context, request.Trigger)
	if err != nil {
		logger.Warn("run rejected", "error", err)

		runID := ""
		if request.Context != nil {
			runID = request.Context.RunID
		}

		if pubErr := w.bus.Publish(ctx, request.AppID, events.NewRunFailed(request.AppID, runID, err.Error())); pubErr != nil {
			logger.Error("failed to publish run failure", "error", pubErr)
		}

		return nil
	}

	if pubErr := w.bus.Publish(ctx, request.AppID, events.NewRunCompleted(request.AppID, result)); pubErr != nil {
		logger.Error("failed to publish run completion", "error", pubErr)
	}

	logger.Info("run request processed", "run_id", result.RunID, "success", result.Success)

	return nil
}
