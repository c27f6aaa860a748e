package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/appforge/flowcore/pkg/eventbus"
	"github.com/appforge/flowcore/pkg/events"
	"github.com/appforge/flowcore/pkg/models"
	"github.com/appforge/flowcore/pkg/template"
)

// Scheduler maps onSchedule triggers to cron entries that enqueue a
// run each time they fire.
type Scheduler struct {
	logger *slog.Logger
	bus    eventbus.EventPublisher
	cron   *cron.Cron
}

func NewScheduler(logger *slog.Logger, bus eventbus.EventPublisher) *Scheduler {
	return &Scheduler{
		logger: logger.With("module", "scheduler"),
		bus:    bus,
		cron:   cron.New(),
	}
}

// RegisterGraph adds a cron entry per onSchedule trigger in the graph
// and returns how many entries were added.
func (s *Scheduler) RegisterGraph(ctx context.Context, stored StoredGraph) (int, error) {
	added := 0

	for _, node := range stored.Graph.TriggerNodes(models.LabelOnSchedule) {
		spec, _ := node.Data.Config["cron"].(string)
		if spec == "" {
			return added, fmt.Errorf("schedule trigger %s has no cron expression", node.ID)
		}

		// Cron expressions are static config, there is no run context
		// to resolve a placeholder against at registration time.
		if template.HasPlaceholder(spec) {
			return added, fmt.Errorf("cron expression %q on trigger %s must not contain placeholders", spec, node.ID)
		}

		job := s.scheduleJob(ctx, stored, node.ID)

		if _, err := s.cron.AddFunc(spec, job); err != nil {
			return added, fmt.Errorf("invalid cron expression %q on trigger %s: %w", spec, node.ID, err)
		}

		added++
	}

	return added, nil
}

// scheduleJob builds the closure one cron entry runs on every tick.
func (s *Scheduler) scheduleJob(ctx context.Context, stored StoredGraph, nodeID string) func() {
	return func() {
		execution := models.NewExecutionContext(uuid.New().String(), stored.AppID, stored.OwnerID)
		execution.Set("trigger", "schedule_node", nodeID)

		request := events.NewRunRequested(stored.AppID, stored.OwnerID, models.LabelOnSchedule, stored.Graph, execution)

		if err := s.bus.Publish(ctx, stored.AppID, request); err != nil {
			s.logger.Error("failed to enqueue scheduled run",
				"app_id", stored.AppID, "workflow_id", stored.ID, "error", err)
		}
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
