// Package dispatch turns external events into queued runs: record
// inserts match onRecordCreate triggers, cron entries fire onSchedule
// triggers.
package dispatch

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/appforge/flowcore/pkg/eventbus"
	"github.com/appforge/flowcore/pkg/events"
	"github.com/appforge/flowcore/pkg/models"
)

// StoredGraph is one published workflow of an app.
type StoredGraph struct {
	ID      string
	AppID   string
	OwnerID string
	Graph   *models.Graph
}

// GraphSource lists the published workflows the dispatcher matches
// against. Backed by the editor's store.
type GraphSource interface {
	GraphsForApp(ctx context.Context, appID string) ([]StoredGraph, error)
}

// Dispatcher matches record events to onRecordCreate triggers and
// enqueues one run per matching workflow.
type Dispatcher struct {
	logger *slog.Logger
	source GraphSource
	bus    eventbus.EventPublisher
}

func NewDispatcher(logger *slog.Logger, source GraphSource, bus eventbus.EventPublisher) *Dispatcher {
	return &Dispatcher{
		logger: logger.With("module", "dispatch"),
		source: source,
		bus:    bus,
	}
}

// HandleRecordCreated enqueues a RunRequested job for every workflow
// whose onRecordCreate trigger watches the inserted table. The run is
// attributed to the workflow owner, not the inserting user.
func (d *Dispatcher) HandleRecordCreated(ctx context.Context, event *events.RecordCreated) error {
	graphs, err := d.source.GraphsForApp(ctx, event.AppID)
	if err != nil {
		return err
	}

	for _, stored := range graphs {
		if !MatchesRecordTrigger(stored.Graph, event.TableName) {
			continue
		}

		execution := models.NewExecutionContext(uuid.New().String(), event.AppID, stored.OwnerID)
		execution.Set("trigger", "record", event.Record)
		execution.Set("trigger", "record_id", event.RecordID)
		execution.Set("trigger", "table", event.TableName)

		request := events.NewRunRequested(event.AppID, stored.OwnerID, models.LabelOnRecordCreate, stored.Graph, execution)

		if err := d.bus.Publish(ctx, event.AppID, request); err != nil {
			return err
		}

		d.logger.Info("run enqueued",
			"app_id", event.AppID, "workflow_id", stored.ID, "table", event.TableName)
	}

	return nil
}

// MatchesRecordTrigger reports whether a graph has an onRecordCreate
// trigger watching tableName. A trigger with no table filter matches
// every table.
func MatchesRecordTrigger(graph *models.Graph, tableName string) bool {
	if graph == nil {
		return false
	}

	for _, node := range graph.TriggerNodes(models.LabelOnRecordCreate) {
		watched, _ := node.Data.Config["tableName"].(string)
		if watched == "" || watched == tableName {
			return true
		}
	}

	return false
}
