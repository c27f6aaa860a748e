// Package events defines the run lifecycle and record events carried
// on the job queue.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/appforge/flowcore/pkg/models"
)

type EventType string

// Topic carries every run event.
const Topic = "flowcore.runs"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	RunRequestedEvent  EventType = "run.requested"
	RunCompletedEvent  EventType = "run.completed"
	RunFailedEvent     EventType = "run.failed"
	RecordCreatedEvent EventType = "record.created"
)

type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	AppID     string    `json:"app_id"`
}

func newBaseEvent(eventType EventType, appID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		AppID:     appID,
	}
}

// RunRequested is the queued job for one out-of-band run. It carries
// the full graph and seeded context so the worker needs no editor
// round trip.
type RunRequested struct {
	BaseEvent

	UserID  string                   `json:"user_id"`
	Trigger string                   `json:"trigger"`
	Graph   *models.Graph            `json:"graph"`
	Context *models.ExecutionContext `json:"context"`
}

func NewRunRequested(appID, userID, trigger string, graph *models.Graph, execution *models.ExecutionContext) *RunRequested {
	return &RunRequested{
		BaseEvent: newBaseEvent(RunRequestedEvent, appID),
		UserID:    userID,
		Trigger:   trigger,
		Graph:     graph,
		Context:   execution,
	}
}

func (e RunRequested) GetType() EventType {
	return RunRequestedEvent
}

// RunCompleted reports a finished run, successful or partially failed.
type RunCompleted struct {
	BaseEvent

	RunID      string              `json:"run_id"`
	Success    bool                `json:"success"`
	Steps      int                 `json:"steps"`
	Directives []models.Directive  `json:"directives,omitempty"`
	Halts      []models.BranchHalt `json:"halts,omitempty"`
}

func NewRunCompleted(appID string, result *models.RunResult) *RunCompleted {
	return &RunCompleted{
		BaseEvent:  newBaseEvent(RunCompletedEvent, appID),
		RunID:      result.RunID,
		Success:    result.Success,
		Steps:      result.Steps,
		Directives: result.Directives,
		Halts:      result.Halts,
	}
}

func (e RunCompleted) GetType() EventType {
	return RunCompletedEvent
}

// RunFailed reports a run that never produced a result, for example a
// denied access check or a missing trigger.
type RunFailed struct {
	BaseEvent

	RunID  string `json:"run_id,omitempty"`
	Reason string `json:"reason"`
}

func NewRunFailed(appID, runID, reason string) *RunFailed {
	return &RunFailed{
		BaseEvent: newBaseEvent(RunFailedEvent, appID),
		RunID:     runID,
		Reason:    reason,
	}
}

func (e RunFailed) GetType() EventType {
	return RunFailedEvent
}

// RecordCreated announces a row insert into a user table. The dispatch
// layer matches it against onRecordCreate triggers.
type RecordCreated struct {
	BaseEvent

	TableName string         `json:"table_name"`
	RecordID  int64          `json:"record_id"`
	Record    map[string]any `json:"record,omitempty"`
}

func NewRecordCreated(appID, tableName string, recordID int64, record map[string]any) *RecordCreated {
	return &RecordCreated{
		BaseEvent: newBaseEvent(RecordCreatedEvent, appID),
		TableName: tableName,
		RecordID:  recordID,
		Record:    record,
	}
}

func (e RecordCreated) GetType() EventType {
	return RecordCreatedEvent
}
