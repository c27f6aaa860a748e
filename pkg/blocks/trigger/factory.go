package trigger

import (
	"context"

	"github.com/appforge/flowcore/pkg/models"
	"github.com/appforge/flowcore/pkg/protocol"
)

// Factory creates trigger blocks for one label. All trigger labels
// share the block implementation and differ only in metadata.
type Factory struct {
	label       string
	name        string
	description string
	schema      map[string]any
}

func (f *Factory) Create(_ context.Context, nodeID string, config map[string]any) (protocol.Block, error) {
	return NewBlock(nodeID, f.label, config), nil
}

func (f *Factory) ID() string          { return f.label }
func (f *Factory) Name() string        { return f.name }
func (f *Factory) Description() string { return f.description }

func (f *Factory) Schema() map[string]any {
	if f.schema != nil {
		return f.schema
	}

	return map[string]any{"type": "object", "properties": map[string]any{}}
}

func NewOnPageLoadFactory() protocol.BlockFactory {
	return &Factory{
		label:       models.LabelOnPageLoad,
		name:        "On Page Load",
		description: "Starts the run when a page finishes loading.",
	}
}

func NewOnClickFactory() protocol.BlockFactory {
	return &Factory{
		label:       models.LabelOnClick,
		name:        "On Click",
		description: "Starts the run when the bound element is clicked.",
	}
}

func NewOnSubmitFactory() protocol.BlockFactory {
	return &Factory{
		label:       models.LabelOnSubmit,
		name:        "On Submit",
		description: "Starts the run when the bound form is submitted. Field values arrive under form.*.",
	}
}

func NewOnWebhookFactory() protocol.BlockFactory {
	return &Factory{
		label:       models.LabelOnWebhook,
		name:        "On Webhook",
		description: "Starts the run when the hook endpoint receives a request. The body arrives under trigger.payload.",
		schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"secret": map[string]any{
					"type":        "string",
					"description": "Optional HMAC-SHA256 secret checked against the X-Hook-Signature header.",
				},
			},
		},
	}
}

func NewOnRecordCreateFactory() protocol.BlockFactory {
	return &Factory{
		label:       models.LabelOnRecordCreate,
		name:        "On Record Create",
		description: "Starts the run when a row is inserted into the watched table. The row arrives under trigger.record.",
		schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"tableName": map[string]any{"type": "string"},
			},
			"required": []any{"tableName"},
		},
	}
}

func NewOnScheduleFactory() protocol.BlockFactory {
	return &Factory{
		label:       models.LabelOnSchedule,
		name:        "On Schedule",
		description: "Starts the run on a cron schedule.",
		schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"cron": map[string]any{
					"type":        "string",
					"description": "Standard five-field cron expression.",
				},
			},
			"required": []any{"cron"},
		},
	}
}
