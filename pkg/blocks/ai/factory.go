package ai

import (
	"context"

	"github.com/appforge/flowcore/pkg/models"
	"github.com/appforge/flowcore/pkg/protocol"
)

// Factory creates ai.summarize blocks sharing one provider client.
type Factory struct {
	summarizer protocol.Summarizer
}

func NewFactory(summarizer protocol.Summarizer) protocol.BlockFactory {
	return &Factory{summarizer: summarizer}
}

func (f *Factory) Create(_ context.Context, nodeID string, config map[string]any) (protocol.Block, error) {
	return NewSummarizeBlock(nodeID, config, f.summarizer)
}

func (f *Factory) ID() string   { return models.LabelAISummarize }
func (f *Factory) Name() string { return "Summarize" }

func (f *Factory) Description() string {
	return "Condenses a text through the configured model provider."
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"text":     map[string]any{"type": "string"},
			"maxWords": map[string]any{"type": "number"},
			"resultKey": map[string]any{
				"type":        "string",
				"description": "Context key under custom receiving the summary, defaults to 'summary'.",
			},
		},
		"required": []any{"text"},
	}
}
