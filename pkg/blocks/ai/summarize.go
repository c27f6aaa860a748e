// Package ai provides the ai.summarize block backed by an external
// model provider.
package ai

import (
	"context"
	"errors"

	"github.com/appforge/flowcore/pkg/models"
	"github.com/appforge/flowcore/pkg/protocol"
	"github.com/appforge/flowcore/pkg/template"
)

// SummarizeBlock condenses a context-substituted text and stores the
// summary under a named context key.
type SummarizeBlock struct {
	id         string
	text       string
	maxWords   int
	resultKey  string
	summarizer protocol.Summarizer
}

func NewSummarizeBlock(id string, config map[string]any, summarizer protocol.Summarizer) (*SummarizeBlock, error) {
	text, ok := config["text"].(string)
	if !ok || text == "" {
		return nil, errors.New("missing required field 'text'")
	}

	maxWords := 0
	if words, ok := config["maxWords"].(float64); ok && words > 0 {
		maxWords = int(words)
	}

	resultKey, _ := config["resultKey"].(string)
	if resultKey == "" {
		resultKey = "summary"
	}

	return &SummarizeBlock{
		id:         id,
		text:       text,
		maxWords:   maxWords,
		resultKey:  resultKey,
		summarizer: summarizer,
	}, nil
}

func (b *SummarizeBlock) ID() string {
	return b.id
}

func (b *SummarizeBlock) Label() string {
	return models.LabelAISummarize
}

func (b *SummarizeBlock) Execute(ctx context.Context, run *models.ExecutionContext) (*models.BlockResult, error) {
	text := template.RenderString(b.text, run)

	summary, err := b.summarizer.Summarize(ctx, text, b.maxWords)
	if err != nil {
		return models.FailErr(err), nil
	}

	run.Set("custom", b.resultKey, summary)

	return models.OK(map[string]any{b.resultKey: summary}), nil
}
