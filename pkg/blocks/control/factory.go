package control

import (
	"context"

	"github.com/appforge/flowcore/pkg/expr"
	"github.com/appforge/flowcore/pkg/models"
	"github.com/appforge/flowcore/pkg/protocol"
	"github.com/appforge/flowcore/pkg/security"
)

// SwitchFactory creates SwitchBlock instances.
type SwitchFactory struct{}

func NewSwitchFactory() protocol.BlockFactory { return &SwitchFactory{} }

func (f *SwitchFactory) Create(_ context.Context, nodeID string, config map[string]any) (protocol.Block, error) {
	return NewSwitchBlock(nodeID, config)
}

func (f *SwitchFactory) ID() string   { return models.LabelSwitch }
func (f *SwitchFactory) Name() string { return "Switch" }

func (f *SwitchFactory) Description() string {
	return "Routes execution to the first case whose value matches the input, case-insensitively."
}

func (f *SwitchFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"inputValue": map[string]any{
				"type":        "string",
				"description": "Value to match, supports {{path}} substitution.",
			},
			"cases": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"caseValue": map[string]any{"type": "string"},
						"caseLabel": map[string]any{"type": "string"},
					},
					"required": []any{"caseValue"},
				},
			},
			"defaultCase": map[string]any{
				"type":        "boolean",
				"description": "Take the 'default' branch when no case matches.",
			},
		},
		"required": []any{"inputValue"},
	}
}

// MatchFactory creates MatchBlock instances.
type MatchFactory struct{}

func NewMatchFactory() protocol.BlockFactory { return &MatchFactory{} }

func (f *MatchFactory) Create(_ context.Context, nodeID string, config map[string]any) (protocol.Block, error) {
	return NewMatchBlock(nodeID, config)
}

func (f *MatchFactory) ID() string   { return models.LabelMatch }
func (f *MatchFactory) Name() string { return "Match" }

func (f *MatchFactory) Description() string {
	return "Compares two values with a typed operator (text, number, date or list) and routes yes/no."
}

func (f *MatchFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"left":  map[string]any{"type": "string"},
			"right": map[string]any{"type": "string"},
			"comparisonType": map[string]any{
				"type": "string",
				"enum": []any{"text", "number", "date", "list"},
			},
			"operator": map[string]any{"type": "string"},
			"options": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"ignoreCase": map[string]any{"type": "boolean"},
					"trimSpaces": map[string]any{"type": "boolean"},
				},
			},
		},
		"required": []any{"comparisonType", "operator"},
	}
}

// ExprFactory creates ExprBlock instances with shared evaluator and
// limiter.
type ExprFactory struct {
	evaluator *expr.Evaluator
	limiter   security.RateLimiter
}

func NewExprFactory(evaluator *expr.Evaluator, limiter security.RateLimiter) protocol.BlockFactory {
	return &ExprFactory{evaluator: evaluator, limiter: limiter}
}

func (f *ExprFactory) Create(_ context.Context, nodeID string, config map[string]any) (protocol.Block, error) {
	return NewExprBlock(nodeID, config, f.evaluator, f.limiter)
}

func (f *ExprFactory) ID() string   { return models.LabelExpr }
func (f *ExprFactory) Name() string { return "Expression" }

func (f *ExprFactory) Description() string {
	return "Evaluates a restricted arithmetic/string expression over the run context."
}

func (f *ExprFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"expression": map[string]any{"type": "string"},
			"resultKey": map[string]any{
				"type":        "string",
				"description": "Context key under custom receiving the result, defaults to 'result'.",
			},
		},
		"required": []any{"expression"},
	}
}
