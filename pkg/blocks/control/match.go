package control

import (
	"context"
	"errors"

	"github.com/appforge/flowcore/pkg/compare"
	"github.com/appforge/flowcore/pkg/models"
	"github.com/appforge/flowcore/pkg/template"
)

// Output handles of condition-style blocks.
const (
	HandleYes = "yes"
	HandleNo  = "no"
)

// MatchBlock evaluates one typed comparison and routes yes/no.
type MatchBlock struct {
	id       string
	left     string
	right    string
	kind     compare.Kind
	operator string
	opts     compare.Options
}

func NewMatchBlock(id string, config map[string]any) (*MatchBlock, error) {
	operator, ok := config["operator"].(string)
	if !ok {
		return nil, errors.New("missing required field 'operator'")
	}

	kind, ok := config["comparisonType"].(string)
	if !ok {
		return nil, errors.New("missing required field 'comparisonType'")
	}

	left, _ := config["left"].(string)
	right, _ := config["right"].(string)

	block := &MatchBlock{
		id:       id,
		left:     left,
		right:    right,
		kind:     compare.Kind(kind),
		operator: operator,
	}

	if options, ok := config["options"].(map[string]any); ok {
		if ignoreCase, ok := options["ignoreCase"].(bool); ok {
			block.opts.IgnoreCase = ignoreCase
		}

		if trimSpaces, ok := options["trimSpaces"].(bool); ok {
			block.opts.TrimSpaces = trimSpaces
		}
	}

	return block, nil
}

func (b *MatchBlock) ID() string {
	return b.id
}

func (b *MatchBlock) Label() string {
	return models.LabelMatch
}

// Execute substitutes both operands, dispatches to the typed comparator
// and selects the yes/no handle. Comparator failures become a failed
// result, never an error across the handler boundary.
func (b *MatchBlock) Execute(_ context.Context, run *models.ExecutionContext) (*models.BlockResult, error) {
	left := template.Render(b.left, run)
	right := template.Render(b.right, run)

	matched, err := compare.Compare(b.kind, b.operator, left, right, b.opts)
	if err != nil {
		return models.FailErr(err), nil
	}

	handle := HandleNo
	if matched {
		handle = HandleYes
	}

	return models.OKWithHandle(handle, map[string]any{
		"matched": matched,
		"left":    left,
		"right":   right,
	}), nil
}
