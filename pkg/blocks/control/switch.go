// Package control provides the branching blocks: switch, match and expr.
package control

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/appforge/flowcore/pkg/models"
	"github.com/appforge/flowcore/pkg/runfail"
	"github.com/appforge/flowcore/pkg/template"
)

// HandleDefault is the fall-through branch of a switch block.
const HandleDefault = "default"

// SwitchCase is one branch of a switch block.
type SwitchCase struct {
	CaseValue string `json:"caseValue"`
	CaseLabel string `json:"caseLabel"`
}

// SwitchBlock routes execution by case-insensitive string equality
// after context substitution. First match wins.
type SwitchBlock struct {
	id          string
	input       string
	cases       []SwitchCase
	defaultCase bool
}

func NewSwitchBlock(id string, config map[string]any) (*SwitchBlock, error) {
	input, ok := config["inputValue"].(string)
	if !ok {
		return nil, errors.New("missing required field 'inputValue'")
	}

	block := &SwitchBlock{id: id, input: input}

	if cases, ok := config["cases"].([]any); ok {
		for i, caseAny := range cases {
			caseMap, ok := caseAny.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("case %d must be an object", i)
			}

			value, ok := caseMap["caseValue"].(string)
			if !ok {
				return nil, fmt.Errorf("case %d missing 'caseValue'", i)
			}

			label, _ := caseMap["caseLabel"].(string)
			if label == "" {
				label = value
			}

			block.cases = append(block.cases, SwitchCase{CaseValue: value, CaseLabel: label})
		}
	}

	if defaultCase, ok := config["defaultCase"].(bool); ok {
		block.defaultCase = defaultCase
	}

	return block, nil
}

func (b *SwitchBlock) ID() string {
	return b.id
}

func (b *SwitchBlock) Label() string {
	return models.LabelSwitch
}

// Execute resolves the input value and selects the first matching case
// label as the output handle, falling back to "default" when enabled.
func (b *SwitchBlock) Execute(_ context.Context, run *models.ExecutionContext) (*models.BlockResult, error) {
	input := strings.TrimSpace(template.RenderString(b.input, run))

	for _, c := range b.cases {
		caseValue := strings.TrimSpace(template.RenderString(c.CaseValue, run))
		if strings.EqualFold(input, caseValue) {
			return models.OKWithHandle(c.CaseLabel, map[string]any{
				"matched":      true,
				"matchedCase":  c.CaseValue,
				"inputValue":   input,
				"outputHandle": c.CaseLabel,
			}), nil
		}
	}

	if b.defaultCase {
		return models.OKWithHandle(HandleDefault, map[string]any{
			"matched":      false,
			"inputValue":   input,
			"outputHandle": HandleDefault,
		}), nil
	}

	return models.Fail(runfail.CodeValidation,
		fmt.Sprintf("no case matched %q and no default case configured", input)), nil
}
