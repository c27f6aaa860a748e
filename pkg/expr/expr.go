// Package expr provides the restricted expression evaluator backing the
// expr block. Expressions get arithmetic, string and comparison
// operations over the run context, nothing else: no macros, no
// comprehensions, no environment escape.
package expr

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/appforge/flowcore/pkg/models"
	"github.com/appforge/flowcore/pkg/runfail"
)

// Evaluator compiles and runs context-scoped expressions.
type Evaluator struct {
	env *cel.Env
}

// NewEvaluator builds the evaluation environment. Each context
// namespace is exposed as a dyn map variable.
func NewEvaluator() (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("trigger", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("form", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("auth", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("http", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("db", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("steps", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("custom", cel.MapType(cel.StringType, cel.DynType)),
		cel.ClearMacros(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build expression environment: %w", err)
	}

	return &Evaluator{env: env}, nil
}

// Evaluate compiles and evaluates expression against the run context.
// Compilation failures classify as VALIDATION_ERROR so the orchestrator
// can route them to an onError edge.
func (e *Evaluator) Evaluate(expression string, executionCtx *models.ExecutionContext) (any, error) {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, runfail.Wrap(runfail.CodeValidation, fmt.Errorf("invalid expression %q: %w", expression, issues.Err()))
	}

	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, runfail.Wrap(runfail.CodeValidation, fmt.Errorf("failed to plan expression %q: %w", expression, err))
	}

	out, _, err := prg.Eval(map[string]any{
		"trigger": nonNil(executionCtx.Trigger),
		"form":    nonNil(executionCtx.Form),
		"auth":    nonNil(executionCtx.Auth),
		"http":    nonNil(executionCtx.HTTP),
		"db":      nonNil(executionCtx.DB),
		"steps":   nonNil(executionCtx.Steps),
		"custom":  nonNil(executionCtx.Custom),
	})
	if err != nil {
		return nil, runfail.Wrap(runfail.CodeValidation, fmt.Errorf("expression %q failed: %w", expression, err))
	}

	return out.Value(), nil
}

func nonNil(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}

	return m
}
