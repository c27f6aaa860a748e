package control

import (
	"context"
	"errors"

	"github.com/appforge/flowcore/pkg/expr"
	"github.com/appforge/flowcore/pkg/models"
	"github.com/appforge/flowcore/pkg/security"
)

// ExprBlock evaluates a restricted expression and stores the result
// under a named context key. Evaluation is rate limited per user.
type ExprBlock struct {
	id         string
	expression string
	resultKey  string
	evaluator  *expr.Evaluator
	limiter    security.RateLimiter
}

func NewExprBlock(id string, config map[string]any, evaluator *expr.Evaluator, limiter security.RateLimiter) (*ExprBlock, error) {
	expression, ok := config["expression"].(string)
	if !ok {
		return nil, errors.New("missing required field 'expression'")
	}

	resultKey, _ := config["resultKey"].(string)
	if resultKey == "" {
		resultKey = "result"
	}

	return &ExprBlock{
		id:         id,
		expression: expression,
		resultKey:  resultKey,
		evaluator:  evaluator,
		limiter:    limiter,
	}, nil
}

func (b *ExprBlock) ID() string {
	return b.id
}

func (b *ExprBlock) Label() string {
	return models.LabelExpr
}

func (b *ExprBlock) Execute(ctx context.Context, run *models.ExecutionContext) (*models.BlockResult, error) {
	if err := b.limiter.Allow(ctx, run.UserID, security.ActionExprEval); err != nil {
		return models.FailErr(err), nil
	}

	value, err := b.evaluator.Evaluate(b.expression, run)
	if err != nil {
		return models.FailErr(err), nil
	}

	run.Set("custom", b.resultKey, value)

	return models.OK(map[string]any{b.resultKey: value}), nil
}
