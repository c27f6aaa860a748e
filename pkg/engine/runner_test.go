package engine

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appforge/flowcore/pkg/models"
	"github.com/appforge/flowcore/pkg/protocol"
	"github.com/appforge/flowcore/pkg/registry"
	"github.com/appforge/flowcore/pkg/runfail"
	"github.com/appforge/flowcore/pkg/security"
)

type stubBlock struct {
	id    string
	label string
	fn    func(run *models.ExecutionContext) *models.BlockResult
}

func (b *stubBlock) ID() string    { return b.id }
func (b *stubBlock) Label() string { return b.label }

func (b *stubBlock) Execute(_ context.Context, run *models.ExecutionContext) (*models.BlockResult, error) {
	return b.fn(run), nil
}

type stubFactory struct {
	label string
	fn    func(run *models.ExecutionContext) *models.BlockResult
}

func (f *stubFactory) Create(_ context.Context, nodeID string, _ map[string]any) (protocol.Block, error) {
	return &stubBlock{id: nodeID, label: f.label, fn: f.fn}, nil
}

func (f *stubFactory) ID() string             { return f.label }
func (f *stubFactory) Name() string           { return f.label }
func (f *stubFactory) Description() string    { return "" }
func (f *stubFactory) Schema() map[string]any { return map[string]any{"type": "object"} }

type harness struct {
	registry *registry.Registry
	order    *[]string
}

func newHarness() *harness {
	order := make([]string, 0)

	return &harness{
		registry: registry.NewRegistry(slog.Default()),
		order:    &order,
	}
}

// register wires a stub block label that records execution order.
func (h *harness) register(label string, fn func(run *models.ExecutionContext) *models.BlockResult) {
	h.registry.Register(&stubFactory{
		label: label,
		fn: func(run *models.ExecutionContext) *models.BlockResult {
			*h.order = append(*h.order, label)

			if fn == nil {
				return models.OK(nil)
			}

			return fn(run)
		},
	})
}

func (h *harness) runner(opts ...Option) *Runner {
	checker := &security.StaticAccessChecker{Allowed: map[string]string{"app-1": "user-1"}}

	return NewRunner(slog.Default(), h.registry, checker, opts...)
}

func node(id, category, label string) *models.Node {
	return &models.Node{
		ID:   id,
		Type: models.NodeTypeWorkflow,
		Data: models.NodeData{
			Category: models.Category(category),
			Label:    label,
		},
	}
}

func edge(id, source, target string, connector models.ConnectorType, sourceHandle string) *models.Edge {
	return &models.Edge{
		ID:           id,
		Source:       source,
		Target:       target,
		SourceHandle: sourceHandle,
		Data:         models.EdgeData{ConnectorType: connector},
	}
}

func newRun() *models.ExecutionContext {
	return models.NewExecutionContext("run-1", "app-1", "user-1")
}

func TestRun_LinearPath(t *testing.T) {
	h := newHarness()
	h.register("onClick", nil)
	h.register("step.a", func(run *models.ExecutionContext) *models.BlockResult {
		run.Custom["a"] = true

		return models.OK(nil)
	})
	h.register("step.b", func(run *models.ExecutionContext) *models.BlockResult {
		run.Custom["b"] = run.Custom["a"]

		return models.OK(nil)
	})

	graph := &models.Graph{
		Nodes: []*models.Node{
			node("t", "Triggers", "onClick"),
			node("a", "Actions", "step.a"),
			node("b", "Actions", "step.b"),
		},
		Edges: []*models.Edge{
			edge("e1", "t", "a", models.ConnectorNext, ""),
			edge("e2", "a", "b", models.ConnectorNext, ""),
		},
	}

	result, err := h.runner().Run(context.Background(), graph, newRun(), "onClick")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 3, result.Steps)
	assert.Equal(t, []string{"onClick", "step.a", "step.b"}, *h.order)
	assert.Equal(t, true, result.Context.Custom["b"], "context accumulates across steps")
}

func TestRun_RecordsStepOutputs(t *testing.T) {
	h := newHarness()
	h.register("onClick", nil)
	h.register("step.count", func(_ *models.ExecutionContext) *models.BlockResult {
		return models.OK(map[string]any{"count": 3})
	})
	h.register("step.reader", func(run *models.ExecutionContext) *models.BlockResult {
		value, _ := run.Lookup("steps.a.count")

		return models.OK(map[string]any{"seen": value})
	})

	graph := &models.Graph{
		Nodes: []*models.Node{
			node("t", "Triggers", "onClick"),
			node("a", "Actions", "step.count"),
			node("b", "Actions", "step.reader"),
		},
		Edges: []*models.Edge{
			edge("e1", "t", "a", models.ConnectorNext, ""),
			edge("e2", "a", "b", models.ConnectorNext, ""),
		},
	}

	result, err := h.runner().Run(context.Background(), graph, newRun(), "onClick")
	require.NoError(t, err)
	assert.True(t, result.Success)

	seen, ok := result.Context.Lookup("steps.b.seen")
	require.True(t, ok)
	assert.Equal(t, 3, seen, "earlier node output addressable under steps.<nodeID>")
}

func TestRun_ConditionRoutesByHandle(t *testing.T) {
	h := newHarness()
	h.register("onClick", nil)
	h.register("match", func(_ *models.ExecutionContext) *models.BlockResult {
		return models.OKWithHandle("yes", nil)
	})
	h.register("step.yes", nil)
	h.register("step.no", nil)

	graph := &models.Graph{
		Nodes: []*models.Node{
			node("t", "Triggers", "onClick"),
			node("m", "Conditions", "match"),
			node("y", "Actions", "step.yes"),
			node("n", "Actions", "step.no"),
		},
		Edges: []*models.Edge{
			edge("e1", "t", "m", models.ConnectorNext, ""),
			edge("e2", "m", "y", models.ConnectorYes, "yes"),
			edge("e3", "m", "n", models.ConnectorNo, "no"),
		},
	}

	result, err := h.runner().Run(context.Background(), graph, newRun(), "onClick")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, []string{"onClick", "match", "step.yes"}, *h.order)
}

func TestRun_FailurePrefersOnErrorEdge(t *testing.T) {
	h := newHarness()
	h.register("onClick", nil)
	h.register("step.flaky", func(_ *models.ExecutionContext) *models.BlockResult {
		return models.Fail(runfail.CodeExternalService, "upstream down")
	})
	h.register("step.recover", nil)

	graph := &models.Graph{
		Nodes: []*models.Node{
			node("t", "Triggers", "onClick"),
			node("f", "Actions", "step.flaky"),
			node("r", "Actions", "step.recover"),
		},
		Edges: []*models.Edge{
			edge("e1", "t", "f", models.ConnectorNext, ""),
			edge("e2", "f", "r", models.ConnectorOnError, ""),
		},
	}

	result, err := h.runner().Run(context.Background(), graph, newRun(), "onClick")
	require.NoError(t, err)
	assert.True(t, result.Success, "a recovered failure is not a failed run")
	assert.Empty(t, result.Halts)
	assert.Equal(t, []string{"onClick", "step.flaky", "step.recover"}, *h.order)
}

func TestRun_FailureWithoutOnErrorHaltsBranch(t *testing.T) {
	h := newHarness()
	h.register("onClick", nil)
	h.register("step.flaky", func(_ *models.ExecutionContext) *models.BlockResult {
		return models.Fail(runfail.CodeValidation, "bad input")
	})
	h.register("step.after", nil)

	graph := &models.Graph{
		Nodes: []*models.Node{
			node("t", "Triggers", "onClick"),
			node("f", "Actions", "step.flaky"),
			node("x", "Actions", "step.after"),
		},
		Edges: []*models.Edge{
			edge("e1", "t", "f", models.ConnectorNext, ""),
			edge("e2", "f", "x", models.ConnectorNext, ""),
		},
	}

	result, err := h.runner().Run(context.Background(), graph, newRun(), "onClick")
	require.NoError(t, err)
	assert.False(t, result.Success)
	require.Len(t, result.Halts, 1)
	assert.Equal(t, "f", result.Halts[0].NodeID)
	assert.Equal(t, runfail.CodeValidation, result.Halts[0].Code)
	assert.NotContains(t, *h.order, "step.after")
}

func TestRun_ForkRunsBranchesInEdgeOrderAndJoinWaits(t *testing.T) {
	h := newHarness()
	h.register("onClick", nil)
	h.register("step.b", nil)
	h.register("step.c", nil)
	h.register("step.join", nil)

	graph := &models.Graph{
		Nodes: []*models.Node{
			node("t", "Triggers", "onClick"),
			node("b", "Actions", "step.b"),
			node("c", "Actions", "step.c"),
			node("j", "Actions", "step.join"),
		},
		Edges: []*models.Edge{
			edge("e1", "t", "b", models.ConnectorFork, ""),
			edge("e2", "t", "c", models.ConnectorFork, ""),
			edge("e3", "b", "j", models.ConnectorJoin, ""),
			edge("e4", "c", "j", models.ConnectorJoin, ""),
		},
	}

	result, err := h.runner().Run(context.Background(), graph, newRun(), "onClick")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, []string{"onClick", "step.b", "step.c", "step.join"}, *h.order,
		"join executes once, after all incoming branches")
	assert.Equal(t, 4, result.Steps)
}

func TestRun_LoopBackBoundedByMaxSteps(t *testing.T) {
	h := newHarness()
	h.register("onClick", nil)
	h.register("step.loop", nil)

	graph := &models.Graph{
		Nodes: []*models.Node{
			node("t", "Triggers", "onClick"),
			node("l", "Actions", "step.loop"),
		},
		Edges: []*models.Edge{
			edge("e1", "t", "l", models.ConnectorNext, ""),
			edge("e2", "l", "l", models.ConnectorLoopBack, ""),
		},
	}

	result, err := h.runner(WithMaxSteps(6)).Run(context.Background(), graph, newRun(), "onClick")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 6, result.Steps)
	require.Len(t, result.Halts, 1)
	assert.Equal(t, runfail.CodeTimeout, result.Halts[0].Code)
}

func TestRun_DeadlineFailsAsTimeout(t *testing.T) {
	h := newHarness()
	h.register("onClick", nil)
	h.register("step.slow", func(_ *models.ExecutionContext) *models.BlockResult {
		time.Sleep(50 * time.Millisecond)

		return models.OK(nil)
	})
	h.register("step.after", nil)

	graph := &models.Graph{
		Nodes: []*models.Node{
			node("t", "Triggers", "onClick"),
			node("s", "Actions", "step.slow"),
			node("x", "Actions", "step.after"),
		},
		Edges: []*models.Edge{
			edge("e1", "t", "s", models.ConnectorNext, ""),
			edge("e2", "s", "x", models.ConnectorNext, ""),
		},
	}

	result, err := h.runner(WithRunTimeout(20 * time.Millisecond)).
		Run(context.Background(), graph, newRun(), "onClick")
	require.NoError(t, err)
	assert.False(t, result.Success)
	require.Len(t, result.Halts, 1)
	assert.Equal(t, runfail.CodeTimeout, result.Halts[0].Code)
	assert.NotContains(t, *h.order, "step.after")
}

func TestRun_AccessDenied(t *testing.T) {
	h := newHarness()
	h.register("onClick", nil)

	graph := &models.Graph{
		Nodes: []*models.Node{node("t", "Triggers", "onClick")},
	}

	run := models.NewExecutionContext("run-1", "app-1", "intruder")

	_, err := h.runner().Run(context.Background(), graph, run, "onClick")
	require.Error(t, err)
	assert.Equal(t, runfail.CodeAccessDenied, runfail.CodeOf(err))
	assert.Empty(t, *h.order, "no block executes without access")
}

func TestRun_NoMatchingTrigger(t *testing.T) {
	h := newHarness()
	h.register("onClick", nil)

	graph := &models.Graph{
		Nodes: []*models.Node{node("t", "Triggers", "onClick")},
	}

	_, err := h.runner().Run(context.Background(), graph, newRun(), "onSubmit")
	require.Error(t, err)
	assert.Equal(t, runfail.CodeValidation, runfail.CodeOf(err))
}

func TestRun_UnconnectedHandleEndsBranchQuietly(t *testing.T) {
	h := newHarness()
	h.register("onClick", nil)
	h.register("switch", func(_ *models.ExecutionContext) *models.BlockResult {
		return models.OKWithHandle("default", nil)
	})
	h.register("step.case", nil)

	graph := &models.Graph{
		Nodes: []*models.Node{
			node("t", "Triggers", "onClick"),
			node("s", "Conditions", "switch"),
			node("c", "Actions", "step.case"),
		},
		Edges: []*models.Edge{
			edge("e1", "t", "s", models.ConnectorNext, ""),
			edge("e2", "s", "c", models.ConnectorNext, "premium"),
		},
	}

	result, err := h.runner().Run(context.Background(), graph, newRun(), "onClick")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.NotContains(t, *h.order, "step.case")
}

func TestRun_DirectivesAccumulateAcrossBranches(t *testing.T) {
	h := newHarness()
	h.register("onClick", nil)
	h.register("step.toast", func(_ *models.ExecutionContext) *models.BlockResult {
		result := models.OK(nil)
		result.Directives = []models.Directive{{
			Kind:    models.DirectiveToast,
			Payload: map[string]any{"message": "hi"},
		}}

		return result
	})
	h.register("step.redirect", func(_ *models.ExecutionContext) *models.BlockResult {
		result := models.OK(nil)
		result.Directives = []models.Directive{{
			Kind:    models.DirectiveRedirect,
			Payload: map[string]any{"url": "/done"},
		}}

		return result
	})

	graph := &models.Graph{
		Nodes: []*models.Node{
			node("t", "Triggers", "onClick"),
			node("a", "Actions", "step.toast"),
			node("b", "Actions", "step.redirect"),
		},
		Edges: []*models.Edge{
			edge("e1", "t", "a", models.ConnectorNext, ""),
			edge("e2", "a", "b", models.ConnectorNext, ""),
		},
	}

	result, err := h.runner().Run(context.Background(), graph, newRun(), "onClick")
	require.NoError(t, err)
	require.Len(t, result.Directives, 2)
	assert.Equal(t, models.DirectiveToast, result.Directives[0].Kind)
	assert.Equal(t, models.DirectiveRedirect, result.Directives[1].Kind)
}

func TestRun_UnregisteredBlockHaltsBranch(t *testing.T) {
	h := newHarness()
	h.register("onClick", nil)

	graph := &models.Graph{
		Nodes: []*models.Node{
			node("t", "Triggers", "onClick"),
			node("u", "Actions", "step.unknown"),
		},
		Edges: []*models.Edge{
			edge("e1", "t", "u", models.ConnectorNext, ""),
		},
	}

	result, err := h.runner().Run(context.Background(), graph, newRun(), "onClick")
	require.NoError(t, err)
	assert.False(t, result.Success)
	require.Len(t, result.Halts, 1)
	assert.Equal(t, runfail.CodeInvalidConfig, result.Halts[0].Code)
}
