// Package engine walks an automation graph from its trigger nodes,
// dispatches each node to its block handler and folds the results into
// one run outcome.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/appforge/flowcore/pkg/models"
	"github.com/appforge/flowcore/pkg/otelhelper"
	"github.com/appforge/flowcore/pkg/registry"
	"github.com/appforge/flowcore/pkg/runfail"
	"github.com/appforge/flowcore/pkg/security"
)

const (
	// DefaultMaxSteps bounds loopBack traversal per run.
	DefaultMaxSteps = 10000
	// DefaultRunTimeout bounds one end-to-end run.
	DefaultRunTimeout = 60 * time.Second
)

// Runner executes graphs. One Runner serves many concurrent runs, all
// per-run state lives on the stack of Run.
type Runner struct {
	logger     *slog.Logger
	registry   *registry.Registry
	access     security.AccessChecker
	tracer     trace.Tracer
	maxSteps   int
	runTimeout time.Duration
}

type Option func(*Runner)

func WithMaxSteps(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.maxSteps = n
		}
	}
}

func WithRunTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.runTimeout = d
		}
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(r *Runner) {
		r.tracer = tracer
	}
}

func NewRunner(logger *slog.Logger, reg *registry.Registry, access security.AccessChecker, opts ...Option) *Runner {
	runner := &Runner{
		logger:     logger.With("module", "engine"),
		registry:   reg,
		access:     access,
		tracer:     otel.Tracer("flowcore/engine"),
		maxSteps:   DefaultMaxSteps,
		runTimeout: DefaultRunTimeout,
	}

	for _, opt := range opts {
		opt(runner)
	}

	return runner
}

// state is the per-run mutable bookkeeping of one traversal.
type state struct {
	graph       *models.Graph
	run         *models.ExecutionContext
	directives  []models.Directive
	halts       []models.BranchHalt
	steps       int
	joinArrived map[string]int
}

// Run validates access once, then walks the graph from the trigger
// nodes matching triggerLabel. The caller seeds the initial context
// with the event payload. A branch failure without an onError edge
// stops that branch only, the run finishes partially failed.
func (r *Runner) Run(ctx context.Context, graph *models.Graph, initial *models.ExecutionContext, triggerLabel string) (*models.RunResult, error) {
	if initial == nil {
		return nil, runfail.New(runfail.CodeValidation, "run requires an initial context")
	}

	if initial.RunID == "" {
		initial.RunID = uuid.New().String()
	}

	// A context that crossed the job queue, or one built sparsely by a
	// caller, may carry nil namespace maps.
	initial.EnsureMaps()

	if err := r.access.ValidateAppAccess(ctx, initial.AppID, initial.UserID); err != nil {
		return nil, err
	}

	triggers := graph.TriggerNodes(triggerLabel)
	if len(triggers) == 0 {
		return nil, runfail.New(runfail.CodeValidation,
			fmt.Sprintf("graph has no %q trigger", triggerLabel))
	}

	ctx, cancel := context.WithTimeout(ctx, r.runTimeout)
	defer cancel()

	logger := r.logger.With("run_id", initial.RunID, "app_id", initial.AppID, "trigger", triggerLabel)
	logger.Info("run starting")

	st := &state{
		graph:       graph,
		run:         initial,
		directives:  make([]models.Directive, 0),
		halts:       make([]models.BranchHalt, 0),
		joinArrived: make(map[string]int),
	}

	started := time.Now()

	for _, node := range triggers {
		r.walk(ctx, st, node)
	}

	result := &models.RunResult{
		RunID:      initial.RunID,
		Success:    len(st.halts) == 0,
		Context:    initial,
		Directives: st.directives,
		Halts:      st.halts,
		Warnings:   models.ValidateGraph(graph),
		Steps:      st.steps,
		StartedAt:  started,
		FinishedAt: time.Now(),
	}

	logger.Info("run finished",
		"success", result.Success, "steps", result.Steps, "halts", len(result.Halts))

	return result, nil
}

// walk executes one branch starting at node and recurses into each
// selected successor in edge declaration order, which keeps fork
// merges deterministic.
func (r *Runner) walk(ctx context.Context, st *state, node *models.Node) {
	if st.steps >= r.maxSteps {
		st.halts = append(st.halts, models.BranchHalt{
			NodeID: node.ID,
			Code:   runfail.CodeTimeout,
			Reason: fmt.Sprintf("run exceeded %d steps", r.maxSteps),
		})

		return
	}

	if ctx.Err() != nil {
		st.halts = append(st.halts, models.BranchHalt{
			NodeID: node.ID,
			Code:   runfail.CodeTimeout,
			Reason: "run deadline exceeded",
		})

		return
	}

	st.steps++

	result := r.executeNode(ctx, st, node)

	if len(result.Output) > 0 {
		st.run.Set("steps", node.ID, result.Output)
	}

	st.directives = append(st.directives, result.Directives...)

	edges := st.graph.OutgoingEdges(node.ID)

	var selected []*models.Edge

	if result.Success {
		selected = r.successTargets(st, edges, result.Handle)
	} else {
		selected = r.errorTargets(st, edges)
		if selected == nil {
			st.halts = append(st.halts, models.BranchHalt{
				NodeID: node.ID,
				Code:   result.FailCode,
				Reason: result.FailReason,
			})

			return
		}
	}

	for _, edge := range selected {
		if target := r.resolveTarget(st, edge); target != nil {
			r.walk(ctx, st, target)
		}
	}
}

// resolveTarget maps an edge to the node to execute next, holding at
// join nodes until every incoming join branch has arrived.
func (r *Runner) resolveTarget(st *state, edge *models.Edge) *models.Node {
	target, ok := st.graph.NodeByID(edge.Target)
	if !ok {
		return nil
	}

	joinCount := 0

	for _, incoming := range st.graph.IncomingEdges(target.ID) {
		if incoming.Connector() == models.ConnectorJoin {
			joinCount++
		}
	}

	if joinCount > 1 && edge.Connector() == models.ConnectorJoin {
		st.joinArrived[target.ID]++

		if st.joinArrived[target.ID] < joinCount {
			return nil
		}

		st.joinArrived[target.ID] = 0
	}

	return target
}

// executeNode builds the node's block and runs it inside a span. Both
// construction and execution failures come back as failed results, the
// traversal itself never errors on a bad node.
func (r *Runner) executeNode(ctx context.Context, st *state, node *models.Node) *models.BlockResult {
	ctx, span := r.tracer.Start(ctx, "block.execute", trace.WithAttributes(
		attribute.String("node.id", node.ID),
		attribute.String("node.label", node.Data.Label),
		attribute.String("run.id", st.run.RunID),
	))
	defer span.End()

	block, err := r.registry.CreateBlock(ctx, node.Data.Label, node.ID, node.Data.Config)
	if err != nil {
		r.logger.Warn("block construction failed",
			"node_id", node.ID, "label", node.Data.Label, "error", err)

		return models.Fail(runfail.CodeInvalidConfig, err.Error())
	}

	result, err := block.Execute(ctx, st.run)
	if err != nil {
		r.logger.Warn("block returned an unexpected error",
			"node_id", node.ID, "label", node.Data.Label, "error", err)
		otelhelper.SetError(span, err, attribute.String(otelhelper.NodeIDKey, node.ID))

		return models.FailErr(err)
	}

	if result == nil {
		return models.Fail(runfail.CodeValidation, "block returned no result")
	}

	if !result.Success {
		span.SetAttributes(attribute.String("block.fail_code", string(result.FailCode)))
	}

	return result
}

// errorTargets returns the onError edges, or nil when the branch must
// halt.
func (r *Runner) errorTargets(_ *state, edges []*models.Edge) []*models.Edge {
	selected := make([]*models.Edge, 0, 1)

	for _, edge := range edges {
		if edge.Connector() == models.ConnectorOnError || edge.SourceHandle == string(models.ConnectorOnError) {
			selected = append(selected, edge)
		}
	}

	if len(selected) == 0 {
		return nil
	}

	return selected
}

// successTargets selects the outgoing edges after a successful block.
// A handler-chosen handle matches edges by sourceHandle or connector
// label; otherwise every default-path edge (next, fork, join,
// loopBack) is followed in declaration order.
func (r *Runner) successTargets(_ *state, edges []*models.Edge, handle string) []*models.Edge {
	selected := make([]*models.Edge, 0, len(edges))

	if handle != "" {
		for _, edge := range edges {
			if edge.SourceHandle == handle || string(edge.Connector()) == handle {
				selected = append(selected, edge)
			}
		}

		return selected
	}

	for _, edge := range edges {
		switch edge.Connector() {
		case models.ConnectorNext, models.ConnectorFork, models.ConnectorJoin, models.ConnectorLoopBack:
			if edge.SourceHandle == "" || edge.SourceHandle == string(models.ConnectorNext) {
				selected = append(selected, edge)
			}
		}
	}

	return selected
}
