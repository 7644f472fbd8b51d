package executor

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/you112ef/sim-sub002/pkg/expression"
	"github.com/you112ef/sim-sub002/pkg/models"
	"github.com/you112ef/sim-sub002/pkg/otelhelper"
)

// subgraph is the schedulable slice of a plan: either the top level
// (parentID empty) or one container's direct children. Containers are members
// of their parent graph; their children never are, so the outer scheduler
// never sees inner blocks.
type subgraph struct {
	blocks   map[string]*models.SerializedBlock
	order    []string // member ids in plan order
	edges    []models.Edge
	incoming map[string][]int // block id -> edge indexes
	outgoing map[string][]int
}

func newSubgraph(plan *models.ExecutionPlan, parentID string) *subgraph {
	g := &subgraph{
		blocks:   make(map[string]*models.SerializedBlock),
		incoming: make(map[string][]int),
		outgoing: make(map[string][]int),
	}

	for _, block := range plan.Blocks {
		if block.ParentID != parentID {
			continue
		}

		g.blocks[block.ID] = block
		g.order = append(g.order, block.ID)
	}

	for _, edge := range plan.Edges {
		if _, ok := g.blocks[edge.Source]; !ok {
			continue
		}

		if _, ok := g.blocks[edge.Target]; !ok {
			continue
		}

		idx := len(g.edges)
		g.edges = append(g.edges, edge)
		g.incoming[edge.Target] = append(g.incoming[edge.Target], idx)
		g.outgoing[edge.Source] = append(g.outgoing[edge.Source], idx)
	}

	return g
}

type edgeState int

const (
	edgeUnresolved edgeState = iota
	edgeLive
	edgeDead
)

// blockDone is one unit's completion report, delivered to the scheduler loop.
type blockDone struct {
	id     string
	result *models.BlockResult
	span   *models.TraceSpan
	err    *models.ExecutionError
}

// graphOutcome accumulates one subgraph run.
type graphOutcome struct {
	spans          []*models.TraceSpan
	err            *models.ExecutionError
	lastOutput     any
	responseOutput any
	hasResponse    bool
}

// runGraph schedules one subgraph to completion. A block becomes eligible
// when all of its incoming edges are resolved and at least one is live;
// blocks whose every incoming edge resolved dead are skipped, and the skip
// propagates. maxWorkers bounds in-flight units: 1 gives strictly serial
// execution, len(order) gives full fan-out.
func (r *run) runGraph(ctx context.Context, g *subgraph, scope *expression.Scope, maxWorkers int, startBlockID string) *graphOutcome {
	outcome := &graphOutcome{}
	if len(g.order) == 0 {
		return outcome
	}

	if maxWorkers < 1 {
		maxWorkers = 1
	}

	if startBlockID != "" {
		if _, ok := g.blocks[startBlockID]; !ok {
			startBlockID = ""
		}
	}

	edgeStates := make([]edgeState, len(g.edges))
	started := make(map[string]bool, len(g.order))

	done := make(chan *blockDone, len(g.order))
	inflight := 0
	stopSpawning := false

	resolveOutgoing := func(id string, d *blockDone, errorHandled bool) {
		for _, idx := range g.outgoing[id] {
			if liveEdge(g.edges[idx], d, errorHandled) {
				edgeStates[idx] = edgeLive
			} else {
				edgeStates[idx] = edgeDead
			}
		}
	}

	markDead := func(id string) {
		for _, idx := range g.outgoing[id] {
			edgeStates[idx] = edgeDead
		}
	}

	skip := func(id string) {
		block := g.blocks[id]
		started[id] = true

		span := skippedSpan(block)
		outcome.spans = append(outcome.spans, span)
		r.logBlockEnd(ctx, block, span)

		markDead(id)
	}

	record := func(d *blockDone) {
		block := g.blocks[d.id]
		outcome.spans = append(outcome.spans, d.span)
		r.logBlockEnd(ctx, block, d.span)

		if d.err != nil {
			// A failure with a wired error handle is a routed outcome, not a
			// run failure.
			if hasLiveableErrorEdge(g, d.id) {
				errOutput := map[string]any{"error": d.err.Message}
				r.storeOutput(scope, d.id, errOutput)
				resolveOutgoing(d.id, d, true)

				return
			}

			// Containers report partial results alongside their failure;
			// keep them reachable in the final output.
			if d.result != nil && d.result.Output != nil {
				r.storeOutput(scope, d.id, d.result.Output)
				outcome.lastOutput = d.result.Output
			}

			if outcome.err == nil {
				outcome.err = d.err
			}

			stopSpawning = true
			markDead(d.id)

			if r.executor.options.SiblingPolicy == SiblingPolicyAbort {
				r.cancel()
			}

			return
		}

		var output any = map[string]any{}
		if d.result != nil && d.result.Output != nil {
			output = d.result.Output
		}

		r.storeOutput(scope, d.id, output)
		outcome.lastOutput = output

		if block.Type == models.BlockTypeResponse {
			outcome.responseOutput = output
			outcome.hasResponse = true
		}

		resolveOutgoing(d.id, d, false)
	}

	for {
		// Resolve skips and start every eligible block up to capacity.
		progress := true
		for progress {
			progress = false

			for _, id := range g.order {
				if started[id] {
					continue
				}

				// After an unhandled failure the run's fate is sealed: no new
				// units start and no skip spans are emitted for blocks that
				// never got a chance to run.
				if stopSpawning {
					continue
				}

				block := g.blocks[id]
				isRoot := len(g.incoming[id]) == 0

				if startBlockID != "" && isRoot && id != startBlockID {
					skip(id)

					progress = true

					continue
				}

				if id != startBlockID {
					resolved, live := edgeSummary(g, edgeStates, id)
					if resolved < len(g.incoming[id]) {
						continue
					}

					if live == 0 && !isRoot {
						skip(id)

						progress = true

						continue
					}
				}

				if !block.Enabled {
					skip(id)

					progress = true

					continue
				}

				if ctx.Err() != nil {
					continue
				}

				if inflight >= maxWorkers {
					continue
				}

				started[id] = true
				inflight++
				progress = true

				go func(b *models.SerializedBlock) {
					done <- r.executeUnit(ctx, b, scope)
				}(block)
			}
		}

		if inflight == 0 {
			break
		}

		d := <-done
		inflight--
		record(d)
	}

	return outcome
}

func edgeSummary(g *subgraph, states []edgeState, id string) (resolved, live int) {
	for _, idx := range g.incoming[id] {
		switch states[idx] {
		case edgeLive:
			resolved++
			live++
		case edgeDead:
			resolved++
		case edgeUnresolved:
		}
	}

	return resolved, live
}

// liveEdge decides whether an outgoing edge stays live given its source's
// outcome. Branching blocks select exactly one handle; everything else keeps
// all non-error handles live on success.
func liveEdge(edge models.Edge, d *blockDone, errorHandled bool) bool {
	if errorHandled {
		return edge.SourceHandle == models.HandleError
	}

	if d.result != nil && d.result.SelectedHandle != "" {
		return edge.SourceHandle == d.result.SelectedHandle
	}

	return edge.SourceHandle != models.HandleError
}

func hasLiveableErrorEdge(g *subgraph, id string) bool {
	for _, idx := range g.outgoing[id] {
		if g.edges[idx].SourceHandle == models.HandleError {
			return true
		}
	}

	return false
}

func (r *run) executeUnit(ctx context.Context, block *models.SerializedBlock, scope *expression.Scope) *blockDone {
	if block.IsContainer() {
		return r.executeContainer(ctx, block, scope)
	}

	return r.executeBlock(ctx, block, scope)
}

// executeBlock runs one regular block: final expression pass over its config
// (unresolved tags degrade to empty strings), behavior creation through the
// registry, then polymorphic dispatch.
func (r *run) executeBlock(ctx context.Context, block *models.SerializedBlock, scope *expression.Scope) *blockDone {
	span := newSpan(block)
	r.logBlockStart(ctx, block)

	var otelSpan traceSpanCloser = noopSpanCloser{}
	if r.executor.options.Tracer != nil {
		var s trace.Span

		ctx, s = otelhelper.StartSpan(ctx, r.executor.options.Tracer, "block.execute",
			attribute.String(otelhelper.ExecutionIDKey, r.executionID),
			attribute.String(otelhelper.WorkflowIDKey, r.workflowID),
			attribute.String(otelhelper.BlockIDKey, block.ID),
			attribute.String(otelhelper.BlockTypeKey, block.Type),
			attribute.String(otelhelper.BlockNameKey, block.Name),
		)
		otelSpan = otelSpanCloser{span: s}
	}

	result, err := r.invokeBehavior(ctx, block, scope)
	if err != nil {
		closeSpan(span, models.BlockStatusFailed, err.Error())
		otelSpan.end(err)

		return &blockDone{
			id:   block.ID,
			span: span,
			err: &models.ExecutionError{
				BlockID:   block.ID,
				BlockName: block.Name,
				Message:   err.Error(),
				Iteration: -1,
			},
		}
	}

	closeSpan(span, models.BlockStatusCompleted, "")
	otelSpan.end(nil)

	return &blockDone{id: block.ID, result: result, span: span}
}

func (r *run) invokeBehavior(ctx context.Context, block *models.SerializedBlock, scope *expression.Scope) (*models.BlockResult, error) {
	snapshot := r.snapshotScope(scope)

	config, _ := expression.ResolveValue(block.Config, snapshot).(map[string]any)
	if config == nil {
		config = map[string]any{}
	}

	behavior, err := r.executor.registry.CreateBlock(ctx, block.Type, block.ID, config)
	if err != nil {
		return nil, err
	}

	input := config
	if block.Type == models.BlockTypeStarter && r.input != nil {
		input = r.input
	}

	execCtx := &models.ExecutionContext{
		ExecutionID:  r.executionID,
		WorkflowID:   r.workflowID,
		Input:        input,
		Variables:    snapshot.Variables,
		Env:          snapshot.Env,
		BlockOutputs: snapshot.BlockOutputs,
		Logger:       r.logger.With("block_id", block.ID, "block_type", block.Type),
	}

	return behavior.Execute(ctx, execCtx)
}

// traceSpanCloser keeps executeBlock free of nil checks on the optional
// tracer.
type traceSpanCloser interface {
	end(err error)
}

type noopSpanCloser struct{}

func (noopSpanCloser) end(error) {}

type otelSpanCloser struct {
	span trace.Span
}

func (c otelSpanCloser) end(err error) {
	if err != nil {
		otelhelper.SetError(c.span, err)
	}

	c.span.End()
}

func (r *run) logBlockStart(ctx context.Context, block *models.SerializedBlock) {
	if err := r.executor.session.LogBlockStart(ctx, r.executionID, block.ID, block.Type); err != nil {
		r.logger.Warn("Logging session block start failed", "block_id", block.ID, "error", err)
	}
}

func (r *run) logBlockEnd(ctx context.Context, block *models.SerializedBlock, span *models.TraceSpan) {
	if err := r.executor.session.LogBlockEnd(ctx, r.executionID, block.ID, span); err != nil {
		r.logger.Warn("Logging session block end failed", "block_id", block.ID, "error", err)
	}
}
