package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/you112ef/sim-sub002/pkg/expression"
	"github.com/you112ef/sim-sub002/pkg/models"
	"github.com/you112ef/sim-sub002/pkg/template"
)

// executeContainer dispatches a container block to its runner. The container
// is the schedulable unit: its children are never scheduled by the outer
// graph.
func (r *run) executeContainer(ctx context.Context, block *models.SerializedBlock, scope *expression.Scope) *blockDone {
	switch block.Type {
	case models.BlockTypeLoop:
		if loop, ok := r.plan.Loops[block.ID]; ok && loop != nil {
			return r.runLoop(ctx, block, loop, scope)
		}
	case models.BlockTypeParallel:
		if parallel, ok := r.plan.Parallels[block.ID]; ok && parallel != nil {
			return r.runParallel(ctx, block, parallel, scope)
		}
	case models.BlockTypeWhile:
		if while, ok := r.plan.Whiles[block.ID]; ok && while != nil {
			return r.runWhile(ctx, block, while, scope)
		}
	}

	span := newSpan(block)
	msg := fmt.Sprintf("no container descriptor for block %s", block.ID)
	closeSpan(span, models.BlockStatusFailed, msg)

	return &blockDone{
		id:   block.ID,
		span: span,
		err: &models.ExecutionError{
			BlockID:   block.ID,
			BlockName: block.Name,
			Message:   msg,
			Iteration: -1,
		},
	}
}

func (r *run) runLoop(ctx context.Context, block *models.SerializedBlock, loop *models.Loop, scope *expression.Scope) *blockDone {
	var items []any

	count := loop.Iterations
	if loop.LoopType == models.LoopTypeForEach {
		// The collection may still be an expression string; re-resolve at
		// container entry against current upstream outputs.
		items = resolveItems(loop.ForEachItems, r.snapshotScope(scope))
		count = len(items)
	}

	if count < 0 {
		count = 0
	}

	return r.runFanOut(ctx, block, scope, fanOutSpec{
		scopeKey:    "loop",
		spanType:    "loop_iteration",
		count:       count,
		concurrency: loop.MaxConcurrency,
		items:       items,
	})
}

func (r *run) runParallel(ctx context.Context, block *models.SerializedBlock, parallel *models.Parallel, scope *expression.Scope) *blockDone {
	var items []any

	count := parallel.Count
	if parallel.ParallelType == models.ParallelTypeCollection {
		items = resolveItems(parallel.Distribution, r.snapshotScope(scope))
		count = len(items)
	}

	if count < 0 {
		count = 0
	}

	return r.runFanOut(ctx, block, scope, fanOutSpec{
		scopeKey:    "parallel",
		spanType:    "parallel_branch",
		count:       count,
		concurrency: parallel.MaxConcurrency,
		items:       items,
	})
}

type fanOutSpec struct {
	scopeKey    string // block-output key children read index/currentItem from
	spanType    string
	count       int
	concurrency int
	items       []any // nil for count/for kinds
}

// runFanOut executes the container's child subgraph once per iteration or
// branch, up to spec.concurrency units in flight, enforced by a counting
// semaphore. Results land in index-isolated slots so the output array is in
// index order regardless of completion order. A failing unit cancels the
// container context: no new units spawn, in-flight units finish on their own.
func (r *run) runFanOut(ctx context.Context, block *models.SerializedBlock, scope *expression.Scope, spec fanOutSpec) *blockDone {
	span := newSpan(block)
	r.logBlockStart(ctx, block)

	graph := newSubgraph(r.plan, block.ID)
	base := r.snapshotScope(scope)

	concurrency := spec.concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	containerCtx, cancelContainer := context.WithCancel(ctx)
	defer cancelContainer()

	sem := make(chan struct{}, concurrency)
	results := make([]any, spec.count)
	completed := make([]bool, spec.count)
	unitSpans := make([]*models.TraceSpan, spec.count)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		failure *models.ExecutionError
	)

spawn:
	for i := 0; i < spec.count; i++ {
		select {
		case <-containerCtx.Done():
			break spawn
		case sem <- struct{}{}:
		}

		wg.Add(1)

		go func(index int) {
			defer wg.Done()
			defer func() { <-sem }()

			unitScope := iterationScope(base, spec.scopeKey, index, spec.items)
			startedAt := time.Now().UTC()
			outcome := r.runGraph(containerCtx, graph, unitScope, 1, "")
			endedAt := time.Now().UTC()

			unitSpan := &models.TraceSpan{
				ID:        "span-" + uuid.New().String()[:8],
				BlockID:   block.ID,
				Name:      fmt.Sprintf("%s[%d]", block.Name, index),
				Type:      spec.spanType,
				Status:    models.BlockStatusCompleted,
				StartedAt: startedAt,
				EndedAt:   endedAt,
				Duration:  endedAt.Sub(startedAt),
				Children:  outcome.spans,
			}

			mu.Lock()
			defer mu.Unlock()

			unitSpans[index] = unitSpan

			if outcome.err != nil {
				unitSpan.Status = models.BlockStatusFailed
				unitSpan.Error = outcome.err.Message

				if failure == nil {
					failure = &models.ExecutionError{
						BlockID:   outcome.err.BlockID,
						BlockName: outcome.err.BlockName,
						Message:   outcome.err.Message,
						Iteration: index,
					}
				}

				cancelContainer()

				return
			}

			results[index] = outcome.lastOutput
			completed[index] = true
		}(i)
	}

	wg.Wait()

	// Index order survives out-of-order completion; failed or never-started
	// slots are dropped, not left as holes.
	final := make([]any, 0, spec.count)
	for i := range completed {
		if completed[i] {
			final = append(final, results[i])
		}
	}

	for _, unitSpan := range unitSpans {
		if unitSpan != nil {
			span.Children = append(span.Children, unitSpan)
		}
	}

	output := map[string]any{"results": final}

	if failure != nil {
		closeSpan(span, models.BlockStatusFailed, failure.Message)

		return &blockDone{
			id:     block.ID,
			span:   span,
			err:    failure,
			result: &models.BlockResult{Output: output},
		}
	}

	closeSpan(span, models.BlockStatusCompleted, "")

	return &blockDone{
		id:     block.ID,
		span:   span,
		result: &models.BlockResult{Output: output},
	}
}

// runWhile executes the child subgraph sequentially until the condition turns
// false or the iteration ceiling is hit. Unlike loop/parallel units, the
// child scope persists across iterations so the condition can observe the
// body's progress.
func (r *run) runWhile(ctx context.Context, block *models.SerializedBlock, while *models.While, scope *expression.Scope) *blockDone {
	span := newSpan(block)
	r.logBlockStart(ctx, block)

	graph := newSubgraph(r.plan, block.ID)
	child := r.snapshotScope(scope)

	maxIterations := while.MaxIterations
	if maxIterations <= 0 {
		maxIterations = models.DefaultWhileMaxIterations
	}

	doWhile := while.WhileType == "doWhile"

	results := make([]any, 0)

	var failure *models.ExecutionError

	for i := 0; i < maxIterations; i++ {
		if ctx.Err() != nil {
			break
		}

		child.BlockOutputs["while"] = map[string]any{"index": i}

		if !(doWhile && i == 0) {
			proceed, err := r.evaluateWhileCondition(while.Condition, child)
			if err != nil {
				failure = &models.ExecutionError{
					BlockID:   block.ID,
					BlockName: block.Name,
					Message:   err.Error(),
					Iteration: i,
				}

				break
			}

			if !proceed {
				break
			}
		}

		startedAt := time.Now().UTC()
		outcome := r.runGraph(ctx, graph, child, 1, "")
		endedAt := time.Now().UTC()

		unitSpan := &models.TraceSpan{
			ID:        "span-" + uuid.New().String()[:8],
			BlockID:   block.ID,
			Name:      fmt.Sprintf("%s[%d]", block.Name, i),
			Type:      "while_iteration",
			Status:    models.BlockStatusCompleted,
			StartedAt: startedAt,
			EndedAt:   endedAt,
			Duration:  endedAt.Sub(startedAt),
			Children:  outcome.spans,
		}
		span.Children = append(span.Children, unitSpan)

		if outcome.err != nil {
			unitSpan.Status = models.BlockStatusFailed
			unitSpan.Error = outcome.err.Message
			failure = &models.ExecutionError{
				BlockID:   outcome.err.BlockID,
				BlockName: outcome.err.BlockName,
				Message:   outcome.err.Message,
				Iteration: i,
			}

			break
		}

		results = append(results, outcome.lastOutput)
	}

	output := map[string]any{"results": results}

	if failure != nil {
		closeSpan(span, models.BlockStatusFailed, failure.Message)

		return &blockDone{
			id:     block.ID,
			span:   span,
			err:    failure,
			result: &models.BlockResult{Output: output},
		}
	}

	closeSpan(span, models.BlockStatusCompleted, "")

	return &blockDone{
		id:     block.ID,
		span:   span,
		result: &models.BlockResult{Output: output},
	}
}

func (r *run) evaluateWhileCondition(condition string, scope *expression.Scope) (bool, error) {
	if strings.TrimSpace(condition) == "" {
		return false, nil
	}

	resolved := expression.Resolve(condition, scope)

	execCtx := &models.ExecutionContext{
		ExecutionID:  r.executionID,
		WorkflowID:   r.workflowID,
		Variables:    scope.Variables,
		Env:          scope.Env,
		BlockOutputs: scope.BlockOutputs,
		Logger:       r.logger,
	}

	result, err := template.RenderWithContext(resolved, execCtx)
	if err != nil {
		return false, fmt.Errorf("while condition evaluation failed: %w", err)
	}

	return template.Truthy(result), nil
}

// iterationScope derives a per-unit scope: a copy of the upstream outputs
// plus the container's index/currentItem entry. Each unit owns its copy, so
// concurrent units never write into one another's slots.
func iterationScope(base *expression.Scope, key string, index int, items []any) *expression.Scope {
	outputs := make(map[string]any, len(base.BlockOutputs)+1)
	for k, v := range base.BlockOutputs {
		outputs[k] = v
	}

	meta := map[string]any{"index": index}
	if items != nil {
		meta["currentItem"] = items[index]
		meta["items"] = items
	}

	outputs[key] = meta

	return &expression.Scope{
		Variables:    base.Variables,
		Env:          base.Env,
		Aliases:      base.Aliases,
		BlockOutputs: outputs,
	}
}

// resolveItems turns a collection value into iteration items. Strings are
// re-resolved as expressions first; maps iterate as {key, value} entries in
// sorted key order; anything unresolvable yields zero items.
func resolveItems(raw any, scope *expression.Scope) []any {
	if s, ok := raw.(string); ok {
		if strings.TrimSpace(s) == "" {
			return nil
		}

		return collectionItems(expression.ResolveValue(s, scope))
	}

	return collectionItems(raw)
}

func collectionItems(value any) []any {
	switch v := value.(type) {
	case []any:
		return v
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}

		sort.Strings(keys)

		items := make([]any, 0, len(v))
		for _, k := range keys {
			items = append(items, map[string]any{"key": k, "value": v[k]})
		}

		return items
	case string:
		trimmed := strings.TrimSpace(v)
		if strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "{") {
			var parsed any
			if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil {
				return collectionItems(parsed)
			}
		}

		return nil
	default:
		return nil
	}
}
