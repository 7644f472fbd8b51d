package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/you112ef/sim-sub002/pkg/models"
)

func loopMeta(execCtx *models.ExecutionContext) (int, any) {
	meta, _ := execCtx.BlockOutputs["loop"].(map[string]any)
	index, _ := meta["index"].(int)

	return index, meta["currentItem"]
}

func containerResults(t *testing.T, output any) []any {
	t.Helper()

	m, ok := output.(map[string]any)
	require.True(t, ok, "expected map output, got %T", output)

	results, ok := m["results"].([]any)
	require.True(t, ok, "expected results array")

	return results
}

func TestExecute_ForLoopRunsConfiguredIterations(t *testing.T) {
	body := &stubFactory{typ: "body", fn: func(_ context.Context, execCtx *models.ExecutionContext) (*models.BlockResult, error) {
		index, _ := loopMeta(execCtx)

		return &models.BlockResult{Output: map[string]any{"index": index}}, nil
	}}

	e := testExecutor(testRegistry(t, body), Options{})

	plan := testPlan(
		[]*models.SerializedBlock{
			sblock("loop1", models.BlockTypeLoop, ""),
			sblock("child", "body", "loop1"),
		},
		nil,
	)
	plan.Loops["loop1"] = &models.Loop{
		ID:             "loop1",
		Nodes:          []string{"child"},
		Iterations:     3,
		LoopType:       models.LoopTypeFor,
		MaxConcurrency: 1,
	}

	result, err := e.Execute(context.Background(), plan, RunInput{})
	require.NoError(t, err)
	require.True(t, result.Success)

	results := containerResults(t, result.Output)
	require.Len(t, results, 3)

	for i, item := range results {
		out, ok := item.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, i, out["index"])
	}

	// One container span with one child span per iteration.
	require.Len(t, result.Spans, 1)
	assert.Equal(t, "loop1", result.Spans[0].BlockID)
	assert.Len(t, result.Spans[0].Children, 3)
}

func TestExecute_ForEachIndexStability(t *testing.T) {
	// Iteration duration is inversely correlated with index: later items
	// finish first, yet the results array stays in collection order.
	body := &stubFactory{typ: "body", fn: func(_ context.Context, execCtx *models.ExecutionContext) (*models.BlockResult, error) {
		index, item := loopMeta(execCtx)
		time.Sleep(time.Duration(3-index) * 20 * time.Millisecond)

		return &models.BlockResult{Output: map[string]any{"item": item}}, nil
	}}

	e := testExecutor(testRegistry(t, body), Options{})

	plan := testPlan(
		[]*models.SerializedBlock{
			sblock("loop1", models.BlockTypeLoop, ""),
			sblock("child", "body", "loop1"),
		},
		nil,
	)
	plan.Loops["loop1"] = &models.Loop{
		ID:             "loop1",
		Nodes:          []string{"child"},
		LoopType:       models.LoopTypeForEach,
		ForEachItems:   []any{"a", "b", "c"},
		MaxConcurrency: 3,
	}

	result, err := e.Execute(context.Background(), plan, RunInput{})
	require.NoError(t, err)
	require.True(t, result.Success)

	results := containerResults(t, result.Output)
	require.Len(t, results, 3)

	items := make([]any, 0, 3)
	for _, r := range results {
		items = append(items, r.(map[string]any)["item"])
	}

	assert.Equal(t, []any{"a", "b", "c"}, items)
}

// concurrencyProbe records the maximum number of simultaneously running
// behaviors.
type concurrencyProbe struct {
	mu      sync.Mutex
	current int
	peak    int
}

func (p *concurrencyProbe) enter() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current++
	if p.current > p.peak {
		p.peak = p.current
	}
}

func (p *concurrencyProbe) exit() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current--
}

func (p *concurrencyProbe) max() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.peak
}

func TestExecute_LoopConcurrencyCap(t *testing.T) {
	probe := &concurrencyProbe{}

	body := &stubFactory{typ: "body", fn: func(context.Context, *models.ExecutionContext) (*models.BlockResult, error) {
		probe.enter()
		defer probe.exit()
		time.Sleep(20 * time.Millisecond)

		return &models.BlockResult{}, nil
	}}

	e := testExecutor(testRegistry(t, body), Options{})

	plan := testPlan(
		[]*models.SerializedBlock{
			sblock("loop1", models.BlockTypeLoop, ""),
			sblock("child", "body", "loop1"),
		},
		nil,
	)
	plan.Loops["loop1"] = &models.Loop{
		ID:             "loop1",
		Nodes:          []string{"child"},
		Iterations:     6,
		LoopType:       models.LoopTypeFor,
		MaxConcurrency: 2,
	}

	result, err := e.Execute(context.Background(), plan, RunInput{})
	require.NoError(t, err)
	require.True(t, result.Success)

	assert.LessOrEqual(t, probe.max(), 2)
	assert.GreaterOrEqual(t, probe.max(), 1)
}

func TestExecute_ParallelConcurrencyCap(t *testing.T) {
	probe := &concurrencyProbe{}

	body := &stubFactory{typ: "body", fn: func(context.Context, *models.ExecutionContext) (*models.BlockResult, error) {
		probe.enter()
		defer probe.exit()
		time.Sleep(20 * time.Millisecond)

		return &models.BlockResult{}, nil
	}}

	e := testExecutor(testRegistry(t, body), Options{})

	plan := testPlan(
		[]*models.SerializedBlock{
			sblock("par1", models.BlockTypeParallel, ""),
			sblock("child", "body", "par1"),
		},
		nil,
	)
	plan.Parallels["par1"] = &models.Parallel{
		ID:             "par1",
		Nodes:          []string{"child"},
		Count:          6,
		ParallelType:   models.ParallelTypeCount,
		MaxConcurrency: 2,
	}

	result, err := e.Execute(context.Background(), plan, RunInput{})
	require.NoError(t, err)
	require.True(t, result.Success)

	assert.LessOrEqual(t, probe.max(), 2)
}

func TestExecute_FailFastLoop(t *testing.T) {
	body := &stubFactory{typ: "body", fn: func(_ context.Context, execCtx *models.ExecutionContext) (*models.BlockResult, error) {
		index, _ := loopMeta(execCtx)
		if index == 1 {
			return nil, errors.New("iteration blew up")
		}

		return &models.BlockResult{Output: map[string]any{"index": index}}, nil
	}}

	e := testExecutor(testRegistry(t, body), Options{})

	plan := testPlan(
		[]*models.SerializedBlock{
			sblock("loop1", models.BlockTypeLoop, ""),
			sblock("child", "body", "loop1"),
		},
		nil,
	)
	plan.Loops["loop1"] = &models.Loop{
		ID:             "loop1",
		Nodes:          []string{"child"},
		Iterations:     3,
		LoopType:       models.LoopTypeFor,
		MaxConcurrency: 1,
	}

	result, err := e.Execute(context.Background(), plan, RunInput{})
	require.NoError(t, err)

	assert.False(t, result.Success)
	require.NotNil(t, result.Error)
	assert.Equal(t, "child", result.Error.BlockID)
	assert.Equal(t, 1, result.Error.Iteration)
	assert.Contains(t, result.Error.Message, "iteration blew up")

	// Iteration 0 completed, 1 failed, 2 never started: partial results.
	results := containerResults(t, result.Output)
	assert.LessOrEqual(t, len(results), 2)
	require.NotEmpty(t, results)
	assert.Equal(t, 0, results[0].(map[string]any)["index"])
}

func TestExecute_ParallelCollectionBranchOrder(t *testing.T) {
	body := &stubFactory{typ: "body", fn: func(_ context.Context, execCtx *models.ExecutionContext) (*models.BlockResult, error) {
		meta, _ := execCtx.BlockOutputs["parallel"].(map[string]any)
		index, _ := meta["index"].(int)
		time.Sleep(time.Duration(2-index) * 15 * time.Millisecond)

		return &models.BlockResult{Output: map[string]any{"item": meta["currentItem"]}}, nil
	}}

	e := testExecutor(testRegistry(t, body), Options{})

	plan := testPlan(
		[]*models.SerializedBlock{
			sblock("par1", models.BlockTypeParallel, ""),
			sblock("child", "body", "par1"),
		},
		nil,
	)
	plan.Parallels["par1"] = &models.Parallel{
		ID:             "par1",
		Nodes:          []string{"child"},
		ParallelType:   models.ParallelTypeCollection,
		Distribution:   []any{"x", "y", "z"},
		MaxConcurrency: 3,
	}

	result, err := e.Execute(context.Background(), plan, RunInput{})
	require.NoError(t, err)
	require.True(t, result.Success)

	results := containerResults(t, result.Output)
	require.Len(t, results, 3)

	items := make([]any, 0, 3)
	for _, r := range results {
		items = append(items, r.(map[string]any)["item"])
	}

	assert.Equal(t, []any{"x", "y", "z"}, items)
}

func TestExecute_ZeroBranchParallelCompletesEmpty(t *testing.T) {
	body := echoFactory("body")
	after := echoFactory("after")

	e := testExecutor(testRegistry(t, body, after), Options{})

	plan := testPlan(
		[]*models.SerializedBlock{
			sblock("par1", models.BlockTypeParallel, ""),
			sblock("child", "body", "par1"),
			sblock("post", "after", ""),
		},
		[]models.Edge{{ID: "e1", Source: "par1", Target: "post"}},
	)
	plan.Parallels["par1"] = &models.Parallel{
		ID:             "par1",
		Nodes:          []string{"child"},
		ParallelType:   models.ParallelTypeCollection,
		Distribution:   "",
		MaxConcurrency: 10,
	}

	result, err := e.Execute(context.Background(), plan, RunInput{})
	require.NoError(t, err)
	require.True(t, result.Success)

	statuses := spanStatuses(result.Spans)
	assert.Equal(t, models.BlockStatusCompleted, statuses["par1"])
	assert.Equal(t, models.BlockStatusCompleted, statuses["post"])
}

func TestExecute_ForEachExpressionCollection(t *testing.T) {
	producer := &stubFactory{typ: "producer", fn: func(context.Context, *models.ExecutionContext) (*models.BlockResult, error) {
		return &models.BlockResult{Output: map[string]any{"items": []any{"p", "q"}}}, nil
	}}

	body := &stubFactory{typ: "body", fn: func(_ context.Context, execCtx *models.ExecutionContext) (*models.BlockResult, error) {
		_, item := loopMeta(execCtx)

		return &models.BlockResult{Output: map[string]any{"item": item}}, nil
	}}

	e := testExecutor(testRegistry(t, producer, body), Options{})

	plan := testPlan(
		[]*models.SerializedBlock{
			sblock("src", "producer", ""),
			sblock("loop1", models.BlockTypeLoop, ""),
			sblock("child", "body", "loop1"),
		},
		[]models.Edge{{ID: "e1", Source: "src", Target: "loop1"}},
	)
	plan.Loops["loop1"] = &models.Loop{
		ID:             "loop1",
		Nodes:          []string{"child"},
		LoopType:       models.LoopTypeForEach,
		ForEachItems:   "<src.items>",
		MaxConcurrency: 1,
	}

	result, err := e.Execute(context.Background(), plan, RunInput{})
	require.NoError(t, err)
	require.True(t, result.Success)

	results := containerResults(t, result.Output)
	require.Len(t, results, 2)
	assert.Equal(t, "p", results[0].(map[string]any)["item"])
	assert.Equal(t, "q", results[1].(map[string]any)["item"])
}

func TestExecute_WhileLoopRunsUntilConditionFalse(t *testing.T) {
	body := &stubFactory{typ: "body", fn: func(_ context.Context, execCtx *models.ExecutionContext) (*models.BlockResult, error) {
		meta, _ := execCtx.BlockOutputs["while"].(map[string]any)

		return &models.BlockResult{Output: map[string]any{"iteration": meta["index"]}}, nil
	}}

	e := testExecutor(testRegistry(t, body), Options{})

	plan := testPlan(
		[]*models.SerializedBlock{
			sblock("while1", models.BlockTypeWhile, ""),
			sblock("child", "body", "while1"),
		},
		nil,
	)
	plan.Whiles["while1"] = &models.While{
		ID:            "while1",
		Nodes:         []string{"child"},
		Condition:     "{{lt .blocks.while.index 3}}",
		WhileType:     "while",
		MaxIterations: 100,
	}

	result, err := e.Execute(context.Background(), plan, RunInput{})
	require.NoError(t, err)
	require.True(t, result.Success)

	results := containerResults(t, result.Output)
	assert.Len(t, results, 3)
}

func TestExecute_WhileLoopHonorsIterationCeiling(t *testing.T) {
	body := echoFactory("body")
	e := testExecutor(testRegistry(t, body), Options{})

	plan := testPlan(
		[]*models.SerializedBlock{
			sblock("while1", models.BlockTypeWhile, ""),
			sblock("child", "body", "while1"),
		},
		nil,
	)
	plan.Whiles["while1"] = &models.While{
		ID:            "while1",
		Nodes:         []string{"child"},
		Condition:     "true",
		WhileType:     "while",
		MaxIterations: 4,
	}

	result, err := e.Execute(context.Background(), plan, RunInput{})
	require.NoError(t, err)
	require.True(t, result.Success)

	results := containerResults(t, result.Output)
	assert.Len(t, results, 4)
}

func TestExecute_CancellationStopsSpawning(t *testing.T) {
	body := &stubFactory{typ: "body", fn: func(_ context.Context, execCtx *models.ExecutionContext) (*models.BlockResult, error) {
		index, _ := loopMeta(execCtx)
		time.Sleep(30 * time.Millisecond)

		return &models.BlockResult{Output: map[string]any{"index": index}}, nil
	}}

	e := testExecutor(testRegistry(t, body), Options{})

	plan := testPlan(
		[]*models.SerializedBlock{
			sblock("loop1", models.BlockTypeLoop, ""),
			sblock("child", "body", "loop1"),
		},
		nil,
	)
	plan.Loops["loop1"] = &models.Loop{
		ID:             "loop1",
		Nodes:          []string{"child"},
		Iterations:     10,
		LoopType:       models.LoopTypeFor,
		MaxConcurrency: 1,
	}

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	result, err := e.Execute(ctx, plan, RunInput{})
	require.NoError(t, err)

	assert.False(t, result.Success)
	require.NotNil(t, result.Error)
	assert.Contains(t, result.Error.Message, "cancelled")

	// Spawning stopped well before all ten iterations.
	results := containerResults(t, result.Output)
	assert.Less(t, len(results), 10)
}

func TestExecute_MissingContainerDescriptorFails(t *testing.T) {
	body := echoFactory("body")
	e := testExecutor(testRegistry(t, body), Options{})

	plan := testPlan(
		[]*models.SerializedBlock{
			sblock("loop1", models.BlockTypeLoop, ""),
			sblock("child", "body", "loop1"),
		},
		nil,
	)

	result, err := e.Execute(context.Background(), plan, RunInput{})
	require.NoError(t, err)

	assert.False(t, result.Success)
	require.NotNil(t, result.Error)
	assert.Equal(t, "loop1", result.Error.BlockID)
	assert.Contains(t, result.Error.Message, fmt.Sprintf("no container descriptor for block %s", "loop1"))
}
