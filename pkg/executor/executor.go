// Package executor runs validated execution plans: it walks the dependency
// graph, expands loop/parallel/while containers into repeated or concurrent
// sub-executions under per-container concurrency caps, and produces an
// ExecutionResult with trace spans.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/you112ef/sim-sub002/pkg/expression"
	"github.com/you112ef/sim-sub002/pkg/models"
	"github.com/you112ef/sim-sub002/pkg/registry"
	"github.com/you112ef/sim-sub002/pkg/services"
)

// SiblingPolicy controls what happens to concurrently running top-level
// branches when one of them fails.
type SiblingPolicy string

const (
	// SiblingPolicyDrain lets already-running siblings finish; no new blocks
	// start. This is the default.
	SiblingPolicyDrain SiblingPolicy = "drain"
	// SiblingPolicyAbort cancels the run context so siblings stop at their
	// next suspension point.
	SiblingPolicyAbort SiblingPolicy = "abort"
)

var (
	// ErrPlanNotValidated is returned when Execute is called with a plan that
	// was not produced by serialize with validation enabled. This is a
	// programming-contract violation, not a runtime failure.
	ErrPlanNotValidated = errors.New("execution plan has not been validated")

	// ErrUsageExceeded is returned when the billing collaborator refuses the
	// run before it starts.
	ErrUsageExceeded = errors.New("usage limit exceeded")
)

// Options tune per-executor behavior.
type Options struct {
	SiblingPolicy SiblingPolicy
	// Tracer, when set, emits OpenTelemetry spans alongside the result's own
	// TraceSpan records.
	Tracer trace.Tracer
}

// RunInput carries everything one top-level run needs beyond the plan.
type RunInput struct {
	WorkflowID   string
	UserID       string
	Input        map[string]any
	Variables    map[string]any
	Env          map[string]string // overlaid on the decrypted environment
	StartBlockID string
}

// Executor executes plans. It is stateless between runs and safe for
// concurrent use; all per-run mutable state lives in the run struct.
type Executor struct {
	registry    *registry.Registry
	environment services.EnvironmentService
	usage       services.UsageService
	session     services.LoggingSession
	logger      *slog.Logger
	options     Options
}

func New(
	reg *registry.Registry,
	environment services.EnvironmentService,
	usage services.UsageService,
	session services.LoggingSession,
	logger *slog.Logger,
	options Options,
) *Executor {
	if logger == nil {
		logger = slog.Default()
	}

	if environment == nil {
		environment = &services.StaticEnvironment{}
	}

	if usage == nil {
		usage = &services.UnlimitedUsage{}
	}

	if session == nil {
		session = services.NoopLoggingSession{}
	}

	if options.SiblingPolicy == "" {
		options.SiblingPolicy = SiblingPolicyDrain
	}

	return &Executor{
		registry:    reg,
		environment: environment,
		usage:       usage,
		session:     session,
		logger:      logger.With("module", "executor"),
		options:     options,
	}
}

// Execute runs the plan to completion and returns a structured result. The
// caller always gets an ExecutionResult for runtime failures; only pre-start
// refusals (unvalidated plan, usage exceeded, environment decryption failure)
// surface as plain errors.
func (e *Executor) Execute(ctx context.Context, plan *models.ExecutionPlan, in RunInput) (*models.ExecutionResult, error) {
	if plan == nil || !plan.Validated {
		return nil, ErrPlanNotValidated
	}

	status, err := e.usage.CheckUsageLimits(ctx, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("usage check failed: %w", err)
	}

	if status.Exceeded {
		return nil, fmt.Errorf("%w: %s", ErrUsageExceeded, status.Message)
	}

	// Decryption failure is load-bearing: abort before any block runs.
	env, err := e.environment.GetDecryptedEnvironmentVariables(ctx, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	merged := make(map[string]string, len(env)+len(in.Env))
	for k, v := range env {
		merged[k] = v
	}

	for k, v := range in.Env {
		merged[k] = v
	}

	executionID := "exec-" + uuid.New().String()[:8]
	logger := e.logger.With("workflow_id", in.WorkflowID, "execution_id", executionID)

	scope := expression.NewScope()
	scope.Env = merged

	if in.Variables != nil {
		scope.Variables = in.Variables
	}

	for _, block := range plan.Blocks {
		if block.Name != "" {
			scope.AddAlias(block.Name, block.ID)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	r := &run{
		executor:    e,
		plan:        plan,
		executionID: executionID,
		workflowID:  in.WorkflowID,
		input:       in.Input,
		logger:      logger,
		cancel:      cancel,
	}

	startedAt := time.Now().UTC()

	if err := e.session.Start(ctx, in.WorkflowID, executionID, in.Input); err != nil {
		logger.Warn("Logging session start failed", "error", err)
	}

	if err := e.session.SetupExecutor(ctx, executionID, len(plan.Blocks)); err != nil {
		logger.Warn("Logging session setup failed", "error", err)
	}

	graph := newSubgraph(plan, "")
	outcome := r.runGraph(runCtx, graph, scope, len(graph.order), in.StartBlockID)

	endedAt := time.Now().UTC()

	execErr := outcome.err
	if execErr == nil && ctx.Err() != nil {
		execErr = &models.ExecutionError{Message: "execution cancelled", Iteration: -1}
	}

	// A caller-side cancellation is its own outcome, distinct from a block
	// failure; the abort sibling policy cancels only the run context, so it
	// does not trip this.
	cancelled := execErr != nil && ctx.Err() != nil

	output := outcome.lastOutput
	if outcome.hasResponse {
		output = outcome.responseOutput
	}

	result := &models.ExecutionResult{
		ExecutionID: executionID,
		WorkflowID:  in.WorkflowID,
		Success:     execErr == nil,
		Cancelled:   cancelled,
		Output:      output,
		Error:       execErr,
		Spans:       outcome.spans,
		StartedAt:   startedAt,
		EndedAt:     endedAt,
		Duration:    endedAt.Sub(startedAt),
	}

	// Session completion must never mask the execution result.
	finishCtx := context.WithoutCancel(ctx)
	if result.Success {
		if err := e.session.Complete(finishCtx, result); err != nil {
			logger.Warn("Logging session completion failed", "error", err)
		}
	} else {
		if err := e.session.CompleteWithError(finishCtx, result); err != nil {
			logger.Warn("Logging session completion failed", "error", err)
		}
	}

	return result, nil
}

// run owns all per-execution mutable state. Concurrent branches write block
// outputs and spans under mu; scope snapshots are taken under the same lock
// so a behavior never observes a half-written output map.
type run struct {
	executor    *Executor
	plan        *models.ExecutionPlan
	executionID string
	workflowID  string
	input       map[string]any
	logger      *slog.Logger
	cancel      context.CancelFunc

	mu sync.Mutex
}

func (r *run) snapshotScope(scope *expression.Scope) *expression.Scope {
	r.mu.Lock()
	defer r.mu.Unlock()

	outputs := make(map[string]any, len(scope.BlockOutputs))
	for k, v := range scope.BlockOutputs {
		outputs[k] = v
	}

	return &expression.Scope{
		Variables:    scope.Variables,
		Env:          scope.Env,
		Aliases:      scope.Aliases,
		BlockOutputs: outputs,
	}
}

func (r *run) storeOutput(scope *expression.Scope, blockID string, output any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	scope.BlockOutputs[blockID] = output
}

func newSpan(block *models.SerializedBlock) *models.TraceSpan {
	return &models.TraceSpan{
		ID:        "span-" + uuid.New().String()[:8],
		BlockID:   block.ID,
		Name:      block.Name,
		Type:      block.Type,
		Status:    models.BlockStatusRunning,
		StartedAt: time.Now().UTC(),
	}
}

func closeSpan(span *models.TraceSpan, status models.BlockStatus, errMsg string) {
	span.EndedAt = time.Now().UTC()
	span.Duration = span.EndedAt.Sub(span.StartedAt)
	span.Status = status
	span.Error = errMsg
}

func skippedSpan(block *models.SerializedBlock) *models.TraceSpan {
	now := time.Now().UTC()

	return &models.TraceSpan{
		ID:        "span-" + uuid.New().String()[:8],
		BlockID:   block.ID,
		Name:      block.Name,
		Type:      block.Type,
		Status:    models.BlockStatusSkipped,
		StartedAt: now,
		EndedAt:   now,
	}
}
