package web

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/you112ef/sim-sub002/pkg/executor"
	"github.com/you112ef/sim-sub002/pkg/models"
	"github.com/you112ef/sim-sub002/pkg/registry"
	"github.com/you112ef/sim-sub002/pkg/services"
	"github.com/you112ef/sim-sub002/pkg/workflow"
)

type APIHandlers struct {
	executor  *executor.Executor
	store     services.ExecutionStore
	validator *validator.Validate
	registry  *registry.Registry
	logger    *slog.Logger
}

func NewAPIHandlers(
	exec *executor.Executor,
	store services.ExecutionStore,
	validator *validator.Validate,
	registry *registry.Registry,
	logger *slog.Logger,
) *APIHandlers {
	return &APIHandlers{
		executor:  exec,
		store:     store,
		validator: validator,
		registry:  registry,
		logger:    logger,
	}
}

// ExecuteWorkflow compiles the inlined workflow document and runs it to
// completion. Runtime failures still return 200 with a structured result;
// only compilation problems and pre-start refusals map to error statuses.
func (h *APIHandlers) ExecuteWorkflow(c fiber.Ctx) error {
	var req ExecuteRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	if err := req.Workflow.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	plan, err := workflow.Compile(req.Workflow, workflow.CompileInput{
		Overrides: req.Overrides,
		Variables: req.Variables,
		Env:       req.Env,
	}, h.logger)
	if err != nil {
		return handleCompileError(c, err)
	}

	result, err := h.executor.Execute(c.Context(), plan, executor.RunInput{
		WorkflowID:   req.Workflow.ID,
		UserID:       req.UserID,
		Input:        req.Input,
		Variables:    req.Variables,
		Env:          req.Env,
		StartBlockID: req.StartBlockID,
	})
	if err != nil {
		return handleExecuteError(c, err)
	}

	h.saveResult(result)

	return c.Status(fiber.StatusCreated).JSON(result)
}

// ValidateWorkflow compiles a document without running it.
func (h *APIHandlers) ValidateWorkflow(c fiber.Ctx) error {
	var req ValidateRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	if err := req.Workflow.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	plan, err := workflow.Compile(req.Workflow, workflow.CompileInput{Overrides: req.Overrides}, h.logger)
	if err != nil {
		return handleCompileError(c, err)
	}

	return c.JSON(ValidateResponse{
		Valid:      plan.Validated,
		BlockCount: len(plan.Blocks),
		EdgeCount:  len(plan.Edges),
		Loops:      len(plan.Loops),
		Parallels:  len(plan.Parallels),
		Whiles:     len(plan.Whiles),
	})
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	result, err := h.store.Get(c.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrExecutionNotFound) {
			return notFound(c, "Execution not found")
		}

		return internalError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) ListBlockTypes(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"block_types": h.registry.AvailableBlockTypes(),
	})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}

// saveResult persists the run outcome for later retrieval. Store failures are
// logged, not surfaced: the caller already holds the result.
func (h *APIHandlers) saveResult(result *models.ExecutionResult) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := h.store.Save(ctx, result); err != nil {
		h.logger.Warn("Failed to persist execution result",
			"execution_id", result.ExecutionID, "error", err)
	}
}
