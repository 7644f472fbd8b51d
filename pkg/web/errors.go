package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/you112ef/sim-sub002/pkg/executor"
	"github.com/you112ef/sim-sub002/pkg/serializer"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleCompileError maps compilation failures onto problem responses. Graph
// validation errors carry their code as the problem type so clients can act on
// dangling_edge, nested_container, circular_containment, unknown_parent or
// missing_required_value without parsing the detail text.
func handleCompileError(c fiber.Ctx, err error) error {
	var validationErr *serializer.ValidationError
	if errors.As(err, &validationErr) {
		problem := problems.NewStatusProblem(400).
			WithInstance(c.Path()).
			WithType(validationErr.Code).
			WithDetail(validationErr.Message)

		return c.Status(fiber.StatusBadRequest).JSON(problem)
	}

	return badRequest(c, err.Error())
}

// handleExecuteError maps pre-start executor refusals. Runtime failures never
// reach here; those come back as a structured ExecutionResult.
func handleExecuteError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, executor.ErrUsageExceeded):
		problem := problems.NewStatusProblem(429).
			WithInstance(c.Path()).
			WithType("usage_exceeded").
			WithDetail(err.Error())

		return c.Status(fiber.StatusTooManyRequests).JSON(problem)

	case errors.Is(err, executor.ErrPlanNotValidated):
		return badRequest(c, err.Error())

	default:
		return internalError(c, err)
	}
}
