package web_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/you112ef/sim-sub002/pkg/executor"
	"github.com/you112ef/sim-sub002/pkg/models"
	"github.com/you112ef/sim-sub002/pkg/registry"
	"github.com/you112ef/sim-sub002/pkg/services"
	"github.com/you112ef/sim-sub002/pkg/web"
	"github.com/you112ef/sim-sub002/pkg/workflow"
)

func setupTestApp(t *testing.T) (*fiber.App, services.ExecutionStore) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := services.NewMemoryExecutionStore()
	exec := executor.New(registry.NewDefaultRegistry(logger), nil, nil, nil, logger, executor.Options{})
	handlers := web.NewAPIHandlers(exec, store, validator.New(validator.WithRequiredStructEnabled()), registry.NewDefaultRegistry(logger), logger)

	app := fiber.New()
	app.Get("/health", handlers.HealthCheck)
	app.Get("/blocks", handlers.ListBlockTypes)
	app.Post("/executions", handlers.ExecuteWorkflow)
	app.Get("/executions/:id", handlers.GetExecution)
	app.Post("/workflows/validate", handlers.ValidateWorkflow)

	return app, store
}

func testDocument() *workflow.Document {
	return &workflow.Document{
		Name: "greeting",
		Blocks: []*models.Block{
			{ID: "start", Type: models.BlockTypeStarter, Name: "Start", Enabled: true},
			{ID: "reply", Type: models.BlockTypeResponse, Name: "Reply", Enabled: true,
				SubBlocks: map[string]*models.SubBlock{
					"message": {ID: "message", Value: "hello"},
				}},
		},
		Edges: []models.Edge{
			{ID: "e1", Source: "start", Target: "reply"},
		},
	}
}

func postJSON(t *testing.T, app *fiber.App, path string, body any) *http.Response {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	return resp
}

func TestExecuteWorkflow_RunsAndReturnsResult(t *testing.T) {
	app, _ := setupTestApp(t)

	resp := postJSON(t, app, "/executions", web.ExecuteRequest{Workflow: testDocument()})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result models.ExecutionResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))

	assert.True(t, result.Success)
	assert.NotEmpty(t, result.ExecutionID)

	output, ok := result.Output.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "hello", output["message"])
}

func TestExecuteWorkflow_RejectsMissingWorkflow(t *testing.T) {
	app, _ := setupTestApp(t)

	resp := postJSON(t, app, "/executions", web.ExecuteRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestExecuteWorkflow_DanglingEdgeReturnsProblem(t *testing.T) {
	app, _ := setupTestApp(t)

	doc := testDocument()
	doc.Edges = append(doc.Edges, models.Edge{ID: "e2", Source: "reply", Target: "ghost"})

	resp := postJSON(t, app, "/executions", web.ExecuteRequest{Workflow: doc})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var problem map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&problem))
	assert.Equal(t, "dangling_edge", problem["type"])
}

func TestGetExecution(t *testing.T) {
	app, store := setupTestApp(t)

	require.NoError(t, store.Save(t.Context(), &models.ExecutionResult{
		ExecutionID: "exec-cafe0001",
		Success:     true,
	}))

	req, err := http.NewRequest(http.MethodGet, "/executions/exec-cafe0001", nil)
	require.NoError(t, err)

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result models.ExecutionResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.True(t, result.Success)
}

func TestGetExecution_NotFound(t *testing.T) {
	app, _ := setupTestApp(t)

	req, err := http.NewRequest(http.MethodGet, "/executions/missing", nil)
	require.NoError(t, err)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestValidateWorkflow(t *testing.T) {
	app, _ := setupTestApp(t)

	resp := postJSON(t, app, "/workflows/validate", web.ValidateRequest{Workflow: testDocument()})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body web.ValidateResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	assert.True(t, body.Valid)
	assert.Equal(t, 2, body.BlockCount)
	assert.Equal(t, 1, body.EdgeCount)
}

func TestListBlockTypes(t *testing.T) {
	app, _ := setupTestApp(t)

	req, err := http.NewRequest(http.MethodGet, "/blocks", nil)
	require.NoError(t, err)

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		BlockTypes []string `json:"block_types"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body.BlockTypes, models.BlockTypeStarter)
	assert.Contains(t, body.BlockTypes, models.BlockTypeResponse)
}
