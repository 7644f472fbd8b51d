package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/you112ef/sim-sub002/pkg/models"
	"github.com/you112ef/sim-sub002/pkg/services"
)

func TestMemoryExecutionStore_RoundTrip(t *testing.T) {
	store := services.NewMemoryExecutionStore()

	require.NoError(t, store.Save(t.Context(), &models.ExecutionResult{
		ExecutionID: "exec-1",
		Success:     true,
		Output:      map[string]any{"message": "done"},
	}))

	result, err := store.Get(t.Context(), "exec-1")
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestMemoryExecutionStore_NotFound(t *testing.T) {
	store := services.NewMemoryExecutionStore()

	_, err := store.Get(t.Context(), "missing")
	require.ErrorIs(t, err, services.ErrExecutionNotFound)
}

func TestProcessEnvironment_DecryptsFromProcessEnv(t *testing.T) {
	t.Setenv("SIMFLOW_TEST_TOKEN", "secret")

	env := &services.ProcessEnvironment{}

	values, err := env.GetDecryptedEnvironmentVariables(t.Context(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "secret", values["SIMFLOW_TEST_TOKEN"])
}
