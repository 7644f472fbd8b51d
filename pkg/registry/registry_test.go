package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/you112ef/sim-sub002/pkg/models"
)

func TestDefaultRegistry_BuiltinsRegistered(t *testing.T) {
	reg := NewDefaultRegistry(nil)

	for _, blockType := range []string{
		models.BlockTypeStarter,
		models.BlockTypeFunction,
		models.BlockTypeCondition,
		models.BlockTypeAPI,
		models.BlockTypeResponse,
		models.BlockTypeLog,
	} {
		assert.True(t, reg.IsRegistered(blockType), "expected %s to be registered", blockType)
	}
}

func TestCreateBlock_UnknownType(t *testing.T) {
	reg := NewDefaultRegistry(nil)

	_, err := reg.CreateBlock(context.Background(), "teleport", "b1", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not registered")
}

func TestCreateBlock_SchemaValidation(t *testing.T) {
	reg := NewDefaultRegistry(nil)

	_, err := reg.CreateBlock(context.Background(), models.BlockTypeAPI, "b1", map[string]any{
		"url":    "https://example.com",
		"method": "GET",
	})
	require.NoError(t, err)

	_, err = reg.CreateBlock(context.Background(), models.BlockTypeAPI, "b1", map[string]any{
		"method": "GET",
	})
	require.Error(t, err, "missing required url must fail schema validation")
}

func TestCreateBlock_BehaviorMetadata(t *testing.T) {
	reg := NewDefaultRegistry(nil)

	behavior, err := reg.CreateBlock(context.Background(), models.BlockTypeCondition, "cond-1", map[string]any{
		"condition": "true",
	})
	require.NoError(t, err)
	assert.Equal(t, "cond-1", behavior.ID())
	assert.Equal(t, models.BlockTypeCondition, behavior.Type())
}
