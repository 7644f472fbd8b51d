package models

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const requiredTag = "required"

func TestBlock_Validation_ValidBlock(t *testing.T) {
	block := &Block{
		ID:      "block-1",
		Type:    BlockTypeFunction,
		Name:    "Compute total",
		Enabled: true,
		SubBlocks: map[string]*SubBlock{
			"code": {ID: "code", Value: "return 1"},
		},
	}

	validate := validator.New()
	err := validate.Struct(block)
	assert.NoError(t, err)
}

func TestBlock_Validation_MissingID(t *testing.T) {
	block := &Block{
		Type: BlockTypeFunction,
		Name: "Compute total",
	}

	validate := validator.New()
	err := validate.Struct(block)
	require.Error(t, err)

	var validationErrors validator.ValidationErrors
	require.True(t, errors.As(err, &validationErrors))

	found := false

	for _, fieldErr := range validationErrors {
		if fieldErr.Field() == "ID" && fieldErr.Tag() == requiredTag {
			found = true

			break
		}
	}

	assert.True(t, found, "should have validation error for required ID field")
}

func TestBlock_IsContainer(t *testing.T) {
	assert.True(t, (&Block{Type: BlockTypeLoop}).IsContainer())
	assert.True(t, (&Block{Type: BlockTypeParallel}).IsContainer())
	assert.True(t, (&Block{Type: BlockTypeWhile}).IsContainer())
	assert.False(t, (&Block{Type: BlockTypeFunction}).IsContainer())
	assert.False(t, (&Block{Type: BlockTypeStarter}).IsContainer())
}

func TestSubBlockCondition_Met(t *testing.T) {
	values := map[string]any{"operation": "fixed"}

	assert.True(t, (&SubBlockCondition{Field: "operation", Value: "fixed"}).Met(values))
	assert.False(t, (&SubBlockCondition{Field: "operation", Value: "collection"}).Met(values))
	assert.True(t, (&SubBlockCondition{Field: "operation", Value: "collection", Not: true}).Met(values))
	assert.False(t, (&SubBlockCondition{Field: "missing", Value: "fixed"}).Met(values))

	var nilCond *SubBlockCondition

	assert.True(t, nilCond.Met(values), "nil condition never hides a sub-block")
}

func TestExecutionPlan_Block(t *testing.T) {
	plan := &ExecutionPlan{
		Blocks: []*SerializedBlock{
			{ID: "a", Type: BlockTypeStarter},
			{ID: "b", Type: BlockTypeFunction},
		},
	}

	require.NotNil(t, plan.Block("b"))
	assert.Equal(t, BlockTypeFunction, plan.Block("b").Type)
	assert.Nil(t, plan.Block("missing"))
}
