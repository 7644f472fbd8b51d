// Package models defines the core domain models for block-based workflow execution.
package models

// Well-known block types. Container types are treated specially by the
// serializer and executor; everything else dispatches through the registry.
const (
	BlockTypeStarter   = "starter"
	BlockTypeLoop      = "loop"
	BlockTypeParallel  = "parallel"
	BlockTypeWhile     = "while"
	BlockTypeCondition = "condition"
	BlockTypeFunction  = "function"
	BlockTypeAPI       = "api"
	BlockTypeResponse  = "response"
	BlockTypeLog       = "log"
)

// Block represents a node in the workflow graph as authored by the user.
// Blocks are read immutably by the serializer and executor.
type Block struct {
	ID           string               `json:"id"   validate:"required"`
	Type         string               `json:"type" validate:"required"`
	Name         string               `json:"name" validate:"required,min=1"`
	Enabled      bool                 `json:"enabled"`
	AdvancedMode bool                 `json:"advanced_mode,omitempty"`
	TriggerMode  bool                 `json:"trigger_mode,omitempty"`
	SubBlocks    map[string]*SubBlock `json:"sub_blocks,omitempty"`
	Outputs      map[string]string    `json:"outputs,omitempty"` // output name -> type descriptor
	ParentID     string               `json:"parent_id,omitempty"`
	Extent       string               `json:"extent,omitempty"`
}

// SubBlock is a single named configuration field on a block. The value may be
// a scalar, array, nested object, or a string containing unresolved
// expression placeholders.
type SubBlock struct {
	ID        string             `json:"id"`
	Value     any                `json:"value,omitempty"`
	Required  bool               `json:"required,omitempty"`
	Default   any                `json:"default,omitempty"`
	Condition *SubBlockCondition `json:"condition,omitempty"`
}

// SubBlockCondition gates a sub-block's visibility on the value of a sibling
// sub-block. A hidden sub-block contributes no value to the serialized config.
type SubBlockCondition struct {
	Field string `json:"field"`
	Value any    `json:"value"`
	Not   bool   `json:"not,omitempty"`
}

// Met reports whether the condition is satisfied against the given sibling
// sub-block values.
func (c *SubBlockCondition) Met(values map[string]any) bool {
	if c == nil {
		return true
	}

	matched := false
	if got, ok := values[c.Field]; ok {
		matched = got == c.Value
	}

	if c.Not {
		return !matched
	}

	return matched
}

// IsContainer reports whether the block owns a nested subgraph of children.
func (b *Block) IsContainer() bool {
	switch b.Type {
	case BlockTypeLoop, BlockTypeParallel, BlockTypeWhile:
		return true
	default:
		return false
	}
}

// Edge is a directed connection between two blocks. Handles name the
// sub-port on either side; an empty source handle means the default
// success output.
type Edge struct {
	ID           string `json:"id"`
	Source       string `json:"source" validate:"required"`
	Target       string `json:"target" validate:"required"`
	SourceHandle string `json:"source_handle,omitempty"`
	TargetHandle string `json:"target_handle,omitempty"`
}

// Edge source handles with routing semantics. Container membership is
// expressed through ParentID, not handles.
const (
	HandleError          = "error"
	HandleConditionTrue  = "true"
	HandleConditionFalse = "false"
)
