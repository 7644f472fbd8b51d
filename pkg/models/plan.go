package models

// SerializedBlock is a block annotated with its fully resolved configuration.
// The executor reads only serialized blocks; it never goes back to raw block
// state.
type SerializedBlock struct {
	ID       string         `json:"id"   validate:"required"`
	Type     string         `json:"type" validate:"required"`
	Name     string         `json:"name"`
	Enabled  bool           `json:"enabled"`
	Config   map[string]any `json:"config,omitempty"`
	Outputs  map[string]string `json:"outputs,omitempty"`
	ParentID string         `json:"parent_id,omitempty"`
}

// IsContainer reports whether the serialized block is a loop/parallel/while
// container.
func (b *SerializedBlock) IsContainer() bool {
	switch b.Type {
	case BlockTypeLoop, BlockTypeParallel, BlockTypeWhile:
		return true
	default:
		return false
	}
}

// ExecutionPlan is the validated, flattened program produced by the
// serializer. It is read-only once produced: no component mutates it during
// execution, so concurrent runs may share a plan.
type ExecutionPlan struct {
	Version   string               `json:"version"`
	Blocks    []*SerializedBlock   `json:"blocks"`
	Edges     []Edge               `json:"edges"`
	Loops     map[string]*Loop     `json:"loops,omitempty"`
	Parallels map[string]*Parallel `json:"parallels,omitempty"`
	Whiles    map[string]*While    `json:"whiles,omitempty"`
	Validated bool                 `json:"validated"`
}

// Block returns the serialized block with the given id, or nil.
func (p *ExecutionPlan) Block(id string) *SerializedBlock {
	for _, b := range p.Blocks {
		if b.ID == id {
			return b
		}
	}

	return nil
}
