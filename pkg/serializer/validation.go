package serializer

import (
	"fmt"
	"sort"
)

// Validation error codes.
const (
	CodeDanglingEdge         = "dangling_edge"
	CodeNestedContainer      = "nested_container"
	CodeCircularContainment  = "circular_containment"
	CodeCircularDependency   = "circular_dependency"
	CodeUnknownParent        = "unknown_parent"
	CodeMissingRequiredValue = "missing_required_value"
)

// ValidationError reports a structural problem in the graph. It is always
// surfaced before any execution begins; an invalid plan never partially
// executes.
type ValidationError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	BlockID string `json:"block_id,omitempty"`
	EdgeID  string `json:"edge_id,omitempty"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("workflow validation failed (%s): %s", e.Code, e.Message)
}

func (s *Serializer) validate(in Input) error {
	if err := validateEdges(in); err != nil {
		return err
	}

	if err := validateContainment(in); err != nil {
		return err
	}

	if err := validateAcyclic(in); err != nil {
		return err
	}

	return validateRequiredValues(in)
}

func validateEdges(in Input) error {
	for _, edge := range in.Edges {
		if _, ok := in.Blocks[edge.Source]; !ok {
			return &ValidationError{
				Code:    CodeDanglingEdge,
				Message: fmt.Sprintf("edge %s references unknown source block %s", edge.ID, edge.Source),
				EdgeID:  edge.ID,
			}
		}

		if _, ok := in.Blocks[edge.Target]; !ok {
			return &ValidationError{
				Code:    CodeDanglingEdge,
				Message: fmt.Sprintf("edge %s references unknown target block %s", edge.ID, edge.Target),
				EdgeID:  edge.ID,
			}
		}
	}

	return nil
}

// validateContainment enforces the flat-nesting constraint: a container's
// direct children may not themselves be containers, parent references must
// exist, and parent chains must terminate. The cycle walk is bounded by a
// visited set so a circular chain is rejected rather than looped forever.
func validateContainment(in Input) error {
	for id, block := range in.Blocks {
		if block.ParentID == "" {
			continue
		}

		parent, ok := in.Blocks[block.ParentID]
		if !ok {
			return &ValidationError{
				Code:    CodeUnknownParent,
				Message: fmt.Sprintf("block %s has parent %s which does not exist", blockName(in.Blocks, id), block.ParentID),
				BlockID: id,
			}
		}

		if !parent.IsContainer() {
			return &ValidationError{
				Code:    CodeUnknownParent,
				Message: fmt.Sprintf("block %s has parent %s which is not a loop or parallel", blockName(in.Blocks, id), block.ParentID),
				BlockID: id,
			}
		}

		if block.IsContainer() {
			return &ValidationError{
				Code:    CodeNestedContainer,
				Message: fmt.Sprintf("container %s is nested inside container %s; containers cannot be nested", blockName(in.Blocks, id), block.ParentID),
				BlockID: id,
			}
		}

		visited := map[string]bool{id: true}
		current := block.ParentID

		for current != "" {
			if visited[current] {
				return &ValidationError{
					Code:    CodeCircularContainment,
					Message: fmt.Sprintf("block %s participates in a circular parent chain", blockName(in.Blocks, id)),
					BlockID: id,
				}
			}

			visited[current] = true

			next, ok := in.Blocks[current]
			if !ok {
				break
			}

			current = next.ParentID
		}
	}

	return nil
}

// validateAcyclic rejects dependency cycles among edges. Blocks in a cycle
// can never become eligible, so the run would report success while silently
// never executing them. Edges are grouped the way the executor schedules
// them: only edges whose endpoints share a parent count as dependencies.
func validateAcyclic(in Input) error {
	incoming := make(map[string]int, len(in.Blocks))
	outgoing := make(map[string][]string, len(in.Blocks))

	for _, edge := range in.Edges {
		source, ok := in.Blocks[edge.Source]
		if !ok {
			continue
		}

		target, ok := in.Blocks[edge.Target]
		if !ok {
			continue
		}

		if source.ParentID != target.ParentID {
			continue
		}

		incoming[edge.Target]++
		outgoing[edge.Source] = append(outgoing[edge.Source], edge.Target)
	}

	frontier := make([]string, 0, len(in.Blocks))
	for id := range in.Blocks {
		if incoming[id] == 0 {
			frontier = append(frontier, id)
		}
	}

	visited := 0
	for len(frontier) > 0 {
		id := frontier[0]
		frontier = frontier[1:]
		visited++

		for _, target := range outgoing[id] {
			incoming[target]--
			if incoming[target] == 0 {
				frontier = append(frontier, target)
			}
		}
	}

	if visited == len(in.Blocks) {
		return nil
	}

	remaining := make([]string, 0)
	for id := range in.Blocks {
		if incoming[id] > 0 {
			remaining = append(remaining, id)
		}
	}

	sort.Strings(remaining)

	return &ValidationError{
		Code:    CodeCircularDependency,
		Message: fmt.Sprintf("block %s participates in a dependency cycle and can never execute", blockName(in.Blocks, remaining[0])),
		BlockID: remaining[0],
	}
}

func validateRequiredValues(in Input) error {
	for id, block := range in.Blocks {
		merged := in.MergedStates[id]

		for subID, sub := range block.SubBlocks {
			if !sub.Required {
				continue
			}

			value := sub.Value
			if merged != nil {
				if override, ok := merged.SubBlocks[subID]; ok && override != nil {
					value = override.Value
				}
			}

			if value == nil && sub.Default == nil {
				return &ValidationError{
					Code:    CodeMissingRequiredValue,
					Message: fmt.Sprintf("block %s is missing required value %q", blockName(in.Blocks, id), subID),
					BlockID: id,
				}
			}
		}
	}

	return nil
}
