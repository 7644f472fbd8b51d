package workflow

import (
	"log/slog"

	"github.com/you112ef/sim-sub002/pkg/container"
	"github.com/you112ef/sim-sub002/pkg/models"
	"github.com/you112ef/sim-sub002/pkg/serializer"
)

// CompileInput carries run-specific layers merged over the document before
// serialization. Overrides win over authored sub-block values, which win over
// declared defaults.
type CompileInput struct {
	// Overrides maps block id -> sub-block id -> value.
	Overrides map[string]map[string]any
	Variables map[string]any
	Env       map[string]string
}

// Compile derives container descriptors from the document's blocks and runs
// the serializer, producing a validated execution plan.
func Compile(doc *Document, in CompileInput, logger *slog.Logger) (*models.ExecutionPlan, error) {
	blocks := doc.BlockMap()

	loops := make(map[string]*models.Loop)
	parallels := make(map[string]*models.Parallel)
	whiles := make(map[string]*models.While)

	for id, block := range blocks {
		switch block.Type {
		case models.BlockTypeLoop:
			if loop := container.ResolveLoop(id, blocks); loop != nil {
				loops[id] = loop
			}
		case models.BlockTypeParallel:
			if parallel := container.ResolveParallel(id, blocks); parallel != nil {
				parallels[id] = parallel
			}
		case models.BlockTypeWhile:
			if while := container.ResolveWhile(id, blocks); while != nil {
				whiles[id] = while
			}
		}
	}

	variables := doc.Variables
	if in.Variables != nil {
		merged := make(map[string]any, len(doc.Variables)+len(in.Variables))
		for k, v := range doc.Variables {
			merged[k] = v
		}

		for k, v := range in.Variables {
			merged[k] = v
		}

		variables = merged
	}

	return serializer.New(logger).Serialize(serializer.Input{
		Blocks:       blocks,
		MergedStates: mergedStates(in.Overrides),
		Edges:        doc.Edges,
		Loops:        loops,
		Parallels:    parallels,
		Whiles:       whiles,
		Variables:    variables,
		Env:          in.Env,
	}, true)
}

func mergedStates(overrides map[string]map[string]any) map[string]*serializer.MergedBlockState {
	if len(overrides) == 0 {
		return nil
	}

	states := make(map[string]*serializer.MergedBlockState, len(overrides))

	for blockID, subBlocks := range overrides {
		state := &serializer.MergedBlockState{
			SubBlocks: make(map[string]*serializer.MergedSubBlock, len(subBlocks)),
		}

		for subBlockID, value := range subBlocks {
			state.SubBlocks[subBlockID] = &serializer.MergedSubBlock{Value: value}
		}

		states[blockID] = state
	}

	return states
}
