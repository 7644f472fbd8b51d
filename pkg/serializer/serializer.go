// Package serializer compiles the live block/edge state and merged sub-block
// values into a validated, flattened ExecutionPlan.
package serializer

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/you112ef/sim-sub002/pkg/expression"
	"github.com/you112ef/sim-sub002/pkg/models"
)

// MergedSubBlock carries one resolved sub-block value. Merging of layered
// sources (block defaults, run-specific overrides) happens before the
// serializer runs; override wins over default.
type MergedSubBlock struct {
	Value any `json:"value"`
}

// MergedBlockState is the per-block input contract: only sub-block values,
// nothing else.
type MergedBlockState struct {
	SubBlocks map[string]*MergedSubBlock `json:"sub_blocks"`
}

// Input bundles everything Serialize needs. Loops/Parallels/Whiles are the
// descriptors produced by the container resolver; they pass through the plan
// unchanged once validated.
type Input struct {
	Blocks       map[string]*models.Block
	MergedStates map[string]*MergedBlockState
	Edges        []models.Edge
	Loops        map[string]*models.Loop
	Parallels    map[string]*models.Parallel
	Whiles       map[string]*models.While
	Variables    map[string]any
	Env          map[string]string
}

const planVersion = "1"

type Serializer struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Serializer {
	if logger == nil {
		logger = slog.Default()
	}

	return &Serializer{logger: logger.With("module", "serializer")}
}

// Serialize produces the execution plan. When validate is true, structural
// problems fail compilation with a *ValidationError before any execution can
// begin; nothing is silently dropped or repaired.
//
// Variable and environment references in sub-block values are substituted
// here (variables take precedence over env); cross-block tag references stay
// literal because upstream outputs only exist at runtime. The executor
// performs the final pass with the empty-string fallback.
func (s *Serializer) Serialize(in Input, validate bool) (*models.ExecutionPlan, error) {
	if validate {
		if err := s.validate(in); err != nil {
			return nil, err
		}
	}

	scope := expression.NewScope()
	scope.Variables = in.Variables
	scope.Env = in.Env

	blocks := make([]*models.SerializedBlock, 0, len(in.Blocks))
	for _, block := range in.Blocks {
		blocks = append(blocks, s.serializeBlock(block, in.MergedStates[block.ID], scope))
	}

	orderBlocks(blocks, in.Edges)

	plan := &models.ExecutionPlan{
		Version:   planVersion,
		Blocks:    blocks,
		Edges:     in.Edges,
		Loops:     in.Loops,
		Parallels: in.Parallels,
		Whiles:    in.Whiles,
		Validated: validate,
	}

	s.warnZeroBranchParallels(plan)

	return plan, nil
}

// serializeBlock merges sub-block values (override wins), drops sub-blocks
// hidden by an unmet visibility condition, and resolves variable/env
// references.
func (s *Serializer) serializeBlock(block *models.Block, merged *MergedBlockState, scope *expression.Scope) *models.SerializedBlock {
	raw := make(map[string]any, len(block.SubBlocks))

	for id, sub := range block.SubBlocks {
		value := sub.Value
		if merged != nil {
			if override, ok := merged.SubBlocks[id]; ok && override != nil {
				value = override.Value
			}
		}

		if value == nil {
			value = sub.Default
		}

		raw[id] = value
	}

	config := make(map[string]any, len(raw))

	for id, sub := range block.SubBlocks {
		if !sub.Condition.Met(raw) {
			continue // hidden sub-blocks contribute no value
		}

		if raw[id] == nil {
			continue
		}

		config[id] = expression.ResolveValuePartial(raw[id], scope)
	}

	return &models.SerializedBlock{
		ID:       block.ID,
		Type:     block.Type,
		Name:     block.Name,
		Enabled:  block.Enabled,
		Config:   config,
		Outputs:  block.Outputs,
		ParentID: block.ParentID,
	}
}

// orderBlocks sorts blocks into a stable order: breadth-first from the blocks
// without incoming edges, ties broken by id, unreachable blocks appended
// sorted. The executor does not depend on this order for correctness; it
// keeps plans deterministic and diffs readable.
func orderBlocks(blocks []*models.SerializedBlock, edges []models.Edge) {
	incoming := make(map[string]int)
	outgoing := make(map[string][]string)

	ids := make(map[string]bool, len(blocks))
	for _, b := range blocks {
		ids[b.ID] = true
	}

	for _, e := range edges {
		if !ids[e.Source] || !ids[e.Target] {
			continue
		}

		incoming[e.Target]++
		outgoing[e.Source] = append(outgoing[e.Source], e.Target)
	}

	frontier := make([]string, 0)
	for _, b := range blocks {
		if incoming[b.ID] == 0 {
			frontier = append(frontier, b.ID)
		}
	}

	sort.Strings(frontier)

	rank := make(map[string]int, len(blocks))
	next := 0
	for len(frontier) > 0 {
		id := frontier[0]
		frontier = frontier[1:]

		if _, seen := rank[id]; seen {
			continue
		}

		rank[id] = next
		next++

		targets := append([]string(nil), outgoing[id]...)
		sort.Strings(targets)

		for _, target := range targets {
			incoming[target]--
			if incoming[target] <= 0 {
				frontier = append(frontier, target)
			}
		}
	}

	sort.SliceStable(blocks, func(i, j int) bool {
		ri, iOK := rank[blocks[i].ID]
		rj, jOK := rank[blocks[j].ID]

		switch {
		case iOK && jOK:
			return ri < rj
		case iOK:
			return true
		case jOK:
			return false
		default:
			return blocks[i].ID < blocks[j].ID
		}
	})
}

func (s *Serializer) warnZeroBranchParallels(plan *models.ExecutionPlan) {
	for id, parallel := range plan.Parallels {
		if parallel.ParallelType == models.ParallelTypeCollection && isEmptyDistribution(parallel.Distribution) {
			s.logger.Warn("parallel has collection type with empty distribution, it will spawn zero branches",
				"block_id", id)
		}
	}
}

func isEmptyDistribution(distribution any) bool {
	switch v := distribution.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []any:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	default:
		return false
	}
}

func blockName(blocks map[string]*models.Block, id string) string {
	if b, ok := blocks[id]; ok {
		return fmt.Sprintf("%s (%s)", b.Name, id)
	}

	return id
}
