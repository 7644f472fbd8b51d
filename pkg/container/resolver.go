// Package container derives Loop/Parallel/While execution descriptors from
// raw block configuration and parent/child relationships.
package container

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/you112ef/sim-sub002/pkg/models"
)

// ResolveLoop builds the execution descriptor for a loop block. Returns nil
// when the block is missing or not a loop. Malformed configuration never
// fails resolution: numeric coercion failures fall back to documented
// defaults, and a collection string that does not parse as JSON is retained
// verbatim for runtime expression evaluation.
func ResolveLoop(blockID string, blocks map[string]*models.Block) *models.Loop {
	block, ok := blocks[blockID]
	if !ok || block.Type != models.BlockTypeLoop {
		return nil
	}

	loopType := models.LoopType(stringValue(block, "loopType"))
	if loopType != models.LoopTypeForEach {
		loopType = models.LoopTypeFor
	}

	return &models.Loop{
		ID:             blockID,
		Nodes:          DirectChildren(blockID, blocks),
		Iterations:     intValue(block, "iterations", models.DefaultLoopIterations),
		LoopType:       loopType,
		ForEachItems:   parseCollection(subBlockValue(block, "collection")),
		MaxConcurrency: clamp(intValue(block, "maxConcurrency", models.DefaultLoopConcurrency), 1, models.MaxLoopConcurrency),
	}
}

// ResolveParallel builds the execution descriptor for a parallel block.
// An absent or unknown parallelType normalizes to collection with an empty
// distribution, which yields zero branches. That asymmetric default matches
// the authoring model and is preserved deliberately; the serializer warns
// when it produces such a descriptor.
func ResolveParallel(blockID string, blocks map[string]*models.Block) *models.Parallel {
	block, ok := blocks[blockID]
	if !ok || block.Type != models.BlockTypeParallel {
		return nil
	}

	parallelType := models.ParallelType(stringValue(block, "parallelType"))
	if parallelType != models.ParallelTypeCount {
		parallelType = models.ParallelTypeCollection
	}

	distribution := parseCollection(subBlockValue(block, "distribution"))
	if parallelType == models.ParallelTypeCount {
		distribution = ""
	}

	return &models.Parallel{
		ID:             blockID,
		Nodes:          DirectChildren(blockID, blocks),
		Count:          clamp(intValue(block, "count", models.DefaultParallelCount), 1, models.MaxParallelCount),
		ParallelType:   parallelType,
		Distribution:   distribution,
		MaxConcurrency: clamp(intValue(block, "maxConcurrency", models.DefaultParallelConcurrency), 1, models.MaxParallelConcurrency),
	}
}

// ResolveWhile builds the execution descriptor for a while block. The
// iteration ceiling defaults to a safety cap, not a target.
func ResolveWhile(blockID string, blocks map[string]*models.Block) *models.While {
	block, ok := blocks[blockID]
	if !ok || block.Type != models.BlockTypeWhile {
		return nil
	}

	whileType := stringValue(block, "whileType")
	if whileType == "" {
		whileType = "while"
	}

	return &models.While{
		ID:            blockID,
		Nodes:         DirectChildren(blockID, blocks),
		Condition:     stringValue(block, "condition"),
		WhileType:     whileType,
		MaxIterations: intValue(block, "maxIterations", models.DefaultWhileMaxIterations),
	}
}

// DirectChildren returns the ids of blocks whose container parent is the
// given id, in stable (sorted) order. Intentionally shallow: descendants of
// nested containers are not included.
func DirectChildren(containerID string, blocks map[string]*models.Block) []string {
	children := make([]string, 0)

	for id, block := range blocks {
		if block.ParentID == containerID {
			children = append(children, id)
		}
	}

	sort.Strings(children)

	return children
}

// AllDescendants returns every block transitively contained in the given
// container, in stable order. Used for UI and validation, never for
// scheduling. Safe against circular parent chains.
func AllDescendants(containerID string, blocks map[string]*models.Block) []string {
	visited := map[string]bool{containerID: true}
	descendants := make([]string, 0)
	frontier := []string{containerID}

	for len(frontier) > 0 {
		next := make([]string, 0)

		for _, parent := range frontier {
			for _, child := range DirectChildren(parent, blocks) {
				if visited[child] {
					continue
				}

				visited[child] = true
				descendants = append(descendants, child)
				next = append(next, child)
			}
		}

		frontier = next
	}

	sort.Strings(descendants)

	return descendants
}

func subBlockValue(block *models.Block, id string) any {
	sub, ok := block.SubBlocks[id]
	if !ok || sub == nil {
		return nil
	}

	return sub.Value
}

func stringValue(block *models.Block, id string) string {
	s, _ := subBlockValue(block, id).(string)

	return s
}

// intValue coerces a sub-block value to int, falling back to def. Leniency
// here is a policy, not data loss: a loop with a bad count still runs with
// the documented default.
func intValue(block *models.Block, id string, def int) int {
	switch v := subBlockValue(block, id).(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}

		return def
	default:
		return def
	}
}

func clamp(v, low, high int) int {
	if v < low {
		return low
	}

	if v > high {
		return high
	}

	return v
}

// parseCollection attempts a structured parse of string values that look like
// JSON arrays or objects. On parse failure the raw string is kept verbatim so
// the executor can evaluate it as an expression at container entry.
func parseCollection(raw any) any {
	s, ok := raw.(string)
	if !ok {
		if raw == nil {
			return ""
		}

		return raw
	}

	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "{") {
		var parsed any
		if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil {
			return parsed
		}
	}

	return s
}
