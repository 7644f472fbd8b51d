package models

// LoopType selects between fixed-count and collection-driven loops.
type LoopType string

const (
	LoopTypeFor     LoopType = "for"
	LoopTypeForEach LoopType = "forEach"
)

// ParallelType selects between fixed-count fan-out and one branch per
// collection element.
type ParallelType string

const (
	ParallelTypeCount      ParallelType = "count"
	ParallelTypeCollection ParallelType = "collection"
)

// Container defaults and hard ceilings. Coercion failures in block
// configuration fall back to these rather than failing resolution.
const (
	DefaultLoopIterations      = 5
	DefaultLoopConcurrency     = 1
	MaxLoopConcurrency         = 10
	DefaultParallelCount       = 5
	MaxParallelCount           = 100
	DefaultParallelConcurrency = 10
	MaxParallelConcurrency     = 50
	DefaultWhileMaxIterations  = 1000
)

// Loop is the execution descriptor derived from a loop block. Nodes holds
// direct children only; descendants of nested containers are excluded by the
// flat-nesting constraint.
type Loop struct {
	ID             string   `json:"id"`
	Nodes          []string `json:"nodes"`
	Iterations     int      `json:"iterations"`
	LoopType       LoopType `json:"loop_type"`
	ForEachItems   any      `json:"for_each_items,omitempty"` // parsed collection or raw expression string
	MaxConcurrency int      `json:"max_concurrency"`
}

// Parallel is the execution descriptor derived from a parallel block.
type Parallel struct {
	ID             string       `json:"id"`
	Nodes          []string     `json:"nodes"`
	Count          int          `json:"count"`
	ParallelType   ParallelType `json:"parallel_type"`
	Distribution   any          `json:"distribution,omitempty"`
	MaxConcurrency int          `json:"max_concurrency"`
}

// While is the execution descriptor derived from a while block. MaxIterations
// is a safety ceiling, not a target.
type While struct {
	ID            string   `json:"id"`
	Nodes         []string `json:"nodes"`
	Condition     string   `json:"condition"`
	WhileType     string   `json:"while_type"`
	MaxIterations int      `json:"max_iterations"`
}
