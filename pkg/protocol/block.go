// Package protocol defines the interfaces and contracts for pluggable block
// behaviors.
package protocol

import (
	"context"

	"github.com/you112ef/sim-sub002/pkg/models"
)

// BlockFactory creates block behavior instances and provides metadata about
// the block type.
type BlockFactory interface {
	// Create creates a new behavior instance with the given resolved configuration
	Create(ctx context.Context, id string, config map[string]any) (models.BlockBehavior, error)

	// ID returns the unique type identifier for this block type
	ID() string

	// Name returns the human-readable name for this block type
	Name() string

	// Description returns a description of what this block does
	Description() string

	// Schema returns the JSON schema for configuring this block
	Schema() map[string]any
}
