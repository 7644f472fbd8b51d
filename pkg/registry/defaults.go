package registry

import (
	"log/slog"

	"github.com/you112ef/sim-sub002/pkg/blocks/api"
	"github.com/you112ef/sim-sub002/pkg/blocks/condition"
	"github.com/you112ef/sim-sub002/pkg/blocks/function"
	"github.com/you112ef/sim-sub002/pkg/blocks/logblock"
	"github.com/you112ef/sim-sub002/pkg/blocks/response"
	"github.com/you112ef/sim-sub002/pkg/blocks/starter"
)

// NewDefaultRegistry returns a registry with every built-in block type
// registered.
func NewDefaultRegistry(logger *slog.Logger) *Registry {
	reg := NewRegistry(logger)
	reg.RegisterBlock(&starter.Factory{})
	reg.RegisterBlock(&function.Factory{})
	reg.RegisterBlock(&condition.Factory{})
	reg.RegisterBlock(&api.Factory{})
	reg.RegisterBlock(&response.Factory{})
	reg.RegisterBlock(&logblock.Factory{})

	return reg
}
