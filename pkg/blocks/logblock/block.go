// Package logblock provides a block that writes a structured log line and
// passes its message through.
package logblock

import (
	"context"
	"errors"
	"log/slog"

	"github.com/you112ef/sim-sub002/pkg/models"
)

type LogBlock struct {
	id      string
	message string
	level   string
}

func NewLogBlock(id string, config map[string]any) (*LogBlock, error) {
	message, ok := config["message"].(string)
	if !ok {
		return nil, errors.New("missing required field 'message'")
	}

	level, _ := config["level"].(string)
	if level == "" {
		level = "info"
	}

	return &LogBlock{id: id, message: message, level: level}, nil
}

func (b *LogBlock) ID() string {
	return b.id
}

func (b *LogBlock) Type() string {
	return models.BlockTypeLog
}

func (b *LogBlock) Execute(_ context.Context, execCtx *models.ExecutionContext) (*models.BlockResult, error) {
	logger := execCtx.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger = logger.With("block_id", b.id, "execution_id", execCtx.ExecutionID)

	switch b.level {
	case "debug":
		logger.Debug(b.message)
	case "warn":
		logger.Warn(b.message)
	case "error":
		logger.Error(b.message)
	default:
		logger.Info(b.message)
	}

	return &models.BlockResult{Output: map[string]any{"message": b.message}}, nil
}
