// Package workflow loads workflow documents from disk and compiles them into
// execution plans. A document is the authored form: blocks with sub-block
// configuration, edges, and workflow variables.
package workflow

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/you112ef/sim-sub002/pkg/models"
)

// Document is the on-disk workflow format, readable as JSON or YAML.
type Document struct {
	ID          string          `json:"id"`
	Name        string          `json:"name" validate:"required,min=1"`
	Description string          `json:"description,omitempty"`
	Blocks      []*models.Block `json:"blocks" validate:"required,min=1,dive,required"`
	Edges       []models.Edge   `json:"edges,omitempty"`
	Variables   map[string]any  `json:"variables,omitempty"`
}

var validate = validator.New()

// Load reads and validates a workflow document. The format is chosen by file
// extension: .yaml/.yml parse as YAML, everything else as JSON.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow file %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return ParseJSON(data)
	}
}

// ParseJSON parses and validates a JSON workflow document.
func ParseJSON(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse workflow document: %w", err)
	}

	if err := doc.Validate(); err != nil {
		return nil, err
	}

	return &doc, nil
}

// ParseYAML parses and validates a YAML workflow document. The YAML tree is
// re-encoded as JSON first so the models keep a single set of field tags.
func ParseYAML(data []byte) (*Document, error) {
	var tree any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("failed to parse workflow document: %w", err)
	}

	encoded, err := json.Marshal(normalizeYAML(tree))
	if err != nil {
		return nil, fmt.Errorf("failed to normalize workflow document: %w", err)
	}

	return ParseJSON(encoded)
}

// Validate checks structural validity: required fields plus unique block ids.
// Graph-level validation (dangling edges, container nesting) happens in the
// serializer.
func (d *Document) Validate() error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("invalid workflow document: %w", err)
	}

	seen := make(map[string]bool, len(d.Blocks))
	for _, block := range d.Blocks {
		if seen[block.ID] {
			return fmt.Errorf("invalid workflow document: duplicate block id %q", block.ID)
		}

		seen[block.ID] = true
	}

	return nil
}

// BlockMap indexes the document's blocks by id.
func (d *Document) BlockMap() map[string]*models.Block {
	blocks := make(map[string]*models.Block, len(d.Blocks))
	for _, block := range d.Blocks {
		blocks[block.ID] = block
	}

	return blocks
}

// normalizeYAML converts yaml.v3's map[string]any trees (and any residual
// map[any]any nodes) into JSON-encodable values.
func normalizeYAML(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = normalizeYAML(item)
		}

		return out
	case map[any]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[fmt.Sprint(k)] = normalizeYAML(item)
		}

		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = normalizeYAML(item)
		}

		return out
	default:
		return v
	}
}
