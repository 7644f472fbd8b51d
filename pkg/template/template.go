// Package template provides Go-template rendering for block behaviors that
// evaluate small user-authored expressions (function bodies, conditions).
// This is separate from the placeholder grammar in pkg/expression, which the
// serializer and executor apply before behaviors run.
package template

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/you112ef/sim-sub002/pkg/models"
)

// RenderWithContext renders the template against the execution context's
// variables, env, and upstream block outputs.
func RenderWithContext(input string, execCtx *models.ExecutionContext) (any, error) {
	data := map[string]any{
		"blocks":    execCtx.BlockOutputs,
		"variables": execCtx.Variables,
		"vars":      execCtx.Variables,
		"input":     execCtx.Input,
		"env":       execCtx.Env,
		"execution": map[string]any{
			"id":          execCtx.ExecutionID,
			"workflow_id": execCtx.WorkflowID,
		},
	}

	return Render(input, data)
}

// Truthy converts a rendered value to a boolean: non-zero numbers, non-empty
// strings/collections, and true-ish strings count as true.
func Truthy(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}

		return v != ""
	case int:
		return v != 0
	case int32:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0.0
	case float32:
		return v != 0.0
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	case nil:
		return false
	default:
		return false
	}
}

func Render(templateStr string, data any) (any, error) {
	tmpl, err := template.
		New("block").
		Funcs(template.FuncMap{
			"now": func() string {
				return time.Now().UTC().Format(time.RFC3339)
			},
			"rand": func(max int) int {
				if max <= 0 {
					return 0
				}
				num := make([]byte, 1)
				_, err := rand.Read(num)
				if err != nil {
					return 0
				}

				return int(num[0]) % max
			},
		}).Parse(templateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template '%s': %w", templateStr, err)
	}

	var buf strings.Builder

	err = tmpl.Execute(&buf, data)
	if err != nil {
		return nil, fmt.Errorf("failed to execute template '%s': %w", templateStr, err)
	}

	result := strings.TrimSpace(buf.String())

	// Try to parse as JSON if it looks like JSON
	if (strings.HasPrefix(result, "{") && strings.HasSuffix(result, "}")) ||
		(strings.HasPrefix(result, "[") && strings.HasSuffix(result, "]")) {
		var jsonResult any

		err := json.Unmarshal([]byte(result), &jsonResult)
		if err == nil {
			return jsonResult, nil
		}

		return jsonResult, fmt.Errorf("failed to parse json '%s': %w", templateStr, err)
	}

	// Try to parse as number
	if num, err := strconv.ParseFloat(result, 64); err == nil {
		return num, nil
	}

	// Try to parse as boolean
	if b, err := strconv.ParseBool(result); err == nil {
		return b, nil
	}

	return result, nil
}
