// Package expression implements the placeholder substitution grammar used in
// block configuration values: <variable.name> for workflow variables,
// {{ENV_VAR}} for environment variables, and <block.path> tag references
// resolved against upstream block outputs. It is a deliberate non-goal to be
// a general templating engine.
package expression

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	tagPattern = regexp.MustCompile(`<([a-zA-Z_][\w\- ]*(?:\.[\w\- ]+)*)>`)
	envPattern = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)
)

// Scope holds everything a resolution pass may reference. Block outputs are
// keyed by block id; Aliases maps normalized display names to block ids so
// tags can use either.
type Scope struct {
	Variables    map[string]any
	Env          map[string]string
	BlockOutputs map[string]any
	Aliases      map[string]string
}

func NewScope() *Scope {
	return &Scope{
		Variables:    make(map[string]any),
		Env:          make(map[string]string),
		BlockOutputs: make(map[string]any),
		Aliases:      make(map[string]string),
	}
}

// AddAlias registers a block display name for tag resolution. Lookup is
// case- and whitespace-insensitive.
func (s *Scope) AddAlias(name, blockID string) {
	s.Aliases[NormalizeName(name)] = blockID
}

// NormalizeName lowercases and strips whitespace so "Get Weather" and
// "getweather" reference the same block.
func NormalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), ""))
}

// Resolve substitutes every placeholder in the input string. Resolution
// precedence is workflow variables, then environment variables, then
// cross-block tag references. Unresolved references become empty strings so
// downstream consumers never see literal placeholders.
func Resolve(input string, scope *Scope) string {
	return resolve(input, scope, false)
}

// ResolvePartial substitutes variable and environment references but leaves
// tags it cannot resolve untouched. The serializer uses this at compile time,
// when cross-block outputs do not exist yet; the executor performs the final
// pass with the empty-string fallback.
func ResolvePartial(input string, scope *Scope) string {
	return resolve(input, scope, true)
}

func resolve(input string, scope *Scope, keepUnresolved bool) string {
	out := envPattern.ReplaceAllStringFunc(input, func(match string) string {
		name := envPattern.FindStringSubmatch(match)[1]

		if _, ok := scope.Env[name]; !ok && keepUnresolved {
			return match
		}

		return scope.Env[name]
	})

	out = tagPattern.ReplaceAllStringFunc(out, func(match string) string {
		value, ok := resolveTag(tagPattern.FindStringSubmatch(match)[1], scope)
		if !ok {
			if keepUnresolved {
				return match
			}

			return ""
		}

		return stringify(value)
	})

	return out
}

// ResolveValue resolves placeholders recursively through maps, slices, and
// strings. A string that consists of exactly one placeholder keeps the
// referenced value's type instead of flattening to a string.
func ResolveValue(value any, scope *Scope) any {
	return resolveValue(value, scope, false)
}

// ResolveValuePartial is ResolveValue with ResolvePartial's leave-unresolved
// policy for tags.
func ResolveValuePartial(value any, scope *Scope) any {
	return resolveValue(value, scope, true)
}

func resolveValue(value any, scope *Scope, keepUnresolved bool) any {
	switch v := value.(type) {
	case string:
		return resolveString(v, scope, keepUnresolved)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = resolveValue(item, scope, keepUnresolved)
		}

		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = resolveValue(item, scope, keepUnresolved)
		}

		return out
	default:
		return value
	}
}

func resolveString(input string, scope *Scope, keepUnresolved bool) any {
	trimmed := strings.TrimSpace(input)

	if match := tagPattern.FindStringSubmatch(trimmed); match != nil && match[0] == trimmed {
		value, ok := resolveTag(match[1], scope)
		if !ok {
			if keepUnresolved {
				return input
			}

			return ""
		}

		return value
	}

	if match := envPattern.FindStringSubmatch(trimmed); match != nil && match[0] == trimmed {
		if _, ok := scope.Env[match[1]]; !ok && keepUnresolved {
			return input
		}

		return scope.Env[match[1]]
	}

	return resolve(input, scope, keepUnresolved)
}

// resolveTag resolves the dotted path inside <...>. The first segment is
// either the literal "variable" prefix, a block display name, or a block id.
func resolveTag(content string, scope *Scope) (any, bool) {
	segments := strings.Split(content, ".")
	head := segments[0]

	if head == "variable" {
		if len(segments) < 2 {
			return nil, false
		}

		value, ok := lookupVariable(segments[1], scope)
		if !ok {
			return nil, false
		}

		return walkPath(value, segments[2:])
	}

	// Workflow variables shadow block names on bare references.
	if value, ok := lookupVariable(head, scope); ok {
		return walkPath(value, segments[1:])
	}

	blockID := head
	if aliased, ok := scope.Aliases[NormalizeName(head)]; ok {
		blockID = aliased
	}

	output, ok := scope.BlockOutputs[blockID]
	if !ok {
		return nil, false
	}

	return walkPath(output, segments[1:])
}

func lookupVariable(name string, scope *Scope) (any, bool) {
	if value, ok := scope.Variables[name]; ok {
		return value, true
	}

	normalized := NormalizeName(name)
	for k, v := range scope.Variables {
		if NormalizeName(k) == normalized {
			return v, true
		}
	}

	return nil, false
}

func walkPath(value any, segments []string) (any, bool) {
	current := value

	for _, segment := range segments {
		switch v := current.(type) {
		case map[string]any:
			next, ok := v[segment]
			if !ok {
				return nil, false
			}

			current = next
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(v) {
				return nil, false
			}

			current = v[idx]
		default:
			return nil, false
		}
	}

	return current, true
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case map[string]any, []any:
		encoded, err := json.Marshal(v)
		if err != nil {
			return ""
		}

		return string(encoded)
	default:
		return fmt.Sprint(v)
	}
}
