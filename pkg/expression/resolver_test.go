package expression

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testScope() *Scope {
	scope := NewScope()
	scope.Variables["region"] = "eu-west-1"
	scope.Variables["retry count"] = float64(3)
	scope.Env["API_KEY"] = "secret-123"
	scope.BlockOutputs["block-1"] = map[string]any{
		"status": float64(200),
		"body":   map[string]any{"items": []any{"a", "b"}},
	}
	scope.AddAlias("Get Weather", "block-1")

	return scope
}

func TestResolve_VariableReference(t *testing.T) {
	assert.Equal(t, "region=eu-west-1", Resolve("region=<variable.region>", testScope()))
}

func TestResolve_EnvReference(t *testing.T) {
	assert.Equal(t, "key: secret-123", Resolve("key: {{API_KEY}}", testScope()))
	assert.Equal(t, "key: secret-123", Resolve("key: {{ API_KEY }}", testScope()))
}

func TestResolve_TagReferenceByAlias(t *testing.T) {
	scope := testScope()

	assert.Equal(t, "200", Resolve("<Get Weather.status>", scope))
	assert.Equal(t, "200", Resolve("<getweather.status>", scope), "alias lookup is case- and whitespace-insensitive")
	assert.Equal(t, "200", Resolve("<block-1.status>", scope), "raw block ids also resolve")
}

func TestResolve_DottedPathThroughArrays(t *testing.T) {
	assert.Equal(t, "b", Resolve("<block-1.body.items.1>", testScope()))
}

func TestResolve_UnresolvedBecomesEmptyString(t *testing.T) {
	scope := testScope()

	assert.Equal(t, "value: ", Resolve("value: <nosuchblock.field>", scope))
	assert.Equal(t, "value: ", Resolve("value: {{NO_SUCH_ENV}}", scope))
	assert.Equal(t, "value: ", Resolve("value: <variable.missing>", scope))
}

func TestResolve_VariablesShadowBlockNames(t *testing.T) {
	scope := testScope()
	scope.Variables["getweather"] = "shadowed"

	assert.Equal(t, "shadowed", Resolve("<getweather>", scope))
}

func TestResolveValue_SinglePlaceholderKeepsType(t *testing.T) {
	scope := testScope()

	assert.Equal(t, float64(200), ResolveValue("<block-1.status>", scope))
	assert.Equal(t, []any{"a", "b"}, ResolveValue("<block-1.body.items>", scope))
	assert.Equal(t, float64(3), ResolveValue("<variable.retry count>", scope))
}

func TestResolveValue_Recursive(t *testing.T) {
	scope := testScope()

	input := map[string]any{
		"url":    "https://api.example.com/<variable.region>",
		"nested": []any{"<block-1.status>", "literal"},
		"count":  float64(2),
	}

	resolved, ok := ResolveValue(input, scope).(map[string]any)
	assert.True(t, ok)
	assert.Equal(t, "https://api.example.com/eu-west-1", resolved["url"])
	assert.Equal(t, []any{float64(200), "literal"}, resolved["nested"])
	assert.Equal(t, float64(2), resolved["count"])
}

func TestResolve_ComplexValuesSerializeAsJSON(t *testing.T) {
	assert.Equal(t, `items: ["a","b"]`, Resolve("items: <block-1.body.items>", testScope()))
}

func TestResolvePartial_KeepsUnknownTags(t *testing.T) {
	scope := testScope()

	out := ResolvePartial("https://<variable.region>/items/<fetch.body.id>?key={{API_KEY}}", scope)
	assert.Equal(t, "https://eu-west-1/items/<fetch.body.id>?key=secret-123", out)
}

func TestResolveValuePartial_SinglePlaceholder(t *testing.T) {
	scope := testScope()

	assert.Equal(t, "<fetch.body.id>", ResolveValuePartial("<fetch.body.id>", scope))
	assert.Equal(t, "eu-west-1", ResolveValuePartial("<variable.region>", scope))
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "getweather", NormalizeName("  Get   Weather "))
}
