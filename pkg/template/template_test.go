package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_SimplePlaceholder(t *testing.T) {
	data := map[string]any{
		"name": "Maria",
	}

	assert.Equal(t, "Hello Maria!", Render("Hello {{name}}!", data))
	assert.Equal(t, "Hello Maria!", Render("Hello {{ name }}!", data))
}

func TestRender_DottedPath(t *testing.T) {
	data := map[string]any{
		"contact": map[string]any{
			"name":  "Maria",
			"email": "maria@example.com",
		},
	}

	result := Render("{{contact.name}} <{{contact.email}}>", data)
	assert.Equal(t, "Maria <maria@example.com>", result)
}

func TestRender_UnresolvedPlaceholderIsStripped(t *testing.T) {
	data := map[string]any{"name": "Maria"}

	assert.Equal(t, "Hi , welcome", Render("Hi {{nickname}}, welcome", data))
	assert.Equal(t, "Hi ", Render("Hi {{contact.missing.deep}}", data))
}

func TestRender_NoPlaceholders(t *testing.T) {
	assert.Equal(t, "plain text", Render("plain text", map[string]any{"a": "b"}))
	assert.Equal(t, "", Render("", nil))
}

func TestRender_NumberFormatting(t *testing.T) {
	data := map[string]any{
		"count": 3.0,
		"score": 12.5,
		"ok":    true,
	}

	// Whole floats render without the decimal point.
	assert.Equal(t, "3 items", Render("{{count}} items", data))
	assert.Equal(t, "score 12.5", Render("score {{score}}", data))
	assert.Equal(t, "ok=true", Render("ok={{ok}}", data))
}

func TestRenderMap(t *testing.T) {
	data := map[string]any{
		"contact": map[string]any{"name": "Maria"},
	}

	params := map[string]any{
		"message": "Hi {{contact.name}}",
		"count":   5,
		"nested": map[string]any{
			"subject": "For {{contact.name}}",
		},
	}

	rendered := RenderMap(params, data)

	assert.Equal(t, "Hi Maria", rendered["message"])
	assert.Equal(t, 5, rendered["count"])

	nested, ok := rendered["nested"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "For Maria", nested["subject"])
}

func TestRenderMap_Nil(t *testing.T) {
	assert.Nil(t, RenderMap(nil, map[string]any{}))
}

func TestLookup(t *testing.T) {
	data := map[string]any{
		"a": map[string]any{
			"b": map[string]any{"c": "deep"},
		},
		"leaf": 42,
	}

	value, ok := Lookup(data, "a.b.c")
	require.True(t, ok)
	assert.Equal(t, "deep", value)

	value, ok = Lookup(data, "leaf")
	require.True(t, ok)
	assert.Equal(t, 42, value)

	_, ok = Lookup(data, "a.missing")
	assert.False(t, ok)

	// Intermediate non-map stops the walk.
	_, ok = Lookup(data, "leaf.deeper")
	assert.False(t, ok)
}
