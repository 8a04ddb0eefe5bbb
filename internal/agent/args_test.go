package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseArgsMalformedPayload(t *testing.T) {
	for _, raw := range []string{"", "   ", "not json", "null", `[1,2]`, `"str"`} {
		a := ParseArgs(raw)
		assert.False(t, a.Has("anything"), "payload %q", raw)
	}
}

func TestArgsTypedGetters(t *testing.T) {
	a := ParseArgs(`{
		"s": "texto",
		"n": 42,
		"f": 2.5,
		"b": true,
		"list": ["a", "b"],
		"mixed": ["a", 1, "b"],
		"obj": {"k": "v"}
	}`)

	assert.Equal(t, "texto", a.String("s", "x"))
	assert.Equal(t, "x", a.String("missing", "x"))
	assert.Equal(t, "x", a.String("n", "x"))

	assert.Equal(t, 42, a.Int("n", 0))
	assert.Equal(t, 2, a.Int("f", 0))
	assert.Equal(t, 7, a.Int("missing", 7))

	assert.True(t, a.Bool("b", false))
	assert.True(t, a.Bool("missing", true))

	assert.Equal(t, []string{"a", "b"}, a.StringSlice("list"))
	assert.Equal(t, []string{"a", "b"}, a.StringSlice("mixed"))
	assert.Nil(t, a.StringSlice("missing"))

	assert.Equal(t, map[string]any{"k": "v"}, a.Map("obj"))
	assert.Empty(t, a.Map("s"))

	assert.True(t, a.Has("s"))
	assert.False(t, a.Has("missing"))
}
