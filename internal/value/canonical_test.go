package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_Basic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"string", String("hello"), `"hello"`},
		{"empty string", String(""), `""`},
		{"int", Int(42), "42"},
		{"negative int", Int(-100), "-100"},
		{"bool", Bool(false), "false"},
		{"null", Null{}, "null"},
		{"empty array", Array{}, "[]"},
		{"empty object", Object{}, "{}"},
		{"nested", Object{"b": Array{Int(1)}, "a": Object{}}, `{"a":{},"b":[1]}`},
		{"plain map", map[string]any{"z": 1, "a": "x"}, `{"a":"x","z":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(got))
		})
	}
}

func TestMarshalCanonical_NoHTMLEscape(t *testing.T) {
	got, err := MarshalCanonical(String("<a & b>"))
	require.NoError(t, err)
	assert.Equal(t, `"<a & b>"`, string(got))
}

func TestMarshalCanonical_NFC(t *testing.T) {
	// "e" + combining acute accent normalizes to a single code point.
	decomposed, err := MarshalCanonical(String("e\u0301"))
	require.NoError(t, err)
	composed, err := MarshalCanonical(String("\u00e9"))
	require.NoError(t, err)
	assert.Equal(t, composed, decomposed)
}

func TestMarshalCanonical_LineSeparators(t *testing.T) {
	got, err := MarshalCanonical(String("a\u2028b\u2029c"))
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\u2029c\"", string(got))

	// A literal backslash followed by the text u2028 stays escaped.
	got, err = MarshalCanonical(String(`\u2028`))
	require.NoError(t, err)
	assert.Equal(t, `"\\u2028"`, string(got))
}

func TestMarshalCanonical_RejectsFloat(t *testing.T) {
	_, err := MarshalCanonical(map[string]any{"f": 0.5})
	assert.Error(t, err)
}

func TestPayloadHash(t *testing.T) {
	a := Object{"type": String("x"), "n": Int(1)}
	b := Object{"n": Int(1), "type": String("x")}
	c := Object{"type": String("y"), "n": Int(1)}

	assert.Equal(t, MustPayloadHash(a), MustPayloadHash(b))
	assert.NotEqual(t, MustPayloadHash(a), MustPayloadHash(c))
	assert.Len(t, MustPayloadHash(a), 64)
	assert.Equal(t, MustPayloadHash(Object{}), MustPayloadHash(nil))
}
