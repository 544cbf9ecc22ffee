package canonical

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshal_SortsKeys(t *testing.T) {
	input := map[string]interface{}{
		"c": 3,
		"a": 1,
		"b": 2,
	}

	b, err := Marshal(input)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1,"b":2,"c":3}`, string(b))
}

func TestMarshal_SortsNestedKeys(t *testing.T) {
	input := map[string]interface{}{
		"z": map[string]interface{}{
			"y": "foo",
			"x": "bar",
		},
		"a": 1,
	}

	b, err := Marshal(input)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1,"z":{"x":"bar","y":"foo"}}`, string(b))
}

func TestMarshal_NoHTMLEscaping(t *testing.T) {
	input := map[string]string{
		"html": "<script>alert('x')</script> &",
	}

	b, err := Marshal(input)
	require.NoError(t, err)
	assert.Equal(t, `{"html":"<script>alert('x')</script> &"}`, string(b))
}

func TestMarshal_NumberFormatting(t *testing.T) {
	// ECMA-262 shortest round-trip serialization per RFC 8785.
	cases := []struct {
		in   interface{}
		want string
	}{
		{0.8, `0.8`},
		{1.0, `1`},
		{0.5, `0.5`},
		{42, `42`},
		{json.Number("123.456"), `123.456`},
	}
	for _, tc := range cases {
		b, err := Marshal(map[string]interface{}{"n": tc.in})
		require.NoError(t, err)
		assert.Equal(t, `{"n":`+tc.want+`}`, string(b))
	}
}

func TestMarshal_UnsupportedType(t *testing.T) {
	input := map[string]interface{}{
		"ch": make(chan int),
	}

	_, err := Marshal(input)
	require.Error(t, err)

	var encErr *EncodingError
	require.ErrorAs(t, err, &encErr)
	assert.Contains(t, encErr.Error(), "unsupported type")
}

func TestMarshal_UnsupportedNestedType(t *testing.T) {
	input := map[string]interface{}{
		"outer": map[string]interface{}{
			"inner": []interface{}{func() {}},
		},
	}

	var encErr *EncodingError
	_, err := Marshal(input)
	require.ErrorAs(t, err, &encErr)
	assert.Equal(t, "$.outer.inner[0]", encErr.Path)
}

func TestMarshal_NonStringKeyedMap(t *testing.T) {
	_, err := Marshal(map[int]string{1: "a"})
	var encErr *EncodingError
	require.ErrorAs(t, err, &encErr)
}

func TestHash_InsertionOrderInvariant(t *testing.T) {
	v1 := map[string]interface{}{"a": 1, "b": 2, "c": map[string]interface{}{"x": true, "y": nil}}
	v2 := map[string]interface{}{}
	v2["c"] = map[string]interface{}{"y": nil, "x": true}
	v2["b"] = 2
	v2["a"] = 1

	h1, err := Hash(v1)
	require.NoError(t, err)
	h2, err := Hash(v2)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}

func TestHash_StructAndMapAgree(t *testing.T) {
	type s struct {
		B int `json:"b"`
		A int `json:"a"`
	}

	h1, err := Hash(s{A: 1, B: 2})
	require.NoError(t, err)
	h2, err := Hash(map[string]interface{}{"a": 1, "b": 2})
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}

func TestHash_IsLowercaseHex(t *testing.T) {
	h, err := Hash(map[string]interface{}{"k": "v"})
	require.NoError(t, err)
	require.Len(t, h, 64)
	for _, c := range h {
		assert.True(t, (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f'))
	}
}
