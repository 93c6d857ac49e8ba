package content

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyPlainText(t *testing.T) {
	inputs := []string{
		"",
		"hello world",
		"a{b}c",
		"{ not closed",
		"trailing]",
		"  padded value  ",
		"line one\nline two",
		"{{ handlebars",
	}

	for _, raw := range inputs {
		c := Classify(raw)
		assert.Equal(t, KindPlainText, c.Kind, "raw=%q", raw)
		assert.Equal(t, raw, c.Display, "raw=%q", raw)
		assert.True(t, c.Valid, "raw=%q", raw)
		assert.Empty(t, c.Warning, "raw=%q", raw)
	}
}

func TestClassifyJSON(t *testing.T) {
	inputs := []string{
		`{"a":1,"b":[true,null,"x"]}`,
		`[1,2,3]`,
		`{}`,
		`[]`,
		`  {"k": "v"}  `,
		`[{"nested":{"deep":[1.5,-2e3]}}]`,
	}

	for _, raw := range inputs {
		c := Classify(raw)
		require.Equal(t, KindJSON, c.Kind, "raw=%q", raw)
		assert.True(t, c.Valid)

		var want, got any
		require.NoError(t, json.Unmarshal([]byte(raw), &want))
		require.NoError(t, json.Unmarshal([]byte(c.Display), &got))
		assert.Equal(t, want, got, "raw=%q", raw)
	}
}

func TestClassifyJSONIndent(t *testing.T) {
	c := Classify(`{"a":1,"b":[1,2]}`)
	require.Equal(t, KindJSON, c.Kind)
	assert.Equal(t, "{\n    \"a\": 1,\n    \"b\": [\n        1,\n        2\n    ]\n}", c.Display)
}

func TestClassifyDelimitedJSON(t *testing.T) {
	c := Classify(`{{{"a":1}}}`)
	require.Equal(t, KindDelimitedJSON, c.Kind)
	assert.Equal(t, "{{\n{\n    \"a\": 1\n}\n}}", c.Display)
	assert.Equal(t, `{"a":1}`, c.Payload())
}

func TestClassifyDelimitedScalar(t *testing.T) {
	c := Classify(`{{ 42 }}`)
	require.Equal(t, KindDelimitedJSON, c.Kind)
	assert.Equal(t, "{{\n42\n}}", c.Display)
}

func TestClassifyMalformedKeepsRaw(t *testing.T) {
	inputs := []string{
		`{{not json}}`,
		`{invalid}`,
		`[1,2,]`,
		`{{}}`,
		`{{   }}`,
		`{"a":1} {"b":2}`,
	}

	for _, raw := range inputs {
		c := Classify(raw)
		assert.Equal(t, KindPlainText, c.Kind, "raw=%q", raw)
		assert.Equal(t, raw, c.Display, "raw=%q", raw)
		assert.False(t, c.Valid, "raw=%q", raw)
		assert.NotEmpty(t, c.Warning, "raw=%q", raw)

		saved, err := Serialize(c.Kind, c.Display)
		require.NoError(t, err)
		assert.Equal(t, raw, saved, "raw=%q", raw)
	}
}

func TestClassifyPreservesTokens(t *testing.T) {
	raw := `{"id":12345678901234567890,"html":"<b>&amp;</b>","esc":"é","z":1,"a":2}`
	c := Classify(raw)
	require.Equal(t, KindJSON, c.Kind)
	assert.Contains(t, c.Display, `"<b>&amp;</b>"`)
	assert.Contains(t, c.Display, `12345678901234567890`)
	assert.Equal(t, raw, Canonical(c))
}

func TestSerializeUneditedRoundTrip(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`{ "a" : 1, "b" : [ 1, 2 ] }`, `{"a":1,"b":[1,2]}`},
		{`[ ]`, `[]`},
		{`{{ {"a": "x y"} }}`, `{{{"a":"x y"}}}`},
		{`{{[1, 2]}}`, `{{[1,2]}}`},
		{`plain text`, `plain text`},
	}

	for _, tt := range tests {
		c := Classify(tt.raw)
		got, err := Serialize(c.Kind, c.Display)
		require.NoError(t, err, "raw=%q", tt.raw)
		assert.Equal(t, tt.want, got, "raw=%q", tt.raw)
	}
}

func TestSerializeEditedDelimited(t *testing.T) {
	c := Classify(`{{{"a":1}}}`)
	edited := "{{\n{\n    \"a\": 2\n}\n}}"

	got, err := Serialize(c.Kind, edited)
	require.NoError(t, err)
	assert.Equal(t, `{{{"a":2}}}`, got)
}

func TestSerializeRedetectsWrapper(t *testing.T) {
	got, err := Serialize(KindJSON, "{{ {\"a\": 1} }}")
	require.NoError(t, err)
	assert.Equal(t, `{{{"a":1}}}`, got)

	got, err = Serialize(KindDelimitedJSON, "{\"a\": 1}")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, got)
}

func TestSerializeMalformedFallsBack(t *testing.T) {
	edited := "{\n    \"a\": 1,\n}\n"
	got, err := Serialize(KindJSON, edited)
	assert.True(t, errors.Is(err, ErrMalformed))
	assert.Equal(t, edited, got)

	edited = "{{\n{ broken\n}}"
	got, err = Serialize(KindDelimitedJSON, edited)
	assert.ErrorIs(t, err, ErrMalformed)
	assert.Equal(t, edited, got)
}

func TestSerializePlainVerbatim(t *testing.T) {
	edited := "  {\"looks\": \"like json\"}  \n"
	got, err := Serialize(KindPlainText, edited)
	require.NoError(t, err)
	assert.Equal(t, edited, got)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "plain", KindPlainText.String())
	assert.Equal(t, "json", KindJSON.String())
	assert.Equal(t, "delimited-json", KindDelimitedJSON.String())
	assert.Equal(t, "unknown", Kind(99).String())
	assert.False(t, KindPlainText.Structured())
	assert.True(t, KindDelimitedJSON.Structured())
}
