package decode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSimpleElement(t *testing.T) {
	root, err := Parse("<person><age>42</age></person>")
	require.NoError(t, err)

	assert.Equal(t, "person", root.Name)
	require.Len(t, root.Children, 1)
	assert.Equal(t, "age", root.Children[0].Name)
	assert.Equal(t, "42", root.Children[0].Flat())
}

func TestParseCDataTracked(t *testing.T) {
	root, err := Parse("<name><![CDATA[Ada <Lovelace>]]></name>")
	require.NoError(t, err)

	assert.True(t, root.HasCData())
	assert.Equal(t, "Ada <Lovelace>", root.Flat())
}

func TestParseAdjacentCDataBlocks(t *testing.T) {
	root, err := Parse("<s><![CDATA[a]]]]><![CDATA[>b]]></s>")
	require.NoError(t, err)

	require.Len(t, root.CData, 2)
	assert.Equal(t, "a]]>b", root.Flat())
}

func TestParseEmptyCDataStillCounts(t *testing.T) {
	root, err := Parse("<s><![CDATA[]]></s>")
	require.NoError(t, err)

	assert.True(t, root.HasCData())
	assert.Equal(t, "", root.Flat())
}

func TestParseBareTextIsNotCData(t *testing.T) {
	root, err := Parse("<s>  hello  </s>")
	require.NoError(t, err)

	assert.False(t, root.HasCData())
	assert.Equal(t, "hello", root.Flat())
}

func TestParseToleratesAttributesCommentsAndPIs(t *testing.T) {
	raw := `<person id="1" class='x'>
  <!-- generated -->
  <?hint ignore me?>
  <age>42</age>
</person>`
	root, err := Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, "person", root.Name)
	require.Len(t, root.Children, 1)
	assert.Equal(t, "42", root.Children[0].Flat())
}

func TestParseAttributeValueEndingInSlash(t *testing.T) {
	// A '/' at the end of a quoted attribute value must not turn the
	// element self-closing; its children still belong to it.
	tests := []struct {
		name string
		raw  string
	}{
		{"double quoted", `<a href="x/"><b>1</b></a>`},
		{"single quoted", `<a href='x/'><b>1</b></a>`},
		{"slash mid value", `<a href="x/y" id="z"><b>1</b></a>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, err := Parse(tt.raw)
			require.NoError(t, err)
			require.Len(t, root.Children, 1)
			assert.Equal(t, "1", root.Children[0].Flat())
		})
	}
}

func TestParseSelfClosingWithAttributes(t *testing.T) {
	root, err := Parse(`<p><Cash kind="note"/></p>`)
	require.NoError(t, err)

	cash := root.Child("Cash")
	require.NotNil(t, cash)
	assert.Empty(t, cash.Children)
}

func TestParseSelfClosingTag(t *testing.T) {
	root, err := Parse("<payment><Cash/></payment>")
	require.NoError(t, err)

	cash := root.Child("Cash")
	require.NotNil(t, cash)
	assert.Empty(t, cash.Children)
	assert.Equal(t, "", cash.Flat())
}

func TestParseNestedAndRepeatedChildren(t *testing.T) {
	root, err := Parse("<l><item>1</item><item>2</item><other>x</other></l>")
	require.NoError(t, err)

	items := root.ChildrenNamed("item")
	require.Len(t, items, 2)
	assert.Equal(t, "1", items[0].Flat())
	assert.Equal(t, "2", items[1].Flat())
	assert.NotNil(t, root.Child("other"))
	assert.Nil(t, root.Child("missing"))
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty input", ""},
		{"bare text", "not xml"},
		{"mismatched close", "<a><b></a></b>"},
		{"unterminated element", "<a><b>"},
		{"unterminated open tag", "<a"},
		{"unterminated cdata", "<a><![CDATA[x</a>"},
		{"unterminated comment", "<a><!-- x</a>"},
		{"empty tag name", "<><x></x></>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.raw)
			assert.Error(t, err)
		})
	}
}

func TestParseTrailingGarbageTolerated(t *testing.T) {
	root, err := Parse("<a>1</a> trailing words")
	require.NoError(t, err)
	assert.Equal(t, "a", root.Name)
}
