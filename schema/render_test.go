package schema

import (
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/xmlcast/descriptor"
)

type profile struct {
	FirstName string `desc:"given name"`
	LastName  string
	Age       int `cast:"age" desc:"age in full years"`
}

type account struct {
	Owner   profile
	Aliases []string
	Limits  map[string]float64
	Note    *string
}

type linked struct {
	Value int
	Next  *linked
}

type empty struct{}

type payment struct {
	descriptor.Union
	Card *cardPayment `desc:"pay by card"`
	Cash *cashPayment `desc:"pay in cash"`
}

type cardPayment struct {
	Number string
}

type cashPayment struct{}

func mustDescriptor(t *testing.T, v any) *descriptor.Descriptor {
	t.Helper()
	d, err := descriptor.Of(reflect.TypeOf(v))
	require.NoError(t, err)
	return d
}

func TestRenderRecordHasOneRootAndDeclaredMembers(t *testing.T) {
	text := Render(mustDescriptor(t, profile{}))

	// Exactly one root open and close tag.
	assert.Equal(t, 1, strings.Count(text, "<profile>"))
	assert.Equal(t, 1, strings.Count(text, "</profile>"))
	assert.True(t, strings.HasPrefix(text, "<profile>"))
	assert.True(t, strings.HasSuffix(text, "</profile>"))

	// Members in declaration order.
	first := strings.Index(text, "<FirstName>")
	last := strings.Index(text, "<LastName>")
	age := strings.Index(text, "<age>")
	require.True(t, first >= 0 && last >= 0 && age >= 0)
	assert.Less(t, first, last)
	assert.Less(t, last, age)

	// Descriptions become inline comments.
	assert.Contains(t, text, "<!-- given name -->")
	assert.Contains(t, text, "<!-- age in full years -->")
}

func TestRenderNestedMembersAndCollections(t *testing.T) {
	text := Render(mustDescriptor(t, account{}))

	// Nested record fields appear directly inside the member tag,
	// without an extra wrapper for the nested type's own name.
	assert.Contains(t, text, "<Owner>")
	assert.NotContains(t, text, "<profile>")
	assert.Contains(t, text, "<FirstName>")

	assert.Contains(t, text, "<item>")
	assert.Contains(t, text, "<entry><key>{key}</key><value>{value}</value></entry>")
	assert.Contains(t, text, "Optional. If no value is provided, do not include this tag at all.")
}

func TestRenderLeafInstructions(t *testing.T) {
	text := Render(mustDescriptor(t, profile{}))
	assert.Contains(t, text, "CDATA")

	boolText := Render(mustDescriptor(t, struct{ OK bool }{}))
	assert.Contains(t, boolText, "true")
	assert.Contains(t, boolText, "yes/no")
	assert.Contains(t, boolText, "真/假")
}

func TestRenderRecursiveTypeTerminates(t *testing.T) {
	text := Render(mustDescriptor(t, linked{}))

	// The re-entrant reference renders as a shadow notice instead of
	// expanding forever: the type expands exactly once for real.
	assert.Equal(t, 1, strings.Count(text, "<Value>"))
	assert.Contains(t, text, "a nested linked structure")
}

type ping struct {
	Partner *pong
}

type pong struct {
	Partner *ping
}

func TestRenderMutualRecursionTerminates(t *testing.T) {
	text := Render(mustDescriptor(t, ping{}))

	// ping expands, pong expands once, then the reference back to
	// ping falls back to a shadow notice.
	assert.Contains(t, text, "a nested ping structure")
}

func TestRenderEmptyRecord(t *testing.T) {
	text := Render(mustDescriptor(t, empty{}))
	assert.Equal(t, "<empty></empty>", text)
}

func TestRenderUnion(t *testing.T) {
	text := Render(mustDescriptor(t, payment{}))

	assert.True(t, strings.HasPrefix(text, "<payment>"))
	assert.Contains(t, text, "Exactly one of the following alternative tags must be produced:")
	assert.Contains(t, text, "<Card>")
	assert.Contains(t, text, "<!-- pay by card -->")
	// Empty variant payloads collapse to a bare tag.
	assert.Contains(t, text, "<Cash/>")
	assert.Contains(t, text, "<!-- pay in cash -->")
}

func TestRenderSameTypeInSiblingFieldsExpandsBoth(t *testing.T) {
	type pair struct {
		Left  profile
		Right profile
	}
	text := Render(mustDescriptor(t, pair{}))

	// Siblings are not on the same expansion path, so both expand.
	assert.Equal(t, 2, strings.Count(text, "<FirstName>"))
}
