package schema

import (
	"strings"

	"github.com/BaSui01/xmlcast/descriptor"
)

// Leaf instruction texts. The schema is the authoritative contract the
// model is asked to follow; the decoder is deliberately more permissive
// to absorb small deviations.
const (
	boolSchema   = "Boolean value, either `true` or `false`. Synonyms such as yes/no, 1/0, on/off and 真/假 are also understood."
	intSchema    = "integer value, a whole number without a fractional part, e.g., 42, -7, or 0"
	uintSchema   = "non-negative integer value, a whole number, e.g., 42, 7, or 0"
	floatSchema  = "float value, a number that can have a fractional part, e.g., 3.14, -0.001, or 2.0"
	stringSchema = "a string value. Use the format <![CDATA[{actual string content without any escaping}]]> to return the content. The CDATA tags must appear exactly in this form, otherwise parsing fails. For an empty string return <![CDATA[]]>."
)

// Render produces the schema text for d: documentation of the shape
// plus the exact tag names and nesting the model must follow. The root
// tag encloses the members; nested record members nest their own
// fields directly inside the member tag.
//
// Rendering tracks the set of record and union types currently being
// expanded. A re-entrant reference is substituted with a short shadow
// notice instead of expanding again, so rendering terminates on cyclic
// type graphs: every cycle gets at most one level of real expansion.
func Render(d *descriptor.Descriptor) string {
	r := &renderer{expanding: make(map[string]bool)}
	body := r.render(d)
	switch d.Kind {
	case descriptor.KindRecord, descriptor.KindUnion:
		if body == "" {
			return OpenTag(d.Name) + CloseTag(d.Name)
		}
		return OpenTag(d.Name) + "\n" + indent(body) + "\n" + CloseTag(d.Name)
	default:
		return OpenTag(d.Name) + "\n" + indent(body) + "\n" + CloseTag(d.Name)
	}
}

type renderer struct {
	// expanding holds the TypeKeys on the current expansion path.
	expanding map[string]bool
}

// render produces the member-position schema text for d: what appears
// between a member's open and close tags.
func (r *renderer) render(d *descriptor.Descriptor) string {
	switch d.Kind {
	case descriptor.KindBool:
		return boolSchema
	case descriptor.KindInt:
		return intSchema
	case descriptor.KindUint:
		return uintSchema
	case descriptor.KindFloat:
		return floatSchema
	case descriptor.KindString:
		return stringSchema

	case descriptor.KindOptional:
		return "Optional. If no value is provided, do not include this tag at all. If provided, the content is: " + r.render(d.Elem)

	case descriptor.KindSequence:
		return "A series (0 or more elements) of items where each item has the following format:\n" +
			OpenTag(ItemTag) + "\n" + indent(r.render(d.Elem)) + "\n" + CloseTag(ItemTag) + "\n" +
			"NOTICE: even a single item must be enclosed within <item></item> tags. An empty series has no <item> tags at all."

	case descriptor.KindMap:
		return "A sequence of key-value pairs, where each key is: " + r.render(d.Key) +
			"\nand each value is: " + r.render(d.Value) +
			"\nThe format is " + OpenTag(EntryTag) + OpenTag(KeyTag) + "{key}" + CloseTag(KeyTag) +
			OpenTag(ValueTag) + "{value}" + CloseTag(ValueTag) + CloseTag(EntryTag) +
			", and this structure can be repeated multiple times."

	case descriptor.KindRecord:
		return r.renderRecord(d)

	case descriptor.KindUnion:
		return r.renderUnion(d)

	case descriptor.KindShadow:
		return shadowNotice(d.Ref)
	}
	return ""
}

func (r *renderer) renderRecord(d *descriptor.Descriptor) string {
	key := d.TypeKey()
	if r.expanding[key] {
		return shadowNotice(d.Name)
	}
	r.expanding[key] = true
	defer delete(r.expanding, key)

	parts := make([]string, 0, len(d.Fields))
	for _, f := range d.Fields {
		parts = append(parts, memberBlock(f.Name, r.render(f.Type), f.Description))
	}
	return strings.Join(parts, "\n")
}

func (r *renderer) renderUnion(d *descriptor.Descriptor) string {
	key := d.TypeKey()
	if r.expanding[key] {
		return shadowNotice(d.Name)
	}
	r.expanding[key] = true
	defer delete(r.expanding, key)

	parts := []string{"Exactly one of the following alternative tags must be produced:"}
	for _, v := range d.Variants {
		if v.Type.Kind == descriptor.KindRecord && len(v.Type.Fields) == 0 {
			// Empty variant payloads collapse to a bare tag.
			parts = append(parts, withComment("<"+v.Name+"/>", v.Description))
			continue
		}
		parts = append(parts, memberBlock(v.Name, r.render(v.Type), v.Description))
	}
	return strings.Join(parts, "\n")
}

// memberBlock renders one member tag with its inner schema indented and
// an inline comment carrying the description, if present.
func memberBlock(name, inner, desc string) string {
	var block string
	if inner == "" {
		block = OpenTag(name) + CloseTag(name)
	} else {
		block = OpenTag(name) + "\n" + indent(inner) + "\n" + CloseTag(name)
	}
	return withComment(block, desc)
}

func withComment(block, desc string) string {
	if desc == "" {
		return block
	}
	return block + " <!-- " + desc + " -->"
}

func shadowNotice(name string) string {
	return "<!-- a nested " + name + " structure, with the same member tags as described for " + name + " -->"
}

func indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = "  " + line
	}
	return strings.Join(lines, "\n")
}
