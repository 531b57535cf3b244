package decode

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/BaSui01/xmlcast/descriptor"
	"github.com/BaSui01/xmlcast/schema"
	"github.com/BaSui01/xmlcast/types"
)

// Options tunes the tolerance of the decoder.
type Options struct {
	// BoolSynonyms maps lowercase tokens to boolean values. When nil,
	// DefaultBoolSynonyms is used. The table always applies
	// case-insensitively to the trimmed token.
	BoolSynonyms map[string]bool
}

// DefaultBoolSynonyms returns the built-in boolean token table. It
// covers the documented true/false, yes/no and 1/0 forms plus
// natural-language synonyms the model tends to produce, including the
// Chinese 真/假 pair. The empty token decodes to false.
func DefaultBoolSynonyms() map[string]bool {
	return map[string]bool{
		"true": true, "1": true, "yes": true, "y": true, "t": true,
		"on": true, "真": true, "checked": true, "selected": true,
		"false": false, "0": false, "no": false, "n": false, "f": false,
		"off": false, "假": false, "null": false, "none": false, "": false,
	}
}

// Decoder converts parsed documents into typed values.
type Decoder struct {
	boolSynonyms map[string]bool
}

// NewDecoder creates a decoder with default options.
func NewDecoder() *Decoder {
	return NewDecoderWithOptions(Options{})
}

// NewDecoderWithOptions creates a decoder with the given options.
func NewDecoderWithOptions(opts Options) *Decoder {
	syn := opts.BoolSynonyms
	if syn == nil {
		syn = DefaultBoolSynonyms()
	}
	return &Decoder{boolSynonyms: syn}
}

// Unmarshal parses the extracted document and decodes it into v, which
// must be a non-nil pointer to a value of the descriptor's type.
// Failures are reported as *types.DecodeError carrying the member path
// from the root, the offending raw text and a short cause.
func (d *Decoder) Unmarshal(desc *descriptor.Descriptor, doc string, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return &types.DescriptorError{Type: fmt.Sprintf("%T", v), Cause: "decode target must be a non-nil pointer"}
	}
	root, err := Parse(doc)
	if err != nil {
		return types.NewDecodeError(desc.Name, doc, err.Error())
	}
	return d.decode(desc, root, rv.Elem(), "")
}

func (d *Decoder) decode(desc *descriptor.Descriptor, node *Node, out reflect.Value, path string) error {
	switch desc.Kind {
	case descriptor.KindBool:
		return d.decodeBool(node, out, path)
	case descriptor.KindInt:
		return d.decodeInt(node, out, path)
	case descriptor.KindUint:
		return d.decodeUint(node, out, path)
	case descriptor.KindFloat:
		return d.decodeFloat(node, out, path)
	case descriptor.KindString:
		return d.decodeString(node, out, path)
	case descriptor.KindOptional:
		return d.decodeOptional(desc, node, out, path)
	case descriptor.KindSequence:
		return d.decodeSequence(desc, node, out, path)
	case descriptor.KindMap:
		return d.decodeMap(desc, node, out, path)
	case descriptor.KindRecord:
		return d.decodeRecord(desc, node, out, path)
	case descriptor.KindUnion:
		return d.decodeUnion(desc, node, out, path)
	}
	return types.NewDecodeError(path, "", "cannot decode kind "+desc.Kind.String())
}

func (d *Decoder) decodeBool(node *Node, out reflect.Value, path string) error {
	token := strings.ToLower(strings.TrimSpace(unquote(node.Flat())))
	val, ok := d.boolSynonyms[token]
	if !ok {
		return types.NewDecodeError(path, node.Flat(), fmt.Sprintf("cannot parse %q as a boolean value", token))
	}
	out.SetBool(val)
	return nil
}

func (d *Decoder) decodeInt(node *Node, out reflect.Value, path string) error {
	token := numericToken(node)
	v, err := strconv.ParseInt(token, 10, out.Type().Bits())
	if err != nil {
		return types.NewDecodeError(path, node.Flat(), fmt.Sprintf("cannot parse %q as an integer value", token))
	}
	out.SetInt(v)
	return nil
}

func (d *Decoder) decodeUint(node *Node, out reflect.Value, path string) error {
	token := numericToken(node)
	v, err := strconv.ParseUint(token, 10, out.Type().Bits())
	if err != nil {
		return types.NewDecodeError(path, node.Flat(), fmt.Sprintf("cannot parse %q as a non-negative integer value", token))
	}
	out.SetUint(v)
	return nil
}

func (d *Decoder) decodeFloat(node *Node, out reflect.Value, path string) error {
	token := numericToken(node)
	v, err := strconv.ParseFloat(token, out.Type().Bits())
	if err != nil {
		return types.NewDecodeError(path, node.Flat(), fmt.Sprintf("cannot parse %q as a float value", token))
	}
	out.SetFloat(v)
	return nil
}

func (d *Decoder) decodeString(node *Node, out reflect.Value, path string) error {
	if !node.HasCData() {
		return types.NewDecodeError(path, strings.TrimSpace(node.Text),
			"string content must be enclosed in a <![CDATA[...]]> block")
	}
	out.SetString(strings.Join(node.CData, ""))
	return nil
}

func (d *Decoder) decodeOptional(desc *descriptor.Descriptor, node *Node, out reflect.Value, path string) error {
	// Presence was already established by the enclosing record; a
	// present tag always delegates to the inner decoder, even when
	// its content is empty.
	ptr := reflect.New(desc.Elem.GoType)
	if err := d.decode(desc.Elem, node, ptr.Elem(), path); err != nil {
		return err
	}
	out.Set(ptr)
	return nil
}

func (d *Decoder) decodeSequence(desc *descriptor.Descriptor, node *Node, out reflect.Value, path string) error {
	items := node.ChildrenNamed(schema.ItemTag)

	if out.Kind() == reflect.Array {
		if len(items) != out.Len() {
			return types.NewDecodeError(path, node.Flat(),
				fmt.Sprintf("expected exactly %d <item> tags, found %d", out.Len(), len(items)))
		}
		for i, item := range items {
			if err := d.decode(desc.Elem, item, out.Index(i), fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
		return nil
	}

	slice := reflect.MakeSlice(desc.GoType, len(items), len(items))
	for i, item := range items {
		if err := d.decode(desc.Elem, item, slice.Index(i), fmt.Sprintf("%s[%d]", path, i)); err != nil {
			return err
		}
	}
	out.Set(slice)
	return nil
}

// decodeMap decodes each <entry> pair via the key and value decoders.
// Duplicate keys are not deduplicated up front: the last-seen value for
// a key wins, consistently.
func (d *Decoder) decodeMap(desc *descriptor.Descriptor, node *Node, out reflect.Value, path string) error {
	entries := node.ChildrenNamed(schema.EntryTag)
	m := reflect.MakeMapWithSize(desc.GoType, len(entries))

	for i, entry := range entries {
		entryPath := fmt.Sprintf("%s.entry[%d]", path, i)
		keyNode := entry.Child(schema.KeyTag)
		if keyNode == nil {
			return types.NewDecodeError(entryPath, entry.Text, "entry is missing its <key> tag")
		}
		valNode := entry.Child(schema.ValueTag)
		if valNode == nil {
			return types.NewDecodeError(entryPath, entry.Text, "entry is missing its <value> tag")
		}

		key := reflect.New(desc.Key.GoType).Elem()
		if err := d.decode(desc.Key, keyNode, key, entryPath+".key"); err != nil {
			return err
		}
		val := reflect.New(desc.Value.GoType).Elem()
		if err := d.decode(desc.Value, valNode, val, entryPath+".value"); err != nil {
			return err
		}
		m.SetMapIndex(key, val)
	}
	out.Set(m)
	return nil
}

func (d *Decoder) decodeRecord(desc *descriptor.Descriptor, node *Node, out reflect.Value, path string) error {
	for _, f := range desc.Fields {
		fieldPath := joinPath(path, f.Name)
		child := node.Child(f.Name)
		if child == nil {
			if f.Type.Kind == descriptor.KindOptional {
				// Absence of the tag means "no value".
				out.Field(f.Index).Set(reflect.Zero(f.Type.GoType))
				continue
			}
			return types.NewDecodeError(fieldPath, "", "missing member tag <"+f.Name+">")
		}
		if err := d.decode(f.Type, child, out.Field(f.Index), fieldPath); err != nil {
			return err
		}
	}
	return nil
}

func (d *Decoder) decodeUnion(desc *descriptor.Descriptor, node *Node, out reflect.Value, path string) error {
	var present []int
	for i, v := range desc.Variants {
		if node.Child(v.Name) != nil {
			present = append(present, i)
		}
	}
	switch len(present) {
	case 0:
		return types.NewDecodeError(path, strings.TrimSpace(node.Text),
			"no variant tag present; exactly one of "+variantNames(desc)+" is required")
	case 1:
	default:
		return types.NewDecodeError(path, strings.TrimSpace(node.Text),
			"multiple variant tags present; exactly one of "+variantNames(desc)+" is required")
	}

	v := desc.Variants[present[0]]
	ptr := reflect.New(v.Type.GoType)
	if err := d.decode(v.Type, node.Child(v.Name), ptr.Elem(), joinPath(path, v.Name)); err != nil {
		return err
	}
	out.Field(v.Index).Set(ptr)
	return nil
}

// numericToken extracts the numeric literal from an element, accepting
// both bare literals and the same literal wrapped in a character-data
// or quoted form.
func numericToken(node *Node) string {
	return strings.TrimSpace(unquote(strings.TrimSpace(node.Flat())))
}

// unquote strips one pair of matching single or double quotes.
func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

func joinPath(parent, member string) string {
	if parent == "" {
		return member
	}
	return parent + "." + member
}

func variantNames(desc *descriptor.Descriptor) string {
	names := make([]string, len(desc.Variants))
	for i, v := range desc.Variants {
		names[i] = "<" + v.Name + ">"
	}
	return strings.Join(names, ", ")
}
