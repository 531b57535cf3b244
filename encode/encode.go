// Package encode renders a Go value under the library's tag
// convention. The output decodes back to an equal value and is also
// used to derive the "valid example" shown to the model on correction
// turns.
package encode

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/BaSui01/xmlcast/descriptor"
	"github.com/BaSui01/xmlcast/schema"
	"github.com/BaSui01/xmlcast/types"
)

// Marshal renders v as a complete document, root tag included.
func Marshal(v any) (string, error) {
	desc, err := descriptor.OfValue(v)
	if err != nil {
		return "", err
	}
	return MarshalDescriptor(desc, reflect.ValueOf(v))
}

// MarshalDescriptor renders rv, whose type is described by desc, as a
// complete document enclosed in the descriptor's root tag.
func MarshalDescriptor(desc *descriptor.Descriptor, rv reflect.Value) (string, error) {
	var b strings.Builder
	b.WriteString(schema.OpenTag(desc.Name))
	if err := writeValue(&b, desc, rv, ""); err != nil {
		return "", err
	}
	b.WriteString(schema.CloseTag(desc.Name))
	return b.String(), nil
}

// writeValue renders the content between a member's open and close
// tags.
func writeValue(b *strings.Builder, desc *descriptor.Descriptor, rv reflect.Value, path string) error {
	switch desc.Kind {
	case descriptor.KindBool:
		b.WriteString(strconv.FormatBool(rv.Bool()))

	case descriptor.KindInt:
		b.WriteString(strconv.FormatInt(rv.Int(), 10))

	case descriptor.KindUint:
		b.WriteString(strconv.FormatUint(rv.Uint(), 10))

	case descriptor.KindFloat:
		b.WriteString(strconv.FormatFloat(rv.Float(), 'g', -1, rv.Type().Bits()))

	case descriptor.KindString:
		b.WriteString(schema.WrapCDATA(rv.String()))

	case descriptor.KindOptional:
		// Presence is the enclosing tag itself; a nil value never
		// reaches here because the record writer omits the tag.
		if rv.IsNil() {
			return nil
		}
		return writeValue(b, desc.Elem, rv.Elem(), path)

	case descriptor.KindSequence:
		for i := 0; i < rv.Len(); i++ {
			b.WriteString(schema.OpenTag(schema.ItemTag))
			if err := writeValue(b, desc.Elem, rv.Index(i), fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
			b.WriteString(schema.CloseTag(schema.ItemTag))
		}

	case descriptor.KindMap:
		// Pair order follows the source collection's iteration order.
		iter := rv.MapRange()
		for iter.Next() {
			b.WriteString(schema.OpenTag(schema.EntryTag))
			b.WriteString(schema.OpenTag(schema.KeyTag))
			if err := writeValue(b, desc.Key, iter.Key(), path+".key"); err != nil {
				return err
			}
			b.WriteString(schema.CloseTag(schema.KeyTag))
			b.WriteString(schema.OpenTag(schema.ValueTag))
			if err := writeValue(b, desc.Value, iter.Value(), path+".value"); err != nil {
				return err
			}
			b.WriteString(schema.CloseTag(schema.ValueTag))
			b.WriteString(schema.CloseTag(schema.EntryTag))
		}

	case descriptor.KindRecord:
		for _, f := range desc.Fields {
			fv := rv.Field(f.Index)
			if f.Type.Kind == descriptor.KindOptional && fv.IsNil() {
				// Absent optional values omit the tag entirely.
				continue
			}
			b.WriteString(schema.OpenTag(f.Name))
			if err := writeValue(b, f.Type, fv, joinPath(path, f.Name)); err != nil {
				return err
			}
			b.WriteString(schema.CloseTag(f.Name))
		}

	case descriptor.KindUnion:
		var chosen *descriptor.Variant
		for i := range desc.Variants {
			if !rv.Field(desc.Variants[i].Index).IsNil() {
				if chosen != nil {
					return &types.DescriptorError{
						Type:  desc.GoType.String(),
						Cause: "union value has more than one variant set",
					}
				}
				chosen = &desc.Variants[i]
			}
		}
		if chosen == nil {
			return &types.DescriptorError{
				Type:  desc.GoType.String(),
				Cause: "union value has no variant set",
			}
		}
		b.WriteString(schema.OpenTag(chosen.Name))
		if err := writeValue(b, chosen.Type, rv.Field(chosen.Index).Elem(), joinPath(path, chosen.Name)); err != nil {
			return err
		}
		b.WriteString(schema.CloseTag(chosen.Name))

	default:
		return &types.DescriptorError{Type: desc.Name, Cause: "cannot encode kind " + desc.Kind.String()}
	}
	return nil
}

func joinPath(parent, member string) string {
	if parent == "" {
		return member
	}
	return parent + "." + member
}
