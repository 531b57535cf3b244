package descriptor

import (
	"reflect"
	"strings"

	"github.com/BaSui01/xmlcast/types"
)

// Struct tags recognized by the builder:
//
//	cast:"name"  overrides the member's tag name; "-" skips the field
//	desc:"..."   is guidance shown to the model next to the member tag
//
// Pointer fields become optional members: absence of the tag decodes
// to nil, presence delegates to the inner type.

var unionMarker = reflect.TypeOf(Union{})

// Of builds the descriptor for t. It supports structs, tagged unions
// (structs embedding Union), slices, arrays, maps, pointers and the
// bool/integer/float/string leaves. Recursive and mutually recursive
// declarations are handled by an arena keyed on the reflect type, so
// re-entrant references resolve to the already-built descriptor
// instead of recursing forever.
func Of(t reflect.Type) (*Descriptor, error) {
	b := &builder{arena: make(map[reflect.Type]*Descriptor)}
	return b.build(t)
}

// OfValue builds the descriptor for the dynamic type of v.
func OfValue(v any) (*Descriptor, error) {
	if v == nil {
		return nil, &types.DescriptorError{Type: "nil", Cause: "cannot describe a nil value"}
	}
	return Of(reflect.TypeOf(v))
}

type builder struct {
	// arena maps each visited type to its (possibly still in
	// construction) descriptor, so cycles close on the same pointer.
	arena map[reflect.Type]*Descriptor
}

func (b *builder) build(t reflect.Type) (*Descriptor, error) {
	if t == nil {
		return nil, &types.DescriptorError{Type: "nil", Cause: "cannot describe a nil type"}
	}
	if d, ok := b.arena[t]; ok {
		return d, nil
	}

	switch t.Kind() {
	case reflect.Bool:
		return &Descriptor{Name: "bool", Kind: KindBool, GoType: t}, nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return &Descriptor{Name: "int", Kind: KindInt, GoType: t}, nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &Descriptor{Name: "uint", Kind: KindUint, GoType: t}, nil

	case reflect.Float32, reflect.Float64:
		return &Descriptor{Name: "float", Kind: KindFloat, GoType: t}, nil

	case reflect.String:
		return &Descriptor{Name: "string", Kind: KindString, GoType: t}, nil

	case reflect.Pointer:
		inner, err := b.build(t.Elem())
		if err != nil {
			return nil, err
		}
		return &Descriptor{Name: inner.Name, Kind: KindOptional, GoType: t, Elem: inner}, nil

	case reflect.Slice, reflect.Array:
		elem, err := b.build(t.Elem())
		if err != nil {
			return nil, err
		}
		return &Descriptor{Name: "list", Kind: KindSequence, GoType: t, Elem: elem}, nil

	case reflect.Map:
		key, err := b.build(t.Key())
		if err != nil {
			return nil, err
		}
		if !key.IsLeaf() {
			return nil, &types.DescriptorError{Type: t.String(), Cause: "map keys must be a leaf type"}
		}
		val, err := b.build(t.Elem())
		if err != nil {
			return nil, err
		}
		return &Descriptor{Name: "map", Kind: KindMap, GoType: t, Key: key, Value: val}, nil

	case reflect.Struct:
		if isUnion(t) {
			return b.buildUnion(t)
		}
		return b.buildRecord(t)
	}

	return nil, &types.DescriptorError{Type: t.String(), Cause: "unsupported kind " + t.Kind().String()}
}

func (b *builder) buildRecord(t reflect.Type) (*Descriptor, error) {
	d := &Descriptor{Name: rootName(t), Kind: KindRecord, GoType: t}
	// Register before descending so self-references close the cycle.
	b.arena[t] = d

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() || field.Anonymous {
			continue
		}
		name := castFieldName(field)
		if name == "-" {
			continue
		}
		ft, err := b.build(field.Type)
		if err != nil {
			return nil, err
		}
		d.Fields = append(d.Fields, Field{
			Name:        name,
			Description: field.Tag.Get("desc"),
			Type:        ft,
			Index:       i,
		})
	}
	return d, nil
}

func (b *builder) buildUnion(t reflect.Type) (*Descriptor, error) {
	d := &Descriptor{Name: rootName(t), Kind: KindUnion, GoType: t}
	b.arena[t] = d

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() || field.Anonymous {
			continue
		}
		name := castFieldName(field)
		if name == "-" {
			continue
		}
		if field.Type.Kind() != reflect.Pointer {
			return nil, &types.DescriptorError{
				Type:  t.String(),
				Cause: "union variant " + field.Name + " must be a pointer field",
			}
		}
		// The variant descriptor is the pointee's: presence is
		// already encoded by which variant tag appears.
		vt, err := b.build(field.Type.Elem())
		if err != nil {
			return nil, err
		}
		d.Variants = append(d.Variants, Variant{
			Name:        name,
			Description: field.Tag.Get("desc"),
			Type:        vt,
			Index:       i,
		})
	}
	if len(d.Variants) == 0 {
		return nil, &types.DescriptorError{Type: t.String(), Cause: "union has no variants"}
	}
	return d, nil
}

// isUnion reports whether t embeds the Union marker.
func isUnion(t reflect.Type) bool {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous && f.Type == unionMarker {
			return true
		}
	}
	return false
}

// rootName returns the root tag name for a named type, falling back to
// a fixed name for anonymous structs.
func rootName(t reflect.Type) string {
	if n := t.Name(); n != "" {
		return n
	}
	return "document"
}

// castFieldName extracts the tag name from the cast tag or falls back
// to the struct field name.
func castFieldName(field reflect.StructField) string {
	tag := field.Tag.Get("cast")
	if tag == "" {
		return field.Name
	}
	// Tag format: "name" or "name,options".
	name := strings.Split(tag, ",")[0]
	if name == "" {
		return field.Name
	}
	return name
}
