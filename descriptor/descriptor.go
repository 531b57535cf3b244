// Package descriptor models the shape of Go declarations for schema
// generation and tolerant decoding.
//
// A Descriptor is a static, per-type description: a root tag name, a
// kind, and, for record and union types, an ordered list of member
// descriptors, each carrying a tag name, an optional human-readable
// description, and a reference to the member's own Descriptor. The
// reference graph may be cyclic for self-referential declarations; the
// schema renderer terminates cycles with shadow references.
package descriptor

import "reflect"

// Kind classifies a descriptor.
type Kind uint8

const (
	KindBool Kind = iota
	KindInt
	KindUint
	KindFloat
	KindString
	KindRecord
	KindUnion
	KindSequence
	KindMap
	KindOptional
	KindShadow
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindRecord:
		return "record"
	case KindUnion:
		return "union"
	case KindSequence:
		return "sequence"
	case KindMap:
		return "map"
	case KindOptional:
		return "optional"
	case KindShadow:
		return "shadow"
	}
	return "unknown"
}

// Union is an embeddable marker. A struct embedding Union is treated as
// a tagged union: each exported pointer field is a variant and exactly
// one variant must be present in a decoded document.
type Union struct{}

// Field describes one member of a record, in declaration order.
type Field struct {
	// Name is the tag name used on the wire.
	Name string
	// Description is the optional guidance shown to the model.
	Description string
	// Type is the member's own descriptor. May point back into the
	// current type graph for recursive declarations.
	Type *Descriptor
	// Index is the reflect struct field index.
	Index int
}

// Variant describes one alternative of a tagged union.
type Variant struct {
	Name        string
	Description string
	Type        *Descriptor
	Index       int
}

// Descriptor is the static shape description for one Go type.
type Descriptor struct {
	// Name is the root tag name (type name for records and unions,
	// a fixed leaf name otherwise).
	Name string
	Kind Kind

	// GoType is the described type. Nil only for shadows.
	GoType reflect.Type

	// Fields, for KindRecord, in declaration order.
	Fields []Field
	// Variants, for KindUnion, in declaration order.
	Variants []Variant

	// Elem is the element descriptor for KindSequence and the inner
	// descriptor for KindOptional.
	Elem *Descriptor
	// Key and Value are set for KindMap.
	Key   *Descriptor
	Value *Descriptor

	// Ref is the referenced root name, for KindShadow.
	Ref string
}

// TypeKey returns the stable identity key for this descriptor, used by
// the schema cache. It is derived from the full Go type syntax so distinct
// types never collide.
func (d *Descriptor) TypeKey() string {
	if d.GoType == nil {
		return "shadow:" + d.Ref
	}
	if pp := d.GoType.PkgPath(); pp != "" {
		return pp + "." + d.GoType.Name()
	}
	return d.GoType.String()
}

// Shadow returns a non-expanding placeholder referencing this
// descriptor. It renders as a short reference notice instead of
// expanding the referenced type's members.
func (d *Descriptor) Shadow() *Descriptor {
	return &Descriptor{Name: d.Name, Kind: KindShadow, Ref: d.Name}
}

// IsLeaf reports whether the descriptor has no member structure.
func (d *Descriptor) IsLeaf() bool {
	switch d.Kind {
	case KindBool, KindInt, KindUint, KindFloat, KindString:
		return true
	}
	return false
}
