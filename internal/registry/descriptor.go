package registry

import (
	"fmt"
	"reflect"
	"strings"
)

// ContainerKind classifies a type for the codec engine. It is computed once
// per type, stored in the type's descriptor, and checked instead of repeated
// capability probing.
type ContainerKind uint8

const (
	ContainerScalar ContainerKind = iota
	ContainerEnum
	ContainerSequence
	ContainerMap
	ContainerStruct
)

// String returns the kind name.
func (k ContainerKind) String() string {
	switch k {
	case ContainerScalar:
		return "scalar"
	case ContainerEnum:
		return "enum"
	case ContainerSequence:
		return "sequence"
	case ContainerMap:
		return "map"
	case ContainerStruct:
		return "struct"
	default:
		return "unknown"
	}
}

// FieldDescriptor describes one exported struct field.
type FieldDescriptor struct {
	// Name is the Go field name; it is also the record key used on the wire.
	Name string
	// Type is the declared field type, driving recursive typed deserialization.
	Type reflect.Type

	index []int
}

// Get reads the field from a struct value.
func (f *FieldDescriptor) Get(structVal reflect.Value) reflect.Value {
	return structVal.FieldByIndex(f.index)
}

// Set writes the field on an addressable struct value.
func (f *FieldDescriptor) Set(structVal, fieldVal reflect.Value) {
	structVal.FieldByIndex(f.index).Set(fieldVal)
}

// TypeDescriptor is the cached structural description of a concrete type:
// its registered name, container kind, ordered exported fields, and (for
// collections) the declared element type.
type TypeDescriptor struct {
	// Name is the registered type name, falling back to the reflect name for
	// unregistered types.
	Name string
	// Type is the described Go type.
	Type reflect.Type
	// Kind is the container classification.
	Kind ContainerKind
	// Fields lists exported fields in declaration order. Only set for
	// ContainerStruct.
	Fields []FieldDescriptor
	// Elem is the declared element type of a sequence or the declared value
	// type of a map. Nil otherwise.
	Elem reflect.Type
	// FixedLen reports an array (fixed-length sequence) as opposed to a slice.
	FixedLen bool

	enum *enumInfo
}

// FieldByName returns the field descriptor with the given name, trying an
// exact match first and a case-insensitive match second.
func (d *TypeDescriptor) FieldByName(name string) (*FieldDescriptor, bool) {
	for i := range d.Fields {
		if d.Fields[i].Name == name {
			return &d.Fields[i], true
		}
	}
	for i := range d.Fields {
		if strings.EqualFold(d.Fields[i].Name, name) {
			return &d.Fields[i], true
		}
	}
	return nil, false
}

// EnumLookup resolves a case-insensitive member name to its ordinal. Only
// meaningful for ContainerEnum descriptors.
func (d *TypeDescriptor) EnumLookup(name string) (int64, bool) {
	if d.enum == nil {
		return 0, false
	}
	return d.enum.lookup(name)
}

// enumInfo holds the member table of an enum-like named integer type.
type enumInfo struct {
	byName map[string]int64 // lower-cased member name → ordinal
}

func (e *enumInfo) lookup(name string) (int64, bool) {
	ord, ok := e.byName[strings.ToLower(name)]
	return ord, ok
}

// describe computes a descriptor for t. Called once per type; the registry
// caches the result.
func (r *Registry) describe(t reflect.Type) *TypeDescriptor {
	d := &TypeDescriptor{Type: t, Name: r.displayName(t)}

	if info, ok := r.enums[t]; ok {
		d.Kind = ContainerEnum
		d.enum = info
		return d
	}

	switch t.Kind() {
	case reflect.Slice:
		d.Kind = ContainerSequence
		d.Elem = t.Elem()
	case reflect.Array:
		d.Kind = ContainerSequence
		d.Elem = t.Elem()
		d.FixedLen = true
	case reflect.Map:
		d.Kind = ContainerMap
		d.Elem = t.Elem()
	case reflect.Struct:
		d.Kind = ContainerStruct
		d.Fields = structFields(t)
	default:
		d.Kind = ContainerScalar
	}
	return d
}

// structFields collects the exported fields of t in declaration order.
// Unexported fields are not settable and do not participate.
func structFields(t reflect.Type) []FieldDescriptor {
	fields := make([]FieldDescriptor, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		fields = append(fields, FieldDescriptor{
			Name:  sf.Name,
			Type:  sf.Type,
			index: sf.Index,
		})
	}
	return fields
}

// displayName returns the registered name for t if it has one, otherwise the
// reflect name (or full string form for unnamed types).
func (r *Registry) displayName(t reflect.Type) string {
	if name, ok := r.names[t]; ok {
		return name
	}
	if t.Name() != "" {
		return t.Name()
	}
	return t.String()
}

// checkDescribable rejects type kinds the codec can never handle.
func checkDescribable(t reflect.Type) error {
	switch t.Kind() {
	case reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return fmt.Errorf("type %s cannot participate in the codec", t)
	}
	return nil
}
