package codec

import (
	"reflect"
	"sort"

	"github.com/wouanagaine/treecodec/internal/codecerr"
	"github.com/wouanagaine/treecodec/internal/registry"
	"github.com/wouanagaine/treecodec/internal/value"
)

// Serialize converts a typed value into the intermediate tree. When
// specifyType is set and v is struct-like, the emitted record carries the
// type's registered name under the reserved key so a later deserialization
// can infer the concrete type without a static target.
func (c *Codec) Serialize(v any, specifyType bool) (*value.Value, error) {
	if v == nil {
		return c.serializeNull()
	}
	return c.serialize(reflect.ValueOf(v), specifyType)
}

func (c *Codec) serializeNull() (*value.Value, error) {
	if c.opts.ErrorOnSerializingNull {
		return nil, codecerr.New(codecerr.KindUnexpectedNull, "refusing to serialize a null value")
	}
	return value.Null(), nil
}

func (c *Codec) serialize(rv reflect.Value, specifyType bool) (*value.Value, error) {
	// Unwrap interfaces and pointers down to the concrete value.
	for rv.Kind() == reflect.Interface || rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return c.serializeNull()
		}
		rv = rv.Elem()
	}

	d := c.reg.DescriptorOf(rv.Type())
	switch d.Kind {
	case registry.ContainerEnum:
		return value.Number(enumOrdinal(rv)), nil
	case registry.ContainerScalar:
		return serializeScalar(rv)
	case registry.ContainerMap:
		return c.serializeMap(rv, d)
	case registry.ContainerSequence:
		return c.serializeSequence(rv, d)
	default:
		return c.serializeStruct(rv, d, specifyType)
	}
}

// enumOrdinal returns the underlying integral ordinal of an enum-like value.
func enumOrdinal(rv reflect.Value) float64 {
	switch rv.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint())
	default:
		return float64(rv.Int())
	}
}

// serializeScalar passes booleans and strings through and coerces every
// numeric kind to the single double-precision representation.
func serializeScalar(rv reflect.Value) (*value.Value, error) {
	switch rv.Kind() {
	case reflect.Bool:
		return value.Bool(rv.Bool()), nil
	case reflect.String:
		return value.String(rv.String()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return value.Number(float64(rv.Int())), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return value.Number(float64(rv.Uint())), nil
	case reflect.Float32, reflect.Float64:
		return value.Number(rv.Float()), nil
	default:
		return nil, codecerr.Newf(codecerr.KindEncode, "cannot serialize kind %s", rv.Kind())
	}
}

// serializeMap emits a record with one entry per map key. Keys are emitted
// in sorted order because Go map iteration is randomized. Entries whose
// declared value type does not pin down a concrete type get their own
// embedded type tag.
func (c *Codec) serializeMap(rv reflect.Value, d *registry.TypeDescriptor) (*value.Value, error) {
	if rv.Type().Key().Kind() != reflect.String {
		return nil, codecerr.Newf(codecerr.KindEncode, "map key type %s is not a string", rv.Type().Key())
	}
	nested := d.Elem.Kind() == reflect.Interface

	keys := make([]string, 0, rv.Len())
	byKey := make(map[string]reflect.Value, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		k := iter.Key().String()
		keys = append(keys, k)
		byKey[k] = iter.Value()
	}
	sort.Strings(keys)

	rec := value.NewRecord()
	for _, k := range keys {
		child, err := c.serialize(byKey[k], nested)
		if err != nil {
			return nil, err
		}
		rec.Set(k, child)
	}
	return rec, nil
}

// serializeSequence emits the elements in order, tagging each one only when
// the declared element type is polymorphic.
func (c *Codec) serializeSequence(rv reflect.Value, d *registry.TypeDescriptor) (*value.Value, error) {
	nested := d.Elem.Kind() == reflect.Interface
	seq := value.NewSequence()
	for i := 0; i < rv.Len(); i++ {
		child, err := c.serialize(rv.Index(i), nested)
		if err != nil {
			return nil, err
		}
		seq.Append(child)
	}
	return seq, nil
}

// serializeStruct emits the exported fields in declaration order. With
// diffing enabled, a field is emitted only when it is non-null and differs
// from the same field on the type's default instance. Field values never
// carry their own type tag: the declared field type is assumed to pin down
// the concrete type, so a concrete-typed field holding a subtype value will
// not round-trip.
func (c *Codec) serializeStruct(rv reflect.Value, d *registry.TypeDescriptor, specifyType bool) (*value.Value, error) {
	rec := value.NewRecord()
	if specifyType {
		rec.Set(c.opts.TypeKey, value.String(d.Name))
	}

	var def reflect.Value
	if c.opts.SkipDefaults {
		var err error
		def, err = c.reg.DefaultInstance(rv.Type())
		if err != nil {
			return nil, err
		}
	}

	for i := range d.Fields {
		f := &d.Fields[i]
		raw := f.Get(rv)

		if c.opts.SkipDefaults {
			if isNilValue(raw) {
				continue
			}
			if reflect.DeepEqual(raw.Interface(), f.Get(def).Interface()) {
				continue
			}
		}

		child, err := c.serialize(raw, false)
		if err != nil {
			return nil, err
		}
		rec.Set(f.Name, child)
	}
	return rec, nil
}

// isNilValue reports whether rv holds a nil of a nilable kind.
func isNilValue(rv reflect.Value) bool {
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice:
		return rv.IsNil()
	default:
		return false
	}
}
