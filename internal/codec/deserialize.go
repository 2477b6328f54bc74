package codec

import (
	"math"
	"reflect"
	"strconv"

	"github.com/iancoleman/strcase"
	"github.com/wouanagaine/treecodec/internal/codecerr"
	"github.com/wouanagaine/treecodec/internal/registry"
	"github.com/wouanagaine/treecodec/internal/value"
)

// Generic container types used when a structured value carries no embedded
// type name and no target is specified.
var (
	genericMapType = reflect.TypeOf(map[string]any(nil))
	genericSeqType = reflect.TypeOf([]any(nil))
)

// Deserialize converts an intermediate tree back into a typed value. target
// may be nil (or the universal any type) to let the tree drive inference:
// records carrying the reserved type key resolve through the registry,
// untagged records become map[string]any, sequences become []any, and bare
// scalars pass through.
func (c *Codec) Deserialize(val *value.Value, target reflect.Type) (any, error) {
	out, err := c.deserialize(val, target)
	if err != nil {
		return nil, err
	}
	if !out.IsValid() {
		return nil, nil
	}
	return out.Interface(), nil
}

// deserialize returns an invalid reflect.Value to signal a null result.
func (c *Codec) deserialize(val *value.Value, target reflect.Type) (reflect.Value, error) {
	// The universal placeholder and interface targets leave the concrete
	// type to the value itself.
	if target != nil && target.Kind() == reflect.Interface {
		target = nil
	}

	// Null deserializes to null regardless of target.
	if val.IsNull() {
		if target == nil {
			return reflect.Value{}, nil
		}
		return reflect.Zero(target), nil
	}

	// Pointer targets fill a freshly allocated pointee.
	if target != nil && target.Kind() == reflect.Ptr {
		elem, err := c.deserialize(val, target.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		ptr := reflect.New(target.Elem())
		if elem.IsValid() {
			ptr.Elem().Set(elem)
		}
		return ptr, nil
	}

	if target != nil {
		d := c.reg.DescriptorOf(target)
		switch d.Kind {
		case registry.ContainerEnum:
			return c.deserializeEnum(val, d)
		case registry.ContainerScalar:
			return c.coerceScalar(val, target)
		}
		return c.deserializeStructured(val, d)
	}

	// No target: canonical scalars pass through unchanged.
	switch val.Kind() {
	case value.KindBool:
		return reflect.ValueOf(val.BoolVal()), nil
	case value.KindNumber:
		return reflect.ValueOf(val.NumberVal()), nil
	case value.KindString:
		return reflect.ValueOf(val.StringVal()), nil
	}
	return c.deserializeStructured(val, nil)
}

// deserializeEnum parses a string as a case-insensitive member name and
// coerces anything else to an integer ordinal.
func (c *Codec) deserializeEnum(val *value.Value, d *registry.TypeDescriptor) (reflect.Value, error) {
	if val.Kind() == value.KindString {
		ordinal, ok := d.EnumLookup(val.StringVal())
		if !ok {
			if c.opts.ErrorOnUnknownTypes {
				return reflect.Value{}, codecerr.Newf(codecerr.KindUnknownType,
					"%q is not a member of enum %s", val.StringVal(), d.Name)
			}
			return reflect.Zero(d.Type), nil
		}
		out := reflect.New(d.Type).Elem()
		setInt(out, ordinal)
		return out, nil
	}

	num, err := c.coerceScalar(val, reflect.TypeOf(int64(0)))
	if err != nil {
		return reflect.Value{}, err
	}
	if !num.IsValid() {
		return reflect.Zero(d.Type), nil
	}
	out := reflect.New(d.Type).Elem()
	setInt(out, num.Int())
	return out, nil
}

func setInt(out reflect.Value, ordinal int64) {
	switch out.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		out.SetUint(uint64(ordinal))
	default:
		out.SetInt(ordinal)
	}
}

// deserializeStructured infers the concrete type when needed, constructs an
// instance through the registry, and dispatches on the container kind.
func (c *Codec) deserializeStructured(val *value.Value, d *registry.TypeDescriptor) (reflect.Value, error) {
	// An embedded type name wins over the static target; without either,
	// records and sequences fall back to the generic containers.
	if tag, ok := val.Get(c.opts.TypeKey); ok && tag.Kind() == value.KindString {
		resolved, err := c.reg.ResolveTypeName(tag.StringVal())
		if err != nil {
			if c.opts.ErrorOnUnknownTypes {
				return reflect.Value{}, err
			}
			return reflect.Value{}, nil
		}
		d = resolved
	}
	if d == nil {
		switch val.Kind() {
		case value.KindRecord:
			d = c.reg.DescriptorOf(genericMapType)
		case value.KindSequence:
			d = c.reg.DescriptorOf(genericSeqType)
		default:
			// Bare scalar with no target: the raw value passes through.
			return c.deserialize(val, nil)
		}
	}

	switch d.Kind {
	case registry.ContainerMap:
		return c.deserializeMap(val, d)
	case registry.ContainerSequence:
		return c.deserializeSequence(val, d)
	case registry.ContainerStruct:
		return c.deserializeStruct(val, d)
	case registry.ContainerEnum:
		return c.deserializeEnum(val, d)
	default:
		return c.coerceScalar(val, d.Type)
	}
}

// deserializeMap fills a new map instance, deserializing every entry with
// the container's declared value type.
func (c *Codec) deserializeMap(val *value.Value, d *registry.TypeDescriptor) (reflect.Value, error) {
	if val.Kind() != value.KindRecord {
		if c.opts.ErrorOnUnexpectedCollections {
			return reflect.Value{}, codecerr.Newf(codecerr.KindUnexpectedCollection,
				"expected a record for %s, got %s", d.Name, val.Kind())
		}
		return reflect.Value{}, nil
	}

	if d.Type.Key().Kind() != reflect.String {
		return reflect.Value{}, codecerr.Newf(codecerr.KindUnconstructibleType,
			"map key type %s is not a string", d.Type.Key())
	}

	inst, err := c.reg.CreateInstance(d.Type, val.Len())
	if err != nil {
		return reflect.Value{}, err
	}
	elemType := d.Elem
	for _, e := range val.Entries() {
		if e.Key == c.opts.TypeKey {
			continue
		}
		child, err := c.deserialize(e.Value, elemType)
		if err != nil {
			return reflect.Value{}, err
		}
		elem, err := conform(child, elemType)
		if err != nil {
			return reflect.Value{}, err
		}
		inst.SetMapIndex(reflect.ValueOf(e.Key).Convert(d.Type.Key()), elem)
	}
	return inst, nil
}

// deserializeSequence fills a new sequence instance: growable slices are
// appended to, fixed-length arrays are assigned by index.
func (c *Codec) deserializeSequence(val *value.Value, d *registry.TypeDescriptor) (reflect.Value, error) {
	if val.Kind() != value.KindSequence {
		if c.opts.ErrorOnUnexpectedCollections {
			return reflect.Value{}, codecerr.Newf(codecerr.KindUnexpectedCollection,
				"expected a sequence for %s, got %s", d.Name, val.Kind())
		}
		return reflect.Value{}, nil
	}

	inst, err := c.reg.CreateInstance(d.Type, val.Len())
	if err != nil {
		return reflect.Value{}, err
	}
	elemType := d.Elem
	for i, childVal := range val.Elements() {
		child, err := c.deserialize(childVal, elemType)
		if err != nil {
			return reflect.Value{}, err
		}
		elem, err := conform(child, elemType)
		if err != nil {
			return reflect.Value{}, err
		}
		if d.FixedLen {
			if i >= inst.Len() {
				break
			}
			inst.Index(i).Set(elem)
		} else {
			inst = reflect.Append(inst, elem)
		}
	}
	return inst, nil
}

// deserializeStruct fills a new struct instance field by field. The
// reserved type key is skipped; unknown keys are spurious data.
func (c *Codec) deserializeStruct(val *value.Value, d *registry.TypeDescriptor) (reflect.Value, error) {
	if val.Kind() != value.KindRecord {
		return reflect.Value{}, codecerr.Newf(codecerr.KindNotAStruct,
			"expected a record for %s, got %s", d.Name, val.Kind())
	}

	inst, err := c.reg.CreateInstance(d.Type, 0)
	if err != nil {
		return reflect.Value{}, err
	}
	for _, e := range val.Entries() {
		if e.Key == c.opts.TypeKey {
			continue
		}
		f, ok := d.FieldByName(e.Key)
		if !ok {
			// Wire keys may be snake or kebab cased.
			f, ok = d.FieldByName(strcase.ToCamel(e.Key))
		}
		if !ok {
			if c.opts.ErrorOnSpuriousData {
				return reflect.Value{}, codecerr.Newf(codecerr.KindSpuriousField,
					"%s has no field %q", d.Name, e.Key)
			}
			continue
		}

		child, err := c.deserialize(e.Value, f.Type)
		if err != nil {
			return reflect.Value{}, err
		}
		fieldVal, err := conform(child, f.Type)
		if err != nil {
			return reflect.Value{}, err
		}
		f.Set(inst, fieldVal)
	}
	return inst, nil
}

// coerceScalar converts a scalar tree value into the target primitive type.
// Collections never coerce to scalars.
func (c *Codec) coerceScalar(val *value.Value, target reflect.Type) (reflect.Value, error) {
	if val.Kind() == value.KindSequence || val.Kind() == value.KindRecord {
		if c.opts.ErrorOnUnexpectedCollections {
			return reflect.Value{}, codecerr.Newf(codecerr.KindUnexpectedCollection,
				"cannot convert a %s into %s", val.Kind(), target)
		}
		return reflect.Value{}, nil
	}

	out := reflect.New(target).Elem()
	switch target.Kind() {
	case reflect.Bool:
		b, err := scalarToBool(val)
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetBool(b)
	case reflect.String:
		out.SetString(scalarToString(val))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		f, err := scalarToFloat(val)
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetInt(int64(f))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		f, err := scalarToFloat(val)
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetUint(uint64(f))
	case reflect.Float32, reflect.Float64:
		f, err := scalarToFloat(val)
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetFloat(f)
	default:
		return reflect.Value{}, codecerr.Newf(codecerr.KindUnconstructibleType,
			"cannot deserialize a scalar into %s", target)
	}
	return out, nil
}

func scalarToBool(val *value.Value) (bool, error) {
	switch val.Kind() {
	case value.KindBool:
		return val.BoolVal(), nil
	case value.KindNumber:
		return val.NumberVal() != 0, nil
	default:
		b, err := strconv.ParseBool(val.StringVal())
		if err != nil {
			return false, codecerr.Wrap(codecerr.KindParse,
				"cannot parse "+strconv.Quote(val.StringVal())+" as bool", err)
		}
		return b, nil
	}
}

func scalarToFloat(val *value.Value) (float64, error) {
	switch val.Kind() {
	case value.KindNumber:
		return val.NumberVal(), nil
	case value.KindBool:
		if val.BoolVal() {
			return 1, nil
		}
		return 0, nil
	default:
		f, err := strconv.ParseFloat(val.StringVal(), 64)
		if err != nil || math.IsNaN(f) {
			return 0, codecerr.Newf(codecerr.KindParse,
				"cannot parse %q as a number", val.StringVal())
		}
		return f, nil
	}
}

func scalarToString(val *value.Value) string {
	switch val.Kind() {
	case value.KindString:
		return val.StringVal()
	case value.KindBool:
		return strconv.FormatBool(val.BoolVal())
	default:
		return strconv.FormatFloat(val.NumberVal(), 'g', -1, 64)
	}
}

// conform fits a deserialized child value into a declared slot type: null
// children become the zero value and numeric kinds convert as needed.
func conform(child reflect.Value, slot reflect.Type) (reflect.Value, error) {
	if slot == nil {
		slot = anyType
	}
	if !child.IsValid() {
		return reflect.Zero(slot), nil
	}
	if child.Type().AssignableTo(slot) {
		return child, nil
	}
	if child.Type().ConvertibleTo(slot) {
		return child.Convert(slot), nil
	}
	return reflect.Value{}, codecerr.Newf(codecerr.KindUnconstructibleType,
		"cannot assign %s to %s", child.Type(), slot)
}
