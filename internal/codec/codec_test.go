package codec

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wouanagaine/treecodec/internal/codecerr"
	"github.com/wouanagaine/treecodec/internal/registry"
	"github.com/wouanagaine/treecodec/internal/value"
)

type item struct {
	SKU string
	Qty int
}

type order struct {
	Name   string
	Count  int
	Price  float64
	Active bool
	Tags   []string
	Items  []item
	Meta   map[string]string
	Ref    *item
}

type priority int

func newTestRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New()
	require.NoError(t, reg.Register("Item", item{}))
	require.NoError(t, reg.Register("Order", order{}))
	require.NoError(t, reg.RegisterEnum("Priority", priority(0), map[string]int64{
		"Low":    0,
		"Normal": 1,
		"High":   2,
	}))
	return reg
}

func TestSerializeScalars(t *testing.T) {
	c := New(newTestRegistry(t))

	tests := []struct {
		name string
		in   any
		want *value.Value
	}{
		{"bool", true, value.Bool(true)},
		{"string", "hello", value.String("hello")},
		{"int", 42, value.Number(42)},
		{"int8", int8(-3), value.Number(-3)},
		{"uint", uint(7), value.Number(7)},
		{"float", 1.25, value.Number(1.25)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Serialize(tt.in, false)
			require.NoError(t, err)
			assert.True(t, value.Equal(tt.want, got), "got %s", got)
		})
	}
}

func TestSerializeNilDefaultsToNull(t *testing.T) {
	c := New(newTestRegistry(t))
	got, err := c.Serialize(nil, false)
	require.NoError(t, err)
	assert.True(t, got.IsNull())
}

func TestSerializeNilPolicy(t *testing.T) {
	opts := DefaultOptions()
	opts.ErrorOnSerializingNull = true
	c := NewWithOptions(newTestRegistry(t), opts)

	_, err := c.Serialize(nil, false)
	require.Error(t, err)
	assert.True(t, codecerr.IsKind(err, codecerr.KindUnexpectedNull))
}

func TestSerializeEnumAsOrdinal(t *testing.T) {
	c := New(newTestRegistry(t))
	got, err := c.Serialize(priority(2), false)
	require.NoError(t, err)
	assert.True(t, value.Equal(value.Number(2), got))
}

func TestSerializeStructSkipsDefaults(t *testing.T) {
	c := New(newTestRegistry(t))

	got, err := c.Serialize(item{SKU: "x", Qty: 0}, false)
	require.NoError(t, err)

	_, hasQty := got.Get("Qty")
	assert.False(t, hasQty, "default-valued field must be omitted")
	sku, ok := got.Get("SKU")
	require.True(t, ok)
	assert.Equal(t, "x", sku.StringVal())
}

func TestSerializeStructWithTypeTag(t *testing.T) {
	c := New(newTestRegistry(t))

	got, err := c.Serialize(item{SKU: "x"}, true)
	require.NoError(t, err)

	require.Equal(t, value.KindRecord, got.Kind())
	assert.Equal(t, DefaultTypeKey, got.Keys()[0], "type key must come first")
	tag, ok := got.Get(DefaultTypeKey)
	require.True(t, ok)
	assert.Equal(t, "Item", tag.StringVal())
}

func TestSerializeWithoutDiffingEmitsEverything(t *testing.T) {
	opts := DefaultOptions()
	opts.SkipDefaults = false
	c := NewWithOptions(newTestRegistry(t), opts)

	got, err := c.Serialize(item{SKU: "x"}, false)
	require.NoError(t, err)

	qty, ok := got.Get("Qty")
	require.True(t, ok, "with diffing off every field is present")
	assert.Equal(t, 0.0, qty.NumberVal())
	assert.Equal(t, []string{"SKU", "Qty"}, got.Keys(), "declared field order")
}

func TestSerializeDiffsAgainstFactoryDefaults(t *testing.T) {
	reg := newTestRegistry(t)
	reg.RegisterFactory(item{}, func(sizeHint int) (any, error) {
		return item{Qty: 7}, nil
	})
	c := New(reg)

	got, err := c.Serialize(item{SKU: "x", Qty: 7}, false)
	require.NoError(t, err)

	_, hasQty := got.Get("Qty")
	assert.False(t, hasQty, "field equal to the factory default must be omitted")
}

func TestSerializeMapSortsKeys(t *testing.T) {
	c := New(newTestRegistry(t))

	got, err := c.Serialize(map[string]int{"b": 2, "a": 1, "c": 3}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, got.Keys())
}

func TestSerializeMapRejectsNonStringKeys(t *testing.T) {
	c := New(newTestRegistry(t))
	_, err := c.Serialize(map[int]string{1: "a"}, false)
	assert.Error(t, err)
}

func TestSerializePolymorphicElementsAreTagged(t *testing.T) {
	c := New(newTestRegistry(t))

	got, err := c.Serialize([]any{item{SKU: "x"}}, false)
	require.NoError(t, err)

	require.Equal(t, 1, got.Len())
	tag, ok := got.At(0).Get(DefaultTypeKey)
	require.True(t, ok, "interface-typed elements carry their own type tag")
	assert.Equal(t, "Item", tag.StringVal())

	// Monomorphic element types stay untagged.
	got, err = c.Serialize([]item{{SKU: "x"}}, false)
	require.NoError(t, err)
	_, ok = got.At(0).Get(DefaultTypeKey)
	assert.False(t, ok)
}

func TestDeserializeNull(t *testing.T) {
	c := New(newTestRegistry(t))

	out, err := c.Deserialize(value.Null(), nil)
	require.NoError(t, err)
	assert.Nil(t, out)

	out, err = c.Deserialize(value.Null(), reflect.TypeOf(0))
	require.NoError(t, err)
	assert.Equal(t, 0, out)
}

func TestDeserializeScalarPassthrough(t *testing.T) {
	c := New(newTestRegistry(t))

	out, err := c.Deserialize(value.Number(1.5), nil)
	require.NoError(t, err)
	assert.Equal(t, 1.5, out)

	out, err = c.Deserialize(value.String("x"), nil)
	require.NoError(t, err)
	assert.Equal(t, "x", out)

	out, err = c.Deserialize(value.Bool(true), nil)
	require.NoError(t, err)
	assert.Equal(t, true, out)
}

func TestDeserializeScalarCoercion(t *testing.T) {
	c := New(newTestRegistry(t))

	tests := []struct {
		name   string
		in     *value.Value
		target reflect.Type
		want   any
	}{
		{"number to int", value.Number(42), reflect.TypeOf(0), 42},
		{"number to uint8", value.Number(7), reflect.TypeOf(uint8(0)), uint8(7)},
		{"number to float32", value.Number(1.5), reflect.TypeOf(float32(0)), float32(1.5)},
		{"string number to int", value.String("41"), reflect.TypeOf(0), 41},
		{"number to string", value.Number(3), reflect.TypeOf(""), "3"},
		{"bool to string", value.Bool(true), reflect.TypeOf(""), "true"},
		{"string to bool", value.String("true"), reflect.TypeOf(false), true},
		{"number to bool", value.Number(1), reflect.TypeOf(false), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := c.Deserialize(tt.in, tt.target)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestDeserializeBadStringNumber(t *testing.T) {
	c := New(newTestRegistry(t))
	_, err := c.Deserialize(value.String("not a number"), reflect.TypeOf(0))
	assert.Error(t, err)
}

func TestDeserializeEnum(t *testing.T) {
	c := New(newTestRegistry(t))
	target := reflect.TypeOf(priority(0))

	out, err := c.Deserialize(value.String("high"), target)
	require.NoError(t, err)
	assert.Equal(t, priority(2), out)

	out, err = c.Deserialize(value.Number(1), target)
	require.NoError(t, err)
	assert.Equal(t, priority(1), out)
}

func TestDeserializeEnumUnknownMember(t *testing.T) {
	c := New(newTestRegistry(t))
	target := reflect.TypeOf(priority(0))

	_, err := c.Deserialize(value.String("urgent"), target)
	require.Error(t, err)
	assert.True(t, codecerr.IsKind(err, codecerr.KindUnknownType))

	opts := DefaultOptions()
	opts.ErrorOnUnknownTypes = false
	lenient := NewWithOptions(newTestRegistry(t), opts)
	out, err := lenient.Deserialize(value.String("urgent"), target)
	require.NoError(t, err)
	assert.Equal(t, priority(0), out)
}

func TestDeserializeStruct(t *testing.T) {
	c := New(newTestRegistry(t))

	rec := value.NewRecord()
	rec.Set("SKU", value.String("ab-1"))
	rec.Set("Qty", value.Number(3))

	out, err := c.Deserialize(rec, reflect.TypeOf(item{}))
	require.NoError(t, err)
	assert.Equal(t, item{SKU: "ab-1", Qty: 3}, out)
}

func TestDeserializeStructCaseInsensitiveKeys(t *testing.T) {
	c := New(newTestRegistry(t))

	rec := value.NewRecord()
	rec.Set("sku", value.String("x"))
	rec.Set("qty", value.Number(2))

	out, err := c.Deserialize(rec, reflect.TypeOf(item{}))
	require.NoError(t, err)
	assert.Equal(t, item{SKU: "x", Qty: 2}, out)
}

func TestDeserializeStructFromEmbeddedTypeTag(t *testing.T) {
	c := New(newTestRegistry(t))

	rec := value.NewRecord()
	rec.Set(DefaultTypeKey, value.String("Item"))
	rec.Set("SKU", value.String("x"))

	out, err := c.Deserialize(rec, nil)
	require.NoError(t, err)
	assert.Equal(t, item{SKU: "x"}, out)
}

func TestDeserializeUnknownTypePolicy(t *testing.T) {
	rec := value.NewRecord()
	rec.Set(DefaultTypeKey, value.String("Ghost"))

	c := New(newTestRegistry(t))
	_, err := c.Deserialize(rec, nil)
	require.Error(t, err)
	assert.True(t, codecerr.IsKind(err, codecerr.KindUnknownType))

	opts := DefaultOptions()
	opts.ErrorOnUnknownTypes = false
	lenient := NewWithOptions(newTestRegistry(t), opts)
	out, err := lenient.Deserialize(rec, nil)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestDeserializeSpuriousKeyPolicy(t *testing.T) {
	rec := value.NewRecord()
	rec.Set("unknownKey", value.Number(1))

	c := New(newTestRegistry(t))
	_, err := c.Deserialize(rec, reflect.TypeOf(item{}))
	require.Error(t, err)
	assert.True(t, codecerr.IsKind(err, codecerr.KindSpuriousField))

	opts := DefaultOptions()
	opts.ErrorOnSpuriousData = false
	lenient := NewWithOptions(newTestRegistry(t), opts)
	out, err := lenient.Deserialize(rec, reflect.TypeOf(item{}))
	require.NoError(t, err)
	assert.Equal(t, item{}, out, "unknown keys are ignored, defaults remain")
}

func TestDeserializeCollectionMismatchPolicy(t *testing.T) {
	c := New(newTestRegistry(t))
	_, err := c.Deserialize(value.Number(5), reflect.TypeOf([]int{}))
	require.Error(t, err)
	assert.True(t, codecerr.IsKind(err, codecerr.KindUnexpectedCollection))

	opts := DefaultOptions()
	opts.ErrorOnUnexpectedCollections = false
	lenient := NewWithOptions(newTestRegistry(t), opts)
	out, err := lenient.Deserialize(value.Number(5), reflect.TypeOf([]int{}))
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestDeserializeStructFromNonRecordIsAlwaysFatal(t *testing.T) {
	opts := DefaultOptions()
	opts.ErrorOnUnexpectedCollections = false
	c := NewWithOptions(newTestRegistry(t), opts)

	_, err := c.Deserialize(value.NewSequence(value.Number(1)), reflect.TypeOf(item{}))
	require.Error(t, err)
	assert.True(t, codecerr.IsKind(err, codecerr.KindNotAStruct))
}

func TestDeserializeGenericContainers(t *testing.T) {
	c := New(newTestRegistry(t))

	rec := value.NewRecord()
	rec.Set("a", value.Number(1))
	out, err := c.Deserialize(rec, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": 1.0}, out)

	seq := value.NewSequence(value.Number(1), value.String("x"))
	out, err = c.Deserialize(seq, nil)
	require.NoError(t, err)
	assert.Equal(t, []any{1.0, "x"}, out)
}

func TestDeserializeTypedSequence(t *testing.T) {
	c := New(newTestRegistry(t))

	seq := value.NewSequence(value.Number(1), value.Number(2), value.Number(3))
	out, err := c.Deserialize(seq, reflect.TypeOf([]int{}))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, out)
}

func TestDeserializeFixedLengthArray(t *testing.T) {
	c := New(newTestRegistry(t))

	seq := value.NewSequence(value.Number(1), value.Number(2))
	out, err := c.Deserialize(seq, reflect.TypeOf([3]int{}))
	require.NoError(t, err)
	assert.Equal(t, [3]int{1, 2, 0}, out)

	// Extra input elements beyond the fixed length are dropped.
	seq = value.NewSequence(value.Number(1), value.Number(2), value.Number(3), value.Number(4))
	out, err = c.Deserialize(seq, reflect.TypeOf([3]int{}))
	require.NoError(t, err)
	assert.Equal(t, [3]int{1, 2, 3}, out)
}

func TestDeserializeTypedMap(t *testing.T) {
	c := New(newTestRegistry(t))

	rec := value.NewRecord()
	rec.Set("a", value.Number(1))
	rec.Set("b", value.Number(2))

	out, err := c.Deserialize(rec, reflect.TypeOf(map[string]int{}))
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"a": 1, "b": 2}, out)
}

func TestDeserializePointerTarget(t *testing.T) {
	c := New(newTestRegistry(t))

	rec := value.NewRecord()
	rec.Set("SKU", value.String("x"))

	out, err := c.Deserialize(rec, reflect.TypeOf(&item{}))
	require.NoError(t, err)
	require.IsType(t, &item{}, out)
	assert.Equal(t, item{SKU: "x"}, *out.(*item))

	out, err = c.Deserialize(value.Null(), reflect.TypeOf(&item{}))
	require.NoError(t, err)
	assert.Nil(t, out.(*item))
}

func TestRoundTrip(t *testing.T) {
	c := New(newTestRegistry(t))

	v := order{
		Name:   "widgets",
		Count:  3,
		Price:  9.75,
		Active: true,
		Tags:   []string{"a", "b"},
		Items:  []item{{SKU: "s1", Qty: 1}, {SKU: "s2"}},
		Meta:   map[string]string{"k": "v"},
		Ref:    &item{SKU: "ref"},
	}

	tree, err := c.Serialize(v, true)
	require.NoError(t, err)

	out, err := c.Deserialize(tree, nil)
	require.NoError(t, err)
	assert.Equal(t, v, out)
}

func TestRoundTripPolymorphicMap(t *testing.T) {
	c := New(newTestRegistry(t))

	v := map[string]any{"it": item{SKU: "x"}, "n": 2.0}
	tree, err := c.Serialize(v, false)
	require.NoError(t, err)

	out, err := c.Deserialize(tree, reflect.TypeOf(map[string]any{}))
	require.NoError(t, err)
	assert.Equal(t, v, out)
}

func TestClone(t *testing.T) {
	c := New(newTestRegistry(t))

	v := order{Name: "o", Items: []item{{SKU: "s"}}, Ref: &item{SKU: "r"}}
	out, err := c.Clone(v, nil)
	require.NoError(t, err)

	clone, ok := out.(order)
	require.True(t, ok)
	assert.Equal(t, v, clone)

	// The clone must be structurally independent.
	clone.Items[0].SKU = "mutated"
	clone.Ref.SKU = "mutated"
	assert.Equal(t, "s", v.Items[0].SKU)
	assert.Equal(t, "r", v.Ref.SKU)
}

func TestCloneIdempotence(t *testing.T) {
	c := New(newTestRegistry(t))
	target := reflect.TypeOf(order{})

	v := order{Name: "o", Count: 2, Tags: []string{"t"}}
	once, err := c.Clone(v, target)
	require.NoError(t, err)
	twice, err := c.Clone(once, target)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}

func TestCustomTypeKey(t *testing.T) {
	opts := DefaultOptions()
	opts.TypeKey = "$kind"
	c := NewWithOptions(newTestRegistry(t), opts)

	tree, err := c.Serialize(item{SKU: "x"}, true)
	require.NoError(t, err)
	tag, ok := tree.Get("$kind")
	require.True(t, ok)
	assert.Equal(t, "Item", tag.StringVal())

	out, err := c.Deserialize(tree, nil)
	require.NoError(t, err)
	assert.Equal(t, item{SKU: "x"}, out)
}

func TestAsHelper(t *testing.T) {
	c := New(newTestRegistry(t))

	rec := value.NewRecord()
	rec.Set("SKU", value.String("x"))

	got, err := As[item](c, rec)
	require.NoError(t, err)
	assert.Equal(t, item{SKU: "x"}, got)
}

func TestCloneAsHelper(t *testing.T) {
	c := New(newTestRegistry(t))

	got, err := CloneAs[order](c, order{Name: "o"})
	require.NoError(t, err)
	assert.Equal(t, order{Name: "o"}, got)
}

func TestSerializeScenarioFromDefaults(t *testing.T) {
	// An integer field at its default plus a non-default string field must
	// produce a single-key record, gaining only the type tag when asked for.
	c := New(newTestRegistry(t))

	v := item{SKU: "x", Qty: 0}
	tree, err := c.Serialize(v, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"SKU"}, tree.Keys())

	tree, err = c.Serialize(v, true)
	require.NoError(t, err)
	assert.Equal(t, []string{DefaultTypeKey, "SKU"}, tree.Keys())
}
