// Package codec implements the recursive serialize/deserialize engine
// between typed Go values and the intermediate value tree. The engine asks
// its registry for field lists, constructors, and default instances, and
// walks nested values depth-first.
//
// The object graph must be acyclic: a cycle recurses without bound. An
// engine instance and its registry are single-threaded shared state; use one
// engine per goroutine or synchronize externally.
package codec

import (
	"reflect"

	"github.com/wouanagaine/treecodec/internal/registry"
	"github.com/wouanagaine/treecodec/internal/value"
)

// anyType is the universal placeholder; a target of this type is treated as
// unspecified.
var anyType = reflect.TypeOf((*any)(nil)).Elem()

// Codec is the engine instance. Registry caches and Options live exactly as
// long as the Codec that owns them.
type Codec struct {
	reg  *registry.Registry
	opts Options
}

// New creates an engine with default options.
func New(reg *registry.Registry) *Codec {
	return NewWithOptions(reg, DefaultOptions())
}

// NewWithOptions creates an engine with explicit options. An empty TypeKey
// falls back to the default reserved key.
func NewWithOptions(reg *registry.Registry, opts Options) *Codec {
	if opts.TypeKey == "" {
		opts.TypeKey = DefaultTypeKey
	}
	return &Codec{reg: reg, opts: opts}
}

// Registry returns the engine's registry for registration calls.
func (c *Codec) Registry() *registry.Registry {
	return c.reg
}

// Options returns the engine's policy set.
func (c *Codec) Options() Options {
	return c.opts
}

// Clone deep-copies v by round-tripping it through the value tree:
// serialize with an embedded type tag, then deserialize into target.
// A nil target lets the embedded tag pick the concrete type.
func (c *Codec) Clone(v any, target reflect.Type) (any, error) {
	tree, err := c.Serialize(v, true)
	if err != nil {
		return nil, err
	}
	return c.Deserialize(tree, target)
}

// As deserializes val into a statically-known target type.
func As[T any](c *Codec, val *value.Value) (T, error) {
	var zero T
	out, err := c.Deserialize(val, reflect.TypeOf((*T)(nil)).Elem())
	if err != nil {
		return zero, err
	}
	if out == nil {
		return zero, nil
	}
	return out.(T), nil
}

// CloneAs deep-copies v into a statically-known target type.
func CloneAs[T any](c *Codec, v any) (T, error) {
	var zero T
	out, err := c.Clone(v, reflect.TypeOf((*T)(nil)).Elem())
	if err != nil {
		return zero, err
	}
	if out == nil {
		return zero, nil
	}
	return out.(T), nil
}
