// Package registry maps human-readable type names to structural descriptors
// and owns every per-type cache the codec engine relies on: descriptors,
// default instances, custom factories, and resolved short names.
//
// A Registry is mutable shared state scoped to one engine instance and is
// not synchronized; give each goroutine its own engine or add external
// locking.
package registry

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/iancoleman/strcase"
	"github.com/wouanagaine/treecodec/internal/codecerr"
)

// Factory overrides default construction for a type. sizeHint carries the
// input sequence length when a sequence-like type is being built; it is 0
// otherwise.
type Factory func(sizeHint int) (any, error)

// Namespace is one implicit name-qualification prefix tried during type-name
// resolution. Plain namespaces qualify with a dot, nested-class prefixes
// with a plus sign.
type Namespace struct {
	Prefix string
	Plain  bool
}

func (n Namespace) qualify(name string) string {
	if n.Plain {
		return n.Prefix + "." + name
	}
	return n.Prefix + "+" + name
}

// Registry holds the type-name table and the per-type caches. Create one
// with New and populate it before first use; there is no ambient type scan.
type Registry struct {
	types map[string]reflect.Type // canonical registered name → type
	names map[reflect.Type]string // reverse of types
	order []string                // registration order, for deterministic scans

	descriptors map[reflect.Type]*TypeDescriptor
	resolved    map[string]*TypeDescriptor // short-name resolution cache
	factories   map[reflect.Type]Factory
	defaults    map[reflect.Type]reflect.Value
	enums       map[reflect.Type]*enumInfo

	namespaces []Namespace
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		types:       make(map[string]reflect.Type),
		names:       make(map[reflect.Type]string),
		descriptors: make(map[reflect.Type]*TypeDescriptor),
		resolved:    make(map[string]*TypeDescriptor),
		factories:   make(map[reflect.Type]Factory),
		defaults:    make(map[reflect.Type]reflect.Value),
		enums:       make(map[reflect.Type]*enumInfo),
	}
}

// Register associates name with the type of sample. Registration is
// idempotent for the same pairing; a conflicting re-registration fails.
func (r *Registry) Register(name string, sample any) error {
	return r.RegisterType(name, reflect.TypeOf(sample))
}

// RegisterType associates name with an explicit reflect type.
func (r *Registry) RegisterType(name string, t reflect.Type) error {
	if t == nil {
		return fmt.Errorf("cannot register nil type as %q", name)
	}
	// Pointer shapes register as their pointee; the engine dereferences
	// before every descriptor lookup.
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if err := checkDescribable(t); err != nil {
		return err
	}
	if existing, ok := r.types[name]; ok {
		if existing == t {
			return nil
		}
		return fmt.Errorf("name %q already registered to %s", name, existing)
	}
	r.types[name] = t
	r.order = append(r.order, name)
	if _, ok := r.names[t]; !ok {
		r.names[t] = name
		// A descriptor computed before registration carries the fallback
		// reflect name; recompute with the registered one.
		delete(r.descriptors, t)
	}
	return nil
}

// RegisterEnum registers a named integer type together with its member-name
// table. The codec serializes enum values as their ordinal and accepts
// case-insensitive member names on the way in.
func (r *Registry) RegisterEnum(name string, sample any, members map[string]int64) error {
	t := reflect.TypeOf(sample)
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
	default:
		return fmt.Errorf("enum type %s must have an integer kind, got %s", t, t.Kind())
	}
	if err := r.RegisterType(name, t); err != nil {
		return err
	}
	byName := make(map[string]int64, len(members))
	for member, ordinal := range members {
		byName[strings.ToLower(member)] = ordinal
	}
	r.enums[t] = &enumInfo{byName: byName}
	delete(r.descriptors, t) // recompute with the enum kind if already described
	return nil
}

// NameOf returns the registered name for t.
func (r *Registry) NameOf(t reflect.Type) (string, bool) {
	name, ok := r.names[t]
	return name, ok
}

// TypeNames returns a snapshot of the registered names in registration order.
func (r *Registry) TypeNames() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// DescriptorOf returns the cached descriptor for t, computing it on first
// use. Descriptors are stable for the lifetime of the registry.
func (r *Registry) DescriptorOf(t reflect.Type) *TypeDescriptor {
	if d, ok := r.descriptors[t]; ok {
		return d
	}
	d := r.describe(t)
	r.descriptors[t] = d
	return d
}

// ResolveTypeName resolves a possibly-short, possibly-kebab type name to a
// descriptor. Resolution order: shorthand expansion, cache, exact match,
// case-insensitive match, then each implicit namespace prefix in
// registration order. The first match wins and is cached under the short
// name; an exhausted search fails with an unknown-type error.
func (r *Registry) ResolveTypeName(name string) (*TypeDescriptor, error) {
	// "my-widget" and "MyWidget" are the same name.
	if strings.ContainsAny(name, "-_ ") {
		name = strcase.ToCamel(name)
	}

	if d, ok := r.resolved[name]; ok {
		return d, nil
	}

	t, ok := r.findType(name)
	if !ok {
		for _, ns := range r.namespaces {
			if t, ok = r.findType(ns.qualify(name)); ok {
				break
			}
		}
	}
	if !ok {
		return nil, codecerr.Newf(codecerr.KindUnknownType, "cannot resolve type name %q", name)
	}

	d := r.DescriptorOf(t)
	r.resolved[name] = d
	return d, nil
}

// findType looks name up exactly, then case-insensitively in registration
// order.
func (r *Registry) findType(name string) (reflect.Type, bool) {
	if t, ok := r.types[name]; ok {
		return t, true
	}
	for _, registered := range r.order {
		if strings.EqualFold(registered, name) {
			return r.types[registered], true
		}
	}
	return nil, false
}

// AddImplicitNamespace appends a search prefix. Order of addition is search
// priority.
func (r *Registry) AddImplicitNamespace(prefix string, plain bool) {
	// Only successful resolutions are cached, so names that failed before
	// this prefix existed will be searched again next time.
	r.namespaces = append(r.namespaces, Namespace{Prefix: prefix, Plain: plain})
}

// RemoveImplicitNamespace removes the first namespace with the given prefix.
func (r *Registry) RemoveImplicitNamespace(prefix string) {
	for i, ns := range r.namespaces {
		if ns.Prefix == prefix {
			r.namespaces = append(r.namespaces[:i], r.namespaces[i+1:]...)
			return
		}
	}
}

// Namespaces returns a snapshot of the implicit namespace list.
func (r *Registry) Namespaces() []Namespace {
	out := make([]Namespace, len(r.namespaces))
	copy(out, r.namespaces)
	return out
}

// RegisterFactory overrides construction for the type of sample.
func (r *Registry) RegisterFactory(sample any, f Factory) {
	r.RegisterFactoryType(reflect.TypeOf(sample), f)
}

// RegisterFactoryType overrides construction for an explicit reflect type.
func (r *Registry) RegisterFactoryType(t reflect.Type, f Factory) {
	r.factories[t] = f
}

// UnregisterFactory removes a previously registered factory for the type of
// sample.
func (r *Registry) UnregisterFactory(sample any) {
	delete(r.factories, reflect.TypeOf(sample))
}

// CreateInstance builds a new, addressable instance of t. A registered
// factory wins; sequence-like types are allocated using sizeHint; everything
// else takes the default zero-construction path. Types with no construction
// path fail with an unconstructible-type error.
func (r *Registry) CreateInstance(t reflect.Type, sizeHint int) (reflect.Value, error) {
	if f, ok := r.factories[t]; ok {
		made, err := f(sizeHint)
		if err != nil {
			return reflect.Value{}, codecerr.Wrap(codecerr.KindUnconstructibleType,
				fmt.Sprintf("factory for %s failed", t), err)
		}
		mv := reflect.ValueOf(made)
		if !mv.IsValid() || !mv.Type().AssignableTo(t) {
			return reflect.Value{}, codecerr.Newf(codecerr.KindUnconstructibleType,
				"factory for %s returned %T", t, made)
		}
		// Copy into an addressable slot so struct fields can be set later.
		inst := reflect.New(t).Elem()
		inst.Set(mv)
		return inst, nil
	}

	switch t.Kind() {
	case reflect.Slice:
		return reflect.MakeSlice(t, 0, sizeHint), nil
	case reflect.Array:
		return reflect.New(t).Elem(), nil
	case reflect.Map:
		return reflect.MakeMapWithSize(t, sizeHint), nil
	case reflect.Ptr:
		return reflect.New(t.Elem()), nil
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.UnsafePointer:
		return reflect.Value{}, codecerr.Newf(codecerr.KindUnconstructibleType,
			"no factory registered and no default construction for %s", t)
	default:
		return reflect.New(t).Elem(), nil
	}
}

// DefaultInstance returns the cached reference instance of t, building it on
// first use via CreateInstance(t, 0). The returned value is shared and must
// be treated as read-only; it exists solely so the engine can read field
// defaults when diffing.
func (r *Registry) DefaultInstance(t reflect.Type) (reflect.Value, error) {
	if def, ok := r.defaults[t]; ok {
		return def, nil
	}
	def, err := r.CreateInstance(t, 0)
	if err != nil {
		return reflect.Value{}, err
	}
	r.defaults[t] = def
	return def, nil
}
