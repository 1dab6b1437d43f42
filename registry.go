package nif

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

// Factory returns a new, empty Object ready to be decoded.
type Factory func() Object

// Registry maps block type names to factories.
//
// A Registry is immutable once built and safe for concurrent use.
type Registry struct {
	factories map[string]Factory
}

// RegistryBuilder assembles a Registry.
type RegistryBuilder struct {
	factories map[string]Factory
	err       error
}

// NewRegistryBuilder returns an empty builder.
func NewRegistryBuilder() *RegistryBuilder {
	return &RegistryBuilder{factories: make(map[string]Factory)}
}

// Register maps name to f. Empty names, nil factories and duplicate names
// are recorded as errors and reported by Build.
func (b *RegistryBuilder) Register(name string, f Factory) *RegistryBuilder {
	if b.err != nil {
		return b
	}
	switch {
	case name == "":
		b.err = errors.New("nif: empty block type name")
	case f == nil:
		b.err = fmt.Errorf("nif: nil factory for %q", name)
	default:
		if _, ok := b.factories[name]; ok {
			b.err = fmt.Errorf("nif: block type %q registered twice", name)
			return b
		}
		b.factories[name] = f
	}
	return b
}

// Alias maps alias to the factory already registered for target, for format
// variants that are binary-compatible with a more general kind.
//
// Objects implementing TypeNamer report alias from TypeName; any other object
// reports the target's name and is saved under it.
func (b *RegistryBuilder) Alias(alias, target string) *RegistryBuilder {
	if b.err != nil {
		return b
	}
	f, ok := b.factories[target]
	if !ok {
		b.err = fmt.Errorf("nif: alias %q targets unregistered type %q", alias, target)
		return b
	}
	return b.Register(alias, func() Object {
		obj := f()
		if n, ok := obj.(TypeNamer); ok {
			n.SetTypeName(alias)
		}
		return obj
	})
}

// Build returns the registry, or the first registration error.
func (b *RegistryBuilder) Build() (*Registry, error) {
	if b.err != nil {
		return nil, b.err
	}
	return &Registry{factories: maps.Clone(b.factories)}, nil
}

// New returns an empty object for the exact, case-sensitive type name.
func (r *Registry) New(name string) (Object, bool) {
	if r == nil {
		return nil, false
	}
	f, ok := r.factories[name]
	if !ok {
		return nil, false
	}
	return f(), true
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	if r == nil {
		return false
	}
	_, ok := r.factories[name]
	return ok
}

// Len returns the number of registered names, aliases included.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.factories)
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(r.factories))
}
