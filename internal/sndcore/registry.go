package sndcore

import (
	"fmt"

	"github.com/pulsed/pulsed/internal/errors"
)

// EntityKind is the set of entity kinds the name registry tracks: kind
// ∈ {sink, source, sample}. Sink-inputs, source-outputs, clients,
// modules, and autoload entries are addressable only by index
// (IndexedSet), never by name.
type EntityKind int

const (
	EntityKindSink EntityKind = iota
	EntityKindSource
	EntityKindSample
)

func (k EntityKind) String() string {
	switch k {
	case EntityKindSink:
 return "sink"
	case EntityKindSource:
 return "source"
	case EntityKindSample:
 return "sample"
	default:
 return "unknown"
	}
}

var errExist = func(name string) error {
	return errors.New(fmt.Errorf("name %q already registered", name)).
 Component("sndcore").
 Category(errors.CategoryExist).
 Context("name", name).
 Build()
}

// NameRegistry maps (kind, name) to an entity's index within the
// matching IndexedSet, plus the two process-wide "default" names.
// Strict registration fails on collision; non-strict registration
// renames to the lowest free "name<N>" in [1,99].
type NameRegistry struct {
	names map[EntityKind]map[string]uint32
	defaultSink string
	defaultSource string
}

// NewNameRegistry returns an empty registry.
func NewNameRegistry() *NameRegistry {
	return &NameRegistry{
 names: map[EntityKind]map[string]uint32{
 EntityKindSink: make(map[string]uint32),
 EntityKindSource: make(map[string]uint32),
 EntityKindSample: make(map[string]uint32),
 },
	}
}

// Register reserves name for index under kind, returning the name that
// was actually assigned (which may differ from the requested one when
// strict is false and a collision was resolved). Fails with a wire
// "exist" error if strict and name is taken, or if every name1..name99
// slot is also taken.
func (r *NameRegistry) Register(kind EntityKind, name string, index uint32, strict bool) (string, error) {
	m := r.names[kind]
	if _, taken := m[name]; !taken {
 m[name] = index
 return name, nil
	}
	if strict {
 return "", errExist(name)
	}
	for n := 1; n <= 99; n++ {
 candidate := fmt.Sprintf("%s%d", name, n)
 if _, taken := m[candidate]; !taken {
 m[candidate] = index
 return candidate, nil
 }
	}
	return "", errExist(name)
}

// Unregister releases name under kind, if held.
func (r *NameRegistry) Unregister(kind EntityKind, name string) {
	delete(r.names[kind], name)
}

// LookupExact returns the index registered under the literal name, with
// no index-parsing or autoload fallback (those live in Core.Lookup*,
// which has access to the indexed sets and autoload table this registry
// doesn't).
func (r *NameRegistry) LookupExact(kind EntityKind, name string) (uint32, bool) {
	idx, ok := r.names[kind][name]
	return idx, ok
}

// SetDefaultSink/SetDefaultSource record the configured default target
// used when a client omits an explicit sink/source name.
func (r *NameRegistry) SetDefaultSink(name string) { r.defaultSink = name }
func (r *NameRegistry) SetDefaultSource(name string) { r.defaultSource = name }

// DefaultSink/DefaultSource return the configured default name, which may
// be empty if none was ever set (Core then falls back to the first
// entity of that kind).
func (r *NameRegistry) DefaultSink() string { return r.defaultSink }
func (r *NameRegistry) DefaultSource() string { return r.defaultSource }
