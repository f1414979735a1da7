package resources

import (
	"fmt"
	"iter"
	"strings"

	"github.com/runelabs/runeq-go/ident"
	"github.com/runelabs/runeq-go/internal/apierr"
)

// KeyError reports a lookup of an identifier absent from a set. It unwraps
// to ErrNotFound so callers can treat local and remote misses uniformly.
type KeyError struct {
	Type string
	Key  string
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("no %s with id %q in set", e.Type, e.Key)
}

func (e *KeyError) Unwrap() error { return apierr.ErrNotFound }

// Set is an ordered, identifier-keyed collection of entities of one type.
// Insertion order is preserved; adding an entity whose identifier is already
// present replaces it in place.
//
// A set also records whether it is a complete enumeration of the resource
// (see Complete) and, optionally, the identifier scoping it, like the patient
// a device set belongs to.
type Set struct {
	typ      *Type
	order    []ident.ID
	items    map[ident.ID]*Entity
	complete bool
	scope    ident.ID
	hasScope bool
}

// NewSet returns an empty set for the given entity type.
func NewSet(typ *Type) *Set {
	return &Set{typ: typ, items: make(map[ident.ID]*Entity)}
}

// Type returns the element type of the set.
func (s *Set) Type() *Type { return s.typ }

// Len returns the number of entities in the set.
func (s *Set) Len() int { return len(s.order) }

// Complete reports whether the set is known to hold every entity of its
// scope. Filtering or other partial construction leaves it false.
func (s *Set) Complete() bool { return s.complete }

// SetComplete marks the set as a complete enumeration. Only a producer that
// performed a full scan should set it.
func (s *Set) SetComplete(v bool) { s.complete = v }

// Scope returns the identifier the set is scoped to, if any.
func (s *Set) Scope() (ident.ID, bool) { return s.scope, s.hasScope }

// SetScope records the identifier the set is scoped to, like the patient a
// device set belongs to. Bare keys passed to Get resolve against it.
func (s *Set) SetScope(id ident.ID) {
	s.scope = id
	s.hasScope = true
}

// Add inserts the entity, replacing any existing entity with the same
// identifier. Entities of another type, or without an identifier, are
// rejected with a UsageError.
func (s *Set) Add(e *Entity) error {
	if e.typ != s.typ {
		return apierr.Usagef("cannot add %s to a %s set", e.typ.Name, s.typ.Name)
	}
	id, ok := e.ID()
	if !ok {
		return apierr.Usagef("cannot add %s without an id to a set", s.typ.Name)
	}
	if _, exists := s.items[id]; !exists {
		s.order = append(s.order, id)
	}
	s.items[id] = e
	return nil
}

// Get looks up an entity by identifier string. The key may be the full
// serialized identifier or a bare id; bare keys resolve against the set's
// scope when one is set, and are otherwise qualified with the set's type
// name. A miss is a *KeyError wrapping ErrNotFound.
func (s *Set) Get(key string) (*Entity, error) {
	if id, ok := s.resolveKey(key); ok {
		if e, found := s.items[id]; found {
			return e, nil
		}
	}
	// Serialization differences between qualified forms make a direct map
	// hit miss sometimes; fall back to a scan.
	for e := range s.All() {
		if e.EqualID(key) {
			return e, nil
		}
	}
	return nil, &KeyError{Type: s.typ.Name, Key: key}
}

func (s *Set) resolveKey(key string) (ident.ID, bool) {
	if !strings.Contains(key, ",") && s.hasScope {
		rel := key
		if !strings.Contains(rel, "-") {
			rel = s.typ.Name + "-" + rel
		}
		return ident.New(s.scope.Principal(), rel), true
	}
	id, err := ident.Parse(key, s.typ.Name)
	if err != nil {
		return ident.ID{}, false
	}
	return id, true
}

// Contains reports whether the set holds an entity matching the key.
func (s *Set) Contains(key string) bool {
	_, err := s.Get(key)
	return err == nil
}

// All iterates over the entities in insertion order.
func (s *Set) All() iter.Seq[*Entity] {
	return func(yield func(*Entity) bool) {
		for _, id := range s.order {
			if !yield(s.items[id]) {
				return
			}
		}
	}
}

// Entities returns the entities in insertion order as a slice.
func (s *Set) Entities() []*Entity {
	out := make([]*Entity, len(s.order))
	for i, id := range s.order {
		out[i] = s.items[id]
	}
	return out
}

// IDs iterates over the serialized identifiers in insertion order. Scoped
// sets yield bare relative ids, unscoped sets yield full identifiers.
func (s *Set) IDs() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, id := range s.order {
			v := id.String()
			if s.hasScope {
				v = id.Unqualified()
			}
			if !yield(v) {
				return
			}
		}
	}
}

// FilteredBy lazily yields the entities whose fields strictly equal every
// condition. Entities missing a conditioned field are excluded. At least one
// condition is required.
//
// Device type conditions are the one inexact match: see DeviceTypeMatches.
func (s *Set) FilteredBy(conditions map[string]any) (iter.Seq[*Entity], error) {
	if len(conditions) == 0 {
		return nil, apierr.Usagef("FilteredBy requires at least one condition")
	}
	return func(yield func(*Entity) bool) {
		for e := range s.All() {
			if Matches(e, conditions) {
				if !yield(e) {
					return
				}
			}
		}
	}, nil
}

// Matches reports whether the entity's fields strictly equal every
// condition. Entities missing a conditioned field do not match.
func Matches(e *Entity, conditions map[string]any) bool {
	for field, want := range conditions {
		got, err := e.Get(field)
		if err != nil {
			return false
		}
		if e.typ == TypeDevice && snakeCase(field) == "device_type" {
			w, wok := want.(string)
			if !wok {
				return false
			}
			switch g := got.(type) {
			case string:
				if !DeviceTypeMatches(g, w) {
					return false
				}
			case *Entity:
				if !deviceTypeEntityMatches(g, w) {
					return false
				}
			default:
				return false
			}
			continue
		}
		if got != want {
			return false
		}
	}
	return true
}

// CreatedBefore lazily yields the entities created strictly before the unix
// timestamp. Entities without a creation time are always included.
func (s *Set) CreatedBefore(unix float64) iter.Seq[*Entity] {
	return func(yield func(*Entity) bool) {
		for e := range s.All() {
			if ts, ok := e.CreatedAt(); ok && ts >= unix {
				continue
			}
			if !yield(e) {
				return
			}
		}
	}
}

// ToRecords returns the plain-map form of each entity in order.
func (s *Set) ToRecords() []map[string]any {
	out := make([]map[string]any, 0, s.Len())
	for e := range s.All() {
		out = append(out, e.ToMap())
	}
	return out
}

// String summarizes the set for diagnostics.
func (s *Set) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s set (%d):\n", s.typ.Name, s.Len())
	for _, id := range s.order {
		fmt.Fprintf(&b, "  %s\n", id.String())
	}
	return b.String()
}
