// Package resources provides the shared entity model for platform metadata
// (patients, devices, orgs, projects, events, streams) plus eager query
// functions that assemble complete collections from the paginated APIs.
package resources

import (
	"fmt"
	"sort"
	"strings"

	"github.com/runelabs/runeq-go/ident"
)

// Type describes an entity type: the resource name used to qualify bare ids,
// and the relation table mapping raw field names to nested entity types.
// Types are declared as package-level constants (see types.go) and never
// mutated after definition.
type Type struct {
	Name      string
	Relations map[string]*Type
}

// FieldError reports access to a field the entity does not carry. Absence is
// an error, never a zero value; use Has for an existence probe.
type FieldError struct {
	Type  string
	Field string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s has no field %q", e.Type, e.Field)
}

// Entity wraps one fetched record: an optional identifier plus the raw field
// map in the API's native casing. Declared relations are expanded into
// nested entities at construction. Entities are immutable after
// construction.
type Entity struct {
	typ   *Type
	id    ident.ID
	hasID bool
	attrs map[string]any
}

// NewEntity wraps raw as an entity of the given type.
//
// If raw carries an "id" field it is parsed with the type name as hint and
// rewritten to its unqualified form. Declared relation fields are replaced
// in place with nested *Entity (or []*Entity) values. raw is retained as the
// backing store: the caller must not reuse it afterwards.
func NewEntity(typ *Type, raw map[string]any) (*Entity, error) {
	e := &Entity{typ: typ, attrs: raw}

	if v, ok := raw["id"]; ok && v != nil {
		s, ok := v.(string)
		if !ok {
			s = fmt.Sprint(v)
		}
		id, err := ident.Parse(s, typ.Name)
		if err != nil {
			return nil, err
		}
		e.id = id
		e.hasID = true
		raw["id"] = id.Unqualified()
	}

	for field, sub := range typ.Relations {
		v, ok := raw[field]
		if !ok || v == nil {
			continue
		}
		switch val := v.(type) {
		case map[string]any:
			nested, err := NewEntity(sub, val)
			if err != nil {
				return nil, fmt.Errorf("relation %s: %w", field, err)
			}
			raw[field] = nested
		case []any:
			nested := make([]*Entity, 0, len(val))
			for _, item := range val {
				m, ok := item.(map[string]any)
				if !ok {
					continue
				}
				n, err := NewEntity(sub, m)
				if err != nil {
					return nil, fmt.Errorf("relation %s: %w", field, err)
				}
				nested = append(nested, n)
			}
			raw[field] = nested
		}
	}

	return e, nil
}

// Type returns the entity's type descriptor.
func (e *Entity) Type() *Type { return e.typ }

// ID returns the entity's identifier, if it has one. Some entities, like
// memberships, have none.
func (e *Entity) ID() (ident.ID, bool) { return e.id, e.hasID }

// Get resolves a field by its literal name or its snake_case
// canonicalization. A missing field is a *FieldError.
func (e *Entity) Get(name string) (any, error) {
	if v, ok := e.attrs[name]; ok {
		return v, nil
	}
	want := snakeCase(name)
	for k, v := range e.attrs {
		if snakeCase(k) == want {
			return v, nil
		}
	}
	return nil, &FieldError{Type: e.typ.Name, Field: name}
}

// Has reports whether the entity carries the field under either casing.
func (e *Entity) Has(name string) bool {
	_, err := e.Get(name)
	return err == nil
}

// GetString resolves a field and asserts it is a string.
func (e *Entity) GetString(name string) (string, error) {
	v, err := e.Get(name)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %q of %s is %T, not string", name, e.typ.Name, v)
	}
	return s, nil
}

// CreatedAt returns the creation timestamp as unix seconds. ok is false when
// the entity has no creation time.
func (e *Entity) CreatedAt() (float64, bool) {
	v, err := e.Get("created_at")
	if err != nil {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	default:
		return 0, false
	}
}

// Equal reports whether both entities carry equal identifiers. Entities
// without identifiers are only equal to themselves.
func (e *Entity) Equal(other *Entity) bool {
	if other == nil {
		return false
	}
	if !e.hasID || !other.hasID {
		return e == other
	}
	return e.id == other.id
}

// EqualID reports whether s names this entity: the exact identifier
// serialization, either component alone, or the bare unqualified id.
func (e *Entity) EqualID(s string) bool {
	if !e.hasID {
		return false
	}
	if e.id.EqualString(s) || e.id.Unqualified() == s || e.id.Principal() == s {
		return true
	}
	rel, ok := e.id.Relative()
	return ok && rel == s
}

// ToMap returns a plain-map representation, recursively converting nested
// entities. The result is a copy; mutating it does not affect the entity.
func (e *Entity) ToMap() map[string]any {
	out := make(map[string]any, len(e.attrs))
	for k, v := range e.attrs {
		switch val := v.(type) {
		case *Entity:
			out[k] = val.ToMap()
		case []*Entity:
			list := make([]map[string]any, len(val))
			for i, n := range val {
				list[i] = n.ToMap()
			}
			out[k] = list
		case *Set:
			out[k] = val.ToRecords()
		default:
			out[k] = v
		}
	}
	return out
}

// String renders the entity for diagnostics, nesting related entities with
// indentation. Not a data contract.
func (e *Entity) String() string {
	var b strings.Builder
	e.format(&b, 0)
	return b.String()
}

func (e *Entity) format(b *strings.Builder, depth int) {
	pad := strings.Repeat("  ", depth)
	fmt.Fprintf(b, "%s {\n", e.typ.Name)

	keys := make([]string, 0, len(e.attrs))
	for k := range e.attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		switch v := e.attrs[k].(type) {
		case *Entity:
			fmt.Fprintf(b, "%s  %s: ", pad, k)
			v.format(b, depth+1)
		case []*Entity:
			fmt.Fprintf(b, "%s  %s:\n", pad, k)
			for _, n := range v {
				fmt.Fprintf(b, "%s    - ", pad)
				n.format(b, depth+2)
			}
		default:
			fmt.Fprintf(b, "%s  %s: %v\n", pad, k, v)
		}
	}
	fmt.Fprintf(b, "%s}\n", pad)
}
