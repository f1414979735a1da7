// Package ident models compound resource identifiers used by the Rune
// platform APIs.
//
// An identifier has a mandatory principal component and an optional relative
// component, serialized as "principal[,relative]". A resource that belongs to
// another resource is addressed by a two-part key, e.g. a device owned by a
// patient is "patient-abc,device-123". A top-level resource carries its
// resource name as the relative component, e.g. "patient-abc,patient".
package ident

import (
	"fmt"
	"strings"
)

// AmbiguousError is returned by Parse when a bare id has no separator and no
// resource hint was supplied, so the id cannot be qualified.
type AmbiguousError struct {
	Raw string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous resource id %q: no separator and no resource hint", e.Raw)
}

// IsAmbiguous reports whether err is an *AmbiguousError.
func IsAmbiguous(err error) bool {
	_, ok := err.(*AmbiguousError)
	return ok
}

// ID is a compound resource identifier. The zero value is invalid; construct
// with Parse or New. ID is comparable and may be used as a map key.
type ID struct {
	principal string
	relative  string
}

// New constructs an ID from explicit components. relative may be empty.
func New(principal, relative string) ID {
	return ID{principal: principal, relative: relative}
}

// Parse builds an ID from its string form.
//
// If raw contains a comma, it is split into (principal, relative) on the
// first comma. Otherwise hint names the resource type: the raw id is prefixed
// with "hint-" (unless it already contains a hyphen) and the hint becomes the
// relative component. A bare raw id with an empty hint is ambiguous.
func Parse(raw, hint string) (ID, error) {
	if i := strings.IndexByte(raw, ','); i >= 0 {
		return ID{principal: raw[:i], relative: raw[i+1:]}, nil
	}

	if hint == "" {
		return ID{}, &AmbiguousError{Raw: raw}
	}

	principal := raw
	if !strings.Contains(principal, "-") {
		principal = hint + "-" + principal
	}
	return ID{principal: principal, relative: hint}, nil
}

// MustParse is Parse for statically known ids; it panics on error.
func MustParse(raw, hint string) ID {
	id, err := Parse(raw, hint)
	if err != nil {
		panic(err)
	}
	return id
}

// IsZero reports whether the ID is the invalid zero value.
func (id ID) IsZero() bool {
	return id.principal == "" && id.relative == ""
}

// Principal returns the first, mandatory component of the key.
func (id ID) Principal() string {
	return id.principal
}

// Relative returns the second component of the key, if present.
func (id ID) Relative() (string, bool) {
	return id.relative, id.relative != ""
}

// Unqualified strips the "resource-" prefix from the most specific component
// of the key, yielding the bare user-facing id.
func (id ID) Unqualified() string {
	s := id.principal
	if strings.Contains(id.relative, "-") {
		s = id.relative
	}
	if i := strings.IndexByte(s, '-'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// String serializes the ID back to its "principal[,relative]" form.
func (id ID) String() string {
	if id.relative == "" {
		return id.principal
	}
	return id.principal + "," + id.relative
}

// EqualString reports whether s is the exact string serialization of the ID.
func (id ID) EqualString(s string) bool {
	return id.String() == s
}

// Contains is a legacy membership probe: it reports whether sub occurs in the
// principal or relative component. The separator and hyphen characters get
// special treatment: "," asks whether a relative component exists, and "-"
// is always present in a qualified id.
func (id ID) Contains(sub string) bool {
	switch sub {
	case ",":
		return id.relative != ""
	case "-":
		return true
	}
	if strings.Contains(id.principal, sub) {
		return true
	}
	if id.relative != "" {
		return strings.Contains(id.relative, sub)
	}
	return false
}
