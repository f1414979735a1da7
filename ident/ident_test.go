package ident

import "testing"

func TestParseAbsolute(t *testing.T) {
	t.Parallel()
	id, err := Parse("patient-abc,device-123", "")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if id.Principal() != "patient-abc" {
		t.Errorf("principal = %q", id.Principal())
	}
	rel, ok := id.Relative()
	if !ok || rel != "device-123" {
		t.Errorf("relative = %q, %v", rel, ok)
	}
	if id.Unqualified() != "123" {
		t.Errorf("unqualified = %q", id.Unqualified())
	}
}

func TestParseRoundTrip(t *testing.T) {
	t.Parallel()
	for _, s := range []string{
		"patient-abc,patient",
		"patient-abc,device-123",
		"org-77,org",
	} {
		id, err := Parse(s, "")
		if err != nil {
			t.Fatalf("parse %q: %v", s, err)
		}
		again, err := Parse(id.String(), "")
		if err != nil {
			t.Fatalf("reparse %q: %v", id, err)
		}
		if again.String() != s {
			t.Errorf("round trip %q -> %q", s, again.String())
		}
	}
}

func TestParseBareWithHint(t *testing.T) {
	t.Parallel()
	id, err := Parse("123", "patient")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if id.String() != "patient-123,patient" {
		t.Errorf("string = %q", id.String())
	}
	if id.Unqualified() != "123" {
		t.Errorf("unqualified = %q", id.Unqualified())
	}
}

func TestParseAmbiguous(t *testing.T) {
	t.Parallel()
	_, err := Parse("123", "")
	if err == nil {
		t.Fatal("expected error for bare id without hint")
	}
	if !IsAmbiguous(err) {
		t.Fatalf("expected AmbiguousError, got %T", err)
	}
}

func TestParsePrefixedBare(t *testing.T) {
	t.Parallel()
	// Already carries the resource prefix: no double-prefixing.
	id, err := Parse("patient-abc", "patient")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if id.String() != "patient-abc,patient" {
		t.Errorf("string = %q", id.String())
	}
}

func TestEquality(t *testing.T) {
	t.Parallel()
	a := MustParse("patient-a,device-1", "")
	b := MustParse("patient-a,device-1", "")
	c := MustParse("patient-a,device-2", "")
	if a != b {
		t.Error("identical ids compare unequal")
	}
	if a == c {
		t.Error("distinct ids compare equal")
	}
	if !a.EqualString("patient-a,device-1") {
		t.Error("EqualString against serialization")
	}
	if a.EqualString("patient-a") {
		t.Error("EqualString matched a prefix")
	}
}

func TestUnqualifiedNoRelativeHyphen(t *testing.T) {
	t.Parallel()
	// Relative component without a hyphen falls back to the principal.
	id := MustParse("patient-abc,patient", "")
	if id.Unqualified() != "abc" {
		t.Errorf("unqualified = %q", id.Unqualified())
	}
}

func TestContains(t *testing.T) {
	t.Parallel()
	two := MustParse("patient-a,device-1", "")
	one := New("patient-a", "")
	if !two.Contains(",") {
		t.Error("compound id should contain separator")
	}
	if one.Contains(",") {
		t.Error("single id should not contain separator")
	}
	if !two.Contains("-") || !one.Contains("-") {
		t.Error("hyphen probe is always true")
	}
	if !two.Contains("device") {
		t.Error("substring of relative component")
	}
	if two.Contains("org") {
		t.Error("unexpected substring match")
	}
}
