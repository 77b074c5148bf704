package ggk

import "testing"

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name string
		exp  string
	}{
		{"The Acme Foundation, Inc.", "acme"},
		{"ACME", "acme"},
		{"Acme Inc", "acme"},
		{"St. Jude's Hospital", "stjudeshospital"},
		{"Boys & Girls Club", "boysgirlsclub"},
		{"A An The Inc LLC Corp", ""},
		{"Theodore Fund", "theodore"},
		{"  ", ""},
	}
	for _, test := range tests {
		if got := NormalizeName(test.name); got != test.exp {
			t.Fatalf("normalizing %q: got %q, expected %q", test.name, got, test.exp)
		}
	}
}

func TestPlaceholderKey(t *testing.T) {
	k1 := PlaceholderKey("The Acme Foundation, Inc.")
	k2 := PlaceholderKey("ACME")
	if k1 != k2 {
		t.Fatalf("equivalent names should share a key: %v != %v", k1, k2)
	}
	if !IsPlaceholderKey(k1) {
		t.Fatalf("%v should be a placeholder key", k1)
	}
	if IsPlaceholderKey("123456789") {
		t.Fatalf("tax IDs are not placeholder keys")
	}
	if k3 := PlaceholderKey("Beta Fund"); k3 == k1 {
		t.Fatalf("distinct names should get distinct keys")
	}
}

func TestValidEIN(t *testing.T) {
	valid := []string{"123456789", "12-3456789", "000000001"}
	for _, s := range valid {
		if !ValidEIN(s) {
			t.Fatalf("%q should be valid", s)
		}
	}
	invalid := []string{"", "12345678", "1234567890", "12-345678a", "12 3456789", "none"}
	for _, s := range invalid {
		if ValidEIN(s) {
			t.Fatalf("%q should be invalid", s)
		}
	}
}

func TestCanonicalEIN(t *testing.T) {
	if got := CanonicalEIN("12-3456789"); got != "123456789" {
		t.Fatalf("got %q", got)
	}
	if got := CanonicalEIN("123456789"); got != "123456789" {
		t.Fatalf("got %q", got)
	}
	if got := CanonicalEIN("applesauce"); got != "applesauce" {
		t.Fatalf("malformed input should pass through, got %q", got)
	}
}
