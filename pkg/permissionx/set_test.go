package permissionx

import (
	"slices"
	"testing"
)

func TestPermissionSetKeepsInsertionOrder(t *testing.T) {
	s := newPermissionSet("b", "a", "c", "a")
	if got := s.list(); !slices.Equal(got, []string{"b", "a", "c"}) {
		t.Errorf("expected [b a c], got %v", got)
	}

	if !s.remove("a") {
		t.Error("expected remove to report a present id")
	}
	if s.remove("a") {
		t.Error("expected second remove to report a missing id")
	}
	s.add("a")
	if got := s.list(); !slices.Equal(got, []string{"b", "c", "a"}) {
		t.Errorf("expected re-added id at the end, got %v", got)
	}
}

func TestPermissionSetListIsCopy(t *testing.T) {
	s := newPermissionSet("x")
	l := s.list()
	l[0] = "mutated"
	if !s.has("x") || s.list()[0] != "x" {
		t.Error("mutating the list changed the set")
	}
}

func TestPermissionSetEmptyListIsNonNil(t *testing.T) {
	s := newPermissionSet()
	if got := s.list(); got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil list, got %#v", got)
	}
	s.add("x")
	s.clear()
	if s.len() != 0 || s.has("x") {
		t.Error("clear left ids behind")
	}
}

func TestClassifyKeepsSetsDisjoint(t *testing.T) {
	r := NewRequest(Host{})
	r.classify("a", classPermanentlyDenied)
	if !r.tempPermanentlyDenied.has("a") {
		t.Error("expected permanently denied id to be buffered")
	}
	r.classify("a", classGranted)

	if !r.granted.has("a") {
		t.Error("expected a to be granted")
	}
	for name, s := range map[string]*permissionSet{
		"denied":            r.denied,
		"permanentlyDenied": r.permanentlyDenied,
		"wontRequest":       r.wontRequest,
		"temp":              r.tempPermanentlyDenied,
	} {
		if s.has("a") {
			t.Errorf("a still present in %s", name)
		}
	}
}
