package engine

import (
	"errors"
	"testing"
)

func testOwners() []Owner {
	return []Owner{
		{ID: "o-1", Name: "Alice Ray"},
		{ID: "o-2", Name: "Bob Lin"},
		{ID: "o-3", Name: "Cara Moss"},
	}
}

func TestOwnerRotatorCycle(t *testing.T) {
	r, err := NewOwnerRotator(testOwners())
	if err != nil {
		t.Fatalf("NewOwnerRotator: %v", err)
	}

	want := []string{"o-1", "o-2", "o-3", "o-1", "o-2", "o-3", "o-1"}
	for i, id := range want {
		if got := r.Next(); got.ID != id {
			t.Fatalf("call %d: got owner %s, want %s", i, got.ID, id)
		}
	}
}

func TestOwnerRotatorMatch(t *testing.T) {
	r, err := NewOwnerRotator(testOwners())
	if err != nil {
		t.Fatalf("NewOwnerRotator: %v", err)
	}

	owner, ok := r.Match("Bob Lin")
	if !ok || owner.ID != "o-2" {
		t.Fatalf("Match(Bob Lin) = %v, %v", owner, ok)
	}

	// Named assignment must not advance the cursor.
	if got := r.Next(); got.ID != "o-1" {
		t.Fatalf("cursor moved after Match: next owner %s", got.ID)
	}

	if _, ok := r.Match("bob lin"); ok {
		t.Fatal("Match is case sensitive, lowercase name should not match")
	}
	if _, ok := r.Match(""); ok {
		t.Fatal("empty name should not match")
	}
}

func TestOwnerRotatorValidation(t *testing.T) {
	t.Run("empty list", func(t *testing.T) {
		_, err := NewOwnerRotator(nil)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("got %v, want ValidationError", err)
		}
		if verr.Field != "lead_owners" {
			t.Fatalf("got field %q", verr.Field)
		}
	})

	t.Run("missing id", func(t *testing.T) {
		_, err := NewOwnerRotator([]Owner{{ID: "o-1", Name: "A"}, {Name: "B"}})
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("got %v, want ValidationError", err)
		}
	})
}
