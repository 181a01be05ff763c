package ids

import "testing"

func TestAllocateStable(t *testing.T) {
	m := New[string]()

	id1 := m.Allocate("thread-a")
	id2 := m.Allocate("thread-a")

	if id1 != id2 {
		t.Fatalf("Allocate should be idempotent for the same key: got %d then %d", id1, id2)
	}

	id3 := m.Allocate("thread-b")
	if id3 == id1 {
		t.Fatalf("distinct keys must get distinct ids")
	}
}

func TestToExternalToInternal(t *testing.T) {
	m := New[string]()
	id := m.Allocate("frame-1")

	gotID, ok := m.ToExternal("frame-1")
	if !ok || gotID != id {
		t.Fatalf("ToExternal(frame-1) = (%d, %v), want (%d, true)", gotID, ok, id)
	}

	gotKey, ok := m.ToInternal(id)
	if !ok || gotKey != "frame-1" {
		t.Fatalf("ToInternal(%d) = (%q, %v), want (frame-1, true)", id, gotKey, ok)
	}

	if _, ok := m.ToInternal(999); ok {
		t.Fatalf("ToInternal of unknown id should report false")
	}
}

func TestRemoveExternalIDNeverReused(t *testing.T) {
	m := New[string]()
	id1 := m.Allocate("a")
	m.RemoveExternal(id1)

	if _, ok := m.ToInternal(id1); ok {
		t.Fatalf("removed external id should no longer resolve")
	}

	id2 := m.Allocate("b")
	if id2 == id1 {
		t.Fatalf("external ids must never be reused, got %d again", id2)
	}
}

func TestRemoveInternal(t *testing.T) {
	m := New[string]()
	id := m.Allocate("x")
	m.RemoveInternal("x")

	if _, ok := m.ToExternal("x"); ok {
		t.Fatalf("removed internal key should no longer resolve")
	}
	if _, ok := m.ToInternal(id); ok {
		t.Fatalf("removed internal key's id should no longer resolve")
	}
}

func TestClearKeepsAllocationMonotonic(t *testing.T) {
	m := New[string]()
	id1 := m.Allocate("a")
	m.Clear()
	id2 := m.Allocate("a")

	if id2 == id1 {
		t.Fatalf("Clear must not reset the id counter: got %d again after clear", id2)
	}
}
