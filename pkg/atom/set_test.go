package atom

import (
	"reflect"
	"testing"
)

func TestSetBasics(t *testing.T) {
	s := NewSet("a", "b", "a")

	if s.Len() != 2 {
		t.Errorf("expected 2 elements after dedup, got %d", s.Len())
	}
	if !s.Has("a") || s.Has("c") {
		t.Error("membership mismatch")
	}
	if !reflect.DeepEqual(s.Values(), []string{"a", "b"}) {
		t.Errorf("expected insertion order, got %v", s.Values())
	}
}

func TestSetMutatorsNotify(t *testing.T) {
	s := NewSet[int]()

	calls := 0
	unsub := Observe(func() {
		_ = s.Has(1)
		calls++
	})
	defer unsub()

	if !s.Add(1) {
		t.Fatal("Add of new element should report change")
	}
	if calls != 2 {
		t.Errorf("Add should notify membership observers, calls = %d", calls)
	}

	// No-op mutations stay silent.
	if s.Add(1) {
		t.Error("duplicate Add should report no change")
	}
	if calls != 2 {
		t.Errorf("no-op Add notified, calls = %d", calls)
	}

	if !s.Delete(1) {
		t.Fatal("Delete of present element should report change")
	}
	if calls != 3 {
		t.Errorf("Delete should notify, calls = %d", calls)
	}
	if s.Delete(1) {
		t.Error("Delete of absent element should report no change")
	}
}

func TestSetLenTracksSize(t *testing.T) {
	s := NewSet[string]()

	sizes := []int{}
	unsub := Observe(func() {
		sizes = append(sizes, s.Len())
	})
	defer unsub()

	s.Add("x")
	s.Add("y")
	s.Clear()

	want := []int{0, 1, 2, 0}
	if !reflect.DeepEqual(sizes, want) {
		t.Errorf("expected size history %v, got %v", want, sizes)
	}
}

func TestSetManualTableDrivesNotification(t *testing.T) {
	s := NewSet[int]()
	st := s.Atom().State()

	if got := st.manualKeys("Add"); !reflect.DeepEqual(got, []string{"items", "size"}) {
		t.Errorf("expected Add manual entry, got %v", got)
	}
}
