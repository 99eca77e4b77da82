package atom

import (
	"errors"
	"reflect"
	"testing"
)

func TestIdentityStability(t *testing.T) {
	src := map[string]any{"a": 1}

	if New(src) != New(src) {
		t.Error("wrapping the same record twice should return the same handle")
	}

	a := New(src)
	if New(a) != a {
		t.Error("wrapping an atom should return it as-is")
	}
}

func TestTransparency(t *testing.T) {
	src := map[string]any{"name": "Ada", "age": 36}
	a := New(src)

	if a.Get("name") != "Ada" {
		t.Errorf("expected %q, got %v", "Ada", a.Get("name"))
	}
	if a.Get("age") != 36 {
		t.Errorf("expected 36, got %v", a.Get("age"))
	}
	if !a.Has("name") || a.Has("missing") {
		t.Error("Has should mirror the source fields")
	}
}

func TestRecursiveAtomization(t *testing.T) {
	a := New(map[string]any{"a": map[string]any{"b": 1}})

	inner := a.Get("a")
	if !IsAtom(inner) {
		t.Fatal("nested composite values should be atomized")
	}
	if inner.(*Atom).Get("b") != 1 {
		t.Error("nested atom should expose the original value")
	}
}

func TestPrimitiveCoercion(t *testing.T) {
	n := New(5)

	if n.Value() != 5 {
		t.Errorf("expected 5, got %v", n.Value())
	}
	n.SetValue(9)
	if n.Value() != 9 {
		t.Errorf("expected 9, got %v", n.Value())
	}
}

func TestWriteAtomizesValue(t *testing.T) {
	a := New(map[string]any{"x": 1})

	a.Set("x", map[string]any{"nested": true})
	if !IsAtom(a.Get("x")) {
		t.Error("composite values should be atomized at assignment time")
	}
}

func TestCyclicConstruction(t *testing.T) {
	src := map[string]any{"name": "root"}
	src["self"] = src

	a := New(src)
	self, ok := a.Get("self").(*Atom)
	if !ok {
		t.Fatal("cyclic field should be atomized")
	}
	if self != a {
		t.Error("a field pointing back at its ancestor must resolve to the same wrapper")
	}
}

func TestListAtom(t *testing.T) {
	u := New([]any{"a", "b"})

	if !u.IsList() {
		t.Fatal("slice sources should produce list atoms")
	}
	if u.Len() != 2 {
		t.Errorf("expected length 2, got %d", u.Len())
	}
	if u.GetIndex(1) != "b" {
		t.Errorf("expected %q, got %v", "b", u.GetIndex(1))
	}

	u.Append("c")
	if u.Len() != 3 || u.GetIndex(2) != "c" {
		t.Error("Append should extend the list")
	}

	// Writing past the end extends too; the set trap never rejects a write.
	u.SetIndex(5, "f")
	if u.Len() != 6 {
		t.Errorf("expected length 6 after sparse write, got %d", u.Len())
	}
}

func TestAppendNotifiesLength(t *testing.T) {
	u := New([]any{1})
	obs := newTestObserver()
	unsub := u.state.Watch([]string{"length"}, obs)
	defer unsub()

	u.Append(2)
	if obs.notifyCount() != 1 {
		t.Errorf("expected length observer to fire once, got %d", obs.notifyCount())
	}
}

func TestStateOf(t *testing.T) {
	a := New(map[string]any{"x": 1})

	st, err := StateOf(a)
	if err != nil || st != a.state {
		t.Errorf("StateOf(atom) = %v, %v", st, err)
	}

	if _, err := StateOf(42); err == nil {
		t.Fatal("StateOf on a plain value should fail")
	} else if !errors.Is(err, ErrNotAtom) {
		t.Errorf("expected ErrNotAtom, got %v", err)
	}
}

func TestKeysInsertionOrder(t *testing.T) {
	a := New(map[string]any{"b": 1, "a": 2})

	// Construction sorts for determinism; later writes append.
	a.Set("z", 3)
	a.Set("m", 4)

	want := []string{"a", "b", "z", "m"}
	if !reflect.DeepEqual(a.Keys(), want) {
		t.Errorf("expected keys %v, got %v", want, a.Keys())
	}
}

func TestReleaseUnpinsGraph(t *testing.T) {
	child := map[string]any{"y": 2}
	src := map[string]any{"x": 1, "child": child}

	a := New(src)
	nested := a.Get("child").(*Atom)

	Release(a)

	// A released source rebuilds fresh, so the registry no longer pins it.
	if New(src) == a {
		t.Error("re-wrap after Release should build a fresh handle")
	}
	if New(child) == nested {
		t.Error("Release should unpin nested sources too")
	}

	// The released handle itself still works.
	if a.Get("x") != 1 {
		t.Error("released atoms stay usable as handles")
	}
}

func TestReleaseCyclicGraph(t *testing.T) {
	src := map[string]any{"name": "root"}
	src["self"] = src

	a := New(src)
	Release(a)

	if New(src) == a {
		t.Error("cyclic graphs must release without recursing forever")
	}
}

func TestReleaseNonAtom(t *testing.T) {
	// No-op; Release is safe on anything.
	Release(42)
	Release(nil)
}

func TestPeekDoesNotTrack(t *testing.T) {
	a := New(map[string]any{"x": 1})

	f := newFrame(false)
	pushFrame(f)
	_ = a.Peek("x")
	popFrame(f)

	if !f.empty() {
		t.Error("Peek should not record into the scan frame")
	}
}
