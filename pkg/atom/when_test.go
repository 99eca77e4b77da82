package atom

import "testing"

func TestWhenAtomOrdering(t *testing.T) {
	src := map[string]any{"x": 1}

	var order []int
	WhenAtom(src, func(*Atom) { order = append(order, 1) })
	WhenAtom(src, func(*Atom) { order = append(order, 2) })
	WhenAtom(src, func(*Atom) { order = append(order, 3) })

	a := New(src)

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("hooks should fire once each in registration order, got %v", order)
	}

	// Re-wrapping the same source must not fire hooks again.
	if New(src) != a {
		t.Error("re-wrap should return the same handle")
	}
	if len(order) != 3 {
		t.Errorf("hooks fired again on re-atomization, got %v", order)
	}
}

func TestWhenAtomReceivesWrapper(t *testing.T) {
	src := map[string]any{"x": 1}

	var got *Atom
	WhenAtom(src, func(a *Atom) { got = a })

	a := New(src)
	if got != a {
		t.Error("hook should receive the finished wrapper")
	}
}

func TestWhenAtomAfterAtomizationDropped(t *testing.T) {
	src := map[string]any{"x": 1}
	_ = New(src)

	fired := false
	WhenAtom(src, func(*Atom) { fired = true })

	_ = New(src)
	if fired {
		t.Error("hooks registered after atomization never fire")
	}
}

func TestWhenAtomCoercedSource(t *testing.T) {
	// Identity-bearing sources that coerce through the {value} branch still
	// get their deferred hooks, at first wrap.
	type box struct{ n int }
	src := &box{n: 7}

	var got *Atom
	WhenAtom(src, func(a *Atom) { got = a })

	a := New(src)
	if got != a {
		t.Fatal("hook should fire for a coerced identity-bearing source")
	}
	if b, ok := a.Value().(*box); !ok || b.n != 7 {
		t.Errorf("expected coerced value, got %v", a.Value())
	}

	// Once fired, the queue entry is gone.
	got = nil
	_ = New(src)
	if got != nil {
		t.Error("hooks fire exactly once")
	}
}

func TestWhenAtomSubscriptionFromConstructor(t *testing.T) {
	// The constructor-time idiom: register observation before the instance
	// is ever wrapped, so it lands on the reactive wrapper.
	src := map[string]any{"status": "new"}

	var seen []string
	WhenAtom(src, func(a *Atom) {
		Observe(func() {
			seen = append(seen, a.Get("status").(string))
		})
	})

	a := New(src)
	a.Set("status", "ready")

	if len(seen) != 2 || seen[0] != "new" || seen[1] != "ready" {
		t.Errorf("expected constructor-time observation to track writes, got %v", seen)
	}
}
