package atom

import (
	"errors"
	"testing"
)

func TestFocusRoundTrip(t *testing.T) {
	state := New(map[string]any{"count": 0})

	ref, err := FocusFunc(func() { state.Get("count") })
	if err != nil {
		t.Fatalf("FocusFunc: %v", err)
	}

	state.Set("count", 5)
	if ref.Value() != 5 {
		t.Errorf("parent write should propagate to focus, got %v", ref.Value())
	}

	ref.SetValue(9)
	if state.Get("count") != 9 {
		t.Errorf("focus write should propagate to parent, got %v", state.Get("count"))
	}
}

func TestLinkedObserversFireOncePerWrite(t *testing.T) {
	state := New(map[string]any{"count": 0})
	ref, err := state.Focus("count")
	if err != nil {
		t.Fatalf("Focus: %v", err)
	}

	parentObs := newTestObserver()
	childObs := newTestObserver()
	defer state.State().Watch([]string{"count"}, parentObs)()
	defer ref.State().Watch([]string{"value"}, childObs)()

	state.Set("count", 1)
	if parentObs.notifyCount() != 1 || childObs.notifyCount() != 1 {
		t.Errorf("after parent write: parent=%d child=%d, want 1 and 1",
			parentObs.notifyCount(), childObs.notifyCount())
	}

	ref.SetValue(2)
	if parentObs.notifyCount() != 2 || childObs.notifyCount() != 2 {
		t.Errorf("after focus write: parent=%d child=%d, want 2 and 2",
			parentObs.notifyCount(), childObs.notifyCount())
	}

	if state.Get("count") != 2 || ref.Value() != 2 {
		t.Error("linked sides diverged")
	}
}

func TestFocusMemoized(t *testing.T) {
	state := New(map[string]any{"count": 0})

	first, err := state.Focus("count")
	if err != nil {
		t.Fatalf("Focus: %v", err)
	}
	second, err := state.Focus("count")
	if err != nil {
		t.Fatalf("Focus: %v", err)
	}
	if first != second {
		t.Error("repeated focusing of one key should return the same atom")
	}
}

func TestFocusInvalidKey(t *testing.T) {
	state := New(map[string]any{"count": 0, "nested": map[string]any{"x": 1}})

	var focusErr *InvalidFocusKeyError

	if _, err := state.Focus("missing"); err == nil {
		t.Error("focusing an absent key should fail")
	} else if !errors.As(err, &focusErr) {
		t.Errorf("expected InvalidFocusKeyError, got %v", err)
	}

	if _, err := state.Focus("nested"); err == nil {
		t.Error("focus is only defined over terminal fields")
	} else if !errors.As(err, &focusErr) {
		t.Errorf("expected InvalidFocusKeyError, got %v", err)
	}
}

func TestFocusFuncAmbiguous(t *testing.T) {
	a := New(map[string]any{"x": 1, "y": 2})
	b := New(map[string]any{"z": 3})

	var ambiguous *AmbiguousFocusError

	if _, err := FocusFunc(func() {}); err == nil {
		t.Error("probe reading nothing should fail")
	} else if !errors.As(err, &ambiguous) {
		t.Errorf("expected AmbiguousFocusError, got %v", err)
	}

	if _, err := FocusFunc(func() { a.Get("x"); a.Get("y") }); err == nil {
		t.Error("probe reading two fields should fail")
	}

	if _, err := FocusFunc(func() { a.Get("x"); b.Get("z") }); err == nil {
		t.Error("probe reading two atoms should fail")
	}
}

func TestFocusThirdPartyPropagation(t *testing.T) {
	state := New(map[string]any{"count": 0})
	ref, err := state.Focus("count")
	if err != nil {
		t.Fatalf("Focus: %v", err)
	}

	// Third-party observation of the focus sees parent-side writes.
	seen := -1
	unsub := Observe(func() {
		seen = ref.Value().(int)
	})
	defer unsub()

	state.Set("count", 42)
	if seen != 42 {
		t.Errorf("expected third-party observer to see 42, got %d", seen)
	}
}
