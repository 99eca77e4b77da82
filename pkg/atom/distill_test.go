package atom

import (
	"reflect"
	"testing"
)

func TestDistillRoundTrip(t *testing.T) {
	src := map[string]any{
		"name": "Ada",
		"tags": []any{"math", "pioneer"},
		"address": map[string]any{
			"city": "London",
		},
	}

	got := Distill(New(src))
	if !reflect.DeepEqual(got, src) {
		t.Errorf("distill should deep-equal the source:\n got %#v\nwant %#v", got, src)
	}
}

func TestDistillCopiesNotAliases(t *testing.T) {
	a := New(map[string]any{"x": 1})

	out := Distill(a).(map[string]any)
	out["x"] = 999

	if a.Get("x") != 1 {
		t.Error("distill output must never alias live atom state")
	}
}

func TestDistillCycle(t *testing.T) {
	src := map[string]any{"name": "root"}
	src["self"] = src

	out := Distill(New(src)).(map[string]any)

	self, ok := out["self"].(map[string]any)
	if !ok {
		t.Fatal("cyclic field missing from distilled copy")
	}
	if reflect.ValueOf(self).Pointer() != reflect.ValueOf(out).Pointer() {
		t.Error("cycle should be preserved as shared identity in the output")
	}
	if out["name"] != "root" {
		t.Errorf("expected root name, got %v", out["name"])
	}
}

func TestDistillList(t *testing.T) {
	src := []any{1, map[string]any{"x": 2}, "three"}

	got := Distill(New(src))
	if !reflect.DeepEqual(got, src) {
		t.Errorf("list distill mismatch:\n got %#v\nwant %#v", got, src)
	}
}

func TestDistillPlainCompositesWithNestedAtoms(t *testing.T) {
	// The view-function shape: a plain record assembled around atom fields.
	items := New([]any{map[string]any{"x": 1}, 2})
	view := map[string]any{
		"title": "dash",
		"items": items,
		"meta":  []any{New(map[string]any{"y": 3})},
	}

	want := map[string]any{
		"title": "dash",
		"items": []any{map[string]any{"x": 1}, 2},
		"meta":  []any{map[string]any{"y": 3}},
	}

	got := Distill(view)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("plain composites must be descended into:\n got %#v\nwant %#v", got, want)
	}

	// The input record must not be mutated, only copied.
	if _, stillAtom := view["items"].(*Atom); !stillAtom {
		t.Error("distill must copy, not rewrite, its input")
	}
}

func TestDistillPassThrough(t *testing.T) {
	if Distill(42) != 42 {
		t.Error("non-atom values pass through")
	}
}
