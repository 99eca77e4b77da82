package atom

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"sync"
)

// Atom is the reactive handle for a composite value. Reads go through Get
// (which records into the current scan frame), writes go through Set (which
// notifies observers of the written field). The handle never exposes the raw
// underlying record; Distill is the only sanctioned escape hatch.
type Atom struct {
	state *State
}

// identityKey identifies a source value by reference. Two sources compare
// equal only when they are the same live map, slice, or pointer.
type identityKey struct {
	ptr  uintptr
	kind reflect.Kind
}

type registryEntry struct {
	// source pins the original value so its address can never be reused by
	// a different live object while the entry exists. Atom state shares the
	// lifetime of its source.
	source any
	state  *State
}

// registry is the identity-keyed memo table: one State per source identity.
var registry sync.Map

// identityOf returns the reference identity of v. Values without a stable
// reference identity (primitives, nil or empty slices) report false and are
// never memoized.
func identityOf(v any) (identityKey, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Pointer, reflect.Chan, reflect.Func:
		if rv.IsNil() {
			return identityKey{}, false
		}
		return identityKey{ptr: rv.Pointer(), kind: rv.Kind()}, true
	case reflect.Slice:
		if rv.IsNil() || rv.Cap() == 0 {
			return identityKey{}, false
		}
		return identityKey{ptr: rv.Pointer(), kind: rv.Kind()}, true
	default:
		return identityKey{}, false
	}
}

// New wraps source as an atom. Composite sources (map[string]any records and
// []any lists) wrap field-for-field; anything else is coerced into a
// single-field {value: source} record first, since only composite values can
// carry observation hooks.
//
// New is idempotent under identity: wrapping the same live record twice
// returns the same handle, and wrapping an existing atom returns it as-is.
func New(source any) *Atom {
	switch v := source.(type) {
	case *Atom:
		return v
	case *State:
		return v.wrapper
	case map[string]any:
		return newComposite(source, func(st *State) {
			// Sort for deterministic field order; map iteration has none.
			keys := make([]string, 0, len(v))
			for k := range v {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				st.store(k, atomize(v[k]))
			}
		}, false)
	case []any:
		return newComposite(source, func(st *State) {
			for i, item := range v {
				st.store(strconv.Itoa(i), atomize(item))
			}
		}, true)
	default:
		st := newState(false)
		a := &Atom{state: st}
		st.wrapper = a
		st.store("value", atomize(source))
		// Coerced sources are never memoized, but identity-bearing ones
		// (a struct pointer, say) can still have deferred hooks queued
		// against them; fire those instead of leaving them stranded.
		if key, ok := identityOf(source); ok {
			runPendingHooks(key, a)
		}
		return a
	}
}

// newComposite builds the state for a composite source. Registration happens
// before field recursion so a cyclic source resolves to the already-created
// wrapper instead of recursing forever.
func newComposite(source any, fill func(*State), list bool) *Atom {
	key, hasKey := identityOf(source)
	if hasKey {
		if e, ok := registry.Load(key); ok {
			return e.(*registryEntry).state.wrapper
		}
	}

	st := newState(list)
	a := &Atom{state: st}
	st.wrapper = a
	st.sourceKey = key
	st.hasSource = hasKey

	if hasKey {
		if prev, loaded := registry.LoadOrStore(key, &registryEntry{source: source, state: st}); loaded {
			return prev.(*registryEntry).state.wrapper
		}
	}

	fill(st)

	if hasKey {
		runPendingHooks(key, a)
	}
	return a
}

// Release drops the atom graph reachable from v out of the identity
// registry, so the sources it pins become collectable once the caller's own
// references go away. Hosts with bounded-lifetime state, like a live session
// tearing down, call this on their root atom; without it the registry keeps
// every wrapped source alive for the life of the process.
//
// Released atoms keep working as handles; only the source-to-state memo is
// forgotten, so a later New of the same source builds a fresh wrapper.
func Release(v any) {
	s, err := StateOf(v)
	if err != nil {
		return
	}
	release(s, make(map[*State]struct{}))
}

func release(s *State, seen map[*State]struct{}) {
	if _, done := seen[s]; done {
		return
	}
	seen[s] = struct{}{}

	if s.hasSource {
		registry.Delete(s.sourceKey)
	}
	for _, k := range s.snapshotKeys() {
		if child, ok := s.load(k); ok {
			if ca, isAtom := child.(*Atom); isAtom {
				release(ca.state, seen)
			}
		}
	}
}

// atomize makes a value reactive if it is composite and passes it through
// unchanged otherwise. Already-wrapped values come back identity-stable.
func atomize(v any) any {
	switch v.(type) {
	case *Atom:
		return v
	case map[string]any, []any:
		return New(v)
	default:
		return v
	}
}

// IsAtom reports whether v carries atom state.
func IsAtom(v any) bool {
	switch v.(type) {
	case *Atom, *State:
		return true
	}
	return false
}

// StateOf returns the atom state behind v. It fails with ErrNotAtom when v
// has not been atomized.
func StateOf(v any) (*State, error) {
	switch t := v.(type) {
	case *Atom:
		return t.state, nil
	case *State:
		return t, nil
	}
	return nil, fmt.Errorf("%w (%T)", ErrNotAtom, v)
}

// ID returns the unique identifier of the atom's state.
func (a *Atom) ID() uint64 {
	return a.state.id
}

// State returns the atom's state record.
func (a *Atom) State() *State {
	return a.state
}

// IsList reports whether the atom wraps a list-shaped source.
func (a *Atom) IsList() bool {
	return a.state.list
}

// Get is the read trap: it records the read into the current scan frame, if
// one is active, and returns the underlying value for key. Missing keys
// read as nil, and the read is still recorded so a later write to the key
// notifies the observation.
func (a *Atom) Get(key string) any {
	recordRead(a.state, key)
	v, _ := a.state.load(key)
	return v
}

// Peek returns the value for key without recording a read.
func (a *Atom) Peek(key string) any {
	v, _ := a.state.load(key)
	return v
}

// Has reports whether key is present, recording the read.
func (a *Atom) Has(key string) bool {
	recordRead(a.state, key)
	_, ok := a.state.load(key)
	return ok
}

// GetIndex reads a list element. Equivalent to Get of the decimal key.
func (a *Atom) GetIndex(i int) any {
	return a.Get(strconv.Itoa(i))
}

// GetAtom reads key and returns its value as an atom handle, or nil when the
// value is not composite. Convenience for chained access into nested records.
func (a *Atom) GetAtom(key string) *Atom {
	if child, ok := a.Get(key).(*Atom); ok {
		return child
	}
	return nil
}

// At is GetAtom for list elements.
func (a *Atom) At(i int) *Atom {
	return a.GetAtom(strconv.Itoa(i))
}

// Set is the write trap: it atomizes v, stores it as the new value for key,
// then notifies every observer of that field. Writes always succeed; writing
// a new key creates it.
func (a *Atom) Set(key string, v any) {
	a.state.store(key, atomize(v))
	a.state.Notify([]string{key})
}

// SetIndex writes a list element. Writing past the end extends the list.
func (a *Atom) SetIndex(i int, v any) {
	a.Set(strconv.Itoa(i), v)
}

// Value reads the coerced primitive field. Only meaningful for atoms built
// from non-composite sources.
func (a *Atom) Value() any {
	return a.Get("value")
}

// SetValue writes the coerced primitive field.
func (a *Atom) SetValue(v any) {
	a.Set("value", v)
}

// Len returns the list length or, for records, the field count. For lists
// the read is tracked under the "length" key so appends notify it.
func (a *Atom) Len() int {
	s := a.state
	if s.list {
		recordRead(s, "length")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.list {
		return s.length
	}
	return len(s.keys)
}

// Keys returns the field keys in insertion order, without tracking.
func (a *Atom) Keys() []string {
	return a.state.snapshotKeys()
}

// Append adds an element to the end of a list atom, notifying the new index
// and the length. Does nothing for record atoms.
func (a *Atom) Append(v any) {
	s := a.state
	if !s.list {
		return
	}
	s.mu.RLock()
	idx := strconv.Itoa(s.length)
	s.mu.RUnlock()

	s.store(idx, atomize(v))
	s.Notify([]string{idx, "length"})
}
