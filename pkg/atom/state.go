package atom

import (
	"strconv"
	"sync"
)

// State is the per-source record behind an atom: the live field storage, the
// observer registry, the focus memo, and the manual notification table.
// There is exactly one State per source identity; StateOf is the sanctioned
// way to reach it from a wrapped value.
type State struct {
	id      uint64
	wrapper *Atom

	// sourceKey is the identity of the original source value, when it had
	// one. Used for self-return substitution in Invoke.
	sourceKey identityKey
	hasSource bool

	// list marks list-shaped sources. List fields use decimal-string keys
	// and maintain a length.
	list   bool
	length int

	// fields is the live underlying record; keys preserves field order.
	fields map[string]any
	keys   []string
	mu     sync.RWMutex

	// observers maps field keys to their observers in registration order.
	observers map[string][]Observer
	obsMu     sync.RWMutex

	// fieldAtoms memoizes the single-field atom produced by Focus per key.
	fieldAtoms map[string]*Atom
	focusMu    sync.Mutex

	// manual maps method names to the field keys an Invoke of that method
	// is treated as having changed.
	manual   map[string][]string
	manualMu sync.RWMutex
}

func newState(list bool) *State {
	return &State{
		id:        nextID(),
		list:      list,
		fields:    make(map[string]any),
		observers: make(map[string][]Observer),
	}
}

// ID returns the unique identifier for this state.
func (s *State) ID() uint64 {
	return s.id
}

// Wrapper returns the atom handle for this state.
func (s *State) Wrapper() *Atom {
	return s.wrapper
}

// load returns the stored value for key without tracking.
func (s *State) load(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.fields[key]
	return v, ok
}

// store writes a value for key without notifying anyone. Both the set trap
// and link copies go through here; the caller decides who gets notified.
func (s *State) store(key string, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.fields[key]; !exists {
		s.keys = append(s.keys, key)
		if s.list {
			if i, err := strconv.Atoi(key); err == nil && i >= s.length {
				s.length = i + 1
			}
		}
	}
	s.fields[key] = v
}

// snapshotKeys returns the field keys in insertion order.
func (s *State) snapshotKeys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, len(s.keys))
	copy(keys, s.keys)
	return keys
}

// watchKey adds an observer to one key's registry, deduplicating by ID so a
// repeated registration is a no-op.
func (s *State) watchKey(key string, o Observer) {
	if o == nil {
		return
	}

	s.obsMu.Lock()
	defer s.obsMu.Unlock()

	oid := o.ID()
	for _, existing := range s.observers[key] {
		if existing.ID() == oid {
			return
		}
	}
	s.observers[key] = append(s.observers[key], o)
}

// unwatchKey removes an observer from one key's registry. Removing an
// already-removed observer is a no-op.
func (s *State) unwatchKey(key string, o Observer) {
	if o == nil {
		return
	}

	s.obsMu.Lock()
	defer s.obsMu.Unlock()

	oid := o.ID()
	obs := s.observers[key]
	for i, existing := range obs {
		if existing.ID() == oid {
			s.observers[key] = append(obs[:i], obs[i+1:]...)
			return
		}
	}
}

// Watch adds observer to each key's registry and returns an unsubscribe that
// removes it from exactly those keys. The unsubscribe is safe to call more
// than once.
func (s *State) Watch(keys []string, o Observer) Unsubscribe {
	for _, k := range keys {
		s.watchKey(k, o)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			for _, k := range keys {
				s.unwatchKey(k, o)
			}
		})
	}
}

// Notify invokes every observer registered against each key, in registration
// order, skipping any observer in except. Exceptions exist solely to break
// notification loops between linked atoms: a notification must never
// re-trigger the observer that caused it.
func (s *State) Notify(keys []string, except ...Observer) {
	for _, key := range keys {
		// Copy before notifying so observer callbacks can subscribe or
		// unsubscribe without holding the lock.
		s.obsMu.RLock()
		obs := make([]Observer, len(s.observers[key]))
		copy(obs, s.observers[key])
		s.obsMu.RUnlock()

	notify:
		for _, o := range obs {
			for _, ex := range except {
				if ex != nil && ex.ID() == o.ID() {
					continue notify
				}
			}
			o.Notify()
		}
	}
}

// SetManual records that an Invoke of method should notify keys after the
// call returns. This is how container-style methods that mutate internally,
// invisible to the set trap, become observable.
func (s *State) SetManual(method string, keys ...string) {
	s.manualMu.Lock()
	defer s.manualMu.Unlock()
	if s.manual == nil {
		s.manual = make(map[string][]string)
	}
	s.manual[method] = keys
}

// manualKeys returns the manual-table entry for method, if any.
func (s *State) manualKeys(method string) []string {
	s.manualMu.RLock()
	defer s.manualMu.RUnlock()
	return s.manual[method]
}
