package atom

// Focus derives a standalone single-field atom wrapping {value: current}
// and keeps it bidirectionally synchronized with key on this atom. Reading
// or writing the focused atom's value is indistinguishable from touching the
// parent field directly, but the focused atom can be passed around and
// observed independently.
//
// Focus is memoized per atom and key: repeated focusing returns the same
// handle. It fails with InvalidFocusKeyError when key is absent or holds a
// composite value; focus is only defined over terminal fields.
func (a *Atom) Focus(key string) (*Atom, error) {
	s := a.state

	s.focusMu.Lock()
	defer s.focusMu.Unlock()

	if s.fieldAtoms == nil {
		s.fieldAtoms = make(map[string]*Atom)
	}
	if child, ok := s.fieldAtoms[key]; ok {
		return child, nil
	}

	cur, ok := s.load(key)
	if !ok {
		return nil, &InvalidFocusKeyError{Key: key, Reason: "no such field"}
	}
	if _, composite := cur.(*Atom); composite {
		return nil, &InvalidFocusKeyError{Key: key, Reason: "field holds a composite value"}
	}

	child := New(cur)
	link(s, key, child.state, "value")
	s.fieldAtoms[key] = child
	return child, nil
}

// FocusFunc runs probe inside a fresh scan frame and focuses the single
// (atom, field) pair it read. This lets call sites express the focus target
// through an ordinary read instead of a key string:
//
//	ref, err := atom.FocusFunc(func() { state.Get("count") })
//
// Any read count other than exactly one field on exactly one atom fails with
// AmbiguousFocusError.
func FocusFunc(probe func()) (*Atom, error) {
	f := newFrame(false)
	pushFrame(f)
	func() {
		defer popFrame(f)
		probe()
	}()

	total := 0
	for _, st := range f.order {
		total += len(f.reads[st])
	}
	if len(f.order) != 1 || total != 1 {
		return nil, &AmbiguousFocusError{Atoms: len(f.order), Keys: total}
	}

	st := f.order[0]
	return st.wrapper.Focus(f.reads[st][0])
}

// link establishes bidirectional synchronization between a.akey and b.bkey.
// Each direction copies the value across without going through the peer's
// set trap, then notifies the peer's observers with the reverse-direction
// observer excepted. That asymmetric exception is what stops an
// A-notifies-B-notifies-A loop while still letting both directions reach
// independent third-party observers.
func link(a *State, akey string, b *State, bkey string) {
	var forward, reverse Observer

	forward = ObserverFunc(func() {
		v, _ := a.load(akey)
		b.store(bkey, v)
		b.Notify([]string{bkey}, reverse)
	})
	reverse = ObserverFunc(func() {
		v, _ := b.load(bkey)
		a.store(akey, v)
		a.Notify([]string{akey}, forward)
	})

	a.watchKey(akey, forward)
	b.watchKey(bkey, reverse)
}
