package atom

import "sync"

// Set is an observable set-shaped container. Built-in container mutations
// happen inside method bodies where no set trap can see them, so Set's
// mutators notify their effects explicitly through the backing atom's manual
// table: Add and Delete are registered as changing the "items" and "size"
// fields, and membership reads track "items".
//
// Mutators report whether they changed the set and only notify when they
// did.
type Set[T comparable] struct {
	atom  *Atom
	mu    sync.RWMutex
	items map[T]struct{}
	order []T
}

// NewSet creates an observable set seeded with items.
func NewSet[T comparable](items ...T) *Set[T] {
	s := &Set[T]{
		atom:  New(map[string]any{"size": 0}),
		items: make(map[T]struct{}, len(items)),
	}
	st := s.atom.state
	st.SetManual("Add", "items", "size")
	st.SetManual("Delete", "items", "size")
	st.SetManual("Clear", "items", "size")

	for _, item := range items {
		if _, dup := s.items[item]; !dup {
			s.items[item] = struct{}{}
			s.order = append(s.order, item)
		}
	}
	st.store("size", len(s.items))
	return s
}

// Atom returns the backing atom, for watching or focusing the size field.
func (s *Set[T]) Atom() *Atom {
	return s.atom
}

// Has reports membership, tracking the read.
func (s *Set[T]) Has(item T) bool {
	recordRead(s.atom.state, "items")
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.items[item]
	return ok
}

// Len returns the element count, tracking the read.
func (s *Set[T]) Len() int {
	n, _ := s.atom.Get("size").(int)
	return n
}

// Values returns the elements in insertion order, tracking the read.
func (s *Set[T]) Values() []T {
	recordRead(s.atom.state, "items")
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, len(s.order))
	copy(out, s.order)
	return out
}

// Add inserts item. Returns true if the set changed.
func (s *Set[T]) Add(item T) bool {
	s.mu.Lock()
	if _, dup := s.items[item]; dup {
		s.mu.Unlock()
		return false
	}
	s.items[item] = struct{}{}
	s.order = append(s.order, item)
	n := len(s.items)
	s.mu.Unlock()

	s.commit("Add", n)
	return true
}

// Delete removes item. Returns true if the set changed.
func (s *Set[T]) Delete(item T) bool {
	s.mu.Lock()
	if _, ok := s.items[item]; !ok {
		s.mu.Unlock()
		return false
	}
	delete(s.items, item)
	for i, v := range s.order {
		if v == item {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	n := len(s.items)
	s.mu.Unlock()

	s.commit("Delete", n)
	return true
}

// Clear removes every element. Returns true if the set changed.
func (s *Set[T]) Clear() bool {
	s.mu.Lock()
	if len(s.items) == 0 {
		s.mu.Unlock()
		return false
	}
	s.items = make(map[T]struct{})
	s.order = nil
	s.mu.Unlock()

	s.commit("Clear", 0)
	return true
}

// commit stores the new size and fires the method's manual-table keys.
func (s *Set[T]) commit(method string, size int) {
	st := s.atom.state
	st.store("size", size)
	st.Notify(st.manualKeys(method))
}
