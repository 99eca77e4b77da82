// Package atom provides the reactive core for Atlas.
//
// The system wraps composite values (records and lists) in reactive handles
// called atoms. Reading a field during a tracked observation automatically
// subscribes the observation to that field; writing a field notifies exactly
// the observers that read it.
//
// # Core Types
//
// Atom is a reactive handle for a composite value:
//
//	user := atom.New(map[string]any{"name": "Ada", "age": 36})
//	name := user.Get("name")   // Read (records into the current scan frame)
//	user.Set("age", 37)        // Write (notifies observers of "age")
//
// Non-composite values are coerced into a single-field record:
//
//	n := atom.New(5)
//	n.Value()      // 5
//	n.SetValue(9)
//
// # Observation
//
// Observe runs a callback inside a recording frame and subscribes it to
// every field it read:
//
//	unsubscribe := atom.Observe(func() {
//	    fmt.Println("name is:", user.Get("name"))
//	})
//
// Unobserve suppresses tracking for the duration of the callback, even when
// nested inside an active observation:
//
//	age := atom.Unobserve(func() any { return user.Get("age") })
//
// # Focus
//
// Focus derives a standalone single-field atom kept bidirectionally in sync
// with a field on its parent:
//
//	ref, err := atom.FocusFunc(func() { user.Get("age") })
//	ref.SetValue(40)   // user.Get("age") == 40
//
// # Concurrency
//
// Scan frames are tracked per goroutine. Atom state itself is guarded by
// locks, but the intended model is cooperative: all writes and their
// synchronous notification fan-out happen on one logical thread of execution,
// typically a host session's event loop.
package atom
