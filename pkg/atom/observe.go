package atom

import (
	"log/slog"
	"sync"
)

// Observe runs fn inside a fresh recording frame, then subscribes fn to every
// (atom, field) pair it read. The callback re-runs on every notification of
// any watched field; reads during those re-runs are plain, untracked reads.
//
// The returned unsubscribe tears down every installed watch together and is
// safe to call more than once.
//
// An observation that records zero reads almost always indicates a caller
// bug (the fields were read before tracking started, or the callback is
// side-effect free), so a diagnostic warning is logged for it.
func Observe(fn func()) Unsubscribe {
	f := newFrame(false)
	pushFrame(f)
	func() {
		defer popFrame(f)
		fn()
	}()

	if f.empty() {
		slog.Warn("atlas: observation recorded no atom reads; nothing will trigger it")
		return func() {}
	}

	obs := ObserverFunc(fn)
	unsubs := make([]Unsubscribe, 0, len(f.order))
	for _, st := range f.order {
		unsubs = append(unsubs, st.Watch(f.reads[st], obs))
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			for _, u := range unsubs {
				u()
			}
		})
	}
}

// Unobserve runs fn inside a discard frame and returns its result. Reads
// inside are ordinary, untracked reads; because the discard frame sits on
// top of the stack, an enclosing Observe never sees them either.
func Unobserve[T any](fn func() T) T {
	f := newFrame(true)
	pushFrame(f)
	defer popFrame(f)
	return fn()
}

// UnobserveFunc is Unobserve for callbacks with no result.
func UnobserveFunc(fn func()) {
	f := newFrame(true)
	pushFrame(f)
	defer popFrame(f)
	fn()
}
