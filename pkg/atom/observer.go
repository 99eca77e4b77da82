package atom

// Observer is anything that can be notified when a field it watches changes.
type Observer interface {
	// Notify informs the observer that a watched field has changed.
	Notify()

	// ID returns a unique identifier for this observer.
	// Used for deduplication and for notification exceptions.
	ID() uint64
}

// Unsubscribe removes a previously installed observation.
// It is safe to call more than once.
type Unsubscribe func()

type funcObserver struct {
	id uint64
	fn func()
}

// ObserverFunc adapts a plain function into an Observer with a fresh ID.
// Each call produces a distinct observer, even for the same function.
func ObserverFunc(fn func()) Observer {
	return &funcObserver{id: nextID(), fn: fn}
}

func (o *funcObserver) Notify() { o.fn() }

func (o *funcObserver) ID() uint64 { return o.id }
