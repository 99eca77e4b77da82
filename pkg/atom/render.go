package atom

import "sync"

// Host is the contract a UI integration provides to bind observations to its
// render lifecycle. The core needs exactly two primitives from it: a way to
// request a re-render of the current render unit, and a way to schedule
// cleanup for when the unit is torn down.
type Host interface {
	// Invalidate requests a re-render of the host's render unit.
	Invalidate()

	// OnCommit registers fn to run when the render unit's lifecycle ends.
	OnCommit(fn func())
}

// RenderScope is the host-integration form of an observation session. One
// scope lives as long as its render unit. Each render cycle brackets the
// host's render call:
//
//	scope.Observe()          // push recording frame
//	view := renderUnit()     // reads record into the frame
//	scope.Commit()           // pop, swap watches, Invalidate on change
//
// Commit always tears the previous render's watches down before installing
// the new set, so a field dropped from this render's dependency set stops
// notifying. The state machine is idle -> recording -> finalized, re-entered
// once per render.
type RenderScope struct {
	mu       sync.Mutex
	host     Host
	frame    *frame
	unsub    Unsubscribe
	obs      Observer
	hooked   bool
	disposed bool
}

// NewRenderScope creates a scope whose notifications call host.Invalidate.
func NewRenderScope(host Host) *RenderScope {
	rs := &RenderScope{host: host}
	rs.obs = ObserverFunc(func() {
		rs.mu.Lock()
		disposed := rs.disposed
		rs.mu.Unlock()
		if !disposed {
			host.Invalidate()
		}
	})
	return rs
}

// Observe begins a recording frame for this render. Watches from the
// previous render stay installed until Commit; the scan of this render is
// only authoritative once the host has committed.
func (rs *RenderScope) Observe() {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.disposed || rs.frame != nil {
		return
	}
	rs.frame = newFrame(false)
	pushFrame(rs.frame)
}

// Unobserve begins a discard frame for this render: the render runs with
// tracking suppressed and Commit finalizes nothing.
func (rs *RenderScope) Unobserve() {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.disposed || rs.frame != nil {
		return
	}
	rs.frame = newFrame(true)
	pushFrame(rs.frame)
}

// Commit finalizes the render's frame: it pops the frame, fully removes the
// previous render's watches, and installs this render's recorded field set
// as the new subscriptions. Safe to call from a defer; a Commit with no open
// frame is a no-op.
func (rs *RenderScope) Commit() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	f := rs.frame
	rs.frame = nil
	if f == nil {
		return
	}
	popFrame(f)

	if rs.disposed || f.discard {
		return
	}

	// Old watches go first so stale subscriptions never accumulate.
	if rs.unsub != nil {
		rs.unsub()
		rs.unsub = nil
	}

	unsubs := make([]Unsubscribe, 0, len(f.order))
	for _, st := range f.order {
		unsubs = append(unsubs, st.Watch(f.reads[st], rs.obs))
	}
	var once sync.Once
	rs.unsub = func() {
		once.Do(func() {
			for _, u := range unsubs {
				u()
			}
		})
	}

	if !rs.hooked {
		rs.hooked = true
		rs.host.OnCommit(rs.Dispose)
	}
}

// Dispose tears down the scope: any open frame is popped unfinalized and all
// watches are removed. Idempotent; a disposed scope ignores further renders.
func (rs *RenderScope) Dispose() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.disposed {
		return
	}
	rs.disposed = true

	if rs.frame != nil {
		popFrame(rs.frame)
		rs.frame = nil
	}
	if rs.unsub != nil {
		rs.unsub()
		rs.unsub = nil
	}
}
