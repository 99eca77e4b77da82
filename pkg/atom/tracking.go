package atom

import (
	"runtime"
	"sync"
)

// frame is a single recording session on the scan stack. While a frame is
// topmost, every tracked read registers the (state, key) pair into it.
//
// A discard frame absorbs reads without ever being finalized into
// subscriptions; this is how Unobserve suppresses tracking while still
// shadowing any outer recording frame.
type frame struct {
	id      uint64
	discard bool

	// order holds states in first-read order so watch installation and
	// focus resolution are deterministic.
	order []*State

	// reads maps each state to its read keys in first-read order, deduped.
	reads map[*State][]string
}

func newFrame(discard bool) *frame {
	return &frame{
		id:      nextID(),
		discard: discard,
		reads:   make(map[*State][]string),
	}
}

// record registers a read of key on s. Duplicate reads collapse.
func (f *frame) record(s *State, key string) {
	keys, seen := f.reads[s]
	if !seen {
		f.order = append(f.order, s)
	}
	for _, k := range keys {
		if k == key {
			return
		}
	}
	f.reads[s] = append(keys, key)
}

// empty reports whether no reads were recorded.
func (f *frame) empty() bool {
	return len(f.order) == 0
}

// trackingContext holds the scan-frame stack for one goroutine.
// Each goroutine gets its own stack so concurrent host sessions can record
// independently.
type trackingContext struct {
	frames []*frame
}

// trackingContexts stores per-goroutine tracking contexts.
var trackingContexts sync.Map

// getGoroutineID returns a unique identifier for the current goroutine,
// parsed from the runtime stack header. Implementation detail; never exposed.
func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)

	// The stack starts with "goroutine <id> ".
	var id uint64
	for i := 10; i < n; i++ { // Skip "goroutine "
		if buf[i] == ' ' {
			break
		}
		id = id*10 + uint64(buf[i]-'0')
	}
	return id
}

// getTrackingContext returns the tracking context for the current goroutine,
// creating one if needed.
func getTrackingContext() *trackingContext {
	gid := getGoroutineID()

	if ctx, ok := trackingContexts.Load(gid); ok {
		return ctx.(*trackingContext)
	}

	ctx := &trackingContext{}
	trackingContexts.Store(gid, ctx)
	return ctx
}

// pushFrame installs f as the new topmost frame.
func pushFrame(f *frame) {
	ctx := getTrackingContext()
	ctx.frames = append(ctx.frames, f)
}

// popFrame removes f from the stack by identity. Removal tolerates f not
// being topmost: interleaved observe/unobserve sessions must still unwind
// cleanly even when their pops arrive out of LIFO order.
func popFrame(f *frame) {
	ctx := getTrackingContext()
	for i := len(ctx.frames) - 1; i >= 0; i-- {
		if ctx.frames[i].id == f.id {
			ctx.frames = append(ctx.frames[:i], ctx.frames[i+1:]...)
			return
		}
	}
}

// currentFrame returns the topmost frame, or nil when the stack is empty.
func currentFrame() *frame {
	ctx := getTrackingContext()
	if n := len(ctx.frames); n > 0 {
		return ctx.frames[n-1]
	}
	return nil
}

// recordRead registers a read into the topmost frame, if any. Nesting is
// exclusive: only the topmost frame sees the read. Reads under a discard
// frame vanish from tracking entirely.
func recordRead(s *State, key string) {
	f := currentFrame()
	if f == nil || f.discard {
		return
	}
	f.record(s, key)
}
