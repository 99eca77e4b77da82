package atom

import "sync"

var (
	pendingHooksMu sync.Mutex

	// pendingHooks holds post-atomization callbacks registered before their
	// target was ever wrapped, keyed by source identity.
	pendingHooks = make(map[identityKey][]func(*Atom))
)

// WhenAtom registers fn to run once, with the finished wrapper, when target
// is first atomized. Callbacks run in registration order and never again on
// later wraps of the same source.
//
// This exists for subscriptions created at construction time: code that runs
// before its instance is wrapped would otherwise observe the pre-wrap,
// non-reactive value and never trigger. By contract the hook is only
// meaningful before atomization; if target is already atomized, or has no
// stable identity to key on, the registration is dropped.
func WhenAtom(target any, fn func(*Atom)) {
	key, ok := identityOf(target)
	if !ok {
		return
	}
	if _, atomized := registry.Load(key); atomized {
		return
	}

	pendingHooksMu.Lock()
	pendingHooks[key] = append(pendingHooks[key], fn)
	pendingHooksMu.Unlock()
}

// runPendingHooks fires and clears the deferred callbacks for key. Called by
// New exactly once per source, after field atomization finishes.
func runPendingHooks(key identityKey, a *Atom) {
	pendingHooksMu.Lock()
	hooks := pendingHooks[key]
	delete(pendingHooks, key)
	pendingHooksMu.Unlock()

	for _, fn := range hooks {
		fn(a)
	}
}
