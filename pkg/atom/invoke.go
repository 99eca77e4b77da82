package atom

import "fmt"

// Method is the type a field must hold to be invocable through Invoke.
// Methods receive already-atomized arguments.
type Method func(args ...any) any

// Invoke calls the Method stored under name. Arguments are atomized before
// being forwarded, so records passed into atom methods become reactive too.
// After the call returns, any field keys registered for name in the manual
// table are notified; this is how methods that mutate internal state,
// invisible to the set trap, stay observable.
//
// A method that returns its own raw source (a self-returning builder-style
// call) has the atom's wrapper substituted for the return value, so callers
// keep chaining against the reactive handle instead of leaking the raw one.
func (a *Atom) Invoke(name string, args ...any) (any, error) {
	s := a.state

	// The lookup is a tracked read, same as Get: an observation that
	// invoked a method re-runs when the method field is replaced.
	recordRead(s, name)
	v, ok := s.load(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, name)
	}
	fn, ok := v.(Method)
	if !ok {
		return nil, fmt.Errorf("%w: field %q holds %T, not a Method", ErrUnknownMethod, name, v)
	}

	for i := range args {
		args[i] = atomize(args[i])
	}

	out := fn(args...)

	if keys := s.manualKeys(name); len(keys) > 0 {
		s.Notify(keys)
	}

	if s.hasSource && out != nil {
		if key, hasKey := identityOf(out); hasKey && key == s.sourceKey {
			return a, nil
		}
	}
	return out, nil
}
