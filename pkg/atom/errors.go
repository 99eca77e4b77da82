package atom

import (
	"errors"
	"fmt"
)

// ErrNotAtom is returned when atom state is requested for a value that has
// not been atomized. Use IsAtom to test a value first.
var ErrNotAtom = errors.New("atlas: value is not an atom")

// ErrUnknownMethod is returned by Atom.Invoke when the named field does not
// exist or does not hold a Method value.
var ErrUnknownMethod = errors.New("atlas: unknown atom method")

// AmbiguousFocusError is returned by FocusFunc when the probe function did
// not read exactly one field of exactly one atom, so there is no unambiguous
// focus target.
type AmbiguousFocusError struct {
	// Atoms is the number of distinct atoms the probe read from.
	Atoms int

	// Keys is the total number of fields the probe read.
	Keys int
}

func (e *AmbiguousFocusError) Error() string {
	return fmt.Sprintf("atlas: focus probe read %d field(s) across %d atom(s), want exactly one", e.Keys, e.Atoms)
}

// InvalidFocusKeyError is returned by Atom.Focus when the key is absent from
// the source or holds a composite value. Focus is only defined over terminal
// fields.
type InvalidFocusKeyError struct {
	Key    string
	Reason string
}

func (e *InvalidFocusKeyError) Error() string {
	return fmt.Sprintf("atlas: cannot focus key %q: %s", e.Key, e.Reason)
}
