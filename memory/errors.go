package memory

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidFact is returned for malformed input (missing predicate,
	// empty object). Nothing is created or altered.
	ErrInvalidFact = errors.New("invalid fact")

	// ErrConflict is returned when an update would give a fact the
	// (subject, predicate) of another fact.
	ErrConflict = errors.New("another fact already uses this subject and predicate")
)

// PersistError reports a failed durable write. The in-memory collection has
// already been mutated when it is returned.
type PersistError struct {
	Op  string
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist after %s: %v", e.Op, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}
