package history

import "errors"

// ErrNilInteraction is returned when Put receives nil.
var ErrNilInteraction = errors.New("cannot store nil interaction")

// NotFoundError is returned when an interaction doesn't exist in the store.
type NotFoundError struct {
	ID string
}

func (e NotFoundError) Error() string {
	if e.ID == "" {
		return "interaction not found"
	}

	return "interaction not found: " + e.ID
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}
