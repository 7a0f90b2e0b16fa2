package pvec

import "errors"

var (
	// ErrIndexOutOfBounds is returned when modifying at a negative index.
	ErrIndexOutOfBounds = errors.New("index out of bounds")

	// ErrTransient is returned when persisting a vector that is still
	// being modified in place.
	ErrTransient = errors.New("vector is transient")

	// ErrPathType is returned when a nested-path key or value does not fit
	// the container it is applied to.
	ErrPathType = errors.New("path type mismatch")

	// ErrNoAssociative is returned when a nested path needs a new keyed
	// container but NewAssociative is unset.
	ErrNoAssociative = errors.New("no associative container configured")

	// ErrCorruptNode is returned when a stored node cannot be decoded or
	// does not fit where it was linked.
	ErrCorruptNode = errors.New("corrupt node")
)
