package pvec

import "fmt"

// PathValue is implemented by containers that GetIn, SetIn and DeleteIn
// can descend into. *Vector implements it; keyed containers from other
// packages can too.
type PathValue interface {
	GetIn(path []interface{}, notFound interface{}) interface{}
	SetInPath(path []interface{}, value interface{}) (PathValue, error)
	DeleteInPath(path []interface{}) (PathValue, error)
}

// NewAssociative makes the keyed container that SetIn creates for a
// missing step whose next key is not an integer. When nil, such paths fail
// with ErrNoAssociative.
var NewAssociative func() PathValue

// GetIn follows path through nested containers, starting with an index
// into v, and returns the value found there, or notFound.
func (v *Vector[T]) GetIn(path []interface{}, notFound interface{}) interface{} {
	if len(path) == 0 {
		return v
	}
	i, ok := indexKey(path[0])
	if !ok {
		return notFound
	}
	value, ok := v.Get(i)
	if !ok {
		return notFound
	}
	if len(path) == 1 {
		return value
	}
	if nested, ok := interface{}(value).(PathValue); ok {
		return nested.GetIn(path[1:], notFound)
	}
	return notFound
}

// SetIn returns a vector with value stored at the end of path. Missing
// steps are filled with new containers: a vector when the following key is
// an integer, otherwise one made by NewAssociative.
func (v *Vector[T]) SetIn(path []interface{}, value interface{}) (*Vector[T], error) {
	i, err := pathIndex(path)
	if err != nil {
		return v, fmt.Errorf("setIn: %w", err)
	}
	if len(path) == 1 {
		t, ok := as[T](value)
		if !ok {
			return v, fmt.Errorf("setIn %d: value %T: %w", i, value, ErrPathType)
		}
		return v.Set(i, t)
	}
	var nested PathValue
	if existing, ok := v.Get(i); ok {
		nested, _ = interface{}(existing).(PathValue)
	}
	if nested == nil {
		nested, err = containerFor(path[1])
		if err != nil {
			return v, fmt.Errorf("setIn %d: %w", i, err)
		}
	}
	updated, err := nested.SetInPath(path[1:], value)
	if err != nil {
		return v, fmt.Errorf("setIn %d: %w", i, err)
	}
	t, ok := as[T](updated)
	if !ok {
		return v, fmt.Errorf("setIn %d: container %T: %w", i, updated, ErrPathType)
	}
	return v.Set(i, t)
}

// DeleteIn returns a vector without the value at the end of path. A path
// that leads nowhere leaves the vector as it is.
func (v *Vector[T]) DeleteIn(path []interface{}) (*Vector[T], error) {
	i, err := pathIndex(path)
	if err != nil {
		return v, fmt.Errorf("deleteIn: %w", err)
	}
	if len(path) == 1 {
		return v.Delete(i)
	}
	existing, ok := v.Get(i)
	if !ok {
		return v, nil
	}
	nested, ok := interface{}(existing).(PathValue)
	if !ok {
		return v, nil
	}
	updated, err := nested.DeleteInPath(path[1:])
	if err != nil {
		return v, fmt.Errorf("deleteIn %d: %w", i, err)
	}
	t, ok := as[T](updated)
	if !ok {
		return v, fmt.Errorf("deleteIn %d: container %T: %w", i, updated, ErrPathType)
	}
	return v.Set(i, t)
}

// SetInPath is SetIn for callers holding the vector as a PathValue.
func (v *Vector[T]) SetInPath(path []interface{}, value interface{}) (PathValue, error) {
	return v.SetIn(path, value)
}

// DeleteInPath is DeleteIn for callers holding the vector as a PathValue.
func (v *Vector[T]) DeleteInPath(path []interface{}) (PathValue, error) {
	return v.DeleteIn(path)
}

func pathIndex(path []interface{}) (int, error) {
	if len(path) == 0 {
		return 0, fmt.Errorf("empty path: %w", ErrPathType)
	}
	i, ok := indexKey(path[0])
	if !ok {
		return 0, fmt.Errorf("key %v (%T): %w", path[0], path[0], ErrPathType)
	}
	if i < 0 {
		return 0, fmt.Errorf("key %d: %w", i, ErrIndexOutOfBounds)
	}
	return i, nil
}

func containerFor(nextKey interface{}) (PathValue, error) {
	if _, ok := indexKey(nextKey); ok {
		return Empty[interface{}](), nil
	}
	if NewAssociative == nil {
		return nil, fmt.Errorf("key %v (%T): %w", nextKey, nextKey, ErrNoAssociative)
	}
	return NewAssociative(), nil
}

// as converts x to T, treating nil as the zero value of interface types.
func as[T any](x interface{}) (T, bool) {
	if t, ok := x.(T); ok {
		return t, true
	}
	var zero T
	return zero, x == nil && interface{}(zero) == nil
}
