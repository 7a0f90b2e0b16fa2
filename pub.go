package pvec

import (
	"fmt"
	"strings"
)

// Vector is a persistent indexed sequence. Each modifying method returns
// the modified vector and leaves the receiver as it was, unless the
// receiver is transient (see AsTransient), in which case it is modified in
// place and returned.
//
// The zero value is an empty vector ready to use.
type Vector[T any] struct {
	origin int
	size   int
	level  int
	root   *node[T]
	tail   *node[T]
	owner  *owner
}

// Sequence is anything that Concat can append: it knows its length and can
// visit its elements in index order.
type Sequence[T any] interface {
	Len() int
	Iterate(f func(index int, value T) bool) bool
}

type sliceSequence[T any] []T

func (s sliceSequence[T]) Len() int { return len(s) }

func (s sliceSequence[T]) Iterate(f func(int, T) bool) bool {
	for i, v := range s {
		if !f(i, v) {
			return false
		}
	}
	return true
}

// Values adapts a slice to a Sequence.
func Values[T any](values []T) Sequence[T] {
	return sliceSequence[T](values)
}

// Empty returns an empty vector.
func Empty[T any]() *Vector[T] {
	return &Vector[T]{level: shift}
}

// New returns a vector holding the given values.
func New[T any](values ...T) *Vector[T] {
	return FromSlice(values)
}

// FromSlice returns a vector holding a copy of the given values.
func FromSlice[T any](values []T) *Vector[T] {
	if len(values) == 0 {
		return Empty[T]()
	}
	if len(values) < branchFactor {
		tail := newLeaf[T](nil)
		for i, value := range values {
			tail.set(i, value)
		}
		return &Vector[T]{size: len(values), level: shift, tail: tail}
	}
	return Empty[T]().WithMutations(func(w *Vector[T]) {
		for i, value := range values {
			w.setRaw(i, value)
		}
	})
}

// Len returns the number of index positions in the vector, including ones
// whose values have been deleted.
func (v *Vector[T]) Len() int {
	return v.size - v.origin
}

// Get returns the value at the given index, and whether there is one.
// Out-of-range and deleted indexes report false.
func (v *Vector[T]) Get(index int) (T, bool) {
	if index < 0 {
		var zero T
		return zero, false
	}
	raw := index + v.origin
	if raw >= v.size {
		var zero T
		return zero, false
	}
	return v.nodeFor(raw).get(raw & mask)
}

// GetOr returns the value at the given index, or notFound if there isn't
// one.
func (v *Vector[T]) GetOr(index int, notFound T) T {
	if value, ok := v.Get(index); ok {
		return value
	}
	return notFound
}

// Has reports whether there is a value at the given index.
func (v *Vector[T]) Has(index int) bool {
	_, ok := v.Get(index)
	return ok
}

// First returns the value at index 0.
func (v *Vector[T]) First() (T, bool) {
	return v.Get(0)
}

// Last returns the value at the highest index.
func (v *Vector[T]) Last() (T, bool) {
	return v.Get(v.Len() - 1)
}

// edit returns the vector that a modification should be applied to: the
// receiver itself when transient, otherwise a copy of its header.
func (v *Vector[T]) edit() *Vector[T] {
	if v.owner != nil {
		return v
	}
	w := *v
	return &w
}

// Set returns a vector with the given value at the given index, extending
// the vector if the index is past the end. Indexes from 1<<62 (1<<30 on
// 32-bit platforms) up are out of bounds.
func (v *Vector[T]) Set(index int, value T) (*Vector[T], error) {
	if index < 0 || index >= maxSize-v.origin {
		return v, fmt.Errorf("set %d: %w", index, ErrIndexOutOfBounds)
	}
	w := v.edit()
	w.setRaw(index+w.origin, value)
	return w, nil
}

// Push returns a vector with the given values appended.
func (v *Vector[T]) Push(values ...T) *Vector[T] {
	switch len(values) {
	case 0:
		return v
	case 1:
		w := v.edit()
		w.setRaw(w.size, values[0])
		return w
	}
	return v.WithMutations(func(w *Vector[T]) {
		for _, value := range values {
			w.setRaw(w.size, value)
		}
	})
}

// Pop returns a vector without its last index position.
func (v *Vector[T]) Pop() *Vector[T] {
	newSize := v.size - 1
	if newSize <= v.origin {
		return v.Clear()
	}
	w := v.edit()
	if newSize > tailOffset(v.size) {
		if w.tail.has(newSize & mask) {
			w.tail = w.tail.ensureOwner(w.owner)
			w.tail.unset(newSize & mask)
		}
		w.size = newSize
		return w
	}
	w.tail = v.nodeFor(newSize - 1)
	w.root = v.root.popRightmost(w.owner, newSize, v.level)
	w.size = newSize
	return w
}

// Delete returns a vector without a value at the given index. Other values
// keep their indexes, and the length is unchanged.
func (v *Vector[T]) Delete(index int) (*Vector[T], error) {
	if index < 0 {
		return v, fmt.Errorf("delete %d: %w", index, ErrIndexOutOfBounds)
	}
	if !v.Has(index) {
		return v, nil
	}
	w := v.edit()
	w.deleteRaw(index + w.origin)
	return w, nil
}

// Unshift returns a vector with the given values prepended, in order. It
// panics if the vector would outgrow the largest length Set accepts.
func (v *Vector[T]) Unshift(values ...T) *Vector[T] {
	if len(values) == 0 {
		return v
	}
	return v.WithMutations(func(w *Vector[T]) {
		origin := w.origin - len(values)
		if w.level < shift {
			w.level = shift
		}
		for origin < 0 {
			// The existing content moves up by one full span of the old
			// root, into slot 1 of the new one; slot 0 takes the new values.
			delta := capacity(w.level)
			if w.size > maxSize-delta {
				panic(fmt.Errorf("unshift %d values: %w", len(values), ErrIndexOutOfBounds))
			}
			parent := newBranch[T](w.owner)
			parent.children[1] = w.root
			w.root = parent
			w.level += shift
			origin += delta
			w.size += delta
		}
		w.origin = origin
		for i, value := range values {
			w.writeRaw(origin+i, value)
		}
	})
}

// Shift returns a vector without its first index position.
func (v *Vector[T]) Shift() *Vector[T] {
	return v.Slice(1, v.Len())
}

// Slice returns the window [begin, end) of the vector. Negative bounds
// count back from the end. The result shares the whole tree with the
// receiver; nothing outside the window is released.
func (v *Vector[T]) Slice(begin, end int) *Vector[T] {
	var origin, size int
	if begin < 0 {
		origin = max(v.origin, v.size+begin)
	} else {
		origin = min(v.size, v.origin+begin)
	}
	if end < 0 {
		size = max(v.origin, v.size+end)
	} else {
		size = min(v.size, v.origin+end)
	}
	if origin >= size {
		return v.Clear()
	}
	if origin == v.origin && size == v.size {
		return v
	}
	w := v.edit()
	if size != v.size {
		w.tail = trimmedLeaf(v.nodeFor(size-1), w.owner, size)
	}
	w.origin = origin
	w.size = size
	return w
}

// Splice returns a vector with removeCount positions starting at index
// replaced by the given values.
func (v *Vector[T]) Splice(index, removeCount int, values ...T) *Vector[T] {
	frozen := *v
	frozen.owner = nil
	rest := frozen.Slice(index+removeCount, frozen.Len())
	if v.IsTransient() {
		// rest still shares nodes the receiver may edit in place
		rest = Empty[T]().Concat(rest)
	}
	return v.Slice(0, index).Concat(Values(values), rest)
}

// Concat returns a vector with the elements of each sequence appended in
// turn. Indexes with no value in a source stay empty in the result.
func (v *Vector[T]) Concat(others ...Sequence[T]) *Vector[T] {
	return v.WithMutations(func(w *Vector[T]) {
		for _, other := range others {
			if other == nil || other.Len() == 0 {
				continue
			}
			base := w.size
			w.extend(w.size + other.Len())
			other.Iterate(func(i int, value T) bool {
				w.writeRaw(base+i, value)
				return true
			})
		}
	})
}

// SetLength returns a vector of the given length, truncated or extended
// with empty positions. Like Unshift, it panics past the largest length Set
// accepts.
func (v *Vector[T]) SetLength(length int) *Vector[T] {
	switch {
	case length == v.Len():
		return v
	case length <= 0:
		return v.Clear()
	case length < v.Len():
		return v.Slice(0, length)
	}
	if length > maxSize-v.origin {
		panic(fmt.Errorf("set length %d: %w", length, ErrIndexOutOfBounds))
	}
	w := v.edit()
	w.extend(w.origin + length)
	return w
}

// Clear returns an empty vector. A transient vector empties itself.
func (v *Vector[T]) Clear() *Vector[T] {
	if v.owner != nil {
		v.origin, v.size, v.level = 0, 0, shift
		v.root, v.tail = nil, nil
		return v
	}
	return Empty[T]()
}

// AsTransient returns a copy of the vector that is modified in place, by
// whoever holds it, until AsPersistent is called. A transient vector must
// not be modified from more than one goroutine at a time.
func (v *Vector[T]) AsTransient() *Vector[T] {
	if v.owner != nil {
		return v
	}
	w := *v
	w.owner = &owner{}
	return &w
}

// AsPersistent freezes a transient vector and returns it.
func (v *Vector[T]) AsPersistent() *Vector[T] {
	v.owner = nil
	return v
}

// IsTransient reports whether the vector is modified in place.
func (v *Vector[T]) IsTransient() bool {
	return v.owner != nil
}

// WithMutations applies f to a transient version of the vector. The result
// is frozen again unless the receiver was already transient.
func (v *Vector[T]) WithMutations(f func(*Vector[T])) *Vector[T] {
	w := v.AsTransient()
	f(w)
	if v.IsTransient() {
		return w
	}
	if w.size <= w.origin {
		return Empty[T]()
	}
	return w.AsPersistent()
}

// ToSlice returns the vector's values in a slice; deleted positions hold
// the zero value.
func (v *Vector[T]) ToSlice() []T {
	out := make([]T, v.Len())
	v.Iterate(func(i int, value T) bool {
		out[i] = value
		return true
	})
	return out
}

func (v *Vector[T]) String() string {
	var b strings.Builder
	b.WriteString("Vector [")
	first := true
	v.Iterate(func(_ int, value T) bool {
		if !first {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%v", value)
		first = false
		return true
	})
	b.WriteString("]")
	return b.String()
}

// EqualFunc reports whether both vectors have the same length and the same
// values at the same indexes, comparing values with eq.
func (v *Vector[T]) EqualFunc(other *Vector[T], eq func(a, b T) bool) bool {
	if v == other {
		return true
	}
	if v.Len() != other.Len() {
		return false
	}
	a, b := v.Cursor(), other.Cursor()
	for {
		ai, av, aok := a.Next()
		bi, bv, bok := b.Next()
		if aok != bok {
			return false
		}
		if !aok {
			return true
		}
		if ai != bi || !eq(av, bv) {
			return false
		}
	}
}

// Equal reports whether two vectors of comparable values are equal.
func Equal[T comparable](a, b *Vector[T]) bool {
	return a.EqualFunc(b, func(x, y T) bool { return x == y })
}
