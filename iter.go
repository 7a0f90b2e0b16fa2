package pvec

import "iter"

// frame is one level of a cursor's walk: the node being scanned, the
// logical index of its first slot, and the exclusive logical bound.
type frame[T any] struct {
	node   *node[T]
	level  int
	offset int
	max    int
	pos    int
}

// Cursor walks a vector's values without recursion, keeping its own stack
// of frames. It is single-pass; make a new one to walk again.
type Cursor[T any] struct {
	stack   []frame[T]
	reverse bool
}

func newCursor[T any](v *Vector[T], reverse bool) *Cursor[T] {
	tailOff := tailOffset(v.size)
	root := frame[T]{
		node:   v.root,
		level:  v.level,
		offset: -v.origin,
		max:    tailOff - v.origin,
	}
	tail := frame[T]{
		node:   v.tail,
		offset: tailOff - v.origin,
		max:    v.size - v.origin,
	}
	c := &Cursor[T]{stack: make([]frame[T], 0, 8), reverse: reverse}
	// The top of the stack is walked first.
	if reverse {
		root.pos, tail.pos = mask, mask
		c.stack = append(c.stack, root, tail)
	} else {
		c.stack = append(c.stack, tail, root)
	}
	return c
}

// Cursor returns a cursor over the vector's values in ascending index
// order.
func (v *Vector[T]) Cursor() *Cursor[T] {
	return newCursor(v, false)
}

// ReverseCursor returns a cursor over the vector's values in descending
// index order.
func (v *Vector[T]) ReverseCursor() *Cursor[T] {
	return newCursor(v, true)
}

func (c *Cursor[T]) advance(f *frame[T]) int {
	i := f.pos
	if c.reverse {
		f.pos--
	} else {
		f.pos++
	}
	return i
}

func (c *Cursor[T]) scanning(f *frame[T]) bool {
	return f.pos >= 0 && f.pos < branchFactor
}

// Next returns the next index that holds a value, and the value. ok is
// false once the walk is over.
func (c *Cursor[T]) Next() (index int, value T, ok bool) {
walk:
	for len(c.stack) > 0 {
		f := &c.stack[len(c.stack)-1]
		if f.node != nil {
			if f.level == 0 {
				for c.scanning(f) {
					i := c.advance(f)
					index = f.offset + i
					if index >= 0 && index < f.max && f.node.has(i) {
						return index, f.node.values[i], true
					}
				}
			} else {
				step := 1 << uint(f.level)
				for c.scanning(f) {
					i := c.advance(f)
					offset := f.offset + i*step
					child := f.node.children[i]
					if child == nil || offset+step <= 0 || offset >= f.max {
						continue
					}
					next := frame[T]{
						node:   child,
						level:  f.level - shift,
						offset: offset,
						max:    f.max,
					}
					if c.reverse {
						next.pos = mask
					}
					c.stack = append(c.stack, next)
					continue walk
				}
			}
		}
		c.stack = c.stack[:len(c.stack)-1]
	}
	var zero T
	return 0, zero, false
}

// Iterate calls f with each index that holds a value, in ascending order,
// until f returns false. It reports whether every value was visited.
func (v *Vector[T]) Iterate(f func(index int, value T) bool) bool {
	c := v.Cursor()
	for {
		i, value, ok := c.Next()
		if !ok {
			return true
		}
		if !f(i, value) {
			return false
		}
	}
}

// ReverseIterate is Iterate in descending index order.
func (v *Vector[T]) ReverseIterate(f func(index int, value T) bool) bool {
	c := v.ReverseCursor()
	for {
		i, value, ok := c.Next()
		if !ok {
			return true
		}
		if !f(i, value) {
			return false
		}
	}
}

// All returns an iterator over the vector's indexes and values.
func (v *Vector[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		v.Iterate(yield)
	}
}

// Backward returns an iterator over the vector's indexes and values in
// descending index order.
func (v *Vector[T]) Backward() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		v.ReverseIterate(yield)
	}
}
