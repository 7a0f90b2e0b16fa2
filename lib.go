package pvec

import (
	"fmt"
	"math"
	"math/bits"
	"strings"
)

const (
	shift        = 5
	branchFactor = 1 << shift
	mask         = branchFactor - 1

	// maxSize bounds raw indices, leaving headroom so that index
	// arithmetic never overflows an int.
	maxSize = 1 << (bits.UintSize - 2)
)

// owner identifies one batch of in-place edits. Only pointer identity
// matters; the padding keeps distinct tokens at distinct addresses.
type owner struct {
	_ byte
}

// node is a 32-way trie node. Leaves hold values, interior nodes hold
// children; a nil *node is the empty node for either role.
type node[T any] struct {
	owner    *owner
	present  uint32
	values   []T
	children []*node[T]
}

func newLeaf[T any](o *owner) *node[T] {
	return &node[T]{owner: o, values: make([]T, branchFactor)}
}

func newBranch[T any](o *owner) *node[T] {
	return &node[T]{owner: o, children: make([]*node[T], branchFactor)}
}

// ensureOwner returns n itself if it was claimed by the given (non-nil)
// token, otherwise a shallow copy claimed by it.
func (n *node[T]) ensureOwner(o *owner) *node[T] {
	if o != nil && n.owner == o {
		return n
	}
	c := &node[T]{owner: o, present: n.present}
	if n.values != nil {
		c.values = make([]T, branchFactor)
		copy(c.values, n.values)
	}
	if n.children != nil {
		c.children = make([]*node[T], branchFactor)
		copy(c.children, n.children)
	}
	return c
}

// editLeaf is ensureOwner that also materializes an absent leaf.
func (n *node[T]) editLeaf(o *owner) *node[T] {
	if n == nil {
		return newLeaf[T](o)
	}
	return n.ensureOwner(o)
}

// editBranch is ensureOwner that also materializes an absent interior node.
func (n *node[T]) editBranch(o *owner) *node[T] {
	if n == nil {
		return newBranch[T](o)
	}
	return n.ensureOwner(o)
}

func (n *node[T]) has(i int) bool {
	return n != nil && n.present&(1<<uint(i)) != 0
}

func (n *node[T]) get(i int) (T, bool) {
	if !n.has(i) {
		var zero T
		return zero, false
	}
	return n.values[i], true
}

func (n *node[T]) set(i int, value T) {
	n.values[i] = value
	n.present |= 1 << uint(i)
}

func (n *node[T]) unset(i int) {
	var zero T
	n.values[i] = zero
	n.present &^= 1 << uint(i)
}

func (n *node[T]) child(i int) *node[T] {
	if n == nil || n.children == nil {
		return nil
	}
	return n.children[i]
}

func (n *node[T]) isEmpty() bool {
	if n == nil {
		return true
	}
	if n.values != nil {
		return n.present == 0
	}
	for _, c := range n.children {
		if c != nil {
			return false
		}
	}
	return true
}

// popRightmost detaches the leaf holding raw index length-1 from the
// subtree. A nil result means the subtree has nothing left to the left of
// that leaf and can be dropped by the parent.
func (n *node[T]) popRightmost(o *owner, length, level int) *node[T] {
	if n == nil {
		return nil
	}
	idx := childSlot(length-1, level)
	if level > shift {
		newChild := n.child(idx).popRightmost(o, length, level-shift)
		if newChild == nil && idx == 0 {
			return nil
		}
		editable := n.ensureOwner(o)
		editable.children[idx] = newChild
		return editable
	}
	if idx == 0 {
		return nil
	}
	editable := n.ensureOwner(o)
	editable.children[idx] = nil
	return editable
}

// prune clears raw indices [lo, hi) from the subtree rooted at n, which
// covers [base, base+1<<(level+shift)).
func (n *node[T]) prune(o *owner, level, base, lo, hi int) *node[T] {
	if n == nil {
		return nil
	}
	if level == 0 {
		var edited *node[T]
		for i := 0; i < branchFactor; i++ {
			raw := base + i
			if raw < lo || raw >= hi || !n.has(i) {
				continue
			}
			if edited == nil {
				edited = n.ensureOwner(o)
			}
			edited.unset(i)
		}
		if edited == nil {
			return n
		}
		return edited
	}
	step := 1 << uint(level)
	edited := n
	for i := 0; i < branchFactor; i++ {
		c := n.children[i]
		start := base + i*step
		if c == nil || start+step <= lo || start >= hi {
			continue
		}
		var pruned *node[T]
		if start < lo || start+step > hi {
			pruned = c.prune(o, level-shift, start, lo, hi)
		}
		if pruned == c {
			continue
		}
		if edited == n {
			edited = n.ensureOwner(o)
		}
		edited.children[i] = pruned
	}
	return edited
}

func childSlot(raw, level int) int {
	return (raw >> uint(level)) & mask
}

func tailOffset(size int) int {
	if size < branchFactor {
		return 0
	}
	return ((size - 1) >> shift) << shift
}

// capacity is the number of raw indices addressable under a root of the
// given level. A root too tall for an int to count its span covers every
// raw index.
func capacity(level int) int {
	if level+shift >= bits.UintSize-1 {
		return math.MaxInt
	}
	return 1 << uint(level+shift)
}

// nodeFor returns the leaf that holds raw index raw, or nil.
func (v *Vector[T]) nodeFor(raw int) *node[T] {
	if raw >= tailOffset(v.size) {
		return v.tail
	}
	if raw < 0 || raw >= capacity(v.level) {
		return nil
	}
	n := v.root
	for level := v.level; n != nil && level > 0; level -= shift {
		n = n.child(childSlot(raw, level))
	}
	return n
}

// growTo wraps the root as slot 0 of new parents until limit raw indices
// fit under it.
func (v *Vector[T]) growTo(limit int) {
	if v.level < shift {
		v.level = shift
	}
	for capacity(v.level) < limit {
		if v.root != nil {
			parent := newBranch[T](v.owner)
			parent.children[0] = v.root
			v.root = parent
		}
		v.level += shift
	}
}

// pushTail moves the current tail into the tree at raw offset.
func (v *Vector[T]) pushTail(offset int) {
	oldRoot := v.root
	v.growTo(offset + branchFactor)
	root := v.root
	if root == oldRoot {
		root = root.editBranch(v.owner)
	}
	n := root
	for level := v.level; level > shift; level -= shift {
		i := childSlot(offset, level)
		c := n.children[i].editBranch(v.owner)
		n.children[i] = c
		n = c
	}
	n.children[childSlot(offset, shift)] = v.tail
	v.root = root
}

// extend raises size, moving the tail into the tree when the new size
// needs a new tail. Tree ranges that become addressable for the first time
// are pruned, since slicing may have left values behind in them.
func (v *Vector[T]) extend(size int) {
	if size > maxSize {
		panic(fmt.Errorf("extend to raw size %d: %w", size, ErrIndexOutOfBounds))
	}
	oldOffset := tailOffset(v.size)
	newOffset := tailOffset(size)
	if newOffset > oldOffset {
		v.pushTail(oldOffset)
		v.growTo(newOffset)
		if lo := oldOffset + branchFactor; lo < newOffset {
			v.root = v.root.prune(v.owner, v.level, 0, lo, newOffset)
		}
		v.tail = nil
	}
	v.size = size
}

// writeRaw stores value at raw index raw, which must be below size.
func (v *Vector[T]) writeRaw(raw int, value T) {
	if raw >= tailOffset(v.size) {
		v.tail = v.tail.editLeaf(v.owner)
		v.tail.set(raw&mask, value)
		return
	}
	root := v.root.editBranch(v.owner)
	n := root
	for level := v.level; level > shift; level -= shift {
		i := childSlot(raw, level)
		c := n.children[i].editBranch(v.owner)
		n.children[i] = c
		n = c
	}
	i := childSlot(raw, shift)
	leaf := n.children[i].editLeaf(v.owner)
	n.children[i] = leaf
	leaf.set(raw&mask, value)
	v.root = root
}

// setRaw stores value at raw index raw, growing size as needed.
func (v *Vector[T]) setRaw(raw int, value T) {
	if raw >= v.size {
		v.extend(raw + 1)
	}
	v.writeRaw(raw, value)
}

// deleteRaw clears raw index raw, which must hold a value.
func (v *Vector[T]) deleteRaw(raw int) {
	if raw >= tailOffset(v.size) {
		v.tail = v.tail.ensureOwner(v.owner)
		v.tail.unset(raw & mask)
		return
	}
	root := v.root.ensureOwner(v.owner)
	n := root
	for level := v.level; level > 0; level -= shift {
		i := childSlot(raw, level)
		c := n.children[i].ensureOwner(v.owner)
		n.children[i] = c
		n = c
	}
	n.unset(raw & mask)
	v.root = root
}

// trimmedLeaf returns leaf without any values at or past raw index end,
// copying it only when something has to go.
func trimmedLeaf[T any](leaf *node[T], o *owner, end int) *node[T] {
	from := end & mask
	if leaf == nil || from == 0 || leaf.present>>uint(from) == 0 {
		return leaf
	}
	leaf = leaf.ensureOwner(o)
	for i := from; i < branchFactor; i++ {
		if leaf.has(i) {
			leaf.unset(i)
		}
	}
	return leaf
}

func (n *node[T]) string(indent string, level int) string {
	if n == nil {
		return indent + "nil\n"
	}
	var b strings.Builder
	if level == 0 {
		fmt.Fprintf(&b, "%sleaf %p owner=%p [", indent, n, n.owner)
		first := true
		for i := 0; i < branchFactor; i++ {
			if v, ok := n.get(i); ok {
				if !first {
					b.WriteString(" ")
				}
				fmt.Fprintf(&b, "%d:%v", i, v)
				first = false
			}
		}
		b.WriteString("]\n")
		return b.String()
	}
	fmt.Fprintf(&b, "%sbranch %p owner=%p level=%d {\n", indent, n, n.owner, level)
	for i, c := range n.children {
		if c == nil {
			continue
		}
		fmt.Fprintf(&b, "%s  %d:\n", indent, i)
		b.WriteString(c.string(indent+"    ", level-shift))
	}
	b.WriteString(indent + "}\n")
	return b.String()
}

func (v *Vector[T]) dump() string {
	return fmt.Sprintf("origin=%d size=%d level=%d transient=%v\nroot:\n%stail:\n%s",
		v.origin, v.size, v.level, v.owner != nil,
		v.root.string("  ", v.level), v.tail.string("  ", 0))
}
