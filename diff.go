package pvec

import "fmt"

// leafAt returns the leaf holding logical index i, or nil when i is
// outside the vector.
func (v *Vector[T]) leafAt(i int) *node[T] {
	if i < 0 || i >= v.Len() {
		return nil
	}
	return v.nodeFor(i + v.origin)
}

// DiffIter invokes the given callback for every index whose value differs
// from the given older vector, in ascending order. added means v has a
// value there and removed means old does; both are set when the values
// differ according to eq. The iteration stops if the callback returns
// keepGoing==false or an error.
//
// Versions derived from one another share most of their leaves; a shared
// leaf is skipped without looking at its values.
func (v *Vector[T]) DiffIter(
	old *Vector[T],
	eq func(a, b T) bool,
	f func(index int, added, removed bool, newValue, oldValue T) (bool, error),
) error {
	if old == nil {
		old = Empty[T]()
	}
	aligned := v.origin == old.origin
	n := max(v.Len(), old.Len())
	both := min(v.Len(), old.Len())
	for start := 0; start < n; {
		// blocks follow the leaves of v
		end := min(n, start+branchFactor-((start+v.origin)&mask))
		if aligned && end <= both && v.leafAt(start) == old.leafAt(start) {
			start = end
			continue
		}
		for i := start; i < end; i++ {
			newValue, inNew := v.Get(i)
			oldValue, inOld := old.Get(i)
			var keepGoing bool
			var err error
			switch {
			case inNew && inOld:
				if eq(newValue, oldValue) {
					continue
				}
				keepGoing, err = f(i, true, true, newValue, oldValue)
			case inNew:
				keepGoing, err = f(i, true, false, newValue, oldValue)
			case inOld:
				keepGoing, err = f(i, false, true, newValue, oldValue)
			default:
				continue
			}
			if err != nil {
				return fmt.Errorf("callback: %w", err)
			}
			if !keepGoing {
				return nil
			}
		}
		start = end
	}
	return nil
}
