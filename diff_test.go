package pvec

import (
	"errors"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type change struct {
	index          int
	added, removed bool
	newValue       interface{}
	oldValue       interface{}
}

func diff[T comparable](t *testing.T, old, new *Vector[T]) []change {
	var changes []change
	err := new.DiffIter(old, func(a, b T) bool { return a == b },
		func(index int, added, removed bool, newValue, oldValue T) (bool, error) {
			c := change{index: index, added: added, removed: removed}
			if added {
				c.newValue = newValue
			}
			if removed {
				c.oldValue = oldValue
			}
			changes = append(changes, c)
			return true, nil
		})
	require.NoError(t, err)
	return changes
}

func TestDiffTrivial(t *testing.T) {
	t.Parallel()
	v1 := New("a", "b", "c")
	v2, err := v1.Set(1, "B")
	require.NoError(t, err)
	v2, err = v2.Delete(0)
	require.NoError(t, err)
	v2 = v2.Push("d")
	assert.Equal(t, []change{
		{0, false, true, nil, "a"},
		{1, true, true, "B", "b"},
		{3, true, false, "d", nil},
	}, diff(t, v1, v2))
	assert.Empty(t, diff(t, v1, v1))
	assert.Len(t, diff(t, nil, v1), 3)
	assert.Len(t, diff(t, v1, Empty[string]()), 3)
}

func TestDiffSkipsSharedLeaves(t *testing.T) {
	t.Parallel()
	v1 := FromSlice(ints(5000))
	v2, err := v1.Set(2500, -1)
	require.NoError(t, err)
	compared := 0
	var changed []int
	err = v2.DiffIter(v1,
		func(a, b int) bool {
			compared++
			return a == b
		},
		func(index int, added, removed bool, newValue, oldValue int) (bool, error) {
			changed = append(changed, index)
			return true, nil
		})
	require.NoError(t, err)
	assert.Equal(t, []int{2500}, changed)
	assert.Equal(t, branchFactor, compared)
}

func TestDiffStops(t *testing.T) {
	t.Parallel()
	v1 := FromSlice(ints(100))
	v2 := Empty[int]()
	calls := 0
	err := v2.DiffIter(v1, func(a, b int) bool { return a == b },
		func(int, bool, bool, int, int) (bool, error) {
			calls++
			return calls < 3, nil
		})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	boom := errors.New("boom")
	err = v2.DiffIter(v1, func(a, b int) bool { return a == b },
		func(int, bool, bool, int, int) (bool, error) {
			return true, boom
		})
	assert.ErrorIs(t, err, boom)
}

func TestDiffToModel(t *testing.T) {
	t.Parallel()
	properties := gopter.NewProperties(defaultGopterParameters)

	properties.Property("diff reports exactly the differing indexes",
		prop.ForAll(
			func(n int, sets []int, unshift, begin int) bool {
				old := FromSlice(ints(n))
				new := old.Slice(begin, n+10)
				for j, i := range sets {
					if j%3 == 0 {
						new, _ = new.Delete(i)
					} else {
						new, _ = new.Set(i, -i)
					}
				}
				new = new.Unshift(ints(unshift)...)
				var expected []change
				for i := 0; i < max(old.Len(), new.Len()); i++ {
					a, inNew := new.Get(i)
					b, inOld := old.Get(i)
					c := change{index: i, added: inNew, removed: inOld}
					if inNew {
						c.newValue = a
					}
					if inOld {
						c.oldValue = b
					}
					if (inNew || inOld) && (inNew != inOld || a != b) {
						expected = append(expected, c)
					}
				}
				actual := diff(t, old, new)
				if fmt.Sprint(expected) != fmt.Sprint(actual) {
					t.Logf("expected %v\nactual   %v", expected, actual)
					return false
				}
				return true
			},
			gen.IntRange(0, 1200), gen.SliceOf(gen.IntRange(0, 1300)),
			gen.IntRange(0, 3), gen.IntRange(0, 5)))
	properties.TestingRun(t)
}
