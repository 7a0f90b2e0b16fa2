package pvec

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func inMemoryConfig() (*RemoteConfig, *inMemoryStore) {
	store := NewInMemoryStore().(*inMemoryStore)
	return &RemoteConfig{StoreImmutablePartsWith: store}, store
}

func TestContentHash(t *testing.T) {
	t.Parallel()
	config, _ := inMemoryConfig()
	root1, err := FromSlice(ints(100)).MakeRoot(ctx, config)
	require.NoError(t, err)
	root2, err := pushAll(100).MakeRoot(ctx, config)
	require.NoError(t, err)
	require.NotNil(t, root1.Link)
	assert.Equal(t, *root1.Link, *root2.Link)
	assert.Equal(t, *root1.Tail, *root2.Tail)

	changed, err := pushAll(100).Set(3, 4)
	require.NoError(t, err)
	root3, err := changed.MakeRoot(ctx, config)
	require.NoError(t, err)
	assert.NotEqual(t, *root1.Link, *root3.Link)
	assert.Equal(t, *root1.Tail, *root3.Tail)
}

func TestRemoteRoundTrip(t *testing.T) {
	t.Parallel()
	config, _ := inMemoryConfig()
	holey, err := FromSlice(ints(3000)).Delete(1500)
	require.NoError(t, err)
	for name, v := range map[string]*Vector[int]{
		"empty":     Empty[int](),
		"zero":      {},
		"tail only": New(1, 2, 3),
		"holey":     holey,
		"unshifted": FromSlice(ints(40)).Unshift(-2, -1),
		"sliced":    FromSlice(ints(3000)).Slice(100, 1200),
		"extended":  FromSlice(ints(300)).Slice(0, 50).SetLength(2000),
	} {
		root, err := v.MakeRoot(ctx, config)
		require.NoError(t, err, name)
		loaded, err := LoadVector[int](ctx, root, config)
		require.NoError(t, err, name)
		assert.True(t, Equal(v, loaded), name)
		assert.Equal(t, v.Len(), loaded.Len(), name)
		assert.False(t, loaded.IsTransient(), name)

		// loaded vectors are ordinary vectors
		pushed := loaded.Push(-7)
		last, _ := pushed.Last()
		assert.Equal(t, -7, last, name)
	}
}

func TestStructValues(t *testing.T) {
	t.Parallel()
	type point struct {
		X, Y int
		Name string
	}
	config, _ := inMemoryConfig()
	v := New(point{1, 2, "a"}, point{3, 4, "b"})
	root, err := v.MakeRoot(ctx, config)
	require.NoError(t, err)
	loaded, err := LoadVector[point](ctx, root, config)
	require.NoError(t, err)
	assert.Equal(t, v.ToSlice(), loaded.ToSlice())
}

func TestCustomMarshal(t *testing.T) {
	t.Parallel()
	config, store := inMemoryConfig()
	config.Marshal = func(x interface{}) ([]byte, error) {
		return []byte(strconv.Itoa(x.(int))), nil
	}
	config.Unmarshal = func(b []byte, p interface{}) error {
		i, err := strconv.Atoi(string(b))
		*p.(*int) = i
		return err
	}
	v := New(10, 20)
	root, err := v.MakeRoot(ctx, config)
	require.NoError(t, err)
	e, err := unmarshalEncodedNode(store.entries[*root.Tail])
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("10"), []byte("20")}, e.payloads)
	loaded, err := LoadVector[int](ctx, root, config)
	require.NoError(t, err)
	assert.Equal(t, []int{10, 20}, loaded.ToSlice())
}

func TestMakeRootRefusesTransient(t *testing.T) {
	t.Parallel()
	config, _ := inMemoryConfig()
	_, err := New(1).AsTransient().MakeRoot(ctx, config)
	assert.ErrorIs(t, err, ErrTransient)

	_, err = New(1).MakeRoot(ctx, nil)
	assert.Error(t, err)
	_, err = New(1).MakeRoot(ctx, &RemoteConfig{})
	assert.Error(t, err)
}

func TestStoreSkipsKnownNodes(t *testing.T) {
	t.Parallel()
	config, store := inMemoryConfig()
	config.NodeCache = NewNodeCache(1000)
	v1 := FromSlice(ints(5000))
	_, err := v1.MakeRoot(ctx, config)
	require.NoError(t, err)
	entries, stores := store.counts()
	// 156 leaves, 5 interior nodes, the root and the tail
	assert.Equal(t, 163, entries)
	assert.Equal(t, 163, stores)

	v2, err := v1.Set(2500, -1)
	require.NoError(t, err)
	root2, err := v2.MakeRoot(ctx, config)
	require.NoError(t, err)
	_, stores = store.counts()
	assert.Equal(t, 163+3, stores)

	loaded, err := LoadVector[int](ctx, root2, config)
	require.NoError(t, err)
	assert.Same(t, v2.root, loaded.root)
	assert.True(t, Equal(v2, loaded))
}

func TestStoreConcurrencyOfOne(t *testing.T) {
	t.Parallel()
	config, _ := inMemoryConfig()
	config.StoreConcurrency = 1
	v := FromSlice(ints(2000))
	root, err := v.MakeRoot(ctx, config)
	require.NoError(t, err)
	loaded, err := LoadVector[int](ctx, root, config)
	require.NoError(t, err)
	assert.True(t, Equal(v, loaded))
}

type failingStore struct {
	Persist
}

var errStoreFailed = errors.New("store failed")

func (failingStore) Store(context.Context, string, []byte) error {
	return errStoreFailed
}

func TestStoreErrorPropagates(t *testing.T) {
	t.Parallel()
	config := &RemoteConfig{StoreImmutablePartsWith: failingStore{NewInMemoryStore()}}
	_, err := FromSlice(ints(2000)).MakeRoot(ctx, config)
	assert.ErrorIs(t, err, errStoreFailed)
}

func TestStoreErrorsSurviveEncodingFailure(t *testing.T) {
	t.Parallel()
	errUnencodable := errors.New("unencodable")
	config := &RemoteConfig{
		StoreImmutablePartsWith: failingStore{NewInMemoryStore()},
		Marshal: func(x interface{}) ([]byte, error) {
			if x.(int) == 1999 {
				return nil, errUnencodable
			}
			return defaultMarshal(x)
		},
	}
	// the tree's stores are queued and fail before the tail is encoded
	_, err := FromSlice(ints(2000)).MakeRoot(ctx, config)
	assert.ErrorIs(t, err, errUnencodable)
	assert.ErrorIs(t, err, errStoreFailed)
}

func TestLoadDetectsCorruption(t *testing.T) {
	t.Parallel()
	config, store := inMemoryConfig()
	v := FromSlice(ints(100))
	root, err := v.MakeRoot(ctx, config)
	require.NoError(t, err)

	// a leaf linked as the root
	_, err = LoadVector[int](ctx, &Root{Link: root.Tail, Size: 100, Level: shift}, config)
	assert.ErrorIs(t, err, ErrCorruptNode)
	// the root linked as the tail
	_, err = LoadVector[int](ctx, &Root{Link: root.Link, Tail: root.Link, Size: 100, Level: shift}, config)
	assert.ErrorIs(t, err, ErrCorruptNode)
	for _, bad := range []Root{
		{Link: root.Link, Size: 100, Level: 3},
		{Link: root.Link, Size: 100, Level: 0},
		{Size: 10, Origin: 11, Level: shift},
		{Size: 10, Origin: -1, Level: shift},
		{Size: maxSize + 1, Level: shift},
		{Link: root.Link, Size: 100, Level: 100},
	} {
		_, err = LoadVector[int](ctx, &bad, config)
		assert.ErrorIs(t, err, ErrCorruptNode, "%+v", bad)
	}

	store.entries[*root.Tail] = []byte("tampered")
	_, err = LoadVector[int](ctx, root, config)
	assert.ErrorIs(t, err, ErrCorruptNode)

	missing := "missing"
	_, err = LoadVector[int](ctx, &Root{Tail: &missing, Size: 1, Level: shift}, config)
	assert.Error(t, err)
}

func TestUnmarshalEncodedNode(t *testing.T) {
	t.Parallel()
	e := encodedNode{kind: kindBranch, present: 0b101, payloads: [][]byte{[]byte("a"), []byte("b")}}
	decoded, err := unmarshalEncodedNode(e.marshal())
	require.NoError(t, err)
	assert.Equal(t, &e, decoded)

	// unknown fields are skipped
	extra := protowire.AppendTag(e.marshal(), 9, protowire.VarintType)
	extra = protowire.AppendVarint(extra, 42)
	decoded, err = unmarshalEncodedNode(extra)
	require.NoError(t, err)
	assert.Equal(t, &e, decoded)

	for name, b := range map[string][]byte{
		"garbage":   {0xff, 0xff, 0xff},
		"truncated": e.marshal()[:len(e.marshal())-1],
		"no kind":   {},
		"mismatch":  (&encodedNode{kind: kindLeaf, present: 0b11}).marshal(),
		"bad kind":  (&encodedNode{kind: 7}).marshal(),
	} {
		_, err := unmarshalEncodedNode(b)
		assert.ErrorIs(t, err, ErrCorruptNode, name)
	}
}

func TestLoggerReceivesTraces(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	config, _ := inMemoryConfig()
	config.Logger = slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	root, err := FromSlice(ints(40)).MakeRoot(ctx, config)
	require.NoError(t, err)
	_, err = LoadVector[int](ctx, root, config)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "stored node")
	assert.Contains(t, buf.String(), "loaded node")
	assert.Contains(t, buf.String(), "made root")
}
