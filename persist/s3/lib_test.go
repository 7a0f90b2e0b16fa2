package s3_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/jrhy/pvec"
	s3Persist "github.com/jrhy/pvec/persist/s3"
	"github.com/jrhy/pvec/persist/s3test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

func TestHappyCase(t *testing.T) {
	t.Parallel()
	c, bucketName := s3test.Client(t)

	p := s3Persist.NewPersist(c, bucketName, "")
	err := p.Store(ctx, "foofoo", []byte("here is some stuff"))
	require.NoError(t, err)
	b, err := p.Load(ctx, "foofoo")
	require.NoError(t, err)
	assert.Equal(t, []byte("here is some stuff"), b)

	_, err = p.Load(ctx, "nothere")
	assert.Error(t, err)
}

func TestVectorVersionsInBucket(t *testing.T) {
	t.Parallel()
	c, bucketName := s3test.Client(t)
	config := pvec.RemoteConfig{
		StoreImmutablePartsWith: s3Persist.NewPersist(c, bucketName, "vec/"),
		NodeCache:               pvec.NewNodeCache(1000),
	}

	v1 := pvec.Empty[int]()
	for i := 0; i < 2000; i++ {
		v1 = v1.Push(i)
	}
	root1, err := v1.MakeRoot(ctx, &config)
	require.NoError(t, err)

	v2, err := v1.Set(5, -5)
	require.NoError(t, err)
	v2 = v2.Unshift(-1)
	root2, err := v2.MakeRoot(ctx, &config)
	require.NoError(t, err)
	assert.NotEqual(t, *root1.Link, *root2.Link)

	// a fresh config has nothing cached
	cold := pvec.RemoteConfig{StoreImmutablePartsWith: s3Persist.NewPersist(c, bucketName, "vec/")}
	for _, tc := range []struct {
		root *pvec.Root
		want *pvec.Vector[int]
	}{{root1, v1}, {root2, v2}} {
		loaded, err := pvec.LoadVector[int](ctx, tc.root, &cold)
		require.NoError(t, err)
		assert.True(t, pvec.Equal(tc.want, loaded), fmt.Sprintf("%v", tc.root))
	}
}
