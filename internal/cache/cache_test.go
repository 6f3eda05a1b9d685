package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_Generation(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	c := New(rdb)
	ctx := context.Background()

	gen, err := c.Generation(ctx, RecentTagsGenKey)
	require.NoError(t, err)
	assert.Equal(t, int64(0), gen)

	c.Bump(ctx, RecentTagsGenKey)
	c.Bump(ctx, RecentTagsGenKey)

	gen, err = c.Generation(ctx, RecentTagsGenKey)
	require.NoError(t, err)
	assert.Equal(t, int64(2), gen)
	assert.NotEqual(t, RecentTagsKey(5, 0), RecentTagsKey(5, gen))
}

func TestCache_DisabledIsNoop(t *testing.T) {
	c := New(nil)
	ctx := context.Background()

	c.Bump(ctx, RecentTagsGenKey)
	gen, err := c.Generation(ctx, RecentTagsGenKey)
	require.NoError(t, err)
	assert.Equal(t, int64(0), gen)

	calls := 0
	var out []string
	err = c.Aside(ctx, RecentTagsKey(5, gen), &out, RecentTagsTTL, func() error {
		calls++
		out = []string{"a"}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, []string{"a"}, out)
}
