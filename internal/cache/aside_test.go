package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedPost struct {
	ID    uint   `json:"id"`
	Title string `json:"title"`
}

func setupMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	old := client
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { SetClient(old) })
	return mr
}

func TestAside_MissThenHit(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()

	calls := 0
	fetch := func(dest *cachedPost) func() error {
		return func() error {
			calls++
			dest.ID = 7
			dest.Title = "hello"
			return nil
		}
	}

	var first cachedPost
	err := Aside(ctx, PostKey(7), &first, PostTTL, fetch(&first))
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "hello", first.Title)
	assert.True(t, mr.Exists("post:7"))

	var second cachedPost
	err = Aside(ctx, PostKey(7), &second, PostTTL, fetch(&second))
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "second read must be served from cache")
	assert.Equal(t, first, second)
}

func TestAside_FetchErrorNotCached(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()

	var dest cachedPost
	sentinel := errors.New("db down")
	err := Aside(ctx, PostKey(1), &dest, time.Minute, func() error { return sentinel })
	assert.ErrorIs(t, err, sentinel)
	assert.False(t, mr.Exists("post:1"))
}

func TestAside_CorruptEntryFallsThrough(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("post:3", "{not json"))

	var dest cachedPost
	err := Aside(ctx, PostKey(3), &dest, time.Minute, func() error {
		dest.ID = 3
		dest.Title = "fresh"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fresh", dest.Title)

	// The corrupt entry was replaced with the fetched value.
	raw, err := mr.Get("post:3")
	require.NoError(t, err)
	assert.Contains(t, raw, `"fresh"`)
}

func TestAside_NilClientDegradesToFetch(t *testing.T) {
	old := client
	SetClient(nil)
	t.Cleanup(func() { SetClient(old) })

	var dest cachedPost
	err := Aside(context.Background(), PostKey(9), &dest, time.Minute, func() error {
		dest.ID = 9
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, uint(9), dest.ID)
}

func TestInvalidatePost(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("post:5", `{"id":5}`))
	require.NoError(t, mr.Set("post:5:comments", `[]`))

	InvalidatePost(ctx, 5)

	assert.False(t, mr.Exists("post:5"))
	assert.False(t, mr.Exists("post:5:comments"))
}
