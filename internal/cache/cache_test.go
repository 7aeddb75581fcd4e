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

func setupMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { SetClient(nil) })
	return mr
}

type payload struct {
	Name string `json:"name"`
}

func TestAside_LoadsOnceThenServesFromCache(t *testing.T) {
	setupMiniredis(t)
	ctx := context.Background()

	loads := 0
	load := func(dest *payload) func() error {
		return func() error {
			loads++
			dest.Name = "go"
			return nil
		}
	}

	var first payload
	require.NoError(t, Aside(ctx, "k", &first, time.Minute, load(&first)))
	var second payload
	require.NoError(t, Aside(ctx, "k", &second, time.Minute, load(&second)))

	assert.Equal(t, 1, loads)
	assert.Equal(t, "go", second.Name)
}

func TestAside_WithoutClientAlwaysLoads(t *testing.T) {
	SetClient(nil)
	loads := 0
	var p payload
	for i := 0; i < 2; i++ {
		require.NoError(t, Aside(context.Background(), "k", &p, time.Minute, func() error {
			loads++
			return nil
		}))
	}
	assert.Equal(t, 2, loads)
}

func TestAside_PropagatesLoadError(t *testing.T) {
	setupMiniredis(t)
	var p payload
	err := Aside(context.Background(), "k", &p, time.Minute, func() error { return errors.New("db down") })
	assert.EqualError(t, err, "db down")
}

func TestInvalidate(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()
	require.NoError(t, SetJSON(ctx, CategoryListKey, []string{"a"}, time.Minute))
	assert.True(t, mr.Exists(CategoryListKey))

	InvalidateCategories(ctx)
	assert.False(t, mr.Exists(CategoryListKey))
}

func TestWSTicket_SingleUse(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()

	ticket, err := IssueWSTicket(ctx, 7)
	require.NoError(t, err)

	userID, err := ConsumeWSTicket(ctx, ticket)
	require.NoError(t, err)
	assert.Equal(t, uint(7), userID)

	_, err = ConsumeWSTicket(ctx, ticket)
	assert.ErrorIs(t, err, ErrTicketInvalid)

	expiring, err := IssueWSTicket(ctx, 8)
	require.NoError(t, err)
	mr.FastForward(WSTicketTTL + time.Second)
	_, err = ConsumeWSTicket(ctx, expiring)
	assert.ErrorIs(t, err, ErrTicketInvalid)
}

func TestWSTicket_RequiresRedis(t *testing.T) {
	SetClient(nil)
	_, err := IssueWSTicket(context.Background(), 1)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestParseRedisAddr(t *testing.T) {
	opts, err := parseRedisAddr(" localhost:6379 ")
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", opts.Addr)

	opts, err = parseRedisAddr("redis://:secret@cache.internal:6380/2")
	require.NoError(t, err)
	assert.Equal(t, "cache.internal:6380", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 2, opts.DB)

	_, err = parseRedisAddr("redis://host/notanumber")
	assert.Error(t, err)
	_, err = parseRedisAddr("   ")
	assert.Error(t, err)
}

func TestInitRedis(t *testing.T) {
	t.Cleanup(func() { SetClient(nil) })

	assert.Nil(t, InitRedis(""))
	assert.Nil(t, GetClient())

	mr := miniredis.RunT(t)
	c := InitRedis("redis://" + mr.Addr() + "/0")
	require.NotNil(t, c)
	defer func() { _ = c.Close() }()
	assert.Same(t, c, GetClient())

	mr.Close()
	assert.Nil(t, InitRedis(mr.Addr()))
	assert.Nil(t, GetClient())
}
