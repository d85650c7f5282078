package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shophive/cart-service/internal/domain"
)

func setupCache(t *testing.T) *RedisCache {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisCache(client)
}

func TestGet_Miss(t *testing.T) {
	c := setupCache(t)

	_, err := c.Get(context.Background(), 42)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestSetGetDelete(t *testing.T) {
	c := setupCache(t)
	ctx := context.Background()

	want := []domain.CartLine{
		{ProductID: 7, Quantity: 3},
	}
	require.NoError(t, c.Set(ctx, 42, want))

	got, err := c.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, c.Delete(ctx, 42))
	_, err = c.Get(ctx, 42)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestKeysArePerUser(t *testing.T) {
	c := setupCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, 1, []domain.CartLine{{ProductID: 1, Quantity: 1}}))

	_, err := c.Get(ctx, 2)
	assert.ErrorIs(t, err, ErrCacheMiss)
}
