package cache

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradeforge/signalguard/internal/domain"
)

func TestKeyShape(t *testing.T) {
	assert.Equal(t, "signalguard:BTC:price", Key("BTC", domain.KindPrice))
	assert.Equal(t, "signalguard:BTC:onchain", Key("BTC", domain.KindOnChain))
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	c := NewMemoryCache()
	defer c.Close()
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok, "absence is a normal outcome")

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))

	value, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", value)
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache()
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok, "expired entries read as absent")
}

func TestMemoryCacheOverwrite(t *testing.T) {
	c := NewMemoryCache()
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v1", time.Minute))
	require.NoError(t, c.Set(ctx, "k", "v2", time.Minute))

	value, ok, _ := c.Get(ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, "v2", value)
}

func TestRedisCacheRoundTrip(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewRedisCacheFromClient(client)
	ctx := context.Background()

	mock.ExpectSet("signalguard:BTC:price", "95900", time.Minute).SetVal("OK")
	require.NoError(t, c.Set(ctx, "signalguard:BTC:price", "95900", time.Minute))

	mock.ExpectGet("signalguard:BTC:price").SetVal("95900")
	value, ok, err := c.Get(ctx, "signalguard:BTC:price")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "95900", value)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCacheMissIsNotAnError(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewRedisCacheFromClient(client)

	mock.ExpectGet("absent").RedisNil()

	_, ok, err := c.Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.False(t, ok)
}
