package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamza-akhtar-dev/bondcurve/internal/constants"
	"github.com/hamza-akhtar-dev/bondcurve/internal/models"
)

func setupTestRedis(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   1, // Use different DB for tests
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := client.Ping(ctx).Err()
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	err = client.FlushDB(ctx).Err()
	require.NoError(t, err)

	return client
}

func cleanupTestRedis(client *redis.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_ = client.FlushDB(ctx).Err()
	_ = client.Close()
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func testEvent(id, op string) *models.QuoteEvent {
	return &models.QuoteEvent{
		ID:        id,
		Timestamp: time.Now().UTC().Truncate(time.Second),
		Op:        op,
		Supply:    "1000",
		Amount:    "10",
		Funds:     "10.055",
		Accepted:  true,
	}
}

func TestRedisCache_RecentQuotes(t *testing.T) {
	client := setupTestRedis(t)
	defer cleanupTestRedis(client)

	c := NewRedisCacheFromClient(client, testLogger())
	ctx := context.Background()

	require.NoError(t, c.AddRecentQuote(ctx, testEvent("q1", models.OpPrice)))
	require.NoError(t, c.AddRecentQuote(ctx, testEvent("q2", models.OpSellQuote)))
	require.NoError(t, c.AddRecentQuote(ctx, testEvent("q3", models.OpBuyQuote)))

	got, err := c.GetRecentQuotes(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Newest first
	assert.Equal(t, "q3", got[0].ID)
	assert.Equal(t, "q2", got[1].ID)
}

func TestRedisCache_RecentQuotesTrimmed(t *testing.T) {
	client := setupTestRedis(t)
	defer cleanupTestRedis(client)

	c := NewRedisCacheFromClient(client, testLogger())
	ctx := context.Background()

	for i := 0; i < constants.MaxRecentQuotes+20; i++ {
		require.NoError(t, c.AddRecentQuote(ctx, testEvent(fmt.Sprintf("q%d", i), models.OpPrice)))
	}

	length, err := client.LLen(ctx, constants.RedisKeyRecentQuotes).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(constants.MaxRecentQuotes), length)
}

func TestRedisCache_SkipsMalformedEntries(t *testing.T) {
	client := setupTestRedis(t)
	defer cleanupTestRedis(client)

	c := NewRedisCacheFromClient(client, testLogger())
	ctx := context.Background()

	require.NoError(t, c.AddRecentQuote(ctx, testEvent("good", models.OpPrice)))
	require.NoError(t, client.LPush(ctx, constants.RedisKeyRecentQuotes, "{not json").Err())

	got, err := c.GetRecentQuotes(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "good", got[0].ID)
}

func TestRedisCache_LastPrice(t *testing.T) {
	client := setupTestRedis(t)
	defer cleanupTestRedis(client)

	c := NewRedisCacheFromClient(client, testLogger())
	ctx := context.Background()

	// Empty before any update
	price, err := c.GetLastPrice(ctx)
	require.NoError(t, err)
	assert.Empty(t, price)

	require.NoError(t, c.UpdateLastPrice(ctx, "1.105170918075647624"))

	price, err = c.GetLastPrice(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1.105170918075647624", price)
}

func TestRedisCache_PublishSubscribe(t *testing.T) {
	client := setupTestRedis(t)
	defer cleanupTestRedis(client)

	c := NewRedisCacheFromClient(client, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	events, err := c.SubscribeQuotes(ctx)
	require.NoError(t, err)

	sent := testEvent("live-1", models.OpTradeBuy)
	require.NoError(t, c.PublishQuote(ctx, sent))

	select {
	case got := <-events:
		require.NotNil(t, got)
		assert.Equal(t, sent.ID, got.ID)
		assert.Equal(t, sent.Op, got.Op)
		assert.Equal(t, sent.Supply, got.Supply)
	case <-ctx.Done():
		t.Fatal("timed out waiting for published quote event")
	}
}
