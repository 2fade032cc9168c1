package repository

import (
	"context"
	"testing"
	"time"

	"shareit/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBooking(id int64) *models.Booking {
	start := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	return &models.Booking{
		ID:          id,
		Start:       start,
		End:         start.Add(2 * time.Hour),
		ItemID:      3,
		BookerID:    2,
		Status:      models.StatusWaiting,
		ItemName:    "Drill",
		ItemOwnerID: 1,
	}
}

func TestRedisBookingCache(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()

	cache := NewRedisBookingCache(client, time.Minute)
	ctx := context.Background()

	t.Run("SetAndGet", func(t *testing.T) {
		require.NoError(t, cache.SetBooking(ctx, testBooking(10)))

		got, err := cache.GetBooking(ctx, 10)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, models.StatusWaiting, got.Status)
		assert.Equal(t, int64(1), got.ItemOwnerID)
		assert.True(t, got.Start.Equal(testBooking(10).Start))
		assert.True(t, s.Exists("booking:10"))
	})

	t.Run("Miss", func(t *testing.T) {
		got, err := cache.GetBooking(ctx, 404)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("Expires", func(t *testing.T) {
		require.NoError(t, cache.SetBooking(ctx, testBooking(11)))
		s.FastForward(2 * time.Minute)

		got, err := cache.GetBooking(ctx, 11)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, cache.SetBooking(ctx, testBooking(12)))
		require.NoError(t, cache.DeleteBooking(ctx, 12))

		got, err := cache.GetBooking(ctx, 12)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("CorruptEntry", func(t *testing.T) {
		require.NoError(t, s.Set("booking:13", "{not json"))
		_, err := cache.GetBooking(ctx, 13)
		assert.Error(t, err)
	})

	t.Run("ServerDown", func(t *testing.T) {
		s.Close()
		_, err := cache.GetBooking(ctx, 10)
		assert.Error(t, err)
		assert.Error(t, Ping(ctx, client))
	})
}

func TestRedisBookingCache_NilClient(t *testing.T) {
	cache := NewRedisBookingCache(nil, time.Minute)
	ctx := context.Background()

	_, err := cache.GetBooking(ctx, 1)
	assert.Error(t, err)
	assert.Error(t, cache.SetBooking(ctx, testBooking(1)))
	assert.Error(t, cache.DeleteBooking(ctx, 1))
	assert.NoError(t, Close(nil))
}
