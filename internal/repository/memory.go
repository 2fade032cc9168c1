package repository

import (
	"context"
	"sync"
	"time"

	"shareit/internal/models"
)

type cacheEntry struct {
	booking   models.Booking
	expiresAt time.Time
}

// MemoryBookingCache is the in-process fallback used while Redis is unreachable.
type MemoryBookingCache struct {
	entries sync.Map
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryBookingCache(ttl time.Duration) *MemoryBookingCache {
	return &MemoryBookingCache{ttl: ttl, now: time.Now}
}

func (r *MemoryBookingCache) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	val, ok := r.entries.Load(id)
	if !ok {
		return nil, nil
	}
	entry := val.(*cacheEntry)
	if r.ttl > 0 && r.now().After(entry.expiresAt) {
		r.entries.CompareAndDelete(id, val)
		return nil, nil
	}
	b := entry.booking
	return &b, nil
}

func (r *MemoryBookingCache) SetBooking(ctx context.Context, booking *models.Booking) error {
	r.entries.Store(booking.ID, &cacheEntry{booking: *booking, expiresAt: r.now().Add(r.ttl)})
	return nil
}

func (r *MemoryBookingCache) DeleteBooking(ctx context.Context, id int64) error {
	r.entries.Delete(id)
	return nil
}
