package repository

import (
	"context"
	"sync/atomic"
	"time"

	"shareit/internal/domain"
	"shareit/internal/models"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverBookingCache serves from primary and switches to fallback after a
// primary error. It tries primary again once recoveryInterval has passed.
type FailoverBookingCache struct {
	primary   domain.BookingCache
	fallback  domain.BookingCache
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
	now       func() time.Time
}

func NewFailoverBookingCache(primary, fallback domain.BookingCache, logger *zerolog.Logger) *FailoverBookingCache {
	return &FailoverBookingCache{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		now:      time.Now,
	}
}

func (r *FailoverBookingCache) markDown(err error) {
	if !r.isDown.Swap(true) {
		r.logger.Error().Err(err).Msg("Primary booking cache failed, falling back to memory")
	}
	r.lastCheck.Store(r.now().UnixNano())
}

// usePrimary reports whether the next call should go to primary.
func (r *FailoverBookingCache) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	return r.now().Sub(time.Unix(0, r.lastCheck.Load())) > recoveryInterval
}

func (r *FailoverBookingCache) recovered() {
	if r.isDown.Swap(false) {
		r.logger.Info().Msg("Primary booking cache recovered")
	}
}

func (r *FailoverBookingCache) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	if r.usePrimary() {
		booking, err := r.primary.GetBooking(ctx, id)
		if err == nil {
			r.recovered()
			return booking, nil
		}
		r.markDown(err)
	}
	return r.fallback.GetBooking(ctx, id)
}

func (r *FailoverBookingCache) SetBooking(ctx context.Context, booking *models.Booking) error {
	if r.usePrimary() {
		err := r.primary.SetBooking(ctx, booking)
		if err == nil {
			r.recovered()
			return nil
		}
		r.markDown(err)
	}
	return r.fallback.SetBooking(ctx, booking)
}

// DeleteBooking always clears the fallback. A primary entry missed while
// primary was down expires with its TTL.
func (r *FailoverBookingCache) DeleteBooking(ctx context.Context, id int64) error {
	_ = r.fallback.DeleteBooking(ctx, id)
	if r.usePrimary() {
		err := r.primary.DeleteBooking(ctx, id)
		if err == nil {
			r.recovered()
			return nil
		}
		r.markDown(err)
	}
	return nil
}
