package service

import (
	"context"
	"errors"

	"shareit/internal/domain"
	"shareit/internal/events"
	"shareit/internal/metrics"
	"shareit/internal/models"

	"github.com/rs/zerolog"
)

// BookingService owns the booking lifecycle: creation, the single
// WAITING -> APPROVED/REJECTED decision, and viewpoint listings.
type BookingService struct {
	repo     domain.BookingRepository
	users    domain.UserDirectory
	items    domain.ItemCatalog
	cache    domain.BookingCache
	eventBus domain.EventPublisher
	clock    domain.Clock
	logger   *zerolog.Logger
}

// NewBookingService wires the engine. cache and eventBus may be nil.
func NewBookingService(
	repo domain.BookingRepository,
	users domain.UserDirectory,
	items domain.ItemCatalog,
	cache domain.BookingCache,
	eventBus domain.EventPublisher,
	clock domain.Clock,
	logger *zerolog.Logger,
) *BookingService {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &BookingService{
		repo:     repo,
		users:    users,
		items:    items,
		cache:    cache,
		eventBus: eventBus,
		clock:    clock,
		logger:   logger,
	}
}

func (s *BookingService) requireUser(ctx context.Context, userID int64) error {
	ok, err := s.users.UserExists(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrUserNotFound
	}
	return nil
}

// CreateBooking validates the request in a fixed order so the first violated
// rule is the one reported, then stores a WAITING booking.
func (s *BookingService) CreateBooking(ctx context.Context, req models.BookingRequest, bookerID int64) (*models.Booking, error) {
	if err := s.requireUser(ctx, bookerID); err != nil {
		return nil, err
	}

	item, err := s.items.GetItemEligibility(ctx, req.ItemID)
	if err != nil {
		return nil, err
	}
	if item.OwnerID == bookerID {
		return nil, domain.ErrSelfBooking
	}
	if !item.Available {
		return nil, domain.ErrItemUnavailable
	}
	if !req.ValidRange(s.clock.Now()) {
		return nil, domain.ErrInvalidTimeRange
	}

	booking := &models.Booking{
		Start:    req.Start,
		End:      req.End,
		ItemID:   req.ItemID,
		BookerID: bookerID,
		Status:   models.StatusWaiting,
	}
	if err := s.repo.CreateBooking(ctx, booking); err != nil {
		return nil, err
	}
	booking.ItemOwnerID = item.OwnerID

	if full, err := s.repo.GetBooking(ctx, booking.ID); err == nil {
		booking = full
	} else {
		s.logger.Warn().Err(err).Int64("booking_id", booking.ID).Msg("Re-read of created booking failed")
	}

	metrics.IncBookingCreated()
	s.logger.Info().
		Int64("booking_id", booking.ID).
		Int64("item_id", booking.ItemID).
		Int64("booker_id", bookerID).
		Msg("Booking created")
	s.publishEvent(events.EventBookingCreated, booking, bookerID)

	return booking, nil
}

// FindByID returns a booking to its booker or to the owner of its item.
func (s *BookingService) FindByID(ctx context.Context, bookingID, viewerID int64) (*models.Booking, error) {
	booking, err := s.cachedBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !booking.IsParty(viewerID) {
		return nil, domain.ErrAccessDenied
	}
	return booking, nil
}

func (s *BookingService) cachedBooking(ctx context.Context, bookingID int64) (*models.Booking, error) {
	if s.cache != nil {
		booking, err := s.cache.GetBooking(ctx, bookingID)
		if err != nil {
			s.logger.Warn().Err(err).Int64("booking_id", bookingID).Msg("Booking cache read failed")
		}
		if booking != nil {
			return booking, nil
		}
	}

	booking, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetBooking(ctx, booking); err != nil {
			s.logger.Warn().Err(err).Int64("booking_id", bookingID).Msg("Booking cache write failed")
		}
	}
	return booking, nil
}

// ApproveOrReject takes the owner's decision. The store applies it as a
// compare-and-set, so of two racing calls only one succeeds.
func (s *BookingService) ApproveOrReject(ctx context.Context, ownerID, bookingID int64, approve bool) (*models.Booking, error) {
	booking, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := s.requireUser(ctx, ownerID); err != nil {
		return nil, err
	}
	if booking.ItemOwnerID != ownerID {
		return nil, domain.ErrAccessDenied
	}

	next, err := booking.Status.Decide(approve)
	if err != nil {
		metrics.IncDecision("conflict")
		return nil, domain.ErrStatusDecided
	}

	now := s.clock.Now()
	if err := s.repo.DecideBookingStatus(ctx, bookingID, next, now); err != nil {
		if errors.Is(err, domain.ErrStatusDecided) {
			metrics.IncDecision("conflict")
		}
		return nil, err
	}
	s.invalidate(ctx, bookingID)

	booking.Status = next
	booking.UpdatedAt = now

	eventType := events.EventBookingRejected
	outcome := "rejected"
	if next == models.StatusApproved {
		eventType = events.EventBookingApproved
		outcome = "approved"
	}
	metrics.IncDecision(outcome)
	s.logger.Info().
		Int64("booking_id", bookingID).
		Int64("owner_id", ownerID).
		Str("status", string(next)).
		Msg("Booking decided")
	s.publishEvent(eventType, booking, ownerID)

	return booking, nil
}

func (s *BookingService) invalidate(ctx context.Context, bookingID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteBooking(ctx, bookingID); err != nil {
		s.logger.Warn().Err(err).Int64("booking_id", bookingID).Msg("Booking cache invalidation failed")
	}
}

// ListBookings validates pagination, identity and the state keyword in that
// order, then returns one window of the viewer's bookings, newest start first.
func (s *BookingService) ListBookings(
	ctx context.Context,
	viewerID int64,
	viewpoint models.Viewpoint,
	state string,
	from, size int,
) ([]*models.Booking, error) {
	if !Window(from, size) {
		return nil, domain.ErrInvalidPagination
	}
	if err := s.requireUser(ctx, viewerID); err != nil {
		return nil, err
	}
	filter, err := models.ParseStateFilter(state)
	if err != nil {
		return nil, domain.ErrUnknownState
	}

	criteria := ComposeCriteria(filter, s.clock.Now())
	criteria.ViewerID = viewerID
	criteria.Viewpoint = viewpoint
	criteria.Offset = from
	criteria.Limit = size

	return s.repo.ListBookings(ctx, criteria)
}

// LastBooking is the booking of itemID that ended most recently, or nil.
func (s *BookingService) LastBooking(ctx context.Context, itemID int64) (*models.Booking, error) {
	return s.repo.LastBooking(ctx, itemID, s.clock.Now())
}

// NextBooking is the booking of itemID that starts soonest, or nil.
func (s *BookingService) NextBooking(ctx context.Context, itemID int64) (*models.Booking, error) {
	return s.repo.NextBooking(ctx, itemID, s.clock.Now())
}

// HasFinishedBooking reports whether bookerID has a booking of itemID that already ended.
func (s *BookingService) HasFinishedBooking(ctx context.Context, bookerID, itemID int64) (bool, error) {
	return s.repo.HasFinishedBooking(ctx, bookerID, itemID, s.clock.Now())
}

func (s *BookingService) publishEvent(eventType string, booking *models.Booking, changedBy int64) {
	if s.eventBus == nil {
		return
	}
	payload := events.BookingEventPayload{
		BookingID:   booking.ID,
		ItemID:      booking.ItemID,
		ItemName:    booking.ItemName,
		OwnerID:     booking.ItemOwnerID,
		BookerID:    booking.BookerID,
		Status:      string(booking.Status),
		Start:       booking.Start,
		End:         booking.End,
		ChangedByID: changedBy,
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("booking_id", booking.ID).Msg("Publish booking event failed")
	}
}
