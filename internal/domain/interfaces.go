package domain

import (
	"context"
	"time"

	"shareit/internal/models"
)

// UserDirectory is the identity gate used before any booking operation.
type UserDirectory interface {
	UserExists(ctx context.Context, userID int64) (bool, error)
}

// ItemCatalog answers whether an item can be booked and who owns it.
type ItemCatalog interface {
	GetItemEligibility(ctx context.Context, itemID int64) (*models.ItemEligibility, error)
}

type BookingRepository interface {
	CreateBooking(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	// DecideBookingStatus moves a WAITING booking to status atomically.
	// Returns ErrBookingNotFound or ErrStatusDecided when nothing was updated.
	DecideBookingStatus(ctx context.Context, id int64, status models.BookingStatus, at time.Time) error
	ListBookings(ctx context.Context, criteria models.BookingCriteria) ([]*models.Booking, error)
	LastBooking(ctx context.Context, itemID int64, now time.Time) (*models.Booking, error)
	NextBooking(ctx context.Context, itemID int64, now time.Time) (*models.Booking, error)
	HasFinishedBooking(ctx context.Context, bookerID, itemID int64, now time.Time) (bool, error)
}

// BookingCache is a read-through cache in front of GetBooking. A miss returns nil, nil.
type BookingCache interface {
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	SetBooking(ctx context.Context, booking *models.Booking) error
	DeleteBooking(ctx context.Context, id int64) error
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	UserExists(ctx context.Context, id int64) (bool, error)
	GetAllUsers(ctx context.Context) ([]*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, id int64) error
}

type ItemRepository interface {
	CreateItem(ctx context.Context, item *models.Item) error
	GetItemByID(ctx context.Context, id int64) (*models.Item, error)
	GetItemEligibility(ctx context.Context, id int64) (*models.ItemEligibility, error)
	UpdateItem(ctx context.Context, item *models.Item) error
	DeleteItem(ctx context.Context, id int64) error
	GetItemsByOwner(ctx context.Context, ownerID int64, offset, limit int) ([]*models.Item, error)
	SearchItems(ctx context.Context, text string, offset, limit int) ([]*models.Item, error)
	GetItemsByRequests(ctx context.Context, requestIDs []int64) ([]*models.Item, error)
}

type CommentRepository interface {
	CreateComment(ctx context.Context, comment *models.Comment) error
	GetCommentsByItem(ctx context.Context, itemID int64) ([]*models.Comment, error)
}

type RequestRepository interface {
	CreateRequest(ctx context.Context, req *models.ItemRequest) error
	GetRequestByID(ctx context.Context, id int64) (*models.ItemRequest, error)
	GetRequestsByRequester(ctx context.Context, requesterID int64) ([]*models.ItemRequest, error)
	GetOtherRequests(ctx context.Context, userID int64, offset, limit int) ([]*models.ItemRequest, error)
}

type OutboxRepository interface {
	EnqueueEvent(ctx context.Context, eventType string, aggregateID int64, payload string) error
	GetPendingEvents(ctx context.Context, limit int) ([]*models.OutboxEvent, error)
	MarkEventCompleted(ctx context.Context, id int64) error
	MarkEventRetry(ctx context.Context, id int64, retryCount int, nextRetryAt time.Time, lastErr string) error
	MarkEventFailed(ctx context.Context, id int64, retryCount int, lastErr string) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}
