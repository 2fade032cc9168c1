package service

import (
	"context"
	"strings"

	"shareit/internal/domain"
	"shareit/internal/models"

	"github.com/rs/zerolog"
)

// BookingAnnotator supplies the nearest bookings shown to an item's owner.
type BookingAnnotator interface {
	LastBooking(ctx context.Context, itemID int64) (*models.Booking, error)
	NextBooking(ctx context.Context, itemID int64) (*models.Booking, error)
	HasFinishedBooking(ctx context.Context, bookerID, itemID int64) (bool, error)
}

type ItemService struct {
	repo     domain.ItemRepository
	comments domain.CommentRepository
	requests domain.RequestRepository
	users    domain.UserRepository
	bookings BookingAnnotator
	logger   *zerolog.Logger
}

func NewItemService(
	repo domain.ItemRepository,
	comments domain.CommentRepository,
	requests domain.RequestRepository,
	users domain.UserRepository,
	logger *zerolog.Logger,
) *ItemService {
	return &ItemService{
		repo:     repo,
		comments: comments,
		requests: requests,
		users:    users,
		logger:   logger,
	}
}

// SetBookings attaches the annotator. BookingService depends on ItemService
// as its catalog, so it can only be attached after both exist.
func (s *ItemService) SetBookings(bookings BookingAnnotator) {
	s.bookings = bookings
}

// GetItemEligibility implements domain.ItemCatalog.
func (s *ItemService) GetItemEligibility(ctx context.Context, itemID int64) (*models.ItemEligibility, error) {
	return s.repo.GetItemEligibility(ctx, itemID)
}

func (s *ItemService) CreateItem(ctx context.Context, ownerID int64, item *models.Item) error {
	if _, err := s.users.GetUserByID(ctx, ownerID); err != nil {
		return err
	}
	item.Name = strings.TrimSpace(item.Name)
	item.Description = strings.TrimSpace(item.Description)
	if item.Name == "" {
		return domain.Invalid("name is required")
	}
	if item.Description == "" {
		return domain.Invalid("description is required")
	}
	if item.RequestID != nil {
		if _, err := s.requests.GetRequestByID(ctx, *item.RequestID); err != nil {
			return err
		}
	}

	item.OwnerID = ownerID
	if err := s.repo.CreateItem(ctx, item); err != nil {
		return err
	}
	s.logger.Info().Int64("item_id", item.ID).Int64("owner_id", ownerID).Msg("Item created")
	return nil
}

// UpdateItem applies the non-nil fields of patch. Only the owner may update.
func (s *ItemService) UpdateItem(ctx context.Context, ownerID, itemID int64, patch models.ItemPatch) (*models.Item, error) {
	if _, err := s.users.GetUserByID(ctx, ownerID); err != nil {
		return nil, err
	}
	item, err := s.repo.GetItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.OwnerID != ownerID {
		return nil, domain.ErrAccessDenied
	}

	if patch.Name != nil && strings.TrimSpace(*patch.Name) != "" {
		item.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil && strings.TrimSpace(*patch.Description) != "" {
		item.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Available != nil {
		item.Available = *patch.Available
	}

	if err := s.repo.UpdateItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// GetItem shows an item to any existing user. Nearest bookings are only
// filled in for the owner.
func (s *ItemService) GetItem(ctx context.Context, viewerID, itemID int64) (*models.ItemView, error) {
	if _, err := s.users.GetUserByID(ctx, viewerID); err != nil {
		return nil, err
	}
	item, err := s.repo.GetItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, item, item.OwnerID == viewerID)
}

func (s *ItemService) ListOwnerItems(ctx context.Context, ownerID int64, from, size int) ([]*models.ItemView, error) {
	if !Window(from, size) {
		return nil, domain.ErrInvalidPagination
	}
	if _, err := s.users.GetUserByID(ctx, ownerID); err != nil {
		return nil, err
	}
	items, err := s.repo.GetItemsByOwner(ctx, ownerID, from, size)
	if err != nil {
		return nil, err
	}

	views := make([]*models.ItemView, 0, len(items))
	for _, item := range items {
		v, err := s.view(ctx, item, true)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

// SearchItems matches available items by name or description. Blank text finds nothing.
func (s *ItemService) SearchItems(ctx context.Context, text string, from, size int) ([]*models.Item, error) {
	if !Window(from, size) {
		return nil, domain.ErrInvalidPagination
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return []*models.Item{}, nil
	}
	return s.repo.SearchItems(ctx, text, from, size)
}

func (s *ItemService) DeleteItem(ctx context.Context, ownerID, itemID int64) error {
	item, err := s.repo.GetItemByID(ctx, itemID)
	if err != nil {
		return err
	}
	if item.OwnerID != ownerID {
		return domain.ErrAccessDenied
	}
	return s.repo.DeleteItem(ctx, itemID)
}

// AddComment lets a user review an item they have finished a booking of.
func (s *ItemService) AddComment(ctx context.Context, authorID, itemID int64, text string) (*models.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.ErrEmptyComment
	}
	author, err := s.users.GetUserByID(ctx, authorID)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.GetItemByID(ctx, itemID); err != nil {
		return nil, err
	}

	finished, err := s.bookings.HasFinishedBooking(ctx, authorID, itemID)
	if err != nil {
		return nil, err
	}
	if !finished {
		return nil, domain.ErrNotBooked
	}

	comment := &models.Comment{Text: text, ItemID: itemID, AuthorID: authorID, AuthorName: author.Name}
	if err := s.comments.CreateComment(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *ItemService) view(ctx context.Context, item *models.Item, annotate bool) (*models.ItemView, error) {
	comments, err := s.comments.GetCommentsByItem(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	v := &models.ItemView{Item: *item, Comments: comments}
	if !annotate || s.bookings == nil {
		return v, nil
	}

	last, err := s.bookings.LastBooking(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	next, err := s.bookings.NextBooking(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	v.LastBooking = models.RefOf(last)
	v.NextBooking = models.RefOf(next)
	return v, nil
}
