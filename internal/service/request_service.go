package service

import (
	"context"
	"strings"

	"shareit/internal/domain"
	"shareit/internal/models"

	"github.com/rs/zerolog"
)

type RequestService struct {
	repo   domain.RequestRepository
	items  domain.ItemRepository
	users  domain.UserDirectory
	logger *zerolog.Logger
}

func NewRequestService(repo domain.RequestRepository, items domain.ItemRepository, users domain.UserDirectory, logger *zerolog.Logger) *RequestService {
	return &RequestService{repo: repo, items: items, users: users, logger: logger}
}

func (s *RequestService) requireUser(ctx context.Context, userID int64) error {
	ok, err := s.users.UserExists(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrUserNotFound
	}
	return nil
}

func (s *RequestService) CreateRequest(ctx context.Context, userID int64, description string) (*models.ItemRequest, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, domain.Invalid("description is required")
	}
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}

	req := &models.ItemRequest{Description: description, RequesterID: userID, Items: []*models.Item{}}
	if err := s.repo.CreateRequest(ctx, req); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("request_id", req.ID).Int64("user_id", userID).Msg("Item request created")
	return req, nil
}

// GetOwnRequests lists the user's requests, newest first, with the items offered for each.
func (s *RequestService) GetOwnRequests(ctx context.Context, userID int64) ([]*models.ItemRequest, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	reqs, err := s.repo.GetRequestsByRequester(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.attachItems(ctx, reqs); err != nil {
		return nil, err
	}
	return reqs, nil
}

// GetOtherRequests pages through everyone else's requests.
func (s *RequestService) GetOtherRequests(ctx context.Context, userID int64, from, size int) ([]*models.ItemRequest, error) {
	if !Window(from, size) {
		return nil, domain.ErrInvalidPagination
	}
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	reqs, err := s.repo.GetOtherRequests(ctx, userID, from, size)
	if err != nil {
		return nil, err
	}
	if err := s.attachItems(ctx, reqs); err != nil {
		return nil, err
	}
	return reqs, nil
}

func (s *RequestService) GetRequest(ctx context.Context, userID, requestID int64) (*models.ItemRequest, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	req, err := s.repo.GetRequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := s.attachItems(ctx, []*models.ItemRequest{req}); err != nil {
		return nil, err
	}
	return req, nil
}

func (s *RequestService) attachItems(ctx context.Context, reqs []*models.ItemRequest) error {
	if len(reqs) == 0 {
		return nil
	}
	byID := make(map[int64]*models.ItemRequest, len(reqs))
	ids := make([]int64, 0, len(reqs))
	for _, r := range reqs {
		r.Items = []*models.Item{}
		byID[r.ID] = r
		ids = append(ids, r.ID)
	}

	items, err := s.items.GetItemsByRequests(ctx, ids)
	if err != nil {
		return err
	}
	for _, item := range items {
		if item.RequestID == nil {
			continue
		}
		if r, ok := byID[*item.RequestID]; ok {
			r.Items = append(r.Items, item)
		}
	}
	return nil
}
