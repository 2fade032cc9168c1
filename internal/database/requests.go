package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"shareit/internal/domain"
	"shareit/internal/models"
)

const requestColumns = `id, description, requester_id, created`

func (db *DB) CreateRequest(ctx context.Context, req *models.ItemRequest) error {
	now := dbTime(time.Now())
	id, err := db.insert(ctx,
		`INSERT INTO item_requests (description, requester_id, created) VALUES (?, ?, ?)`,
		req.Description, req.RequesterID, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.ID = id
	req.Created = now
	return nil
}

func (db *DB) GetRequestByID(ctx context.Context, id int64) (*models.ItemRequest, error) {
	var r models.ItemRequest
	err := db.queryRow(ctx, `SELECT `+requestColumns+` FROM item_requests WHERE id = ?`, id).
		Scan(&r.ID, &r.Description, &r.RequesterID, &r.Created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get request: %w", err)
	}
	return &r, nil
}

// GetRequestsByRequester lists the user's own requests, newest first.
func (db *DB) GetRequestsByRequester(ctx context.Context, requesterID int64) ([]*models.ItemRequest, error) {
	return db.queryRequests(ctx,
		`SELECT `+requestColumns+` FROM item_requests WHERE requester_id = ? ORDER BY created DESC, id DESC`,
		requesterID,
	)
}

// GetOtherRequests lists requests made by everyone except userID, newest first.
func (db *DB) GetOtherRequests(ctx context.Context, userID int64, offset, limit int) ([]*models.ItemRequest, error) {
	return db.queryRequests(ctx,
		`SELECT `+requestColumns+` FROM item_requests WHERE requester_id <> ?
		 ORDER BY created DESC, id DESC LIMIT ? OFFSET ?`,
		userID, limit, offset,
	)
}

func (db *DB) queryRequests(ctx context.Context, query string, args ...interface{}) ([]*models.ItemRequest, error) {
	rows, err := db.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}
	defer rows.Close()

	requests := make([]*models.ItemRequest, 0)
	for rows.Next() {
		var r models.ItemRequest
		if err := rows.Scan(&r.ID, &r.Description, &r.RequesterID, &r.Created); err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		requests = append(requests, &r)
	}
	return requests, rows.Err()
}
