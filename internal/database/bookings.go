package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"shareit/internal/domain"
	"shareit/internal/models"
)

const bookingSelect = `SELECT b.id, b.start_time, b.end_time, b.item_id, b.booker_id, b.status,
	b.created_at, b.updated_at, i.name, i.owner_id, u.name
	FROM bookings b
	JOIN items i ON i.id = b.item_id
	JOIN users u ON u.id = b.booker_id`

func (db *DB) CreateBooking(ctx context.Context, booking *models.Booking) error {
	now := dbTime(time.Now())
	id, err := db.insert(ctx,
		`INSERT INTO bookings (start_time, end_time, item_id, booker_id, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		dbTime(booking.Start), dbTime(booking.End), booking.ItemID, booking.BookerID, booking.Status, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	booking.ID = id
	booking.Start = dbTime(booking.Start)
	booking.End = dbTime(booking.End)
	booking.CreatedAt = now
	booking.UpdatedAt = now
	return nil
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	row := db.queryRow(ctx, bookingSelect+` WHERE b.id = ?`, id)
	booking, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

// DecideBookingStatus is a compare-and-set from WAITING. Of two concurrent
// deciders exactly one sees a row updated.
func (db *DB) DecideBookingStatus(ctx context.Context, id int64, status models.BookingStatus, at time.Time) error {
	result, err := db.exec(ctx,
		`UPDATE bookings SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		status, dbTime(at), id, models.StatusWaiting,
	)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	ok, err := affected(result)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	var current models.BookingStatus
	err = db.queryRow(ctx, `SELECT status FROM bookings WHERE id = ?`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrBookingNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to re-read booking status: %w", err)
	}
	return domain.ErrStatusDecided
}

// ListBookings applies criteria as given. Order is start descending, then id descending.
func (db *DB) ListBookings(ctx context.Context, c models.BookingCriteria) ([]*models.Booking, error) {
	var (
		where []string
		args  []interface{}
	)

	if c.Viewpoint == models.ViewAsOwner {
		where = append(where, "i.owner_id = ?")
	} else {
		where = append(where, "b.booker_id = ?")
	}
	args = append(args, c.ViewerID)

	if c.Status != nil {
		where = append(where, "b.status = ?")
		args = append(args, *c.Status)
	}
	if c.StartNotAfter != nil {
		where = append(where, "b.start_time <= ?")
		args = append(args, dbTime(*c.StartNotAfter))
	}
	if c.StartAfter != nil {
		where = append(where, "b.start_time > ?")
		args = append(args, dbTime(*c.StartAfter))
	}
	if c.EndAfter != nil {
		where = append(where, "b.end_time > ?")
		args = append(args, dbTime(*c.EndAfter))
	}
	if c.EndBefore != nil {
		where = append(where, "b.end_time < ?")
		args = append(args, dbTime(*c.EndBefore))
	}

	query := bookingSelect + ` WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY b.start_time DESC, b.id DESC LIMIT ? OFFSET ?`
	args = append(args, c.Limit, c.Offset)

	return db.queryBookings(ctx, query, args...)
}

// LastBooking returns the booking of itemID that ended most recently before now.
func (db *DB) LastBooking(ctx context.Context, itemID int64, now time.Time) (*models.Booking, error) {
	return db.firstBooking(ctx,
		bookingSelect+` WHERE b.item_id = ? AND b.end_time < ? ORDER BY b.end_time DESC, b.id DESC LIMIT 1`,
		itemID, dbTime(now),
	)
}

// NextBooking returns the booking of itemID that starts soonest after now.
func (db *DB) NextBooking(ctx context.Context, itemID int64, now time.Time) (*models.Booking, error) {
	return db.firstBooking(ctx,
		bookingSelect+` WHERE b.item_id = ? AND b.start_time > ? ORDER BY b.start_time ASC, b.id ASC LIMIT 1`,
		itemID, dbTime(now),
	)
}

func (db *DB) HasFinishedBooking(ctx context.Context, bookerID, itemID int64, now time.Time) (bool, error) {
	var one int
	err := db.queryRow(ctx,
		`SELECT 1 FROM bookings WHERE booker_id = ? AND item_id = ? AND end_time < ? LIMIT 1`,
		bookerID, itemID, dbTime(now),
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check finished booking: %w", err)
	}
	return true, nil
}

func (db *DB) firstBooking(ctx context.Context, query string, args ...interface{}) (*models.Booking, error) {
	booking, err := scanBooking(db.queryRow(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

func (db *DB) queryBookings(ctx context.Context, query string, args ...interface{}) ([]*models.Booking, error) {
	rows, err := db.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	bookings := make([]*models.Booking, 0)
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}
	return bookings, rows.Err()
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	var b models.Booking
	err := row.Scan(
		&b.ID, &b.Start, &b.End, &b.ItemID, &b.BookerID, &b.Status,
		&b.CreatedAt, &b.UpdatedAt, &b.ItemName, &b.ItemOwnerID, &b.BookerName,
	)
	if err != nil {
		return nil, err
	}
	b.Start = b.Start.UTC()
	b.End = b.End.UTC()
	return &b, nil
}
