package models

import (
	"errors"
	"time"
)

type BookingStatus string

const (
	StatusWaiting  BookingStatus = "WAITING"
	StatusApproved BookingStatus = "APPROVED"
	StatusRejected BookingStatus = "REJECTED"
)

// ErrStatusDecided is returned by Decide for a booking that already left WAITING.
var ErrStatusDecided = errors.New("status already decided")

func (s BookingStatus) Valid() bool {
	switch s {
	case StatusWaiting, StatusApproved, StatusRejected:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no transition leaves this status.
func (s BookingStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Decide is the only transition of the booking state machine:
// WAITING -> APPROVED when approve is true, WAITING -> REJECTED otherwise.
func (s BookingStatus) Decide(approve bool) (BookingStatus, error) {
	if s != StatusWaiting {
		return s, ErrStatusDecided
	}
	if approve {
		return StatusApproved, nil
	}
	return StatusRejected, nil
}

type Booking struct {
	ID        int64         `json:"id"`
	Start     time.Time     `json:"start"`
	End       time.Time     `json:"end"`
	ItemID    int64         `json:"item_id"`
	BookerID  int64         `json:"booker_id"`
	Status    BookingStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`

	// Filled by store reads from the joined item and user rows.
	ItemName    string `json:"item_name,omitempty"`
	ItemOwnerID int64  `json:"item_owner_id,omitempty"`
	BookerName  string `json:"booker_name,omitempty"`
}

// IsParty reports whether userID is the booker or the owner of the booked item.
func (b *Booking) IsParty(userID int64) bool {
	return b.BookerID == userID || b.ItemOwnerID == userID
}

// BookingRequest is the caller supplied part of a new booking.
// Status is accepted for wire compatibility and ignored.
type BookingRequest struct {
	Start  time.Time     `json:"start"`
	End    time.Time     `json:"end"`
	ItemID int64         `json:"itemId"`
	Status BookingStatus `json:"status,omitempty"`
}

// ValidRange checks the creation time invariants against now.
func (r BookingRequest) ValidRange(now time.Time) bool {
	if r.Start.IsZero() || r.End.IsZero() {
		return false
	}
	if r.Start.Before(now) {
		return false
	}
	return r.End.After(r.Start)
}
