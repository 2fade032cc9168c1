package models

import (
	"errors"
	"time"
)

// StateFilter narrows a booking listing into a temporal or status category.
type StateFilter int

const (
	StateAll StateFilter = iota
	StateCurrent
	StatePast
	StateFuture
	StateWaiting
	StateRejected
)

var ErrUnknownState = errors.New("unknown state filter")

var stateNames = map[StateFilter]string{
	StateAll:      "ALL",
	StateCurrent:  "CURRENT",
	StatePast:     "PAST",
	StateFuture:   "FUTURE",
	StateWaiting:  "WAITING",
	StateRejected: "REJECTED",
}

// ParseStateFilter maps the wire keyword to a filter. Matching is case sensitive.
func ParseStateFilter(raw string) (StateFilter, error) {
	for state, name := range stateNames {
		if name == raw {
			return state, nil
		}
	}
	return 0, ErrUnknownState
}

func (f StateFilter) String() string {
	if name, ok := stateNames[f]; ok {
		return name
	}
	return "UNKNOWN"
}

// Viewpoint selects which side of a booking a listing is scoped to.
type Viewpoint int

const (
	ViewAsBooker Viewpoint = iota
	ViewAsOwner
)

func (v Viewpoint) String() string {
	if v == ViewAsOwner {
		return "owner"
	}
	return "booker"
}

// BookingCriteria is a store level selection over bookings. Nil bounds are not applied.
// Results are always ordered by start descending, id descending.
type BookingCriteria struct {
	ViewerID  int64
	Viewpoint Viewpoint

	Status        *BookingStatus
	StartNotAfter *time.Time
	StartAfter    *time.Time
	EndAfter      *time.Time
	EndBefore     *time.Time

	Offset int
	Limit  int
}

// ItemEligibility is what the booking engine needs to know about an item.
type ItemEligibility struct {
	ItemID    int64
	OwnerID   int64
	Available bool
}
