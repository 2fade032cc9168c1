package service

import (
	"time"

	"shareit/internal/models"
)

// ComposeCriteria turns a state filter into store criteria relative to now.
//
//	CURRENT  start <= now < end
//	PAST     end < now
//	FUTURE   start > now
//	WAITING, REJECTED  status equality
func ComposeCriteria(filter models.StateFilter, now time.Time) models.BookingCriteria {
	var c models.BookingCriteria
	switch filter {
	case models.StateAll:
	case models.StateCurrent:
		c.StartNotAfter = &now
		c.EndAfter = &now
	case models.StatePast:
		c.EndBefore = &now
	case models.StateFuture:
		c.StartAfter = &now
	case models.StateWaiting:
		status := models.StatusWaiting
		c.Status = &status
	case models.StateRejected:
		status := models.StatusRejected
		c.Status = &status
	}
	return c
}

// Window validates offset/limit pagination.
func Window(from, size int) bool {
	return from >= 0 && size > 0
}
