package api

import (
	"strconv"
	"strings"
	"time"

	"shareit/internal/domain"
	"shareit/internal/models"

	"github.com/labstack/echo/v4"
)

const defaultState = "ALL"

func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		return 0, domain.Invalid("invalid " + name)
	}
	return id, nil
}

func queryInt(c echo.Context, name string, def int) (int, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.Invalid("invalid " + name)
	}
	return v, nil
}

// page reads from/size with the listing defaults 0 and 10.
func page(c echo.Context) (from, size int, err error) {
	if from, err = queryInt(c, "from", 0); err != nil {
		return 0, 0, err
	}
	if size, err = queryInt(c, "size", models.DefaultPageSize); err != nil {
		return 0, 0, err
	}
	return from, size, nil
}

func stateParam(c echo.Context) string {
	if state := c.QueryParam("state"); state != "" {
		return state
	}
	return defaultState
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02T15:04"}

// parseTime accepts RFC 3339 and zone-less local timestamps, the latter read as UTC.
// A missing or unreadable value yields the zero time, which the booking
// engine rejects as an invalid range after its identity and item checks.
func parseTime(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func bind(c echo.Context, dst interface{}) error {
	if err := c.Bind(dst); err != nil {
		return domain.Invalid("invalid request body")
	}
	return nil
}
