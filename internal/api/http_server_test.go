package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"shareit/internal/config"
	"shareit/internal/export"
	"shareit/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const testJWTSecret = "test-secret"

func newTestHTTPServer(t *testing.T, env *testEnv, cfg config.APIConfig) *httptest.Server {
	t.Helper()
	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = testJWTSecret
	}
	logger := zerolog.New(io.Discard)
	srv := NewHTTPServer(&cfg, env.svc, &logger)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url string, userID int64, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if userID != 0 {
		req.Header.Set(defaultUserHeader, strconv.FormatInt(userID, 10))
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func errorMessage(t *testing.T, resp *http.Response) string {
	t.Helper()
	return decode[map[string]string](t, resp)["error"]
}

func TestHealthz(t *testing.T) {
	ts := newTestHTTPServer(t, newTestEnv(t), config.APIConfig{})

	resp := doJSON(t, http.MethodGet, ts.URL+"/healthz", 0, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
}

func TestBookingFlow(t *testing.T) {
	env := newTestEnv(t)
	ts := newTestHTTPServer(t, env, config.APIConfig{})
	owner := env.user(t, "owner")
	booker := env.user(t, "booker")
	stranger := env.user(t, "stranger")
	item := env.item(t, owner, "Drill")

	body := map[string]any{
		"itemId": item.ID,
		"start":  testNow.Add(24 * time.Hour).Format(time.RFC3339),
		"end":    testNow.Add(48 * time.Hour).Format("2006-01-02T15:04:05"),
		"status": "APPROVED",
	}
	resp := doJSON(t, http.MethodPost, ts.URL+"/bookings", booker.ID, body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[models.Booking](t, resp)
	assert.Equal(t, models.StatusWaiting, created.Status)
	assert.Equal(t, "Drill", created.ItemName)

	bookingURL := fmt.Sprintf("%s/bookings/%d", ts.URL, created.ID)

	resp = doJSON(t, http.MethodGet, bookingURL, stranger.ID, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, http.MethodPatch, bookingURL+"?approved=true", booker.ID, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, http.MethodPatch, bookingURL+"?approved=maybe", owner.ID, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, http.MethodPatch, bookingURL+"?approved=true", owner.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, models.StatusApproved, decode[models.Booking](t, resp).Status)

	resp = doJSON(t, http.MethodPatch, bookingURL+"?approved=false", owner.ID, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "status already decided", errorMessage(t, resp))

	resp = doJSON(t, http.MethodGet, bookingURL, owner.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, models.StatusApproved, decode[models.Booking](t, resp).Status)
}

func TestCreateBooking_Errors(t *testing.T) {
	env := newTestEnv(t)
	ts := newTestHTTPServer(t, env, config.APIConfig{})
	owner := env.user(t, "owner")
	booker := env.user(t, "booker")
	item := env.item(t, owner, "Drill")

	future := func(h int) string { return testNow.Add(time.Duration(h) * time.Hour).Format(time.RFC3339) }

	tests := []struct {
		name   string
		userID int64
		body   map[string]any
		want   int
		msg    string
	}{
		{"MissingHeader", 0, map[string]any{"itemId": item.ID, "start": future(1), "end": future(2)}, http.StatusBadRequest, ""},
		{"UnknownUser", 999, map[string]any{"itemId": item.ID, "start": future(1), "end": future(2)}, http.StatusNotFound, "user not found"},
		{"UnknownUserWithoutTimes", 999, map[string]any{"itemId": item.ID}, http.StatusNotFound, "user not found"},
		{"UnknownItem", booker.ID, map[string]any{"itemId": 999, "start": future(1), "end": future(2)}, http.StatusNotFound, "item not found"},
		{"SelfBooking", owner.ID, map[string]any{"itemId": item.ID, "start": future(1), "end": future(2)}, http.StatusBadRequest, "self-booking forbidden"},
		{"EndBeforeStart", booker.ID, map[string]any{"itemId": item.ID, "start": future(2), "end": future(1)}, http.StatusBadRequest, "invalid time range"},
		{"BadTimestamp", booker.ID, map[string]any{"itemId": item.ID, "start": "tomorrow", "end": future(1)}, http.StatusBadRequest, "invalid time range"},
		{"MissingEnd", booker.ID, map[string]any{"itemId": item.ID, "start": future(1)}, http.StatusBadRequest, "invalid time range"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, http.MethodPost, ts.URL+"/bookings", tt.userID, tt.body)
			assert.Equal(t, tt.want, resp.StatusCode)
			msg := errorMessage(t, resp)
			assert.NotEmpty(t, msg)
			if tt.msg != "" {
				assert.Equal(t, tt.msg, msg)
			}
		})
	}

	resp, err := http.Post(ts.URL+"/bookings", "application/json", bytes.NewBufferString("{"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListBookings_QueryDefaults(t *testing.T) {
	env := newTestEnv(t)
	ts := newTestHTTPServer(t, env, config.APIConfig{})
	owner := env.user(t, "owner")
	booker := env.user(t, "booker")
	item := env.item(t, owner, "Drill")

	var ids []int64
	for i := 1; i <= 12; i++ {
		b := env.booking(t, booker, item, time.Duration(i)*time.Hour, time.Duration(i)*time.Hour+30*time.Minute)
		ids = append(ids, b.ID)
	}

	resp := doJSON(t, http.MethodGet, ts.URL+"/bookings", booker.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[[]models.Booking](t, resp)
	require.Len(t, got, models.DefaultPageSize)
	assert.Equal(t, ids[11], got[0].ID, "newest start first")

	resp = doJSON(t, http.MethodGet, ts.URL+"/bookings/owner?state=FUTURE&from=10&size=5", owner.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got = decode[[]models.Booking](t, resp)
	require.Len(t, got, 2)
	assert.Equal(t, ids[1], got[0].ID)
	assert.Equal(t, ids[0], got[1].ID)

	resp = doJSON(t, http.MethodGet, ts.URL+"/bookings?state=UNSUPPORTED_STATUS", booker.ID, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "unknown state filter", errorMessage(t, resp))

	resp = doJSON(t, http.MethodGet, ts.URL+"/bookings?size=0", booker.ID, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, ts.URL+"/bookings?from=-1&state=BOGUS", 999, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "pagination is checked before identity")

	resp = doJSON(t, http.MethodGet, ts.URL+"/bookings?state=BOGUS", 999, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "identity is checked before state")
}

func TestExportBookings(t *testing.T) {
	env := newTestEnv(t)
	ts := newTestHTTPServer(t, env, config.APIConfig{})
	owner := env.user(t, "owner")
	booker := env.user(t, "booker")
	item := env.item(t, owner, "Drill")
	env.booking(t, booker, item, time.Hour, 2*time.Hour)

	resp := doJSON(t, http.MethodGet, ts.URL+"/bookings/owner/export?state=WAITING", owner.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, export.ContentType, resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "bookings_WAITING.xlsx")

	f, err := excelize.OpenReader(resp.Body)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(export.SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Drill", rows[1][1])
	assert.Equal(t, "booker", rows[1][2])
}

func TestBearerIdentity(t *testing.T) {
	env := newTestEnv(t)
	ts := newTestHTTPServer(t, env, config.APIConfig{})
	booker := env.user(t, "booker")

	sign := func(secret string, sub any) string {
		tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": sub})
		raw, err := tok.SignedString([]byte(secret))
		require.NoError(t, err)
		return raw
	}

	call := func(token string) *http.Response {
		req, err := http.NewRequest(http.MethodGet, ts.URL+"/bookings", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	assert.Equal(t, http.StatusOK, call(sign(testJWTSecret, strconv.FormatInt(booker.ID, 10))).StatusCode)
	assert.Equal(t, http.StatusOK, call(sign(testJWTSecret, booker.ID)).StatusCode)
	assert.Equal(t, http.StatusUnauthorized, call(sign("other-secret", "1")).StatusCode)
	assert.Equal(t, http.StatusUnauthorized, call("not-a-token").StatusCode)
}

func TestBearerIdentity_TokenOutranksHeader(t *testing.T) {
	env := newTestEnv(t)
	ts := newTestHTTPServer(t, env, config.APIConfig{})
	booker := env.user(t, "booker")

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": strconv.FormatInt(booker.ID, 10)})
	token, err := tok.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)

	call := func(header string) *http.Response {
		req, err := http.NewRequest(http.MethodGet, ts.URL+"/bookings", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
		if header != "" {
			req.Header.Set(defaultUserHeader, header)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	spoofed := call("99999")
	assert.Equal(t, http.StatusForbidden, spoofed.StatusCode)
	assert.Equal(t, "access denied", errorMessage(t, spoofed))

	assert.Equal(t, http.StatusOK, call(strconv.FormatInt(booker.ID, 10)).StatusCode)
	assert.Equal(t, http.StatusOK, call("").StatusCode)
}

func TestItemsUsersRequests(t *testing.T) {
	env := newTestEnv(t)
	ts := newTestHTTPServer(t, env, config.APIConfig{})

	resp := doJSON(t, http.MethodPost, ts.URL+"/users", 0, map[string]string{"name": "Ann", "email": "ann@example.com"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	ann := decode[models.User](t, resp)

	resp = doJSON(t, http.MethodPost, ts.URL+"/users", 0, map[string]string{"name": "Dup", "email": "ann@example.com"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = doJSON(t, http.MethodPatch, fmt.Sprintf("%s/users/%d", ts.URL, ann.ID), 0, map[string]string{"name": "Anna"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Anna", decode[models.User](t, resp).Name)

	bob := env.user(t, "bob")

	resp = doJSON(t, http.MethodPost, ts.URL+"/requests", bob.ID, map[string]string{"description": "need a tent"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	req := decode[models.ItemRequest](t, resp)

	resp = doJSON(t, http.MethodPost, ts.URL+"/items", ann.ID, map[string]any{"name": "Tent", "description": "Two person tent"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "available is required")

	resp = doJSON(t, http.MethodPost, ts.URL+"/items", ann.ID, map[string]any{
		"name": "Tent", "description": "Two person tent", "available": true, "requestId": req.ID,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	tent := decode[models.Item](t, resp)

	resp = doJSON(t, http.MethodPatch, fmt.Sprintf("%s/items/%d", ts.URL, tent.ID), bob.ID, map[string]any{"name": "Mine"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, ts.URL+"/items/search?text=TENT", bob.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]models.Item](t, resp), 1)

	resp = doJSON(t, http.MethodGet, ts.URL+"/items/search?text=", bob.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]models.Item](t, resp))

	resp = doJSON(t, http.MethodPost, fmt.Sprintf("%s/items/%d/comment", ts.URL, tent.ID), bob.ID, map[string]string{"text": "nice"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "user has not booked this item", errorMessage(t, resp))

	resp = doJSON(t, http.MethodGet, ts.URL+"/requests", bob.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	own := decode[[]models.ItemRequest](t, resp)
	require.Len(t, own, 1)
	require.Len(t, own[0].Items, 1)
	assert.Equal(t, tent.ID, own[0].Items[0].ID)

	resp = doJSON(t, http.MethodGet, ts.URL+"/requests/all?from=0&size=5", ann.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]models.ItemRequest](t, resp), 1)

	resp = doJSON(t, http.MethodGet, ts.URL+"/requests/12345", ann.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doJSON(t, http.MethodDelete, fmt.Sprintf("%s/users/%d", ts.URL, bob.ID), 0, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, fmt.Sprintf("%s/users/%d", ts.URL, bob.ID), 0, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestItemView_OwnerAnnotation(t *testing.T) {
	env := newTestEnv(t)
	ts := newTestHTTPServer(t, env, config.APIConfig{})
	owner := env.user(t, "owner")
	booker := env.user(t, "booker")
	item := env.item(t, owner, "Drill")
	next := env.booking(t, booker, item, time.Hour, 2*time.Hour)

	resp := doJSON(t, http.MethodGet, fmt.Sprintf("%s/items/%d", ts.URL, item.ID), owner.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view := decode[models.ItemView](t, resp)
	assert.Nil(t, view.LastBooking)
	require.NotNil(t, view.NextBooking)
	assert.Equal(t, next.ID, view.NextBooking.ID)

	resp = doJSON(t, http.MethodGet, fmt.Sprintf("%s/items/%d", ts.URL, item.ID), booker.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Nil(t, decode[models.ItemView](t, resp).NextBooking)
}

func TestHTTPAuth(t *testing.T) {
	env := newTestEnv(t)
	booker := env.user(t, "booker")
	ts := newTestHTTPServer(t, env, config.APIConfig{
		Auth: config.APIAuthConfig{
			Enabled: true,
			APIKeys: []config.APIClientKey{
				{Key: "reader", Extra: "secret", Permissions: []string{permReadBookings}},
			},
		},
	})

	call := func(method, path, key, extra string) int {
		req, err := http.NewRequest(method, ts.URL+path, nil)
		require.NoError(t, err)
		req.Header.Set(defaultUserHeader, strconv.FormatInt(booker.ID, 10))
		if key != "" {
			req.Header.Set("X-Api-Key", key)
			req.Header.Set("X-Api-Extra", extra)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusOK, call(http.MethodGet, "/healthz", "", ""))
	assert.Equal(t, http.StatusUnauthorized, call(http.MethodGet, "/bookings", "", ""))
	assert.Equal(t, http.StatusUnauthorized, call(http.MethodGet, "/bookings", "reader", "wrong"))
	assert.Equal(t, http.StatusOK, call(http.MethodGet, "/bookings", "reader", "secret"))
	assert.Equal(t, http.StatusForbidden, call(http.MethodPatch, "/bookings/1?approved=true", "reader", "secret"))
}

func TestHTTPRateLimit(t *testing.T) {
	env := newTestEnv(t)
	ts := newTestHTTPServer(t, env, config.APIConfig{
		RateLimit: config.APIRateLimitConfig{RPS: 1, Burst: 1},
	})

	first := doJSON(t, http.MethodGet, ts.URL+"/users", 0, nil)
	assert.Equal(t, http.StatusOK, first.StatusCode)
	second := doJSON(t, http.MethodGet, ts.URL+"/users", 0, nil)
	assert.Equal(t, http.StatusTooManyRequests, second.StatusCode)
}
