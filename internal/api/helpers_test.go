package api

import (
	"context"
	"io"
	"testing"
	"time"

	"shareit/internal/config"
	"shareit/internal/database"
	"shareit/internal/domain"
	"shareit/internal/models"
	"shareit/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	db    *database.DB
	clock *domain.FixedClock
	svc   Services
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zerolog.New(io.Discard)
	db, err := database.NewDB(context.Background(), config.DatabaseConfig{Driver: config.DriverSQLite, Path: ":memory:"}, &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	clock := &domain.FixedClock{T: testNow}
	users := service.NewUserService(db, &logger)
	items := service.NewItemService(db, db, db, db, &logger)
	bookings := service.NewBookingService(db, users, items, nil, nil, clock, &logger)
	items.SetBookings(bookings)

	return &testEnv{
		db:    db,
		clock: clock,
		svc: Services{
			Bookings: bookings,
			Users:    users,
			Items:    items,
			Requests: service.NewRequestService(db, db, users, &logger),
		},
	}
}

func (e *testEnv) user(t *testing.T, name string) *models.User {
	t.Helper()
	u := &models.User{Name: name, Email: name + "@example.com"}
	require.NoError(t, e.svc.Users.CreateUser(context.Background(), u))
	return u
}

func (e *testEnv) item(t *testing.T, owner *models.User, name string) *models.Item {
	t.Helper()
	it := &models.Item{Name: name, Description: name + " for rent", Available: true}
	require.NoError(t, e.svc.Items.CreateItem(context.Background(), owner.ID, it))
	return it
}

func (e *testEnv) booking(t *testing.T, booker *models.User, item *models.Item, start, end time.Duration) *models.Booking {
	t.Helper()
	b, err := e.svc.Bookings.CreateBooking(context.Background(), models.BookingRequest{
		Start:  e.clock.T.Add(start),
		End:    e.clock.T.Add(end),
		ItemID: item.ID,
	}, booker.ID)
	require.NoError(t, err)
	return b
}
