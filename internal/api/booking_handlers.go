package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"shareit/internal/domain"
	"shareit/internal/export"
	"shareit/internal/models"

	"github.com/labstack/echo/v4"
)

type bookingBody struct {
	Start  string               `json:"start"`
	End    string               `json:"end"`
	ItemID int64                `json:"itemId"`
	Status models.BookingStatus `json:"status"`
}

func (s *HTTPServer) createBooking(c echo.Context) error {
	userID, err := s.userID(c)
	if err != nil {
		return err
	}

	var body bookingBody
	if err := bind(c, &body); err != nil {
		return err
	}
	booking, err := s.svc.Bookings.CreateBooking(c.Request().Context(), models.BookingRequest{
		Start:  parseTime(body.Start),
		End:    parseTime(body.End),
		ItemID: body.ItemID,
		Status: body.Status,
	}, userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, booking)
}

func (s *HTTPServer) getBooking(c echo.Context) error {
	userID, err := s.userID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	booking, err := s.svc.Bookings.FindByID(c.Request().Context(), id, userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, booking)
}

func (s *HTTPServer) decideBooking(c echo.Context) error {
	userID, err := s.userID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	approved, err := strconv.ParseBool(c.QueryParam("approved"))
	if err != nil {
		return domain.Invalid("approved must be true or false")
	}

	booking, err := s.svc.Bookings.ApproveOrReject(c.Request().Context(), userID, id, approved)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, booking)
}

func (s *HTTPServer) listBookerBookings(c echo.Context) error {
	return s.listBookings(c, models.ViewAsBooker)
}

func (s *HTTPServer) listOwnerBookings(c echo.Context) error {
	return s.listBookings(c, models.ViewAsOwner)
}

func (s *HTTPServer) listBookings(c echo.Context, view models.Viewpoint) error {
	bookings, err := s.viewerBookings(c, view)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, bookings)
}

func (s *HTTPServer) viewerBookings(c echo.Context, view models.Viewpoint) ([]*models.Booking, error) {
	userID, err := s.userID(c)
	if err != nil {
		return nil, err
	}
	from, size, err := page(c)
	if err != nil {
		return nil, err
	}
	return s.svc.Bookings.ListBookings(c.Request().Context(), userID, view, stateParam(c), from, size)
}

func (s *HTTPServer) exportBookerBookings(c echo.Context) error {
	return s.exportBookings(c, models.ViewAsBooker)
}

func (s *HTTPServer) exportOwnerBookings(c echo.Context) error {
	return s.exportBookings(c, models.ViewAsOwner)
}

// exportBookings sends the same window a listing would return as an XLSX attachment.
func (s *HTTPServer) exportBookings(c echo.Context, view models.Viewpoint) error {
	bookings, err := s.viewerBookings(c, view)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := export.WriteBookings(&buf, bookings); err != nil {
		return err
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="bookings_%s.xlsx"`, stateParam(c)))
	return c.Blob(http.StatusOK, export.ContentType, buf.Bytes())
}
