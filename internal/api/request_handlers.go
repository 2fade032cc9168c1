package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (s *HTTPServer) createRequest(c echo.Context) error {
	userID, err := s.userID(c)
	if err != nil {
		return err
	}
	var body struct {
		Description string `json:"description"`
	}
	if err := bind(c, &body); err != nil {
		return err
	}
	req, err := s.svc.Requests.CreateRequest(c.Request().Context(), userID, body.Description)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, req)
}

func (s *HTTPServer) listOwnRequests(c echo.Context) error {
	userID, err := s.userID(c)
	if err != nil {
		return err
	}
	reqs, err := s.svc.Requests.GetOwnRequests(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, reqs)
}

func (s *HTTPServer) listOtherRequests(c echo.Context) error {
	userID, err := s.userID(c)
	if err != nil {
		return err
	}
	from, size, err := page(c)
	if err != nil {
		return err
	}
	reqs, err := s.svc.Requests.GetOtherRequests(c.Request().Context(), userID, from, size)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, reqs)
}

func (s *HTTPServer) getRequest(c echo.Context) error {
	userID, err := s.userID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	req, err := s.svc.Requests.GetRequest(c.Request().Context(), userID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, req)
}
