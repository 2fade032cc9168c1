package api

import (
	"net/http"

	"shareit/internal/models"

	"github.com/labstack/echo/v4"
)

func (s *HTTPServer) createUser(c echo.Context) error {
	var user models.User
	if err := bind(c, &user); err != nil {
		return err
	}
	user.ID = 0
	if err := s.svc.Users.CreateUser(c.Request().Context(), &user); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, user)
}

func (s *HTTPServer) listUsers(c echo.Context) error {
	users, err := s.svc.Users.GetAllUsers(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, users)
}

func (s *HTTPServer) getUser(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	user, err := s.svc.Users.GetUser(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

func (s *HTTPServer) updateUser(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var patch models.UserPatch
	if err := bind(c, &patch); err != nil {
		return err
	}
	user, err := s.svc.Users.UpdateUser(c.Request().Context(), id, patch)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

func (s *HTTPServer) deleteUser(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := s.svc.Users.DeleteUser(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
