package api

import (
	"net/http"

	"shareit/internal/domain"
	"shareit/internal/models"

	"github.com/labstack/echo/v4"
)

type itemBody struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Available   *bool  `json:"available"`
	RequestID   *int64 `json:"requestId"`
}

func (s *HTTPServer) createItem(c echo.Context) error {
	userID, err := s.userID(c)
	if err != nil {
		return err
	}
	var body itemBody
	if err := bind(c, &body); err != nil {
		return err
	}
	if body.Available == nil {
		return domain.Invalid("available is required")
	}

	item := &models.Item{
		Name:        body.Name,
		Description: body.Description,
		Available:   *body.Available,
		RequestID:   body.RequestID,
	}
	if err := s.svc.Items.CreateItem(c.Request().Context(), userID, item); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, item)
}

func (s *HTTPServer) updateItem(c echo.Context) error {
	userID, err := s.userID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var patch models.ItemPatch
	if err := bind(c, &patch); err != nil {
		return err
	}
	item, err := s.svc.Items.UpdateItem(c.Request().Context(), userID, id, patch)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, item)
}

func (s *HTTPServer) getItem(c echo.Context) error {
	userID, err := s.userID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	item, err := s.svc.Items.GetItem(c.Request().Context(), userID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, item)
}

func (s *HTTPServer) listOwnerItems(c echo.Context) error {
	userID, err := s.userID(c)
	if err != nil {
		return err
	}
	from, size, err := page(c)
	if err != nil {
		return err
	}
	items, err := s.svc.Items.ListOwnerItems(c.Request().Context(), userID, from, size)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (s *HTTPServer) searchItems(c echo.Context) error {
	from, size, err := page(c)
	if err != nil {
		return err
	}
	items, err := s.svc.Items.SearchItems(c.Request().Context(), c.QueryParam("text"), from, size)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (s *HTTPServer) deleteItem(c echo.Context) error {
	userID, err := s.userID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := s.svc.Items.DeleteItem(c.Request().Context(), userID, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *HTTPServer) addComment(c echo.Context) error {
	userID, err := s.userID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var body struct {
		Text string `json:"text"`
	}
	if err := bind(c, &body); err != nil {
		return err
	}
	comment, err := s.svc.Items.AddComment(c.Request().Context(), userID, id, body.Text)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, comment)
}
