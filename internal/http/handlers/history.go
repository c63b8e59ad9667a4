package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"shelfscan/internal/history"
)

type HistoryHandler struct {
	store *history.Store
}

func NewHistoryHandler(store *history.Store) *HistoryHandler {
	return &HistoryHandler{store: store}
}

// List returns past scans, most recent first.
func (h *HistoryHandler) List(c echo.Context) error {
	return c.JSON(http.StatusOK, h.store.List(c.Request().Context()))
}

// Delete removes one history entry by id. Deleting an unknown id is not an
// error; the list simply stays as it was.
func (h *HistoryHandler) Delete(c echo.Context) error {
	h.store.DeleteByID(c.Request().Context(), c.Param("id"))
	return c.NoContent(http.StatusNoContent)
}

// Clear removes all history entries.
func (h *HistoryHandler) Clear(c echo.Context) error {
	h.store.Clear(c.Request().Context())
	return c.NoContent(http.StatusNoContent)
}
