package activity

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

type lister interface {
	List(ctx context.Context, limit int) ([]Entry, error)
}

type Handler struct {
	repo lister
}

func NewHandler(repo lister) *Handler {
	return &Handler{repo: repo}
}

// List GET /api/activity?limit=N — most recent album actions first.
func (h *Handler) List(c echo.Context) error {
	limit := 0
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		limit = n
	}

	entries, err := h.repo.List(c.Request().Context(), limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if entries == nil {
		entries = []Entry{}
	}

	return c.JSON(http.StatusOK, entries)
}
