package histories

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/cloudsystem/cloudsystem/internal/pagination"
	"github.com/cloudsystem/cloudsystem/internal/validate"
)

// Handler handles HTTP requests for the history log. Handlers are thin:
// bind request, call service, render response.
type Handler struct {
	service HistoryService
}

// NewHandler creates a new history handler.
func NewHandler(service HistoryService) *Handler {
	return &Handler{service: service}
}

// List returns history rows (GET /histories).
func (h *Handler) List(c echo.Context) error {
	var q ListQuery
	if err := validate.Query(c, &q); err != nil {
		return err
	}
	page, err := pagination.FromRequest(c, sortColumns)
	if err != nil {
		return err
	}

	rows, total, err := h.service.List(c.Request().Context(), Filter{
		OwnerID:    q.UserID,
		FileID:     q.FileID,
		FileStatus: q.FileStatus,
	}, page)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.Respond(rows, total, page))
}
