package files

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/cloudsystem/cloudsystem/internal/apperror"
	"github.com/cloudsystem/cloudsystem/internal/pagination"
	"github.com/cloudsystem/cloudsystem/internal/plugins/auth"
	"github.com/cloudsystem/cloudsystem/internal/validate"
)

// Handler handles HTTP requests for files. Handlers are thin: bind request,
// call service, render response.
type Handler struct {
	service FileService
}

// NewHandler creates a new file handler.
func NewHandler(service FileService) *Handler {
	return &Handler{service: service}
}

// Upload stores a multipart upload (POST /files).
func (h *Handler) Upload(c echo.Context) error {
	userID := auth.GetUserID(c)
	if userID == "" {
		return apperror.NewMissingContext()
	}

	// Parse the multipart form before binding so an oversized body is
	// reported as such rather than as a malformed form.
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperror.NewTooLarge(msgFileTooLarge)
		}
		return apperror.NewInvalidInput(msgUploadInvalid, map[string]string{"file": msgFileRequired})
	}

	var req UploadRequest
	if err := validate.Body(c, &req); err != nil {
		return err
	}

	src, err := fh.Open()
	if err != nil {
		return apperror.NewInvalidInput(msgUploadInvalid, map[string]string{"file": "file could not be read"})
	}
	defer src.Close()

	f, err := h.service.Upload(c.Request().Context(), UploadInput{
		OwnerID:     userID,
		FileName:    req.FileName,
		Description: req.Description,
		Folder:      c.QueryParam("folder"),
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Size:        fh.Size,
	}, src)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, f)
}

// List returns files (GET /files).
func (h *Handler) List(c echo.Context) error {
	var q ListQuery
	if err := validate.Query(c, &q); err != nil {
		return err
	}
	page, err := pagination.FromRequest(c, sortColumns)
	if err != nil {
		return err
	}

	rows, total, err := h.service.List(c.Request().Context(), Filter{OwnerID: q.OwnerID}, page)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.Respond(rows, total, page))
}

// Download returns an attachment link for one of the caller's files
// (GET /files/download/:id).
func (h *Handler) Download(c echo.Context) error {
	userID := auth.GetUserID(c)
	if userID == "" {
		return apperror.NewMissingContext()
	}

	var p DownloadParams
	if err := validate.Params(c, &p); err != nil {
		return err
	}

	link, err := h.service.DownloadLink(c.Request().Context(), p.ID, userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, link)
}

// RemoveUnsafe deletes file rows by ID (PATCH /files/unsafe). Admin only.
func (h *Handler) RemoveUnsafe(c echo.Context) error {
	var req UnsafeRequest
	if err := validate.Body(c, &req); err != nil {
		return err
	}

	if err := h.service.RemoveUnsafe(c.Request().Context(), req.IDs); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, auth.Message{Message: msgFilesRemoved})
}
