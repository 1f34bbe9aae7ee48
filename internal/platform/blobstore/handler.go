package blobstore

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
)

// maxUploadSize caps a single staged recording (100 MB).
const maxUploadSize = 100 * 1024 * 1024

// Handler exposes the in-memory store's grant redemption endpoints. Only
// mounted in development; against a remote storage service, clients upload
// directly to the signed URLs the service issued.
type Handler struct {
	store *InMemoryStore
}

func NewHandler(store *InMemoryStore) *Handler {
	return &Handler{store: store}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.PUT("/storage/upload/:token", h.handleUpload)
	g.GET("/storage/object/:token", h.handleDownload)
}

func (h *Handler) handleUpload(c echo.Context) error {
	token := c.Param("token")

	data, err := io.ReadAll(io.LimitReader(c.Request().Body, maxUploadSize+1))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to read upload body"})
	}
	if len(data) > maxUploadSize {
		return c.JSON(http.StatusRequestEntityTooLarge, map[string]string{"error": "upload exceeds maximum allowed size"})
	}

	path, err := h.store.CompleteUpload(token, c.Request().Header.Get("Content-Type"), data)
	if err != nil {
		switch {
		case errors.Is(err, ErrGrantNotFound):
			return c.JSON(http.StatusForbidden, map[string]string{"error": err.Error()})
		case errors.Is(err, ErrObjectExists):
			return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
		default:
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
	}

	return c.JSON(http.StatusOK, map[string]string{"path": path})
}

func (h *Handler) handleDownload(c echo.Context) error {
	token := c.Param("token")

	data, contentType, err := h.store.Open(token)
	if err != nil {
		if errors.Is(err, ErrGrantNotFound) || errors.Is(err, ErrObjectNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return c.Blob(http.StatusOK, contentType, data)
}
