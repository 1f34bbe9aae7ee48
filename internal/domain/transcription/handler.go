package transcription

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/telecare/telecare/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole("admin", "physician", "nurse"))
	g.POST("/transcribe/cache", h.StageUpload)
	g.POST("/transcribe/enqueue", h.Enqueue)
	g.POST("/transcribe/job/process", h.ProcessJob)
	g.POST("/transcribe", h.Process)
}

func httpError(err error) error {
	var perr *Error
	if errors.As(err, &perr) {
		return echo.NewHTTPError(perr.HTTPStatus(), perr.Msg)
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func (h *Handler) StageUpload(c echo.Context) error {
	var in StageInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ident := auth.IdentityFromContext(c.Request().Context())
	entry, grant, err := h.svc.StageUpload(c.Request().Context(), ident, in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"cache":     entry,
		"path":      grant.Path,
		"signedUrl": grant.SignedURL,
		"token":     grant.Token,
		"bucket":    grant.Bucket,
	})
}

func (h *Handler) Enqueue(c echo.Context) error {
	var body struct {
		VisitID uuid.UUID  `json:"visit_id"`
		CacheID *uuid.UUID `json:"cache_id,omitempty"`
		Path    string     `json:"path,omitempty"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ident := auth.IdentityFromContext(c.Request().Context())
	job, err := h.svc.Enqueue(c.Request().Context(), ident, body.VisitID, body.CacheID, body.Path)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"job": job})
}

func (h *Handler) ProcessJob(c echo.Context) error {
	var body struct {
		JobID    uuid.UUID `json:"job_id"`
		Simulate bool      `json:"simulate,omitempty"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if body.JobID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "job_id is required")
	}

	ident := auth.IdentityFromContext(c.Request().Context())
	result, err := h.svc.ProcessJob(c.Request().Context(), ident, body.JobID, body.Simulate)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"result": result})
}

func (h *Handler) Process(c echo.Context) error {
	var body struct {
		Path     string     `json:"path"`
		VisitID  *uuid.UUID `json:"visit_id,omitempty"`
		Simulate bool       `json:"simulate,omitempty"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ident := auth.IdentityFromContext(c.Request().Context())
	result, err := h.svc.Process(c.Request().Context(), ident, body.Path, body.VisitID, body.Simulate)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, result)
}
