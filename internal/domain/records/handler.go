package records

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/omr/omr/internal/domain/record"
	"github.com/omr/omr/internal/platform/apperr"
	"github.com/omr/omr/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/records/:patient_no", h.Get)
	api.PUT("/records/:patient_no/draft", h.SaveDraft)
	api.POST("/records/:patient_no/submit", h.Submit)
	api.GET("/records/:patient_no/print.html", h.Print)
	api.DELETE("/admin/records/:patient_no", h.Reset, auth.RequireRoles("admin"))
}

func (h *Handler) Get(c echo.Context) error {
	sess := auth.SessionFromContext(c.Request().Context())
	if sess == nil {
		return apperr.ErrAuthExpired
	}
	resp, err := h.svc.Get(c.Request().Context(), c.Param("patient_no"), sess)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) SaveDraft(c echo.Context) error {
	return h.save(c, false)
}

func (h *Handler) Submit(c echo.Context) error {
	return h.save(c, true)
}

func (h *Handler) save(c echo.Context, submit bool) error {
	sess := auth.SessionFromContext(c.Request().Context())
	if sess == nil {
		return apperr.ErrAuthExpired
	}
	var req record.SaveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	var (
		resp *record.Response
		err  error
	)
	if submit {
		resp, err = h.svc.Submit(c.Request().Context(), c.Param("patient_no"), sess, req)
	} else {
		resp, err = h.svc.SaveDraft(c.Request().Context(), c.Param("patient_no"), sess, req)
	}
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) Print(c echo.Context) error {
	sess := auth.SessionFromContext(c.Request().Context())
	if sess == nil {
		return apperr.ErrAuthExpired
	}
	html, err := h.svc.RenderPrint(c.Request().Context(), c.Param("patient_no"), sess)
	if err != nil {
		return mapError(err)
	}
	return c.HTML(http.StatusOK, html)
}

func (h *Handler) Reset(c echo.Context) error {
	sess := auth.SessionFromContext(c.Request().Context())
	if sess == nil {
		return apperr.ErrAuthExpired
	}
	if err := h.svc.Reset(c.Request().Context(), c.Param("patient_no"), sess); err != nil {
		return mapError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// mapError translates service failures onto the API envelope.
func mapError(err error) error {
	var conflict *record.ConflictError
	if errors.As(err, &conflict) {
		return apperr.VersionConflict(conflict.CurrentVersion)
	}
	var invalid *record.ValidationError
	if errors.As(err, &invalid) {
		return apperr.ValidationFailed(invalid.Errors)
	}
	switch {
	case errors.Is(err, ErrRecordNotFound), errors.Is(err, ErrVisitUnknown):
		return apperr.ErrNotFound
	case errors.Is(err, ErrAccessDenied):
		return apperr.ErrForbidden
	case errors.Is(err, ErrExternal):
		return apperr.ErrExternal
	case errors.Is(err, ErrNotSubmitted):
		return apperr.New(http.StatusConflict, "not_submitted", "only submitted records can be printed")
	}
	return err
}
