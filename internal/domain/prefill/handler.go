package prefill

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

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
	api.GET("/prefill", h.Get)
}

func (h *Handler) Get(c echo.Context) error {
	sess := auth.SessionFromContext(c.Request().Context())
	if sess == nil {
		return apperr.ErrAuthExpired
	}
	patientNo := c.QueryParam("patient_no")
	if patientNo == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "patient_no is required")
	}
	snap, err := h.svc.Build(c.Request().Context(), patientNo, sess)
	if err != nil {
		switch {
		case errors.Is(err, ErrVisitUnknown):
			return apperr.ErrNotFound
		case errors.Is(err, ErrAccessDenied):
			return apperr.ErrForbidden
		case errors.Is(err, ErrExternal):
			return apperr.ErrExternal
		}
		return err
	}
	return c.JSON(http.StatusOK, snap)
}
