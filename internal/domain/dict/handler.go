package dict

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/omr/omr/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/dicts", h.ListSets)
	api.GET("/dicts/:set_code/items", h.SearchItems)
}

func (h *Handler) ListSets(c echo.Context) error {
	sets, err := h.svc.Sets(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"sets": sets})
}

func (h *Handler) SearchItems(c echo.Context) error {
	p := pagination.FromContext(c)
	items, total, err := h.svc.Search(c.Request().Context(),
		c.Param("set_code"), c.QueryParam("q"), p.Limit, p.Offset)
	if err != nil {
		return err
	}
	if items == nil {
		items = []*Item{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, p.Limit, p.Offset))
}
