package terminology

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/polmed/mobiclinic/pkg/respond"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/icd10/search", h.Search)
	api.GET("/icd10/:code", h.Lookup)
}

// Search handles GET /api/icd10/search?q=...&limit=...
func (h *Handler) Search(c echo.Context) error {
	query := c.QueryParam("q")
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query parameter 'q' is required")
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	results, err := h.svc.Search(c.Request().Context(), query, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return respond.OK(c, results)
}

// Lookup handles GET /api/icd10/:code
func (h *Handler) Lookup(c echo.Context) error {
	code, err := h.svc.Lookup(c.Request().Context(), c.Param("code"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "code not found")
	}
	return respond.OK(c, code)
}
