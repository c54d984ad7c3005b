package sync

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/polmed/mobiclinic/internal/platform/auth"
	"github.com/polmed/mobiclinic/pkg/pagination"
	"github.com/polmed/mobiclinic/pkg/respond"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/sync/pending", h.SubmitPending)

	adminGroup := api.Group("", auth.RequireRole(auth.RoleAdministrator))
	adminGroup.GET("/sync/log", h.Log)
}

// SubmitPending handles POST /api/sync/pending.
func (h *Handler) SubmitPending(c echo.Context) error {
	var req PendingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len(req.Records) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "records is required")
	}
	results := h.svc.Apply(c.Request().Context(), req.DeviceID, req.Records)
	return respond.OK(c, map[string]interface{}{"results": results})
}

// Log handles GET /api/sync/log.
func (h *Handler) Log(c echo.Context) error {
	p := pagination.FromContext(c)
	items, total, err := h.svc.ListRecent(c.Request().Context(), p.Limit, p.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return respond.OK(c, pagination.NewResponse(items, total, p.Limit, p.Offset))
}
