package notes

import (
	"net/http"

	"github.com/google/uuid"
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
	api.GET("/visits/:id/notes", h.ListByVisit)
	api.GET("/notes/:id", h.GetByID)

	writeGroup := api.Group("", auth.RequireRole(auth.RoleDoctor, auth.RoleNurse, auth.RoleSocialWorker))
	writeGroup.POST("/visits/:id/notes", h.Create)
}

func (h *Handler) Create(c echo.Context) error {
	visitID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid visit id")
	}
	var n ClinicalNote
	if err := c.Bind(&n); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	n.VisitID = visitID
	ctx := c.Request().Context()
	if id := auth.UserIDFromContext(ctx); id != "" {
		n.AuthorID = &id
	}
	if name := auth.UserNameFromContext(ctx); name != "" {
		n.AuthorName = &name
	}
	if err := h.svc.Create(ctx, &n); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	return respond.Created(c, n)
}

func (h *Handler) GetByID(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid note id")
	}
	n, err := h.svc.GetByID(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "note not found")
	}
	return respond.OK(c, n)
}

func (h *Handler) ListByVisit(c echo.Context) error {
	visitID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid visit id")
	}
	p := pagination.FromContext(c)
	items, total, err := h.svc.ListByVisit(c.Request().Context(), visitID, p.Limit, p.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return respond.OK(c, pagination.NewResponse(items, total, p.Limit, p.Offset))
}
