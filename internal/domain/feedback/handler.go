package feedback

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carevault/carevault/internal/platform/auth"
	"github.com/carevault/carevault/pkg/pagination"
	"github.com/carevault/carevault/pkg/validate"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(patients, admins *echo.Group) {
	patients.POST("/feedback", h.Submit)
	patients.GET("/feedback", h.ListMine)

	admins.GET("/feedback", h.ListAll)
	admins.POST("/feedback/:id/reply", h.Reply)
}

type submitRequest struct {
	Subject string `json:"subject"`
	Message string `json:"message"`
}

func (h *Handler) Submit(c echo.Context) error {
	principal, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var req submitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	f, err := h.svc.Submit(c.Request().Context(), principal.ID, req.Subject, req.Message)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, f)
}

func (h *Handler) ListMine(c echo.Context) error {
	principal, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	pg := pagination.FromContext(c)

	items, total, err := h.svc.ListForPatient(c.Request().Context(), principal.ID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListAll(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListAll(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

type replyRequest struct {
	Reply string `json:"reply"`
}

func (h *Handler) Reply(c echo.Context) error {
	principal, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var req replyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	f, err := h.svc.Reply(c.Request().Context(), id, req.Reply, principal.ID)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, f)
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrAlreadyReplied):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		var ve *validate.Error
		if errors.As(err, &ve) {
			return echo.NewHTTPError(http.StatusBadRequest, ve.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
}
