package admin

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

// RegisterRoutes mounts signup/login on the public group and account
// management on the admin group.
func (h *Handler) RegisterRoutes(public, admins *echo.Group) {
	public.POST("/admins/register", h.Register)
	public.POST("/admins/login", h.Login)

	admins.GET("/admins/me", h.Me)
	admins.GET("/admins", h.List)
	admins.DELETE("/admins/:id", h.Delete)
	admins.GET("/dashboard", h.Dashboard)
}

type authResponse struct {
	Token string `json:"token"`
	Admin *Admin `json:"admin"`
}

func (h *Handler) Register(c echo.Context) error {
	var in RegisterInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, token, err := h.svc.Register(c.Request().Context(), in)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, authResponse{Token: token, Admin: a})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, token, err := h.svc.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, authResponse{Token: token, Admin: a})
}

func (h *Handler) Me(c echo.Context) error {
	principal, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	a, err := h.svc.Get(c.Request().Context(), principal.ID)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	// An admin cannot delete their own account while logged into it.
	if principal, ok := auth.PrincipalFromContext(c.Request().Context()); ok && principal.ID == id {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot delete own account")
	}

	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return mapError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Dashboard(c echo.Context) error {
	d, err := h.svc.DashboardStats(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
	return c.JSON(http.StatusOK, d)
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "admin not found")
	case errors.Is(err, ErrEmailTaken):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	default:
		var ve *validate.Error
		if errors.As(err, &ve) {
			return echo.NewHTTPError(http.StatusBadRequest, ve.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
}
