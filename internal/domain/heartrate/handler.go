package heartrate

import (
	"errors"
	"net/http"
	"time"

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
	patients.POST("/heart-rates", h.Add)
	patients.GET("/heart-rates", h.MyHistory)

	admins.GET("/patients/:id/heart-rates", h.PatientHistory)
}

type addRequest struct {
	BPM        int    `json:"bpm"`
	RecordedAt string `json:"recorded_at"`
}

func (h *Handler) Add(c echo.Context) error {
	principal, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var req addRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var recordedAt time.Time
	if req.RecordedAt != "" {
		var err error
		recordedAt, err = time.Parse(time.RFC3339, req.RecordedAt)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid recorded_at, expected RFC 3339")
		}
	}

	r, err := h.svc.Add(c.Request().Context(), principal.ID, req.BPM, recordedAt)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, r)
}

func (h *Handler) MyHistory(c echo.Context) error {
	principal, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	return h.history(c, principal, principal.ID)
}

func (h *Handler) PatientHistory(c echo.Context) error {
	principal, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return h.history(c, principal, patientID)
}

func (h *Handler) history(c echo.Context, principal auth.Principal, patientID uuid.UUID) error {
	pg := pagination.FromContext(c)

	var from, to *time.Time
	if v := c.QueryParam("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid from, expected RFC 3339")
		}
		from = &t
	}
	if v := c.QueryParam("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid to, expected RFC 3339")
		}
		to = &t
	}

	items, total, err := h.svc.History(c.Request().Context(), principal, patientID, from, to, pg.Limit, pg.Offset)
	if err != nil {
		return mapError(err)
	}
	if items == nil {
		items = []*Reading{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	default:
		var ve *validate.Error
		if errors.As(err, &ve) {
			return echo.NewHTTPError(http.StatusBadRequest, ve.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
}
