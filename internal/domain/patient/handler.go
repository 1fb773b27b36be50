package patient

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carevault/carevault/internal/platform/auth"
	"github.com/carevault/carevault/internal/platform/blobstore"
	"github.com/carevault/carevault/pkg/pagination"
	"github.com/carevault/carevault/pkg/validate"
)

type Handler struct {
	svc   *Service
	blobs blobstore.Store
}

func NewHandler(svc *Service, blobs blobstore.Store) *Handler {
	return &Handler{svc: svc, blobs: blobs}
}

// RegisterRoutes mounts signup/login on the public group, self-service routes
// on the patient group, and management routes on the admin group.
func (h *Handler) RegisterRoutes(public, patients, admins *echo.Group) {
	public.POST("/patients/register", h.Register)
	public.POST("/patients/login", h.Login)

	patients.GET("/patients/me", h.Me)
	patients.PUT("/patients/me", h.UpdateProfile)
	patients.PUT("/patients/me/profile-picture", h.UploadProfilePicture)
	patients.GET("/patients/me/profile-picture", h.DownloadProfilePicture)
	patients.PUT("/patients/me/checkup-date", h.SetCheckupDate)

	admins.GET("/patients", h.List)
	admins.GET("/patients/stats", h.Stats)
	admins.GET("/patients/:id", h.Get)
	admins.PUT("/patients/:id/status", h.UpdateStatus)
	admins.DELETE("/patients/:id", h.Delete)
}

type registerRequest struct {
	RegisterInput
	DateOfBirth string `json:"date_of_birth"`
}

type authResponse struct {
	Token   string   `json:"token"`
	Patient *Patient `json:"patient"`
}

func (h *Handler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.DateOfBirth != "" {
		dob, err := parseDate(req.DateOfBirth)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid date_of_birth")
		}
		req.RegisterInput.DateOfBirth = &dob
	}

	p, token, err := h.svc.Register(c.Request().Context(), req.RegisterInput)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, authResponse{Token: token, Patient: p})
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
	p, token, err := h.svc.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, authResponse{Token: token, Patient: p})
}

func (h *Handler) Me(c echo.Context) error {
	principal, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	p, err := h.svc.Get(c.Request().Context(), principal.ID)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, p)
}

type updateProfileRequest struct {
	UpdateProfileInput
	DateOfBirth *string `json:"date_of_birth"`
}

func (h *Handler) UpdateProfile(c echo.Context) error {
	principal, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var req updateProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.DateOfBirth != nil {
		dob, err := parseDate(*req.DateOfBirth)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid date_of_birth")
		}
		req.UpdateProfileInput.DateOfBirth = &dob
	}

	p, err := h.svc.UpdateProfile(c.Request().Context(), principal.ID, req.UpdateProfileInput)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) UploadProfilePicture(c echo.Context) error {
	principal, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	file, err := c.FormFile("picture")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "picture file is required")
	}
	src, err := file.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to open uploaded file")
	}
	defer src.Close()

	key := blobstore.NewKey(file.Filename)
	contentType := file.Header.Get("Content-Type")
	if _, err := h.blobs.Save(c.Request().Context(), key, contentType, src); err != nil {
		return mapBlobError(err)
	}

	p, err := h.svc.SetProfilePicture(c.Request().Context(), principal.ID, key)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) DownloadProfilePicture(c echo.Context) error {
	principal, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	p, err := h.svc.Get(c.Request().Context(), principal.ID)
	if err != nil {
		return mapError(err)
	}
	if p.ProfilePicture == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no profile picture set")
	}

	rc, err := h.blobs.Open(c.Request().Context(), *p.ProfilePicture)
	if err != nil {
		return mapBlobError(err)
	}
	defer rc.Close()

	return c.Stream(http.StatusOK, "application/octet-stream", rc)
}

type checkupRequest struct {
	Date          string  `json:"date"`
	ReminderEmail *string `json:"reminder_email"`
}

func (h *Handler) SetCheckupDate(c echo.Context) error {
	principal, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var req checkupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
	}

	p, err := h.svc.SetCheckupDate(c.Request().Context(), principal.ID, date, req.ReminderEmail)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, p)
}

// -- Admin handlers --

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	status := Status(c.QueryParam("status"))

	items, total, err := h.svc.List(c.Request().Context(), status, pg.Limit, pg.Offset)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Stats(c echo.Context) error {
	stats, err := h.svc.Stats(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, stats)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, p)
}

type updateStatusRequest struct {
	Status Status `json:"status"`
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req updateStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := h.svc.UpdateStatus(c.Request().Context(), id, req.Status)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return mapError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	case errors.Is(err, ErrEmailTaken):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrDeactivated):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	default:
		var ve *validate.Error
		if errors.As(err, &ve) {
			return echo.NewHTTPError(http.StatusBadRequest, ve.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
}

func mapBlobError(err error) error {
	switch {
	case errors.Is(err, blobstore.ErrBlobNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "file not found")
	case errors.Is(err, blobstore.ErrFileTooLarge):
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, blobstore.ErrInvalidContentType):
		return echo.NewHTTPError(http.StatusUnsupportedMediaType, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
}
