package report

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carevault/carevault/internal/platform/auth"
	"github.com/carevault/carevault/internal/platform/blobstore"
	"github.com/carevault/carevault/pkg/pagination"
	"github.com/carevault/carevault/pkg/validate"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts upload/list on the patient group, patient-scoped
// listing and deletion on the admin group, and the shared read/comment routes
// on both.
func (h *Handler) RegisterRoutes(patients, admins *echo.Group) {
	patients.POST("/reports", h.Upload)
	patients.GET("/reports", h.ListMine)

	admins.GET("/patients/:id/reports", h.ListForPatient)
	admins.DELETE("/reports/:id", h.Delete)

	for _, g := range []*echo.Group{patients, admins} {
		g.GET("/reports/:id", h.Get)
		g.GET("/reports/:id/download", h.Download)
		g.POST("/reports/:id/comments", h.AddComment)
		g.GET("/reports/:id/comments", h.ListComments)
	}
}

func (h *Handler) Upload(c echo.Context) error {
	principal, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	file, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	src, err := file.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to open uploaded file")
	}
	defer src.Close()

	rep, err := h.svc.Upload(c.Request().Context(), principal.ID,
		c.FormValue("title"), file.Filename, file.Header.Get("Content-Type"),
		c.FormValue("comments"), src)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, rep)
}

func (h *Handler) ListMine(c echo.Context) error {
	principal, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	pg := pagination.FromContext(c)

	items, total, err := h.svc.ListForPatient(c.Request().Context(), principal, principal.ID, pg.Limit, pg.Offset)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListForPatient(c echo.Context) error {
	principal, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	pg := pagination.FromContext(c)

	items, total, err := h.svc.ListForPatient(c.Request().Context(), principal, patientID, pg.Limit, pg.Offset)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Get(c echo.Context) error {
	principal, id, err := principalAndID(c)
	if err != nil {
		return err
	}
	rep, err := h.svc.Get(c.Request().Context(), principal, id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, rep)
}

func (h *Handler) Download(c echo.Context) error {
	principal, id, err := principalAndID(c)
	if err != nil {
		return err
	}
	rc, rep, err := h.svc.Download(c.Request().Context(), principal, id)
	if err != nil {
		return mapError(err)
	}
	defer rc.Close()

	c.Response().Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="%s"`, rep.FileName))
	return c.Stream(http.StatusOK, rep.ContentType, rc)
}

func (h *Handler) Delete(c echo.Context) error {
	principal, id, err := principalAndID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), principal, id); err != nil {
		return mapError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

type commentRequest struct {
	Body string `json:"body"`
}

func (h *Handler) AddComment(c echo.Context) error {
	principal, id, err := principalAndID(c)
	if err != nil {
		return err
	}
	var req commentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	comment, err := h.svc.Comment(c.Request().Context(), principal, id, req.Body)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, comment)
}

func (h *Handler) ListComments(c echo.Context) error {
	principal, id, err := principalAndID(c)
	if err != nil {
		return err
	}
	comments, err := h.svc.ListComments(c.Request().Context(), principal, id)
	if err != nil {
		return mapError(err)
	}
	if comments == nil {
		comments = []*Comment{}
	}
	return c.JSON(http.StatusOK, comments)
}

func principalAndID(c echo.Context) (auth.Principal, uuid.UUID, error) {
	principal, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return auth.Principal{}, uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return auth.Principal{}, uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return principal, id, nil
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, blobstore.ErrBlobNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "report not found")
	case errors.Is(err, ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, blobstore.ErrFileTooLarge):
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, blobstore.ErrInvalidContentType):
		return echo.NewHTTPError(http.StatusUnsupportedMediaType, err.Error())
	default:
		var ve *validate.Error
		if errors.As(err, &ve) {
			return echo.NewHTTPError(http.StatusBadRequest, ve.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
}
