package reminder

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// Handler exposes the reminder cycle over HTTP. The run endpoint is meant for
// an external cron, authenticated with a shared scheduler secret rather than
// a user token.
type Handler struct {
	sched  *Scheduler
	store  PatientStore
	secret string
}

func NewHandler(sched *Scheduler, store PatientStore, secret string) *Handler {
	return &Handler{sched: sched, store: store, secret: secret}
}

// RegisterRoutes mounts the trigger on the public group (it carries its own
// gate) and the preview on the admin group.
func (h *Handler) RegisterRoutes(public, admins *echo.Group) {
	public.POST("/reminders/run", h.Run, h.requireSchedulerSecret)
	admins.GET("/reminders/due", h.ListDue)
}

// requireSchedulerSecret admits only callers presenting the scheduler secret
// as a bearer credential.
func (h *Handler) requireSchedulerSecret(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
		}
		if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(h.secret)) != 1 {
			return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
		}
		return next(c)
	}
}

func (h *Handler) Run(c echo.Context) error {
	result, err := h.sched.RunCycle(c.Request().Context())
	if err != nil {
		if errors.Is(err, ErrRunInProgress) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
	return c.JSON(http.StatusOK, result)
}

// ListDue shows which patients the next cycle would notify, using the same
// cutoff the scheduler itself would apply.
func (h *Handler) ListDue(c echo.Context) error {
	due, err := h.store.ListReminderDue(c.Request().Context(), h.sched.Cutoff())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	type entry struct {
		ID              string `json:"id"`
		Name            string `json:"name"`
		Email           string `json:"email"`
		LastCheckupDate string `json:"last_checkup_date"`
	}
	items := make([]entry, 0, len(due))
	for _, p := range due {
		items = append(items, entry{
			ID:              p.ID.String(),
			Name:            p.FirstName + " " + p.LastName,
			Email:           p.NotifyAddress(),
			LastCheckupDate: p.LastCheckupDate.Format("2006-01-02"),
		})
	}
	return c.JSON(http.StatusOK, items)
}
