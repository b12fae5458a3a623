package reminder

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

// Handler exposes the operational reminder endpoints. These sit behind the
// internal API token, not the messaging channel.
type Handler struct {
	sched            *Scheduler
	repo             Repo
	defaultLookahead time.Duration
}

func NewHandler(sched *Scheduler, repo Repo, defaultLookahead time.Duration) *Handler {
	return &Handler{sched: sched, repo: repo, defaultLookahead: defaultLookahead}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/reminders/run", h.RunScan)
	api.POST("/reminders/dispatch", h.Dispatch)
	api.GET("/notifications", h.ListNotifications)
}

func (h *Handler) RunScan(c echo.Context) error {
	lookahead := h.defaultLookahead
	if v := c.QueryParam("lookahead_days"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid lookahead_days")
		}
		lookahead = time.Duration(days) * 24 * time.Hour
	}

	sum, err := h.sched.Run(c.Request().Context(), lookahead)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, sum)
}

func (h *Handler) Dispatch(c echo.Context) error {
	sent, failed, err := h.sched.Dispatch(c.Request().Context(), 500)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]int{"sent": sent, "failed": failed})
}

func (h *Handler) ListNotifications(c echo.Context) error {
	status := Status(c.QueryParam("status"))
	if status == "" {
		status = StatusPending
	}
	switch status {
	case StatusPending, StatusSent, StatusCancelled, StatusFailed:
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	limit := 100
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 1000 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		limit = n
	}

	items, err := h.repo.ListByStatus(c.Request().Context(), status, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if items == nil {
		items = []PendingNotification{}
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items, "count": len(items)})
}
