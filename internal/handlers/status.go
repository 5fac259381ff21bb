package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/flashpaperhq/flashpaper/internal/auth"
	"github.com/flashpaperhq/flashpaper/internal/status"
)

// StatusHandler serves the status record endpoints: single conditional
// reads, batched reads, and authenticated partial updates.
type StatusHandler struct {
	service *status.Service
	logger  *slog.Logger
}

// NewStatusHandler creates a status handler.
func NewStatusHandler(log *slog.Logger, service *status.Service) *StatusHandler {
	if log == nil {
		log = slog.Default()
	}
	return &StatusHandler{
		service: service,
		logger:  log.With(slog.String("handler", "status")),
	}
}

// Register mounts the status routes on the Echo instance.
func (h *StatusHandler) Register(e *echo.Echo) {
	e.GET("/.well-known/fmrl/user/:username", h.Get)
	e.GET("/.well-known/fmrl/users", h.BatchGet)
	e.PATCH("/.well-known/fmrl/user/:username", h.Update)
}

// Get godoc
// @Summary Get a user's status
// @Description Read one status record, honoring If-Modified-Since
// @Tags status
// @Param username path string true "Username"
// @Param If-Modified-Since header string false "HTTP-date"
// @Success 200 {object} status.Payload
// @Success 304 "Not Modified"
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /.well-known/fmrl/user/{username} [get]
func (h *StatusHandler) Get(c echo.Context) error {
	username := c.Param("username")
	snapshot, err := h.service.Get(c.Request().Context(), username, conditionalInstant(c))
	if err != nil {
		if errors.Is(err, status.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "no such user found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	c.Response().Header().Set("Last-Modified", status.FormatHTTPDate(snapshot.LastModified))
	if snapshot.Freshness == status.NotModified {
		return c.NoContent(http.StatusNotModified)
	}
	return c.JSON(http.StatusOK, snapshot.Payload)
}

// BatchGet godoc
// @Summary Get many users' statuses
// @Description Read a batch of status records in one round trip; per-member
// @Description outcomes are carried in the body, never as the response code
// @Tags status
// @Param user query []string true "Usernames (repeatable)"
// @Param If-Modified-Since header string false "HTTP-date applied to every member"
// @Success 200 {array} status.BatchEntry
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /.well-known/fmrl/users [get]
func (h *StatusHandler) BatchGet(c echo.Context) error {
	usernames := c.QueryParams()["user"]
	if len(usernames) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "at least one user parameter is required")
	}

	entries, latest, err := h.service.BatchGet(c.Request().Context(), usernames, conditionalInstant(c))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !latest.IsZero() {
		c.Response().Header().Set("Last-Modified", status.FormatHTTPDate(latest))
	}
	return c.JSON(http.StatusOK, entries)
}

// Update godoc
// @Summary Update own status
// @Description Apply a partial status mutation; one bad field rejects the whole update
// @Tags status
// @Param username path string true "Username"
// @Param payload body status.UpdateRequest true "Fields to set"
// @Success 200 "OK"
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /.well-known/fmrl/user/{username} [patch]
func (h *StatusHandler) Update(c echo.Context) error {
	principal, err := auth.UsernameFromContext(c)
	if err != nil {
		return err
	}

	// Unknown keys are ignored rather than rejected; only the avatar key
	// is explicitly refused (it has its own endpoint).
	var req status.UpdateRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed json body")
	}

	err = h.service.Update(c.Request().Context(), c.Param("username"), principal, req)
	switch {
	case err == nil:
		return c.NoContent(http.StatusOK)
	case errors.Is(err, status.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "no such user found")
	case errors.Is(err, status.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, "cannot update another user's status")
	case errors.Is(err, status.ErrFieldTooLong):
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, status.ErrEmptyUpdate),
		errors.Is(err, status.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

// conditionalInstant extracts If-Modified-Since; a malformed value is
// treated as absent, per RFC 9110.
func conditionalInstant(c echo.Context) *time.Time {
	raw := c.Request().Header.Get("If-Modified-Since")
	if raw == "" {
		return nil
	}
	t, err := status.ParseHTTPDate(raw)
	if err != nil {
		return nil
	}
	return &t
}
