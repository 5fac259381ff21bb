package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/flashpaperhq/flashpaper/internal/auth"
	"github.com/flashpaperhq/flashpaper/internal/follow"
	"github.com/flashpaperhq/flashpaper/internal/status"
)

// FollowHandler serves the follow-list endpoints.
type FollowHandler struct {
	service *follow.Service
	logger  *slog.Logger
}

// FollowChangeRequest is the body for PATCH following.
type FollowChangeRequest struct {
	Add    []string `json:"add,omitempty"`
	Remove []string `json:"remove,omitempty"`
}

// NewFollowHandler creates a follow handler.
func NewFollowHandler(log *slog.Logger, service *follow.Service) *FollowHandler {
	if log == nil {
		log = slog.Default()
	}
	return &FollowHandler{
		service: service,
		logger:  log.With(slog.String("handler", "follow")),
	}
}

// Register mounts the follow routes on the Echo instance.
func (h *FollowHandler) Register(e *echo.Echo) {
	e.GET("/.well-known/fmrl/user/:username/following", h.List)
	e.PATCH("/.well-known/fmrl/user/:username/following", h.Reconcile)
}

// List godoc
// @Summary List followed handles
// @Description List the owner's follow set in insertion order
// @Tags follow
// @Param username path string true "Username"
// @Success 200 {array} string
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /.well-known/fmrl/user/{username}/following [get]
func (h *FollowHandler) List(c echo.Context) error {
	principal, err := auth.UsernameFromContext(c)
	if err != nil {
		return err
	}
	handles, lastModified, err := h.service.List(c.Request().Context(), c.Param("username"), principal)
	if err != nil {
		return followError(err)
	}
	c.Response().Header().Set("Last-Modified", status.FormatHTTPDate(lastModified))
	return c.JSON(http.StatusOK, handles)
}

// Reconcile godoc
// @Summary Change followed handles
// @Description Apply an add/remove delta to the owner's follow set
// @Tags follow
// @Param username path string true "Username"
// @Param payload body FollowChangeRequest true "Handles to add and remove"
// @Success 200 "OK"
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /.well-known/fmrl/user/{username}/following [patch]
func (h *FollowHandler) Reconcile(c echo.Context) error {
	principal, err := auth.UsernameFromContext(c)
	if err != nil {
		return err
	}
	var req FollowChangeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed json body")
	}

	err = h.service.Reconcile(c.Request().Context(), c.Param("username"), principal, req.Add, req.Remove)
	if err != nil {
		return followError(err)
	}
	return c.NoContent(http.StatusOK)
}

func followError(err error) error {
	switch {
	case errors.Is(err, follow.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "no such user found")
	case errors.Is(err, follow.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, "cannot access another user's follows")
	case errors.Is(err, follow.ErrEmptyRequest), errors.Is(err, follow.ErrBadHandle):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
