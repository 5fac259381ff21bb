package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/flashpaperhq/flashpaper/internal/auth"
	"github.com/flashpaperhq/flashpaper/internal/avatar"
)

// AvatarHandler serves avatar upload and retrieval.
type AvatarHandler struct {
	service *avatar.Service
	logger  *slog.Logger
}

// NewAvatarHandler creates an avatar handler.
func NewAvatarHandler(log *slog.Logger, service *avatar.Service) *AvatarHandler {
	if log == nil {
		log = slog.Default()
	}
	return &AvatarHandler{
		service: service,
		logger:  log.With(slog.String("handler", "avatar")),
	}
}

// Register mounts the avatar routes on the Echo instance.
func (h *AvatarHandler) Register(e *echo.Echo) {
	e.PUT("/.well-known/fmrl/user/:username/avatar", h.Put)
	e.GET("/.well-known/fmrl/avatars/:username", h.Get)
}

// Put godoc
// @Summary Upload own avatar
// @Description Replace the avatar with a square JPEG or PNG
// @Tags avatar
// @Param username path string true "Username"
// @Success 200 "OK"
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 413 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /.well-known/fmrl/user/{username}/avatar [put]
func (h *AvatarHandler) Put(c echo.Context) error {
	principal, err := auth.UsernameFromContext(c)
	if err != nil {
		return err
	}

	err = h.service.Set(c.Request().Context(), c.Param("username"), principal, c.Request().Body)
	switch {
	case err == nil:
		return c.NoContent(http.StatusOK)
	case errors.Is(err, avatar.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "no such user found")
	case errors.Is(err, avatar.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, "cannot update another user's avatar")
	case errors.Is(err, avatar.ErrTooLarge):
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, avatar.ErrBadImage):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

// Get godoc
// @Summary Get a user's avatar
// @Description Serve the stored avatar image
// @Tags avatar
// @Param username path string true "Username"
// @Success 200 {file} binary
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /.well-known/fmrl/avatars/{username} [get]
func (h *AvatarHandler) Get(c echo.Context) error {
	rc, contentType, err := h.service.Open(c.Request().Context(), c.Param("username"))
	switch {
	case err == nil:
	case errors.Is(err, avatar.ErrNotFound), errors.Is(err, avatar.ErrNoAvatar):
		return echo.NewHTTPError(http.StatusNotFound, "no avatar found")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	defer rc.Close()
	return c.Stream(http.StatusOK, contentType, rc)
}
