package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/flashpaperhq/flashpaper/internal/auth"
	"github.com/flashpaperhq/flashpaper/internal/store"
	"github.com/flashpaperhq/flashpaper/internal/webhook"
)

// WebhookHandler serves the webhook registry endpoints.
type WebhookHandler struct {
	service *webhook.Service
	logger  *slog.Logger
}

// WebhookCreateRequest is the body for POST webhooks.
type WebhookCreateRequest struct {
	URL    string `json:"url"`
	Method string `json:"method"`
}

// WebhookView is the wire form of one registry entry.
type WebhookView struct {
	ID         int64  `json:"id"`
	URL        string `json:"url"`
	Method     string `json:"method"`
	LastStatus *int32 `json:"last_status"`
	LastCalled string `json:"last_called,omitempty"`
	CreatedAt  string `json:"created_at"`
}

// NewWebhookHandler creates a webhook handler.
func NewWebhookHandler(log *slog.Logger, service *webhook.Service) *WebhookHandler {
	if log == nil {
		log = slog.Default()
	}
	return &WebhookHandler{
		service: service,
		logger:  log.With(slog.String("handler", "webhook")),
	}
}

// Register mounts the webhook routes on the Echo instance.
func (h *WebhookHandler) Register(e *echo.Echo) {
	e.GET("/.well-known/fmrl/user/:username/webhooks", h.List)
	e.POST("/.well-known/fmrl/user/:username/webhooks", h.Create)
	e.DELETE("/.well-known/fmrl/user/:username/webhooks/:id", h.Delete)
}

// List godoc
// @Summary List webhooks
// @Description List the owner's registered webhooks
// @Tags webhooks
// @Param username path string true "Username"
// @Success 200 {array} WebhookView
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /.well-known/fmrl/user/{username}/webhooks [get]
func (h *WebhookHandler) List(c echo.Context) error {
	principal, err := auth.UsernameFromContext(c)
	if err != nil {
		return err
	}
	hooks, err := h.service.List(c.Request().Context(), c.Param("username"), principal)
	if err != nil {
		return webhookError(err)
	}
	views := make([]WebhookView, 0, len(hooks))
	for _, hook := range hooks {
		views = append(views, webhookView(hook))
	}
	return c.JSON(http.StatusOK, views)
}

// Create godoc
// @Summary Register a webhook
// @Description Register a notification target; re-registering an existing URL returns the existing entry
// @Tags webhooks
// @Param username path string true "Username"
// @Param payload body WebhookCreateRequest true "Target URL and method"
// @Success 201 {object} WebhookView
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /.well-known/fmrl/user/{username}/webhooks [post]
func (h *WebhookHandler) Create(c echo.Context) error {
	principal, err := auth.UsernameFromContext(c)
	if err != nil {
		return err
	}
	var req WebhookCreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed json body")
	}
	if req.Method == "" {
		req.Method = http.MethodGet
	}

	hook, err := h.service.Add(c.Request().Context(), c.Param("username"), principal, req.URL, req.Method)
	if err != nil {
		return webhookError(err)
	}
	return c.JSON(http.StatusCreated, webhookView(hook))
}

// Delete godoc
// @Summary Remove a webhook
// @Description Delete one registry entry by identifier
// @Tags webhooks
// @Param username path string true "Username"
// @Param id path int true "Webhook ID"
// @Success 204 "No Content"
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /.well-known/fmrl/user/{username}/webhooks/{id} [delete]
func (h *WebhookHandler) Delete(c echo.Context) error {
	principal, err := auth.UsernameFromContext(c)
	if err != nil {
		return err
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "webhook id must be an integer")
	}
	if err := h.service.Delete(c.Request().Context(), c.Param("username"), principal, id); err != nil {
		return webhookError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func webhookView(hook store.Webhook) WebhookView {
	view := WebhookView{
		ID:         hook.ID,
		URL:        hook.URL,
		Method:     hook.Method,
		LastStatus: hook.LastStatus,
		CreatedAt:  hook.CreatedAt.UTC().Format(time.RFC3339),
	}
	if hook.LastCalled != nil {
		view.LastCalled = hook.LastCalled.UTC().Format(time.RFC3339)
	}
	return view
}

func webhookError(err error) error {
	switch {
	case errors.Is(err, webhook.ErrDisabled):
		return echo.NewHTTPError(http.StatusForbidden, "webhooks are disabled on this server")
	case errors.Is(err, webhook.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, webhook.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, "cannot access another user's webhooks")
	case errors.Is(err, webhook.ErrValidation), errors.Is(err, webhook.ErrLimitReached):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
