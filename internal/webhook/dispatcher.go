package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/flashpaperhq/flashpaper/internal/config"
	"github.com/flashpaperhq/flashpaper/internal/status"
	"github.com/flashpaperhq/flashpaper/internal/store"
)

// DispatchStore is the persistence surface deliveries need.
type DispatchStore interface {
	ListWebhooks(ctx context.Context, userID uuid.UUID) ([]store.Webhook, error)
	GetStatus(ctx context.Context, userID uuid.UUID) (store.StatusRecord, store.AvatarRef, error)
	RecordWebhookResult(ctx context.Context, id int64, status int32, at time.Time) error
}

// Dispatcher fans a committed status change out to the owner's registered
// targets. Deliveries run off the request path; the caller never waits on
// remote endpoints.
type Dispatcher struct {
	store   DispatchStore
	client  *http.Client
	logger  *slog.Logger
	enabled bool
	timeout time.Duration
}

func NewDispatcher(log *slog.Logger, st DispatchStore, cfg config.WebhooksConfig) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	return &Dispatcher{
		store:   st,
		client:  &http.Client{Timeout: timeout},
		logger:  log.With(slog.String("service", "webhook_dispatch")),
		enabled: cfg.Enabled,
		timeout: timeout,
	}
}

// StatusChanged schedules deliveries for user's registered webhooks.
func (d *Dispatcher) StatusChanged(user store.User) {
	if !d.enabled {
		return
	}
	go d.deliverAll(user)
}

func (d *Dispatcher) deliverAll(user store.User) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout+5*time.Second)
	defer cancel()

	hooks, err := d.store.ListWebhooks(ctx, user.ID)
	if err != nil {
		d.logger.Error("listing webhooks for delivery failed",
			"username", user.Username, "error", err)
		return
	}
	if len(hooks) == 0 {
		return
	}

	var body []byte
	for _, h := range hooks {
		if h.Method == http.MethodPost && body == nil {
			record, avatar, err := d.store.GetStatus(ctx, user.ID)
			if err != nil {
				d.logger.Error("loading status for delivery failed",
					"username", user.Username, "error", err)
				return
			}
			body, err = json.Marshal(status.BuildPayload(record, avatar))
			if err != nil {
				d.logger.Error("encoding status for delivery failed",
					"username", user.Username, "error", err)
				return
			}
		}
	}

	for _, h := range hooks {
		d.deliver(ctx, h, body)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, hook store.Webhook, body []byte) {
	var payload *bytes.Reader
	if hook.Method == http.MethodPost {
		payload = bytes.NewReader(body)
	} else {
		payload = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, hook.Method, hook.URL, payload)
	if err != nil {
		d.logger.Error("building webhook request failed",
			"webhook_id", hook.ID, "url", hook.URL, "error", err)
		return
	}
	if hook.Method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}

	// A transport failure records status 0 so the owner can see that the
	// endpoint was tried and never answered.
	var outcome int32
	resp, err := d.client.Do(req)
	if err != nil {
		d.logger.Warn("webhook delivery failed",
			"webhook_id", hook.ID, "url", hook.URL, "error", err)
	} else {
		resp.Body.Close()
		outcome = int32(resp.StatusCode)
	}

	if err := d.store.RecordWebhookResult(ctx, hook.ID, outcome, time.Now().UTC()); err != nil {
		d.logger.Error("recording webhook outcome failed",
			"webhook_id", hook.ID, "error", err)
	}
}
