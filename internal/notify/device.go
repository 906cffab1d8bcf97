package notify

import (
	"context"
	"errors"
	"net/http"

	"github.com/hamed0406/uptimewatch/internal/domain"
)

// Device posts a flat JSON document to a phone automation webhook.
type Device struct {
	Webhook string
	Client  *http.Client
}

func NewDevice(cfg domain.IPhoneConfig, client *http.Client) *Device {
	if !cfg.Configured() {
		return nil
	}
	return &Device{Webhook: cfg.WebhookURL, Client: client}
}

func (d *Device) Channel() domain.Channel { return domain.ChannelIPhone }

type devicePayload struct {
	Title          string        `json:"title"`
	Body           string        `json:"body"`
	Service        string        `json:"service"`
	Status         domain.Status `json:"status"`
	PreviousStatus domain.Status `json:"previousStatus"`
	URL            string        `json:"url"`
	StatusCode     *int          `json:"statusCode"`
	ResponseTime   int64         `json:"responseTime"`
	Error          string        `json:"error,omitempty"`
	Timestamp      string        `json:"timestamp"`
}

func (d *Device) Send(ctx context.Context, a Alert) error {
	if d == nil || d.Webhook == "" {
		return errors.New("iphone webhook disabled")
	}
	return postJSON(ctx, d.Client, d.Webhook, devicePayload{
		Title:          a.Title(),
		Body:           a.Short(),
		Service:        a.Service,
		Status:         a.Status,
		PreviousStatus: a.Previous,
		URL:            a.URL,
		StatusCode:     a.StatusCode,
		ResponseTime:   a.ResponseTimeMs,
		Error:          a.Error,
		Timestamp:      a.Timestamp(),
	})
}
