package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hamed0406/uptimewatch/internal/domain"
)

// statusRow mirrors one entry of GET /api/status.
type statusRow struct {
	Name           string        `json:"name"`
	URL            string        `json:"url"`
	Status         domain.Status `json:"status"`
	StatusCode     *int          `json:"statusCode"`
	ResponseTimeMs *int64        `json:"responseTime"`
	Timestamp      *time.Time    `json:"timestamp"`
	Error          string        `json:"error,omitempty"`
	Uptime         string        `json:"uptime"`
}

type historyDoc struct {
	Name    string                `json:"name"`
	Uptime  string                `json:"uptime"`
	History []domain.HistoryEntry `json:"history"`
}

type checkDoc struct {
	Checked int                  `json:"checked"`
	Results []domain.CheckResult `json:"results"`
}

type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) Status(ctx context.Context) ([]statusRow, error) {
	var out []statusRow
	return out, c.do(ctx, http.MethodGet, "/api/status", nil, http.StatusOK, &out)
}

func (c *Client) CheckNow(ctx context.Context) (checkDoc, error) {
	var out checkDoc
	return out, c.do(ctx, http.MethodPost, "/api/check", nil, http.StatusOK, &out)
}

func (c *Client) AddService(ctx context.Context, spec domain.ServiceSpec) (domain.CheckResult, error) {
	var out domain.CheckResult
	return out, c.do(ctx, http.MethodPost, "/api/services", spec, http.StatusCreated, &out)
}

func (c *Client) RemoveService(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodDelete, "/api/services/"+url.PathEscape(name), nil, http.StatusNoContent, nil)
}

func (c *Client) History(ctx context.Context, name string) (historyDoc, error) {
	var out historyDoc
	return out, c.do(ctx, http.MethodGet, "/api/services/"+url.PathEscape(name)+"/history", nil, http.StatusOK, &out)
}

func (c *Client) Notifications(ctx context.Context) (domain.NotificationConfig, error) {
	var out domain.NotificationConfig
	return out, c.do(ctx, http.MethodGet, "/api/notifications", nil, http.StatusOK, &out)
}

func (c *Client) TestChannel(ctx context.Context, channel string) error {
	return c.do(ctx, http.MethodPost, "/api/notifications/"+url.PathEscape(channel)+"/test", nil, http.StatusOK, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in any, want int, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(b, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
