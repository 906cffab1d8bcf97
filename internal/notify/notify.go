// Package notify delivers status transition alerts to the configured channels.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hamed0406/uptimewatch/internal/domain"
)

// TestServiceName names the synthetic service used by channel test sends.
const TestServiceName = "Test Service"

// Sink is one delivery channel built from NotificationConfig.
type Sink interface {
	Channel() domain.Channel
	Send(ctx context.Context, a Alert) error
}

// Alert is the channel independent content of one notification.
type Alert struct {
	Service        string
	URL            string
	Previous       domain.Status
	Status         domain.Status
	StatusCode     *int
	ResponseTimeMs int64
	Error          string
	ObservedAt     time.Time
	Test           bool
}

func NewAlert(r domain.CheckResult, prev domain.Status) Alert {
	return Alert{
		Service:        r.Name,
		URL:            r.URL,
		Previous:       prev,
		Status:         r.Status,
		StatusCode:     r.StatusCode,
		ResponseTimeMs: r.ResponseTimeMs,
		Error:          r.Error,
		ObservedAt:     r.ObservedAt,
	}
}

// SyntheticAlert is the fixed payload sent by a channel test.
func SyntheticAlert(now time.Time) Alert {
	code := http.StatusOK
	return Alert{
		Service:        TestServiceName,
		URL:            "https://example.com",
		Previous:       domain.StatusUnknown,
		Status:         domain.StatusUp,
		StatusCode:     &code,
		ResponseTimeMs: 123,
		ObservedAt:     now.UTC(),
		Test:           true,
	}
}

func (a Alert) Title() string {
	prefix := ""
	if a.Test {
		prefix = "[TEST] "
	}
	return fmt.Sprintf("%s%s is %s", prefix, a.Service, strings.ToUpper(string(a.Status)))
}

func (a Alert) Code() string {
	if a.StatusCode == nil {
		return "n/a"
	}
	return strconv.Itoa(*a.StatusCode)
}

func (a Alert) Timestamp() string {
	return a.ObservedAt.UTC().Format(time.RFC3339)
}

// Fields lists the alert details in display order.
func (a Alert) Fields() [][2]string {
	f := [][2]string{
		{"Service", a.Service},
		{"Status", fmt.Sprintf("%s -> %s", a.Previous, a.Status)},
		{"URL", a.URL},
		{"Status code", a.Code()},
		{"Response time", fmt.Sprintf("%d ms", a.ResponseTimeMs)},
	}
	if a.Error != "" {
		f = append(f, [2]string{"Error", a.Error})
	}
	return append(f, [2]string{"Time", a.Timestamp()})
}

// Text renders the alert as plain "name: value" lines.
func (a Alert) Text() string {
	var b strings.Builder
	for _, kv := range a.Fields() {
		b.WriteString(kv[0])
		b.WriteString(": ")
		b.WriteString(kv[1])
		b.WriteString("\n")
	}
	return b.String()
}

// Short is a single line form for SMS.
func (a Alert) Short() string {
	s := fmt.Sprintf("%s: %s (%s) code=%s %dms", a.Title(), a.URL, a.Previous, a.Code(), a.ResponseTimeMs)
	if a.Error != "" {
		s += " err=" + a.Error
	}
	return s
}

func postJSON(ctx context.Context, client *http.Client, url string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return do(client, req)
}

func do(client *http.Client, req *http.Request) error {
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("non-2xx %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	return nil
}
