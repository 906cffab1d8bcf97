package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hamed0406/uptimewatch/internal/domain"
)

func TestDevice_Payload(t *testing.T) {
	var got devicePayload
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type %q", ct)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
	}))
	defer ts.Close()

	d := NewDevice(domain.IPhoneConfig{Enabled: true, WebhookURL: ts.URL}, ts.Client())
	if err := d.Send(context.Background(), downAlert()); err != nil {
		t.Fatalf("send err: %v", err)
	}
	if got.Service != "api" || got.Status != domain.StatusDown || got.PreviousStatus != domain.StatusUp {
		t.Fatalf("payload not as expected: %+v", got)
	}
	if got.StatusCode == nil || *got.StatusCode != 503 || got.ResponseTime != 42 {
		t.Fatalf("payload numbers not as expected: %+v", got)
	}
}
