package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hamed0406/uptimewatch/internal/domain"
)

func TestSMS_PostsTwilioForm(t *testing.T) {
	var (
		path, user, pass string
		to, from, body   string
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		user, pass, _ = r.BasicAuth()
		_ = r.ParseForm()
		to, from, body = r.PostForm.Get("To"), r.PostForm.Get("From"), r.PostForm.Get("Body")
		w.WriteHeader(http.StatusCreated)
	}))
	defer ts.Close()

	s := NewSMS(domain.SMSConfig{AccountSID: "AC123", AuthToken: "tok", From: "+100", To: "+200"}, ts.URL+"/", ts.Client())
	if err := s.Send(context.Background(), downAlert()); err != nil {
		t.Fatalf("send err: %v", err)
	}
	if path != "/2010-04-01/Accounts/AC123/Messages.json" {
		t.Fatalf("unexpected path %q", path)
	}
	if user != "AC123" || pass != "tok" {
		t.Fatalf("basic auth not set: %q/%q", user, pass)
	}
	if to != "+200" || from != "+100" || !strings.Contains(body, "api is DOWN") {
		t.Fatalf("form not as expected: to=%q from=%q body=%q", to, from, body)
	}
}

func TestSMS_ProviderRejection(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"invalid credentials"}`, http.StatusUnauthorized)
	}))
	defer ts.Close()

	s := NewSMS(domain.SMSConfig{AccountSID: "AC1", AuthToken: "bad", From: "+1", To: "+2"}, ts.URL, ts.Client())
	err := s.Send(context.Background(), downAlert())
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Fatalf("want 401 error, got %v", err)
	}
}

func TestSMS_UndecryptableSecretIsUnconfigured(t *testing.T) {
	// an empty token is what the vault yields for malformed ciphertext
	if NewSMS(domain.SMSConfig{AccountSID: "AC1", AuthToken: "", From: "+1", To: "+2"}, "", nil) != nil {
		t.Fatal("expected no sink")
	}
}
