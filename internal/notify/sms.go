package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/hamed0406/uptimewatch/internal/domain"
)

const DefaultSMSBaseURL = "https://api.twilio.com"

// SMS sends through the Twilio Messages API.
type SMS struct {
	BaseURL    string
	AccountSID string
	AuthToken  string
	From       string
	To         string
	Client     *http.Client
}

func NewSMS(cfg domain.SMSConfig, baseURL string, client *http.Client) *SMS {
	if !cfg.Configured() {
		return nil
	}
	if baseURL == "" {
		baseURL = DefaultSMSBaseURL
	}
	return &SMS{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		AccountSID: cfg.AccountSID,
		AuthToken:  cfg.AuthToken,
		From:       cfg.From,
		To:         cfg.To,
		Client:     client,
	}
}

func (s *SMS) Channel() domain.Channel { return domain.ChannelSMS }

func (s *SMS) Send(ctx context.Context, a Alert) error {
	if s == nil || s.AccountSID == "" || s.AuthToken == "" {
		return errors.New("sms disabled")
	}
	form := url.Values{}
	form.Set("To", s.To)
	form.Set("From", s.From)
	form.Set("Body", a.Short())
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", s.BaseURL, url.PathEscape(s.AccountSID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(s.AccountSID, s.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return do(s.Client, req)
}
