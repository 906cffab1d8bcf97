package domain

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode"
)

const (
	DefaultTimeoutMs      = 5000
	DefaultExpectedStatus = 200
)

type Status string

const (
	StatusUp   Status = "up"
	StatusDown Status = "down"
	// StatusUnknown is the previous status of a service that has never been checked.
	StatusUnknown Status = "unknown"
)

// ServiceSpec describes one monitored endpoint. Name is the stable identity.
type ServiceSpec struct {
	Name               string `json:"name" yaml:"name"`
	URL                string `json:"url" yaml:"url"`
	TimeoutMs          int    `json:"timeout" yaml:"timeout"`
	ExpectedStatusCode int    `json:"expectedStatus" yaml:"expectedStatus"`
}

// WithDefaults fills zero timeout and expected status.
func (s ServiceSpec) WithDefaults() ServiceSpec {
	s.Name = strings.TrimSpace(s.Name)
	s.URL = strings.TrimSpace(s.URL)
	if s.TimeoutMs <= 0 {
		s.TimeoutMs = DefaultTimeoutMs
	}
	if s.ExpectedStatusCode <= 0 {
		s.ExpectedStatusCode = DefaultExpectedStatus
	}
	return s
}

func (s ServiceSpec) Timeout() time.Duration {
	return time.Duration(s.TimeoutMs) * time.Millisecond
}

func (s ServiceSpec) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return errors.New("name is required")
	}
	if strings.IndexFunc(s.Name, unicode.IsControl) >= 0 {
		return errors.New("name must not contain control characters")
	}
	if strings.TrimSpace(s.URL) == "" {
		return errors.New("url is required")
	}
	if !IsValidHTTPURL(s.URL) {
		return fmt.Errorf("url %q is not a valid http(s) url", s.URL)
	}
	return nil
}

func IsValidHTTPURL(raw string) bool {
	u, err := url.ParseRequestURI(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}

// CheckResult is the outcome of one probe. StatusCode is nil when no response was received.
type CheckResult struct {
	Name           string    `json:"name"`
	URL            string    `json:"url"`
	Status         Status    `json:"status"`
	StatusCode     *int      `json:"statusCode"`
	ResponseTimeMs int64     `json:"responseTime"`
	ObservedAt     time.Time `json:"timestamp"`
	Error          string    `json:"error,omitempty"`
}

func (r CheckResult) History() HistoryEntry {
	var code *int
	if r.StatusCode != nil {
		v := *r.StatusCode
		code = &v
	}
	return HistoryEntry{
		Timestamp:      r.ObservedAt,
		Status:         r.Status,
		StatusCode:     code,
		ResponseTimeMs: r.ResponseTimeMs,
		Error:          r.Error,
	}
}

// HistoryEntry is the durable projection of a CheckResult.
type HistoryEntry struct {
	Timestamp      time.Time `json:"timestamp"`
	Status         Status    `json:"status"`
	StatusCode     *int      `json:"statusCode"`
	ResponseTimeMs int64     `json:"responseTime"`
	Error          string    `json:"error,omitempty"`
}

// Uptime returns the percentage of up entries; an empty history counts as fully up.
func Uptime(entries []HistoryEntry) float64 {
	if len(entries) == 0 {
		return 100
	}
	up := 0
	for _, e := range entries {
		if e.Status == StatusUp {
			up++
		}
	}
	return float64(up) / float64(len(entries)) * 100
}

func FormatUptime(pct float64) string {
	return fmt.Sprintf("%.2f", pct)
}

// Retain keeps entries observed within retention of now, preserving order.
func Retain(entries []HistoryEntry, now time.Time, retention time.Duration) []HistoryEntry {
	cutoff := now.Add(-retention)
	out := make([]HistoryEntry, 0, len(entries))
	for _, e := range entries {
		if e.Timestamp.After(cutoff) {
			out = append(out, e)
		}
	}
	return out
}
