package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hamed0406/uptimewatch/internal/domain"
)

// UserAgent identifies probe traffic to monitored services.
const UserAgent = "uptimewatch-monitor/1.0"

// Checker performs one health probe for one service.
type Checker interface {
	Check(ctx context.Context, spec domain.ServiceSpec) domain.CheckResult
}

type HTTPChecker struct {
	Client *http.Client
	Now    func() time.Time
}

func NewHTTPChecker() *HTTPChecker {
	return &HTTPChecker{
		Client: &http.Client{},
		Now:    time.Now,
	}
}

// Check issues a single GET bounded by the spec timeout. It never returns an error:
// every failure is reported as a down result.
func (c *HTTPChecker) Check(ctx context.Context, spec domain.ServiceSpec) domain.CheckResult {
	spec = spec.WithDefaults()
	res := domain.CheckResult{Name: spec.Name, URL: spec.URL}

	cctx, cancel := context.WithTimeout(ctx, spec.Timeout())
	defer cancel()

	start := time.Now()
	req, err := http.NewRequestWithContext(cctx, http.MethodGet, spec.URL, nil)
	if err != nil {
		return c.down(res, start, nil, err.Error())
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.Client.Do(req)
	if err != nil {
		// Only a failed redirect policy hands back a response alongside the error.
		var code *int
		if resp != nil {
			v := resp.StatusCode
			code = &v
			resp.Body.Close()
		}
		return c.down(res, start, code, err.Error())
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	code := resp.StatusCode
	res.StatusCode = &code
	res.ResponseTimeMs = time.Since(start).Milliseconds()
	res.ObservedAt = c.now()
	if code != spec.ExpectedStatusCode {
		res.Status = domain.StatusDown
		res.Error = fmt.Sprintf("Expected status %d, got %d", spec.ExpectedStatusCode, code)
		return res
	}
	res.Status = domain.StatusUp
	return res
}

func (c *HTTPChecker) down(res domain.CheckResult, start time.Time, code *int, msg string) domain.CheckResult {
	res.Status = domain.StatusDown
	res.StatusCode = code
	res.ResponseTimeMs = time.Since(start).Milliseconds()
	res.ObservedAt = c.now()
	res.Error = msg
	return res
}

func (c *HTTPChecker) now() time.Time {
	if c.Now != nil {
		return c.Now().UTC()
	}
	return time.Now().UTC()
}
