package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/hamed0406/uptimewatch/internal/domain"
)

// Mail sends over SMTP. Secure dials implicit TLS; RequireTLS refuses servers
// that do not offer STARTTLS.
type Mail struct {
	cfg         domain.EmailConfig
	DialTimeout time.Duration
	TLSConfig   *tls.Config
}

func NewMail(cfg domain.EmailConfig) *Mail {
	if !cfg.Configured() {
		return nil
	}
	return &Mail{cfg: cfg, DialTimeout: 10 * time.Second}
}

func (m *Mail) Channel() domain.Channel { return domain.ChannelEmail }

func (m *Mail) addr() string {
	port := m.cfg.SMTP.Port
	if port == 0 {
		port = 587
		if m.cfg.SMTP.Secure {
			port = 465
		}
	}
	return net.JoinHostPort(m.cfg.SMTP.Host, strconv.Itoa(port))
}

func (m *Mail) tlsConfig() *tls.Config {
	if m.TLSConfig != nil {
		return m.TLSConfig
	}
	return &tls.Config{ServerName: m.cfg.SMTP.Host, MinVersion: tls.VersionTLS12}
}

func (m *Mail) dial(ctx context.Context) (net.Conn, error) {
	d := &net.Dialer{Timeout: m.DialTimeout}
	if m.cfg.SMTP.Secure {
		td := &tls.Dialer{NetDialer: d, Config: m.tlsConfig()}
		return td.DialContext(ctx, "tcp", m.addr())
	}
	return d.DialContext(ctx, "tcp", m.addr())
}

func (m *Mail) Send(ctx context.Context, a Alert) error {
	if m == nil {
		return errors.New("email disabled")
	}
	conn, err := m.dial(ctx)
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	} else {
		_ = conn.SetDeadline(time.Now().Add(30 * time.Second))
	}
	c, err := smtp.NewClient(conn, m.cfg.SMTP.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp greeting: %w", err)
	}
	defer c.Close()

	if !m.cfg.SMTP.Secure {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(m.tlsConfig()); err != nil {
				return fmt.Errorf("smtp starttls: %w", err)
			}
		} else if m.cfg.SMTP.RequireTLS {
			return errors.New("smtp server does not offer STARTTLS")
		}
	}
	if u := m.cfg.SMTP.Auth.User; u != "" {
		if err := c.Auth(smtp.PlainAuth("", u, m.cfg.SMTP.Auth.Pass, m.cfg.SMTP.Host)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := c.Mail(m.cfg.From); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	rcpts := recipients(m.cfg.To)
	for _, r := range rcpts {
		if err := c.Rcpt(r); err != nil {
			return fmt.Errorf("smtp rcpt %s: %w", r, err)
		}
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(m.message(a, rcpts)); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	return c.Quit()
}

func (m *Mail) message(a Alert, rcpts []string) []byte {
	var b strings.Builder
	b.WriteString("From: " + m.cfg.From + "\r\n")
	b.WriteString("To: " + strings.Join(rcpts, ", ") + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", a.Title()) + "\r\n")
	b.WriteString("Date: " + time.Now().UTC().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(strings.ReplaceAll(a.Text(), "\n", "\r\n"))
	return []byte(b.String())
}

func recipients(to string) []string {
	var out []string
	for _, r := range strings.Split(to, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}
