package notify

import (
	"bufio"
	"context"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/hamed0406/uptimewatch/internal/domain"
)

// fakeSMTP accepts one session, records the envelope and message body.
type fakeSMTP struct {
	ln       net.Listener
	starttls bool

	mu   sync.Mutex
	from string
	rcpt []string
	data string
	done chan struct{}
}

func newFakeSMTP(t *testing.T, starttls bool) *fakeSMTP {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	f := &fakeSMTP{ln: ln, starttls: starttls, done: make(chan struct{})}
	t.Cleanup(func() { ln.Close() })
	go f.serve()
	return f
}

func (f *fakeSMTP) port() int { return f.ln.Addr().(*net.TCPAddr).Port }

func (f *fakeSMTP) serve() {
	defer close(f.done)
	conn, err := f.ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()
	r := bufio.NewReader(conn)
	reply := func(s string) { _, _ = conn.Write([]byte(s + "\r\n")) }
	reply("220 fake ESMTP")
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")
		cmd := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(cmd, "EHLO"):
			if f.starttls {
				reply("250-fake")
				reply("250 STARTTLS")
			} else {
				reply("250 fake")
			}
		case strings.HasPrefix(cmd, "MAIL FROM:"):
			f.mu.Lock()
			f.from = strings.Trim(line[len("MAIL FROM:"):], "<>")
			f.mu.Unlock()
			reply("250 ok")
		case strings.HasPrefix(cmd, "RCPT TO:"):
			f.mu.Lock()
			f.rcpt = append(f.rcpt, strings.Trim(line[len("RCPT TO:"):], "<>"))
			f.mu.Unlock()
			reply("250 ok")
		case cmd == "DATA":
			reply("354 go ahead")
			var b strings.Builder
			for {
				l, err := r.ReadString('\n')
				if err != nil {
					return
				}
				if l == ".\r\n" {
					break
				}
				b.WriteString(l)
			}
			f.mu.Lock()
			f.data = b.String()
			f.mu.Unlock()
			reply("250 queued")
		case cmd == "QUIT":
			reply("221 bye")
			return
		default:
			reply("502 not implemented")
		}
	}
}

func mailConfig(port int) domain.EmailConfig {
	return domain.EmailConfig{
		Enabled: true,
		SMTP:    domain.SMTPConfig{Host: "127.0.0.1", Port: port},
		From:    "monitor@example.com",
		To:      "ops@example.com, oncall@example.com",
	}
}

func TestMail_SendsMessage(t *testing.T) {
	srv := newFakeSMTP(t, false)
	m := NewMail(mailConfig(srv.port()))
	if err := m.Send(context.Background(), downAlert()); err != nil {
		t.Fatalf("send err: %v", err)
	}
	<-srv.done
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.from != "monitor@example.com" {
		t.Fatalf("from = %q", srv.from)
	}
	if len(srv.rcpt) != 2 || srv.rcpt[1] != "oncall@example.com" {
		t.Fatalf("rcpt = %v", srv.rcpt)
	}
	if !strings.Contains(srv.data, "Subject: api is DOWN") || !strings.Contains(srv.data, "Status code: 503") {
		t.Fatalf("message body not as expected:\n%s", srv.data)
	}
}

func TestMail_RequireTLSWithoutStartTLS(t *testing.T) {
	srv := newFakeSMTP(t, false)
	cfg := mailConfig(srv.port())
	cfg.SMTP.RequireTLS = true
	err := NewMail(cfg).Send(context.Background(), downAlert())
	if err == nil || !strings.Contains(err.Error(), "STARTTLS") {
		t.Fatalf("want STARTTLS error, got %v", err)
	}
}

func TestMail_DialFailure(t *testing.T) {
	ln, _ := net.Listen("tcp", "127.0.0.1:0")
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	err := NewMail(mailConfig(port)).Send(context.Background(), downAlert())
	if err == nil || !strings.Contains(err.Error(), "smtp dial") {
		t.Fatalf("want dial error, got %v", err)
	}
}

func TestMail_DefaultPorts(t *testing.T) {
	m := NewMail(mailConfig(0))
	if _, p, _ := net.SplitHostPort(m.addr()); p != strconv.Itoa(587) {
		t.Fatalf("plain default port = %s", p)
	}
	cfg := mailConfig(0)
	cfg.SMTP.Secure = true
	if _, p, _ := net.SplitHostPort(NewMail(cfg).addr()); p != "465" {
		t.Fatalf("secure default port = %s", p)
	}
}

func TestMail_UndecryptablePasswordIsUnconfigured(t *testing.T) {
	cfg := mailConfig(25)
	cfg.SMTP.Auth = domain.SMTPAuth{User: "ops", Pass: ""}
	if NewMail(cfg) != nil {
		t.Fatal("expected no sink for a user without password")
	}
	cfg.SMTP.Auth.Pass = "pw"
	if NewMail(cfg) == nil {
		t.Fatal("user with password should be configured")
	}
}

func TestMail_SubjectIsEncoded(t *testing.T) {
	m := NewMail(mailConfig(25))

	a := downAlert()
	a.Service = "api\r\nBcc: attacker@example.com"
	msg := string(m.message(a, []string{"ops@example.com"}))
	head := msg[:strings.Index(msg, "\r\n\r\n")]
	for _, line := range strings.Split(head, "\r\n") {
		if strings.HasPrefix(line, "Bcc:") {
			t.Fatalf("header injected:\n%s", head)
		}
	}
	if !strings.Contains(head, "Subject: =?utf-8?q?") {
		t.Fatalf("subject with control characters should be encoded:\n%s", head)
	}

	a.Service = "café"
	msg = string(m.message(a, []string{"ops@example.com"}))
	if !strings.Contains(msg, "Subject: =?utf-8?q?caf=C3=A9_is_DOWN?=") {
		t.Fatalf("non-ascii subject not encoded:\n%s", msg)
	}
}
