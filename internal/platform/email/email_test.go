package email

import (
	"context"
	"strings"
	"testing"
	"time"

	"perftrack/internal/platform/config"
)

func TestNewDisabledReturnsNil(t *testing.T) {
	if m := New(config.Config{EmailEnabled: false, SMTPHost: "smtp.example.com"}); m != nil {
		t.Fatalf("expected nil mailer, got %T", m)
	}
	if m := New(config.Config{EmailEnabled: true, SMTPHost: "smtp.example.com"}); m == nil {
		t.Fatal("expected smtp mailer")
	}
}

func TestNoopMailer(t *testing.T) {
	if err := Noop().Send(context.Background(), "a@b.c", "d@e.f", "s", "b"); err != nil {
		t.Fatalf("noop returned %v", err)
	}
}

func TestBuildMessage(t *testing.T) {
	msg := string(buildMessage("no-reply@perf.example", "ann@example.com", "Goal\r\nBcc: x", "body text", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)))
	if !strings.Contains(msg, "Subject: Goal  Bcc: x\r\n") {
		t.Fatalf("subject not sanitized: %q", msg)
	}
	if !strings.Contains(msg, "@perf.example>") {
		t.Fatalf("message id should use sender domain: %q", msg)
	}
	if !strings.HasSuffix(msg, "\r\n\r\nbody text") {
		t.Fatalf("body not separated from headers: %q", msg)
	}
}
