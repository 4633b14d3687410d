package email

import (
	"context"
	"strings"
	"testing"
)

func TestSendRequiresRecipients(t *testing.T) {
	p := NewSMTP(Config{Host: "localhost", Port: 2525, From: "noreply@example.com"})

	if err := p.Send(context.Background(), nil, "subject", "<p>body</p>"); err == nil {
		t.Fatal("expected error for empty recipient list")
	}
	if err := p.Send(context.Background(), []string{}, "subject", "<p>body</p>"); err == nil {
		t.Fatal("expected error for zero recipients")
	}
}

func TestBuildMessageListsAllRecipients(t *testing.T) {
	msg := string(buildMessage([]string{"a@example.com", "b@example.com"}, "Payment confirmed", "<p>hi</p>"))

	if !strings.Contains(msg, "To: a@example.com, b@example.com\r\n") {
		t.Fatalf("To header missing recipients: %q", msg)
	}
	if !strings.Contains(msg, "Subject: Payment confirmed\r\n") {
		t.Fatalf("Subject header missing: %q", msg)
	}
	if !strings.Contains(msg, "<p>hi</p>") {
		t.Fatalf("body missing: %q", msg)
	}
}
