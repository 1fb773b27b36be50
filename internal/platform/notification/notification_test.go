package notification

import (
	"context"
	"strings"
	"testing"
)

func TestTemplateEngine_RenderBuiltIn(t *testing.T) {
	e := NewTemplateEngine()
	subject, body, err := e.Render("checkup-reminder", map[string]string{
		"patient_name":      "Jane Doe",
		"last_checkup_date": "2024-06-15",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(body, "Jane Doe") {
		t.Errorf("expected patient name in body, got %q", body)
	}
	if !strings.Contains(body, "2024-06-15") {
		t.Errorf("expected checkup date in body, got %q", body)
	}
	if strings.Contains(subject+body, "{{") {
		t.Errorf("unreplaced placeholder in render: %q / %q", subject, body)
	}
}

func TestTemplateEngine_UnknownTemplate(t *testing.T) {
	e := NewTemplateEngine()
	if _, _, err := e.Render("no-such-template", nil); err == nil {
		t.Error("expected error for unknown template")
	}
}

func TestTemplateEngine_Register(t *testing.T) {
	e := NewTemplateEngine()
	e.Register(Template{ID: "custom", Subject: "Hi {{name}}", Body: "Bye"})
	subject, _, err := e.Render("custom", map[string]string{"name": "Sam"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if subject != "Hi Sam" {
		t.Errorf("expected rendered subject, got %q", subject)
	}
}

func TestMockEmailSender_RecordsCalls(t *testing.T) {
	m := &MockEmailSender{}
	if err := m.SendEmail(context.Background(), "a@example.com", "s", "b"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	calls := m.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	if calls[0].To != "a@example.com" {
		t.Errorf("unexpected recipient %q", calls[0].To)
	}
}

func TestMockEmailSender_ShouldFail(t *testing.T) {
	m := &MockEmailSender{ShouldFail: true, FailError: "smtp down"}
	err := m.SendEmail(context.Background(), "a@example.com", "s", "b")
	if err == nil || err.Error() != "smtp down" {
		t.Errorf("expected configured failure, got %v", err)
	}
	// The call is still recorded so tests can assert attempts.
	if len(m.Calls()) != 1 {
		t.Error("expected failed call to be recorded")
	}
}

func TestMockEmailSender_CancelledContext(t *testing.T) {
	m := &MockEmailSender{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := m.SendEmail(ctx, "a@example.com", "s", "b"); err == nil {
		t.Error("expected error for cancelled context")
	}
	if len(m.Calls()) != 0 {
		t.Error("cancelled send must not be recorded")
	}
}
