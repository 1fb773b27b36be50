// Package notification provides outbound email delivery with template
// rendering, an SMTP implementation, and a recording test double.
package notification

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"
	"sync"
)

// EmailSender is the interface for sending email messages.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// ---------------------------------------------------------------------------
// Template Engine
// ---------------------------------------------------------------------------

// Template defines a reusable email template. Placeholders use the
// {{name}} form and are substituted verbatim at render time.
type Template struct {
	ID      string
	Subject string
	Body    string
}

// TemplateEngine manages email templates and renders them with data.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewTemplateEngine creates a TemplateEngine with the built-in templates
// pre-registered.
func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{
		templates: make(map[string]*Template),
	}
	e.registerBuiltIn()
	return e
}

func (e *TemplateEngine) registerBuiltIn() {
	builtIn := []Template{
		{
			ID:      "checkup-reminder",
			Subject: "Time for Your Annual Checkup",
			Body:    "Dear {{patient_name}}, our records show your last checkup was on {{last_checkup_date}}. It has been over a year, so please schedule your annual checkup at your earliest convenience.",
		},
		{
			ID:      "checkup-confirmation",
			Subject: "Checkup Date Recorded",
			Body:    "Dear {{patient_name}}, we have recorded your checkup on {{checkup_date}}. We will remind you when your next annual checkup is due.",
		},
		{
			ID:      "welcome",
			Subject: "Welcome to CareVault",
			Body:    "Dear {{patient_name}}, your account has been created. You can now upload medical reports, track heart-rate readings, and manage checkup reminders.",
		},
	}
	for i := range builtIn {
		e.templates[builtIn[i].ID] = &builtIn[i]
	}
}

// Register adds or replaces a template.
func (e *TemplateEngine) Register(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.ID] = &t
}

// Render substitutes data into the template's subject and body.
func (e *TemplateEngine) Render(templateID string, data map[string]string) (subject, body string, err error) {
	e.mu.RLock()
	t, ok := e.templates[templateID]
	e.mu.RUnlock()
	if !ok {
		return "", "", fmt.Errorf("template %q not found", templateID)
	}

	subject = t.Subject
	body = t.Body
	for k, v := range data {
		placeholder := "{{" + k + "}}"
		subject = strings.ReplaceAll(subject, placeholder, v)
		body = strings.ReplaceAll(body, placeholder, v)
	}
	return subject, body, nil
}

// ---------------------------------------------------------------------------
// SMTP Sender
// ---------------------------------------------------------------------------

// SMTPSender delivers mail through a plain SMTP relay.
type SMTPSender struct {
	addr string
	auth smtp.Auth
	from string
}

// NewSMTPSender configures a sender for the given relay. Auth is skipped when
// user is empty, which suits local development relays.
func NewSMTPSender(host string, port int, user, pass, from string) *SMTPSender {
	s := &SMTPSender{
		addr: fmt.Sprintf("%s:%d", host, port),
		from: from,
	}
	if user != "" {
		s.auth = smtp.PlainAuth("", user, pass, host)
	}
	return s
}

func (s *SMTPSender) SendEmail(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := strings.Join([]string{
		"From: " + s.from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"utf-8\"",
		"",
		body,
	}, "\r\n")

	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(s.addr, s.auth, s.from, []string{to}, []byte(msg))
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send email to %s: %w", to, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ---------------------------------------------------------------------------
// Mock Sender
// ---------------------------------------------------------------------------

// EmailCall records a single call to SendEmail.
type EmailCall struct {
	To      string
	Subject string
	Body    string
}

// MockEmailSender is a test double for EmailSender.
type MockEmailSender struct {
	mu         sync.Mutex
	calls      []EmailCall
	ShouldFail bool
	FailError  string
}

// SendEmail records the call and optionally returns an error.
func (m *MockEmailSender) SendEmail(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, EmailCall{To: to, Subject: subject, Body: body})
	if m.ShouldFail {
		return errors.New(m.FailError)
	}
	return nil
}

// Calls returns a copy of recorded email calls.
func (m *MockEmailSender) Calls() []EmailCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]EmailCall, len(m.calls))
	copy(out, m.calls)
	return out
}
