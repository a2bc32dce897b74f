// pkg/email/smtp.go
package email

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	htmltemplate "html/template"
	"net/smtp"
	"sync"
	"text/template"
	"time"

	"github.com/gurkanbulca/teamportal/internal/models"
)

// SMTPEmailService implements Sender using SMTP
type SMTPEmailService struct {
	config    *Config
	templates *Templates
	auth      smtp.Auth
}

// NewSMTPEmailService creates a new SMTP email service
func NewSMTPEmailService(config *Config) *SMTPEmailService {
	var auth smtp.Auth
	if config.SMTPUsername != "" {
		auth = smtp.PlainAuth("", config.SMTPUsername, config.SMTPPassword, config.SMTPHost)
	}

	return &SMTPEmailService{
		config:    config,
		templates: NewTemplates(),
		auth:      auth,
	}
}

// SendNotification e-mails a notification to its recipient.
func (s *SMTPEmailService) SendNotification(ctx context.Context, to Recipient, n *models.Notification) error {
	if to.Email == "" {
		return fmt.Errorf("recipient %q has no email address", to.Name)
	}
	msg, err := s.Render(to, n)
	if err != nil {
		return err
	}

	// net/smtp has no context support; honor cancellation before dialing.
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", s.config.SMTPHost, s.config.SMTPPort)
	if err := smtp.SendMail(addr, s.auth, s.config.FromEmail, []string{to.Email}, msg); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

// Render builds the MIME message for a notification.
func (s *SMTPEmailService) Render(to Recipient, n *models.Notification) ([]byte, error) {
	tmpl := s.templates.ForCategory(n.Category)
	data := s.buildEmailData(to, n)

	subject, err := renderText(tmpl.Subject, data)
	if err != nil {
		return nil, fmt.Errorf("render subject: %w", err)
	}
	text, err := renderText(tmpl.TextBody, data)
	if err != nil {
		return nil, fmt.Errorf("render text body: %w", err)
	}
	html, err := renderHTML(tmpl.HTMLBody, data)
	if err != nil {
		return nil, fmt.Errorf("render HTML body: %w", err)
	}

	return s.buildMIMEMessage(s.config.FromEmail, s.config.FromName, to.Email, subject, text, html, generateBoundary()), nil
}

func (s *SMTPEmailService) buildEmailData(to Recipient, n *models.Notification) *EmailData {
	return &EmailData{
		Recipient:    to,
		Title:        n.Title,
		Body:         n.Body,
		Category:     n.Category,
		CreatedAt:    n.CreatedAt,
		SupportEmail: s.config.SupportEmail,
		AppName:      s.config.AppName,
		BaseURL:      s.config.BaseURL,
		TasksURL:     s.config.BaseURL + "/tasks",
	}
}

func renderText(src string, data *EmailData) (string, error) {
	tmpl, err := template.New("email").Parse(src)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func renderHTML(src string, data *EmailData) (string, error) {
	tmpl, err := htmltemplate.New("email").Parse(src)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// generateBoundary generates a random boundary for MIME messages
func generateBoundary() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// buildMIMEMessage builds a MIME email message with both text and HTML parts
func (s *SMTPEmailService) buildMIMEMessage(from, fromName, to, subject, textBody, htmlBody, boundary string) []byte {
	message := fmt.Sprintf(`From: %s <%s>
To: %s
Subject: %s
MIME-Version: 1.0
Content-Type: multipart/alternative; boundary="%s"

--%s
Content-Type: text/plain; charset=UTF-8
Content-Transfer-Encoding: 8bit

%s

--%s
Content-Type: text/html; charset=UTF-8
Content-Transfer-Encoding: 8bit

%s

--%s--
`, fromName, from, to, subject, boundary, boundary, textBody, boundary, htmlBody, boundary)

	return []byte(message)
}

// TestConnection tests the SMTP connection
func (s *SMTPEmailService) TestConnection(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.SMTPHost, s.config.SMTPPort)

	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("dial SMTP server: %w", err)
	}
	defer client.Close()

	if s.auth != nil {
		if err := client.Auth(s.auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	return nil
}

// MockEmailService implements Sender for testing
type MockEmailService struct {
	mu         sync.Mutex
	SentEmails []SentEmail
	// Err, when set, is returned by every send.
	Err error
}

// SentEmail represents an email that was sent via MockEmailService
type SentEmail struct {
	To           Recipient
	Notification models.Notification
	SentAt       time.Time
}

// NewMockEmailService creates a new mock email service
func NewMockEmailService() *MockEmailService {
	return &MockEmailService{
		SentEmails: make([]SentEmail, 0),
	}
}

// SendNotification mock implementation
func (m *MockEmailService) SendNotification(ctx context.Context, to Recipient, n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.SentEmails = append(m.SentEmails, SentEmail{
		To:           to,
		Notification: *n,
		SentAt:       time.Now(),
	})
	return nil
}

// GetSentEmails returns all sent emails (for testing)
func (m *MockEmailService) GetSentEmails() []SentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentEmail(nil), m.SentEmails...)
}

// GetLastSentEmail returns the last sent email (for testing)
func (m *MockEmailService) GetLastSentEmail() *SentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.SentEmails) == 0 {
		return nil
	}
	last := m.SentEmails[len(m.SentEmails)-1]
	return &last
}

// Clear clears all sent emails (for testing)
func (m *MockEmailService) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SentEmails = make([]SentEmail, 0)
}
