// pkg/email/service.go
package email

import (
	"context"
	"time"

	"github.com/gurkanbulca/teamportal/internal/models"
)

// Sender delivers notification e-mails.
type Sender interface {
	SendNotification(ctx context.Context, to Recipient, n *models.Notification) error
}

// Recipient is the addressee of a notification e-mail.
type Recipient struct {
	Name  string
	Email string
}

// EmailTemplate represents an email template
type EmailTemplate struct {
	Subject  string
	HTMLBody string
	TextBody string
}

// EmailData contains data for template rendering
type EmailData struct {
	Recipient    Recipient
	Title        string
	Body         string
	Category     string
	CreatedAt    time.Time
	SupportEmail string
	AppName      string
	BaseURL      string
	TasksURL     string
}

// Config holds email service configuration
type Config struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
	FromName     string
	BaseURL      string
	AppName      string
	SupportEmail string
}

// Templates holds the notification templates. Categories without a
// dedicated template use Default.
type Templates struct {
	Default    EmailTemplate
	Assignment EmailTemplate
	Completion EmailTemplate
}

// ForCategory picks the template for a notification category.
func (t *Templates) ForCategory(category string) EmailTemplate {
	switch category {
	case models.CategoryTaskAssigned, models.CategoryTaskRecurring:
		return t.Assignment
	case models.CategoryTaskCompleted, models.CategorySeriesFinished:
		return t.Completion
	default:
		return t.Default
	}
}

const htmlStyle = `
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { text-align: center; margin-bottom: 30px; }
        .button { display: inline-block; padding: 12px 24px; background-color: #007bff; color: white; text-decoration: none; border-radius: 5px; }
        .highlight { background-color: #d4edda; border: 1px solid #c3e6cb; padding: 15px; border-radius: 5px; margin: 20px 0; }
        .footer { margin-top: 30px; padding-top: 20px; border-top: 1px solid #eee; font-size: 14px; color: #666; }
    </style>`

const htmlFooter = `
        <div class="footer">
            <p>Best regards,<br>The {{.AppName}} Team</p>
            <p>If you have any questions, please contact us at <a href="mailto:{{.SupportEmail}}">{{.SupportEmail}}</a></p>
        </div>`

const textFooter = `

Best regards,
The {{.AppName}} Team

If you have any questions, please contact us at {{.SupportEmail}}`

// NewTemplates creates default email templates
func NewTemplates() *Templates {
	return &Templates{
		Default: EmailTemplate{
			Subject: "[{{.AppName}}] {{.Title}}",
			HTMLBody: `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>{{.Title}}</title>` + htmlStyle + `
</head>
<body>
    <div class="container">
        <div class="header"><h1>{{.Title}}</h1></div>
        <p>Hi {{.Recipient.Name}},</p>
        <p>{{.Body}}</p>` + htmlFooter + `
    </div>
</body>
</html>`,
			TextBody: `{{.Title}}

Hi {{.Recipient.Name}},

{{.Body}}` + textFooter,
		},

		Assignment: EmailTemplate{
			Subject: "[{{.AppName}}] {{.Title}}",
			HTMLBody: `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>{{.Title}}</title>` + htmlStyle + `
</head>
<body>
    <div class="container">
        <div class="header"><h1>{{.Title}}</h1></div>
        <p>Hi {{.Recipient.Name}},</p>
        <p>{{.Body}}</p>
        <p>Finishing before the due date earns bonus points.</p>
        <p style="text-align: center; margin: 30px 0;">
            <a href="{{.TasksURL}}" class="button">Open my tasks</a>
        </p>` + htmlFooter + `
    </div>
</body>
</html>`,
			TextBody: `{{.Title}}

Hi {{.Recipient.Name}},

{{.Body}}

Finishing before the due date earns bonus points.

Open your tasks: {{.TasksURL}}` + textFooter,
		},

		Completion: EmailTemplate{
			Subject: "[{{.AppName}}] {{.Title}}",
			HTMLBody: `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>{{.Title}}</title>` + htmlStyle + `
</head>
<body>
    <div class="container">
        <div class="header"><h1>{{.Title}}</h1></div>
        <p>Hi {{.Recipient.Name}},</p>
        <div class="highlight">{{.Body}}</div>
        <p style="text-align: center; margin: 30px 0;">
            <a href="{{.TasksURL}}" class="button">View tasks</a>
        </p>` + htmlFooter + `
    </div>
</body>
</html>`,
			TextBody: `{{.Title}}

Hi {{.Recipient.Name}},

{{.Body}}

View tasks: {{.TasksURL}}` + textFooter,
		},
	}
}
