package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"

	"github.com/sirupsen/logrus"

	"taskboard-api/models"
	"taskboard-api/utils"
)

// Mailer is the email provider. config.SMTPMailer is the production one.
type Mailer interface {
	Send(to []string, subject, html string) error
}

// EmailChannel sends immediate notification emails and digests. Failures are
// logged and reported in the Result; nothing is retried here.
type EmailChannel struct {
	mailer  Mailer
	baseURL string
}

func NewEmailChannel(mailer Mailer, baseURL string) *EmailChannel {
	return &EmailChannel{mailer: mailer, baseURL: normalizeBaseURL(baseURL)}
}

func normalizeBaseURL(candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	return strings.TrimRight(trimmed, "/")
}

// absoluteLink turns an app-relative link into one usable from a mail client.
func (e *EmailChannel) absoluteLink(link string) string {
	link = strings.TrimSpace(link)
	if link == "" || e.baseURL == "" || !strings.HasPrefix(link, "/") {
		return link
	}
	return e.baseURL + link
}

func (e *EmailChannel) SendNow(ctx context.Context, to, subject, body string) Result {
	to = utils.NormalizeEmail(to)
	if to == "" {
		return skipped(ChannelEmail)
	}
	if err := ctx.Err(); err != nil {
		return failed(ChannelEmail, err)
	}
	if err := e.mailer.Send([]string{to}, subject, body); err != nil {
		logrus.WithFields(logrus.Fields{"to": to, "subject": subject}).
			Errorf("notification email send failed: %v", err)
		return failed(ChannelEmail, err)
	}
	return delivered(ChannelEmail)
}

// SendNotification emails one notification using the formal layout.
func (e *EmailChannel) SendNotification(ctx context.Context, recipient *models.User, n *models.Notification) Result {
	if recipient == nil {
		return skipped(ChannelEmail)
	}
	body := buildFormalEmailHTML(n.Title, recipient.Name, n.Message, e.absoluteLink(n.Link))
	return e.SendNow(ctx, recipient.Email, n.Title, body)
}

// SendDigest emails every pending item in one message.
func (e *EmailChannel) SendDigest(ctx context.Context, recipient *models.User, items []models.Notification) Result {
	if recipient == nil || len(items) == 0 {
		return skipped(ChannelEmail)
	}
	subject := digestSubject(len(items))
	body, err := e.renderDigest(subject, recipient.Name, items)
	if err != nil {
		return failed(ChannelEmail, err)
	}
	return e.SendNow(ctx, recipient.Email, subject, body)
}

func digestSubject(n int) string {
	if n == 1 {
		return "You have 1 new notification"
	}
	return fmt.Sprintf("You have %d new notifications", n)
}

func buildFormalEmailHTML(subject, recipientName, message, link string) string {
	name := strings.TrimSpace(recipientName)
	if name == "" {
		name = "there"
	}

	escapedSubject := template.HTMLEscapeString(subject)
	escapedGreeting := template.HTMLEscapeString(fmt.Sprintf("Hi %s,", name))
	escapedMessage := template.HTMLEscapeString(strings.TrimSpace(message))
	escapedMessage = strings.ReplaceAll(strings.ReplaceAll(escapedMessage, "\r\n", "\n"), "\r", "\n")
	escapedMessage = strings.ReplaceAll(escapedMessage, "\n", "<br />")

	action := ""
	if link != "" {
		action = fmt.Sprintf(`<p style="margin:20px 0 0 0;"><a href="%s" style="color:#2563eb;">Open in Taskboard</a></p>`,
			template.HTMLEscapeString(link))
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>%s</title>
</head>
<body style="margin:0;padding:0;background-color:#f9fafb;font-family:'Segoe UI',Tahoma,Arial,sans-serif;">
<div style="max-width:640px;margin:0 auto;padding:24px 20px;">
  <div style="background-color:#ffffff;border:1px solid #e5e7eb;border-radius:12px;padding:24px 24px 28px 24px;">
    <p style="margin:0 0 16px 0;font-size:16px;line-height:1.7;color:#111827;">%s</p>
    <p style="margin:0 0 0 0;font-size:16px;line-height:1.7;color:#111827;word-break:break-word;">%s</p>
    %s
  </div>
</div>
</body>
</html>`, escapedSubject, escapedGreeting, escapedMessage, action)
}

var digestTemplate = template.Must(template.New("digest").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Subject}}</title>
</head>
<body style="margin:0;padding:0;background-color:#f9fafb;font-family:'Segoe UI',Tahoma,Arial,sans-serif;">
<div style="max-width:640px;margin:0 auto;padding:24px 20px;">
  <div style="background-color:#ffffff;border:1px solid #e5e7eb;border-radius:12px;padding:24px;">
    <p style="margin:0 0 16px 0;font-size:16px;color:#111827;">Hi {{.Name}},</p>
    <p style="margin:0 0 16px 0;font-size:16px;color:#111827;">Here is what happened since your last summary:</p>
    <ul style="padding-left:20px;margin:0;">
    {{- range .Items}}
      <li style="margin:0 0 12px 0;font-size:15px;color:#111827;">
        <strong>{{.Title}}</strong><br />{{.Message}}
        {{- if .Link}}<br /><a href="{{.Link}}" style="color:#2563eb;">Open</a>{{end}}
      </li>
    {{- end}}
    </ul>
  </div>
</div>
</body>
</html>`))

type digestItem struct {
	Title   string
	Message string
	Link    string
}

func (e *EmailChannel) renderDigest(subject, name string, items []models.Notification) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "there"
	}
	data := struct {
		Subject string
		Name    string
		Items   []digestItem
	}{Subject: subject, Name: name}
	for _, n := range items {
		data.Items = append(data.Items, digestItem{Title: n.Title, Message: n.Message, Link: e.absoluteLink(n.Link)})
	}

	var buf bytes.Buffer
	if err := digestTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render digest: %w", err)
	}
	return buf.String(), nil
}
