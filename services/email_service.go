package services

import (
	"errors"
	"fmt"
	"html"

	"github.com/sahilchouksey/lessionprm-api/config"
	"github.com/sahilchouksey/lessionprm-api/model"
	"github.com/sahilchouksey/lessionprm-api/utils/logger"
	"gopkg.in/gomail.v2"
)

var ErrSMTPNotConfigured = errors.New("SMTP not configured")

// Mailer sends the transactional mails of the platform. Callers treat every
// error as non-fatal.
type Mailer interface {
	SendVerificationEmail(to, name, token string) error
	SendPasswordResetEmail(to, name, token string) error
	SendWelcomeEmail(to, name string) error
	SendPaymentReceipt(to, name string, invoice *model.Invoice, courseTitle string) error
}

// messageSender is satisfied by *gomail.Dialer
type messageSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailService handles sending emails via SMTP
type EmailService struct {
	sender     messageSender
	from       string
	appURL     string
	configured bool
}

func NewEmailService(env *config.EnvironmentVariable) *EmailService {
	return &EmailService{
		sender:     gomail.NewDialer(env.SMTP_HOST, env.SMTP_PORT, env.SMTP_USERNAME, env.SMTP_PASSWORD),
		from:       env.SMTP_FROM,
		appURL:     env.APP_URL,
		configured: env.SMTP_USERNAME != "" && env.SMTP_PASSWORD != "",
	}
}

// IsConfigured checks if SMTP is properly configured
func (e *EmailService) IsConfigured() bool {
	return e.configured
}

func (e *EmailService) SendVerificationEmail(to, name, token string) error {
	link := fmt.Sprintf("%s/verify-email?token=%s", e.appURL, token)
	body := fmt.Sprintf(`<p>Hello %s,</p>
<p>Thanks for signing up. Please confirm your email address:</p>
<p><a href="%s" class="button">Verify email</a></p>
<p class="link-text">%s</p>`, html.EscapeString(displayName(name)), link, link)

	return e.send(to, "Verify your email - LessionPRM", layout("Verify your email", body))
}

func (e *EmailService) SendPasswordResetEmail(to, name, token string) error {
	link := fmt.Sprintf("%s/reset-password?token=%s", e.appURL, token)
	body := fmt.Sprintf(`<p>Hello %s,</p>
<p>We received a request to reset your password. Click the button below to choose a new one:</p>
<p><a href="%s" class="button">Reset password</a></p>
<p class="link-text">%s</p>
<div class="warning"><strong>Important:</strong> this link expires in 1 hour. If you did not ask for a reset, ignore this email.</div>`,
		html.EscapeString(displayName(name)), link, link)

	return e.send(to, "Reset your password - LessionPRM", layout("Reset your password", body))
}

func (e *EmailService) SendWelcomeEmail(to, name string) error {
	body := fmt.Sprintf(`<p>Hello %s,</p>
<p>Your email is verified. Browse the catalog and start learning:</p>
<p><a href="%s/courses" class="button">Browse courses</a></p>`, html.EscapeString(displayName(name)), e.appURL)

	return e.send(to, "Welcome to LessionPRM", layout("Welcome aboard", body))
}

func (e *EmailService) SendPaymentReceipt(to, name string, invoice *model.Invoice, courseTitle string) error {
	paidAt := "-"
	if invoice.PaidAt != nil {
		paidAt = invoice.PaidAt.Format("2006-01-02 15:04 MST")
	}
	transID := "-"
	if invoice.TransactionID != nil {
		transID = *invoice.TransactionID
	}

	body := fmt.Sprintf(`<p>Hello %s,</p>
<p>We received your payment. You now have access to <strong>%s</strong>.</p>
<table>
<tr><td>Invoice</td><td>%s</td></tr>
<tr><td>Amount</td><td>%s VND</td></tr>
<tr><td>Transaction</td><td>%s</td></tr>
<tr><td>Paid at</td><td>%s</td></tr>
</table>
<p><a href="%s/my-courses" class="button">Start learning</a></p>`,
		html.EscapeString(displayName(name)),
		html.EscapeString(courseTitle),
		invoice.InvoiceNumber,
		invoice.TotalAmount.StringFixed(0),
		html.EscapeString(transID),
		paidAt,
		e.appURL,
	)

	return e.send(to, "Payment receipt "+invoice.InvoiceNumber+" - LessionPRM", layout("Payment received", body))
}

func (e *EmailService) send(to, subject, htmlBody string) error {
	if !e.configured {
		logger.Logger.Warn().Str("to", to).Str("subject", subject).Msg("SMTP not configured, email not sent")
		return ErrSMTPNotConfigured
	}

	m := gomail.NewMessage()
	m.SetHeader("From", e.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	if err := e.sender.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func displayName(name string) string {
	if name == "" {
		return "there"
	}
	return name
}

func layout(title, content string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>%s</title>
    <style>
        body { font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; background-color: #f5f5f5; }
        .container { background-color: #ffffff; border-radius: 8px; padding: 40px; }
        h2 { color: #1a4d8f; margin-top: 0; }
        .button { display: inline-block; background-color: #1a4d8f; color: #ffffff !important; padding: 12px 24px; text-decoration: none; border-radius: 6px; font-weight: 600; }
        .link-text { word-break: break-all; color: #666; font-size: 12px; background-color: #f5f5f5; padding: 10px; border-radius: 4px; }
        .warning { background-color: #fff3cd; border: 1px solid #ffc107; border-radius: 4px; padding: 12px; font-size: 13px; }
        td { padding: 4px 12px 4px 0; }
        .footer { margin-top: 30px; padding-top: 20px; border-top: 1px solid #eee; font-size: 12px; color: #666; text-align: center; }
    </style>
</head>
<body>
    <div class="container">
        <h2>%s</h2>
        %s
        <div class="footer">LessionPRM</div>
    </div>
</body>
</html>`, title, title, content)
}
