package delivery

import (
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/tickerwatch/notifier/internal/config"
	"github.com/tickerwatch/notifier/internal/domain"
)

// EmailChannel sends alert emails over SMTP. Policy decisions (preferences,
// quiet hours, daily caps) live in the Router; this type only formats and
// transmits.
type EmailChannel struct {
	cfg         config.SMTPConfig
	frontendURL string
	logger      *zap.Logger
	sendFunc    func(to, subject, htmlBody string) error // injectable for tests
}

func NewEmailChannel(cfg config.SMTPConfig, frontendURL string, logger *zap.Logger) *EmailChannel {
	c := &EmailChannel{cfg: cfg, frontendURL: frontendURL, logger: logger}
	c.sendFunc = c.sendSMTP
	return c
}

// Configured reports whether SMTP credentials are present. Local dev runs
// without them; Send becomes a no-op then.
func (c *EmailChannel) Configured() bool {
	return c.cfg.Host != "" && c.cfg.Password != ""
}

// Send formats and dispatches one alert email.
func (c *EmailChannel) Send(rule *domain.AlertRule, quote *domain.SymbolQuote, to, userName string) error {
	if !c.Configured() {
		c.logger.Debug("smtp not configured, skipping email", zap.String("alert_id", rule.ID))
		return nil
	}

	subject := emailSubject(rule)
	body := emailBody(rule, quote, userName, c.frontendURL)
	if err := c.sendFunc(to, subject, body); err != nil {
		return err
	}
	c.logger.Info("alert email sent",
		zap.String("alert_id", rule.ID),
		zap.String("symbol", rule.Symbol))
	return nil
}

// SendTest dispatches a plain connectivity-check email, used by the
// canary endpoint.
func (c *EmailChannel) SendTest(to, name string) error {
	body := fmt.Sprintf(
		"<html><body><p>Hi %s,</p><p>This is a test notification from the alert engine. "+
			"If you are reading this, SMTP delivery works.</p></body></html>", name)
	return c.sendFunc(to, "TickerWatch delivery test", body)
}

func (c *EmailChannel) sendSMTP(to, subject, htmlBody string) error {
	auth := smtp.PlainAuth("", c.cfg.Username, c.cfg.Password, c.cfg.Host)

	// Strip CR/LF from values that end up in headers so a crafted rule
	// name or address cannot inject extra headers.
	safeTo := sanitizeHeader(to)
	safeSubject := sanitizeHeader(subject)
	safeFrom := sanitizeHeader(c.cfg.FromEmail)
	safeFromName := sanitizeHeader(c.cfg.FromName)

	msg := fmt.Sprintf(
		"From: %s <%s>\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		safeFromName, safeFrom, safeTo, safeSubject, htmlBody,
	)

	addr := fmt.Sprintf("%s:%d", c.cfg.Host, c.cfg.Port)
	if err := smtp.SendMail(addr, auth, c.cfg.FromEmail, []string{safeTo}, []byte(msg)); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

func sanitizeHeader(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", "")
	return s
}
