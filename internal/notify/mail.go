package notify

import (
	"context"
	"fmt"

	"github.com/saf-slovakia/accountancy/logging"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

// SMTPSender delivers emails through an SMTP relay.
type SMTPSender struct {
	dialer *gomail.Dialer
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Pass),
	}
}

func (s *SMTPSender) Deliver(ctx context.Context, email Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", email.From)
	m.SetHeader("To", email.To...)
	m.SetHeader("Subject", email.Subject)
	m.SetBody("text/plain", email.Body)
	if email.Attachment != "" {
		m.Attach(email.Attachment)
	}

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email via %s: %w", s.dialer.Host, err)
	}
	return nil
}

// LogSender writes emails to the log instead of sending them. Used when no SMTP host is configured.
type LogSender struct{}

func (LogSender) Deliver(ctx context.Context, email Email) error {
	logging.Logger.WithFields(logrus.Fields{
		"from":       email.From,
		"to":         email.To,
		"subject":    email.Subject,
		"attachment": email.Attachment,
	}).Info("email not sent, SMTP is not configured:\n" + email.Body)
	return nil
}
