package notifications

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"gopkg.in/mail.v2"
)

// SMTPConfig holds the mail sink settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
	TLS      bool
}

// SMTPChannel delivers notifications as plain-text mail.
type SMTPChannel struct {
	config SMTPConfig
}

func NewSMTPChannel(config SMTPConfig) *SMTPChannel {
	return &SMTPChannel{config: config}
}

func (c *SMTPChannel) Name() string { return "smtp" }

func (c *SMTPChannel) Send(ctx context.Context, n Notification) error {
	m := mail.NewMessage()
	m.SetHeader("From", c.config.From)
	m.SetHeader("To", c.config.To)
	m.SetHeader("Subject", fmt.Sprintf("[%s] %s", n.Severity, n.Title))
	m.SetBody("text/plain", n.Body)

	d := mail.NewDialer(c.config.Host, c.config.Port, c.config.Username, c.config.Password)
	d.TLSConfig = &tls.Config{ServerName: c.config.Host}
	d.Timeout = 15 * time.Second
	if c.config.TLS {
		d.SSL = true
	} else {
		d.StartTLSPolicy = mail.OpportunisticStartTLS
	}

	done := make(chan error, 1)
	go func() {
		done <- d.DialAndSend(m)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send mail: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(15 * time.Second):
		return fmt.Errorf("timeout sending mail after 15 seconds")
	}
}
