package main

import (
	"errors"
	"fmt"
	"log"
	"net/smtp"
	"strings"

	"github.com/slack-go/slack"
)

// Notifier is the notification transport. Absence of configuration is
// a valid state: callers check IsConfigured and skip the send, so an
// unconfigured transport never fails an item.
type Notifier interface {
	IsConfigured() bool
	Send(recipient, subject, textBody, htmlBody string) error
}

func NewNotifier(cfg Config) Notifier {
	var notifiers []Notifier
	if cfg.SlackConfigured() {
		notifiers = append(notifiers, &SlackNotifier{
			api:       slack.New(cfg.SlackBotToken),
			channelID: cfg.SlackChannelID,
		})
	}
	if cfg.SMTPConfigured() {
		notifiers = append(notifiers, &SMTPNotifier{
			host:     cfg.SMTPHost,
			port:     cfg.SMTPPort,
			username: cfg.SMTPUsername,
			password: cfg.SMTPPassword,
		})
	}
	if len(notifiers) == 0 {
		log.Println("Notifications disabled (neither Slack nor SMTP is configured)")
	}
	return MultiNotifier(notifiers)
}

// SlackNotifier posts to a fixed channel; the recipient argument is
// ignored since the channel is the audience.
type SlackNotifier struct {
	api       *slack.Client
	channelID string
}

func (n *SlackNotifier) IsConfigured() bool {
	return n.api != nil && n.channelID != ""
}

func (n *SlackNotifier) Send(_, subject, textBody, _ string) error {
	if !n.IsConfigured() {
		return nil
	}
	msg := fmt.Sprintf("*%s*\n%s", subject, textBody)
	_, _, err := n.api.PostMessage(n.channelID, slack.MsgOptionText(msg, false))
	if err != nil {
		return fmt.Errorf("posting to slack: %w", err)
	}
	return nil
}

// SMTPNotifier sends multipart plain+HTML mail.
type SMTPNotifier struct {
	host     string
	port     int
	username string
	password string
}

func (n *SMTPNotifier) IsConfigured() bool {
	return n.host != "" && n.username != ""
}

func (n *SMTPNotifier) Send(recipient, subject, textBody, htmlBody string) error {
	if !n.IsConfigured() {
		return nil
	}
	if recipient == "" {
		return fmt.Errorf("no recipient configured")
	}

	msg := buildMIMEMessage(n.username, recipient, subject, textBody, htmlBody)
	addr := fmt.Sprintf("%s:%d", n.host, n.port)
	auth := smtp.PlainAuth("", n.username, n.password, n.host)

	if err := smtp.SendMail(addr, auth, n.username, []string{recipient}, []byte(msg)); err != nil {
		return fmt.Errorf("sending mail via %s: %w", addr, err)
	}
	return nil
}

const mimeBoundary = "mathsolver-alt-boundary"

func buildMIMEMessage(from, to, subject, textBody, htmlBody string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")

	if htmlBody == "" {
		b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
		b.WriteString(textBody)
		return b.String()
	}

	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", mimeBoundary)
	fmt.Fprintf(&b, "--%s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n", mimeBoundary, textBody)
	fmt.Fprintf(&b, "--%s\r\nContent-Type: text/html; charset=utf-8\r\n\r\n%s\r\n", mimeBoundary, htmlBody)
	fmt.Fprintf(&b, "--%s--\r\n", mimeBoundary)
	return b.String()
}

// MultiNotifier fans out to every configured transport and reports the
// combined failures.
type MultiNotifier []Notifier

func (m MultiNotifier) IsConfigured() bool {
	for _, n := range m {
		if n.IsConfigured() {
			return true
		}
	}
	return false
}

func (m MultiNotifier) Send(recipient, subject, textBody, htmlBody string) error {
	var errs []error
	for _, n := range m {
		if !n.IsConfigured() {
			continue
		}
		if err := n.Send(recipient, subject, textBody, htmlBody); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
