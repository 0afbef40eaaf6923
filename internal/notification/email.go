// Package notification delivers attack lifecycle events to operators: an
// SMTP notifier and an exec-script hook, both invoked by the attack
// manager under its hook budget.
package notification

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/mtasaka/fastnetmon/internal/model"
)

// SMTPConfig carries the mail relay settings.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	To       string `yaml:"to"`
}

// EmailNotifier sends one mail per attack onset and clear.
type EmailNotifier struct {
	cfg  SMTPConfig
	auth smtp.Auth
}

// NewEmailNotifier creates a notifier.
func NewEmailNotifier(cfg SMTPConfig) *EmailNotifier {
	// PlainAuth will not send credentials until the server identifies itself as a trusted one.
	auth := smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	return &EmailNotifier{cfg: cfg, auth: auth}
}

func (n *EmailNotifier) send(subject, body string) error {
	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	recipients := strings.Split(n.cfg.To, ",")

	msg := []byte("To: " + n.cfg.To + "\r\n" +
		"From: " + n.cfg.From + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"\r\n" +
		body)

	if err := smtp.SendMail(addr, n.auth, n.cfg.From, recipients, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// OnAttackOnset implements model.Notifier.
func (n *EmailNotifier) OnAttackOnset(attack *model.AttackDetails, description string) error {
	subject := fmt.Sprintf("FastNetMon: IP %s blocked because of %s attack", attack.Host, attack.Type)
	return n.send(subject, description)
}

// OnAttackPeak implements model.Notifier. Peak updates are not mailed;
// they would flood the operator during a long attack.
func (n *EmailNotifier) OnAttackPeak(attack *model.AttackDetails) error {
	return nil
}

// OnAttackClear implements model.Notifier.
func (n *EmailNotifier) OnAttackClear(attack *model.AttackDetails, description string) error {
	subject := fmt.Sprintf("FastNetMon: IP %s unblocked", attack.Host)
	return n.send(subject, description)
}
