package notify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"text/template"
	"time"

	"tagpay/internal/config"
	"tagpay/internal/domain/ports/adapter"
)

// sendMailFunc matches smtp.SendMail.
type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailNotifier sends the buyer a confirmation with the tag's new target.
type EmailNotifier struct {
	addr string
	auth smtp.Auth
	from string
	send sendMailFunc
	now  func() time.Time
}

var _ adapter.Notifier = (*EmailNotifier)(nil)

func NewEmailNotifier(cfg *config.MailConfig) (*EmailNotifier, error) {
	if cfg == nil || cfg.Host == "" || cfg.From == "" {
		return nil, errors.New("mail host and from are required")
	}
	port := cfg.Port
	if port == 0 {
		port = 587
	}
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &EmailNotifier{
		addr: net.JoinHostPort(cfg.Host, strconv.Itoa(port)),
		auth: auth,
		from: cfg.From,
		send: smtp.SendMail,
		now:  time.Now,
	}, nil
}

func (e *EmailNotifier) Name() string { return "email" }

func (e *EmailNotifier) NotifyActivation(ctx context.Context, n adapter.ActivationNotice) error {
	if strings.ContainsAny(n.UserEmail, "\r\n") {
		return fmt.Errorf("refusing recipient with line breaks")
	}
	msg, err := e.buildMessage(n)
	if err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() { done <- e.send(e.addr, e.auth, e.from, []string{n.UserEmail}, msg) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

var activationMail = template.Must(template.New("mail").Parse(`Hi {{.UserName}},

Your tag {{.Token}} is now active. Anyone who taps it will be sent to:

{{.TargetURL}}

If you did not activate this tag, reply to this email.
`))

func (e *EmailNotifier) buildMessage(n adapter.ActivationNotice) ([]byte, error) {
	var body strings.Builder
	if err := activationMail.Execute(&body, n); err != nil {
		return nil, err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", e.from)
	fmt.Fprintf(&b, "To: %s\r\n", n.UserEmail)
	fmt.Fprintf(&b, "Subject: Your tag %s is active\r\n", n.Token)
	fmt.Fprintf(&b, "Date: %s\r\n", e.now().UTC().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(strings.ReplaceAll(body.String(), "\n", "\r\n"))
	return []byte(b.String()), nil
}
