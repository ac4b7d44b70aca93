package notify

import (
	"context"

	"github.com/go-faster/errors"
	gomail "gopkg.in/gomail.v2"

	"github.com/xenking/orderflow/internal/domain/order"
)

// Dialer sends composed messages. *gomail.Dialer implements it.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// Mailer renders order e-mails and sends them over SMTP.
type Mailer struct {
	from   string
	dialer Dialer
	tmpl   *Templates
}

// NewMailer creates a Mailer from SMTP settings.
func NewMailer(cfg SMTPConfig) (*Mailer, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp host is required")
	}
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	d.SSL = cfg.SSL
	return NewMailerWithDialer(cfg.From, d)
}

// NewMailerWithDialer creates a Mailer that sends through d.
func NewMailerWithDialer(from string, d Dialer) (*Mailer, error) {
	tmpl, err := LoadTemplates()
	if err != nil {
		return nil, err
	}
	return &Mailer{from: from, dialer: d, tmpl: tmpl}, nil
}

// Notify composes and sends the e-mail for an order event.
func (m *Mailer) Notify(ctx context.Context, e order.Event, n order.Notification) error {
	return m.Send(ctx, Compose(e, n))
}

// Send renders and delivers msg. It returns once ctx is done even if the
// SMTP exchange is still in flight.
func (m *Mailer) Send(ctx context.Context, msg EmailMessage) error {
	if msg.To == "" {
		return errors.New("recipient is required")
	}
	plain, html, err := m.tmpl.Render(msg)
	if err != nil {
		return err
	}

	gm := gomail.NewMessage()
	gm.SetHeader("From", m.from)
	gm.SetHeader("To", msg.To)
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/plain", plain)
	gm.AddAlternative("text/html", html)

	if err := ctx.Err(); err != nil {
		return err
	}

	// gomail has no context support: the dial keeps running in the
	// background after ctx is done, its result is dropped.
	done := make(chan error, 1)
	go func() { done <- m.dialer.DialAndSend(gm) }()

	select {
	case err := <-done:
		if err != nil {
			return errors.Wrapf(err, "send %s to %s", msg.Template, msg.To)
		}
		return nil
	case <-ctx.Done():
		return errors.Wrapf(ctx.Err(), "send %s to %s", msg.Template, msg.To)
	}
}
