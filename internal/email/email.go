// Package email sends transactional mail over SMTP via go-mail. The
// Mailer type satisfies the notifier interfaces of the auth, order,
// purchase, scraper, webhook, and timer planes.
package email

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/wneessen/go-mail"
)

// Config holds SMTP connection parameters. Username and password are
// optional for servers that allow unauthenticated relay.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	AdminTo  string // destination for operational alerts
}

// Message is one outbound email.
type Message struct {
	To             []string
	Subject        string
	TextBody       string
	HTMLBody       string
	Attachment     []byte
	AttachmentName string
}

// Mailer sends mail through a single SMTP endpoint.
type Mailer struct {
	cfg    Config
	logger zerolog.Logger
}

func NewMailer(cfg Config, logger zerolog.Logger) *Mailer {
	return &Mailer{cfg: cfg, logger: logger.With().Str("component", "email").Logger()}
}

// Send builds and delivers one message. TLS mode follows the port:
// implicit TLS on 465, mandatory STARTTLS on 587, opportunistic
// elsewhere.
func (m *Mailer) Send(ctx context.Context, msg *Message) error {
	out := mail.NewMsg()
	from := m.cfg.From
	if m.cfg.FromName != "" {
		if err := out.FromFormat(m.cfg.FromName, from); err != nil {
			return fmt.Errorf("invalid from address: %w", err)
		}
	} else if err := out.From(from); err != nil {
		return fmt.Errorf("invalid from address: %w", err)
	}
	if err := out.To(msg.To...); err != nil {
		return fmt.Errorf("invalid to address: %w", err)
	}
	out.Subject(msg.Subject)

	switch {
	case msg.HTMLBody != "" && msg.TextBody != "":
		out.SetBodyString(mail.TypeTextPlain, msg.TextBody)
		out.AddAlternativeString(mail.TypeTextHTML, msg.HTMLBody)
	case msg.HTMLBody != "":
		out.SetBodyString(mail.TypeTextHTML, msg.HTMLBody)
	default:
		out.SetBodyString(mail.TypeTextPlain, msg.TextBody)
	}
	if len(msg.Attachment) > 0 {
		name := msg.AttachmentName
		if name == "" {
			name = "attachment"
		}
		out.AttachReadSeeker(name, bytes.NewReader(msg.Attachment))
	}

	client, err := mail.NewClient(m.cfg.Host, m.clientOptions()...)
	if err != nil {
		return fmt.Errorf("failed to create smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, out); err != nil {
		m.logger.Error().Err(err).Strs("to", msg.To).Str("subject", msg.Subject).Msg("send failed")
		return fmt.Errorf("failed to send email: %w", err)
	}
	m.logger.Info().Strs("to", msg.To).Str("subject", msg.Subject).Msg("email sent")
	return nil
}

func (m *Mailer) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithTimeout(30 * time.Second),
	}
	switch m.cfg.Port {
	case 465:
		opts = append(opts, mail.WithSSL())
	case 587:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	default:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if m.cfg.Username != "" && m.cfg.Password != "" {
		opts = append(opts,
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
			mail.WithSMTPAuth(mail.SMTPAuthAutoDiscover),
		)
	}
	return opts
}

// TestConnection verifies SMTP connectivity and auth without sending.
func (m *Mailer) TestConnection() error {
	client, err := mail.NewClient(m.cfg.Host, m.clientOptions()...)
	if err != nil {
		return err
	}
	if err := client.DialWithContext(context.Background()); err != nil {
		return err
	}
	return client.Close()
}
