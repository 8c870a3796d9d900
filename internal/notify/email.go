package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/mail"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/wolfman30/medspa-practice/pkg/logging"
)

const fallbackSenderName = "MedSpa Practice"

// ErrInvalidRecipient is returned before any provider call when To is not an address.
var ErrInvalidRecipient = errors.New("notify: invalid email recipient")

// EmailCategory tags outbound mail for provider-side filtering.
type EmailCategory string

const (
	CategoryInvoice  EmailCategory = "invoice"
	CategoryLowStock EmailCategory = "low_stock"
)

// EmailSender delivers one practice email.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailMessage is a plain-text email with an optional HTML alternative.
type EmailMessage struct {
	To       string
	ToName   string
	Subject  string
	Body     string
	HTML     string
	Category EmailCategory
}

func (m EmailMessage) validate() error {
	if _, err := mail.ParseAddress(strings.TrimSpace(m.To)); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidRecipient, m.To)
	}
	return nil
}

// sender is the From identity shared by the providers.
type sender struct {
	email string
	name  string
}

func newSender(email, name string) sender {
	if strings.TrimSpace(name) == "" {
		name = fallbackSenderName
	}
	return sender{email: strings.TrimSpace(email), name: name}
}

func (s sender) address() string {
	return (&mail.Address{Name: s.name, Address: s.email}).String()
}

// SendGridConfig configures the SendGrid sender.
type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

// SendGridSender delivers through the SendGrid v3 API.
type SendGridSender struct {
	client *sendgrid.Client
	from   sender
	logger *logging.Logger
}

// NewSendGridSender returns nil without an API key so callers can fall through
// to the next provider.
func NewSendGridSender(cfg SendGridConfig, logger *logging.Logger) *SendGridSender {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SendGridSender{
		client: sendgrid.NewSendClient(cfg.APIKey),
		from:   newSender(cfg.FromEmail, cfg.FromName),
		logger: logger.Component("sendgrid"),
	}
}

func (s *SendGridSender) Send(ctx context.Context, msg EmailMessage) error {
	if s.client == nil {
		return errors.New("notify: sendgrid client not configured")
	}
	if err := msg.validate(); err != nil {
		return err
	}
	htmlBody := msg.HTML
	if htmlBody == "" {
		htmlBody = "<pre>" + html.EscapeString(msg.Body) + "</pre>"
	}
	m := sgmail.NewSingleEmail(
		sgmail.NewEmail(s.from.name, s.from.email),
		msg.Subject,
		sgmail.NewEmail(msg.ToName, msg.To),
		msg.Body,
		htmlBody,
	)
	if msg.Category != "" {
		m.AddCategories(string(msg.Category))
	}

	resp, err := s.client.SendWithContext(ctx, m)
	if err != nil {
		return fmt.Errorf("notify: sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("notify: sendgrid status %d: %s", resp.StatusCode, resp.Body)
	}
	s.logger.Info("practice email sent", "to", msg.To, "category", msg.Category)
	return nil
}

// LogEmailSender only logs. It backs local runs without a provider.
type LogEmailSender struct {
	logger *logging.Logger
}

func NewLogEmailSender(logger *logging.Logger) *LogEmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogEmailSender{logger: logger}
}

func (s *LogEmailSender) Send(_ context.Context, msg EmailMessage) error {
	if err := msg.validate(); err != nil {
		return err
	}
	s.logger.Info("email logged, no provider configured", "to", msg.To, "subject", msg.Subject, "category", msg.Category)
	return nil
}
