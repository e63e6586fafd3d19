// Package mail delivers one-time sign-in codes.
package mail

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"time"

	gomail "github.com/wneessen/go-mail"
)

const (
	DefaultPort    = 587
	DefaultTimeout = 15 * time.Second
	senderName     = "Noteapp"
	otpSubject     = "Your OTP Code"
)

var otpBody = template.Must(template.New("otp").Parse(
	`<p>Your OTP code is:</p><h2>{{.Code}}</h2><p>It is valid for {{.Minutes}} minutes.</p>`))

// Config configures SMTP delivery. Username may be empty for relays that do
// not authenticate.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string // bare address; shown as "Noteapp <From>"
	Timeout  time.Duration
	ValidFor time.Duration // how long a code is valid, quoted in the body
}

// SMTPMailer sends codes over SMTP, upgrading to TLS when the server offers it.
type SMTPMailer struct {
	cfg    Config
	client *gomail.Client
}

func NewSMTPMailer(cfg Config) (*SMTPMailer, error) {
	if cfg.Host == "" {
		return nil, errors.New("mail: smtp host is required")
	}
	if cfg.From == "" {
		return nil, errors.New("mail: sender address is required")
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.ValidFor == 0 {
		cfg.ValidFor = 10 * time.Minute
	}

	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(cfg.Timeout),
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}
	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("mail: new client: %w", err)
	}
	return &SMTPMailer{cfg: cfg, client: client}, nil
}

// SendOTP emails code to the given address.
func (m *SMTPMailer) SendOTP(ctx context.Context, to, code string) error {
	msg, err := m.message(to, code)
	if err != nil {
		return err
	}
	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("mail: send to %s: %w", to, err)
	}
	return nil
}

func (m *SMTPMailer) message(to, code string) (*gomail.Msg, error) {
	minutes := int(m.cfg.ValidFor / time.Minute)

	msg := gomail.NewMsg()
	if err := msg.FromFormat(senderName, m.cfg.From); err != nil {
		return nil, fmt.Errorf("mail: sender %q: %w", m.cfg.From, err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("mail: recipient %q: %w", to, err)
	}
	msg.Subject(otpSubject)
	err := msg.SetBodyHTMLTemplate(otpBody, struct {
		Code    string
		Minutes int
	}{code, minutes})
	if err != nil {
		return nil, fmt.Errorf("mail: render body: %w", err)
	}
	msg.AddAlternativeString(gomail.TypeTextPlain,
		fmt.Sprintf("Your OTP code is: %s\nIt is valid for %d minutes.\n", code, minutes))
	return msg, nil
}
