package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/mail"
	"net/smtp"
	"strings"
	"time"
)

// ErrSMTPDisabled signals that outbound email is switched off in the
// configuration. Callers may treat it as a skip rather than a failure.
var ErrSMTPDisabled = errors.New("smtp: delivery disabled")

const defaultSendTimeout = 10 * time.Second

// Message represents a single outbound email.
type Message struct {
	From    string
	To      []string
	Subject string
	Body    string
}

// Mailer defines behaviour for sending email messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPSettings capture the runtime configuration required by the SMTP mailer.
type SMTPSettings struct {
	Enabled  bool
	Host     string
	Port     int
	Username string
	Password string
	From     string
	UseTLS   bool
	Timeout  time.Duration
}

func (s SMTPSettings) check() error {
	if !s.Enabled {
		return nil
	}
	if strings.TrimSpace(s.Host) == "" {
		return errors.New("smtp: host is required when enabled")
	}
	if s.Port == 0 {
		return errors.New("smtp: port is required when enabled")
	}
	return nil
}

// session is the slice of *smtp.Client the mailer drives. Tests substitute a
// scripted implementation through the dial hook.
type session interface {
	Mail(string) error
	Rcpt(string) error
	Data() (io.WriteCloser, error)
	Auth(smtp.Auth) error
	Extension(string) (bool, string)
	Quit() error
	Close() error
}

type dialHook func(ctx context.Context, cfg SMTPSettings) (net.Conn, session, error)
type loginHook func(s session, cfg SMTPSettings) error

type smtpMailer struct {
	cfg   SMTPSettings
	dial  dialHook
	login loginHook
}

// NewSMTPMailer builds a Mailer that delivers messages over SMTP, upgrading
// plaintext connections with STARTTLS when the server offers it.
func NewSMTPMailer(cfg SMTPSettings) (Mailer, error) {
	if err := cfg.check(); err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultSendTimeout
	}
	return &smtpMailer{cfg: cfg, dial: openSession, login: plainLogin}, nil
}

func (m *smtpMailer) Send(ctx context.Context, msg Message) error {
	if !m.cfg.Enabled {
		return ErrSMTPDisabled
	}

	sender := strings.TrimSpace(msg.From)
	if sender == "" {
		sender = m.cfg.From
	}
	recipients := dedupeRecipients(msg.To)

	if err := checkAddresses(sender, recipients); err != nil {
		return err
	}

	conn, sess, err := m.dial(ctx, m.cfg)
	if err != nil {
		return err
	}
	defer conn.Close()
	defer sess.Close()

	if err := m.login(sess, m.cfg); err != nil {
		return err
	}

	if err := sess.Mail(sender); err != nil {
		return fmt.Errorf("smtp: mail from: %w", err)
	}
	for _, rcpt := range recipients {
		if err := sess.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp: rcpt to %s: %w", rcpt, err)
		}
	}

	w, err := sess.Data()
	if err != nil {
		return fmt.Errorf("smtp: data command: %w", err)
	}
	if _, err := io.WriteString(w, encodeMessage(sender, recipients, msg.Subject, msg.Body)); err != nil {
		_ = w.Close()
		return fmt.Errorf("smtp: write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp: close data writer: %w", err)
	}

	return sess.Quit()
}

func checkAddresses(sender string, recipients []string) error {
	if sender == "" {
		return errors.New("smtp: sender address is required")
	}
	if _, err := mail.ParseAddress(sender); err != nil {
		return fmt.Errorf("smtp: invalid from address: %w", err)
	}
	if len(recipients) == 0 {
		return errors.New("smtp: at least one recipient is required")
	}
	for _, rcpt := range recipients {
		if _, err := mail.ParseAddress(rcpt); err != nil {
			return fmt.Errorf("smtp: invalid recipient address %q: %w", rcpt, err)
		}
	}
	return nil
}

func dedupeRecipients(addresses []string) []string {
	seen := make(map[string]struct{}, len(addresses))
	var out []string
	for _, addr := range addresses {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}
	return out
}

func openSession(ctx context.Context, cfg SMTPSettings) (net.Conn, session, error) {
	addr := net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port))
	nd := &net.Dialer{Timeout: cfg.Timeout}
	if ctx == nil {
		ctx = context.Background()
	}

	var (
		conn net.Conn
		err  error
	)
	if cfg.UseTLS {
		td := &tls.Dialer{NetDialer: nd, Config: &tls.Config{ServerName: cfg.Host}}
		conn, err = td.DialContext(ctx, "tcp", addr)
	} else {
		conn, err = nd.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("smtp: dial %s: %w", addr, err)
	}

	client, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("smtp: new client: %w", err)
	}

	if !cfg.UseTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: cfg.Host}); err != nil {
				_ = client.Close()
				_ = conn.Close()
				return nil, nil, fmt.Errorf("smtp: start tls: %w", err)
			}
		}
	}

	return conn, client, nil
}

func plainLogin(s session, cfg SMTPSettings) error {
	if strings.TrimSpace(cfg.Username) == "" {
		return nil
	}
	if err := s.Auth(smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)); err != nil {
		return fmt.Errorf("smtp: auth: %w", err)
	}
	return nil
}

func encodeMessage(from string, to []string, subject, body string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", sanitizeHeader(subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return b.String()
}

// sanitizeHeader folds CR/LF out of header values so callers cannot inject
// additional headers through the subject line.
func sanitizeHeader(value string) string {
	value = strings.ReplaceAll(value, "\r", " ")
	return strings.ReplaceAll(value, "\n", " ")
}
