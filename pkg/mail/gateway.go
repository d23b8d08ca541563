package mail

import (
	"context"
	"fmt"
	"strings"
)

// Confirmation email templates known to the gateway.
const (
	TemplateConfirmation       = "confirmation_email"
	TemplateConfirmationResend = "confirmation_resend"
)

// TemplateFields carries the recipient data substituted into a named template.
type TemplateFields struct {
	UserID    string
	FirstName string
	LastName  string
	Token     string
	Link      string
	Subject   string
}

// Gateway renders a named template and enqueues delivery through a Mailer.
type Gateway interface {
	SendTemplate(ctx context.Context, templateName, recipient string, fields TemplateFields) error
}

type templateGateway struct {
	mailer Mailer
}

// NewGateway wraps a Mailer in the template-rendering Gateway used by the
// registration flow.
func NewGateway(mailer Mailer) Gateway {
	return &templateGateway{mailer: mailer}
}

func (g *templateGateway) SendTemplate(ctx context.Context, templateName, recipient string, fields TemplateFields) error {
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return fmt.Errorf("mail gateway: recipient is required")
	}

	subject, body, err := renderTemplate(templateName, fields)
	if err != nil {
		return err
	}

	if g.mailer == nil {
		return ErrSMTPDisabled
	}

	return g.mailer.Send(ctx, Message{
		To:      []string{recipient},
		Subject: subject,
		Body:    body,
	})
}

func renderTemplate(name string, fields TemplateFields) (subject, body string, err error) {
	subject = strings.TrimSpace(fields.Subject)

	switch name {
	case TemplateConfirmation:
		if subject == "" {
			subject = "Let's get you verified"
		}
		return subject, confirmationBody(fields, "Welcome to the study site"), nil
	case TemplateConfirmationResend:
		if subject == "" {
			subject = "Your new confirmation link"
		}
		return subject, confirmationBody(fields, "Here is the fresh confirmation link you asked for"), nil
	default:
		return "", "", fmt.Errorf("mail gateway: unknown template %q", name)
	}
}

func confirmationBody(fields TemplateFields, greetingLine string) string {
	var b strings.Builder

	name := strings.TrimSpace(fields.FirstName + " " + fields.LastName)
	if name == "" {
		name = "there"
	}

	fmt.Fprintf(&b, "Hi %s,\n\n", name)
	fmt.Fprintf(&b, "%s. Please confirm your email address by visiting the link below:\n%s\n\n", greetingLine, fields.Link)
	b.WriteString("The link is valid for a limited time and can only be used once.\n")
	b.WriteString("If you did not create an account, you can ignore this message.\n")

	return b.String()
}
