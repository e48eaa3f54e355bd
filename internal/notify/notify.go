package notify

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"strings"
	"text/template"

	appErrors "github.com/saf-slovakia/accountancy/customErrors"
	"github.com/saf-slovakia/accountancy/internal/contextutil"
	"github.com/saf-slovakia/accountancy/logging"
)

// Role names a configured group of recipients.
type Role string

const (
	RoleSAF        Role = "SAF_FM"
	RoleUltimate   Role = "ULT_FM"
	RoleDiscgolf   Role = "DG_FM"
	RoleAccountant Role = "ACCOUNTANT"
)

const (
	DefaultRecipient = "safslovakia@gmail.com"
	DefaultFrom      = "info@szf.sk"
)

const (
	TemplateReminder    = "reminder"
	TemplateChangeState = "change_state"
	TemplateSendInvoice = "send_invoice"
)

//go:embed templates/*.txt
var templateFS embed.FS

type SMTPConfig struct {
	Host string
	Port int
	User string
	Pass string
}

type Config struct {
	Recipients    map[Role][]string
	From          string
	SubjectPrefix string
	SMTP          SMTPConfig
}

// DefaultRecipients maps every known role to the federation mailbox.
func DefaultRecipients() map[Role][]string {
	return map[Role][]string{
		RoleSAF:        {DefaultRecipient},
		RoleUltimate:   {DefaultRecipient},
		RoleDiscgolf:   {DefaultRecipient},
		RoleAccountant: {DefaultRecipient},
	}
}

// Target is either a role or an explicit address list, never both.
type Target struct {
	Role      Role
	Addresses []string
}

func ToRole(role Role) Target {
	return Target{Role: role}
}

func To(addresses ...string) Target {
	return Target{Addresses: addresses}
}

func (t Target) String() string {
	if t.Role != "" {
		return string(t.Role)
	}
	return strings.Join(t.Addresses, ",")
}

// TransactionInfo is the transaction as the templates see it.
type TransactionInfo struct {
	ID            string
	Section       string
	Amount        string
	Description   string
	State         string
	Requester     string
	TypeName      string
	Provider      string
	BusinessID    string
	InvoiceNumber string
	DatePayed     string
}

type Context struct {
	Model string
	T     TransactionInfo
}

type Message struct {
	To         Target
	Subject    string
	Template   string
	Context    Context
	Attachment string
}

// Email is a rendered message ready for delivery.
type Email struct {
	From       string
	To         []string
	Subject    string
	Body       string
	Attachment string
}

type Sender interface {
	Deliver(ctx context.Context, email Email) error
}

type Notifier struct {
	cfg       Config
	sender    Sender
	templates *template.Template
}

func New(cfg Config, sender Sender) (*Notifier, error) {
	templates, err := template.ParseFS(templateFS, "templates/*.txt")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}
	if cfg.From == "" {
		cfg.From = DefaultFrom
	}
	if cfg.Recipients == nil {
		cfg.Recipients = DefaultRecipients()
	}
	return &Notifier{
		cfg:       cfg,
		sender:    sender,
		templates: templates,
	}, nil
}

// Resolve turns a target into addresses. Unknown roles are rejected.
func (n *Notifier) Resolve(target Target) ([]string, error) {
	if target.Role == "" {
		var addresses []string
		for _, address := range target.Addresses {
			if address = strings.TrimSpace(address); address != "" {
				addresses = append(addresses, address)
			}
		}
		if len(addresses) == 0 {
			return nil, appErrors.ErrorResponse{
				Code:    appErrors.ErrInvalidInput,
				Message: "The message has no recipients.",
			}
		}
		return addresses, nil
	}

	addresses, ok := n.cfg.Recipients[target.Role]
	if !ok {
		return nil, appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: fmt.Sprintf("Unknown message recipient: %s", target.Role),
		}
	}
	if len(addresses) == 0 {
		return []string{DefaultRecipient}, nil
	}
	return addresses, nil
}

func (n *Notifier) Render(templateName string, data Context) (string, error) {
	var body bytes.Buffer
	if err := n.templates.ExecuteTemplate(&body, templateName+".txt", data); err != nil {
		return "", fmt.Errorf("failed to render '%s' template: %w", templateName, err)
	}
	return body.String(), nil
}

func (n *Notifier) Send(ctx context.Context, msg Message) error {
	traceID := contextutil.TraceIDFromContext(ctx)

	recipients, err := n.Resolve(msg.To)
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to resolve recipients '%s' in Notifier.Send() function | Error: %v", traceID, msg.To, err)
		return err
	}

	body, err := n.Render(msg.Template, msg.Context)
	if err != nil {
		return err
	}

	email := Email{
		From:       n.cfg.From,
		To:         recipients,
		Subject:    n.cfg.SubjectPrefix + msg.Subject,
		Body:       body,
		Attachment: msg.Attachment,
	}

	if err := n.sender.Deliver(ctx, email); err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to deliver '%s' to %v in Notifier.Send() function | Error: %v", traceID, email.Subject, recipients, err)
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Failed to send the notification email.",
		}
	}

	logging.Logger.Infof("[TraceID=%s] | sent '%s' to %v", traceID, email.Subject, recipients)
	return nil
}
