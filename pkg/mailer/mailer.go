// Package mailer sends transactional mail over SMTP.
package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/tsdip/backend/config"
)

// Template keys for invitation mail.
const (
	TemplateInviteMember      = "INVITE_MEMBER"
	TemplateInviteExistMember = "INVITE_EXIST_MEMBER"
)

type template struct {
	subject string
	body    string
}

// Params like {{org_name}} are substituted into subject and body.
var templates = map[string]template{
	TemplateInviteMember: {
		subject: "You are invited to join {{org_name}} on TSDIP",
		body:    "Hello,\r\n\r\n{{org_name}} invited you to join them on TSDIP. Sign up to accept the invitation.\r\n",
	},
	TemplateInviteExistMember: {
		subject: "{{org_name}} invited you to their organization",
		body:    "Hello,\r\n\r\n{{org_name}} invited you to join their organization on TSDIP. Log in to accept the invitation.\r\n",
	},
}

// Mailer sends templated mail via a configured SMTP relay.
type Mailer struct {
	cfg    config.EmailConfig
	logger *zap.Logger
}

// New creates a Mailer.
func New(cfg config.EmailConfig, logger *zap.Logger) *Mailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mailer{cfg: cfg, logger: logger}
}

// Send renders the template and delivers it to the recipient.
// The context bounds are advisory only; net/smtp has no context support.
func (m *Mailer) Send(ctx context.Context, to, templateKey string, params map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tmpl, ok := templates[templateKey]
	if !ok {
		return fmt.Errorf("unknown mail template: %s", templateKey)
	}
	if m.cfg.SMTPHost == "" {
		return fmt.Errorf("smtp not configured")
	}

	subject := substitute(tmpl.subject, params)
	body := substitute(tmpl.body, params)

	msg := strings.Builder{}
	fmt.Fprintf(&msg, "From: %s <%s>\r\n", m.cfg.FromName, m.cfg.FromAddress)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(body)

	addr := fmt.Sprintf("%s:%d", m.cfg.SMTPHost, m.cfg.SMTPPort)
	var auth smtp.Auth
	if m.cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", m.cfg.SMTPUser, m.cfg.SMTPPass, m.cfg.SMTPHost)
	}
	if err := smtp.SendMail(addr, auth, m.cfg.FromAddress, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	m.logger.Debug("mail sent", zap.String("to", to), zap.String("template_key", templateKey))
	return nil
}

func substitute(s string, params map[string]string) string {
	for k, v := range params {
		s = strings.ReplaceAll(s, "{{"+k+"}}", v)
	}
	return s
}
