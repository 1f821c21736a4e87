package email

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/meditriage/triage-api/internal/config"
	"github.com/meditriage/triage-api/internal/model"
)

// Notifier alerts the on-call clinician about patients admitted with
// critical abnormality alerts.
type Notifier interface {
	NotifyCriticalAdmission(ctx context.Context, rec *model.PatientRecord) error
}

type smtpNotifier struct {
	cfg    config.SMTPConfig
	dialer *gomail.Dialer
}

func NewSMTPNotifier(cfg config.SMTPConfig) Notifier {
	return &smtpNotifier{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
	}
}

func (n *smtpNotifier) NotifyCriticalAdmission(_ context.Context, rec *model.PatientRecord) error {
	var critical []string
	for _, a := range rec.Alerts {
		if a.Severity == model.SeverityCritical {
			critical = append(critical, a.Message)
		}
	}
	if len(critical) == 0 {
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.From)
	m.SetHeader("To", n.cfg.OnCallEmail)
	m.SetHeader("Subject", fmt.Sprintf("[triage] critical admission %s (%s)", rec.Code, rec.EffectiveDepartment()))
	m.SetBody("text/plain", fmt.Sprintf(
		"Patient %s admitted to %s with priority %.1f.\n\nCritical alerts:\n%s\n",
		rec.Code, rec.EffectiveDepartment(), rec.PriorityScore, strings.Join(critical, "\n")))

	if err := n.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send critical admission notification: %w", err)
	}
	return nil
}

// NoopNotifier is used when SMTP is not configured.
type NoopNotifier struct{}

func (NoopNotifier) NotifyCriticalAdmission(context.Context, *model.PatientRecord) error {
	return nil
}
