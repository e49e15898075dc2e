package notify

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/shandysiswandi/minibank/internal/identity/entity"
	"github.com/shandysiswandi/minibank/internal/pkg/instrument"
	"github.com/shandysiswandi/minibank/internal/pkg/mail"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const defaultAppName = "Minibank"

var bodyTpl = template.Must(template.New("otp").Parse(`<p>Hello,</p>
<p>Your {{.AppName}} {{.Purpose}} code is <strong>{{.Code}}</strong>.</p>
<p>The code expires soon. If you did not ask for it, ignore this email.</p>`))

type Config struct {
	AppName string
	// Retries is how many times a failed send is repeated.
	Retries uint64
	Backoff time.Duration
}

// Mail delivers one-time codes by email.
type Mail struct {
	client mail.Mail
	ins    instrument.Instrumentation
	cfg    Config
}

func New(client mail.Mail, ins instrument.Instrumentation, cfg Config) *Mail {
	if cfg.AppName == "" {
		cfg.AppName = defaultAppName
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 200 * time.Millisecond
	}

	return &Mail{client: client, ins: ins, cfg: cfg}
}

// SendOTP mails code to destination, labelled with purpose in both the
// subject and the body. Transient failures are retried.
func (m *Mail) SendOTP(ctx context.Context, destination, code string, purpose entity.Purpose) (err error) {
	ctx, span := m.ins.Tracer("identity.outbound.notify").Start(ctx, "SendOTP")
	span.SetAttributes(attribute.String("purpose", purpose.String()))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	msg, err := m.message(destination, code, purpose)
	if err != nil {
		return err
	}

	b := retry.WithMaxRetries(m.cfg.Retries, retry.NewExponential(m.cfg.Backoff))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := m.client.Send(ctx, msg)
		if err == nil || permanent(err) {
			return err
		}
		return retry.RetryableError(err)
	})
}

func (m *Mail) message(destination, code string, purpose entity.Purpose) (mail.Message, error) {
	var buf bytes.Buffer
	err := bodyTpl.Execute(&buf, map[string]string{
		"AppName": m.cfg.AppName,
		"Purpose": purpose.String(),
		"Code":    code,
	})
	if err != nil {
		return mail.Message{}, err
	}

	return mail.Message{
		To:       []string{destination},
		Subject:  m.cfg.AppName + " " + purpose.String() + " code",
		TextBody: "Your " + m.cfg.AppName + " " + purpose.String() + " code is " + code + ".",
		HTMLBody: buf.String(),
	}, nil
}

func permanent(err error) bool {
	return errors.Is(err, mail.ErrSMTPNoRecipients) ||
		errors.Is(err, mail.ErrSMTPNoSender) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
