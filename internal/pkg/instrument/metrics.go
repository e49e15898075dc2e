package instrument

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTPMetrics counts one-time code issuance and rejected submissions per purpose.
type OTPMetrics struct {
	issued   metric.Int64Counter
	rejected metric.Int64Counter
}

// NewOTPMetrics registers the counters on meter.
func NewOTPMetrics(meter metric.Meter) (*OTPMetrics, error) {
	issued, err := meter.Int64Counter("identity.otp.issued",
		metric.WithDescription("One-time codes generated and handed to the notifier."))
	if err != nil {
		return nil, err
	}

	rejected, err := meter.Int64Counter("identity.otp.rejected",
		metric.WithDescription("Issue or verify attempts refused, by rejection kind."))
	if err != nil {
		return nil, err
	}

	return &OTPMetrics{issued: issued, rejected: rejected}, nil
}

// Issued records a generated code.
func (m *OTPMetrics) Issued(ctx context.Context, purpose string) {
	if m == nil {
		return
	}
	m.issued.Add(ctx, 1, metric.WithAttributes(attribute.String("purpose", purpose)))
}

// Rejected records a refused issue or verify attempt.
func (m *OTPMetrics) Rejected(ctx context.Context, purpose, kind string) {
	if m == nil {
		return
	}
	m.rejected.Add(ctx, 1, metric.WithAttributes(
		attribute.String("purpose", purpose),
		attribute.String("kind", kind),
	))
}
