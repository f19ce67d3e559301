// Package telemetry holds the OpenTelemetry instruments recorded by the account services.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "social-accounts"

// Outcomes recorded on backup code consumption.
const (
	ResultUsed    = "used"
	ResultInvalid = "invalid"
)

// Instruments groups the counters recorded by the registration and backup code services.
// The zero value and a nil *Instruments record nothing.
type Instruments struct {
	registrations         metric.Int64Counter
	registrationsRejected metric.Int64Counter
	codesGenerated        metric.Int64Counter
	codesConsumed         metric.Int64Counter
}

// NewInstruments creates the instruments on the global MeterProvider.
func NewInstruments() (*Instruments, error) {
	return NewInstrumentsWithProvider(otel.GetMeterProvider())
}

// NewInstrumentsWithProvider creates the instruments on mp.
func NewInstrumentsWithProvider(mp metric.MeterProvider) (*Instruments, error) {
	m := mp.Meter(meterName)
	var (
		in  Instruments
		err error
	)
	if in.registrations, err = m.Int64Counter("accounts.registrations",
		metric.WithDescription("Accepted signups.")); err != nil {
		return nil, err
	}
	if in.registrationsRejected, err = m.Int64Counter("accounts.registrations.rejected",
		metric.WithDescription("Refused signups, by first failing field.")); err != nil {
		return nil, err
	}
	if in.codesGenerated, err = m.Int64Counter("accounts.backup_codes.generated",
		metric.WithDescription("Backup codes issued.")); err != nil {
		return nil, err
	}
	if in.codesConsumed, err = m.Int64Counter("accounts.backup_codes.consumed",
		metric.WithDescription("Backup code redemption attempts, by result.")); err != nil {
		return nil, err
	}
	return &in, nil
}

// RegistrationAccepted counts one accepted signup.
func (in *Instruments) RegistrationAccepted(ctx context.Context) {
	if in == nil || in.registrations == nil {
		return
	}
	in.registrations.Add(ctx, 1)
}

// RegistrationRejected counts one refused signup attributed to field.
func (in *Instruments) RegistrationRejected(ctx context.Context, field string) {
	if in == nil || in.registrationsRejected == nil {
		return
	}
	in.registrationsRejected.Add(ctx, 1, metric.WithAttributes(attribute.String("field", field)))
}

// CodesGenerated counts n freshly issued backup codes.
func (in *Instruments) CodesGenerated(ctx context.Context, n int) {
	if in == nil || in.codesGenerated == nil {
		return
	}
	in.codesGenerated.Add(ctx, int64(n))
}

// CodeConsumed counts one redemption attempt with result ResultUsed or ResultInvalid.
func (in *Instruments) CodeConsumed(ctx context.Context, result string) {
	if in == nil || in.codesConsumed == nil {
		return
	}
	in.codesConsumed.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}
