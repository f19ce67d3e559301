// Package otel builds the OpenTelemetry providers used by the account binaries and ships audit events
// as OTel log records.
package otel

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
)

// metricInterval is how often counters are pushed to the collector.
const metricInterval = 10 * time.Second

// Providers bundles the trace, metric and log providers. Shutdown flushes and stops all three.
type Providers struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *metric.MeterProvider
	LoggerProvider *sdklog.LoggerProvider
	Shutdown       func(context.Context) error
}

// exportTarget is the OTLP gRPC collector to dial.
type exportTarget struct {
	host     string
	insecure bool
}

// NewProviders returns providers exporting spans, backup code and registration counters, and audit
// records to the OTLP collector at endpoint. An empty endpoint yields in-process providers that export
// nothing. logger receives shutdown failures and may be nil.
func NewProviders(ctx context.Context, endpoint, serviceName string, insecureOverride bool, logger *zerolog.Logger) (*Providers, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return &Providers{
			TracerProvider: sdktrace.NewTracerProvider(),
			MeterProvider:  metric.NewMeterProvider(),
			LoggerProvider: sdklog.NewLoggerProvider(),
			Shutdown:       func(context.Context) error { return nil },
		}, nil
	}
	target, err := parseEndpoint(endpoint, insecureOverride)
	if err != nil {
		return nil, err
	}
	res, err := resource.Merge(resource.Default(),
		resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceNameKey.String(serviceName)))
	if err != nil {
		return nil, fmt.Errorf("otel resource: %w", err)
	}

	var stack shutdownStack
	tp, err := newTracerProvider(ctx, target, res)
	if err != nil {
		return nil, err
	}
	stack = append(stack, tp.Shutdown)
	mp, err := newMeterProvider(ctx, target, res)
	if err != nil {
		_ = stack.run(ctx, logger)
		return nil, err
	}
	stack = append(stack, mp.Shutdown)
	lp, err := newLoggerProvider(ctx, target, res)
	if err != nil {
		_ = stack.run(ctx, logger)
		return nil, err
	}
	stack = append(stack, lp.Shutdown)

	return &Providers{
		TracerProvider: tp,
		MeterProvider:  mp,
		LoggerProvider: lp,
		Shutdown:       func(ctx context.Context) error { return stack.run(ctx, logger) },
	}, nil
}

// parseEndpoint accepts host:port or a URL and keeps only the host part; collector paths such as
// /v1/traces are dropped. Plain http and bare host:port dial without TLS, as does anything when
// forceInsecure is set.
func parseEndpoint(endpoint string, forceInsecure bool) (exportTarget, error) {
	raw := endpoint
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return exportTarget{}, fmt.Errorf("invalid OTLP endpoint %q: %w", endpoint, err)
	}
	if u.Host == "" {
		return exportTarget{}, fmt.Errorf("invalid OTLP endpoint %q: missing host", endpoint)
	}
	return exportTarget{host: u.Host, insecure: forceInsecure || u.Scheme != "https"}, nil
}

func newTracerProvider(ctx context.Context, t exportTarget, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(t.host)}
	if t.insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exp, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("otlp trace exporter: %w", err)
	}
	return sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp), sdktrace.WithResource(res)), nil
}

func newMeterProvider(ctx context.Context, t exportTarget, res *resource.Resource) (*metric.MeterProvider, error) {
	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(t.host)}
	if t.insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exp, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("otlp metric exporter: %w", err)
	}
	reader := metric.NewPeriodicReader(exp, metric.WithInterval(metricInterval))
	return metric.NewMeterProvider(metric.WithResource(res), metric.WithReader(reader)), nil
}

func newLoggerProvider(ctx context.Context, t exportTarget, res *resource.Resource) (*sdklog.LoggerProvider, error) {
	opts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(t.host)}
	if t.insecure {
		opts = append(opts, otlploggrpc.WithInsecure())
	}
	exp, err := otlploggrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("otlp log exporter: %w", err)
	}
	return sdklog.NewLoggerProvider(sdklog.WithProcessor(sdklog.NewBatchProcessor(exp)), sdklog.WithResource(res)), nil
}

// shutdownStack stops providers in reverse order of construction.
type shutdownStack []func(context.Context) error

func (s shutdownStack) run(ctx context.Context, logger *zerolog.Logger) error {
	var errs []error
	for i := len(s) - 1; i >= 0; i-- {
		if err := s[i](ctx); err != nil {
			logger.Warn().Err(err).Str("component", "telemetry").Msg("provider shutdown failed")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SetGlobal installs the TracerProvider and MeterProvider globally; services take their tracer from the
// global provider. The LoggerProvider is passed explicitly to NewAuditEmitter.
func (p *Providers) SetGlobal() {
	if p.TracerProvider != nil {
		otel.SetTracerProvider(p.TracerProvider)
	}
	if p.MeterProvider != nil {
		otel.SetMeterProvider(p.MeterProvider)
	}
}
