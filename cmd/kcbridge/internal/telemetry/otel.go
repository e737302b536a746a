package telemetry

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"

	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/config"
)

// Init installs the global OpenTelemetry tracer provider.
// With no OTLP endpoint configured it returns a no-op shutdown and leaves the
// default no-op provider in place.
func Init(ctx context.Context, cfg config.ObservabilityConfig, logger logrus.FieldLogger) (shutdown func(context.Context) error, err error) {
	if cfg.OTLPEndpoint == "" {
		logger.Info("telemetry disabled (observability.otlp_endpoint not set)")
		return func(context.Context) error { return nil }, nil
	}

	logger.WithFields(logrus.Fields{
		"endpoint": cfg.OTLPEndpoint,
		"protocol": cfg.OTLPProtocol,
		"service":  cfg.ServiceName,
	}).Info("initializing OpenTelemetry")

	if err := checkProtocol(cfg.OTLPProtocol); err != nil {
		return nil, err
	}

	res, err := newResource(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTEL resource: %w", err)
	}

	tracerProvider, err := newTracerProvider(ctx, res, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer provider: %w", err)
	}

	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		),
	)

	return func(ctx context.Context) error {
		logger.Info("shutting down OpenTelemetry")
		if err := tracerProvider.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown tracer provider: %w", err)
		}
		return nil
	}, nil
}

func checkProtocol(protocol string) error {
	switch protocol {
	case "", "http/protobuf":
		return nil
	default:
		return fmt.Errorf("unsupported OTLP protocol %q, use http/protobuf", protocol)
	}
}

// newResource merges the service attributes into the SDK default resource.
// The semconv import must share the SDK's schema URL or Merge fails.
func newResource(cfg config.ObservabilityConfig) (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironmentName(cfg.Environment),
		),
	)
}

func newTracerProvider(ctx context.Context, res *resource.Resource, cfg config.ObservabilityConfig) (*sdktrace.TracerProvider, error) {
	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(cfg.OTLPEndpoint),
	}
	if cfg.OTLPInsecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	), nil
}
