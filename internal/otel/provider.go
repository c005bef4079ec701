// Package otel provides OpenTelemetry tracer provider initialization and management.
package otel

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/mrzor/strace-tree/internal/config"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const exportTimeout = 10 * time.Second

// InitProvider initializes the OpenTelemetry tracer provider exporting over OTLP/HTTP.
// When traceID is valid, every root span created by the provider uses it.
//
// Note: the HTTP client honors HTTP_PROXY, HTTPS_PROXY and NO_PROXY through
// Go's standard net/http transport.
func InitProvider(cfg *config.OTELConfig, traceID trace.TraceID) (*sdktrace.TracerProvider, error) {
	ctx, cancel := context.WithTimeout(context.Background(), exportTimeout)
	defer cancel()

	endpoint := cfg.GetEndpoint()

	log.WithFields(log.Fields{
		"service":  cfg.ServiceName,
		"endpoint": endpoint,
		"insecure": cfg.Insecure,
	}).Debug("OTEL configuration")

	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithTimeout(exportTimeout),
	}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	res, err := NewResource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	providerOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	}
	if traceID.IsValid() {
		providerOpts = append(providerOpts, sdktrace.WithIDGenerator(NewFixedTraceIDGenerator(traceID)))
	}

	return sdktrace.NewTracerProvider(providerOpts...), nil
}

// NewResource builds the service resource, including OTEL_RESOURCE_ATTRIBUTES.
func NewResource(ctx context.Context, cfg *config.OTELConfig) (*resource.Resource, error) {
	resourceAttrs := []resource.Option{
		resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)),
	}

	if customAttrs := cfg.ParseResourceAttributes(); len(customAttrs) > 0 {
		resourceAttrs = append(resourceAttrs, resource.WithAttributes(customAttrs...))
	}

	res, err := resource.New(ctx, resourceAttrs...)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

// ShutdownProvider gracefully shuts down the tracer provider, flushing any remaining spans.
func ShutdownProvider(tp *sdktrace.TracerProvider, ctx context.Context) error {
	if tp == nil {
		return nil
	}

	if err := tp.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown tracer provider: %w", err)
	}

	return nil
}

// FixedTraceIDGenerator hands out one trace ID and random span IDs.
type FixedTraceIDGenerator struct {
	traceID trace.TraceID
}

// NewFixedTraceIDGenerator returns an ID generator pinned to traceID.
func NewFixedTraceIDGenerator(traceID trace.TraceID) *FixedTraceIDGenerator {
	return &FixedTraceIDGenerator{traceID: traceID}
}

// NewIDs implements sdktrace.IDGenerator.
func (g *FixedTraceIDGenerator) NewIDs(ctx context.Context) (trace.TraceID, trace.SpanID) {
	return g.traceID, g.NewSpanID(ctx, g.traceID)
}

// NewSpanID implements sdktrace.IDGenerator.
func (g *FixedTraceIDGenerator) NewSpanID(_ context.Context, _ trace.TraceID) trace.SpanID {
	var sid trace.SpanID
	for !sid.IsValid() {
		_, _ = rand.Read(sid[:])
	}
	return sid
}

// RandomTraceID returns a new random, valid trace ID.
func RandomTraceID() trace.TraceID {
	var tid trace.TraceID
	for !tid.IsValid() {
		_, _ = rand.Read(tid[:])
	}
	return tid
}
