// Package tracing wraps OpenTelemetry so the rest of the fabric can
// start/end spans for task dispatch and result processing without every
// caller importing go.opentelemetry.io/otel directly.
package tracing

import (
	"context"
	"io"
	"os"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/Geurney/SpaceNetwork/internal/idgen"
	"github.com/Geurney/SpaceNetwork/model/taskid"
)

const tracerName = "github.com/Geurney/SpaceNetwork"

// Init configures OpenTelemetry with the stdout exporter, writing to
// os.Stdout unless outputFile is set. Safe to call more than once — the
// first successful initialisation wins.
func Init(serviceName, serviceVersion, outputFile string) error {
	var w io.Writer = os.Stdout
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return err
		}
		w = f
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return err
	}
	return installProvider(serviceName, serviceVersion, exporter)
}

// InitWithExporter configures OpenTelemetry using an arbitrary exporter,
// for deployments that want OTLP/Jaeger/Zipkin instead of stdout.
func InitWithExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) error {
	return installProvider(serviceName, serviceVersion, exporter)
}

var (
	providerOnce sync.Once
	providerErr  error
)

func installProvider(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) error {
	if exporter == nil {
		return nil
	}
	providerOnce.Do(func() {
		res, err := resource.New(context.Background(),
			resource.WithAttributes(
				attribute.String("service.name", serviceName),
				attribute.String("service.version", serviceVersion),
			),
		)
		if err != nil {
			providerErr = err
			return
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(tp)
	})
	return providerErr
}

// Span wraps an OpenTelemetry span so callers never import
// go.opentelemetry.io/otel/trace directly.
type Span struct {
	span trace.Span
}

// SetStatus records an error status on the span, or OK if err is nil.
func (s *Span) SetStatus(err error) {
	if s == nil {
		return
	}
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
		return
	}
	s.span.SetStatus(codes.Ok, "")
}

// End finalises the span.
func (s *Span) End() {
	if s == nil {
		return
	}
	s.span.End()
}

// StartSpan starts a child span of the given kind ("SERVER", "CLIENT",
// "PRODUCER", "CONSUMER", or unset for internal).
func StartSpan(ctx context.Context, name, kind string) (context.Context, *Span) {
	tracer := otel.Tracer(tracerName)

	var spanKind trace.SpanKind
	switch kind {
	case "SERVER":
		spanKind = trace.SpanKindServer
	case "CLIENT":
		spanKind = trace.SpanKindClient
	case "PRODUCER":
		spanKind = trace.SpanKindProducer
	case "CONSUMER":
		spanKind = trace.SpanKindConsumer
	default:
		spanKind = trace.SpanKindInternal
	}

	ctx, span := tracer.Start(ctx, name, trace.WithSpanKind(spanKind))
	return ctx, &Span{span: span}
}

// EndSpan finalises sp and records status depending on err.
func EndSpan(sp *Span, err error) {
	if sp == nil {
		return
	}
	sp.SetStatus(err)
	sp.span.End()
}

// StartTaskSpan starts an internal span for one hop of a task's journey
// through the fabric, tagging it with the task's routing id so a trace
// can be reconstructed across process boundaries from span attributes
// alone. The span is named after the given tier label plus ".task"; the
// fabric passes "universe.dispatch", "space.dispatch" and "computer".
// Each span also gets its
// own correlation id attribute, a cheap grep anchor for matching this
// exact hop's span to whatever log line a caller emits around the same
// call.
func StartTaskSpan(ctx context.Context, tier string, id taskid.ID) (context.Context, *Span) {
	ctx, span := StartSpan(ctx, tier+".task", "INTERNAL")
	span.span.SetAttributes(
		attribute.String("task.id", id.String()),
		attribute.Int("task.server_id", id.ServerID),
		attribute.Bool("task.successor", id.Successor),
		attribute.String("task.correlation_id", idgen.NewCorrelationID()),
	)
	return ctx, span
}
