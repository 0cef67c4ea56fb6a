package tracing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "medinauts/intake"

// OTelTracer adapts an OpenTelemetry tracer to Tracer. Every span is a client
// span for one outbound collaborator call and carries the collaborator name.
type OTelTracer struct {
	tracer trace.Tracer
}

// OTelOption configures the OTelTracer.
type OTelOption func(*OTelTracer)

// WithOTelTracer injects a pre-configured OpenTelemetry tracer.
func WithOTelTracer(t trace.Tracer) OTelOption {
	return func(o *OTelTracer) {
		o.tracer = t
	}
}

// NewOTel returns a tracer backed by the global provider unless one is injected.
func NewOTel(opts ...OTelOption) *OTelTracer {
	t := &OTelTracer{}
	for _, opt := range opts {
		opt(t)
	}
	if t.tracer == nil {
		t.tracer = otel.Tracer(instrumentationName)
	}
	return t
}

func (t *OTelTracer) Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span) {
	kvs := append(otelAttributes(attrs), attribute.String(AttrCollaborator, collaboratorOf(name)))
	ctx, span := t.tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(kvs...),
	)
	return ctx, &otelSpan{span: span}
}

// collaboratorOf maps "intake.auth.login" to "auth".
func collaboratorOf(spanName string) string {
	rest := strings.TrimPrefix(spanName, "intake.")
	collaborator, _, _ := strings.Cut(rest, ".")
	return collaborator
}

// categorized is implemented by collaborator errors.
type categorized interface {
	FailureCategory() string
}

type otelSpan struct {
	span trace.Span
}

// End marks a failed call with the error and, when known, its category
// (timeout, rejected, outage, ...).
func (s *otelSpan) End(err error) {
	if err != nil {
		var c categorized
		if errors.As(err, &c) {
			s.span.SetAttributes(attribute.String(AttrErrorCategory, c.FailureCategory()))
		}
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	}
	s.span.End()
}

func (s *otelSpan) SetAttributes(attrs ...Attribute) {
	s.span.SetAttributes(otelAttributes(attrs)...)
}

func (s *otelSpan) AddEvent(name string, attrs ...Attribute) {
	s.span.AddEvent(name, trace.WithAttributes(otelAttributes(attrs)...))
}

// otelAttributes converts the values the Attribute constructors produce.
// Anything else is recorded in its fmt form.
func otelAttributes(attrs []Attribute) []attribute.KeyValue {
	kvs := make([]attribute.KeyValue, 0, len(attrs)+1)
	for _, a := range attrs {
		key := attribute.Key(a.Key)
		switch v := a.Value.(type) {
		case string:
			kvs = append(kvs, key.String(v))
		case bool:
			kvs = append(kvs, key.Bool(v))
		case int64:
			kvs = append(kvs, key.Int64(v))
		case float64:
			kvs = append(kvs, key.Float64(v))
		default:
			kvs = append(kvs, key.String(fmt.Sprint(v)))
		}
	}
	return kvs
}

var (
	_ Tracer = (*OTelTracer)(nil)
	_ Span   = (*otelSpan)(nil)
)
