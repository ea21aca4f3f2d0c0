package tracer

import (
	"context"
	"log"
	"os"

	"github.com/go-logr/stdr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
)

const instrumentation = "kodiak"

type Span struct {
	c    context.Context
	span oteltrace.Span
}

func (s Span) Context() context.Context {
	return s.c
}

func (s Span) End() {
	s.span.End()
}

func (s Span) SetIntAttribute(attrName string, val int) {
	s.span.SetAttributes(attribute.Int(attrName, val))
}

func (s Span) SetStringAttribute(attrName string, val string) {
	s.span.SetAttributes(attribute.String(attrName, val))
}

// RecordError marks the span as failed. A nil err is ignored.
func (s Span) RecordError(err error) {
	if err == nil {
		return
	}
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

func StartSpan(ctx context.Context, name string) Span {
	tracer := otel.Tracer(instrumentation)
	cCtx, span := tracer.Start(ctx, name)
	return Span{
		c:    cCtx,
		span: span,
	}
}

// InitProvider installs a global tracer provider sampling every trace and
// feeding the given processors. The caller owns the returned provider and
// should shut it down.
func InitProvider(processors ...sdktrace.SpanProcessor) *sdktrace.TracerProvider {
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
	}
	for _, p := range processors {
		opts = append(opts, sdktrace.WithSpanProcessor(p))
	}
	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)

	// surfaces dropped spans, which otel logs at verbosity 5
	stdr.SetVerbosity(5)
	otel.SetLogger(stdr.New(log.New(os.Stderr, "", log.LstdFlags|log.Lshortfile)))
	return tp
}
