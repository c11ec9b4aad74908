package transport

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracerName identifies this package's tracer. Spans are no-ops unless
// the embedding process installs a real tracer provider.
const tracerName = "github.com/gogpu/relay/transport"

func startSpan(name string, attrs ...attribute.KeyValue) trace.Span {
	_, span := otel.Tracer(tracerName).Start(context.Background(), name,
		trace.WithAttributes(attrs...))
	return span
}

// spanErr records err on span, marks it failed, and returns err so call
// sites can wrap their return values in one expression.
func spanErr(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
