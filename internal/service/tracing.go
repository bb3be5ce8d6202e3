package service

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("docvault/internal/service")

func startSpan(ctx context.Context, op, documentID string, editNumber int) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{attribute.String("document.operation", op)}
	if documentID != "" {
		attrs = append(attrs, attribute.String("document.id", documentID))
	}
	if editNumber > 0 {
		attrs = append(attrs, attribute.Int("document.edit_number", editNumber))
	}
	return tracer.Start(ctx, "DocumentService."+op, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if k := KindOf(err); k != 0 {
			span.SetAttributes(attribute.String("error.kind", k.String()))
		}
	}
	span.End()
}
