package catalog

import (
	"context"
	"errors"

	"github.com/goliatone/go-article-catalog/model"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

func (s *Service) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "catalog."+name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// finish records err on span and logs the outcome. Expected outcomes such as
// not-found are logged at debug level; store failures at error level.
func (s *Service) finish(ctx context.Context, span trace.Span, op string, err error) {
	if err == nil {
		s.logger.DebugContext(ctx, "catalog operation", "op", op)
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	if errors.Is(err, model.ErrStoreUnavailable) {
		s.logger.ErrorContext(ctx, "catalog operation failed", "op", op, "error", err)
		return
	}
	s.logger.DebugContext(ctx, "catalog operation rejected", "op", op, "error", err)
}
