package logs

import (
	"context"
	"crypto/rand"
)

// NewSpan derives a context carrying a fresh span and logs its creation at debug level.
// An empty parent means the span of ctx, if any. The span of ctx is logged as the creator when it differs from parent.
type NewSpan func(ctx context.Context, parent Span, name string) (context.Context, Span)

func SpanFrom(ctx context.Context) Span {
	span, _ := ctx.Value(SpanKey).(Span)
	return span
}

func (Module) NewSpan(
	logger Logger,
) NewSpan {
	return func(ctx context.Context, parent Span, name string) (context.Context, Span) {
		creator := SpanFrom(ctx)
		if parent == "" {
			parent = creator
		}
		span := Span(rand.Text())
		ctx = context.WithValue(ctx, SpanKey, span)

		attrs := []any{"name", name}
		if parent != "" {
			attrs = append(attrs, "parent", parent)
		}
		if creator != "" && creator != parent {
			attrs = append(attrs, "creator", creator)
		}
		logger.DebugContext(ctx, "new span", attrs...)
		return ctx, span
	}
}
