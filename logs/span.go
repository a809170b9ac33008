package logs

import "context"

type Span string

type spanKey struct{}

var SpanKey = spanKey{}

type sessionKey struct{}

var SessionKey = sessionKey{}

// WithSession marks ctx so that every record logged under it carries the session id.
func WithSession(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, SessionKey, id)
}

func SessionFrom(ctx context.Context) string {
	id, _ := ctx.Value(SessionKey).(string)
	return id
}
