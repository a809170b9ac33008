package logs

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/reusee/dscope"
	"github.com/reusee/taiplan/modes"
)

func TestHandler(t *testing.T) {
	dscope.New(new(Module), modes.ForTest(t)).Call(func(
		logger Logger,
	) {
		logger.Info("test", "hello", "world!")
	})
}

func TestSessionAttribute(t *testing.T) {
	buf := new(bytes.Buffer)
	dscope.New(new(Module), modes.ForTest(t)).Fork(
		func() Writer {
			return buf
		},
	).Call(func(
		logger Logger,
	) {
		ctx := WithSession(context.Background(), "s-1")
		logger.With("component", "test").InfoContext(ctx, "hello")
		out := buf.String()
		if !strings.Contains(out, "logs.session=s-1") {
			t.Fatalf("got %v", out)
		}
		if !strings.Contains(out, "component=test") {
			t.Fatalf("got %v", out)
		}
	})
}

func TestWrapSpan(t *testing.T) {
	if WrapSpan(context.Background(), nil) != nil {
		t.Fatal()
	}
	base := errors.New("base")
	ctx := context.WithValue(context.Background(), SpanKey, Span("abc"))
	ctx = WithSession(ctx, "s-2")
	err := WrapSpan(ctx, base)
	if !errors.Is(err, base) {
		t.Fatalf("got %v", err)
	}
	if !strings.Contains(err.Error(), "span: abc") || !strings.Contains(err.Error(), "session: s-2") {
		t.Fatalf("got %v", err)
	}
}
