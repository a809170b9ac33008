package logs

import (
	"context"
	"errors"
	"fmt"
)

// WrapSpan annotates err with the span and session carried by ctx.
func WrapSpan(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if span := SpanFrom(ctx); span != "" {
		err = errors.Join(err, fmt.Errorf("span: %s", span))
	}
	if id := SessionFrom(ctx); id != "" {
		err = errors.Join(err, fmt.Errorf("session: %s", id))
	}
	return err
}
