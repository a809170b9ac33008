package generators

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/reusee/taiplan/logs"
	"google.golang.org/genai"
)

var ErrRetryable = errors.New("retryable")

const maxRetries = 10

func doWithRetry[T any](
	ctx context.Context,
	logger logs.Logger,
	fn func() (T, error),
) (ret T, err error) {
	backoff := 1 * time.Second

	for i := range maxRetries {
		ret, err = fn()
		if err == nil {
			return
		}
		if isRetryable(err) {
			logger.WarnContext(ctx, "retry",
				"attempt", i+1, "error", err,
			)
			select {
			case <-ctx.Done():
				err = ctx.Err()
				return
			case <-time.After(backoff * time.Duration(1<<i)):
			}
			continue
		}
		return ret, err
	}

	return
}

func isRetryable(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusInternalServerError:
			return true
		}
	}
	if errors.Is(err, ErrRetryable) {
		return true
	}
	return false
}
