package nets

import (
	"net/http"
	"time"

	"github.com/reusee/taiplan/configs"
)

type HTTPClient = *http.Client

// HTTPTimeout bounds connection setup and response headers, not streamed bodies.
type HTTPTimeout time.Duration

var _ configs.Configurable = HTTPTimeout(0)

func (HTTPTimeout) ConfigKey() string {
	return "http_timeout"
}

func (Module) HTTPTimeout(
	loader configs.Loader,
) HTTPTimeout {
	if secs := configs.First[int](loader, HTTPTimeout(0).ConfigKey()); secs > 0 {
		return HTTPTimeout(time.Duration(secs) * time.Second)
	}
	return HTTPTimeout(2 * time.Minute)
}

func (Module) HTTPClient(
	dialer Dialer,
	timeout HTTPTimeout,
) HTTPClient {
	return &http.Client{
		Transport: &http.Transport{
			DialContext:           dialer.DialContext,
			TLSHandshakeTimeout:   time.Duration(timeout),
			ResponseHeaderTimeout: time.Duration(timeout),
			IdleConnTimeout:       90 * time.Second,
			MaxIdleConnsPerHost:   4,
		},
	}
}
