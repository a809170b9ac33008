package oracles

import "context"

type Request struct {
	Kind Kind
	// Dialog ends with the engine prompt for this request.
	Dialog      Dialog
	Temperature float32
}

// Oracle answers requests. Calls for one session are strictly sequential.
type Oracle interface {
	Query(ctx context.Context, req Request) (Reply, error)
	// Complete asks a free-text question after the dialog.
	Complete(ctx context.Context, dialog Dialog, prompt string) (string, Usage, error)
}
