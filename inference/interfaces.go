package inference

import "context"

// Backend executes a single completion call against a vision-capable
// model. Implementations must be thread-safe for concurrent use; all
// throttling, retries, and caching are the gateway's responsibility,
// not the backend's.
type Backend interface {
	// Complete sends a prompt and an image payload to the model and
	// returns the raw text output. Failures are reported as
	// *BackendError so callers can distinguish rate-limit, timeout,
	// transport, and malformed-request categories.
	Complete(ctx context.Context, prompt string, image []byte, params Params) (string, error)
}

// Params are the per-call model parameters.
type Params struct {
	// Model is the model identifier, e.g. "gpt-4o".
	Model string

	// Temperature controls sampling randomness.
	Temperature float64

	// MaxTokens bounds the output size and anchors the output side of
	// the gateway's cost estimate.
	MaxTokens int

	// ImageDetail is the vision detail level: "auto", "low", or "high".
	ImageDetail string
}
