package logger

import (
	"log/slog"
	"os"

	slogbetterstack "github.com/samber/slog-betterstack"
)

// ShippingOptions configures optional remote log shipping to Better Stack.
type ShippingOptions struct {
	Token    string // Better Stack source token; empty disables shipping
	Endpoint string // Ingesting endpoint; empty uses the SDK default
}

// NewShipping creates the production logger: JSON to stdout, plus an async
// Better Stack handler when a token is configured. The returned AsyncHandler
// is nil when shipping is disabled; callers flush it on shutdown otherwise.
func NewShipping(level string, opts ShippingOptions) (*Logger, *AsyncHandler) {
	stdout := slog.NewJSONHandler(os.Stdout, HandlerOptions(level))

	if opts.Token == "" {
		return NewWithHandler(NewContextHandler(stdout)), nil
	}

	option := slogbetterstack.Option{
		Level: ParseLevel(level),
		Token: opts.Token,
	}
	if opts.Endpoint != "" {
		option.Endpoint = opts.Endpoint
	}

	// Shipping goes through the async worker so a slow or unreachable
	// ingest endpoint never stalls the dispatch path.
	async := NewAsyncHandler(option.NewBetterstackHandler(), AsyncOptions{})
	multi := NewMultiHandler(stdout, async)
	return NewWithHandler(NewContextHandler(multi)), async
}
