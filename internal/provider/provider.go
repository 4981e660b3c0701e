// Package provider defines the call contract every LLM backend implements and
// the registry the engines resolve backends from.
package provider

import "context"

// Options are per-invocation knobs forwarded untouched to a provider.
type Options map[string]any

// Metadata describes how a response was produced.
type Metadata struct {
	Provider string `json:"provider"`
	// Latency is the provider-reported call latency in milliseconds.
	Latency float64 `json:"latency"`
	Model   string  `json:"model,omitempty"`
}

// Response is what a successful call returns.
type Response struct {
	Data     any      `json:"data"`
	Metadata Metadata `json:"metadata"`
}

// Provider is a stateless request handler for one backend.
type Provider interface {
	Name() string
	Call(ctx context.Context, prompt, role string, opts Options) (Response, error)
}

// Func adapts a plain function to the Provider interface.
type Func struct {
	ProviderName string
	Fn           func(ctx context.Context, prompt, role string, opts Options) (Response, error)
}

func (f Func) Name() string { return f.ProviderName }

func (f Func) Call(ctx context.Context, prompt, role string, opts Options) (Response, error) {
	return f.Fn(ctx, prompt, role, opts)
}
