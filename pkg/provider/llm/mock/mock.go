// Package mock provides a test double for the llm.Provider interface.
//
// Use Provider in unit tests to verify the requests sent by the completion
// client and to feed controlled responses without a live LLM backend.
//
// Example:
//
//	p := &mock.Provider{Responses: []string{"Greetings!"}}
//	resp, err := p.Complete(ctx, req)
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/chronos/pkg/provider/llm"
	"github.com/MrWong99/chronos/pkg/types"
)

// CompleteCall records a single invocation of Complete.
type CompleteCall struct {
	Ctx context.Context
	Req llm.CompletionRequest
}

// Provider is a mock implementation of llm.Provider.
//
// Responses are consumed in order; once exhausted the last one is repeated.
// Errors, when set, are keyed by call index (0-based) and take precedence
// over Responses for that call. Handler, when set, replaces both.
type Provider struct {
	mu sync.Mutex

	// Responses are returned by successive Complete calls.
	Responses []string

	// Errors injects an error for the call with the given index.
	Errors map[int]error

	// Err, if non-nil, is returned by every Complete call.
	Err error

	// Handler, if set, computes the response for every call.
	Handler func(req llm.CompletionRequest) (string, error)

	// ModelCapabilities is returned by Capabilities.
	ModelCapabilities types.ModelCapabilities

	// CompleteCalls records every invocation of Complete in order.
	CompleteCalls []CompleteCall
}

// Complete records the call and returns the configured response.
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	idx := len(p.CompleteCalls)
	p.CompleteCalls = append(p.CompleteCalls, CompleteCall{Ctx: ctx, Req: req})
	handler := p.Handler
	err := p.Err
	if e, ok := p.Errors[idx]; ok {
		err = e
	}
	var content string
	if n := len(p.Responses); n > 0 {
		if idx < n {
			content = p.Responses[idx]
		} else {
			content = p.Responses[n-1]
		}
	}
	p.mu.Unlock()

	if handler != nil {
		content, err = handler(req)
	}
	if err != nil {
		return nil, err
	}
	return &llm.CompletionResponse{Content: content}, nil
}

// Capabilities returns ModelCapabilities.
func (p *Provider) Capabilities() types.ModelCapabilities {
	return p.ModelCapabilities
}

// Calls returns a snapshot of the recorded Complete calls.
func (p *Provider) Calls() []CompleteCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]CompleteCall, len(p.CompleteCalls))
	copy(out, p.CompleteCalls)
	return out
}

var _ llm.Provider = (*Provider)(nil)
