// Package mock provides a test double for the translate.Provider interface.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/chronos/pkg/provider/translate"
)

// TranslateCall records a single invocation of Translate.
type TranslateCall struct {
	Ctx            context.Context
	TargetLanguage string
	Texts          []string
}

// Provider is a mock implementation of translate.Provider.
//
// With neither Result nor Prefix set, texts are returned unchanged.
type Provider struct {
	mu sync.Mutex

	// Result is returned verbatim when non-nil.
	Result []string

	// Prefix is prepended to every input text when Result is nil.
	Prefix string

	// Err, if non-nil, is returned by Translate.
	Err error

	// Calls records every invocation of Translate in order.
	Calls []TranslateCall
}

// Translate records the call and returns the configured translations.
func (p *Provider) Translate(ctx context.Context, targetLanguage string, texts []string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, TranslateCall{Ctx: ctx, TargetLanguage: targetLanguage, Texts: append([]string(nil), texts...)})
	if p.Err != nil {
		return nil, p.Err
	}
	if p.Result != nil {
		return p.Result, nil
	}
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = p.Prefix + t
	}
	return out, nil
}

// CallCount returns the number of recorded Translate calls.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}

var _ translate.Provider = (*Provider)(nil)
