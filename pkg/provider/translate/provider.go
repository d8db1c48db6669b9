// Package translate defines the Provider interface for hosted text
// translation backends used to localise spoken output.
package translate

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned by providers that have no credentials.
var ErrNotConfigured = errors.New("translate: service not configured")

// Provider translates batches of texts into a target language.
//
// Implementations must be safe for concurrent use.
type Provider interface {
	// Translate returns one translation per input text, in input order.
	// targetLanguage is a BCP-47 locale such as "fr-FR". An empty string in
	// the result means the backend produced nothing usable for that entry.
	Translate(ctx context.Context, targetLanguage string, texts []string) ([]string, error)
}
