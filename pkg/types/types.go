// Package types defines the shared types used across chronos packages.
//
// Cross-cutting data structures live here to avoid circular imports between
// providers, the completion client and the session layer. Each package keeps
// its own domain types.
package types

import "strings"

// Message roles understood by every LLM provider.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a single message in an LLM conversation history.
type Message struct {
	// Role is one of "system", "user" or "assistant".
	Role string

	// Content is the text content of the message.
	Content string

	// Name is an optional participant name. Assistant turns in a debate carry
	// the name of the figure that produced them.
	Name string
}

// ModelCapabilities describes what an LLM model supports.
type ModelCapabilities struct {
	// ContextWindow is the maximum token count for input + output.
	ContextWindow int

	// MaxOutputTokens is the maximum tokens the model can generate in one completion.
	MaxOutputTokens int
}

// Gender selects a hosted voice list. It is inferred per figure and defaults
// to male.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// ParseGender normalises free-form model output into a Gender. Anything that
// is not recognisably female is treated as male.
func ParseGender(s string) Gender {
	if strings.EqualFold(strings.TrimSpace(s), string(GenderFemale)) {
		return GenderFemale
	}
	return GenderMale
}
